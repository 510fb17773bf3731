package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"besedka/internal/availability"
	"besedka/internal/config"
	"besedka/internal/models"
	"besedka/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoot_Commands(t *testing.T) {
	root := NewRoot()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"bot", "export", "venues", "busy"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter("Лесная", "01.06.2030", "30.06.2030")
	require.NoError(t, err)
	assert.Equal(t, "Лесная", f.Venue)
	assert.Equal(t, 1, f.From.Day)
	assert.Equal(t, 30, f.To.Day)

	_, err = parseFilter("", "2030-06-01", "")
	assert.Error(t, err)
}

func TestPrintBusy(t *testing.T) {
	st := store.NewMemory([]models.Venue{{ID: "1", Name: "Лесная", HourlyPrice: 1000}})
	st.Seed(
		models.Reservation{Venue: "лесная", Date: "15.06.2030", From: "10:00", To: "13:00"},
		models.Reservation{Venue: "Лесная", Date: "16.06.2030", From: "10:00", To: "13:00"},
	)
	day, _ := models.NewDate(2030, 6, 15)

	var buf bytes.Buffer
	require.NoError(t, printBusy(context.Background(), &buf, st, availability.NewChecker(nil), "1", day))
	assert.Contains(t, buf.String(), "10:00")
	assert.NotContains(t, buf.String(), "free all day")

	buf.Reset()
	other, _ := models.NewDate(2030, 6, 17)
	require.NoError(t, printBusy(context.Background(), &buf, st, availability.NewChecker(nil), "Лесная", other))
	assert.Contains(t, buf.String(), "free all day")

	assert.Error(t, printBusy(context.Background(), &buf, st, availability.NewChecker(nil), "Речная", day))
}

func TestPrintVenues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printVenues(&buf, []models.Venue{{ID: "1", Name: "Лесная", HourlyPrice: 1000}}))
	assert.Contains(t, buf.String(), "Лесная")
	assert.Contains(t, buf.String(), "1000")
}

func TestOpenBackend_Memory(t *testing.T) {
	dir := t.TempDir()
	venuesPath := filepath.Join(dir, "venues.yaml")
	require.NoError(t, os.WriteFile(venuesPath, []byte("venues:\n  - {id: a, name: Лесная, price: 1000}\n"), 0o644))

	cfg := &config.Config{VenuesConfigPath: venuesPath}
	cfg.Store.Backend = config.BackendMemory
	logger := zerolog.Nop()

	be, err := openBackend(context.Background(), cfg, &logger)
	require.NoError(t, err)
	defer be.close()

	venues, err := be.store.ListVenues(context.Background())
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "a", venues[0].ID)
	assert.NoError(t, be.ping(context.Background()))
}

func TestOpenBackend_SQLite(t *testing.T) {
	dir := t.TempDir()
	venuesPath := filepath.Join(dir, "venues.yaml")
	require.NoError(t, os.WriteFile(venuesPath, []byte("venues:\n  - {name: Речная, price: 1500}\n"), 0o644))

	cfg := &config.Config{VenuesConfigPath: venuesPath}
	cfg.Store.Backend = config.BackendSQLite
	cfg.Database.Path = filepath.Join(dir, "besedka.db")
	logger := zerolog.Nop()

	be, err := openBackend(context.Background(), cfg, &logger)
	require.NoError(t, err)
	defer be.close()

	require.NotNil(t, be.db)
	venues, err := be.store.ListVenues(context.Background())
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "Речная", venues[0].Name)
}

func TestHealthHandler(t *testing.T) {
	healthy := healthHandler(context.Background(), func(context.Context) error { return nil }, nil)
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	broken := healthHandler(context.Background(), func(context.Context) error { return errors.New("down") }, nil)
	rec = httptest.NewRecorder()
	broken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	broken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
