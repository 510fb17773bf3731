package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"besedka/internal/models"
	"besedka/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets values API the store uses.
type fakeSheets struct {
	mu      sync.Mutex
	sheets  map[string][][]interface{}
	appends int
	updates []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/sheet-id/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case r.Method == http.MethodGet:
		writeJSON(w, map[string]interface{}{"range": rng, "majorDimension": "ROWS", "values": f.sheets[rng]})

	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		sheet := strings.TrimSuffix(rng, ":append")
		var body sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			http.Error(w, "expected RAW input", http.StatusBadRequest)
			return
		}
		f.appends++
		f.sheets[sheet] = append(f.sheets[sheet], body.Values...)
		row := len(f.sheets[sheet])
		writeJSON(w, map[string]interface{}{
			"spreadsheetId": "sheet-id",
			"updates":       map[string]interface{}{"updatedRange": fmt.Sprintf("%s!A%d:H%d", sheet, row, row), "updatedRows": 1},
		})

	case r.Method == http.MethodPut:
		var body sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.updates = append(f.updates, rng)
		sheet, a1, _ := strings.Cut(rng, "!")
		col := int(a1[0] - 'A')
		rowNum, _ := strconv.Atoi(a1[1:])
		f.sheets[sheet][rowNum-1][col] = body.Values[0][0]
		writeJSON(w, map[string]interface{}{"updatedRange": rng, "updatedCells": 1})

	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func row(values ...interface{}) []interface{} { return values }

func newTestStore(t *testing.T, fake *fakeSheets) *SheetsStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewSheetsStoreWithService(svc, Config{SpreadsheetID: "sheet-id", RequestsPerMinute: 6000}, nil)
}

func originalLayout() *fakeSheets {
	return &fakeSheets{sheets: map[string][][]interface{}{
		"huts": {
			row("name", "price", "description", "photo"),
			row("Лесная", "1000", "У пруда", "AgACAgIAAx"),
			row("Речная", "1 500", "", ""),
			row("Сломанная", "дорого", "", ""),
			row("Минус", "-1000", "", ""),
		},
		"bookings": {
			row("№", "Беседка", "дата", "время от", "время до", "имя", "телефон", "статус брони"),
			row("1", "Лесная", "15.06.2030", "10:00", "13:00", "Иван", "+7", "ожидает"),
			row("2", "Речная", "15.06.2030", "утро", "", "Пётр", "+7", "забронировано"),
		},
	}}
}

func TestSheetsStore_ListVenues(t *testing.T) {
	s := newTestStore(t, originalLayout())

	venues, err := s.ListVenues(context.Background())
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, models.Venue{ID: "2", Name: "Лесная", HourlyPrice: 1000, Description: "У пруда", Photo: "AgACAgIAAx"}, venues[0])
	assert.Equal(t, int64(1500), venues[1].HourlyPrice)
	assert.Equal(t, "3", venues[1].ID)
	for _, v := range venues {
		assert.GreaterOrEqual(t, v.HourlyPrice, int64(0), v.Name)
		assert.NotEqual(t, "Минус", v.Name)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1000", want: 1000},
		{in: "1 500 ₽", want: 1500},
		{in: "999,9", want: 999},
		{in: "", want: 0},
		{in: "-1000", wantErr: true},
		{in: "-10.5", wantErr: true},
		{in: "дорого", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePrice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSheetsStore_ListReservations(t *testing.T) {
	s := newTestStore(t, originalLayout())

	rows, err := s.ListReservations(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.Reservation{
		ID: "2", Venue: "Лесная", Date: "15.06.2030", From: "10:00", To: "13:00",
		Name: "Иван", Phone: "+7", Status: models.StatusPending,
	}, rows[0])
	assert.Equal(t, models.StatusConfirmed, rows[1].Status)
	assert.Equal(t, "утро", rows[1].From)
}

func TestSheetsStore_PlainLayout(t *testing.T) {
	fake := &fakeSheets{sheets: map[string][][]interface{}{
		"bookings": {
			row("Venue", "Date", "TimeFrom", "TimeTo", "Name", "Phone", "Status"),
			row("Лесная", "15.06.2030", "10:00", "13:00", "Иван", "+7", "confirmed"),
		},
	}}
	s := newTestStore(t, fake)

	rows, err := s.ListReservations(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusConfirmed, rows[0].Status)
	assert.Equal(t, "13:00", rows[0].To)
}

func TestSheetsStore_AppendAndConfirm(t *testing.T) {
	fake := originalLayout()
	s := newTestStore(t, fake)
	ctx := context.Background()

	r := models.Reservation{Venue: "Речная", Date: "16.06.2030", From: "14:00", To: "16:30", Name: "Анна", Phone: "8900", Status: models.StatusPending}
	id, err := s.AppendReservation(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "4", id)

	last := fake.sheets["bookings"][3]
	assert.Equal(t, []interface{}{float64(3), "Речная", "16.06.2030", "14:00", "16:30", "Анна", "8900", "ожидает"}, last)

	require.NoError(t, s.UpdateStatus(ctx, store.PendingMatch(r.Key()), models.StatusConfirmed))
	assert.Equal(t, []string{"bookings!H4"}, fake.updates)
	assert.Equal(t, "забронировано", fake.sheets["bookings"][3][7])

	err = s.UpdateStatus(ctx, store.PendingMatch(r.Key()), models.StatusConfirmed)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSheetsStore_AppendToEmptySheetWritesHeader(t *testing.T) {
	fake := &fakeSheets{sheets: map[string][][]interface{}{}}
	s := newTestStore(t, fake)

	id, err := s.AppendReservation(context.Background(), models.Reservation{Venue: "Лесная", Date: "15.06.2030", From: "10:00", To: "12:00", Status: models.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, "2", id)
	assert.Equal(t, 2, fake.appends)
	assert.Equal(t, "Беседка", fake.sheets["bookings"][0][1])
}

func TestSheetsStore_MissingColumns(t *testing.T) {
	fake := &fakeSheets{sheets: map[string][][]interface{}{
		"bookings": {row("Беседка", "дата")},
	}}
	s := newTestStore(t, fake)

	_, err := s.ListReservations(context.Background())
	assert.ErrorIs(t, err, errMissingColumn)
}

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "ожидает", StatusLabel(models.StatusPending))
	assert.Equal(t, "забронировано", StatusLabel(models.StatusConfirmed))
	assert.Equal(t, models.StatusPending, ParseStatus(" Ожидает "))
	assert.Equal(t, models.StatusConfirmed, ParseStatus("CONFIRMED"))
	assert.Equal(t, models.Status("отменено"), ParseStatus("отменено"))
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(0))
	assert.Equal(t, "H", columnLetter(7))
	assert.Equal(t, "Z", columnLetter(25))
	assert.Equal(t, "AA", columnLetter(26))
	assert.Equal(t, "AB", columnLetter(27))
}

func TestRowFromRange(t *testing.T) {
	assert.Equal(t, "5", rowFromRange("bookings!A5:H5"))
	assert.Equal(t, "12", rowFromRange("'брони'!A12:H12"))
	assert.Equal(t, "", rowFromRange("bookings"))
}
