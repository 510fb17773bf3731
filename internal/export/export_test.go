package export

import (
	"bytes"
	"context"
	"testing"

	"besedka/internal/models"
	"besedka/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seeded() *store.Memory {
	m := store.NewMemory(nil)
	m.Seed(
		models.Reservation{Venue: "Лесная", Date: "10.06.2030", From: "10:00", To: "13:00", Name: "Иван", Phone: "+7", Status: models.StatusConfirmed},
		models.Reservation{Venue: "лесная ", Date: "12.06.2030", From: "14:00", To: "16:30", Name: "Ольга", Phone: "+7", Status: models.StatusPending},
		models.Reservation{Venue: "Речная", Date: "20.07.2030", From: "oops", To: "", Name: "Пётр", Phone: "+7", Status: models.StatusPending},
	)
	return m
}

func TestWrite_AllRows(t *testing.T) {
	var buf bytes.Buffer
	n, err := Write(context.Background(), seeded(), Filter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Брони")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, reservationColumns, rows[0])
	assert.Equal(t, []string{"1", "Лесная", "10.06.2030", "10:00", "13:00", "Иван", "+7", "забронировано"}, rows[1])

	summary, err := f.GetRows("Итоги")
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"Лесная", "2", "1", "5.5"}, summary[1])
	assert.Equal(t, []string{"Речная", "1", "0", "0"}, summary[2])
}

func TestWrite_Filter(t *testing.T) {
	from, _ := models.NewDate(2030, 6, 11)
	to, _ := models.NewDate(2030, 6, 30)

	data, n, err := Bytes(context.Background(), seeded(), Filter{From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotEmpty(t, data)

	_, n, err = Bytes(context.Background(), seeded(), Filter{Venue: "РЕЧНАЯ"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFileName(t *testing.T) {
	from, _ := models.NewDate(2030, 6, 1)
	to, _ := models.NewDate(2030, 6, 30)
	assert.Equal(t, "besedka_01.06.2030-30.06.2030.xlsx", FileName(Filter{From: from, To: to}))
	assert.Equal(t, "besedka_all.xlsx", FileName(Filter{}))
}
