// Package export renders reservations into an XLSX workbook.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"besedka/internal/models"

	"github.com/xuri/excelize/v2"
)

// Source lists stored reservations.
type Source interface {
	ListReservations(ctx context.Context) ([]models.Reservation, error)
}

// Filter restricts exported rows. Zero values match everything.
type Filter struct {
	Venue string
	From  models.Date
	To    models.Date
}

func (f Filter) match(r models.Reservation) bool {
	if f.Venue != "" && !models.SameVenue(f.Venue, r.Venue) {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	d, err := models.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return false
	}
	if !f.From.IsZero() && d.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && f.To.Before(d) {
		return false
	}
	return true
}

var reservationColumns = []string{"№", "Беседка", "Дата", "С", "До", "Имя", "Телефон", "Статус"}

var summaryColumns = []string{"Беседка", "Броней", "Подтверждено", "Часов"}

var statusNames = map[models.Status]string{
	models.StatusPending:   "ожидает",
	models.StatusConfirmed: "забронировано",
}

// Write exports filtered reservations from src to w and returns the number of rows written.
func Write(ctx context.Context, src Source, filter Filter, w io.Writer) (int, error) {
	rows, err := src.ListReservations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reservations: %w", err)
	}

	selected := make([]models.Reservation, 0, len(rows))
	for _, r := range rows {
		if filter.match(r) {
			selected = append(selected, r)
		}
	}

	wb := newWorkbook()
	defer wb.file.Close()

	if err := wb.addSheet("Брони"); err != nil {
		return 0, err
	}
	if err := wb.writeHeader(reservationColumns); err != nil {
		return 0, err
	}
	for i, r := range selected {
		status := statusNames[r.Status]
		if status == "" {
			status = string(r.Status)
		}
		if err := wb.writeRow([]interface{}{i + 1, r.Venue, r.Date, r.From, r.To, r.Name, r.Phone, status}); err != nil {
			return 0, err
		}
	}

	if err := wb.addSheet("Итоги"); err != nil {
		return 0, err
	}
	if err := wb.writeHeader(summaryColumns); err != nil {
		return 0, err
	}
	for _, s := range summarize(selected) {
		if err := wb.writeRow([]interface{}{s.venue, s.count, s.confirmed, s.hours}); err != nil {
			return 0, err
		}
	}

	if err := wb.file.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(selected), nil
}

// Bytes is Write into a buffer.
func Bytes(ctx context.Context, src Source, filter Filter) ([]byte, int, error) {
	var buf bytes.Buffer
	n, err := Write(ctx, src, filter, &buf)
	if err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), n, nil
}

// FileName builds a name like besedka_01.06.2030-30.06.2030.xlsx.
func FileName(filter Filter) string {
	switch {
	case !filter.From.IsZero() && !filter.To.IsZero():
		return fmt.Sprintf("besedka_%s-%s.xlsx", filter.From, filter.To)
	case !filter.From.IsZero():
		return fmt.Sprintf("besedka_from_%s.xlsx", filter.From)
	default:
		return "besedka_all.xlsx"
	}
}

type venueSummary struct {
	venue     string
	count     int
	confirmed int
	hours     float64
}

// Unparsable intervals are counted but add no hours.
func summarize(rows []models.Reservation) []venueSummary {
	byVenue := make(map[string]*venueSummary)
	for _, r := range rows {
		name := strings.TrimSpace(r.Venue)
		key := strings.ToLower(name)
		s, ok := byVenue[key]
		if !ok {
			s = &venueSummary{venue: name}
			byVenue[key] = s
		}
		s.count++
		if r.Status == models.StatusConfirmed {
			s.confirmed++
		}
		if iv, err := r.Interval(); err == nil {
			s.hours += float64(iv.Minutes()) / 60
		}
	}

	out := make([]venueSummary, 0, len(byVenue))
	for _, s := range byVenue {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].venue < out[j].venue })
	return out
}

type workbook struct {
	file  *excelize.File
	sheet string
	row   int
}

func newWorkbook() *workbook {
	return &workbook{file: excelize.NewFile()}
}

func (w *workbook) addSheet(name string) error {
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheet = name
	w.row = 1
	return nil
}

func (w *workbook) writeHeader(columns []string) error {
	values := make([]interface{}, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := w.writeRow(values); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = w.file.SetCellStyle(w.sheet, start, end, style)
	}
	return nil
}

func (w *workbook) writeRow(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &values); err != nil {
		return err
	}
	w.row++
	return nil
}
