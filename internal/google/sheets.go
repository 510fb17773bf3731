// Package google implements the reservation store on top of a Google
// Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"besedka/internal/models"
	"besedka/internal/store"

	"github.com/rs/zerolog"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Status labels as they appear in the sheet.
const (
	LabelPending   = "ожидает"
	LabelConfirmed = "забронировано"
)

// DefaultHeader is written to an empty reservations sheet.
var DefaultHeader = []string{"№", "Беседка", "дата", "время от", "время до", "имя", "телефон", "статус брони"}

// Config selects the spreadsheet and its worksheets.
type Config struct {
	SpreadsheetID     string
	VenuesSheet       string
	ReservationsSheet string
	// RequestsPerMinute throttles API calls; zero means 60.
	RequestsPerMinute int
}

// SheetsStore reads venues and reads/writes reservations in a spreadsheet.
// Reservation ids are sheet row numbers.
type SheetsStore struct {
	srv     *sheets.Service
	cfg     Config
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

var _ store.Store = (*SheetsStore)(nil)

// NewSheetsStore authenticates with a service account key file.
func NewSheetsStore(ctx context.Context, credentialsFile string, cfg Config, logger *zerolog.Logger) (*SheetsStore, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := googleoauth.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewSheetsStoreWithService(srv, cfg, logger), nil
}

// NewSheetsStoreWithService wraps an existing client, e.g. one pointed at a
// test server.
func NewSheetsStoreWithService(srv *sheets.Service, cfg Config, logger *zerolog.Logger) *SheetsStore {
	if cfg.VenuesSheet == "" {
		cfg.VenuesSheet = "huts"
	}
	if cfg.ReservationsSheet == "" {
		cfg.ReservationsSheet = "bookings"
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	return &SheetsStore{
		srv:     srv,
		cfg:     cfg,
		limiter: rate.NewLimiter(perSecond, 5),
		logger:  logger,
	}
}

func (s *SheetsStore) values(ctx context.Context, sheet string) ([][]interface{}, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := s.srv.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	s.logger.Debug().Str("sheet", sheet).Int("rows", len(resp.Values)).Dur("took", time.Since(start)).Msg("Sheet read")
	return resp.Values, nil
}

// ListVenues reads the venues sheet. The venue id is its row number.
func (s *SheetsStore) ListVenues(ctx context.Context) ([]models.Venue, error) {
	rows, err := s.values(ctx, s.cfg.VenuesSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	cols := locate(rows[0], venueHeaders)
	if _, ok := cols[colName]; !ok {
		return nil, fmt.Errorf("venues sheet %q: no name column", s.cfg.VenuesSheet)
	}

	venues := make([]models.Venue, 0, len(rows)-1)
	for i, row := range rows[1:] {
		name := cell(row, cols, colName)
		if name == "" {
			continue
		}
		price, err := parsePrice(cell(row, cols, colPrice))
		if err != nil {
			s.logger.Warn().Err(err).Str("venue", name).Int("row", i+2).Msg("Skipping venue with invalid price")
			continue
		}
		venues = append(venues, models.Venue{
			ID:          strconv.Itoa(i + 2),
			Name:        name,
			HourlyPrice: price,
			Description: cell(row, cols, colDescription),
			Photo:       cell(row, cols, colPhoto),
		})
	}
	return venues, nil
}

// ListReservations reads every reservation row in sheet order.
func (s *SheetsStore) ListReservations(ctx context.Context) ([]models.Reservation, error) {
	rows, err := s.values(ctx, s.cfg.ReservationsSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	cols, err := reservationColumns(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]models.Reservation, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out = append(out, reservationFromRow(row, cols, i+2))
	}
	return out, nil
}

// AppendReservation adds a row with RAW input so times stay text.
func (s *SheetsStore) AppendReservation(ctx context.Context, r models.Reservation) (string, error) {
	rows, err := s.values(ctx, s.cfg.ReservationsSheet)
	if err != nil {
		return "", err
	}

	header := rows
	if len(rows) == 0 {
		hdr := make([]interface{}, len(DefaultHeader))
		for i, h := range DefaultHeader {
			hdr[i] = h
		}
		if _, err := s.append(ctx, hdr); err != nil {
			return "", err
		}
		header = [][]interface{}{hdr}
		rows = header
	}
	cols, err := reservationColumns(header[0])
	if err != nil {
		return "", err
	}

	row := reservationRowValues(r, cols, len(header[0]), len(rows))
	updated, err := s.append(ctx, row)
	if err != nil {
		return "", err
	}
	id := rowFromRange(updated)
	s.logger.Info().Str("row", id).Str("venue", r.Venue).Str("date", r.Date).Msg("Reservation appended to sheet")
	return id, nil
}

func (s *SheetsStore) append(ctx context.Context, row []interface{}) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := s.srv.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, s.cfg.ReservationsSheet, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", s.cfg.ReservationsSheet, err)
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}

// UpdateStatus rewrites the status cell of the first matching row.
func (s *SheetsStore) UpdateStatus(ctx context.Context, match store.Match, status models.Status) error {
	rows, err := s.values(ctx, s.cfg.ReservationsSheet)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	cols, err := reservationColumns(rows[0])
	if err != nil {
		return err
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		if !match.Matches(reservationFromRow(row, cols, rowNum)) {
			continue
		}
		target := fmt.Sprintf("%s!%s%d", s.cfg.ReservationsSheet, columnLetter(cols[colStatus]), rowNum)
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := s.srv.Spreadsheets.Values.Update(s.cfg.SpreadsheetID, target, &sheets.ValueRange{
			Values: [][]interface{}{{StatusLabel(status)}},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", target, err)
		}
		return nil
	}
	return store.ErrNotFound
}

// StatusLabel maps a status to its sheet label.
func StatusLabel(st models.Status) string {
	switch st {
	case models.StatusPending:
		return LabelPending
	case models.StatusConfirmed:
		return LabelConfirmed
	}
	return string(st)
}

// ParseStatus maps a sheet label to a status. English labels are accepted.
func ParseStatus(label string) models.Status {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case LabelPending, "pending":
		return models.StatusPending
	case LabelConfirmed, "confirmed":
		return models.StatusConfirmed
	}
	return models.Status(strings.TrimSpace(label))
}

var errMissingColumn = errors.New("reservations sheet header is missing a column")

type column int

const (
	colIndex column = iota
	colVenue
	colDate
	colFrom
	colTo
	colName
	colPhone
	colStatus
	colPrice
	colDescription
	colPhoto
)

var reservationHeaders = map[string]column{
	"№": colIndex, "#": colIndex, "id": colIndex,
	"беседка": colVenue, "venue": colVenue, "hut": colVenue,
	"дата": colDate, "date": colDate,
	"время от": colFrom, "from": colFrom, "timefrom": colFrom, "time from": colFrom,
	"время до": colTo, "to": colTo, "timeto": colTo, "time to": colTo,
	"имя": colName, "name": colName,
	"телефон": colPhone, "phone": colPhone,
	"статус брони": colStatus, "статус": colStatus, "status": colStatus,
}

var venueHeaders = map[string]column{
	"name": colName, "название": colName, "беседка": colName,
	"price": colPrice, "цена": colPrice,
	"description": colDescription, "описание": colDescription,
	"photo": colPhoto, "фото": colPhoto,
}

func locate(header []interface{}, names map[string]column) map[column]int {
	cols := make(map[column]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(fmt.Sprint(h)))
		if c, ok := names[key]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	return cols
}

func reservationColumns(header []interface{}) (map[column]int, error) {
	cols := locate(header, reservationHeaders)
	for _, c := range []column{colVenue, colDate, colFrom, colTo, colStatus} {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %v", errMissingColumn, header)
		}
	}
	return cols, nil
}

func cell(row []interface{}, cols map[column]int, c column) string {
	i, ok := cols[c]
	if !ok || i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func isBlank(row []interface{}) bool {
	for _, v := range row {
		if v != nil && strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}

func reservationFromRow(row []interface{}, cols map[column]int, rowNum int) models.Reservation {
	return models.Reservation{
		ID:     strconv.Itoa(rowNum),
		Venue:  cell(row, cols, colVenue),
		Date:   cell(row, cols, colDate),
		From:   cell(row, cols, colFrom),
		To:     cell(row, cols, colTo),
		Name:   cell(row, cols, colName),
		Phone:  cell(row, cols, colPhone),
		Status: ParseStatus(cell(row, cols, colStatus)),
	}
}

// reservationRowValues lays r out under the located columns. index is the
// running number written to the № column.
func reservationRowValues(r models.Reservation, cols map[column]int, width, index int) []interface{} {
	row := make([]interface{}, width)
	for i := range row {
		row[i] = ""
	}
	set := func(c column, v interface{}) {
		if i, ok := cols[c]; ok && i < width {
			row[i] = v
		}
	}
	set(colIndex, index)
	set(colVenue, r.Venue)
	set(colDate, r.Date)
	set(colFrom, r.From)
	set(colTo, r.To)
	set(colName, r.Name)
	set(colPhone, r.Phone)
	set(colStatus, StatusLabel(r.Status))
	return row
}

func parsePrice(s string) (int64, error) {
	s = strings.NewReplacer(" ", "", "\u00a0", "", "₽", "", ",", ".").Replace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return int64(f), nil
}

// columnLetter converts a zero-based index to A1 notation.
func columnLetter(i int) string {
	var out []byte
	for i >= 0 {
		out = append([]byte{byte('A' + i%26)}, out...)
		i = i/26 - 1
	}
	return string(out)
}

var rangeRowRegex = regexp.MustCompile(`![A-Z]+(\d+)`)

// rowFromRange extracts the first row number from "sheet!A5:H5".
func rowFromRange(a1 string) string {
	m := rangeRowRegex.FindStringSubmatch(a1)
	if m == nil {
		return ""
	}
	return m[1]
}
