package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"besedka/internal/booking"
	"besedka/internal/calendar"
	"besedka/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnBook    = "📅 Забронировать беседку"
	btnVenues  = "📋 Посмотреть беседки"
	btnCallOps = "📞 Позвонить администратору"

	cbNoop   = "noop"
	cbCancel = "cancel"

	timesPerRow = 4
)

var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnBook),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnVenues),
		tgbotapi.NewKeyboardButton(btnCallOps),
	),
)

var monthNames = map[time.Month]string{
	time.January:   "Январь",
	time.February:  "Февраль",
	time.March:     "Март",
	time.April:     "Апрель",
	time.May:       "Май",
	time.June:      "Июнь",
	time.July:      "Июль",
	time.August:    "Август",
	time.September: "Сентябрь",
	time.October:   "Октябрь",
	time.November:  "Ноябрь",
	time.December:  "Декабрь",
}

var weekdays = [7]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

func cancelRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", cbCancel))
}

func venuesKeyboard(venues []models.Venue) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(venues)+1)
	for _, v := range venues {
		label := fmt.Sprintf("%s — %d₽/час", v.Name, v.HourlyPrice)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "venue:"+v.ID),
		))
	}
	rows = append(rows, cancelRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// calendarKeyboard renders a month grid. Past days keep their callback so
// pressing one gets an explanatory alert.
func calendarKeyboard(page calendar.Page) tgbotapi.InlineKeyboardMarkup {
	py, pm := page.Previous()
	ny, nm := page.Next()

	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("◀️", fmt.Sprintf("nav:%d:%d", py, pm)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", monthNames[page.Month], page.Year), cbNoop),
			tgbotapi.NewInlineKeyboardButtonData("▶️", fmt.Sprintf("nav:%d:%d", ny, nm)),
		},
	}

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range weekdays {
		header = append(header, tgbotapi.NewInlineKeyboardButtonData(d, cbNoop))
	}
	rows = append(rows, header)

	for _, week := range page.Weeks {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for _, cell := range week {
			switch cell.State {
			case calendar.DayBlank:
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", cbNoop))
			default:
				label := strconv.Itoa(cell.Day)
				if cell.State == calendar.DayDisabled {
					label = "·"
				}
				data := fmt.Sprintf("date:%d:%d:%d", page.Year, int(page.Month), cell.Day)
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
			}
		}
		rows = append(rows, row)
	}

	rows = append(rows, cancelRow())
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func timesKeyboard(field booking.TimeField, times []models.TimeOfDay) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(times)/timesPerRow+2)
	var current []tgbotapi.InlineKeyboardButton
	for _, t := range times {
		label := t.String()
		current = append(current, tgbotapi.NewInlineKeyboardButtonData(label, string(field)+":"+label))
		if len(current) == timesPerRow {
			rows = append(rows, current)
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	rows = append(rows, cancelRow())
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// parseCallback maps callback data to a booking event.
func parseCallback(data string) (booking.Event, bool) {
	prefix, rest, _ := strings.Cut(data, ":")
	switch prefix {
	case cbCancel:
		return booking.Cancel(), true
	case "venue":
		if rest == "" {
			return booking.Event{}, false
		}
		return booking.VenueSelected(rest), true
	case "nav":
		nums, ok := ints(rest, 2)
		if !ok {
			return booking.Event{}, false
		}
		return booking.CalendarNavigate(nums[0], nums[1]), true
	case "date":
		nums, ok := ints(rest, 3)
		if !ok {
			return booking.Event{}, false
		}
		return booking.DateSelected(nums[0], nums[1], nums[2]), true
	case string(booking.FieldStart):
		return booking.StartTimeSelected(rest), rest != ""
	case string(booking.FieldEnd):
		return booking.EndTimeSelected(rest), rest != ""
	}
	return booking.Event{}, false
}

func ints(s string, n int) ([]int, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != n {
		return nil, false
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
