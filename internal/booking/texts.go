package booking

import (
	"fmt"
	"html"
	"strings"
	"time"

	"besedka/internal/availability"
	"besedka/internal/models"
	"besedka/internal/pricing"
)

const (
	msgNoVenues       = "Нет доступных беседок."
	msgVenueNotFound  = "Беседка не найдена, выберите из списка."
	msgPastDate       = "❌ Нельзя бронировать на прошедшую дату."
	msgEndBeforeStart = "❗ Время окончания должно быть позже времени начала. Попробуйте снова."
	msgEmptyName      = "Имя не может быть пустым. Введите ваше имя:"
	msgEmptyPhone     = "Телефон не может быть пустым. Введите номер телефона:"
	msgAwaitProof     = "Пожалуйста, отправьте чек об оплате фотографией или документом."
	msgUseButtons     = "Пожалуйста, воспользуйтесь кнопками выше."
	msgIdle           = "Выберите действие в меню."
	msgCancelled      = "❌ Бронирование отменено."
	msgStale          = "Сценарий устарел, начните бронирование заново."
	msgExpired        = "⌛ Время сессии истекло. Начните бронирование заново."
	msgStoreFailure   = "⚠️ Сервис временно недоступен, бронирование прервано. Попробуйте позже."
)

var thanks = []string{
	"✅ Чек получен! Спасибо, %s, что выбрали нас. Хорошего отдыха! Приходите ещё 🌿",
	"✅ Спасибо, %s, платёж получен! Отличного отдыха и ждём вас снова 🤗",
	"✅ Ваш чек успешно получен, %s! Наслаждайтесь отдыхом, будем рады видеть ещё!",
}

func esc(s string) string { return html.EscapeString(s) }

// FormatVenue renders a venue card for the catalogue.
func FormatVenue(v models.Venue) string {
	text := fmt.Sprintf("<b>%s</b>\n💰 %d₽/час", esc(v.Name), v.HourlyPrice)
	if d := strings.TrimSpace(v.Description); d != "" {
		text += "\n📝 " + esc(d)
	}
	return text
}

// FormatBusy lists the busy intervals of a day.
func FormatBusy(busy []availability.BusySlot) string {
	if len(busy) == 0 {
		return "<b>Все окна свободны на этот день!</b>"
	}
	var sb strings.Builder
	sb.WriteString("<b>⏳ Уже занято:</b>")
	for _, b := range busy {
		sb.WriteString("\n• ")
		sb.WriteString(esc(b.String()))
	}
	return sb.String()
}

func formatVenueChosen(name string) string {
	return fmt.Sprintf("Вы выбрали: <b>%s</b>\n%s", esc(name), StatePrompts[StateChoosingDate])
}

func formatDateChosen(d models.Date, busy []availability.BusySlot) string {
	return fmt.Sprintf("✅ Дата выбрана: %s\n\n%s", d, FormatBusy(busy))
}

func formatConflict(busy []availability.BusySlot) string {
	var sb strings.Builder
	sb.WriteString("❌ Эта беседка уже занята на выбранную дату и время.\n\n⏳ Уже занято:")
	for _, b := range busy {
		sb.WriteString("\n• ")
		sb.WriteString(esc(b.String()))
	}
	sb.WriteString("\n\nПопробуйте выбрать другое время или беседку.")
	return sb.String()
}

func formatInvalidTime(window string, field TimeField) string {
	if field == FieldEnd {
		return fmt.Sprintf("⏰ Комплекс работает с %s.\nВведите время окончания в формате ЧЧ:ММ (например: 21:00):", window)
	}
	return fmt.Sprintf("⏰ Комплекс работает с %s.\nВведите время начала в формате ЧЧ:ММ (например: 08:00):", window)
}

func formatNoEndTimes(start models.TimeOfDay, minMinutes int) string {
	return fmt.Sprintf("⏰ С %s не получится забронировать минимум %s ч до закрытия. Выберите более раннее время начала.",
		start, pricing.HalfHours(minMinutes/30))
}

func formatTooShort(minMinutes int) string {
	return fmt.Sprintf("⏰ Минимальное время бронирования — %s ч. Попробуйте указать другой диапазон.",
		pricing.HalfHours(minMinutes/30))
}

func formatIntervalChosen(iv models.TimeInterval, q pricing.Quote) string {
	return fmt.Sprintf("🕒 Время: <b>%s</b> (%s ч, %d₽)\n\n%s", iv, q.Hours, q.Total, StatePrompts[StateEnteringName])
}

// FormatPayment is shown after the pending row is written.
func FormatPayment(req models.ReservationRequest, q pricing.Quote, details string, timeout time.Duration) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Бронирование отправлено для <b>%s</b> на %s с %s до %s.\n",
		esc(req.VenueName), req.Date, req.Start, req.End)
	fmt.Fprintf(&sb, "<b>Стоимость аренды: %d₽/час × %s ч = <u>%d₽</u></b>\n\n", q.HourlyPrice, q.Hours, q.Total)
	if details != "" {
		sb.WriteString(details)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Пожалуйста, оплатите в течение %d минут и отправьте чек в ответ на это сообщение.", int(timeout.Minutes()))
	return sb.String()
}

// FormatReceiptCaption is the operator caption attached to a forwarded proof.
func FormatReceiptCaption(req models.ReservationRequest) string {
	return fmt.Sprintf("Чек по бронированию:\nБеседка: %s\nДата: %s\nВремя: %s - %s\nИмя: %s\nТелефон: <code>%s</code>",
		esc(req.VenueName), req.Date, req.Start, req.End, esc(req.Name), esc(req.Phone))
}

// FormatMismatch tells the operator a proof could not be matched to a pending row.
func FormatMismatch(req models.ReservationRequest, cause error) string {
	text := fmt.Sprintf("⚠️ Не найдена бронь со статусом «ожидает» для чека:\nБеседка: %s\nДата: %s\nВремя: %s - %s\nИмя: %s\nТелефон: <code>%s</code>",
		esc(req.VenueName), req.Date, req.Start, req.End, esc(req.Name), esc(req.Phone))
	if cause != nil {
		text += "\nОшибка: " + esc(cause.Error())
	}
	return text + "\n\nПроверьте таблицу вручную."
}

func formatThanks(pick func(int) int, name string) string {
	if name = strings.TrimSpace(name); name == "" {
		name = "гость"
	}
	return fmt.Sprintf(thanks[pick(len(thanks))], esc(name))
}
