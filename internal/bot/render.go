package bot

import (
	"context"

	"besedka/internal/booking"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// render sends replies in order. Alerts ride on the callback answer when
// the event came from a button, every callback is answered exactly once.
func (b *Bot) render(ctx context.Context, chatID int64, cq *tgbotapi.CallbackQuery, replies []booking.Reply) {
	var alertText string
	for _, r := range replies {
		switch r.Kind {
		case booking.ReplyAlert:
			if cq != nil {
				alertText = r.Text
				continue
			}
			b.reply(ctx, chatID, r.Text)
		case booking.ReplyVenues:
			msg := tgbotapi.NewMessage(chatID, r.Text)
			msg.ParseMode = tgbotapi.ModeHTML
			msg.ReplyMarkup = venuesKeyboard(r.Venues)
			b.send(ctx, msg)
		case booking.ReplyCalendar:
			markup := calendarKeyboard(r.Page)
			if r.Edit && cq != nil && cq.Message != nil {
				edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cq.Message.MessageID, r.Text, markup)
				edit.ParseMode = tgbotapi.ModeHTML
				b.send(ctx, edit)
				continue
			}
			msg := tgbotapi.NewMessage(chatID, r.Text)
			msg.ParseMode = tgbotapi.ModeHTML
			msg.ReplyMarkup = markup
			b.send(ctx, msg)
		case booking.ReplyTimes:
			msg := tgbotapi.NewMessage(chatID, r.Text)
			msg.ParseMode = tgbotapi.ModeHTML
			msg.ReplyMarkup = timesKeyboard(r.Field, r.Times)
			b.send(ctx, msg)
		case booking.ReplyOperator:
			b.notifyOperator(ctx, r)
		default:
			msg := tgbotapi.NewMessage(chatID, r.Text)
			msg.ParseMode = tgbotapi.ModeHTML
			if r.Menu {
				msg.ReplyMarkup = mainMenu
			}
			b.send(ctx, msg)
		}
	}
	if cq != nil {
		b.answerCallback(cq.ID, alertText, alertText != "")
	}
}

func (b *Bot) notifyOperator(ctx context.Context, r booking.Reply) {
	l := zerolog.Ctx(ctx)
	if r.Mismatch {
		l.Warn().Msg("Payment proof without a pending reservation")
	}
	if b.cfg.OperatorChatID == 0 {
		l.Warn().Msg("Operator chat is not configured, notice dropped")
		return
	}

	chatID := b.cfg.OperatorChatID
	if r.Proof == nil {
		msg := tgbotapi.NewMessage(chatID, r.Text)
		msg.ParseMode = tgbotapi.ModeHTML
		b.send(ctx, msg)
		return
	}

	file := tgbotapi.FileID(r.Proof.FileID)
	if r.Proof.Kind == booking.ProofDocument {
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = r.Text
		doc.ParseMode = tgbotapi.ModeHTML
		b.send(ctx, doc)
		return
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = r.Text
	photo.ParseMode = tgbotapi.ModeHTML
	b.send(ctx, photo)
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := b.tg.Send(c); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to send message")
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func withMenu(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ReplyMarkup = mainMenu
	return msg
}

func (b *Bot) answerCallback(id, text string, showAlert bool) {
	cb := tgbotapi.NewCallback(id, text)
	cb.ShowAlert = showAlert
	_, _ = b.tg.Request(cb)
}
