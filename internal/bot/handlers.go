package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"besedka/internal/booking"
	"besedka/internal/export"
	"besedka/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	msgWelcome      = "Здравствуйте! 🌿 Здесь можно забронировать беседку. Выберите действие в меню."
	msgSlowDown     = "⏳ Слишком много запросов, подождите немного."
	msgUnknown      = "Неизвестное действие."
	msgNoVenuesList = "Список беседок пока пуст."
	msgLoadFailed   = "⚠️ Не удалось загрузить данные, попробуйте позже."
	msgNoPhone      = "Телефон администратора не указан."
	msgExportEmpty  = "Броней пока нет."
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	userID, chatID := msg.From.ID, msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	// Commands and menu buttons interrupt any active flow.
	switch {
	case strings.HasPrefix(text, "/start"):
		b.engine.Reset(ctx, userID)
		b.send(ctx, withMenu(tgbotapi.NewMessage(chatID, msgWelcome)))
		return
	case strings.HasPrefix(text, "/cancel"):
		b.dispatchEvent(ctx, chatID, userID, booking.Cancel(), nil)
		return
	case text == btnBook || strings.HasPrefix(text, "/book"):
		b.dispatchEvent(ctx, chatID, userID, booking.Start(), nil)
		return
	case text == btnVenues:
		b.sendCatalogue(ctx, chatID)
		return
	case text == btnCallOps:
		b.sendOperatorPhone(ctx, chatID)
		return
	case strings.HasPrefix(text, "/export") && b.isOperator(chatID):
		b.sendExport(ctx, chatID)
		return
	}

	if proof, ok := proofOf(msg); ok {
		b.dispatchEvent(ctx, chatID, userID, booking.PaymentProofReceived(proof), nil)
		return
	}
	b.dispatchEvent(ctx, chatID, userID, booking.Text(msg.Text), nil)
}

// proofOf extracts a receipt from a photo (largest size) or a document.
func proofOf(msg *tgbotapi.Message) (booking.Proof, bool) {
	if n := len(msg.Photo); n > 0 {
		return booking.Proof{Kind: booking.ProofPhoto, FileID: msg.Photo[n-1].FileID}, true
	}
	if msg.Document != nil && msg.Document.FileID != "" {
		return booking.Proof{Kind: booking.ProofDocument, FileID: msg.Document.FileID}, true
	}
	return booking.Proof{}, false
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.From == nil {
		return
	}
	if cq.Data == cbNoop || cq.Message == nil || cq.Message.Chat == nil {
		b.answerCallback(cq.ID, "", false)
		return
	}

	ev, ok := parseCallback(cq.Data)
	if !ok {
		zerolog.Ctx(ctx).Warn().Str("data", cq.Data).Msg("Unknown callback data")
		b.answerCallback(cq.ID, msgUnknown, false)
		return
	}
	b.dispatchEvent(ctx, cq.Message.Chat.ID, cq.From.ID, ev, cq)
}

// dispatchEvent runs ev through the engine and renders the replies. cq is
// set when the event came from an inline button.
func (b *Bot) dispatchEvent(ctx context.Context, chatID, userID int64, ev booking.Event, cq *tgbotapi.CallbackQuery) {
	res := b.engine.Handle(ctx, userID, chatID, ev)
	metrics.IncUpdate(string(res.State))

	l := zerolog.Ctx(ctx)
	var serr *booking.StoreError
	switch {
	case errors.As(res.Err, &serr):
		l.Error().Err(res.Err).Str("op", serr.Op).Msg("Store failure")
	case res.Err != nil && !booking.Recoverable(res.Err):
		l.Info().Err(res.Err).Str("event", ev.Kind.String()).Msg("Event rejected")
	}

	b.render(ctx, chatID, cq, res.Replies)
}

func (b *Bot) sendCatalogue(ctx context.Context, chatID int64) {
	if b.store == nil {
		b.reply(ctx, chatID, msgLoadFailed)
		return
	}
	venues, err := b.store.ListVenues(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to list venues")
		b.reply(ctx, chatID, msgLoadFailed)
		return
	}
	if len(venues) == 0 {
		b.reply(ctx, chatID, msgNoVenuesList)
		return
	}

	for _, v := range venues {
		caption := booking.FormatVenue(v)
		if v.Photo != "" {
			photo := tgbotapi.NewPhoto(chatID, photoFile(v.Photo))
			photo.Caption = caption
			photo.ParseMode = tgbotapi.ModeHTML
			_, err := b.tg.Send(photo)
			if err == nil {
				continue
			}
			zerolog.Ctx(ctx).Warn().Err(err).Str("venue", v.Name).Msg("Failed to send venue photo")
		}
		msg := tgbotapi.NewMessage(chatID, caption)
		msg.ParseMode = tgbotapi.ModeHTML
		b.send(ctx, msg)
	}
}

// photoFile treats http(s) references as URLs and anything else as a Telegram file id.
func photoFile(ref string) tgbotapi.RequestFileData {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tgbotapi.FileURL(ref)
	}
	return tgbotapi.FileID(ref)
}

func (b *Bot) sendOperatorPhone(ctx context.Context, chatID int64) {
	if b.cfg.OperatorPhone == "" {
		b.reply(ctx, chatID, msgNoPhone)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("📞 Телефон администратора: %s", b.cfg.OperatorPhone))
}

func (b *Bot) sendExport(ctx context.Context, chatID int64) {
	l := zerolog.Ctx(ctx)
	if b.store == nil {
		b.reply(ctx, chatID, msgLoadFailed)
		return
	}
	filter := export.Filter{}
	data, n, err := export.Bytes(ctx, b.store, filter)
	if err != nil {
		l.Error().Err(err).Msg("Export failed")
		b.reply(ctx, chatID, msgLoadFailed)
		return
	}
	if n == 0 {
		b.reply(ctx, chatID, msgExportEmpty)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: export.FileName(filter), Bytes: data})
	doc.Caption = fmt.Sprintf("Броней: %d", n)
	b.send(ctx, doc)
	l.Info().Int("rows", n).Msg("Export sent")
}
