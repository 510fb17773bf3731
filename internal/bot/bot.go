// Package bot is the Telegram transport for the reservation dialog.
package bot

import (
	"context"
	"fmt"
	"time"

	"besedka/internal/booking"
	"besedka/internal/metrics"
	"besedka/internal/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// Config holds transport settings.
type Config struct {
	OperatorChatID int64
	OperatorPhone  string
	RatePerSecond  float64
	RateBurst      int
	Debug          bool
}

// Bot routes Telegram updates into the booking engine and renders replies.
type Bot struct {
	tg       telegramClient
	engine   *booking.Engine
	store    store.Store
	cfg      Config
	dispatch *dispatcher
	limiter  *userLimiter
	logger   *zerolog.Logger
}

func New(token string, engine *booking.Engine, st store.Store, cfg Config, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug
	return newBot(&realTelegramClient{api: api}, engine, st, cfg, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, engine *booking.Engine, st store.Store, cfg Config, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, engine, st, cfg, logger)
}

func newBot(tg telegramClient, engine *booking.Engine, st store.Store, cfg Config, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("booking engine is nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bot{
		tg:       tg,
		engine:   engine,
		store:    st,
		cfg:      cfg,
		dispatch: newDispatcher(),
		limiter:  newUserLimiter(cfg.RatePerSecond, cfg.RateBurst),
		logger:   logger,
	}, nil
}

// Start polls updates until ctx is done, then waits for in-flight updates.
// Updates of one user are handled in arrival order, different users in parallel.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Bot authorized")

	prune := time.NewTicker(10 * time.Minute)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			b.dispatch.Wait()
			return
		case <-prune.C:
			b.limiter.prune(time.Hour)
		case update, ok := <-updates:
			if !ok {
				b.dispatch.Wait()
				return
			}
			b.submit(ctx, update)
		}
	}
}

func (b *Bot) submit(ctx context.Context, update tgbotapi.Update) {
	userID := updateUserID(&update)
	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Int64("user_id", userID).Logger()
	// Queued updates still run to completion after shutdown starts.
	updateCtx := l.WithContext(context.WithoutCancel(ctx))
	b.dispatch.Submit(userID, func() {
		b.handleUpdate(updateCtx, &update)
	})
}

func updateUserID(update *tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	}
	return 0
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	started := time.Now()
	defer func() { metrics.ObserveHandleDuration(time.Since(started).Seconds()) }()

	l := zerolog.Ctx(ctx)
	userID := updateUserID(update)
	if userID == 0 {
		return
	}
	if !b.limiter.allow(userID) {
		l.Warn().Msg("Rate limit exceeded, update dropped")
		if cq := update.CallbackQuery; cq != nil {
			b.answerCallback(cq.ID, msgSlowDown, false)
		}
		return
	}

	if update.CallbackQuery != nil {
		l.Debug().Str("data", update.CallbackQuery.Data).Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().Str("text", update.Message.Text).Msg("Handling message")
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) isOperator(chatID int64) bool {
	return b.cfg.OperatorChatID != 0 && chatID == b.cfg.OperatorChatID
}
