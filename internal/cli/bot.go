package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"besedka/internal/availability"
	"besedka/internal/booking"
	"besedka/internal/bot"
	"besedka/internal/config"
	"besedka/internal/database"
	"besedka/internal/events"
	"besedka/internal/metrics"
	"besedka/internal/session"
	"besedka/internal/slots"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newBotCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
}

func runBot(parent context.Context, opts *rootOptions) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("set telegram.bot_token in config")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer be.close()

	sessions, rdb, memSessions := openSessions(ctx, cfg, &logger)
	if rdb != nil {
		defer rdb.Close()
	}

	bus := events.NewBus(&logger)
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		metrics.Subscribe(bus)
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	machine := booking.NewMachine(booking.MachineConfig{
		Schedule: slots.Schedule{
			WorkStart:   cfg.Schedule.WorkStart,
			WorkEnd:     cfg.Schedule.WorkEnd,
			StepMinutes: cfg.Schedule.StepMinutes,
			MinMinutes:  cfg.Schedule.MinDurationMinutes,
		},
		PaymentDetails: cfg.Payment.Details,
		PaymentTimeout: cfg.PaymentTimeout(),
	}, availability.NewChecker(&logger))
	engine := booking.NewEngine(machine, be.store, sessions, bus, booking.EngineConfig{
		SessionTimeout: cfg.SessionTimeout(),
		PaymentTimeout: cfg.PaymentTimeout(),
		Location:       loc,
	}, &logger)

	b, err := bot.New(cfg.Telegram.BotToken, engine, be.store, bot.Config{
		OperatorChatID: cfg.Operator.ChatID,
		OperatorPhone:  cfg.Operator.Phone,
		RatePerSecond:  cfg.RateLimit.PerSecond,
		RateBurst:      cfg.RateLimit.Burst,
		Debug:          cfg.Telegram.Debug,
	}, &logger)
	if err != nil {
		return err
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, be.ping, rdb, &logger)

	go memSessions.RunJanitor(ctx, cfg.JanitorInterval(), func(n int) {
		if n > 0 {
			logger.Debug().Int("removed", n).Msg("Expired sessions evicted")
		}
		metrics.SetActiveSessions(memSessions.Len())
	})

	if be.syncer != nil {
		watchVenues(ctx, cfg, be, &logger)
	}

	if be.db != nil {
		backup := database.NewBackupService(be.db, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	logger.Info().Str("store", cfg.Store.Backend).Msg("Bot started")
	b.Start(ctx)
	logger.Info().Msg("Bot stopped")
	return nil
}

// openSessions returns the session repository for the engine, the redis
// client when one is configured, and the in-memory repository the janitor
// sweeps.
func openSessions(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (booking.SessionRepository, *redis.Client, *session.Memory) {
	ttl := cfg.SessionTimeout()
	if p := cfg.PaymentTimeout(); p > ttl {
		ttl = p
	}
	mem := session.NewMemory(ttl)
	if cfg.Redis.Address == "" {
		return mem, nil, mem
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	primary := session.NewRedis(rdb, ttl)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := primary.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable at start, sessions fall back to memory")
	}
	return session.NewFailover(primary, mem, logger), rdb, mem
}

// watchVenues pushes venue file edits into the store. The initial sync is
// done by openBackend.
func watchVenues(ctx context.Context, cfg *config.Config, be *backend, logger *zerolog.Logger) {
	w, err := config.NewVenueWatcher(cfg.VenuesConfigPath, 30*time.Second, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Venue watcher not started")
		return
	}
	go w.Run(ctx, func(vc *config.VenuesConfig) {
		syncCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := be.syncer.SyncVenues(syncCtx, vc.Venues); err != nil {
			logger.Error().Err(err).Msg("Failed to sync venues")
		}
	})
}
