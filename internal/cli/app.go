package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"besedka/internal/config"
	"besedka/internal/database"
	"besedka/internal/google"
	"besedka/internal/store"

	"github.com/rs/zerolog"
)

func newLogger(w io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}

// loadConfig reads the config and builds a logger honouring --log-level.
func loadConfig(opts *rootOptions) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, newLogger(os.Stderr, ""), fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	return cfg, newLogger(os.Stderr, level), nil
}

// backend is the opened reservation store plus what the process needs
// around it.
type backend struct {
	store  store.Store
	db     *database.DB
	syncer store.VenueSyncer
	ping   func(ctx context.Context) error
	close  func() error
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*backend, error) {
	switch cfg.Store.Backend {
	case config.BackendSheets:
		st, err := google.NewSheetsStore(ctx, cfg.Sheets.CredentialsFile, google.Config{
			SpreadsheetID:     cfg.Sheets.SpreadsheetID,
			VenuesSheet:       cfg.Sheets.VenuesSheet,
			ReservationsSheet: cfg.Sheets.ReservationsSheet,
			RequestsPerMinute: cfg.Sheets.RequestsPerMinute,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			store: st,
			ping: func(ctx context.Context) error {
				_, err := st.ListVenues(ctx)
				return err
			},
			close: func() error { return nil },
		}, nil

	case config.BackendSQLite:
		db, err := database.NewDB(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		b := &backend{store: db, db: db, syncer: db, ping: db.PingContext, close: db.Close}
		if err := syncVenuesFile(ctx, cfg, b.syncer); err != nil {
			db.Close()
			return nil, err
		}
		return b, nil

	case config.BackendMemory:
		mem := store.NewMemory(nil)
		b := &backend{
			store:  mem,
			syncer: mem,
			ping:   func(context.Context) error { return nil },
			close:  func() error { return nil },
		}
		if err := syncVenuesFile(ctx, cfg, b.syncer); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func syncVenuesFile(ctx context.Context, cfg *config.Config, syncer store.VenueSyncer) error {
	venues, err := config.LoadVenues(cfg.VenuesConfigPath)
	if err != nil {
		return err
	}
	return syncer.SyncVenues(ctx, venues.Venues)
}
