package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// VenueWatcher polls the venue file and hands every valid new version to a
// callback. The version present at construction counts as already applied.
type VenueWatcher struct {
	path     string
	interval time.Duration
	logger   *zerolog.Logger

	modTime time.Time
	size    int64
}

func NewVenueWatcher(path string, interval time.Duration, logger *zerolog.Logger) (*VenueWatcher, error) {
	if path == "" {
		path = DefaultVenuesPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("watch venues: %w", err)
	}
	return &VenueWatcher{
		path:     path,
		interval: interval,
		logger:   logger,
		modTime:  info.ModTime(),
		size:     info.Size(),
	}, nil
}

// Poll checks the file once. It reports changed=false when the file looks
// the same as last time. A broken file is reported once per modification.
func (w *VenueWatcher) Poll() (*VenuesConfig, bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, false, err
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return nil, false, nil
	}
	w.modTime, w.size = info.ModTime(), info.Size()

	cfg, err := LoadVenues(w.path)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Run polls until ctx is done.
func (w *VenueWatcher) Run(ctx context.Context, onUpdate func(*VenuesConfig)) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cfg, changed, err := w.Poll()
			switch {
			case os.IsNotExist(err):
				w.logger.Debug().Str("path", w.path).Msg("Venues config missing, keeping current list")
			case err != nil:
				w.logger.Warn().Err(err).Str("path", w.path).Msg("Ignoring invalid venues config")
			case changed:
				w.logger.Info().Int("venues", len(cfg.Venues)).Msg("Venues config reloaded")
				onUpdate(cfg)
			}
		}
	}
}
