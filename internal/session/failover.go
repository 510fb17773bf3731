package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"besedka/internal/models"

	"github.com/rs/zerolog"
)

const retryPrimaryAfter = time.Minute

// Failover uses the primary repository and switches to the fallback while
// the primary is failing. The primary is retried once a minute. Sessions
// written to the fallback during an outage are moved back to the primary
// on the user's next read once it recovers.
type Failover struct {
	primary  Repository
	fallback Repository
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	stranded  map[int64]struct{}
}

func NewFailover(primary, fallback Repository, logger *zerolog.Logger) *Failover {
	return &Failover{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		stranded: make(map[int64]struct{}),
	}
}

func (f *Failover) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) > retryPrimaryAfter {
		f.lastCheck = time.Now()
		return true
	}
	return false
}

func (f *Failover) markDown(err error) {
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()
	if !f.isDown.Swap(true) {
		f.logger.Warn().Err(err).Msg("Session storage unavailable, using in-memory fallback")
	}
}

func (f *Failover) markUp() {
	if f.isDown.Swap(false) {
		f.logger.Info().Msg("Session storage recovered")
	}
}

func (f *Failover) setStranded(userID int64, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if on {
		f.stranded[userID] = struct{}{}
	} else {
		delete(f.stranded, userID)
	}
}

func (f *Failover) isStranded(userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stranded[userID]
	return ok
}

func (f *Failover) Get(ctx context.Context, userID int64) (*models.UserSession, error) {
	if f.usePrimary() {
		s, err := f.primary.Get(ctx, userID)
		if err == nil {
			f.markUp()
			if f.isStranded(userID) {
				return f.reconcile(ctx, userID, s)
			}
			return s, nil
		}
		f.markDown(err)
	}
	return f.fallback.Get(ctx, userID)
}

// reconcile picks the newer of the primary copy and the copy saved to the
// fallback during an outage, and writes it back to the primary.
func (f *Failover) reconcile(ctx context.Context, userID int64, primary *models.UserSession) (*models.UserSession, error) {
	fb, err := f.fallback.Get(ctx, userID)
	if err != nil {
		f.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to read fallback session")
		return primary, nil
	}
	if fb == nil {
		// Cleared or expired while the primary was down.
		if err := f.primary.Clear(ctx, userID); err != nil {
			f.markDown(err)
			return nil, nil
		}
		f.setStranded(userID, false)
		return nil, nil
	}
	if primary != nil && !fb.UpdatedAt.After(primary.UpdatedAt) {
		f.dropFallback(ctx, userID)
		return primary, nil
	}
	if err := f.primary.Save(ctx, fb); err != nil {
		f.markDown(err)
		return fb, nil
	}
	f.dropFallback(ctx, userID)
	f.logger.Info().Int64("user_id", userID).Str("state", fb.State).Msg("Session restored from fallback")
	return fb, nil
}

func (f *Failover) dropFallback(ctx context.Context, userID int64) {
	if err := f.fallback.Clear(ctx, userID); err != nil {
		f.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to clear fallback session")
		return
	}
	f.setStranded(userID, false)
}

func (f *Failover) Save(ctx context.Context, s *models.UserSession) error {
	if f.usePrimary() {
		err := f.primary.Save(ctx, s)
		if err == nil {
			f.markUp()
			if f.isStranded(s.UserID) {
				f.dropFallback(ctx, s.UserID)
			}
			return nil
		}
		f.markDown(err)
	}
	if err := f.fallback.Save(ctx, s); err != nil {
		return err
	}
	f.setStranded(s.UserID, true)
	return nil
}

func (f *Failover) Clear(ctx context.Context, userID int64) error {
	if err := f.fallback.Clear(ctx, userID); err != nil {
		f.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to clear fallback session")
	}
	if f.usePrimary() {
		err := f.primary.Clear(ctx, userID)
		if err == nil {
			f.markUp()
			f.setStranded(userID, false)
			return nil
		}
		f.markDown(err)
	}
	// The primary still holds the old copy; drop it on recovery.
	f.setStranded(userID, true)
	return nil
}
