// Package session stores per-user conversation state.
package session

import (
	"context"

	"besedka/internal/models"
)

// Repository keeps one conversation per user. Get returns nil, nil when the
// user has no conversation.
type Repository interface {
	Get(ctx context.Context, userID int64) (*models.UserSession, error)
	Save(ctx context.Context, s *models.UserSession) error
	Clear(ctx context.Context, userID int64) error
}
