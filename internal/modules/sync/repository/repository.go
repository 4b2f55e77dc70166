package repository

import (
	"context"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/sync/domain"
)

// Repository persists per-direction sync cursors.
type Repository interface {
	// GetOrCreate returns the direction's state, creating a zeroed row on
	// first use.
	GetOrCreate(ctx context.Context, direction domain.Direction) (*domain.State, error)
	Update(ctx context.Context, state *domain.State) error

	// Reset zeroes the direction's cursor, or both cursors when direction
	// is empty.
	Reset(ctx context.Context, direction domain.Direction) error
}
