package repository

import (
	"context"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/channel/domain"
)

// Repository defines the interface for channel persistence.
type Repository interface {
	// Upsert creates the channel on first sighting (keyed by TelegramID)
	// or refreshes name/username/last-sync on re-sighting. The channel's
	// ID is filled in either way; created reports which path was taken.
	Upsert(ctx context.Context, ch *domain.Channel) (created bool, err error)
	Get(ctx context.Context, id int64) (*domain.Channel, error)
	GetByTelegramID(ctx context.Context, telegramID string) (*domain.Channel, error)
	List(ctx context.Context) ([]*domain.Channel, error)
	ListActive(ctx context.Context) ([]*domain.Channel, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
}
