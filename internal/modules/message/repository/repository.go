package repository

import (
	"context"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/message/domain"
)

// Repository defines the interface for message persistence.
type Repository interface {
	// Upsert inserts the message or, when (channel, telegram message id)
	// already exists, updates its mutable fields. A previously computed
	// normalized text is preserved on update. The message's ID is filled
	// in either way.
	Upsert(ctx context.Context, m *domain.Message) (created bool, err error)
	Exists(ctx context.Context, channelID, telegramMessageID int64) (bool, error)
	Get(ctx context.Context, id int64) (*domain.Message, error)

	// ListMissingNormalized returns up to limit messages that have raw
	// text but no normalized text yet.
	ListMissingNormalized(ctx context.Context, limit int) ([]*domain.Message, error)
	SetNormalized(ctx context.Context, id int64, normalized string) error

	CountInWindow(ctx context.Context, channelID int64, start, end time.Time) (int, error)
	MinMaxDates(ctx context.Context) (min, max time.Time, ok bool, err error)

	// RecentMatched returns the channel's newest messages that matched at
	// least one dictionary word.
	RecentMatched(ctx context.Context, channelID int64, limit int) ([]*domain.Message, error)

	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}
