package repository

import (
	"context"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/analytics/domain"
)

// Repository persists analytics buckets and serves the window aggregates
// they are built from.
type Repository interface {
	// UpsertBucket stores the bucket, replacing any existing row with the
	// same (channel, date, hour, slot) key.
	UpsertBucket(ctx context.Context, b *domain.Bucket) (created bool, err error)

	// UpsertBuckets stores many buckets in one transaction.
	UpsertBuckets(ctx context.Context, buckets []*domain.Bucket) (created, updated int, err error)

	GetBucket(ctx context.Context, channelID int64, date string, hour, timeSlot int) (*domain.Bucket, error)
	CountBuckets(ctx context.Context) (int, error)

	// MatchedMessageCount counts distinct matched messages of the channel
	// within [start, end).
	MatchedMessageCount(ctx context.Context, channelID int64, start, end time.Time) (int, error)

	// TopSymbols ranks words of the symbols category by distinct message
	// count within the window.
	TopSymbols(ctx context.Context, channelID int64, start, end time.Time, limit int) ([]domain.WordCount, error)

	// TopIndustries ranks the industry_name attribute of matched words.
	TopIndustries(ctx context.Context, channelID int64, start, end time.Time, limit int) ([]domain.NameCount, error)

	// TopCategories ranks dictionary categories by distinct message count.
	TopCategories(ctx context.Context, channelID int64, start, end time.Time, limit int) ([]domain.CategoryCount, error)
}
