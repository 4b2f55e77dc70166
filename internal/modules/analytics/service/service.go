// Package service computes time-bucketed channel analytics. Buckets are
// keyed by Tehran-local date, hour and 5-minute slot and recomputed from the
// raw message and match rows, so re-running any aggregation is idempotent.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/analytics/domain"
	"github.com/reshetovitsme/telegram-pulse/internal/modules/analytics/repository"
	chanrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/channel/repository"
	msgrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/message/repository"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/persian"
)

const topLimit = 10

// flushEvery bounds how many slots a backfill accumulates before writing.
const flushEvery = 100

// Engine aggregates message activity into analytics buckets.
type Engine struct {
	buckets  repository.Repository
	messages msgrepo.Repository
	channels chanrepo.Repository
	logger   *slog.Logger

	now func() time.Time
}

func NewEngine(buckets repository.Repository, messages msgrepo.Repository, channels chanrepo.Repository, logger *slog.Logger) *Engine {
	return &Engine{
		buckets:  buckets,
		messages: messages,
		channels: channels,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AggregateWindow computes one channel's bucket for [start, end). Windows
// without messages yield nil so empty slots never produce rows. The bucket
// key (date, hour, slot) is derived from start in Tehran local time.
func (e *Engine) AggregateWindow(ctx context.Context, channelID int64, start, end time.Time) (*domain.Bucket, error) {
	messageCount, err := e.messages.CountInWindow(ctx, channelID, start, end)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	if messageCount == 0 {
		return nil, nil
	}

	matchCount, err := e.buckets.MatchedMessageCount(ctx, channelID, start, end)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	topSymbols, err := e.buckets.TopSymbols(ctx, channelID, start, end, topLimit)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	topIndustries, err := e.buckets.TopIndustries(ctx, channelID, start, end, topLimit)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	topCategories, err := e.buckets.TopCategories(ctx, channelID, start, end, topLimit)
	if err != nil {
		return nil, oops.Wrap(err)
	}

	tehran := start.In(persian.TehranOffset)
	return &domain.Bucket{
		ChannelID:     channelID,
		Date:          tehran.Format("2006-01-02"),
		Hour:          tehran.Hour(),
		TimeSlot:      domain.TimeSlot(tehran.Minute()),
		JalaliDate:    persian.JalaliDate(start),
		DayOfWeek:     mondayWeekday(tehran),
		MessageCount:  messageCount,
		MatchCount:    matchCount,
		TopSymbols:    topSymbols,
		TopIndustries: topIndustries,
		TopCategories: topCategories,
	}, nil
}

// AggregateLast5Minutes aggregates the last completed 5-minute slot for
// every active channel.
func (e *Engine) AggregateLast5Minutes(ctx context.Context) (*domain.AggregateStats, error) {
	end := floorSlot(e.now())
	start := end.Add(-5 * time.Minute)
	return e.aggregateWindowForAll(ctx, start, end, nil)
}

// AggregateHour recomputes the hourly rollup containing at for every active
// channel. Hour boundaries follow Tehran local time.
func (e *Engine) AggregateHour(ctx context.Context, at time.Time) (*domain.AggregateStats, error) {
	start := floorTehranHour(at)
	rollup := func(b *domain.Bucket) { b.TimeSlot = domain.SlotAll }
	return e.aggregateWindowForAll(ctx, start, start.Add(time.Hour), rollup)
}

// AggregateDay recomputes the daily rollup containing at for every active
// channel. Day boundaries follow Tehran local time.
func (e *Engine) AggregateDay(ctx context.Context, at time.Time) (*domain.AggregateStats, error) {
	start := floorTehranDay(at)
	rollup := func(b *domain.Bucket) {
		b.Hour = domain.HourAll
		b.TimeSlot = domain.SlotAll
	}
	return e.aggregateWindowForAll(ctx, start, start.Add(24*time.Hour), rollup)
}

func (e *Engine) aggregateWindowForAll(ctx context.Context, start, end time.Time, rekey func(*domain.Bucket)) (*domain.AggregateStats, error) {
	channels, err := e.channels.ListActive(ctx)
	if err != nil {
		return nil, oops.Wrap(err)
	}

	stats := &domain.AggregateStats{StartTime: start, EndTime: end}
	for _, ch := range channels {
		stats.ChannelsProcessed++

		bucket, err := e.AggregateWindow(ctx, ch.ID, start, end)
		if err != nil {
			return nil, oops.With("channel_id", ch.ID).Wrap(err)
		}
		if bucket == nil {
			continue
		}
		stats.ChannelsWithData++
		if rekey != nil {
			rekey(bucket)
		}

		created, err := e.buckets.UpsertBucket(ctx, bucket)
		if err != nil {
			return nil, oops.With("channel_id", ch.ID).Wrap(err)
		}
		if created {
			stats.RecordsCreated++
		} else {
			stats.RecordsUpdated++
		}
	}

	e.logger.Info("aggregation complete",
		slog.Time("start", start),
		slog.Time("end", end),
		slog.Int("created", stats.RecordsCreated),
		slog.Int("updated", stats.RecordsUpdated),
		slog.Int("channels_with_data", stats.ChannelsWithData),
	)
	return stats, nil
}

// BackfillAll rebuilds 5-minute buckets over the whole stored history, or
// over [start, end) when given. Buckets are flushed in batches so a long
// history does not pile up in memory.
func (e *Engine) BackfillAll(ctx context.Context, start, end *time.Time) (*domain.BackfillStats, error) {
	from, to, err := e.backfillRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if from.IsZero() {
		e.logger.Warn("no messages to backfill")
		return &domain.BackfillStats{}, nil
	}

	channels, err := e.channels.ListActive(ctx)
	if err != nil {
		return nil, oops.Wrap(err)
	}

	stats := &domain.BackfillStats{StartDate: from, EndDate: to}
	var pending []*domain.Bucket

	flush := func() error {
		created, updated, err := e.buckets.UpsertBuckets(ctx, pending)
		stats.RecordsCreated += created
		stats.RecordsUpdated += updated
		pending = pending[:0]
		return err
	}

	for _, ch := range channels {
		stats.ChannelsProcessed++
		e.logger.Info("backfilling channel",
			slog.Int64("channel_id", ch.ID),
			slog.String("name", ch.Name),
		)

		for slotStart := floorSlot(from); slotStart.Before(to); slotStart = slotStart.Add(5 * time.Minute) {
			bucket, err := e.AggregateWindow(ctx, ch.ID, slotStart, slotStart.Add(5*time.Minute))
			if err != nil {
				return nil, oops.With("channel_id", ch.ID).Wrap(err)
			}
			if bucket != nil {
				pending = append(pending, bucket)
			}

			stats.TotalSlotsProcessed++
			if stats.TotalSlotsProcessed%flushEvery == 0 {
				if err := flush(); err != nil {
					return nil, oops.Wrap(err)
				}
				e.logger.Info("backfill progress",
					slog.Int("slots", stats.TotalSlotsProcessed),
					slog.Int("created", stats.RecordsCreated),
					slog.Int("updated", stats.RecordsUpdated),
				)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, oops.Wrap(err)
	}

	e.logger.Info("backfill complete",
		slog.Int("channels", stats.ChannelsProcessed),
		slog.Int("slots", stats.TotalSlotsProcessed),
		slog.Int("created", stats.RecordsCreated),
		slog.Int("updated", stats.RecordsUpdated),
	)
	return stats, nil
}

func (e *Engine) backfillRange(ctx context.Context, start, end *time.Time) (time.Time, time.Time, error) {
	if start != nil && end != nil {
		return start.UTC(), end.UTC(), nil
	}

	minDate, _, ok, err := e.messages.MinMaxDates(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, oops.Wrap(err)
	}
	if !ok {
		return time.Time{}, time.Time{}, nil
	}

	from := minDate
	if start != nil {
		from = start.UTC()
	}
	to := e.now()
	if end != nil {
		to = end.UTC()
	}
	return from, to, nil
}

// floorSlot truncates to the containing 5-minute boundary.
func floorSlot(t time.Time) time.Time {
	return t.Truncate(5 * time.Minute)
}

// floorTehranHour returns the UTC instant where t's Tehran-local hour
// begins. Tehran runs at a half-hour offset, so this is not a UTC hour
// boundary.
func floorTehranHour(t time.Time) time.Time {
	local := t.In(persian.TehranOffset)
	start := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, persian.TehranOffset)
	return start.UTC()
}

// floorTehranDay returns the UTC instant where t's Tehran-local day begins.
func floorTehranDay(t time.Time) time.Time {
	local := t.In(persian.TehranOffset)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, persian.TehranOffset)
	return start.UTC()
}

// mondayWeekday maps Go's Sunday-first weekday to a Monday-first index.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
