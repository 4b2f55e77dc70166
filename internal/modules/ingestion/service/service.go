// Package service orchestrates one ingestion pipeline pass: fetch a page
// from the remote source, map and upsert messages, normalize new text and
// run dictionary matching over it.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	chanrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/channel/repository"
	dictrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/repository"
	"github.com/reshetovitsme/telegram-pulse/internal/modules/ingestion/domain"
	msgdomain "github.com/reshetovitsme/telegram-pulse/internal/modules/message/domain"
	msgrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/message/repository"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/persian"
	"github.com/reshetovitsme/telegram-pulse/internal/transport/messageapi"
)

// Remote is the upstream message source.
type Remote interface {
	FetchMessages(ctx context.Context, limit, offset int, useCache bool) (*messageapi.PageResponse, error)
	HealthCheck(ctx context.Context) error
}

// Matcher runs dictionary matching over normalized messages. nil disables
// matching.
type Matcher interface {
	MatchBatch(ctx context.Context, msgs []*msgdomain.Message) (map[int64][]int64, error)
}

// Service is the ingestion pipeline.
type Service struct {
	remote       Remote
	mapper       *Mapper
	messages     msgrepo.Repository
	channels     chanrepo.Repository
	dictionaries dictrepo.Repository
	matcher      Matcher
	normalizer   persian.Normalizer
	cache        *redis.Client
	logger       *slog.Logger
}

func New(
	remote Remote,
	mapper *Mapper,
	messages msgrepo.Repository,
	channels chanrepo.Repository,
	dictionaries dictrepo.Repository,
	matcher Matcher,
	normalizer persian.Normalizer,
	cache *redis.Client,
	logger *slog.Logger,
) *Service {
	return &Service{
		remote:       remote,
		mapper:       mapper,
		messages:     messages,
		channels:     channels,
		dictionaries: dictionaries,
		matcher:      matcher,
		normalizer:   normalizer,
		cache:        cache,
		logger:       logger,
	}
}

// IngestBatch fetches and stores one page of messages, then normalizes and
// matches whatever text is still pending. Mapping failures within the page
// are counted, not fatal; the fetch itself failing is.
func (s *Service) IngestBatch(ctx context.Context, limit, offset int, useCache, updateExisting bool) (*domain.BatchStats, error) {
	start := time.Now()
	stats := &domain.BatchStats{}
	s.mapper.ClearCache()

	page, err := s.remote.FetchMessages(ctx, limit, offset, useCache)
	if err != nil {
		return stats, oops.With("limit", limit, "offset", offset).Wrap(err)
	}
	s.logger.Info("fetched message page",
		slog.Int("count", len(page.Messages)),
		slog.Int("offset", offset),
		slog.Int64("total", page.Total),
	)

	for i := range page.Messages {
		msg, err := s.mapper.MapMessage(ctx, &page.Messages[i])
		if err != nil {
			stats.Errors++
			s.logger.Error("message mapping failed",
				slog.Int64("message_id", page.Messages[i].MessageID),
				slog.Any("error", err),
			)
			continue
		}
		stats.MessagesProcessed++

		if !updateExisting {
			exists, err := s.messages.Exists(ctx, msg.ChannelID, msg.TelegramMessageID)
			if err != nil {
				stats.Errors++
				continue
			}
			if exists {
				stats.MessagesSkipped++
				continue
			}
		}

		created, err := s.messages.Upsert(ctx, msg)
		if err != nil {
			stats.Errors++
			s.logger.Error("message upsert failed",
				slog.Int64("message_id", msg.TelegramMessageID),
				slog.Any("error", err),
			)
			continue
		}
		if created {
			stats.MessagesInserted++
		} else {
			stats.MessagesUpdated++
		}
	}
	stats.ChannelsProcessed = s.mapper.ChannelsSeen()

	matched, err := s.normalizeAndMatch(ctx, limit)
	if err != nil {
		s.logger.Error("normalize and match failed", slog.Any("error", err))
	} else {
		stats.MessagesMatched = matched
	}

	stats.DurationSeconds = time.Since(start).Seconds()
	s.logger.Info("batch ingestion complete",
		slog.Int("inserted", stats.MessagesInserted),
		slog.Int("updated", stats.MessagesUpdated),
		slog.Int("skipped", stats.MessagesSkipped),
		slog.Int("errors", stats.Errors),
		slog.Float64("duration_seconds", stats.DurationSeconds),
	)
	return stats, nil
}

// IngestAll pages through the remote listing until a short page, an
// optional message ceiling, or the end of the data.
func (s *Service) IngestAll(ctx context.Context, batchSize, maxMessages int, useCache, updateExisting bool) (*domain.BatchStats, error) {
	start := time.Now()
	total := &domain.BatchStats{}
	offset := 0

	for {
		if maxMessages > 0 && total.MessagesProcessed >= maxMessages {
			s.logger.Info("reached message ceiling", slog.Int("max_messages", maxMessages))
			break
		}

		batch, err := s.IngestBatch(ctx, batchSize, offset, useCache, updateExisting)
		if err != nil {
			return total, err
		}
		total.Add(batch)

		if batch.MessagesProcessed < batchSize {
			break
		}
		offset += batchSize
	}

	total.DurationSeconds = time.Since(start).Seconds()
	return total, nil
}

// normalizeAndMatch normalizes up to limit pending messages and runs the
// matcher over them. Messages whose text normalizes to nothing keep a NULL
// normalized column and stay pending; they are filtered here to avoid
// reprocessing churn within one batch.
func (s *Service) normalizeAndMatch(ctx context.Context, limit int) (int, error) {
	pending, err := s.messages.ListMissingNormalized(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var normalized []*msgdomain.Message
	for _, msg := range pending {
		if msg.Text == nil {
			continue
		}
		text, ok := s.normalizer.Normalize(*msg.Text)
		if !ok {
			continue
		}
		if err := s.messages.SetNormalized(ctx, msg.ID, text); err != nil {
			s.logger.Error("set normalized failed",
				slog.Int64("id", msg.ID),
				slog.Any("error", err),
			)
			continue
		}
		msg.TextNormalized = &text
		normalized = append(normalized, msg)
	}
	s.logger.Info("normalized messages", slog.Int("count", len(normalized)))

	if s.matcher == nil || len(normalized) == 0 {
		return 0, nil
	}
	matches, err := s.matcher.MatchBatch(ctx, normalized)
	if err != nil {
		return 0, err
	}

	var edgeCount int
	for _, wordIDs := range matches {
		edgeCount += len(wordIDs)
	}
	s.logger.Info("matched dictionary words",
		slog.Int("messages", len(matches)),
		slog.Int("edges", edgeCount),
	)
	return edgeCount, nil
}

// CleanupOlderThan deletes messages older than the given number of days and
// returns how many went away.
func (s *Service) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := s.messages.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, oops.With("days", days).Wrap(err)
	}
	if deleted > 0 {
		s.logger.Info("old messages deleted",
			slog.Int64("count", deleted),
			slog.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}

// Overview summarizes what is stored.
func (s *Service) Overview(ctx context.Context) (*domain.Overview, error) {
	o := &domain.Overview{}
	var err error

	if o.TotalMessages, err = s.messages.Count(ctx); err != nil {
		return nil, oops.Wrap(err)
	}
	if o.TotalChannels, err = s.channels.Count(ctx); err != nil {
		return nil, oops.Wrap(err)
	}
	if o.ActiveChannels, err = s.channels.CountActive(ctx); err != nil {
		return nil, oops.Wrap(err)
	}
	if o.MessagesLast24h, err = s.messages.CountSince(ctx, time.Now().UTC().Add(-24*time.Hour)); err != nil {
		return nil, oops.Wrap(err)
	}
	if o.DictionaryWords, err = s.dictionaries.CountWords(ctx); err != nil {
		return nil, oops.Wrap(err)
	}

	minDate, maxDate, ok, err := s.messages.MinMaxDates(ctx)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	if ok {
		o.OldestMessage = &minDate
		o.NewestMessage = &maxDate
	}
	return o, nil
}

// HealthCheck pings storage, the remote source and, when configured, the
// cache.
func (s *Service) HealthCheck(ctx context.Context) *domain.Health {
	h := &domain.Health{}

	if _, err := s.messages.Count(ctx); err == nil {
		h.Storage = true
	} else {
		s.logger.Error("storage health check failed", slog.Any("error", err))
	}

	if err := s.remote.HealthCheck(ctx); err == nil {
		h.Remote = true
	} else {
		s.logger.Error("remote health check failed", slog.Any("error", err))
	}

	if s.cache != nil {
		ok := s.cache.Ping(ctx).Err() == nil
		h.Cache = &ok
	}
	return h
}
