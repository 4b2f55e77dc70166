package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	chandomain "github.com/reshetovitsme/telegram-pulse/internal/modules/channel/domain"
	chanrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/channel/repository"
	msgdomain "github.com/reshetovitsme/telegram-pulse/internal/modules/message/domain"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/persian"
	"github.com/reshetovitsme/telegram-pulse/internal/transport/messageapi"
)

// Mapper converts remote messages into stored entities. Channel lookups are
// cached per run so a batch from one channel costs a single query.
type Mapper struct {
	channels chanrepo.Repository
	logger   *slog.Logger

	channelCache map[string]int64
}

func NewMapper(channels chanrepo.Repository, logger *slog.Logger) *Mapper {
	return &Mapper{
		channels:     channels,
		logger:       logger,
		channelCache: make(map[string]int64),
	}
}

// MapMessage validates and converts one remote message. The message date
// prefers the Jalali timestamp when present and parseable, falling back to
// the ISO date otherwise.
func (m *Mapper) MapMessage(ctx context.Context, remote *messageapi.RemoteMessage) (*msgdomain.Message, error) {
	if err := remote.Validate(); err != nil {
		return nil, &apperrors.MappingError{
			Source: "remote message",
			Target: "message",
			Reason: "validation failed",
			Err:    err,
		}
	}

	channelID, err := m.getOrCreateChannel(ctx, &remote.Channel)
	if err != nil {
		return nil, &apperrors.MappingError{
			Source: "remote message",
			Target: "message",
			Reason: "channel resolution failed",
			Err:    err,
		}
	}

	date := remote.Date
	if remote.JalaliDate != nil {
		if parsed, err := persian.ParseJalali(*remote.JalaliDate); err == nil {
			date = parsed
		} else {
			m.logger.Warn("unparseable jalali date, falling back to ISO date",
				slog.Int64("message_id", remote.MessageID),
				slog.String("jalali_date", *remote.JalaliDate),
			)
		}
	}

	var extra map[string]any
	if remote.JalaliDate != nil || remote.RepliesCount != nil {
		extra = make(map[string]any, 2)
		if remote.JalaliDate != nil {
			extra["jalali_date"] = *remote.JalaliDate
		}
		if remote.RepliesCount != nil {
			extra["replies_count"] = *remote.RepliesCount
		}
	}

	return &msgdomain.Message{
		APIMessageID:      remote.ID,
		TelegramMessageID: remote.MessageID,
		ChannelID:         channelID,
		Text:              remote.Text,
		Date:              date.UTC(),
		Views:             remote.ViewsCount,
		Forwards:          remote.ForwardsCount,
		ExtraData:         extra,
	}, nil
}

// ChannelsSeen reports how many distinct channels this run has resolved.
func (m *Mapper) ChannelsSeen() int {
	return len(m.channelCache)
}

// ClearCache drops the per-run channel cache.
func (m *Mapper) ClearCache() {
	m.channelCache = make(map[string]int64)
}

func (m *Mapper) getOrCreateChannel(ctx context.Context, info *messageapi.ChannelInfo) (int64, error) {
	telegramID := strconv.FormatInt(info.ID, 10)
	if id, ok := m.channelCache[telegramID]; ok {
		return id, nil
	}

	now := time.Now().UTC()
	ch := &chandomain.Channel{
		TelegramID: telegramID,
		Name:       info.Name,
		Username:   info.Username,
		IsActive:   true,
		LastSyncAt: &now,
	}
	created, err := m.channels.Upsert(ctx, ch)
	if err != nil {
		return 0, err
	}
	if created {
		m.logger.Info("new channel discovered",
			slog.String("telegram_id", telegramID),
			slog.String("name", info.Name),
		)
	}

	m.channelCache[telegramID] = ch.ID
	return ch.ID, nil
}
