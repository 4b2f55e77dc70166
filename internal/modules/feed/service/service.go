package service

import (
	"context"
	"fmt"

	"github.com/gorilla/feeds"
	"github.com/samber/oops"

	channelRepo "github.com/reshetovitsme/telegram-pulse/internal/modules/channel/repository"
	"github.com/reshetovitsme/telegram-pulse/internal/modules/message/domain"
	messageRepo "github.com/reshetovitsme/telegram-pulse/internal/modules/message/repository"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/persian"
)

// feedSize is how many matched messages each feed carries.
const feedSize = 50

// Service generates RSS feeds of a channel's matched messages.
type Service struct {
	channelRepo channelRepo.Repository
	messageRepo messageRepo.Repository
}

// New creates a new feed service
func New(channelRepo channelRepo.Repository, messageRepo messageRepo.Repository) *Service {
	return &Service{
		channelRepo: channelRepo,
		messageRepo: messageRepo,
	}
}

// GenerateFeed builds the RSS feed of a channel's most recent messages that
// matched at least one dictionary word.
func (s *Service) GenerateFeed(ctx context.Context, channelID int64, baseURL string) (*feeds.Feed, error) {
	channel, err := s.channelRepo.Get(ctx, channelID)
	if err != nil {
		return nil, oops.With("channel_id", channelID, "context", "channel not found").Wrap(err)
	}

	messages, err := s.messageRepo.RecentMatched(ctx, channelID, feedSize)
	if err != nil {
		return nil, oops.With("channel_id", channelID, "context", "failed to get messages").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - Matched Messages", channel.Name),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/rss/%d", baseURL, channel.ID)},
		Description: fmt.Sprintf("Dictionary-matched messages from Telegram channel: %s", channel.Name),
		Created:     channel.CreatedAt,
		Updated:     channel.UpdatedAt,
	}
	if channel.Username != nil {
		feed.Author = &feeds.Author{Name: *channel.Username}
	}

	var items []*feeds.Item
	for _, msg := range messages {
		items = append(items, s.messageToFeedItem(msg, channel.Username))
	}
	feed.Items = items
	return feed, nil
}

func (s *Service) messageToFeedItem(msg *domain.Message, username *string) *feeds.Item {
	var text string
	if msg.Text != nil {
		// Strip URLs, mentions and contact noise from the feed body.
		if cleaned, ok := persian.Clean(*msg.Text); ok {
			text = cleaned
		} else {
			text = *msg.Text
		}
	}
	if text == "" {
		text = "No text content"
	}

	item := &feeds.Item{
		Title:       truncate(text, 100),
		Description: text,
		Content:     fmt.Sprintf("<p>%s</p>", escapeHTML(text)),
		Created:     msg.Date,
		Id:          fmt.Sprintf("%d-%d", msg.ChannelID, msg.TelegramMessageID),
	}
	if username != nil {
		item.Link = &feeds.Link{Href: fmt.Sprintf("https://t.me/%s/%d", *username, msg.TelegramMessageID)}
		item.Author = &feeds.Author{Name: *username}
	}
	if msg.Views != nil {
		item.Description = fmt.Sprintf("%s\n\nViews: %d", item.Description, *msg.Views)
	}
	return item
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

func escapeHTML(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '<':
			result = append(result, []rune("&lt;")...)
		case '>':
			result = append(result, []rune("&gt;")...)
		case '&':
			result = append(result, []rune("&amp;")...)
		case '"':
			result = append(result, []rune("&quot;")...)
		case '\'':
			result = append(result, []rune("&#39;")...)
		default:
			result = append(result, r)
		}
	}
	return string(result)
}
