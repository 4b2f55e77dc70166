package messageapi

import (
	"strings"
	"time"

	"github.com/samber/oops"
)

// ChannelInfo identifies the source channel of a remote message.
type ChannelInfo struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Username *string `json:"username,omitempty"`
}

// RemoteMessage is one message as served by the upstream API.
type RemoteMessage struct {
	ID            int64       `json:"id"`
	MessageID     int64       `json:"message_id"`
	Channel       ChannelInfo `json:"channel"`
	Text          *string     `json:"text,omitempty"`
	Date          time.Time   `json:"date"`
	JalaliDate    *string     `json:"jalali_date,omitempty"`
	ViewsCount    *int64      `json:"views_count,omitempty"`
	ForwardsCount *int64      `json:"forwards_count,omitempty"`
	RepliesCount  *int64      `json:"replies_count,omitempty"`
}

// PageResponse is one page of the upstream message listing.
type PageResponse struct {
	Limit    *int            `json:"limit,omitempty"`
	Offset   *int            `json:"offset,omitempty"`
	Total    int64           `json:"total"`
	Messages []RemoteMessage `json:"messages"`
}

// Validate normalizes and checks one remote message in place. Channel
// names are trimmed, usernames lose a leading @, and blank text becomes
// absent text.
func (m *RemoteMessage) Validate() error {
	if m.MessageID <= 0 {
		return oops.With("message_id", m.MessageID).Errorf("message_id must be positive")
	}

	m.Channel.Name = strings.TrimSpace(m.Channel.Name)
	if m.Channel.Name == "" {
		return oops.With("message_id", m.MessageID).Errorf("channel name is empty")
	}
	if m.Channel.Username != nil {
		username := strings.TrimSpace(strings.TrimPrefix(*m.Channel.Username, "@"))
		if username == "" {
			m.Channel.Username = nil
		} else {
			m.Channel.Username = &username
		}
	}

	if m.Text != nil && strings.TrimSpace(*m.Text) == "" {
		m.Text = nil
	}
	return nil
}
