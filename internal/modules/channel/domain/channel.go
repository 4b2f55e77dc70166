package domain

import "time"

// Channel is a monitored Telegram channel. Channels are created on first
// sighting of one of their messages and refreshed on every sync.
type Channel struct {
	ID         int64      `json:"id"`
	TelegramID string     `json:"telegram_id"`
	Name       string     `json:"name"`
	Username   *string    `json:"username,omitempty"`
	IsActive   bool       `json:"is_active"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
