package domain

import "time"

// Message is a single ingested channel message. (ChannelID,
// TelegramMessageID) is the dedup key: re-ingestion updates mutable fields
// but never overwrites TextNormalized once it has been computed.
type Message struct {
	ID                int64          `json:"id"`
	APIMessageID      int64          `json:"api_message_id"`
	TelegramMessageID int64          `json:"telegram_message_id"`
	ChannelID         int64          `json:"channel_id"`
	Text              *string        `json:"text,omitempty"`
	TextNormalized    *string        `json:"text_normalized,omitempty"`
	Date              time.Time      `json:"date"`
	Views             *int64         `json:"views,omitempty"`
	Forwards          *int64         `json:"forwards,omitempty"`
	ExtraData         map[string]any `json:"extra_data,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
