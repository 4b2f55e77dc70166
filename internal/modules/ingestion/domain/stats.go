package domain

import "time"

// BatchStats reports one ingestion batch.
type BatchStats struct {
	MessagesProcessed int     `json:"messages_processed"`
	MessagesInserted  int     `json:"messages_inserted"`
	MessagesUpdated   int     `json:"messages_updated"`
	MessagesSkipped   int     `json:"messages_skipped"`
	MessagesMatched   int     `json:"messages_matched"`
	ChannelsProcessed int     `json:"channels_processed"`
	Errors            int     `json:"errors"`
	DurationSeconds   float64 `json:"duration_seconds"`
}

// Add accumulates another batch into the receiver.
func (s *BatchStats) Add(other *BatchStats) {
	s.MessagesProcessed += other.MessagesProcessed
	s.MessagesInserted += other.MessagesInserted
	s.MessagesUpdated += other.MessagesUpdated
	s.MessagesSkipped += other.MessagesSkipped
	s.MessagesMatched += other.MessagesMatched
	s.ChannelsProcessed += other.ChannelsProcessed
	s.Errors += other.Errors
}

// Overview is the stored-data summary served by the stats endpoint.
type Overview struct {
	TotalMessages   int        `json:"total_messages"`
	TotalChannels   int        `json:"total_channels"`
	ActiveChannels  int        `json:"active_channels"`
	MessagesLast24h int        `json:"messages_last_24h"`
	OldestMessage   *time.Time `json:"oldest_message,omitempty"`
	NewestMessage   *time.Time `json:"newest_message,omitempty"`
	DictionaryWords int        `json:"dictionary_words"`
}

// Health reports component reachability. Cache is nil when Redis is not
// configured.
type Health struct {
	Storage bool  `json:"storage"`
	Remote  bool  `json:"remote"`
	Cache   *bool `json:"cache"`
}

// OK reports whether every configured component is reachable.
func (h *Health) OK() bool {
	if !h.Storage || !h.Remote {
		return false
	}
	return h.Cache == nil || *h.Cache
}
