package domain

import "time"

// HourAll and SlotAll mark rollup buckets. A daily bucket carries both, an
// hourly bucket carries SlotAll only. The stored sentinel is -1 because the
// bucket key is a 4-column unique constraint and SQLite treats NULLs in a
// unique constraint as distinct.
const (
	HourAll = -1
	SlotAll = -1
)

// TimeSlot maps a minute of the hour to its 5-minute slot (0-11).
func TimeSlot(minute int) int {
	return minute / 5
}

// WordCount is one symbol with the number of distinct messages mentioning
// it.
type WordCount struct {
	ID    int64  `json:"id"`
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// NameCount is one industry with its distinct message count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CategoryCount is one dictionary category with its distinct message count.
type CategoryCount struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Bucket is one aggregated analytics row: a channel's activity within one
// 5-minute slot, hour or day, keyed by Tehran-local date/hour/slot.
type Bucket struct {
	ID            int64           `json:"id"`
	ChannelID     int64           `json:"channel_id"`
	Date          string          `json:"date"`
	Hour          int             `json:"hour"`
	TimeSlot      int             `json:"time_slot"`
	JalaliDate    string          `json:"jalali_date"`
	DayOfWeek     int             `json:"day_of_week"`
	MessageCount  int             `json:"message_count"`
	MatchCount    int             `json:"match_count"`
	TopSymbols    []WordCount     `json:"top_symbols,omitempty"`
	TopIndustries []NameCount     `json:"top_industries,omitempty"`
	TopCategories []CategoryCount `json:"top_categories,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AggregateStats reports one scheduled aggregation pass.
type AggregateStats struct {
	ChannelsProcessed int       `json:"channels_processed"`
	ChannelsWithData  int       `json:"channels_with_data"`
	RecordsCreated    int       `json:"records_created"`
	RecordsUpdated    int       `json:"records_updated"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
}

// BackfillStats reports a historical backfill run.
type BackfillStats struct {
	ChannelsProcessed   int       `json:"channels_processed"`
	TotalSlotsProcessed int       `json:"total_slots_processed"`
	RecordsCreated      int       `json:"records_created"`
	RecordsUpdated      int       `json:"records_updated"`
	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
}
