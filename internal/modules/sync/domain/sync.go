//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

import "time"

// Direction of a sync pass.
// ENUM(forward,backward)
type Direction string

// Status is the outcome class of a sync request.
// ENUM(success,already_running,waiting)
type Status string

// State is the persisted cursor of one sync direction. One row exists per
// direction; IsRunning is a soft lock preventing concurrent passes.
type State struct {
	ID             int64      `json:"id"`
	Direction      Direction  `json:"direction"`
	CurrentOffset  int        `json:"current_offset"`
	TotalAvailable *int64     `json:"total_available,omitempty"`
	MessagesSynced int64      `json:"messages_synced"`
	IsRunning      bool       `json:"is_running"`
	IsCompleted    bool       `json:"is_completed"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastError      *string    `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Result reports one sync pass.
type Result struct {
	Status           Status    `json:"status"`
	Direction        Direction `json:"direction"`
	NewMessages      int64     `json:"new_messages"`
	UpdatedMessages  int64     `json:"updated_messages"`
	BatchesProcessed int       `json:"batches_processed"`
	CurrentOffset    int       `json:"current_offset"`
	TotalSynced      int64     `json:"total_synced"`
	IsCompleted      bool      `json:"is_completed"`
}

// AutoResult reports a combined forward-then-backward pass.
type AutoResult struct {
	Status           Status  `json:"status"`
	Forward          *Result `json:"forward"`
	Backward         *Result `json:"backward"`
	TotalNewMessages int64   `json:"total_new_messages"`
}

// DirectionState is the reported status of one direction.
type DirectionState struct {
	IsRunning      bool       `json:"is_running"`
	IsCompleted    bool       `json:"is_completed"`
	MessagesSynced int64      `json:"messages_synced"`
	CurrentOffset  int        `json:"current_offset"`
	LastSyncAt     *time.Time `json:"last_sync,omitempty"`
	LastError      *string    `json:"last_error,omitempty"`
}

// StatusReport is the full sync status across both directions.
type StatusReport struct {
	Forward  DirectionState `json:"forward"`
	Backward DirectionState `json:"backward"`
}
