package repository

import (
	"context"
	"time"
)

// Repository persists message-to-word match edges.
type Repository interface {
	// ReplaceForMessage atomically swaps the edge set of one message.
	// An empty word list clears any previously stored edges.
	ReplaceForMessage(ctx context.Context, messageID int64, wordIDs []int64, matchedAt time.Time) error

	// ReplaceForMessages swaps the edge sets of many messages in one
	// transaction. Messages mapped to an empty list are cleared.
	ReplaceForMessages(ctx context.Context, matches map[int64][]int64, matchedAt time.Time) error

	WordIDsForMessage(ctx context.Context, messageID int64) ([]int64, error)
	CountEdges(ctx context.Context) (int64, error)
}
