package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

// SQLiteRepository implements Repository over the shared database handle.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceForMessage(ctx context.Context, messageID int64, wordIDs []int64, matchedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Storage("matching.replace", err)
	}
	defer tx.Rollback()

	if err := replaceInTx(ctx, tx, messageID, wordIDs, matchedAt); err != nil {
		return apperrors.Storage("matching.replace", err)
	}
	return apperrors.Storage("matching.replace", tx.Commit())
}

// ReplaceForMessages replaces the edges of a whole batch with two
// statements: one delete over every affected message id, one multi-row
// insert of the new pairs.
func (r *SQLiteRepository) ReplaceForMessages(ctx context.Context, matches map[int64][]int64, matchedAt time.Time) error {
	if len(matches) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Storage("matching.replace_batch", err)
	}
	defer tx.Rollback()

	deleteArgs := make([]any, 0, len(matches))
	for messageID := range matches {
		deleteArgs = append(deleteArgs, messageID)
	}
	deleteQuery := `DELETE FROM message_words WHERE message_id IN (?` +
		strings.Repeat(", ?", len(deleteArgs)-1) + `)`
	if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return apperrors.Storage("matching.replace_batch", err)
	}

	var insertArgs []any
	for messageID, wordIDs := range matches {
		for _, wordID := range wordIDs {
			insertArgs = append(insertArgs, messageID, wordID, matchedAt.Unix())
		}
	}
	if len(insertArgs) > 0 {
		insertQuery := `INSERT OR IGNORE INTO message_words (message_id, word_id, matched_at) VALUES (?, ?, ?)` +
			strings.Repeat(", (?, ?, ?)", len(insertArgs)/3-1)
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
			return apperrors.Storage("matching.replace_batch", err)
		}
	}
	return apperrors.Storage("matching.replace_batch", tx.Commit())
}

func replaceInTx(ctx context.Context, tx *sql.Tx, messageID int64, wordIDs []int64, matchedAt time.Time) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM message_words WHERE message_id = ?`, messageID); err != nil {
		return err
	}
	for _, wordID := range wordIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO message_words (message_id, word_id, matched_at) VALUES (?, ?, ?)`,
			messageID, wordID, matchedAt.Unix(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) WordIDsForMessage(ctx context.Context, messageID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT word_id FROM message_words WHERE message_id = ? ORDER BY word_id`, messageID)
	if err != nil {
		return nil, apperrors.Storage("matching.word_ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Storage("matching.word_ids", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) CountEdges(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM message_words`).Scan(&count)
	return count, apperrors.Storage("matching.count", err)
}
