package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/message/domain"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

// SQLiteRepository implements Repository over the shared database handle.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed message repository.
func NewSQLite(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const messageColumns = `id, api_message_id, telegram_message_id, channel_id, text, text_normalized, date, views, forwards, extra_data, created_at, updated_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, m *domain.Message) (bool, error) {
	now := time.Now().UTC()
	extra, err := marshalExtra(m.ExtraData)
	if err != nil {
		return false, apperrors.Storage("message.upsert", err)
	}

	var existingID int64
	var existingNormalized sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT id, text_normalized FROM messages WHERE channel_id = ? AND telegram_message_id = ?`,
		m.ChannelID, m.TelegramMessageID,
	).Scan(&existingID, &existingNormalized)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		m.CreatedAt = now
		m.UpdatedAt = now
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO messages (api_message_id, telegram_message_id, channel_id, text, text_normalized, date, views, forwards, extra_data, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.APIMessageID, m.TelegramMessageID, m.ChannelID,
			nullString(m.Text), nullString(m.TextNormalized), m.Date.Unix(),
			nullInt(m.Views), nullInt(m.Forwards), extra, now.Unix(), now.Unix(),
		)
		if err != nil {
			return false, apperrors.Storage("message.insert", err)
		}
		m.ID, err = res.LastInsertId()
		if err != nil {
			return false, apperrors.Storage("message.insert", err)
		}
		return true, nil

	case err != nil:
		return false, apperrors.Storage("message.upsert", err)

	default:
		// text_normalized is deliberately absent from the update set.
		_, err := r.db.ExecContext(ctx,
			`UPDATE messages SET api_message_id=?, text=?, date=?, views=?, forwards=?, extra_data=?, updated_at=? WHERE id=?`,
			m.APIMessageID, nullString(m.Text), m.Date.Unix(),
			nullInt(m.Views), nullInt(m.Forwards), extra, now.Unix(), existingID,
		)
		if err != nil {
			return false, apperrors.Storage("message.update", err)
		}
		m.ID = existingID
		if existingNormalized.Valid {
			m.TextNormalized = &existingNormalized.String
		}
		m.UpdatedAt = now
		return false, nil
	}
}

func (r *SQLiteRepository) Exists(ctx context.Context, channelID, telegramMessageID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM messages WHERE channel_id = ? AND telegram_message_id = ?`,
		channelID, telegramMessageID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, apperrors.Storage("message.exists", err)
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("message.get", err)
	}
	return m, nil
}

func (r *SQLiteRepository) ListMissingNormalized(ctx context.Context, limit int) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE text IS NOT NULL AND text_normalized IS NULL
		 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.Storage("message.list_missing_normalized", err)
	}
	return collectMessages(rows, "message.list_missing_normalized")
}

func (r *SQLiteRepository) SetNormalized(ctx context.Context, id int64, normalized string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET text_normalized=?, updated_at=? WHERE id=?`,
		normalized, time.Now().UTC().Unix(), id,
	)
	return apperrors.Storage("message.set_normalized", err)
}

func (r *SQLiteRepository) CountInWindow(ctx context.Context, channelID int64, start, end time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE channel_id = ? AND date >= ? AND date < ?`,
		channelID, start.Unix(), end.Unix(),
	).Scan(&count)
	return count, apperrors.Storage("message.count_in_window", err)
}

func (r *SQLiteRepository) MinMaxDates(ctx context.Context) (time.Time, time.Time, bool, error) {
	var minDate, maxDate sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MIN(date), MAX(date) FROM messages`).Scan(&minDate, &maxDate)
	if err != nil {
		return time.Time{}, time.Time{}, false, apperrors.Storage("message.min_max_dates", err)
	}
	if !minDate.Valid || !maxDate.Valid {
		return time.Time{}, time.Time{}, false, nil
	}
	return time.Unix(minDate.Int64, 0).UTC(), time.Unix(maxDate.Int64, 0).UTC(), true, nil
}

func (r *SQLiteRepository) RecentMatched(ctx context.Context, channelID int64, limit int) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE channel_id = ? AND id IN (SELECT DISTINCT message_id FROM message_words)
		 ORDER BY date DESC LIMIT ?`, channelID, limit)
	if err != nil {
		return nil, apperrors.Storage("message.recent_matched", err)
	}
	return collectMessages(rows, "message.recent_matched")
}

func (r *SQLiteRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE date < ?`, cutoff.Unix())
	if err != nil {
		return 0, apperrors.Storage("message.delete_older_than", err)
	}
	deleted, err := res.RowsAffected()
	return deleted, apperrors.Storage("message.delete_older_than", err)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, apperrors.Storage("message.count", err)
}

func (r *SQLiteRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE date >= ?`, since.Unix()).Scan(&count)
	return count, apperrors.Storage("message.count_since", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func collectMessages(rows *sql.Rows, op string) ([]*domain.Message, error) {
	defer rows.Close()
	var messages []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, apperrors.Storage(op, err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var (
		m          domain.Message
		text       sql.NullString
		normalized sql.NullString
		date       int64
		views      sql.NullInt64
		forwards   sql.NullInt64
		extra      sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&m.ID, &m.APIMessageID, &m.TelegramMessageID, &m.ChannelID,
		&text, &normalized, &date, &views, &forwards, &extra, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if text.Valid {
		m.Text = &text.String
	}
	if normalized.Valid {
		m.TextNormalized = &normalized.String
	}
	m.Date = time.Unix(date, 0).UTC()
	if views.Valid {
		m.Views = &views.Int64
	}
	if forwards.Valid {
		m.Forwards = &forwards.Int64
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &m.ExtraData); err != nil {
			return nil, err
		}
	}
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &m, nil
}

func marshalExtra(extra map[string]any) (sql.NullString, error) {
	if len(extra) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
