package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/channel/domain"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

// SQLiteRepository implements Repository over the shared database handle.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed channel repository.
func NewSQLite(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const channelColumns = `id, telegram_id, name, username, is_active, last_sync_at, created_at, updated_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, ch *domain.Channel) (bool, error) {
	now := time.Now().UTC()
	existing, err := r.GetByTelegramID(ctx, ch.TelegramID)
	if err != nil && !errors.Is(err, apperrors.ErrChannelNotFound) {
		return false, err
	}

	if existing != nil {
		_, err := r.db.ExecContext(ctx,
			`UPDATE channels SET name=?, username=?, last_sync_at=?, updated_at=? WHERE id=?`,
			ch.Name, nullString(ch.Username), nullTime(ch.LastSyncAt), now.Unix(), existing.ID,
		)
		if err != nil {
			return false, apperrors.Storage("channel.update", err)
		}
		ch.ID = existing.ID
		ch.IsActive = existing.IsActive
		ch.CreatedAt = existing.CreatedAt
		ch.UpdatedAt = now
		return false, nil
	}

	ch.IsActive = true
	ch.CreatedAt = now
	ch.UpdatedAt = now
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO channels (telegram_id, name, username, is_active, last_sync_at, created_at, updated_at)
		 VALUES (?, ?, ?, 1, ?, ?, ?)`,
		ch.TelegramID, ch.Name, nullString(ch.Username), nullTime(ch.LastSyncAt), now.Unix(), now.Unix(),
	)
	if err != nil {
		return false, apperrors.Storage("channel.insert", err)
	}
	ch.ID, err = res.LastInsertId()
	if err != nil {
		return false, apperrors.Storage("channel.insert", err)
	}
	return true, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*domain.Channel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	return scanChannel(row)
}

func (r *SQLiteRepository) GetByTelegramID(ctx context.Context, telegramID string) (*domain.Channel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE telegram_id = ?`, telegramID)
	return scanChannel(row)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*domain.Channel, error) {
	return r.list(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY id`)
}

func (r *SQLiteRepository) ListActive(ctx context.Context) ([]*domain.Channel, error) {
	return r.list(ctx, `SELECT `+channelColumns+` FROM channels WHERE is_active = 1 ORDER BY id`)
}

func (r *SQLiteRepository) list(ctx context.Context, query string) ([]*domain.Channel, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Storage("channel.list", err)
	}
	defer rows.Close()

	var channels []*domain.Channel
	for rows.Next() {
		ch, err := scanChannelRows(rows)
		if err != nil {
			return nil, apperrors.Storage("channel.list", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *SQLiteRepository) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE channels SET is_active=?, updated_at=? WHERE id=?`,
		boolToInt(active), time.Now().UTC().Unix(), id,
	)
	return apperrors.Storage("channel.set_active", err)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	return apperrors.Storage("channel.delete", err)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&count)
	return count, apperrors.Storage("channel.count", err)
}

func (r *SQLiteRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels WHERE is_active = 1`).Scan(&count)
	return count, apperrors.Storage("channel.count_active", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row *sql.Row) (*domain.Channel, error) {
	ch, err := scanChannelRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrChannelNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("channel.get", err)
	}
	return ch, nil
}

func scanChannelRows(row rowScanner) (*domain.Channel, error) {
	var (
		ch        domain.Channel
		username  sql.NullString
		isActive  int
		lastSync  sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&ch.ID, &ch.TelegramID, &ch.Name, &username, &isActive, &lastSync, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if username.Valid {
		ch.Username = &username.String
	}
	ch.IsActive = isActive != 0
	if lastSync.Valid {
		t := time.Unix(lastSync.Int64, 0).UTC()
		ch.LastSyncAt = &t
	}
	ch.CreatedAt = time.Unix(createdAt, 0).UTC()
	ch.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &ch, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
