package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/sync/domain"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

// SQLiteRepository implements Repository over the shared database handle.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const stateColumns = `id, direction, current_offset, total_available, messages_synced,
	is_running, is_completed, last_sync_at, last_error, created_at, updated_at`

func (r *SQLiteRepository) GetOrCreate(ctx context.Context, direction domain.Direction) (*domain.State, error) {
	state, err := r.get(ctx, direction)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Storage("sync.get", err)
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_states (direction, current_offset, messages_synced, is_running, is_completed, created_at, updated_at)
		 VALUES (?, 0, 0, 0, 0, ?, ?)`,
		direction.String(), now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, apperrors.Storage("sync.create", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.Storage("sync.create", err)
	}
	return &domain.State{
		ID:        id,
		Direction: direction,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *SQLiteRepository) get(ctx context.Context, direction domain.Direction) (*domain.State, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM sync_states WHERE direction = ?`, direction.String())

	var (
		s              domain.State
		directionValue string
		totalAvailable sql.NullInt64
		isRunning      int
		isCompleted    int
		lastSyncAt     sql.NullInt64
		lastError      sql.NullString
		createdAt      int64
		updatedAt      int64
	)
	err := row.Scan(&s.ID, &directionValue, &s.CurrentOffset, &totalAvailable, &s.MessagesSynced,
		&isRunning, &isCompleted, &lastSyncAt, &lastError, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	s.Direction = domain.Direction(directionValue)
	if totalAvailable.Valid {
		s.TotalAvailable = &totalAvailable.Int64
	}
	s.IsRunning = isRunning != 0
	s.IsCompleted = isCompleted != 0
	if lastSyncAt.Valid {
		t := time.Unix(lastSyncAt.Int64, 0).UTC()
		s.LastSyncAt = &t
	}
	if lastError.Valid {
		s.LastError = &lastError.String
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &s, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, state *domain.State) error {
	state.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_states SET current_offset=?, total_available=?, messages_synced=?,
		 is_running=?, is_completed=?, last_sync_at=?, last_error=?, updated_at=?
		 WHERE id=?`,
		state.CurrentOffset, nullInt(state.TotalAvailable), state.MessagesSynced,
		boolToInt(state.IsRunning), boolToInt(state.IsCompleted),
		nullTime(state.LastSyncAt), nullString(state.LastError), state.UpdatedAt.Unix(),
		state.ID,
	)
	return apperrors.Storage("sync.update", err)
}

func (r *SQLiteRepository) Reset(ctx context.Context, direction domain.Direction) error {
	query := `UPDATE sync_states SET current_offset=0, messages_synced=0, is_running=0,
		 is_completed=0, last_error=NULL, updated_at=?`
	args := []any{time.Now().UTC().Unix()}
	if direction != "" {
		query += ` WHERE direction=?`
		args = append(args, direction.String())
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return apperrors.Storage("sync.reset", err)
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
