package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/analytics/domain"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

// symbolsCategory is the dictionary category whose words are ranked as
// symbols.
const symbolsCategory = "نمادها"

// SQLiteRepository implements Repository over the shared database handle.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) UpsertBucket(ctx context.Context, b *domain.Bucket) (bool, error) {
	created, err := upsertBucket(ctx, r.db, b)
	if err != nil {
		return false, apperrors.Storage("analytics.upsert", err)
	}
	return created, nil
}

func (r *SQLiteRepository) UpsertBuckets(ctx context.Context, buckets []*domain.Bucket) (int, int, error) {
	if len(buckets) == 0 {
		return 0, 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, apperrors.Storage("analytics.upsert_batch", err)
	}
	defer tx.Rollback()

	var created, updated int
	for _, b := range buckets {
		isNew, err := upsertBucket(ctx, tx, b)
		if err != nil {
			return created, updated, apperrors.Storage("analytics.upsert_batch", err)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return created, updated, apperrors.Storage("analytics.upsert_batch", err)
	}
	return created, updated, nil
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsertBucket(ctx context.Context, q execQuerier, b *domain.Bucket) (bool, error) {
	symbols, err := marshalJSON(b.TopSymbols)
	if err != nil {
		return false, err
	}
	industries, err := marshalJSON(b.TopIndustries)
	if err != nil {
		return false, err
	}
	categories, err := marshalJSON(b.TopCategories)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	var existingID int64
	err = q.QueryRowContext(ctx,
		`SELECT id FROM channel_analytics WHERE channel_id=? AND date=? AND hour=? AND time_slot=?`,
		b.ChannelID, b.Date, b.Hour, b.TimeSlot,
	).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		b.CreatedAt = now
		b.UpdatedAt = now
		res, err := q.ExecContext(ctx,
			`INSERT INTO channel_analytics (channel_id, date, hour, time_slot, jalali_date, day_of_week,
			 message_count, match_count, top_symbols, top_industries, top_categories, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ChannelID, b.Date, b.Hour, b.TimeSlot, b.JalaliDate, b.DayOfWeek,
			b.MessageCount, b.MatchCount, symbols, industries, categories, now.Unix(), now.Unix(),
		)
		if err != nil {
			return false, err
		}
		b.ID, err = res.LastInsertId()
		return true, err

	case err != nil:
		return false, err

	default:
		b.ID = existingID
		b.UpdatedAt = now
		_, err := q.ExecContext(ctx,
			`UPDATE channel_analytics SET jalali_date=?, day_of_week=?, message_count=?, match_count=?,
			 top_symbols=?, top_industries=?, top_categories=?, updated_at=? WHERE id=?`,
			b.JalaliDate, b.DayOfWeek, b.MessageCount, b.MatchCount,
			symbols, industries, categories, now.Unix(), existingID,
		)
		return false, err
	}
}

func (r *SQLiteRepository) GetBucket(ctx context.Context, channelID int64, date string, hour, timeSlot int) (*domain.Bucket, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, channel_id, date, hour, time_slot, jalali_date, day_of_week,
		 message_count, match_count, top_symbols, top_industries, top_categories, created_at, updated_at
		 FROM channel_analytics WHERE channel_id=? AND date=? AND hour=? AND time_slot=?`,
		channelID, date, hour, timeSlot,
	)

	var (
		b          domain.Bucket
		jalaliDate sql.NullString
		symbols    sql.NullString
		industries sql.NullString
		categories sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(&b.ID, &b.ChannelID, &b.Date, &b.Hour, &b.TimeSlot, &jalaliDate, &b.DayOfWeek,
		&b.MessageCount, &b.MatchCount, &symbols, &industries, &categories, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("analytics.get", err)
	}

	b.JalaliDate = jalaliDate.String
	if err := unmarshalJSON(symbols, &b.TopSymbols); err != nil {
		return nil, apperrors.Storage("analytics.get", err)
	}
	if err := unmarshalJSON(industries, &b.TopIndustries); err != nil {
		return nil, apperrors.Storage("analytics.get", err)
	}
	if err := unmarshalJSON(categories, &b.TopCategories); err != nil {
		return nil, apperrors.Storage("analytics.get", err)
	}
	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	b.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &b, nil
}

func (r *SQLiteRepository) CountBuckets(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channel_analytics`).Scan(&count)
	return count, apperrors.Storage("analytics.count", err)
}

func (r *SQLiteRepository) MatchedMessageCount(ctx context.Context, channelID int64, start, end time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT mw.message_id)
		 FROM message_words mw
		 JOIN messages m ON m.id = mw.message_id
		 WHERE m.channel_id = ? AND m.date >= ? AND m.date < ?`,
		channelID, start.Unix(), end.Unix(),
	).Scan(&count)
	return count, apperrors.Storage("analytics.matched_count", err)
}

func (r *SQLiteRepository) TopSymbols(ctx context.Context, channelID int64, start, end time.Time, limit int) ([]domain.WordCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.id, w.word, COUNT(DISTINCT mw.message_id) AS cnt
		 FROM message_words mw
		 JOIN messages m ON m.id = mw.message_id
		 JOIN dictionary_words w ON w.id = mw.word_id
		 JOIN dictionary_categories c ON c.id = w.category_id
		 WHERE m.channel_id = ? AND m.date >= ? AND m.date < ? AND c.name = ?
		 GROUP BY w.id, w.word
		 ORDER BY cnt DESC
		 LIMIT ?`,
		channelID, start.Unix(), end.Unix(), symbolsCategory, limit,
	)
	if err != nil {
		return nil, apperrors.Storage("analytics.top_symbols", err)
	}
	defer rows.Close()

	var result []domain.WordCount
	for rows.Next() {
		var wc domain.WordCount
		if err := rows.Scan(&wc.ID, &wc.Word, &wc.Count); err != nil {
			return nil, apperrors.Storage("analytics.top_symbols", err)
		}
		result = append(result, wc)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) TopIndustries(ctx context.Context, channelID int64, start, end time.Time, limit int) ([]domain.NameCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT json_extract(w.extra_data, '$.industry_name') AS industry, COUNT(DISTINCT mw.message_id) AS cnt
		 FROM message_words mw
		 JOIN messages m ON m.id = mw.message_id
		 JOIN dictionary_words w ON w.id = mw.word_id
		 WHERE m.channel_id = ? AND m.date >= ? AND m.date < ?
		   AND json_extract(w.extra_data, '$.industry_name') IS NOT NULL
		 GROUP BY industry
		 ORDER BY cnt DESC
		 LIMIT ?`,
		channelID, start.Unix(), end.Unix(), limit,
	)
	if err != nil {
		return nil, apperrors.Storage("analytics.top_industries", err)
	}
	defer rows.Close()

	var result []domain.NameCount
	for rows.Next() {
		var nc domain.NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, apperrors.Storage("analytics.top_industries", err)
		}
		result = append(result, nc)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) TopCategories(ctx context.Context, channelID int64, start, end time.Time, limit int) ([]domain.CategoryCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, COUNT(DISTINCT mw.message_id) AS cnt
		 FROM message_words mw
		 JOIN messages m ON m.id = mw.message_id
		 JOIN dictionary_words w ON w.id = mw.word_id
		 JOIN dictionary_categories c ON c.id = w.category_id
		 WHERE m.channel_id = ? AND m.date >= ? AND m.date < ?
		 GROUP BY c.id, c.name
		 ORDER BY cnt DESC
		 LIMIT ?`,
		channelID, start.Unix(), end.Unix(), limit,
	)
	if err != nil {
		return nil, apperrors.Storage("analytics.top_categories", err)
	}
	defer rows.Close()

	var result []domain.CategoryCount
	for rows.Next() {
		var cc domain.CategoryCount
		if err := rows.Scan(&cc.ID, &cc.Name, &cc.Count); err != nil {
			return nil, apperrors.Storage("analytics.top_categories", err)
		}
		result = append(result, cc)
	}
	return result, rows.Err()
}

func marshalJSON[T any](list []T) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalJSON(src sql.NullString, dst any) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}
