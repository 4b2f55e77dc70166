package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/domain"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
)

// SQLiteRepository implements Repository over the shared database handle.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed dictionary repository.
func NewSQLite(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateDictionary(ctx context.Context, d *domain.Dictionary) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO dictionaries (name, description, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		d.Name, nullString(d.Description), boolToInt(d.IsActive), now.Unix(), now.Unix(),
	)
	if err != nil {
		return apperrors.Storage("dictionary.create", err)
	}
	d.ID, err = res.LastInsertId()
	return apperrors.Storage("dictionary.create", err)
}

func (r *SQLiteRepository) GetDictionary(ctx context.Context, id int64) (*domain.Dictionary, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, is_active, created_at, updated_at FROM dictionaries WHERE id = ?`, id)
	var (
		d           domain.Dictionary
		description sql.NullString
		isActive    int
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(&d.ID, &d.Name, &description, &isActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("dictionary.get", err)
	}
	if description.Valid {
		d.Description = &description.String
	}
	d.IsActive = isActive != 0
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	d.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &d, nil
}

func (r *SQLiteRepository) ListDictionaries(ctx context.Context) ([]*domain.Dictionary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, is_active, created_at, updated_at FROM dictionaries ORDER BY id`)
	if err != nil {
		return nil, apperrors.Storage("dictionary.list", err)
	}
	defer rows.Close()

	var dictionaries []*domain.Dictionary
	for rows.Next() {
		var (
			d           domain.Dictionary
			description sql.NullString
			isActive    int
			createdAt   int64
			updatedAt   int64
		)
		if err := rows.Scan(&d.ID, &d.Name, &description, &isActive, &createdAt, &updatedAt); err != nil {
			return nil, apperrors.Storage("dictionary.list", err)
		}
		if description.Valid {
			d.Description = &description.String
		}
		d.IsActive = isActive != 0
		d.CreatedAt = time.Unix(createdAt, 0).UTC()
		d.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		dictionaries = append(dictionaries, &d)
	}
	return dictionaries, rows.Err()
}

func (r *SQLiteRepository) UpdateDictionary(ctx context.Context, d *domain.Dictionary) error {
	d.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE dictionaries SET name=?, description=?, is_active=?, updated_at=? WHERE id=?`,
		d.Name, nullString(d.Description), boolToInt(d.IsActive), d.UpdatedAt.Unix(), d.ID,
	)
	return apperrors.Storage("dictionary.update", err)
}

func (r *SQLiteRepository) DeleteDictionary(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dictionaries WHERE id = ?`, id)
	return apperrors.Storage("dictionary.delete", err)
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *domain.Category) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO dictionary_categories (dictionary_id, parent_id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.DictionaryID, nullInt(c.ParentID), c.Name, nullString(c.Description), now.Unix(), now.Unix(),
	)
	if err != nil {
		return apperrors.Storage("category.create", err)
	}
	c.ID, err = res.LastInsertId()
	return apperrors.Storage("category.create", err)
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, dictionary_id, parent_id, name, description, created_at, updated_at
		 FROM dictionary_categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("category.get", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, dictionaryID int64) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, dictionary_id, parent_id, name, description, created_at, updated_at
		 FROM dictionary_categories WHERE dictionary_id = ? ORDER BY id`, dictionaryID)
	if err != nil {
		return nil, apperrors.Storage("category.list", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, apperrors.Storage("category.list", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dictionary_categories WHERE id = ?`, id)
	return apperrors.Storage("category.delete", err)
}

const wordColumns = `id, category_id, word, normalized_word, is_active, extra_data, created_at, updated_at`

func (r *SQLiteRepository) CreateWord(ctx context.Context, w *domain.Word) error {
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	extra, err := marshalExtra(w.ExtraData)
	if err != nil {
		return apperrors.Storage("word.create", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO dictionary_words (category_id, word, normalized_word, is_active, extra_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.CategoryID, w.Word, w.NormalizedWord, boolToInt(w.IsActive), extra, now.Unix(), now.Unix(),
	)
	if err != nil {
		return apperrors.Storage("word.create", err)
	}
	w.ID, err = res.LastInsertId()
	return apperrors.Storage("word.create", err)
}

func (r *SQLiteRepository) GetWord(ctx context.Context, id int64) (*domain.Word, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+wordColumns+` FROM dictionary_words WHERE id = ?`, id)
	w, err := scanWord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("word.get", err)
	}
	return w, nil
}

func (r *SQLiteRepository) ListWords(ctx context.Context, categoryID int64) ([]*domain.Word, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+wordColumns+` FROM dictionary_words WHERE category_id = ? ORDER BY id`, categoryID)
	if err != nil {
		return nil, apperrors.Storage("word.list", err)
	}
	return collectWords(rows, "word.list")
}

func (r *SQLiteRepository) UpdateWord(ctx context.Context, w *domain.Word) error {
	w.UpdatedAt = time.Now().UTC()
	extra, err := marshalExtra(w.ExtraData)
	if err != nil {
		return apperrors.Storage("word.update", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE dictionary_words SET category_id=?, word=?, normalized_word=?, is_active=?, extra_data=?, updated_at=? WHERE id=?`,
		w.CategoryID, w.Word, w.NormalizedWord, boolToInt(w.IsActive), extra, w.UpdatedAt.Unix(), w.ID,
	)
	return apperrors.Storage("word.update", err)
}

func (r *SQLiteRepository) DeleteWord(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dictionary_words WHERE id = ?`, id)
	return apperrors.Storage("word.delete", err)
}

func (r *SQLiteRepository) ActiveWords(ctx context.Context) ([]*domain.Word, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.id, w.category_id, w.word, w.normalized_word, w.is_active, w.extra_data, w.created_at, w.updated_at
		 FROM dictionary_words w
		 JOIN dictionary_categories c ON c.id = w.category_id
		 JOIN dictionaries d ON d.id = c.dictionary_id
		 WHERE w.is_active = 1 AND d.is_active = 1`)
	if err != nil {
		return nil, apperrors.Storage("word.active", err)
	}
	return collectWords(rows, "word.active")
}

func (r *SQLiteRepository) CountWords(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dictionary_words`).Scan(&count)
	return count, apperrors.Storage("word.count", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var (
		c           domain.Category
		parentID    sql.NullInt64
		description sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&c.ID, &c.DictionaryID, &parentID, &c.Name, &description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	if description.Valid {
		c.Description = &description.String
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &c, nil
}

func collectWords(rows *sql.Rows, op string) ([]*domain.Word, error) {
	defer rows.Close()
	var words []*domain.Word
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, apperrors.Storage(op, err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

func scanWord(row rowScanner) (*domain.Word, error) {
	var (
		w         domain.Word
		isActive  int
		extra     sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&w.ID, &w.CategoryID, &w.Word, &w.NormalizedWord, &isActive, &extra, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	w.IsActive = isActive != 0
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &w.ExtraData); err != nil {
			return nil, err
		}
	}
	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	w.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &w, nil
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

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
