package repository

import (
	"context"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/domain"
)

// Repository defines the interface for dictionary persistence.
type Repository interface {
	CreateDictionary(ctx context.Context, d *domain.Dictionary) error
	GetDictionary(ctx context.Context, id int64) (*domain.Dictionary, error)
	ListDictionaries(ctx context.Context) ([]*domain.Dictionary, error)
	UpdateDictionary(ctx context.Context, d *domain.Dictionary) error
	DeleteDictionary(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context, dictionaryID int64) ([]*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateWord(ctx context.Context, w *domain.Word) error
	GetWord(ctx context.Context, id int64) (*domain.Word, error)
	ListWords(ctx context.Context, categoryID int64) ([]*domain.Word, error)
	UpdateWord(ctx context.Context, w *domain.Word) error
	DeleteWord(ctx context.Context, id int64) error

	// ActiveWords returns every word whose own active flag and whose
	// dictionary's active flag are both set.
	ActiveWords(ctx context.Context) ([]*domain.Word, error)
	CountWords(ctx context.Context) (int, error)
}
