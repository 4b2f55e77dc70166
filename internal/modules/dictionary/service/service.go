package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/domain"
	"github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/repository"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/persian"
)

// Reloader is notified after any mutation that can change the matching
// population, so the in-memory word index can be rebuilt.
type Reloader interface {
	Load(ctx context.Context, force bool) error
}

// Service provides dictionary administration on top of the repository.
type Service struct {
	repo       repository.Repository
	normalizer persian.Normalizer
	reloader   Reloader
	logger     *slog.Logger
}

func New(repo repository.Repository, normalizer persian.Normalizer, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		normalizer: normalizer,
		logger:     logger,
	}
}

// SetReloader wires the matching engine after construction. The dictionary
// service is created before the engine, so the dependency is set late.
func (s *Service) SetReloader(r Reloader) {
	s.reloader = r
}

func (s *Service) CreateDictionary(ctx context.Context, name string, description *string, isActive bool) (*domain.Dictionary, error) {
	d := &domain.Dictionary{
		Name:        strings.TrimSpace(name),
		Description: description,
		IsActive:    isActive,
	}
	if d.Name == "" {
		return nil, oops.Errorf("dictionary name is empty")
	}
	if err := s.repo.CreateDictionary(ctx, d); err != nil {
		return nil, oops.With("name", d.Name).Wrap(err)
	}
	s.reload(ctx)
	return d, nil
}

func (s *Service) GetDictionary(ctx context.Context, id int64) (*domain.Dictionary, error) {
	return s.repo.GetDictionary(ctx, id)
}

func (s *Service) ListDictionaries(ctx context.Context) ([]*domain.Dictionary, error) {
	return s.repo.ListDictionaries(ctx)
}

func (s *Service) UpdateDictionary(ctx context.Context, d *domain.Dictionary) error {
	if err := s.repo.UpdateDictionary(ctx, d); err != nil {
		return oops.With("dictionary_id", d.ID).Wrap(err)
	}
	s.reload(ctx)
	return nil
}

func (s *Service) DeleteDictionary(ctx context.Context, id int64) error {
	if err := s.repo.DeleteDictionary(ctx, id); err != nil {
		return oops.With("dictionary_id", id).Wrap(err)
	}
	s.reload(ctx)
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, c *domain.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return oops.Errorf("category name is empty")
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return oops.With("dictionary_id", c.DictionaryID).With("name", c.Name).Wrap(err)
	}
	return nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// CategoryTree returns the category forest of a dictionary with parent
// links resolved into nested children.
func (s *Service) CategoryTree(ctx context.Context, dictionaryID int64) ([]*domain.CategoryNode, error) {
	categories, err := s.repo.ListCategories(ctx, dictionaryID)
	if err != nil {
		return nil, oops.With("dictionary_id", dictionaryID).Wrap(err)
	}
	return domain.BuildCategoryTree(categories), nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return oops.With("category_id", id).Wrap(err)
	}
	s.reload(ctx)
	return nil
}

func (s *Service) CreateWord(ctx context.Context, w *domain.Word) error {
	w.Word = strings.TrimSpace(w.Word)
	if w.Word == "" {
		return oops.Errorf("word is empty")
	}
	w.NormalizedWord = s.normalize(w.Word)
	if err := s.repo.CreateWord(ctx, w); err != nil {
		return oops.With("word", w.Word).Wrap(err)
	}
	s.reload(ctx)
	return nil
}

func (s *Service) GetWord(ctx context.Context, id int64) (*domain.Word, error) {
	return s.repo.GetWord(ctx, id)
}

func (s *Service) ListWords(ctx context.Context, categoryID int64) ([]*domain.Word, error) {
	return s.repo.ListWords(ctx, categoryID)
}

func (s *Service) UpdateWord(ctx context.Context, w *domain.Word) error {
	w.Word = strings.TrimSpace(w.Word)
	if w.Word == "" {
		return oops.Errorf("word is empty")
	}
	w.NormalizedWord = s.normalize(w.Word)
	if err := s.repo.UpdateWord(ctx, w); err != nil {
		return oops.With("word_id", w.ID).Wrap(err)
	}
	s.reload(ctx)
	return nil
}

func (s *Service) DeleteWord(ctx context.Context, id int64) error {
	if err := s.repo.DeleteWord(ctx, id); err != nil {
		return oops.With("word_id", id).Wrap(err)
	}
	s.reload(ctx)
	return nil
}

// normalize derives the match key for a word. When normalization strips the
// word down to nothing the trimmed original is kept so the word stays
// addressable, even if it will never match.
func (s *Service) normalize(word string) string {
	normalized, ok := s.normalizer.Normalize(word)
	if !ok {
		return strings.TrimSpace(word)
	}
	return normalized
}

func (s *Service) reload(ctx context.Context) {
	if s.reloader == nil {
		return
	}
	if err := s.reloader.Load(ctx, true); err != nil {
		s.logger.Warn("dictionary index reload failed", slog.Any("error", err))
	}
}
