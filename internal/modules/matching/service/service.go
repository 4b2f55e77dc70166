package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/oops"

	dictdomain "github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/domain"
	"github.com/reshetovitsme/telegram-pulse/internal/modules/matching/repository"
	msgdomain "github.com/reshetovitsme/telegram-pulse/internal/modules/message/domain"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/persian"
)

// WordSource supplies the population of words eligible for matching.
type WordSource interface {
	ActiveWords(ctx context.Context) ([]*dictdomain.Word, error)
}

// Stats describes the current state of the matching engine.
type Stats struct {
	LoadedKeys int       `json:"loaded_keys"`
	LoadedAt   time.Time `json:"loaded_at"`
	EdgeCount  int64     `json:"edge_count"`
}

// Engine matches normalized message text against dictionary words. The word
// index is held in memory as normalized word to word id lists and rebuilt on
// demand.
type Engine struct {
	words      WordSource
	edges      repository.Repository
	normalizer persian.Normalizer
	logger     *slog.Logger

	mu       sync.RWMutex
	index    map[string][]int64
	loaded   bool
	loadedAt time.Time
}

func NewEngine(words WordSource, edges repository.Repository, normalizer persian.Normalizer, logger *slog.Logger) *Engine {
	return &Engine{
		words:      words,
		edges:      edges,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Load rebuilds the in-memory word index. With force unset an already
// loaded index is kept as is.
func (e *Engine) Load(ctx context.Context, force bool) error {
	e.mu.RLock()
	loaded := e.loaded
	e.mu.RUnlock()
	if loaded && !force {
		return nil
	}

	words, err := e.words.ActiveWords(ctx)
	if err != nil {
		return oops.Wrap(err)
	}

	index := make(map[string][]int64, len(words))
	for _, w := range words {
		if w.NormalizedWord == "" {
			continue
		}
		index[w.NormalizedWord] = append(index[w.NormalizedWord], w.ID)
	}

	e.mu.Lock()
	e.index = index
	e.loaded = true
	e.loadedAt = time.Now().UTC()
	e.mu.Unlock()

	e.logger.Info("word index loaded",
		slog.Int("words", len(words)),
		slog.Int("keys", len(index)),
	)
	return nil
}

// MatchOne matches a single message and replaces its stored edges with the
// result. A message without normalized text is skipped entirely, leaving
// existing edges untouched. A normalized message that matches nothing has
// its edges cleared.
func (e *Engine) MatchOne(ctx context.Context, msg *msgdomain.Message) ([]int64, error) {
	if err := e.Load(ctx, false); err != nil {
		return nil, err
	}
	if msg.TextNormalized == nil {
		return nil, nil
	}

	wordIDs := e.match(*msg.TextNormalized)
	if err := e.edges.ReplaceForMessage(ctx, msg.ID, wordIDs, time.Now().UTC()); err != nil {
		return nil, oops.With("message_id", msg.ID).Wrap(err)
	}
	return wordIDs, nil
}

// MatchBatch matches a slice of messages in one transaction and returns the
// word ids per message id. Unnormalized messages are skipped.
func (e *Engine) MatchBatch(ctx context.Context, msgs []*msgdomain.Message) (map[int64][]int64, error) {
	if err := e.Load(ctx, false); err != nil {
		return nil, err
	}

	matches := make(map[int64][]int64, len(msgs))
	for _, msg := range msgs {
		if msg.TextNormalized == nil {
			continue
		}
		matches[msg.ID] = e.match(*msg.TextNormalized)
	}

	if err := e.edges.ReplaceForMessages(ctx, matches, time.Now().UTC()); err != nil {
		return nil, oops.Wrap(err)
	}
	return matches, nil
}

// match looks up each token of the normalized text in the index. Word ids
// are deduplicated but keep first-occurrence order.
func (e *Engine) match(normalized string) []int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var wordIDs []int64
	for _, token := range e.normalizer.Tokenize(normalized) {
		wordIDs = append(wordIDs, e.index[token]...)
	}
	return lo.Uniq(wordIDs)
}

// WordsForMessage returns the stored word ids matched to one message.
func (e *Engine) WordsForMessage(ctx context.Context, messageID int64) ([]int64, error) {
	return e.edges.WordIDsForMessage(ctx, messageID)
}

// Stats reports index size, load time and edge count.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	edgeCount, err := e.edges.CountEdges(ctx)
	if err != nil {
		return nil, oops.Wrap(err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return &Stats{
		LoadedKeys: len(e.index),
		LoadedAt:   e.loadedAt,
		EdgeCount:  edgeCount,
	}, nil
}
