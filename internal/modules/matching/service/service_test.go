package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	chandomain "github.com/reshetovitsme/telegram-pulse/internal/modules/channel/domain"
	chanrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/channel/repository"
	dictdomain "github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/domain"
	dictrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/repository"
	"github.com/reshetovitsme/telegram-pulse/internal/modules/matching/repository"
	msgdomain "github.com/reshetovitsme/telegram-pulse/internal/modules/message/domain"
	msgrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/message/repository"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/persian"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/storage"
)

type fixture struct {
	engine   *Engine
	edges    repository.Repository
	messages msgrepo.Repository
	channel  *chandomain.Channel
	words    map[string]int64
	nextID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dict := dictrepo.NewSQLite(db)
	d := &dictdomain.Dictionary{Name: "بورس", IsActive: true}
	if err := dict.CreateDictionary(ctx, d); err != nil {
		t.Fatalf("create dictionary: %v", err)
	}
	cat := &dictdomain.Category{DictionaryID: d.ID, Name: "نمادها"}
	if err := dict.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("create category: %v", err)
	}

	words := make(map[string]int64)
	for _, w := range []string{"فولاد", "شپنا"} {
		word := &dictdomain.Word{CategoryID: cat.ID, Word: w, NormalizedWord: w, IsActive: true}
		if err := dict.CreateWord(ctx, word); err != nil {
			t.Fatalf("create word %q: %v", w, err)
		}
		words[w] = word.ID
	}

	ch := &chandomain.Channel{TelegramID: "1000", Name: "تست", IsActive: true}
	if _, err := chanrepo.NewSQLite(db).Upsert(ctx, ch); err != nil {
		t.Fatalf("create channel: %v", err)
	}

	edges := repository.NewSQLite(db)
	return &fixture{
		engine:   NewEngine(dict, edges, persian.NewNormalizer(true), slog.New(slog.DiscardHandler)),
		edges:    edges,
		messages: msgrepo.NewSQLite(db),
		channel:  ch,
		words:    words,
	}
}

func (f *fixture) seed(t *testing.T, normalized string) *msgdomain.Message {
	t.Helper()
	f.nextID++
	msg := &msgdomain.Message{
		APIMessageID:      f.nextID,
		TelegramMessageID: f.nextID,
		ChannelID:         f.channel.ID,
		Date:              time.Now().UTC(),
	}
	if normalized != "" {
		msg.Text = &normalized
		msg.TextNormalized = &normalized
	}
	if _, err := f.messages.Upsert(context.Background(), msg); err != nil {
		t.Fatalf("seed message: %v", err)
	}
	return msg
}

func TestMatchOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := f.seed(t, "سهم فولاد امروز صف خرید")
	wordIDs, err := f.engine.MatchOne(ctx, msg)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(wordIDs) != 1 || wordIDs[0] != f.words["فولاد"] {
		t.Fatalf("expected [%d], got %v", f.words["فولاد"], wordIDs)
	}

	stored, err := f.edges.WordIDsForMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("word ids: %v", err)
	}
	if len(stored) != 1 || stored[0] != f.words["فولاد"] {
		t.Fatalf("expected stored [%d], got %v", f.words["فولاد"], stored)
	}
}

func TestMatchOneReplacesStaleEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := f.seed(t, "فولاد و شپنا")
	if _, err := f.engine.MatchOne(ctx, msg); err != nil {
		t.Fatalf("first match: %v", err)
	}
	stored, err := f.edges.WordIDsForMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("word ids: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 edges, got %v", stored)
	}

	// Re-matching after the text changed must clear edges that no longer
	// apply, even down to an empty set.
	unmatched := "هیچ نمادی اینجا نیست"
	msg.TextNormalized = &unmatched
	if _, err := f.engine.MatchOne(ctx, msg); err != nil {
		t.Fatalf("second match: %v", err)
	}
	stored, err = f.edges.WordIDsForMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("word ids: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected edges cleared, got %v", stored)
	}
}

func TestMatchOneSkipsUnnormalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := f.seed(t, "")
	wordIDs, err := f.engine.MatchOne(ctx, msg)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if wordIDs != nil {
		t.Fatalf("expected nil for unnormalized message, got %v", wordIDs)
	}
}

func TestMatchBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m1 := f.seed(t, "تحلیل فولاد")
	m2 := f.seed(t, "گزارش شپنا و فولاد")
	m3 := f.seed(t, "")

	matches, err := f.engine.MatchBatch(ctx, []*msgdomain.Message{m1, m2, m3})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matched messages, got %d", len(matches))
	}
	if got := matches[m1.ID]; len(got) != 1 || got[0] != f.words["فولاد"] {
		t.Fatalf("m1: expected [%d], got %v", f.words["فولاد"], got)
	}
	if got := matches[m2.ID]; len(got) != 2 {
		t.Fatalf("m2: expected 2 word ids, got %v", got)
	}
}

func TestLoadForce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.Load(ctx, false); err != nil {
		t.Fatalf("load: %v", err)
	}
	stats, err := f.engine.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.LoadedKeys != 2 {
		t.Fatalf("expected 2 keys, got %d", stats.LoadedKeys)
	}
}
