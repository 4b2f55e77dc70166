package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	chanrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/channel/repository"
	dictrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/dictionary/repository"
	msgdomain "github.com/reshetovitsme/telegram-pulse/internal/modules/message/domain"
	msgrepo "github.com/reshetovitsme/telegram-pulse/internal/modules/message/repository"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/persian"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/storage"
	"github.com/reshetovitsme/telegram-pulse/internal/transport/messageapi"
)

type fakeRemote struct {
	pages     map[int][]messageapi.RemoteMessage
	total     int64
	healthErr error
	fetches   int
}

func (f *fakeRemote) FetchMessages(ctx context.Context, limit, offset int, useCache bool) (*messageapi.PageResponse, error) {
	f.fetches++
	return &messageapi.PageResponse{
		Total:    f.total,
		Messages: f.pages[offset],
	}, nil
}

func (f *fakeRemote) HealthCheck(ctx context.Context) error { return f.healthErr }

type fakeMatcher struct {
	matched map[int64][]int64
	batches int
}

func (f *fakeMatcher) MatchBatch(ctx context.Context, msgs []*msgdomain.Message) (map[int64][]int64, error) {
	f.batches++
	out := make(map[int64][]int64)
	for _, m := range msgs {
		if ids, ok := f.matched[m.TelegramMessageID]; ok {
			out[m.ID] = ids
		}
	}
	return out, nil
}

type fixture struct {
	svc      *Service
	remote   *fakeRemote
	matcher  *fakeMatcher
	messages msgrepo.Repository
	channels chanrepo.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	channels := chanrepo.NewSQLite(db)
	messages := msgrepo.NewSQLite(db)
	dictionaries := dictrepo.NewSQLite(db)
	remote := &fakeRemote{pages: map[int][]messageapi.RemoteMessage{}}
	matcher := &fakeMatcher{matched: map[int64][]int64{}}
	normalizer := persian.NewNormalizer(true)
	mapper := NewMapper(channels, logger)

	svc := New(remote, mapper, messages, channels, dictionaries, matcher, normalizer, nil, logger)
	return &fixture{svc: svc, remote: remote, matcher: matcher, messages: messages, channels: channels}
}

func remoteMessage(id int64, text string) messageapi.RemoteMessage {
	return messageapi.RemoteMessage{
		ID:        id,
		MessageID: id,
		Channel:   messageapi.ChannelInfo{ID: 1000, Name: "بورس‌نگر"},
		Text:      &text,
		Date:      time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC),
	}
}

func TestIngestBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.remote.pages[0] = []messageapi.RemoteMessage{
		remoteMessage(1, "فولاد صعود کرد"),
		remoteMessage(2, "خبر بدون نماد"),
	}
	f.remote.total = 2
	f.matcher.matched[1] = []int64{10}

	stats, err := f.svc.IngestBatch(ctx, 100, 0, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.MessagesProcessed != 2 || stats.MessagesInserted != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ChannelsProcessed != 1 {
		t.Fatalf("got %d channels, want 1", stats.ChannelsProcessed)
	}
	if stats.MessagesMatched != 1 {
		t.Fatalf("got %d matched edges, want 1", stats.MessagesMatched)
	}
	if stats.Errors != 0 {
		t.Fatalf("unexpected errors: %d", stats.Errors)
	}

	// The channel is created on first sighting.
	ch, err := f.channels.GetByTelegramID(ctx, "1000")
	if err != nil {
		t.Fatal(err)
	}
	if ch.Name != "بورس‌نگر" {
		t.Fatalf("got %q", ch.Name)
	}

	// Both messages got normalized text persisted.
	pending, err := f.messages.ListMissingNormalized(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("%d messages still pending normalization", len(pending))
	}
}

func TestIngestBatchCountsMappingFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := remoteMessage(0, "شناسه نامعتبر")
	f.remote.pages[0] = []messageapi.RemoteMessage{bad, remoteMessage(2, "متن سالم")}

	stats, err := f.svc.IngestBatch(ctx, 100, 0, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Errors != 1 {
		t.Fatalf("got %d errors, want 1", stats.Errors)
	}
	if stats.MessagesInserted != 1 {
		t.Fatalf("got %d inserted, want 1", stats.MessagesInserted)
	}
}

func TestIngestBatchSkipsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.remote.pages[0] = []messageapi.RemoteMessage{remoteMessage(1, "متن")}
	if _, err := f.svc.IngestBatch(ctx, 100, 0, false, true); err != nil {
		t.Fatal(err)
	}

	stats, err := f.svc.IngestBatch(ctx, 100, 0, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.MessagesSkipped != 1 || stats.MessagesInserted != 0 || stats.MessagesUpdated != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	stats, err = f.svc.IngestBatch(ctx, 100, 0, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.MessagesUpdated != 1 || stats.MessagesSkipped != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestIngestAllPagesUntilShortPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page0 := make([]messageapi.RemoteMessage, 0, 2)
	for id := int64(1); id <= 2; id++ {
		page0 = append(page0, remoteMessage(id, "متن"))
	}
	f.remote.pages[0] = page0
	f.remote.pages[2] = []messageapi.RemoteMessage{remoteMessage(3, "متن")}

	stats, err := f.svc.IngestAll(ctx, 2, 0, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.MessagesProcessed != 3 || stats.MessagesInserted != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if f.remote.fetches != 2 {
		t.Fatalf("got %d fetches, want 2", f.remote.fetches)
	}
}

func TestIngestAllHonorsCeiling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for offset := 0; offset < 6; offset += 2 {
		f.remote.pages[offset] = []messageapi.RemoteMessage{
			remoteMessage(int64(offset+1), "متن"),
			remoteMessage(int64(offset+2), "متن"),
		}
	}

	stats, err := f.svc.IngestAll(ctx, 2, 4, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.MessagesProcessed != 4 {
		t.Fatalf("got %d processed, want 4", stats.MessagesProcessed)
	}
}

func TestCleanupOlderThan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := remoteMessage(1, "قدیمی")
	old.Date = time.Now().UTC().AddDate(0, 0, -120)
	fresh := remoteMessage(2, "تازه")
	fresh.Date = time.Now().UTC()
	f.remote.pages[0] = []messageapi.RemoteMessage{old, fresh}
	if _, err := f.svc.IngestBatch(ctx, 100, 0, false, true); err != nil {
		t.Fatal(err)
	}

	deleted, err := f.svc.CleanupOlderThan(ctx, 90)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("got %d deleted, want 1", deleted)
	}
}

func TestOverviewAndHealth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.remote.pages[0] = []messageapi.RemoteMessage{remoteMessage(1, "متن")}
	if _, err := f.svc.IngestBatch(ctx, 100, 0, false, true); err != nil {
		t.Fatal(err)
	}

	o, err := f.svc.Overview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalMessages != 1 || o.TotalChannels != 1 || o.ActiveChannels != 1 {
		t.Fatalf("unexpected overview: %+v", o)
	}
	if o.OldestMessage == nil || o.NewestMessage == nil {
		t.Fatal("expected message date range")
	}

	h := f.svc.HealthCheck(ctx)
	if !h.Storage || !h.Remote {
		t.Fatalf("unexpected health: %+v", h)
	}
	if h.Cache != nil {
		t.Fatal("cache not configured, expected nil")
	}
	if !h.OK() {
		t.Fatal("expected healthy")
	}
}
