package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/message/domain"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/storage"
)

type fixture struct {
	repo      *SQLiteRepository
	db        *sql.DB
	channelID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	res, err := db.ExecContext(ctx,
		`INSERT INTO channels (telegram_id, name, created_at, updated_at) VALUES ('1000', 'کانال', 0, 0)`)
	if err != nil {
		t.Fatal(err)
	}
	channelID, err := res.LastInsertId()
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{repo: NewSQLite(db), db: db, channelID: channelID}
}

func strPtr(s string) *string { return &s }

func (f *fixture) message(telegramID int64, text string, at time.Time) *domain.Message {
	return &domain.Message{
		APIMessageID:      telegramID,
		TelegramMessageID: telegramID,
		ChannelID:         f.channelID,
		Text:              strPtr(text),
		Date:              at,
	}
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	m := f.message(10, "فولاد صعود کرد", at)
	views := int64(150)
	m.Views = &views
	m.ExtraData = map[string]any{"jalali_date": "1404-08-25 17:39:54"}

	created, err := f.repo.Upsert(ctx, m)
	if err != nil {
		t.Fatal(err)
	}
	if !created || m.ID == 0 {
		t.Fatalf("expected insert, created=%v id=%d", created, m.ID)
	}

	moreViews := int64(300)
	again := f.message(10, "فولاد صعود کرد (ویرایش)", at)
	again.Views = &moreViews
	created, err = f.repo.Upsert(ctx, again)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("expected update, not insert")
	}
	if again.ID != m.ID {
		t.Fatalf("update changed ID: %d != %d", again.ID, m.ID)
	}

	got, err := f.repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text == nil || *got.Text != "فولاد صعود کرد (ویرایش)" {
		t.Fatalf("text not updated: %v", got.Text)
	}
	if got.Views == nil || *got.Views != 300 {
		t.Fatalf("views not updated: %v", got.Views)
	}
	if got.ExtraData["jalali_date"] != "1404-08-25 17:39:54" {
		t.Fatalf("extra data lost: %v", got.ExtraData)
	}
}

func TestUpsertPreservesNormalizedText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Now().UTC()

	m := f.message(10, "متن", at)
	if _, err := f.repo.Upsert(ctx, m); err != nil {
		t.Fatal(err)
	}
	if err := f.repo.SetNormalized(ctx, m.ID, "متن"); err != nil {
		t.Fatal(err)
	}

	again := f.message(10, "متن ویرایش شده", at)
	if _, err := f.repo.Upsert(ctx, again); err != nil {
		t.Fatal(err)
	}
	if again.TextNormalized == nil || *again.TextNormalized != "متن" {
		t.Fatalf("upsert did not report preserved normalized text: %v", again.TextNormalized)
	}

	got, err := f.repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TextNormalized == nil || *got.TextNormalized != "متن" {
		t.Fatalf("normalized text clobbered: %v", got.TextNormalized)
	}
}

func TestExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.message(10, "متن", time.Now().UTC())
	if _, err := f.repo.Upsert(ctx, m); err != nil {
		t.Fatal(err)
	}

	ok, err := f.repo.Exists(ctx, f.channelID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected message to exist")
	}

	ok, err = f.repo.Exists(ctx, f.channelID, 99)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected missing message")
	}
}

func TestListMissingNormalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Now().UTC()

	a := f.message(1, "اول", at)
	b := f.message(2, "دوم", at)
	noText := &domain.Message{APIMessageID: 3, TelegramMessageID: 3, ChannelID: f.channelID, Date: at}
	for _, m := range []*domain.Message{a, b, noText} {
		if _, err := f.repo.Upsert(ctx, m); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.repo.SetNormalized(ctx, a.ID, "اول"); err != nil {
		t.Fatal(err)
	}

	pending, err := f.repo.ListMissingNormalized(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("unexpected pending set: %+v", pending)
	}
}

func TestRecentMatched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC)

	older := f.message(1, "قدیمی", base)
	newer := f.message(2, "جدید", base.Add(time.Hour))
	unmatched := f.message(3, "بدون تطبیق", base.Add(2*time.Hour))
	for _, m := range []*domain.Message{older, newer, unmatched} {
		if _, err := f.repo.Upsert(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	seedWord := func() int64 {
		res, err := f.db.ExecContext(ctx, `
			INSERT INTO dictionaries (name, created_at, updated_at) VALUES ('بورس', 0, 0);`)
		if err != nil {
			t.Fatal(err)
		}
		dictID, _ := res.LastInsertId()
		res, err = f.db.ExecContext(ctx,
			`INSERT INTO dictionary_categories (dictionary_id, name, created_at, updated_at) VALUES (?, 'نمادها', 0, 0)`, dictID)
		if err != nil {
			t.Fatal(err)
		}
		catID, _ := res.LastInsertId()
		res, err = f.db.ExecContext(ctx,
			`INSERT INTO dictionary_words (category_id, word, normalized_word, created_at, updated_at) VALUES (?, 'فولاد', 'فولاد', 0, 0)`, catID)
		if err != nil {
			t.Fatal(err)
		}
		wordID, _ := res.LastInsertId()
		return wordID
	}
	wordID := seedWord()
	for _, m := range []*domain.Message{older, newer} {
		if _, err := f.db.ExecContext(ctx,
			`INSERT INTO message_words (message_id, word_id, matched_at) VALUES (?, ?, 0)`, m.ID, wordID); err != nil {
			t.Fatal(err)
		}
	}

	matched, err := f.repo.RecentMatched(ctx, f.channelID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 2 {
		t.Fatalf("got %d matched, want 2", len(matched))
	}
	if matched[0].ID != newer.ID || matched[1].ID != older.ID {
		t.Fatal("expected newest-first ordering")
	}
}

func TestDeleteOlderThan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 16, 10, 0, 0, 0, time.UTC)

	old := f.message(1, "قدیمی", base.AddDate(0, 0, -120))
	fresh := f.message(2, "تازه", base)
	for _, m := range []*domain.Message{old, fresh} {
		if _, err := f.repo.Upsert(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := f.repo.DeleteOlderThan(ctx, base.AddDate(0, 0, -90))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("got %d deleted, want 1", deleted)
	}
	if _, err := f.repo.Get(ctx, old.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := f.repo.Get(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh message deleted: %v", err)
	}
}

func TestMinMaxDatesAndCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, ok, err := f.repo.MinMaxDates(ctx); err != nil || ok {
		t.Fatalf("empty table: ok=%v err=%v", ok, err)
	}

	early := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, 11, 16, 12, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{early, late} {
		if _, err := f.repo.Upsert(ctx, f.message(int64(i+1), "متن", at)); err != nil {
			t.Fatal(err)
		}
	}

	minDate, maxDate, ok, err := f.repo.MinMaxDates(ctx)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !minDate.Equal(early) || !maxDate.Equal(late) {
		t.Fatalf("got [%v, %v], want [%v, %v]", minDate, maxDate, early, late)
	}

	inWindow, err := f.repo.CountInWindow(ctx, f.channelID, early, early.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if inWindow != 1 {
		t.Fatalf("got %d in window, want 1", inWindow)
	}

	since, err := f.repo.CountSince(ctx, late.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if since != 1 {
		t.Fatalf("got %d since, want 1", since)
	}
}
