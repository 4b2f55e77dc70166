package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/reshetovitsme/telegram-pulse/internal/modules/channel/domain"
	apperrors "github.com/reshetovitsme/telegram-pulse/internal/shared/errors"
	"github.com/reshetovitsme/telegram-pulse/internal/shared/storage"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLite(db)
}

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	ch := &domain.Channel{TelegramID: "1000", Name: "بورس‌نگر"}
	created, err := repo.Upsert(ctx, ch)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected created on first upsert")
	}
	if ch.ID == 0 {
		t.Fatal("expected ID to be filled in")
	}
	if !ch.IsActive {
		t.Fatal("new channels start active")
	}

	username := "bours_negar"
	syncedAt := time.Now().UTC().Truncate(time.Second)
	again := &domain.Channel{TelegramID: "1000", Name: "بورس‌نگر جدید", Username: &username, LastSyncAt: &syncedAt}
	created, err = repo.Upsert(ctx, again)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("expected refresh, not create")
	}
	if again.ID != ch.ID {
		t.Fatalf("refresh changed ID: %d != %d", again.ID, ch.ID)
	}

	got, err := repo.Get(ctx, ch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "بورس‌نگر جدید" {
		t.Fatalf("name not refreshed: %q", got.Name)
	}
	if got.Username == nil || *got.Username != username {
		t.Fatalf("username not refreshed: %v", got.Username)
	}
	if got.LastSyncAt == nil || !got.LastSyncAt.Equal(syncedAt) {
		t.Fatalf("last sync not refreshed: %v", got.LastSyncAt)
	}
}

func TestUpsertPreservesDeactivation(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	ch := &domain.Channel{TelegramID: "1000", Name: "کانال"}
	if _, err := repo.Upsert(ctx, ch); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetActive(ctx, ch.ID, false); err != nil {
		t.Fatal(err)
	}

	again := &domain.Channel{TelegramID: "1000", Name: "کانال"}
	if _, err := repo.Upsert(ctx, again); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, ch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsActive {
		t.Fatal("re-sighting must not reactivate a disabled channel")
	}
}

func TestGetByTelegramID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	ch := &domain.Channel{TelegramID: "1000", Name: "کانال"}
	if _, err := repo.Upsert(ctx, ch); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByTelegramID(ctx, "1000")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != ch.ID {
		t.Fatalf("got ID %d, want %d", got.ID, ch.ID)
	}

	if _, err := repo.GetByTelegramID(ctx, "missing"); !errors.Is(err, apperrors.ErrChannelNotFound) {
		t.Fatalf("got %v, want ErrChannelNotFound", err)
	}
	if _, err := repo.Get(ctx, 9999); !errors.Is(err, apperrors.ErrChannelNotFound) {
		t.Fatalf("got %v, want ErrChannelNotFound", err)
	}
}

func TestListActiveAndCounts(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	a := &domain.Channel{TelegramID: "1", Name: "الف"}
	b := &domain.Channel{TelegramID: "2", Name: "ب"}
	for _, ch := range []*domain.Channel{a, b} {
		if _, err := repo.Upsert(ctx, ch); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.SetActive(ctx, b.ID, false); err != nil {
		t.Fatal(err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d channels, want 2", len(all))
	}

	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("unexpected active set: %+v", active)
	}

	total, err := repo.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	activeCount, err := repo.CountActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || activeCount != 1 {
		t.Fatalf("got total=%d active=%d", total, activeCount)
	}
}

func TestDeleteCascadesMessages(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	ch := &domain.Channel{TelegramID: "1000", Name: "کانال"}
	if _, err := repo.Upsert(ctx, ch); err != nil {
		t.Fatal(err)
	}
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO messages (api_message_id, telegram_message_id, channel_id, date, created_at, updated_at)
		 VALUES (1, 1, ?, 0, 0, 0)`, ch.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete(ctx, ch.ID); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil && !errors.Is(err, sql.ErrNoRows) {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected cascade delete, %d messages remain", count)
	}
}
