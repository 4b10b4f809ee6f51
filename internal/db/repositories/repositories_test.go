package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pickup-dispatch/dispatch/internal/db"
	"pickup-dispatch/dispatch/internal/models/entities"
)

func setupTestDB(t *testing.T) (*SettingsRepositoryGORM, *ActionLogRepo) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dispatch.db")

	orm, err := db.InitORM("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open ORM: %v", err)
	}
	sqlDB, err := db.InitSQL("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open sqlx: %v", err)
	}
	t.Cleanup(func() {
		sqlDB.Close()
		if raw, err := orm.DB(); err == nil {
			raw.Close()
		}
	})

	return NewSettingsRepositoryGORM(orm), NewActionLogRepo(sqlDB)
}

func TestSettingsRepository_PutGetOverwrite(t *testing.T) {
	settings, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := settings.Get(ctx, "apiKey"); !errors.Is(err, ErrSettingNotFound) {
		t.Fatalf("Expected ErrSettingNotFound, got %v", err)
	}

	if err := settings.Put(ctx, "apiKey", "first"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := settings.Put(ctx, "apiKey", "second"); err != nil {
		t.Fatalf("Expected no error on overwrite, got %v", err)
	}

	got, err := settings.Get(ctx, "apiKey")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "second" {
		t.Errorf("Expected second, got %s", got)
	}

	if err := settings.Delete(ctx, "apiKey"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := settings.Get(ctx, "apiKey"); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("Expected key to be gone, got %v", err)
	}
}

func TestActionLogRepo_InsertAndList(t *testing.T) {
	_, logs := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []entities.ActionLog{
		{UserID: "u1", Action: "accept", TargetID: "r1", Outcome: "ok", CreatedAt: base},
		{UserID: "u2", Action: "create", TargetID: "p1", Outcome: "rejection", Detail: "HTTP 400", CreatedAt: base.Add(time.Minute)},
		{UserID: "u1", Action: "deny", TargetID: "r2", Outcome: "ok", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		if err := logs.Insert(ctx, &entries[i]); err != nil {
			t.Fatalf("Expected no error inserting entry %d, got %v", i, err)
		}
	}

	recent, err := logs.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(recent))
	}
	if recent[0].Action != "deny" || recent[1].Action != "create" {
		t.Errorf("Expected newest first, got %s then %s", recent[0].Action, recent[1].Action)
	}
	if recent[1].Detail != "HTTP 400" {
		t.Errorf("Expected detail to round-trip, got %q", recent[1].Detail)
	}

	mine, err := logs.ByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("Expected 2 entries for u1, got %d", len(mine))
	}

	if err := logs.Ping(ctx); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}
}
