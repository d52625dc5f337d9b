package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"duotoeic/internal/db"
	"duotoeic/internal/ledger"
	"duotoeic/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func setupPostgres(t *testing.T) (*Postgres, func()) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		pool.Close()
		t.Fatalf("create schema: %v", err)
	}
	if err := db.RunMigrations(ctx, pool, db.Migrations, db.PostgresMigrations); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}
	return NewPostgres(pool), func() {
		_, _ = pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		pool.Close()
	}
}

func setupSQLite(t *testing.T) *SQLite {
	sqlDB, err := db.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.RunSQLiteMigrations(context.Background(), sqlDB, db.Migrations, db.SQLiteMigrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLite(sqlDB)
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store { return NewMemory() })
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store { return setupSQLite(t) })
}

func TestPostgresStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		store, cleanup := setupPostgres(t)
		t.Cleanup(cleanup)
		return store
	})
}

func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("no period", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.LatestPeriod(context.Background()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("periods", func(t *testing.T) { testPeriods(t, newStore(t)) })
	t.Run("events", func(t *testing.T) { testEvents(t, newStore(t)) })
	t.Run("logs", func(t *testing.T) { testLogs(t, newStore(t)) })
}

func testPeriods(t *testing.T, store Store) {
	ctx := context.Background()
	start := time.Date(2023, 10, 23, 0, 0, 0, 0, time.UTC)
	if err := store.CreatePeriod(ctx, Period{ID: "week-1", StartedAt: start, Penalty: "Buy Milk Tea"}); err != nil {
		t.Fatalf("create period: %v", err)
	}
	if err := store.CreatePeriod(ctx, Period{ID: "week-2", StartedAt: start.AddDate(0, 0, 7)}); err != nil {
		t.Fatalf("create period: %v", err)
	}
	if err := store.CreatePeriod(ctx, Period{ID: "week-1", StartedAt: start}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	latest, err := store.LatestPeriod(ctx)
	if err != nil {
		t.Fatalf("latest period: %v", err)
	}
	if latest.ID != "week-2" || !latest.StartedAt.Equal(start.AddDate(0, 0, 7)) {
		t.Fatalf("unexpected latest period %+v", latest)
	}
}

func testEvents(t *testing.T, store Store) {
	ctx := context.Background()
	at := time.Date(2023, 10, 24, 9, 30, 0, 0, time.UTC)
	if err := store.CreatePeriod(ctx, Period{ID: "week-1", StartedAt: at}); err != nil {
		t.Fatalf("create period: %v", err)
	}
	if err := store.CreatePeriod(ctx, Period{ID: "week-2", StartedAt: at.Add(time.Hour)}); err != nil {
		t.Fatalf("create period: %v", err)
	}

	in := []ledger.Event{
		{PeriodID: "week-1", Kind: ledger.EventGoalAdded, Actor: "user1", Owner: "user1", GoalID: "101", Text: "Learn 20 Vocab words", At: at},
		{PeriodID: "week-1", Kind: ledger.EventCompletionToggled, Actor: "user1", Owner: "user1", GoalID: "101", At: at},
		{PeriodID: "week-2", Kind: ledger.EventPenaltySet, Actor: "user2", Text: "Cook dinner", At: at},
		{PeriodID: "week-1", Kind: ledger.EventVerificationToggled, Actor: "user2", Owner: "user1", GoalID: "101", At: at},
	}
	wantSeq := []int64{1, 2, 1, 3}
	for i, ev := range in {
		got, err := store.AppendEvent(ctx, ev)
		if err != nil {
			t.Fatalf("append event %d: %v", i, err)
		}
		if got.Seq != wantSeq[i] {
			t.Fatalf("event %d: expected seq %d, got %d", i, wantSeq[i], got.Seq)
		}
	}

	if _, err := store.AppendEvent(ctx, ledger.Event{PeriodID: "missing", Kind: ledger.EventPenaltySet, Actor: "user1", At: at}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown period, got %v", err)
	}

	events, err := store.ListEvents(ctx, "week-1")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	last := events[2]
	if last.Seq != 3 || last.Kind != ledger.EventVerificationToggled || last.Actor != "user2" || last.Owner != "user1" || last.GoalID != "101" {
		t.Fatalf("unexpected event %+v", last)
	}
	if !events[0].At.Equal(at) || events[0].Text != "Learn 20 Vocab words" {
		t.Fatalf("unexpected first event %+v", events[0])
	}
}

func testLogs(t *testing.T, store Store) {
	ctx := context.Background()
	score := 650
	first := models.StudyLog{ID: "1", UserID: "user1", Date: "2023-10-25", Skill: models.SkillListening, DurationMinutes: 60, Score: &score, Notes: "Part 3"}
	second := models.StudyLog{ID: "2", UserID: "user2", Date: "2023-10-25", Skill: models.SkillReading, DurationMinutes: 45}
	for _, entry := range []models.StudyLog{first, second} {
		if err := store.AppendLog(ctx, entry); err != nil {
			t.Fatalf("append log %s: %v", entry.ID, err)
		}
	}
	if err := store.AppendLog(ctx, first); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	logs, err := store.ListLogs(ctx)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 || logs[0].ID != "1" || logs[1].ID != "2" {
		t.Fatalf("unexpected logs %+v", logs)
	}
	if logs[0].Score == nil || *logs[0].Score != 650 || logs[0].Notes != "Part 3" || logs[0].Skill != models.SkillListening {
		t.Fatalf("unexpected first log %+v", logs[0])
	}
	if logs[1].Score != nil {
		t.Fatalf("expected no score, got %d", *logs[1].Score)
	}
}
