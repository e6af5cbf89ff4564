package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"aligncore/internal/infra/testutil"
	"aligncore/pkg/domain"
)

func openStub(t *testing.T) *testutil.StubConn {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driver, dsn string) (*sql.DB, error) {
		if driver != "pgx" || dsn == "" {
			t.Fatalf("unexpected open %s %q", driver, dsn)
		}
		return db, nil
	})
	t.Cleanup(restore)
	return conn
}

func TestNewStore_CreatesTable(t *testing.T) {
	conn := openStub(t)
	store, err := NewStore(context.Background(), "", "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.Name() != "align" {
		t.Fatalf("unexpected table %s", store.Name())
	}
	if len(conn.Execs) != 2 || !strings.Contains(conn.Execs[0], "CREATE TABLE IF NOT EXISTS align") {
		t.Fatalf("expected create table, got %v", conn.Execs)
	}
	if conn.Execs[1] != "ALTER TABLE align ADD COLUMN IF NOT EXISTS seq BIGSERIAL" {
		t.Fatalf("expected serial order column, got %q", conn.Execs[1])
	}
}

func TestStore_RoundTripThroughStub(t *testing.T) {
	openStub(t)
	ctx := context.Background()
	store, err := NewStore(ctx, "postgres://stub", "align")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	rec := domain.NewRecord("7", "# relation = per:title\n", map[domain.Language]domain.TargetBlock{
		domain.LanguageRU: {Original: "ru", Current: "ru"},
		domain.LanguageKO: {Original: "ko", Current: "ko"},
	})
	if err := store.PutRecord(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.SetTargetBlock(ctx, "7", domain.LanguageRU, "ru edited"); err != nil {
		t.Fatalf("set target: %v", err)
	}
	got, err := store.GetRecord(ctx, "7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Relation != "per:title" || got.Target(domain.LanguageRU) != "ru edited" || got.Targets[domain.LanguageRU].Original != "ru" {
		t.Fatalf("unexpected record %+v", got)
	}
	list, err := store.ListRecords(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if _, err := store.GetRecord(ctx, "8"); !errors.Is(err, domain.ErrUnknownRecord) {
		t.Fatalf("expected unknown record, got %v", err)
	}
	if err := store.SetTargetBlock(ctx, "8", domain.LanguageKO, "x"); !errors.Is(err, domain.ErrUnknownRecord) {
		t.Fatalf("expected unknown record on update, got %v", err)
	}
}

func TestNewStore_PingAndExecFailures(t *testing.T) {
	conn := openStub(t)
	conn.FailPing = true
	if _, err := NewStore(context.Background(), "dsn", ""); err == nil {
		t.Fatalf("expected ping failure")
	}
	conn = openStub(t)
	conn.FailExec = true
	if _, err := NewStore(context.Background(), "dsn", ""); err == nil {
		t.Fatalf("expected ddl failure")
	}
}
