package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"hbnb/internal/entitymodel/sqlbundle"
	"hbnb/internal/infra/persistence/postgres/testutil"
	"hbnb/pkg/domain"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestReloadAppliesPostgresDDL(t *testing.T) {
	store, conn := newStubStore(t)
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	expected := sqlbundle.SplitStatements(sqlbundle.Postgres())
	if len(conn.Execs) != len(expected) {
		t.Fatalf("expected %d DDL statements, got %d", len(expected), len(conn.Execs))
	}
	for i, stmt := range expected {
		if strings.TrimSpace(conn.Execs[i]) != strings.TrimSpace(stmt) {
			t.Fatalf("statement %d mismatch:\nwant: %s\ngot:  %s", i, stmt, conn.Execs[i])
		}
	}
}

func TestSaveWritesRowsPerClassTable(t *testing.T) {
	ctx := context.Background()
	store, conn := newStubStore(t)

	place := domain.NewEntity(domain.ClassPlace, domain.Now())
	place.Set("name", domain.StringValue("Loft"))
	place.Set("price_by_night", domain.IntValue(120))
	place.Set("latitude", domain.FloatValue(48.85))
	place.Set("wifi", domain.StringValue("yes"))
	if err := store.New(place); err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	rows := conn.Rows("places")
	if len(rows) != 1 {
		t.Fatalf("expected one place row, got %v", rows)
	}
	row := rows[0]
	if row["id"] != place.ID || row["name"] != "Loft" || row["price_by_night"] != int64(120) {
		t.Fatalf("unexpected row %v", row)
	}
	if _, ok := row["created_at"].(time.Time); !ok {
		t.Fatalf("expected native timestamp, got %T", row["created_at"])
	}
	if row["description"] != nil {
		t.Fatalf("expected unset column to be NULL, got %v", row["description"])
	}
	if row["extra"] != `{"wifi":"yes"}` {
		t.Fatalf("expected unlisted attribute in extra, got %v", row["extra"])
	}
	if conn.Commits != 1 {
		t.Fatalf("expected one commit, got %d", conn.Commits)
	}
}

func TestReloadRebuildsEntities(t *testing.T) {
	ctx := context.Background()
	store, _ := newStubStore(t)
	review := domain.NewEntity(domain.ClassReview, domain.Now())
	review.Set("text", domain.StringValue("Great"))
	review.Set("stars", domain.IntValue(5))
	if err := store.New(review); err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Delete(review)
	if err := store.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := store.Get(domain.ClassReview, review.ID)
	if !ok {
		t.Fatalf("expected review to be reloaded")
	}
	if !got.Equal(review) {
		t.Fatalf("reloaded review differs:\nwant %s\ngot  %s", review, got)
	}
}

func TestSaveRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store, conn := newStubStore(t)
	state := domain.NewEntity(domain.ClassState, domain.Now())
	city := domain.NewEntity(domain.ClassCity, domain.Now())
	_ = store.New(state)
	_ = store.New(city)
	conn.FailTables = map[string]bool{"cities": true}
	if err := store.Save(ctx); err == nil {
		t.Fatalf("expected save failure")
	}
	if len(conn.Rows("states")) != 0 {
		t.Fatalf("expected partial write to be rolled back")
	}
	if conn.Rollbacks != 1 {
		t.Fatalf("expected one rollback, got %d", conn.Rollbacks)
	}
}

func TestDeleteRemovesRowOnSave(t *testing.T) {
	ctx := context.Background()
	store, conn := newStubStore(t)
	user := domain.NewEntity(domain.ClassUser, domain.Now())
	_ = store.New(user)
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !store.Delete(user) {
		t.Fatalf("expected delete")
	}
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(conn.Rows("users")) != 0 {
		t.Fatalf("expected user row deleted")
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailExec = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "", nil); err == nil {
		t.Fatalf("expected ping failure")
	}
}

func TestNewStoreOpenFailure(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	defer restore()
	if _, err := NewStore(context.Background(), "", nil); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected open failure, got %v", err)
	}
}

func TestIntegrationRoundTrip(t *testing.T) {
	dsn := os.Getenv("HBNB_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HBNB_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	amenity := domain.NewEntity(domain.ClassAmenity, domain.Now())
	amenity.Set("name", domain.StringValue("Wifi"))
	if err := amenity.Save(ctx, store, domain.Now()); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Cleanup(func() {
		store.Delete(amenity)
		_ = store.Save(ctx)
	})
	if err := store.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := store.Get(domain.ClassAmenity, amenity.ID)
	if !ok || !got.Equal(amenity) {
		t.Fatalf("round trip failed: %v", got)
	}

	place := domain.NewEntity(domain.ClassPlace, domain.Now())
	place.Set("name", domain.StringValue(strings.Repeat("x", 200)))
	place.Set("description", domain.StringValue(strings.Repeat("d", 5000)))
	place.Set("price_by_night", domain.IntValue(3000000000))
	if err := place.Save(ctx, store, domain.Now()); err != nil {
		t.Fatalf("save wide place: %v", err)
	}
	t.Cleanup(func() {
		store.Delete(place)
		_ = store.Save(ctx)
	})
	if err := store.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	gotPlace, ok := store.Get(domain.ClassPlace, place.ID)
	if !ok || !gotPlace.Equal(place) {
		t.Fatalf("wide place round trip failed: %v", gotPlace)
	}
}
