package file

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"hbnb/internal/blob"
	"hbnb/pkg/domain"
)

func newFSStore(t *testing.T) (*Store, blob.Store) {
	t.Helper()
	medium, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	return NewStore(medium, "file.json", zaptest.NewLogger(t)), medium
}

func samplePlace() *domain.Entity {
	e := domain.NewEntity(domain.ClassPlace, domain.Now())
	e.Set("city_id", domain.StringValue("0001"))
	e.Set("name", domain.StringValue("My house"))
	e.Set("number_rooms", domain.IntValue(4))
	e.Set("latitude", domain.FloatValue(37.77))
	e.Set("longitude", domain.FloatValue(2))
	e.Set("nickname", domain.StringValue("cosy"))
	return e
}

func TestReloadWithoutDocumentIsNoop(t *testing.T) {
	store, _ := newFSStore(t)
	seed := domain.NewEntity(domain.ClassUser, domain.Now())
	if err := store.New(seed); err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if store.Count("") != 1 {
		t.Fatalf("expected cache untouched when no document exists")
	}
}

func TestSaveReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, medium := newFSStore(t)
	place := samplePlace()
	user := domain.NewEntity(domain.ClassUser, domain.Now())
	user.Set("email", domain.StringValue("a@b.c"))
	for _, e := range []*domain.Entity{place, user} {
		if err := store.New(e); err != nil {
			t.Fatalf("new: %v", err)
		}
	}
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := NewStore(medium, "file.json", nil)
	if err := reloaded.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got := reloaded.All("")
	want := []*domain.Entity{place, user}
	if diff := cmp.Diff(render(want), render(got)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("entity %d not identical after reload", i)
		}
	}
	lon, _ := got[0].Get("longitude")
	if lon.Kind() != domain.KindFloat {
		t.Fatalf("expected longitude to stay a float, got %v", lon.Kind())
	}
}

func TestDocumentLayout(t *testing.T) {
	ctx := context.Background()
	store, medium := newFSStore(t)
	place := samplePlace()
	if err := store.New(place); err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := medium.Get(ctx, "file.json")
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("document is not JSON: %v", err)
	}
	entry, ok := doc["Place."+place.ID]
	if !ok {
		t.Fatalf("expected key Place.%s in %s", place.ID, data)
	}
	if _, ok := entry[domain.KeyClass]; ok {
		t.Fatalf("class must come from the key, not the value")
	}
	if entry["id"] != place.ID || entry["city_id"] != "0001" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["created_at"] != domain.FormatTime(place.CreatedAt) {
		t.Fatalf("expected ISO created_at, got %v", entry["created_at"])
	}
}

func TestDeleteIsForgottenOnSave(t *testing.T) {
	ctx := context.Background()
	store, medium := newFSStore(t)
	a := domain.NewEntity(domain.ClassState, domain.Now())
	b := domain.NewEntity(domain.ClassState, domain.Now())
	_ = store.New(a)
	_ = store.New(b)
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Delete(a)
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded := NewStore(medium, "file.json", nil)
	if err := reloaded.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reloaded.Get(domain.ClassState, a.ID); ok {
		t.Fatalf("deleted entity came back")
	}
	if _, ok := reloaded.Get(domain.ClassState, b.ID); !ok {
		t.Fatalf("expected surviving entity")
	}
}

func TestReloadReplacesCache(t *testing.T) {
	ctx := context.Background()
	store, _ := newFSStore(t)
	kept := domain.NewEntity(domain.ClassCity, domain.Now())
	_ = store.New(kept)
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = store.New(domain.NewEntity(domain.ClassCity, domain.Now()))
	if err := store.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if store.Count("") != 1 {
		t.Fatalf("expected unsaved entity to be dropped by reload, got %d", store.Count(""))
	}
}

func TestDecodeDocumentErrors(t *testing.T) {
	cases := map[string]string{
		"not object":    `[1,2]`,
		"bad key":       `{"Town.1": {"id": "1"}}`,
		"id mismatch":   `{"User.1": {"id": "2", "created_at": "2017-09-28T21:03:54.052298", "updated_at": "2017-09-28T21:03:54.052298"}}`,
		"missing stamp": `{"User.1": {"id": "1"}}`,
		"truncated":     `{"User.1": {"id": "1",`,
	}
	for name, doc := range cases {
		if _, err := decodeDocument([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	entities, err := decodeDocument([]byte("  \n"))
	if err != nil || len(entities) != 0 {
		t.Fatalf("expected blank document to decode empty, got %v %v", entities, err)
	}
}

func TestWorksOnMemoryAndS3Media(t *testing.T) {
	ctx := context.Background()
	for name, medium := range map[string]blob.Store{
		"memory": blob.NewMemory(),
		"s3":     blob.NewMockS3ForTests(),
	} {
		store := NewStore(medium, "", nil)
		if store.Key() != DefaultKey {
			t.Fatalf("%s: expected default key", name)
		}
		e := samplePlace()
		_ = store.New(e)
		if err := store.Save(ctx); err != nil {
			t.Fatalf("%s: save: %v", name, err)
		}
		again := NewStore(medium, "", nil)
		if err := again.Reload(ctx); err != nil {
			t.Fatalf("%s: reload: %v", name, err)
		}
		got, ok := again.Get(domain.ClassPlace, e.ID)
		if !ok || !got.Equal(e) {
			t.Fatalf("%s: round trip failed", name)
		}
	}
}

func render(entities []*domain.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.String()
	}
	return out
}

func TestEncodeDocumentKeepsOrder(t *testing.T) {
	first := domain.NewEntity(domain.ClassUser, domain.Now())
	second := domain.NewEntity(domain.ClassAmenity, domain.Now())
	data, err := encodeDocument([]*domain.Entity{first, second})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	i := strings.Index(string(data), first.Key())
	j := strings.Index(string(data), second.Key())
	if i < 0 || j < 0 || i > j {
		t.Fatalf("expected insertion order in document:\n%s", data)
	}
}

func TestSaveOfEmptyCacheRemovesDocument(t *testing.T) {
	ctx := context.Background()
	store, medium := newFSStore(t)
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save without document: %v", err)
	}
	e := domain.NewEntity(domain.ClassReview, domain.Now())
	_ = store.New(e)
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Delete(e)
	if err := store.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := medium.Get(ctx, "file.json"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected document to be removed, got %v", err)
	}
	reloaded := NewStore(medium, "file.json", nil)
	if err := reloaded.Reload(ctx); err != nil || reloaded.Count("") != 0 {
		t.Fatalf("expected empty reload, got %d %v", reloaded.Count(""), err)
	}
}
