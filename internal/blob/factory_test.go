package blob

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Options{Root: filepath.Join(t.TempDir(), "data")})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("expected fs default, got %s", fsStore.Driver())
	}
	mem, err := Open(ctx, Options{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, err := mem.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := Open(ctx, Options{Driver: DriverS3}); err == nil {
		t.Fatalf("expected s3 without bucket to fail")
	}
	if _, err := Open(ctx, Options{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestMockS3SatisfiesStore(t *testing.T) {
	ctx := context.Background()
	var s Store = NewMockS3ForTests()
	if err := s.Put(ctx, "doc.json", []byte("{}")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "doc.json")
	if err != nil || string(got) != "{}" {
		t.Fatalf("get: %q %v", got, err)
	}
}
