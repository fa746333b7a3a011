package memory

import (
	"context"
	"errors"
	"testing"

	"hbnb/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, err := s.Get(ctx, "doc"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	payload := []byte("hello")
	if err := s.Put(ctx, "doc", payload); err != nil {
		t.Fatalf("put: %v", err)
	}
	payload[0] = 'j'
	got, err := s.Get(ctx, "doc")
	if err != nil || string(got) != "hello" {
		t.Fatalf("expected isolated copy, got %q %v", got, err)
	}
	got[0] = 'y'
	again, _ := s.Get(ctx, "doc")
	if string(again) != "hello" {
		t.Fatalf("expected returned slice to be a copy")
	}
	if ok, err := s.Delete(ctx, "doc"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := s.Delete(ctx, "doc"); err != nil || ok {
		t.Fatalf("second delete should be false")
	}
}
