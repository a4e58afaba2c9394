package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalStorage_PutGetDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "http://files.test/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	url, err := s.Put(ctx, "projects/p1/main.go", strings.NewReader("package main"), 12, "text/plain")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "http://files.test/projects/p1/main.go" {
		t.Fatalf("url = %q", url)
	}

	rc, err := s.Get(ctx, "projects/p1/main.go")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	rc.Close()
	if string(b) != "package main" {
		t.Fatalf("content = %q", b)
	}

	if err := s.Delete(ctx, "projects/p1/main.go"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "projects/p1/main.go"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := s.Get(ctx, "projects/p1/main.go"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, _ := NewLocalStorage(t.TempDir(), "")
	if _, err := s.Put(context.Background(), "../escape.txt", strings.NewReader("x"), 1, ""); err == nil {
		t.Fatalf("traversal key should be rejected")
	}
}
