package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	base := t.TempDir()
	store, err := New(base, "briefs", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	key, err := store.Put(context.Background(), "job-1_a.pdf", []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if key != "job-1_a.pdf" {
		t.Fatalf("expected key to be returned, got %s", key)
	}
	if _, err := os.Stat(filepath.Join(base, "briefs", key)); err != nil {
		t.Fatalf("expected file inside bucket dir: %v", err)
	}

	data, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "%PDF-1.7" {
		t.Fatalf("unexpected content %q", data)
	}

	entries, _ := os.ReadDir(filepath.Join(base, "briefs"))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left behind, got %d entries", len(entries))
	}
}

func TestRejectsPathTraversal(t *testing.T) {
	store, err := New(t.TempDir(), "", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"../escape.pdf", "a/b.pdf", `a\b.pdf`, "..", ""} {
		if _, err := store.Put(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestGetMissingBlob(t *testing.T) {
	store, err := New(t.TempDir(), "", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "missing.pdf"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPublicURL(t *testing.T) {
	store, err := New(t.TempDir(), "uploads", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := store.PublicURL("a.pdf"); ok {
		t.Fatalf("expected no public url without base url")
	}

	store, err = New(t.TempDir(), "uploads", "https://files.example.com/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got, ok := store.PublicURL("job 1.pdf")
	if !ok || got != "https://files.example.com/uploads/job%201.pdf" {
		t.Fatalf("unexpected public url %q (ok=%v)", got, ok)
	}
}
