package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.Get(KeyLang); ok {
		t.Fatal("expected empty store")
	}

	if err := s.Set(KeyLang, "ru"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeyTheme, "light"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := s.Get(KeyLang); v != "ru" {
		t.Fatalf("lang = %q", v)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, _ := reopened.Get(KeyTheme); v != "light" {
		t.Fatalf("theme after reopen = %q", v)
	}
	if keys := reopened.Keys(); len(keys) != 2 || keys[0] != KeyLang {
		t.Fatalf("keys = %v", keys)
	}

	if err := s.Remove(KeyTheme); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := reopened.Get(KeyTheme); ok {
		t.Fatal("removal not visible to other store")
	}
}

func TestStoreCorruptFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("expected no keys, got %v", s.Keys())
	}
	if err := s.Set(KeyLang, "en"); err != nil {
		t.Fatalf("Set over corrupt file: %v", err)
	}
}

func TestSubscribeReportsOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	watcher, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	writer, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	var got []Change
	cancel := watcher.Subscribe(func(c Change) { got = append(got, c) })
	defer cancel()

	if err := writer.Set(KeyLang, "ru"); err != nil {
		t.Fatal(err)
	}
	if err := watcher.Refresh(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Key != KeyLang || got[0].NewValue != "ru" {
		t.Fatalf("changes = %+v", got)
	}

	// own writes are silent
	if err := watcher.Set(KeyTheme, "dark"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("own write reported: %+v", got)
	}
}
