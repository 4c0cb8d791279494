package keycache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	if Hash("hello world") != Hash("hello world") {
		t.Error("Hash not deterministic")
	}
	if Hash("hello world") == Hash("different") {
		t.Error("Hash collision")
	}
}

func TestLoadNonExistent(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if c.Version != Version {
		t.Errorf("Version = %d, want %d", c.Version, Version)
	}
	if engines, keys := c.Stats(); engines != 0 || keys != 0 {
		t.Errorf("Stats = (%d, %d), want empty", engines, keys)
	}
}

func TestStoreLookup(t *testing.T) {
	c := New("")

	if _, ok := c.Lookup("google", "auto", "en", "Привет"); ok {
		t.Fatal("empty cache returned a hit")
	}

	c.Store("google", "auto", "en", "Привет", "hello")

	key, ok := c.Lookup("google", "auto", "en", "Привет")
	if !ok || key != "hello" {
		t.Errorf("Lookup = (%q, %v), want (\"hello\", true)", key, ok)
	}
	if _, ok := c.Lookup("gemini", "auto", "en", "Привет"); ok {
		t.Error("entries must be scoped per engine")
	}
	if _, ok := c.Lookup("google", "auto", "de", "Привет"); ok {
		t.Error("entries must be scoped per target language")
	}
}

func TestStoreSkipsEmptyKey(t *testing.T) {
	c := New("")
	c.Store("google", "auto", "en", "text", "")
	if _, keys := c.Stats(); keys != 0 {
		t.Errorf("keys = %d, want 0", keys)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Store("google", "auto", "en", "Привет", "hello")
	c.Store("google", "auto", "en", "Мир", "world")
	c.Store("openai", "ru", "en", "Мир", "world")

	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("cache file not created at %s: %v", path, err)
	}

	c2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	engines, keys := c2.Stats()
	if engines != 2 || keys != 3 {
		t.Errorf("Stats = (%d, %d), want (2, 3)", engines, keys)
	}
	if key, _ := c2.Lookup("google", "auto", "en", "Мир"); key != "world" {
		t.Errorf("Lookup after reload = %q, want world", key)
	}
}

func TestSaveWithoutChangesDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Error("unchanged cache should not be written")
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("version: 99\nkeys: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected an error for an unsupported version")
	}
}

func TestSaveWithoutPath(t *testing.T) {
	c := New("")
	c.Store("google", "auto", "en", "a", "b")
	if err := c.Save(); err == nil {
		t.Error("expected an error without a path")
	}
}
