package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataDirAndFilePathUseXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error: %v", err)
	}
	wantDir := filepath.Join(tmp, "poeditor-connector")
	if dir != wantDir {
		t.Fatalf("DataDir() = %q, want %q", dir, wantDir)
	}

	wantPath := filepath.Join(wantDir, "auth.json")
	if got := FilePath(); got != wantPath {
		t.Fatalf("FilePath() = %q, want %q", got, wantPath)
	}
}

func TestSaveLoadRemoveLifecycle(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	if err := SetToken("12345", "project-token"); err != nil {
		t.Fatalf("SetToken(12345) error: %v", err)
	}
	if err := SetToken("", "shared-token"); err != nil {
		t.Fatalf("SetToken(default) error: %v", err)
	}

	path := filepath.Join(tmp, "poeditor-connector", "auth.json")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat auth.json: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("auth.json mode = %o, want 600", info.Mode().Perm())
	}

	loaded := Load()
	if loaded["12345"] == nil || loaded["12345"].Token != "project-token" {
		t.Fatalf("Load() missing project token: %#v", loaded["12345"])
	}
	if loaded[DefaultKey] == nil || loaded[DefaultKey].Token != "shared-token" {
		t.Fatalf("Load() missing default token: %#v", loaded[DefaultKey])
	}

	if err := Remove("12345"); err != nil {
		t.Fatalf("Remove(12345) error: %v", err)
	}
	if got := Token("12345"); got != "" {
		t.Fatalf("Token after remove = %q, want empty", got)
	}
	if err := Remove("missing"); err != nil {
		t.Fatalf("Remove(missing) should be no-op, got: %v", err)
	}

	if err := RemoveAll(); err != nil {
		t.Fatalf("RemoveAll() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("auth.json should be removed, stat err=%v", err)
	}
	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() after RemoveAll should be empty, got=%#v", got)
	}
}

func TestResolveTokenFallsBackToDefault(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if got := ResolveToken("777"); got != "" {
		t.Fatalf("ResolveToken on empty store = %q, want empty", got)
	}

	if err := SetToken("", "shared"); err != nil {
		t.Fatalf("SetToken() error: %v", err)
	}
	if got := ResolveToken("777"); got != "shared" {
		t.Fatalf("ResolveToken(777) = %q, want default token", got)
	}

	if err := SetToken("777", "own"); err != nil {
		t.Fatalf("SetToken() error: %v", err)
	}
	if got := ResolveToken("777"); got != "own" {
		t.Fatalf("ResolveToken(777) = %q, want project token", got)
	}
}

func TestLoadIgnoresCorruptFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir := filepath.Join(tmp, "poeditor-connector")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "auth.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() with corrupt file = %#v, want empty store", got)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("short"); got != "****" {
		t.Fatalf("MaskKey(short) = %q, want ****", got)
	}
	if got := MaskKey("abcdefghijkl"); got != "abcd...ijkl" {
		t.Fatalf("MaskKey(long) = %q, want abcd...ijkl", got)
	}
}
