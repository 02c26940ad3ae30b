package pgn

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsPGNFile(t *testing.T) {
	for _, path := range []string{"games.pgn", "games.PGN", "dir/sub/club.Pgn"} {
		if !IsPGNFile(path) {
			t.Errorf("expected %q to be a pgn file", path)
		}
	}
	for _, path := range []string{"games.txt", "games", "pgn", "dir.pgn/games"} {
		if IsPGNFile(path) {
			t.Errorf("expected %q to be rejected", path)
		}
	}
}

func TestReadFileUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.pgn")
	content := "[White \"Kärger, L\"]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	text, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if text != content {
		t.Errorf("utf-8 content changed: %q", text)
	}
}

func TestReadFileLatin1Fallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.pgn")
	// 0xE4 is a-umlaut in ISO-8859-1 and invalid as UTF-8 here.
	raw := []byte("[White \"K\xe4rger, L\"]\n")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	text, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := "[White \"Kärger, L\"]\n"
	if text != want {
		t.Errorf("latin-1 fallback gave %q, want %q", text, want)
	}
}
