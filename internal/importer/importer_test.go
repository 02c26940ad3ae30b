package importer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/report"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

const clubGames = `[Event "Club Championship"]
[Date "2023.10.14"]
[White "Smith, J"]
[Black "Jones, P"]
[Result "1-0"]
[TimeControl "90+30"]

1. e4 e5 2. Nf3 1-0

[Event "Club Championship"]
[Date "2023.10.21"]
[White "Jones, P"]
[Black "Brown, K"]
[Result "*"]

1. d4 *

[Event "Club Championship"]
[Date "2023.10.28"]
[White "Brown, K"]
[Black "Smith, J"]
[Result "1/2-1/2"]

1. c4 c5 1/2-1/2
`

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(store.BackendBadger, t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writePGN(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write pgn: %v", err)
	}
	return path
}

func TestImport(t *testing.T) {
	s := newStore(t)
	dir := t.TempDir()
	path := writePGN(t, dir, "club.pgn", clubGames)

	summary, err := Import(s, []string{path}, Options{}, nil)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if summary.Read != 3 || summary.Copied != 2 || summary.NoResult != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	t.Run("GamesStored", func(t *testing.T) {
		count, err := s.GameCountForFile("club.pgn")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 stored games, got %d", count)
		}
		// The unfinished game keeps its number: game 2 is absent.
		present, err := s.HasGame("club.pgn", 2)
		if err != nil {
			t.Fatalf("has game: %v", err)
		}
		if present {
			t.Error("game without a result should not be stored")
		}
	})

	t.Run("PlayersCreated", func(t *testing.T) {
		players, err := s.Players(false)
		if err != nil {
			t.Fatalf("players: %v", err)
		}
		// Smith, Jones, and Brown from the two stored games. Jones
		// appears only in the skipped game as white, but also as
		// black in game 1.
		if len(players) != 3 {
			t.Errorf("expected 3 new players, got %d", len(players))
		}
		for _, p := range players {
			if p.Known || p.Alias != p.Identity {
				t.Errorf("imported player should be new: %+v", p)
			}
		}
	})

	t.Run("ItemsCreated", func(t *testing.T) {
		events, err := s.Items(records.KindEvent, false)
		if err != nil {
			t.Fatalf("items: %v", err)
		}
		if len(events) != 1 {
			t.Errorf("expected 1 event record, got %d", len(events))
		}
		times, err := s.Items(records.KindTimeControl, false)
		if err != nil {
			t.Fatalf("items: %v", err)
		}
		if len(times) != 1 || times[0].Key != "90+30" {
			t.Errorf("expected the 90+30 time control, got %v", times)
		}
		// No game carries a Mode tag.
		modes, err := s.Items(records.KindMode, false)
		if err != nil {
			t.Fatalf("items: %v", err)
		}
		if len(modes) != 0 {
			t.Errorf("expected no mode records, got %v", modes)
		}
	})

	t.Run("ReimportCopiesOnlyMissing", func(t *testing.T) {
		extended := clubGames + `
[Event "Club Championship"]
[Date "2023.11.04"]
[White "Smith, J"]
[Black "Brown, K"]
[Result "0-1"]

1. f4 e5 0-1
`
		path := writePGN(t, dir, "club.pgn", extended)
		summary, err := Import(s, []string{path}, Options{}, nil)
		if err != nil {
			t.Fatalf("reimport failed: %v", err)
		}
		if summary.Read != 4 || summary.Copied != 1 || summary.Present != 2 {
			t.Errorf("unexpected reimport summary: %+v", summary)
		}
		count, err := s.GameCountForFile("club.pgn")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 3 {
			t.Errorf("expected 3 stored games after reimport, got %d", count)
		}
	})
}

func TestImportDirectory(t *testing.T) {
	s := newStore(t)
	dir := t.TempDir()
	writePGN(t, dir, "club.pgn", clubGames)
	writePGN(t, dir, "notes.txt", "not a pgn file")

	summary, err := Import(s, []string{dir}, Options{}, nil)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if summary.Files != 1 || summary.Copied != 2 {
		t.Errorf("expected only the .pgn file imported: %+v", summary)
	}
}

func TestImportValidate(t *testing.T) {
	s := newStore(t)
	dir := t.TempDir()
	// Movetext reaches a white checkmate but the tag says black won.
	bad := `[Event "Casual"]
[White "Smith, J"]
[Black "Jones, P"]
[Result "0-1"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 0-1
`
	path := writePGN(t, dir, "bad.pgn", bad)

	var out bytes.Buffer
	summary, err := Import(s, []string{path}, Options{Validate: true}, report.New(&out))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if summary.BadResult != 1 {
		t.Errorf("expected 1 contradicting game, got %+v", summary)
	}
	// The Result tag stays authoritative: the game is stored.
	if summary.Copied != 1 {
		t.Errorf("contradicting game should still be stored: %+v", summary)
	}
	if !strings.Contains(out.String(), "1 games with movetext contradicting the result tag") {
		t.Errorf("validation count missing from report:\n%s", out.String())
	}
}

func TestImportMissingFile(t *testing.T) {
	s := newStore(t)
	if _, err := Import(s, []string{"/no/such/file.pgn"}, Options{}, nil); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Import(s, nil, Options{}, nil); err != nil {
		t.Errorf("empty path list should not fail: %v", err)
	}
}

func TestEnsureReferencesIdempotent(t *testing.T) {
	s := newStore(t)
	g := &records.Game{
		Ref: records.GameRef{File: "x.pgn", Number: 1},
		Tags: map[string]string{
			"Event": "Open", "White": "A", "Black": "B", "Result": "1-0",
		},
	}
	for i := 0; i < 2; i++ {
		if err := ensureReferences(s, g); err != nil {
			t.Fatalf("ensure references: %v", err)
		}
	}
	players, err := s.Players(false)
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(players) != 2 {
		t.Errorf("expected 2 players after repeat, got %d", len(players))
	}
	if _, err := s.PlayerByIdentity("3"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("identity counter should not have advanced past 2: %v", err)
	}
}
