package pgn

import (
	"errors"
	"io"
	"strings"
	"testing"
)

const twoGames = `[Event "Club Championship"]
[Site "?"]
[Date "2023.10.14"]
[White "Smith, J"]
[Black "Jones, P"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 1-0

[Event "Club Championship"]
[White "Jones, P"]
[Black "Smith, J"]
[Result "1/2-1/2"]

1. d4 d5 1/2-1/2
`

func scanAll(t *testing.T, text string) []*Game {
	t.Helper()
	s := NewScanner(strings.NewReader(text))
	var games []*Game
	for {
		game, err := s.Next()
		if errors.Is(err, io.EOF) {
			return games
		}
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		games = append(games, game)
	}
}

func TestScannerTwoGames(t *testing.T) {
	games := scanAll(t, twoGames)
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	first := games[0]
	if first.Tags["White"] != "Smith, J" || first.Tags["Result"] != "1-0" {
		t.Errorf("unexpected tags: %v", first.Tags)
	}
	wantMoves := []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"}
	if len(first.Moves) != len(wantMoves) {
		t.Fatalf("expected %d moves, got %v", len(wantMoves), first.Moves)
	}
	for i, move := range wantMoves {
		if first.Moves[i] != move {
			t.Errorf("move %d: got %q, want %q", i, first.Moves[i], move)
		}
	}
	if first.Termination != TerminationWhiteWin {
		t.Errorf("unexpected termination %q", first.Termination)
	}
	if games[1].Termination != TerminationDraw {
		t.Errorf("unexpected termination %q", games[1].Termination)
	}
}

func TestScannerCommentsAndVariations(t *testing.T) {
	text := `[Event "Casual"]
[Result "0-1"]

1. e4 {the open games, 1-0 in the notes} e5 2. Nf3!?
(2. f4 exf4 {a gambit} 3. Nf3) 2... Nc6 ; a rest-of-line comment 1-0
3. Bb5 $1 0-1
`
	games := scanAll(t, text)
	if len(games) != 1 {
		t.Fatalf("expected 1 game, got %d", len(games))
	}
	game := games[0]
	wantMoves := []string{"e4", "e5", "Nf3", "Nc6", "Bb5"}
	if len(game.Moves) != len(wantMoves) {
		t.Fatalf("expected moves %v, got %v", wantMoves, game.Moves)
	}
	for i, move := range wantMoves {
		if game.Moves[i] != move {
			t.Errorf("move %d: got %q, want %q", i, game.Moves[i], move)
		}
	}
	if game.Termination != TerminationBlackWin {
		t.Errorf("termination marker inside comment or variation was honoured: %q", game.Termination)
	}
}

func TestScannerUnknownResult(t *testing.T) {
	text := `[Event "Adjourned"]
[Result "*"]

1. c4 *
`
	games := scanAll(t, text)
	if len(games) != 1 {
		t.Fatalf("expected 1 game, got %d", len(games))
	}
	if games[0].Termination != TerminationUnknown {
		t.Errorf("unexpected termination %q", games[0].Termination)
	}
}

func TestScannerMissingTermination(t *testing.T) {
	text := `[Event "Broken"]

1. e4 e5
`
	s := NewScanner(strings.NewReader(text))
	if _, err := s.Next(); err == nil {
		t.Error("expected error for movetext without termination marker")
	}
}

func TestParseTagPair(t *testing.T) {
	t.Run("Plain", func(t *testing.T) {
		key, value, err := parseTagPair(`[White "Smith, J"]`)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if key != "White" || value != "Smith, J" {
			t.Errorf("got %q=%q", key, value)
		}
	})

	t.Run("Escapes", func(t *testing.T) {
		_, value, err := parseTagPair(`[Event "The \"Open\" \\ section"]`)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if value != `The "Open" \ section` {
			t.Errorf("got %q", value)
		}
	})

	t.Run("EmptyValue", func(t *testing.T) {
		_, value, err := parseTagPair(`[Site ""]`)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if value != "" {
			t.Errorf("got %q", value)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, line := range []string{
			`[White Smith]`,
			`[White "Smith]`,
			`[White "Smith" extra]`,
			`[ "Smith"]`,
			`[White "Smith"`,
		} {
			if _, _, err := parseTagPair(line); err == nil {
				t.Errorf("expected error for %q", line)
			}
		}
	})

	t.Run("ControlCharacter", func(t *testing.T) {
		// NUL and the unit separator delimit stored keys and index
		// entries; both backends depend on their absence.
		for _, line := range []string{
			"[White \"Smith\x1fJones\"]",
			"[Date \"2024.01\x00a\"]",
			"[Event \"Open\x07\"]",
		} {
			if _, _, err := parseTagPair(line); err == nil {
				t.Errorf("expected control character to be rejected in %q", line)
			}
		}
	})
}

func TestScannerTagsWithoutMovetext(t *testing.T) {
	s := NewScanner(strings.NewReader("[Event \"Lost\"]\n"))
	if _, err := s.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("expected scan error, got %v", err)
	}
}
