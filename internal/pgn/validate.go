package pgn

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// ValidateMovetext replays the game's SAN tokens and compares the
// reached outcome with the Result tag. It returns an error for SAN
// tokens which are illegal in the reached position, and for movetext
// whose decisive outcome contradicts the Result tag. Games abandoned
// before a decisive outcome validate against any result.
func ValidateMovetext(g *Game) error {
	replay := nchess.NewGame()
	for i, san := range g.Moves {
		if err := replay.PushNotationMove(san, nchess.AlgebraicNotation{}, nil); err != nil {
			return fmt.Errorf("move %d (%s): %w", i+1, san, err)
		}
	}
	result := g.Tags["Result"]
	switch replay.Outcome() {
	case nchess.WhiteWon:
		if result != "1-0" {
			return fmt.Errorf("movetext ends in white win, result tag is %q", result)
		}
	case nchess.BlackWon:
		if result != "0-1" {
			return fmt.Errorf("movetext ends in black win, result tag is %q", result)
		}
	case nchess.Draw:
		if result != "1/2-1/2" {
			return fmt.Errorf("movetext ends in a draw, result tag is %q", result)
		}
	}
	return nil
}
