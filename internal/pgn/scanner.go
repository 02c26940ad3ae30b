// Package pgn scans PGN files into tag pairs and SAN move tokens.
//
// The scanner is deliberately tolerant: tag values are kept exactly as
// written because inconsistently tagged games are the normal input of
// this application. Only the structure of the file is enforced.
package pgn

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Termination markers ending the movetext of a game.
const (
	TerminationWhiteWin = "1-0"
	TerminationBlackWin = "0-1"
	TerminationDraw     = "1/2-1/2"
	TerminationUnknown  = "*"
)

// Game is one game scanned from a PGN file.
type Game struct {
	Tags        map[string]string
	Moves       []string // SAN tokens with numbers, comments, and variations removed
	Termination string
}

// Scanner reads games from a PGN stream one at a time.
type Scanner struct {
	r    *bufio.Reader
	line int
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Next returns the next game in the stream. It returns io.EOF when no
// games remain.
func (s *Scanner) Next() (*Game, error) {
	game := &Game{Tags: make(map[string]string)}

	// Tag pair section. Blank lines before the first tag are allowed.
	seenTag := false
	for {
		line, err := s.readLine()
		if err == io.EOF {
			if seenTag {
				return nil, fmt.Errorf("line %d: game has tags but no movetext", s.line)
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if seenTag {
				break
			}
			continue
		}
		if !strings.HasPrefix(trimmed, "[") {
			// Movetext reached, with or without a preceding blank line.
			return s.finishMovetext(game, trimmed)
		}
		key, value, err := parseTagPair(trimmed)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		game.Tags[key] = value
		seenTag = true
	}

	return s.finishMovetext(game, "")
}

// finishMovetext accumulates movetext tokens until a termination
// marker, starting from first (already-read text, may be empty).
func (s *Scanner) finishMovetext(game *Game, first string) (*Game, error) {
	var text strings.Builder
	text.WriteString(first)
	for {
		done, err := appendTokens(game, text.String())
		if done {
			return game, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		line, err := s.readLine()
		if err == io.EOF {
			return nil, errors.New("movetext ended without termination marker")
		}
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(strings.TrimSpace(line), "[") && balanced(text.String()) {
			return nil, fmt.Errorf("line %d: tag pair inside movetext", s.line)
		}
		text.WriteString("\n")
		text.WriteString(line)
	}
}

func (s *Scanner) readLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	s.line++
	return strings.TrimRight(line, "\r\n"), nil
}

// parseTagPair parses one `[Key "value"]` line. Escapes \" and \\ in
// the value are resolved. Values containing control characters are
// rejected: the NUL and unit separator delimit encoded composite keys
// and index entries.
func parseTagPair(line string) (string, string, error) {
	body := strings.TrimPrefix(line, "[")
	if !strings.HasSuffix(body, "]") {
		return "", "", fmt.Errorf("malformed tag pair %q", line)
	}
	body = strings.TrimSuffix(body, "]")
	open := strings.IndexByte(body, '"')
	if open < 0 {
		return "", "", fmt.Errorf("tag pair without value %q", line)
	}
	key := strings.TrimSpace(body[:open])
	if key == "" || strings.ContainsFunc(key, unicode.IsSpace) {
		return "", "", fmt.Errorf("malformed tag name %q", line)
	}
	raw := body[open+1:]
	var value strings.Builder
	escaped := false
	closed := false
	for _, r := range raw {
		if escaped {
			value.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case '"':
			closed = true
		default:
			if closed {
				return "", "", fmt.Errorf("text after tag value %q", line)
			}
			value.WriteRune(r)
		}
	}
	if !closed {
		return "", "", fmt.Errorf("unterminated tag value %q", line)
	}
	if strings.ContainsFunc(value.String(), func(r rune) bool { return r < ' ' }) {
		return "", "", fmt.Errorf("control character in tag value %q", line)
	}
	return key, value.String(), nil
}

// balanced reports whether text has no open comment or variation.
func balanced(text string) bool {
	depth := 0
	inComment := false
	for _, r := range text {
		switch {
		case inComment:
			if r == '}' {
				inComment = false
			}
		case r == '{':
			inComment = true
		case r == '(':
			depth++
		case r == ')':
			depth--
		}
	}
	return depth == 0 && !inComment
}

// appendTokens extracts SAN tokens from text into game, returning done
// when a termination marker is reached. It returns false with nil
// error when text ends inside a comment or variation and more input is
// needed.
func appendTokens(game *Game, text string) (bool, error) {
	if !balanced(text) {
		return false, nil
	}
	game.Moves = game.Moves[:0]
	depth := 0
	inComment := false
	inLineComment := false
	var token strings.Builder
	flush := func() (bool, error) {
		if token.Len() == 0 {
			return false, nil
		}
		tok := token.String()
		token.Reset()
		if depth > 0 {
			return false, nil
		}
		switch tok {
		case TerminationWhiteWin, TerminationBlackWin, TerminationDraw, TerminationUnknown:
			game.Termination = tok
			return true, nil
		}
		if strings.HasPrefix(tok, "$") {
			return false, nil
		}
		// Move numbers are digits followed by dots; annotation suffixes
		// like !? are not part of SAN.
		tok = strings.TrimRight(tok, ".")
		tok = strings.TrimRight(tok, "!?")
		if tok == "" || allDigits(tok) {
			return false, nil
		}
		game.Moves = append(game.Moves, tok)
		return false, nil
	}
	for _, r := range text {
		switch {
		case inLineComment:
			if r == '\n' {
				inLineComment = false
			}
		case inComment:
			if r == '}' {
				inComment = false
			}
		case r == '{':
			if done, err := flush(); done || err != nil {
				return done, err
			}
			inComment = true
		case r == ';':
			if done, err := flush(); done || err != nil {
				return done, err
			}
			inLineComment = true
		case r == '(':
			if done, err := flush(); done || err != nil {
				return done, err
			}
			depth++
		case r == ')':
			if done, err := flush(); done || err != nil {
				return done, err
			}
			depth--
		case unicode.IsSpace(r):
			if done, err := flush(); done || err != nil {
				return done, err
			}
		default:
			token.WriteRune(r)
		}
	}
	return flush()
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
