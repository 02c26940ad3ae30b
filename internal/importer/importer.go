// Package importer copies game headers from PGN files into the store
// and creates the player, event, time control, and mode records the
// games refer to.
package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/RogerMarsh/chesscalc/internal/pgn"
	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/report"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

// Options control an import run.
type Options struct {
	// Validate replays movetext and reports games whose outcome
	// contradicts the Result tag. Contradicting games are still
	// stored: the Result tag is the authority for calculations.
	Validate bool
}

// Summary accumulates counts over an import run.
type Summary struct {
	Files     int
	Read      int // games read from PGN files
	Copied    int // games stored
	Present   int // games already on the database
	NoResult  int // games skipped for want of a usable Result tag
	BadResult int // games whose movetext contradicts the Result tag
}

// Import scans the PGN files named by paths, directories walked
// recursively, into the store.
func Import(s store.Store, paths []string, opts Options, rpt *report.Reporter) (*Summary, error) {
	summary := &Summary{}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return summary, fmt.Errorf("import %s: %w", path, err)
		}
		if info.IsDir() {
			err = filepath.WalkDir(path, func(sub string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() || !pgn.IsPGNFile(sub) {
					return nil
				}
				return importFile(s, sub, opts, rpt, summary)
			})
			if err != nil {
				return summary, fmt.Errorf("import %s: %w", path, err)
			}
			continue
		}
		if !pgn.IsPGNFile(path) {
			rpt.Printf("%s is not a %s file", path, pgn.Ext)
			continue
		}
		if err := importFile(s, path, opts, rpt, summary); err != nil {
			return summary, fmt.Errorf("import %s: %w", path, err)
		}
	}
	rpt.Printf("%d games read, %d copied, %d already on database, %d without result",
		summary.Read, summary.Copied, summary.Present, summary.NoResult)
	if opts.Validate {
		rpt.Printf("%d games with movetext contradicting the result tag", summary.BadResult)
	}
	return summary, nil
}

func importFile(s store.Store, path string, opts Options, rpt *report.Reporter, summary *Summary) error {
	base := filepath.Base(path)
	rpt.Printf("extracting game headers from %s", base)

	text, err := pgn.ReadFile(path)
	if err != nil {
		return err
	}
	fileCount, err := s.GameCountForFile(base)
	if err != nil {
		return err
	}
	if fileCount > 0 {
		rpt.Printf("%d games from %s already on database: only missing game numbers will be copied",
			fileCount, base)
	}

	summary.Files++
	scanner := pgn.NewScanner(strings.NewReader(text))
	number := 0
	for {
		game, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w", base, err)
		}
		number++
		summary.Read++

		if fileCount > 0 {
			present, err := s.HasGame(base, number)
			if err != nil {
				return err
			}
			if present {
				summary.Present++
				continue
			}
		}

		result := game.Tags[records.TagResult]
		if !records.IsDecisiveOrDrawn(result) {
			summary.NoResult++
			if result == "" {
				rpt.Printf("no result tag in game %d in %s", number, base)
			} else {
				rpt.Printf("%s is result of game %d in %s", result, number, base)
			}
			continue
		}

		if opts.Validate {
			if err := pgn.ValidateMovetext(game); err != nil {
				summary.BadResult++
				rpt.Printf("game %d in %s: %v", number, base, err)
			}
		}

		rec := &records.Game{
			Ref:  records.GameRef{File: base, Number: number},
			Tags: game.Tags,
		}
		if err := s.PutGame(rec); err != nil {
			return err
		}
		if err := ensureReferences(s, rec); err != nil {
			return err
		}
		summary.Copied++
	}
	rpt.Printf("%d games read from %s", number, base)
	return nil
}

// ensureReferences creates the new player, event, time control, and
// mode records a stored game refers to, allocating identity codes for
// keys not seen before.
func ensureReferences(s store.Store, g *records.Game) error {
	for _, key := range []records.PlayerKey{g.WhiteKey(), g.BlackKey()} {
		if _, err := s.PlayerByKey(key); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		identity, err := s.NextIdentity(records.IdentityPlayer)
		if err != nil {
			return err
		}
		err = s.PutPlayer(&records.Player{
			Key:      key,
			Identity: identity,
			Alias:    identity,
		})
		if err != nil {
			return err
		}
	}

	items := []records.Item{
		{Kind: records.KindEvent, Key: g.EventKey().Encode()},
	}
	if tc := g.Tag(records.TagTimeControl); tc != "" {
		items = append(items, records.Item{Kind: records.KindTimeControl, Key: tc})
	}
	if mode := g.Tag(records.TagMode); mode != "" {
		items = append(items, records.Item{Kind: records.KindMode, Key: mode})
	}
	for _, it := range items {
		if _, err := s.ItemByKey(it.Kind, it.Key); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		identity, err := s.NextIdentity(records.IdentityKindFor(it.Kind))
		if err != nil {
			return err
		}
		it.Identity = identity
		it.Alias = identity
		if err := s.PutItem(&it); err != nil {
			return err
		}
	}
	return nil
}
