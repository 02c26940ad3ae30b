// Package store persists games, players, events, time controls,
// playing modes, and calculation rules.
//
// Two backends are provided: a BadgerDB key-value store and a SQLite
// store. Both implement Store; the backend is chosen by
// configuration.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RogerMarsh/chesscalc/internal/records"
)

// ErrNotFound is returned by lookups for absent records.
var ErrNotFound = errors.New("record not found")

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Store is the persistence interface shared by the importer, the
// identity resolution operations, and the performance calculation.
type Store interface {
	Close() error

	// Games. A game is identified by its source file and number.
	PutGame(g *records.Game) error
	HasGame(file string, number int) (bool, error)
	GameCountForFile(file string) (int, error)
	AllGames() ([]*records.Game, error)
	// GamesByDateRange returns games whose Date tag is within
	// [from, to], both in yyyy.mm.dd form. Empty bounds select all
	// games regardless of date.
	GamesByDateRange(from, to string) ([]*records.Game, error)
	GamesByPlayerKey(key records.PlayerKey) ([]*records.Game, error)
	GamesByEventKey(key records.EventKey) ([]*records.Game, error)
	// GamesByTag selects games on an indexed tag: TimeControl or Mode.
	GamesByTag(name, value string) ([]*records.Game, error)

	// Players.
	PutPlayer(p *records.Player) error
	PlayerByKey(key records.PlayerKey) (*records.Player, error)
	PlayerByIdentity(identity string) (*records.Player, error)
	// Players lists player records filtered on identification state.
	Players(known bool) ([]*records.Player, error)
	// PlayerAliases lists records whose alias is identity, the
	// primary record included.
	PlayerAliases(identity string) ([]*records.Player, error)

	// Events, time controls, and playing modes.
	PutItem(it *records.Item) error
	ItemByKey(kind records.ItemKind, key string) (*records.Item, error)
	ItemByIdentity(kind records.ItemKind, identity string) (*records.Item, error)
	Items(kind records.ItemKind, known bool) ([]*records.Item, error)
	ItemAliases(kind records.ItemKind, identity string) ([]*records.Item, error)

	// Calculation rules.
	PutSelector(sel *records.Selector) error
	SelectorByName(name string) (*records.Selector, error)
	Selectors() ([]*records.Selector, error)
	DeleteSelector(name string) error

	// NextIdentity allocates the next identity code of a kind.
	NextIdentity(kind records.IdentityKind) (string, error)
}

// validateGame rejects games whose tag values carry control
// characters. The key and index layouts of both backends use NUL and
// the unit separator as delimiters; the PGN scanner rejects such
// values, and games stored by other means must meet the same bound.
func validateGame(g *records.Game) error {
	for name, value := range g.Tags {
		if strings.ContainsFunc(value, func(r rune) bool { return r < ' ' }) {
			return fmt.Errorf("game %s: control character in tag %s", g.Ref, name)
		}
	}
	return nil
}

// Open opens the named backend with its data under dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendBadger:
		return OpenBadger(dir)
	case BackendSQLite:
		return OpenSQLite(dir)
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}

// GamesForPerson returns the games played by any alias of the person
// the given identity resolves to.
func GamesForPerson(s Store, identity string) ([]*records.Game, error) {
	player, err := s.PlayerByIdentity(identity)
	if err != nil {
		return nil, err
	}
	aliases, err := s.PlayerAliases(player.Alias)
	if err != nil {
		return nil, err
	}
	seen := make(map[records.GameRef]bool)
	var games []*records.Game
	for _, alias := range aliases {
		aliasGames, err := s.GamesByPlayerKey(alias.Key)
		if err != nil {
			return nil, err
		}
		for _, g := range aliasGames {
			if !seen[g.Ref] {
				seen[g.Ref] = true
				games = append(games, g)
			}
		}
	}
	return games, nil
}

// GamesForItem returns the games matching any alias of the event, time
// control, or mode the given identity resolves to.
func GamesForItem(s Store, kind records.ItemKind, identity string) ([]*records.Game, error) {
	item, err := s.ItemByIdentity(kind, identity)
	if err != nil {
		return nil, err
	}
	aliases, err := s.ItemAliases(kind, item.Alias)
	if err != nil {
		return nil, err
	}
	seen := make(map[records.GameRef]bool)
	var games []*records.Game
	for _, alias := range aliases {
		var aliasGames []*records.Game
		switch kind {
		case records.KindEvent:
			key, err := records.DecodeEventKey(alias.Key)
			if err != nil {
				return nil, err
			}
			aliasGames, err = s.GamesByEventKey(key)
			if err != nil {
				return nil, err
			}
		case records.KindTimeControl:
			aliasGames, err = s.GamesByTag(records.TagTimeControl, alias.Key)
			if err != nil {
				return nil, err
			}
		case records.KindMode:
			aliasGames, err = s.GamesByTag(records.TagMode, alias.Key)
			if err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown item kind %q", kind)
		}
		for _, g := range aliasGames {
			if !seen[g.Ref] {
				seen[g.Ref] = true
				games = append(games, g)
			}
		}
	}
	return games, nil
}
