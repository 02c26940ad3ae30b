// Package export moves person identifications between databases.
//
// An export file holds, for each person, the player keys of every
// alias with the primary record's key first. Applying the file to
// another database repeats the identifications for whichever of those
// players exist there, so identification work done once can be shared.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/RogerMarsh/chesscalc/internal/identify"
	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/report"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

// Persons is the export file content: one entry per person, each the
// player keys of the person's aliases, primary first.
type Persons [][]records.PlayerKey

// ExportPersons collects the alias keys of the persons the given
// identities resolve to. No identities collects every person on the
// database.
func ExportPersons(s store.Store, identities []string) (Persons, error) {
	if len(identities) == 0 {
		known, err := s.Players(true)
		if err != nil {
			return nil, err
		}
		for _, player := range known {
			if player.IsPrimary() {
				identities = append(identities, player.Identity)
			}
		}
	}

	exported := make(map[string]bool, len(identities))
	var persons Persons
	for _, identity := range identities {
		player, err := s.PlayerByIdentity(identity)
		if err != nil {
			return nil, fmt.Errorf("person %s: %w", identity, err)
		}
		if exported[player.Alias] {
			continue
		}
		exported[player.Alias] = true

		aliases, err := s.PlayerAliases(player.Alias)
		if err != nil {
			return nil, err
		}
		keys := make([]records.PlayerKey, 0, len(aliases))
		for _, alias := range aliases {
			if alias.IsPrimary() {
				keys = append([]records.PlayerKey{alias.Key}, keys...)
			} else {
				keys = append(keys, alias.Key)
			}
		}
		persons = append(persons, keys)
	}
	return persons, nil
}

// ExportEventPersons collects the persons who played in the chosen
// events' games, each with the alias keys of the whole person.
func ExportEventPersons(s store.Store, eventIdentities []string) (Persons, error) {
	seen := make(map[string]bool)
	var identities []string
	for _, identity := range eventIdentities {
		games, err := store.GamesForItem(s, records.KindEvent, identity)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", identity, err)
		}
		for _, g := range games {
			for _, key := range []records.PlayerKey{g.WhiteKey(), g.BlackKey()} {
				player, err := s.PlayerByKey(key)
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				if !player.Known || seen[player.Alias] {
					continue
				}
				seen[player.Alias] = true
				identities = append(identities, player.Alias)
			}
		}
	}
	if len(identities) == 0 {
		return nil, nil
	}
	return ExportPersons(s, identities)
}

// WriteFile writes persons to path as JSON.
func WriteFile(path string, persons Persons) error {
	data, err := json.MarshalIndent(persons, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// ReadFile reads an export file written by WriteFile.
func ReadFile(path string) (Persons, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var persons Persons
	if err := json.Unmarshal(data, &persons); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return persons, nil
}

// ImportPersons applies exported identifications to the database.
// Keys with no player record here are skipped; players already
// identified keep their person. Returns the number of person entries
// applied.
func ImportPersons(s store.Store, persons Persons, rpt *report.Reporter) (int, error) {
	applied := 0
	for _, keys := range persons {
		target := ""
		var newPlayers []string
		for _, key := range keys {
			player, err := s.PlayerByKey(key)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return applied, err
			}
			if player.Known {
				if target == "" {
					target = player.Identity
				}
				continue
			}
			newPlayers = append(newPlayers, player.Identity)
		}
		if len(newPlayers) == 0 {
			continue
		}
		if target == "" {
			target = newPlayers[0]
			newPlayers = newPlayers[1:]
		}
		if err := identify.PlayersAsPerson(s, target, newPlayers); err != nil {
			return applied, err
		}
		applied++
		rpt.Printf("identified %d players as person %s", len(newPlayers)+1, target)
	}
	return applied, nil
}
