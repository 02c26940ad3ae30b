// Package identify applies identity resolution to player, event, time
// control, and mode records.
//
// PGN tag values are inconsistent: the same person appears under
// differently spelled names, the same event under several titles, the
// same rate of play under several TimeControl values. Identification
// marks one record as the primary and makes the others aliases of it;
// the calculation then treats all aliases as one entity. Every
// operation validates completely before writing so a rejected request
// leaves the store unchanged.
package identify

import (
	"errors"
	"fmt"

	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

// Errors reported for requests that contradict the current
// identification state.
var (
	ErrAlreadyIdentified = errors.New("record is already identified")
	ErrNotPrimary        = errors.New("selection is not the identified record")
	ErrAlreadyPrimary    = errors.New("selection is already the identified record")
	ErrNotAlias          = errors.New("record is not an alias of the selection")
)

// PlayersAsPerson makes the named new players aliases of the person
// the personIdentity record resolves to. A new record chosen as the
// person becomes an identified person itself.
func PlayersAsPerson(s store.Store, personIdentity string, playerIdentities []string) error {
	person, err := s.PlayerByIdentity(personIdentity)
	if err != nil {
		return fmt.Errorf("person %s: %w", personIdentity, err)
	}
	target := person.Alias

	players := make([]*records.Player, 0, len(playerIdentities))
	for _, identity := range playerIdentities {
		if identity == person.Identity {
			continue
		}
		player, err := s.PlayerByIdentity(identity)
		if err != nil {
			return fmt.Errorf("player %s: %w", identity, err)
		}
		if player.Known {
			return fmt.Errorf("player %s (%s): %w", identity, player.Key.Name, ErrAlreadyIdentified)
		}
		players = append(players, player)
	}

	if !person.Known {
		person.Known = true
		if err := s.PutPlayer(person); err != nil {
			return err
		}
	}
	for _, player := range players {
		player.Alias = target
		player.Known = true
		if err := s.PutPlayer(player); err != nil {
			return err
		}
	}
	return nil
}

// PlayersByNameAsPerson makes every new player whose name matches one
// of names an alias of the person the personIdentity record resolves
// to. With no names given the person's own name is used: the common
// case of the same player tagged identically across several events.
func PlayersByNameAsPerson(s store.Store, personIdentity string, names []string) error {
	person, err := s.PlayerByIdentity(personIdentity)
	if err != nil {
		return fmt.Errorf("person %s: %w", personIdentity, err)
	}
	if len(names) == 0 {
		names = []string{person.Key.Name}
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	newPlayers, err := s.Players(false)
	if err != nil {
		return err
	}
	var matched []string
	for _, player := range newPlayers {
		if player.Identity != person.Identity && wanted[player.Key.Name] {
			matched = append(matched, player.Identity)
		}
	}
	return PlayersAsPerson(s, personIdentity, matched)
}

// SplitPerson dissolves a person entirely: every alias, the primary
// record included, becomes a separate new player again. The selection
// must be the primary record.
func SplitPerson(s store.Store, personIdentity string) error {
	person, err := s.PlayerByIdentity(personIdentity)
	if err != nil {
		return fmt.Errorf("person %s: %w", personIdentity, err)
	}
	if !person.IsPrimary() {
		return fmt.Errorf("person %s: %w", personIdentity, ErrNotPrimary)
	}
	aliases, err := s.PlayerAliases(person.Identity)
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		alias.Alias = alias.Identity
		alias.Known = false
		if err := s.PutPlayer(alias); err != nil {
			return err
		}
	}
	return nil
}

// BreakAliases detaches the chosen aliases from a person; the primary
// keeps the rest. The selection must be the primary record and each
// chosen record one of its aliases.
func BreakAliases(s store.Store, personIdentity string, aliasIdentities []string) error {
	person, err := s.PlayerByIdentity(personIdentity)
	if err != nil {
		return fmt.Errorf("person %s: %w", personIdentity, err)
	}
	if !person.IsPrimary() {
		return fmt.Errorf("person %s: %w", personIdentity, ErrNotPrimary)
	}
	aliases := make([]*records.Player, 0, len(aliasIdentities))
	for _, identity := range aliasIdentities {
		alias, err := s.PlayerByIdentity(identity)
		if err != nil {
			return fmt.Errorf("alias %s: %w", identity, err)
		}
		if alias.Identity == person.Identity || alias.Alias != person.Identity {
			return fmt.Errorf("alias %s: %w", identity, ErrNotAlias)
		}
		aliases = append(aliases, alias)
	}
	for _, alias := range aliases {
		alias.Alias = alias.Identity
		alias.Known = false
		if err := s.PutPlayer(alias); err != nil {
			return err
		}
	}
	return nil
}

// ChangeIdentifiedPerson moves the primary role to the chosen alias:
// every alias of the person, the old primary included, repoints to the
// chosen record's identity.
func ChangeIdentifiedPerson(s store.Store, aliasIdentity string) error {
	chosen, err := s.PlayerByIdentity(aliasIdentity)
	if err != nil {
		return fmt.Errorf("player %s: %w", aliasIdentity, err)
	}
	if !chosen.Known {
		return fmt.Errorf("player %s: not an identified person", aliasIdentity)
	}
	if chosen.IsPrimary() {
		return fmt.Errorf("player %s: %w", aliasIdentity, ErrAlreadyPrimary)
	}
	aliases, err := s.PlayerAliases(chosen.Alias)
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		alias.Alias = chosen.Identity
		if err := s.PutPlayer(alias); err != nil {
			return err
		}
	}
	chosen.Alias = chosen.Identity
	return s.PutPlayer(chosen)
}
