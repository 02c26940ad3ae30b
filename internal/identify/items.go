package identify

import (
	"fmt"

	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

// ItemsAsOne makes the named new items aliases of the item the
// identity record resolves to. Events, time controls, and modes share
// the identification model with players; only the record kind differs.
func ItemsAsOne(s store.Store, kind records.ItemKind, identity string, itemIdentities []string) error {
	primary, err := s.ItemByIdentity(kind, identity)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, identity, err)
	}
	target := primary.Alias

	items := make([]*records.Item, 0, len(itemIdentities))
	for _, id := range itemIdentities {
		if id == primary.Identity {
			continue
		}
		item, err := s.ItemByIdentity(kind, id)
		if err != nil {
			return fmt.Errorf("%s %s: %w", kind, id, err)
		}
		if item.Known {
			return fmt.Errorf("%s %s (%s): %w", kind, id, item.Key, ErrAlreadyIdentified)
		}
		items = append(items, item)
	}

	if !primary.Known {
		primary.Known = true
		if err := s.PutItem(primary); err != nil {
			return err
		}
	}
	for _, item := range items {
		item.Alias = target
		item.Known = true
		if err := s.PutItem(item); err != nil {
			return err
		}
	}
	return nil
}

// SplitItem dissolves an identified item: every alias, the primary
// included, becomes a separate new record again.
func SplitItem(s store.Store, kind records.ItemKind, identity string) error {
	primary, err := s.ItemByIdentity(kind, identity)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, identity, err)
	}
	if !primary.IsPrimary() {
		return fmt.Errorf("%s %s: %w", kind, identity, ErrNotPrimary)
	}
	aliases, err := s.ItemAliases(kind, primary.Identity)
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		alias.Alias = alias.Identity
		alias.Known = false
		if err := s.PutItem(alias); err != nil {
			return err
		}
	}
	return nil
}

// BreakItemAliases detaches the chosen aliases from an identified
// item; the primary keeps the rest.
func BreakItemAliases(s store.Store, kind records.ItemKind, identity string, aliasIdentities []string) error {
	primary, err := s.ItemByIdentity(kind, identity)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, identity, err)
	}
	if !primary.IsPrimary() {
		return fmt.Errorf("%s %s: %w", kind, identity, ErrNotPrimary)
	}
	aliases := make([]*records.Item, 0, len(aliasIdentities))
	for _, id := range aliasIdentities {
		alias, err := s.ItemByIdentity(kind, id)
		if err != nil {
			return fmt.Errorf("%s %s: %w", kind, id, err)
		}
		if alias.Identity == primary.Identity || alias.Alias != primary.Identity {
			return fmt.Errorf("%s %s: %w", kind, id, ErrNotAlias)
		}
		aliases = append(aliases, alias)
	}
	for _, alias := range aliases {
		alias.Alias = alias.Identity
		alias.Known = false
		if err := s.PutItem(alias); err != nil {
			return err
		}
	}
	return nil
}

// ChangeIdentifiedItem moves the primary role to the chosen alias.
func ChangeIdentifiedItem(s store.Store, kind records.ItemKind, aliasIdentity string) error {
	chosen, err := s.ItemByIdentity(kind, aliasIdentity)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, aliasIdentity, err)
	}
	if !chosen.Known {
		return fmt.Errorf("%s %s: not an identified record", kind, aliasIdentity)
	}
	if chosen.IsPrimary() {
		return fmt.Errorf("%s %s: %w", kind, aliasIdentity, ErrAlreadyPrimary)
	}
	aliases, err := s.ItemAliases(kind, chosen.Alias)
	if err != nil {
		return err
	}
	for _, alias := range aliases {
		alias.Alias = chosen.Identity
		if err := s.PutItem(alias); err != nil {
			return err
		}
	}
	chosen.Alias = chosen.Identity
	return s.PutItem(chosen)
}
