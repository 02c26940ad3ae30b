package export

import (
	"path/filepath"
	"testing"

	"github.com/RogerMarsh/chesscalc/internal/identify"
	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(store.BackendBadger, t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func putPlayer(t *testing.T, s store.Store, identity, name, event string) {
	t.Helper()
	err := s.PutPlayer(&records.Player{
		Key:      records.PlayerKey{Name: name, Event: event},
		Identity: identity,
		Alias:    identity,
	})
	if err != nil {
		t.Fatalf("put player: %v", err)
	}
}

func TestExportImportPersons(t *testing.T) {
	src := newStore(t)
	putPlayer(t, src, "1", "Smith, J", "Open")
	putPlayer(t, src, "2", "Smith, John", "Rapid")
	putPlayer(t, src, "3", "Jones, P", "Open")
	if err := identify.PlayersAsPerson(src, "1", []string{"2"}); err != nil {
		t.Fatalf("identify: %v", err)
	}
	if err := identify.PlayersAsPerson(src, "3", nil); err != nil {
		t.Fatalf("identify: %v", err)
	}

	persons, err := ExportPersons(src, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(persons) != 2 {
		t.Fatalf("expected 2 persons, got %d", len(persons))
	}
	for _, keys := range persons {
		if keys[0].Name == "Smith, J" && len(keys) != 2 {
			t.Errorf("expected Smith with 2 aliases, got %v", keys)
		}
	}

	path := filepath.Join(t.TempDir(), "persons.json")
	if err := WriteFile(path, persons); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("round trip lost persons: %d", len(loaded))
	}

	// A second database with the same players, differently numbered,
	// plus one key the export does not mention.
	dst := newStore(t)
	putPlayer(t, dst, "7", "Smith, John", "Rapid")
	putPlayer(t, dst, "8", "Smith, J", "Open")
	putPlayer(t, dst, "9", "Other, X", "Open")

	applied, err := ImportPersons(dst, loaded, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Jones has no player records on the second database.
	if applied != 1 {
		t.Errorf("expected 1 person entry applied, got %d", applied)
	}

	smith, err := dst.PlayerByIdentity("8")
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	if !smith.Known {
		t.Errorf("Smith should be identified: %+v", smith)
	}
	alias, err := dst.PlayerByIdentity("7")
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	if !alias.Known || alias.Alias != smith.Alias {
		t.Errorf("both Smith records should share a person: %+v vs %+v", alias, smith)
	}
	other, err := dst.PlayerByIdentity("9")
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	if other.Known {
		t.Errorf("unrelated player should stay new: %+v", other)
	}
}

func TestExportEventPersons(t *testing.T) {
	s := newStore(t)
	putPlayer(t, s, "1", "Smith, J", "Open")
	putPlayer(t, s, "2", "Jones, P", "Open")
	putPlayer(t, s, "3", "Brown, K", "Rapid")
	putPlayer(t, s, "4", "Drew, A", "Open")
	for _, identity := range []string{"1", "2", "3"} {
		if err := identify.PlayersAsPerson(s, identity, nil); err != nil {
			t.Fatalf("identify: %v", err)
		}
	}

	games := []*records.Game{
		{
			Ref: records.GameRef{File: "open.pgn", Number: 1},
			Tags: map[string]string{
				"Event": "Open", "White": "Smith, J", "Black": "Jones, P", "Result": "1-0",
			},
		},
		{
			// Drew has not been identified and stays out of the export.
			Ref: records.GameRef{File: "open.pgn", Number: 2},
			Tags: map[string]string{
				"Event": "Open", "White": "Smith, J", "Black": "Drew, A", "Result": "1/2-1/2",
			},
		},
	}
	for _, g := range games {
		if err := s.PutGame(g); err != nil {
			t.Fatalf("put game: %v", err)
		}
	}
	err := s.PutItem(&records.Item{
		Kind: records.KindEvent, Key: records.EventKey{Event: "Open"}.Encode(),
		Identity: "1", Alias: "1",
	})
	if err != nil {
		t.Fatalf("put event: %v", err)
	}

	persons, err := ExportEventPersons(s, []string{"1"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(persons) != 2 {
		t.Fatalf("expected the 2 identified persons of the event, got %d", len(persons))
	}
	for _, keys := range persons {
		if keys[0].Name == "Brown, K" {
			t.Errorf("Brown played no game in the event: %v", persons)
		}
	}

	if _, err := ExportEventPersons(s, []string{"99"}); err == nil {
		t.Error("expected error for unknown event identity")
	}
}

func TestExportSelectedPerson(t *testing.T) {
	s := newStore(t)
	putPlayer(t, s, "1", "Smith, J", "Open")
	putPlayer(t, s, "2", "Smith, John", "Rapid")
	putPlayer(t, s, "3", "Jones, P", "Open")
	if err := identify.PlayersAsPerson(s, "1", []string{"2"}); err != nil {
		t.Fatalf("identify: %v", err)
	}
	if err := identify.PlayersAsPerson(s, "3", nil); err != nil {
		t.Fatalf("identify: %v", err)
	}

	// Naming an alias exports its person, once.
	persons, err := ExportPersons(s, []string{"2", "1"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(persons) != 1 {
		t.Fatalf("expected 1 person, got %d", len(persons))
	}
	if persons[0][0].Name != "Smith, J" {
		t.Errorf("primary key should come first, got %v", persons[0])
	}
}
