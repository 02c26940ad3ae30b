package calc

import (
	"testing"

	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

// seedStore builds a database of three identified persons in a cycle
// of wins, plus one game against an unidentified player.
func seedStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(store.BackendBadger, t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	players := []struct {
		identity, name string
		known          bool
	}{
		{"1", "Ames", true},
		{"2", "Blake", true},
		{"3", "Cole", true},
		{"4", "Drew", false},
	}
	for _, p := range players {
		err := s.PutPlayer(&records.Player{
			Key:      records.PlayerKey{Name: p.name, Event: "Open"},
			Identity: p.identity,
			Alias:    p.identity,
			Known:    p.known,
		})
		if err != nil {
			t.Fatalf("put player: %v", err)
		}
	}

	games := []struct {
		number       int
		white, black string
		date         string
	}{
		{1, "Ames", "Blake", "2024.01.06"},
		{2, "Blake", "Cole", "2024.01.13"},
		{3, "Cole", "Ames", "2024.01.20"},
		{4, "Ames", "Drew", "2024.01.27"},
	}
	for _, g := range games {
		err := s.PutGame(&records.Game{
			Ref: records.GameRef{File: "open.pgn", Number: g.number},
			Tags: map[string]string{
				"Event": "Open", "Date": g.date,
				"White": g.white, "Black": g.black, "Result": "1-0",
			},
		})
		if err != nil {
			t.Fatalf("put game: %v", err)
		}
	}

	eventKey := records.EventKey{Event: "Open"}
	err = s.PutItem(&records.Item{
		Kind: records.KindEvent, Key: eventKey.Encode(),
		Identity: "1", Alias: "1",
	})
	if err != nil {
		t.Fatalf("put event: %v", err)
	}
	return s
}

func TestRunEventRule(t *testing.T) {
	s := seedStore(t)
	rule := &records.Selector{Name: "open", Events: []string{"1"}}
	result, err := Run(s, rule, DefaultMeasure, DefaultDelta)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.SelectedGames != 4 {
		t.Errorf("expected 4 selected games, got %d", result.SelectedGames)
	}
	if result.SkippedGames != 1 {
		t.Errorf("expected 1 skipped game for the unidentified player, got %d", result.SkippedGames)
	}
	if len(result.Populations) != 1 || len(result.NonConvergent) != 0 {
		t.Fatalf("expected one convergent population, got %d and %d non-convergent",
			len(result.Populations), len(result.NonConvergent))
	}

	pop := result.Populations[0]
	if len(pop.Persons) != 3 {
		t.Fatalf("expected 3 persons, got %d", len(pop.Persons))
	}
	// One win and one loss each: all performances are zero.
	for id, person := range pop.Persons {
		if person.Performance() != 0 {
			t.Errorf("person %s: expected performance 0, got %g", id, person.Performance())
		}
	}
	if !pop.Stable {
		t.Error("population should be marked stable")
	}
	if pop.Persons["1"].Name != "Ames" {
		t.Errorf("person 1 should carry the primary name, got %q", pop.Persons["1"].Name)
	}
}

func TestRunFixedInitialPerformance(t *testing.T) {
	s := seedStore(t)
	// Pinning Ames at 30 anchors the whole cycle: rewards cancel, so
	// Blake and Cole settle at the same level.
	rule := &records.Selector{
		Name: "anchored", Events: []string{"1"},
		Initials: map[string]float64{"1": 30},
	}
	result, err := Run(s, rule, DefaultMeasure, DefaultDelta)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Populations) != 1 {
		t.Fatalf("expected one population, got %d", len(result.Populations))
	}
	pop := result.Populations[0]
	if got := pop.Persons["1"].Performance(); got != 30 {
		t.Errorf("Ames should keep the fixed performance 30, got %g", got)
	}
	for _, id := range []string{"2", "3"} {
		got := pop.Persons[id].Performance()
		if got < 30-1e-6 || got > 30+1e-6 {
			t.Errorf("person %s should settle at 30, got %g", id, got)
		}
	}

	t.Run("UnknownIdentity", func(t *testing.T) {
		rule := &records.Selector{
			Name: "bad", Events: []string{"1"},
			Initials: map[string]float64{"99": 10},
		}
		if _, err := Run(s, rule, DefaultMeasure, DefaultDelta); err == nil {
			t.Error("expected error for fixed performance of unknown identity")
		}
	})
}

func TestRunPlayerRule(t *testing.T) {
	s := seedStore(t)
	rule := &records.Selector{Name: "blake", Player: "2"}
	result, err := Run(s, rule, DefaultMeasure, DefaultDelta)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Populations) != 1 {
		t.Fatalf("expected one population, got %d", len(result.Populations))
	}
	if len(result.Populations[0].Persons) != 3 {
		t.Errorf("expected Blake's population of 3, got %d", len(result.Populations[0].Persons))
	}
}

func TestRunDateRangeBreaksCycle(t *testing.T) {
	s := seedStore(t)
	// Excluding the third game leaves a tree: the iteration cannot
	// converge and the persons are reported instead.
	rule := &records.Selector{
		Name: "early", Events: []string{"1"},
		FromDate: "2024.01.01", ToDate: "2024.01.14",
	}
	result, err := Run(s, rule, DefaultMeasure, DefaultDelta)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.SelectedGames != 2 {
		t.Errorf("expected 2 selected games, got %d", result.SelectedGames)
	}
	if len(result.Populations) != 0 {
		t.Errorf("expected no convergent population, got %d", len(result.Populations))
	}
	if len(result.NonConvergent) != 1 || len(result.NonConvergent[0]) != 3 {
		t.Fatalf("expected one non-convergent population of 3, got %v", result.NonConvergent)
	}
}

func TestRunUnknownPerson(t *testing.T) {
	s := seedStore(t)
	rule := &records.Selector{Name: "missing", Player: "99"}
	if _, err := Run(s, rule, DefaultMeasure, DefaultDelta); err == nil {
		t.Error("expected error for unknown person identity")
	}
}
