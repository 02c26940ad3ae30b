package calc

import (
	"errors"
	"fmt"
	"time"

	"github.com/RogerMarsh/chesscalc/internal/records"
	"github.com/RogerMarsh/chesscalc/internal/store"
)

// Calculation defaults.
const (
	DefaultMeasure = 50
	DefaultDelta   = 1e-12
	DefaultLimit   = 40

	// maxIterations bounds IterateUntilStable for populations the
	// convergence check wrongly admits, such as long cycles whose
	// results happen to oscillate.
	maxIterations = 100000
)

// Rule validation errors.
var (
	ErrRulePlayerAndEvents = errors.New("rule names both a player and events")
	ErrRuleNoSelection     = errors.New("rule names neither a player nor events")
	ErrRuleOneDate         = errors.New("rule names only one of from and to dates")
)

// Result holds the outcome of a calculation run.
type Result struct {
	Rule          *records.Selector
	SelectedGames int
	// SkippedGames counts selected games left out because a player
	// has not been identified as a person.
	SkippedGames int
	Populations  []*Population
	// NonConvergent lists the persons of populations whose iteration
	// cannot converge; their performances are not calculated.
	NonConvergent [][]*Person
}

// ValidateRule checks a calculation rule for contradictions and
// normalizes its dates to yyyy.mm.dd form.
func ValidateRule(rule *records.Selector) error {
	if rule.Player != "" && len(rule.Events) > 0 {
		return ErrRulePlayerAndEvents
	}
	if rule.Player == "" && len(rule.Events) == 0 {
		return ErrRuleNoSelection
	}
	if (rule.FromDate == "") != (rule.ToDate == "") {
		return ErrRuleOneDate
	}
	for _, date := range []*string{&rule.FromDate, &rule.ToDate} {
		if *date == "" {
			continue
		}
		normalized, err := NormalizeDate(*date)
		if err != nil {
			return err
		}
		*date = normalized
	}
	return nil
}

// NormalizeDate converts a date in yyyy-mm-dd or yyyy.mm.dd form to
// the yyyy.mm.dd form the Date tag uses.
func NormalizeDate(date string) (string, error) {
	for _, layout := range []string{"2006-01-02", "2006.01.02"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.Format("2006.01.02"), nil
		}
	}
	return "", fmt.Errorf("date %q is not yyyy-mm-dd or yyyy.mm.dd", date)
}

// SelectGames returns the games a rule selects: the intersection of
// its date range, time control, mode, and event criteria. An absent
// criterion selects all games.
func SelectGames(s store.Store, rule *records.Selector) ([]*records.Game, error) {
	games, err := s.GamesByDateRange(rule.FromDate, rule.ToDate)
	if err != nil {
		return nil, err
	}
	if rule.TimeControl != "" {
		timeGames, err := store.GamesForItem(s, records.KindTimeControl, rule.TimeControl)
		if err != nil {
			return nil, err
		}
		games = intersect(games, timeGames)
	}
	if rule.Mode != "" {
		modeGames, err := store.GamesForItem(s, records.KindMode, rule.Mode)
		if err != nil {
			return nil, err
		}
		games = intersect(games, modeGames)
	}
	if len(rule.Events) > 0 {
		var eventGames []*records.Game
		for _, identity := range rule.Events {
			identityGames, err := store.GamesForItem(s, records.KindEvent, identity)
			if err != nil {
				return nil, err
			}
			eventGames = union(eventGames, identityGames)
		}
		games = intersect(games, eventGames)
	}
	return games, nil
}

func intersect(a, b []*records.Game) []*records.Game {
	refs := make(map[records.GameRef]bool, len(b))
	for _, g := range b {
		refs[g.Ref] = true
	}
	var out []*records.Game
	for _, g := range a {
		if refs[g.Ref] {
			out = append(out, g)
		}
	}
	return out
}

func union(a, b []*records.Game) []*records.Game {
	refs := make(map[records.GameRef]bool, len(a))
	for _, g := range a {
		refs[g.Ref] = true
	}
	for _, g := range b {
		if !refs[g.Ref] {
			refs[g.Ref] = true
			a = append(a, g)
		}
	}
	return a
}

// Run selects games for a rule, builds the person populations they
// link, and iterates each convergent population to stable performance
// values.
func Run(s store.Store, rule *records.Selector, measure, delta float64) (*Result, error) {
	if err := ValidateRule(rule); err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.Name, err)
	}
	games, err := SelectGames(s, rule)
	if err != nil {
		return nil, err
	}

	result := &Result{Rule: rule, SelectedGames: len(games)}
	edges, names, err := resolveEdges(s, games, &result.SkippedGames)
	if err != nil {
		return nil, err
	}

	// Fixed performances are given by player identity; resolve each to
	// its person.
	initials := make(map[string]float64, len(rule.Initials))
	for identity, value := range rule.Initials {
		player, err := s.PlayerByIdentity(identity)
		if err != nil {
			return nil, fmt.Errorf("fixed performance for %s: %w", identity, err)
		}
		initials[player.Alias] = value
	}

	var parts []map[string]bool
	if rule.Player != "" {
		player, err := s.PlayerByIdentity(rule.Player)
		if err != nil {
			return nil, fmt.Errorf("person %s: %w", rule.Player, err)
		}
		part, err := componentContaining(edges, player.Alias)
		if err != nil {
			return nil, err
		}
		parts = []map[string]bool{part}
	} else {
		parts = components(edges)
	}

	for _, part := range parts {
		pop := newPopulation(part, names, edges, measure)
		for identity, value := range initials {
			if person := pop.Persons[identity]; person != nil {
				person.FixPerformance(value)
			}
		}
		if !pop.Convergent() {
			result.NonConvergent = append(result.NonConvergent, pop.PersonsByPerformance())
			continue
		}
		pop.IterateUntilStable(delta, maxIterations)
		result.Populations = append(result.Populations, pop)
	}
	return result, nil
}

// resolveEdges converts games to person-level edges. Games with an
// unidentified player are skipped and counted; games whose players
// resolve to the same person are discarded.
func resolveEdges(s store.Store, games []*records.Game, skipped *int) ([]edge, map[string]string, error) {
	names := make(map[string]string)
	personFor := func(key records.PlayerKey) (string, error) {
		player, err := s.PlayerByKey(key)
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if !player.Known {
			return "", nil
		}
		if _, ok := names[player.Alias]; !ok {
			primary, err := s.PlayerByIdentity(player.Alias)
			if err != nil {
				return "", err
			}
			names[player.Alias] = primary.Key.Name
		}
		return player.Alias, nil
	}

	var edges []edge
	for _, g := range games {
		white, err := personFor(g.WhiteKey())
		if err != nil {
			return nil, nil, err
		}
		black, err := personFor(g.BlackKey())
		if err != nil {
			return nil, nil, err
		}
		if white == "" || black == "" {
			*skipped++
			continue
		}
		if white == black {
			continue
		}
		result := g.Result()
		edges = append(edges, edge{
			white:       white,
			black:       black,
			whiteReward: Reward(result, true),
			blackReward: Reward(result, false),
		})
	}
	return edges, names, nil
}
