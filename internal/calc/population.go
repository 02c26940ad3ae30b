package calc

import (
	"fmt"
	"sort"
)

// edge is one game between two persons, rewards seen from each side.
type edge struct {
	white, black string
	whiteReward  int
	blackReward  int
}

// Population is a connected set of persons linked by games.
//
// Iteration converges if and only if the graph of opponents contains
// at least one 3-cycle: A plays B, B plays C, C plays A. A graph which
// is a tree oscillates between two sets of values instead. The
// condition is supported by modelling rather than proof.
type Population struct {
	Persons map[string]*Person
	Measure float64

	// Iterations is the number of iterations performed by
	// IterateUntilStable; Stable records whether they reached
	// stability before the iteration bound.
	Iterations int
	Stable     bool
	// HighPerformance is the highest performance in the population
	// after iteration, at least zero.
	HighPerformance float64

	edges []edge
}

// newPopulation builds the calculation state for one connected set of
// person identities from the game edges linking them.
func newPopulation(identities map[string]bool, names map[string]string, edges []edge, measure float64) *Population {
	pop := &Population{
		Persons: make(map[string]*Person),
		Measure: measure,
	}
	for _, e := range edges {
		if !identities[e.white] || !identities[e.black] {
			continue
		}
		pop.edges = append(pop.edges, e)
		for _, id := range []string{e.white, e.black} {
			if pop.Persons[id] == nil {
				pop.Persons[id] = NewPerson(id, names[id])
			}
		}
		pop.Persons[e.white].AddGame(e.black, e.whiteReward, measure)
		pop.Persons[e.black].AddGame(e.white, e.blackReward, measure)
	}
	return pop
}

// Convergent reports whether iteration on the population converges:
// some person and one of their opponents share a third opponent.
func (pop *Population) Convergent() bool {
	adjacent := make(map[string]map[string]bool, len(pop.Persons))
	for id, person := range pop.Persons {
		set := make(map[string]bool, len(person.Opponents))
		for _, opp := range person.Opponents {
			set[opp] = true
		}
		adjacent[id] = set
	}
	for id, opponents := range adjacent {
		for opp := range opponents {
			for third := range adjacent[opp] {
				if third != id && opponents[third] {
					return true
				}
			}
		}
	}
	return false
}

// iterate performs one iteration of the performance calculation.
func (pop *Population) iterate() {
	for _, person := range pop.Persons {
		person.setPoints()
	}
	for _, person := range pop.Persons {
		for _, opponent := range person.Opponents {
			person.addPoints(pop.Persons[opponent].Performance())
		}
	}
	for _, person := range pop.Persons {
		person.calculatePerformance()
	}
}

// IterateUntilStable iterates until every person's performance varies
// by no more than delta between iterations, or maxIterations is
// reached. It reports whether stability was reached.
func (pop *Population) IterateUntilStable(delta float64, maxIterations int) bool {
	for pop.Iterations < maxIterations {
		pop.Iterations++
		pop.iterate()
		stable := true
		for _, person := range pop.Persons {
			if !person.isPerformanceStable(delta) {
				stable = false
				break
			}
		}
		if stable {
			pop.Stable = true
			pop.setHighPerformance()
			return true
		}
	}
	pop.Stable = false
	pop.setHighPerformance()
	return false
}

func (pop *Population) setHighPerformance() {
	high := 0.0
	for _, person := range pop.Persons {
		if p := person.Performance(); p > high {
			high = p
		}
	}
	pop.HighPerformance = high
}

// PersonsByPerformance returns the population's persons ordered by
// descending performance, names breaking ties.
func (pop *Population) PersonsByPerformance() []*Person {
	persons := make([]*Person, 0, len(pop.Persons))
	for _, person := range pop.Persons {
		persons = append(persons, person)
	}
	sort.Slice(persons, func(i, j int) bool {
		pi, pj := persons[i].Performance(), persons[j].Performance()
		if pi != pj {
			return pi > pj
		}
		if persons[i].Name != persons[j].Name {
			return persons[i].Name < persons[j].Name
		}
		return persons[i].Identity < persons[j].Identity
	})
	return persons
}

// components partitions the person identities seen in edges into
// connected sets.
func components(edges []edge) []map[string]bool {
	adjacent := make(map[string]map[string]bool)
	addEdge := func(a, b string) {
		if adjacent[a] == nil {
			adjacent[a] = make(map[string]bool)
		}
		adjacent[a][b] = true
	}
	for _, e := range edges {
		addEdge(e.white, e.black)
		addEdge(e.black, e.white)
	}

	identities := make([]string, 0, len(adjacent))
	for id := range adjacent {
		identities = append(identities, id)
	}
	sort.Strings(identities)

	seen := make(map[string]bool, len(identities))
	var parts []map[string]bool
	for _, start := range identities {
		if seen[start] {
			continue
		}
		part := make(map[string]bool)
		queue := []string{start}
		seen[start] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			part[id] = true
			for opp := range adjacent[id] {
				if !seen[opp] {
					seen[opp] = true
					queue = append(queue, opp)
				}
			}
		}
		parts = append(parts, part)
	}
	return parts
}

// componentContaining returns the connected set holding identity, or
// an error if identity appears in no edge.
func componentContaining(edges []edge, identity string) (map[string]bool, error) {
	for _, part := range components(edges) {
		if part[identity] {
			return part, nil
		}
	}
	return nil, fmt.Errorf("no games link person %s to a population", identity)
}
