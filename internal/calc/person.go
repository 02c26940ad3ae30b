// Package calc computes iterated performance ratings for populations
// of identified persons linked by game results.
package calc

import "math"

// rewardToScore maps a game reward to the conventional score.
var rewardToScore = map[int]float64{1: 1, 0: 0.5, -1: 0}

// Reward returns the reward for a result seen from one side of the
// board: 1 for a win, 0 for a draw, -1 for a loss.
func Reward(result string, white bool) int {
	switch result {
	case "1-0":
		if white {
			return 1
		}
		return -1
	case "0-1":
		if white {
			return -1
		}
		return 1
	}
	return 0
}

// Person accumulates one identified person's calculation state. The
// opponents list has one entry per game, so a pair who played twice
// appears twice.
type Person struct {
	Identity  string
	Name      string
	Reward    float64
	GameCount int
	Score     float64
	Opponents []string

	// iteration holds the most recent performance first, at most the
	// last three values.
	iteration []float64
	points    float64

	// initial, when fixed, is the performance the person keeps
	// between iterations.
	initial float64
	fixed   bool

	gradePoints    float64
	grade          float64
	predictedScore float64
}

// NewPerson returns a Person with no games.
func NewPerson(identity, name string) *Person {
	return &Person{Identity: identity, Name: name, iteration: []float64{0}}
}

// AddGame records one game against an opponent.
func (p *Person) AddGame(opponent string, reward int, measure float64) {
	p.Reward += float64(reward) * measure
	p.GameCount++
	p.Score += rewardToScore[reward]
	p.Opponents = append(p.Opponents, opponent)
}

// FixPerformance pins the person's performance: iteration leaves it
// unchanged and treats it as stable. Used for persons whose rating is
// known from outside the population.
func (p *Person) FixPerformance(value float64) {
	p.initial = value
	p.fixed = true
	p.iteration = []float64{value}
}

// Fixed reports whether the person's performance is pinned.
func (p *Person) Fixed() bool { return p.fixed }

// Performance returns the person's performance from the most recent
// iteration, or the fixed value when one is set.
func (p *Person) Performance() float64 {
	if p.fixed {
		return p.initial
	}
	return p.iteration[0]
}

// Grade returns the person's clamped-difference grade.
func (p *Person) Grade() float64 { return p.grade }

// PredictedScore returns the person's total score predicted from
// calculated performance differences.
func (p *Person) PredictedScore() float64 { return p.predictedScore }

func (p *Person) setPoints() { p.points = 0 }

func (p *Person) addPoints(points float64) { p.points += points }

// calculatePerformance folds the accumulated opponent points and the
// reward into the next performance value.
func (p *Person) calculatePerformance() {
	if p.fixed {
		return
	}
	p.iteration = append([]float64{(p.points + p.Reward) / float64(p.GameCount)}, p.iteration...)
	if len(p.iteration) > 3 {
		p.iteration = p.iteration[:3]
	}
}

// isPerformanceStable reports whether successive iteration values all
// agree within delta. A fixed performance is always stable.
func (p *Person) isPerformanceStable(delta float64) bool {
	if p.fixed {
		return true
	}
	for i := 1; i < len(p.iteration); i++ {
		if math.Abs(p.iteration[i]-p.iteration[i-1]) > delta {
			return false
		}
	}
	return true
}
