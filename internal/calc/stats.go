package calc

import (
	"fmt"
	"math"
	"sort"
)

// reverseActual flips an actual score to the other player's viewpoint.
var reverseActual = map[float64]float64{1: 0, 0.5: 0.5, 0: 1}

// ComputeGrades sets each person's grade: the mean of opponent
// performances, differences clamped to limit, plus the mean reward.
func (pop *Population) ComputeGrades(limit float64) {
	for _, person := range pop.Persons {
		person.gradePoints = 0
	}
	forBothSides(pop.edges, func(p, o string) {
		pp := pop.Persons[p].Performance()
		op := pop.Persons[o].Performance()
		switch {
		case pp-op > limit:
			pop.Persons[p].gradePoints += pp - limit
		case op-pp > limit:
			pop.Persons[p].gradePoints += pp + limit
		default:
			pop.Persons[p].gradePoints += op
		}
	})
	for _, person := range pop.Persons {
		person.grade = (person.gradePoints + person.Reward) / float64(person.GameCount)
	}
}

// ComputePredictions sets each person's predicted total score from
// calculated performance differences. A gap wider than the measure
// predicts a certain win; within the measure the prediction moves
// linearly from 0 to 1 across the span.
func (pop *Population) ComputePredictions() {
	span := pop.Measure * 2
	for _, person := range pop.Persons {
		person.predictedScore = 0
	}
	forBothSides(pop.edges, func(p, o string) {
		gap := pop.Persons[p].Performance() - pop.Persons[o].Performance()
		switch {
		case gap > pop.Measure:
			pop.Persons[p].predictedScore++
		case -gap <= pop.Measure:
			pop.Persons[p].predictedScore += (gap + pop.Measure) / span
		}
	})
}

func forBothSides(edges []edge, visit func(p, o string)) {
	for _, e := range edges {
		visit(e.white, e.black)
		visit(e.black, e.white)
	}
}

// Gap accumulates actual and expected scores for one size of
// performance difference, seen from the higher-rated player.
type Gap struct {
	Count    int
	Actual   float64
	Expected float64
}

func (g *Gap) add(actual, expected float64) {
	g.Count++
	g.Actual += actual
	g.Expected += expected
}

// GapTable partitions the population's games by the performance
// difference between the players, each game seen from the viewpoint of
// the higher-rated player so every expected score is between 0.5 and
// 1. Differences beyond the measure share one bucket.
func (pop *Population) GapTable() map[int]*Gap {
	span := pop.Measure * 2
	gaps := make(map[int]*Gap)
	for _, e := range pop.edges {
		actual := rewardToScore[e.whiteReward]
		gap := pop.Persons[e.white].Performance() - pop.Persons[e.black].Performance()
		var expected float64
		switch {
		case gap > pop.Measure:
			expected = 1
		case -gap > pop.Measure:
			actual = reverseActual[actual]
			gap = -gap
			expected = 1
		case gap < 0:
			actual = reverseActual[actual]
			gap = -gap
			expected = (gap + pop.Measure) / span
		default:
			expected = (gap + pop.Measure) / span
		}
		bucket := int(math.Min(gap, pop.Measure+1))
		if gaps[bucket] == nil {
			gaps[bucket] = &Gap{}
		}
		gaps[bucket].add(actual, expected)
	}
	return gaps
}

// Statistics summarizes a population after iteration, grading, and
// prediction.
type Statistics struct {
	MaxPerformance    float64
	MeanPerformance   float64
	MedianPerformance float64
	MinPerformance    float64
	SumPerformance    float64
	// WeightedSumPerformance weights each person by game count.
	WeightedSumPerformance float64

	MaxGrade         float64
	MeanGrade        float64
	MedianGrade      float64
	MinGrade         float64
	SumGrade         float64
	WeightedSumGrade float64

	// MeanDiffScorePrediction and StdevScorePrediction describe the
	// absolute differences between actual and predicted total scores
	// over persons.
	MeanDiffScorePrediction float64
	StdevScorePrediction    float64
	// MeanDiffGapScorePrediction and StdevGapScorePrediction describe
	// the same differences over gap buckets.
	MeanDiffGapScorePrediction float64
	StdevGapScorePrediction    float64

	SumPrediction float64
	// SumHalfGames counts each game twice, once per player.
	SumHalfGames int
	SumScore     float64
}

// ComputeStatistics computes grades and predictions with the default
// limit and returns the population summary.
func (pop *Population) ComputeStatistics() *Statistics {
	pop.ComputeGrades(DefaultLimit)
	pop.ComputePredictions()

	var performances, grades, diffs []float64
	s := &Statistics{}
	for _, person := range pop.Persons {
		perf := person.Performance()
		performances = append(performances, perf)
		grades = append(grades, person.grade)
		diffs = append(diffs, math.Abs(person.Score-person.predictedScore))
		s.SumPerformance += perf
		s.WeightedSumPerformance += float64(person.GameCount) * perf
		s.SumGrade += person.grade
		s.WeightedSumGrade += float64(person.GameCount) * person.grade
		s.SumPrediction += person.predictedScore
		s.SumHalfGames += person.GameCount
		s.SumScore += person.Score
	}
	s.MaxPerformance = maxOf(performances)
	s.MinPerformance = minOf(performances)
	s.MeanPerformance = mean(performances)
	s.MedianPerformance = median(performances)
	s.MaxGrade = maxOf(grades)
	s.MinGrade = minOf(grades)
	s.MeanGrade = mean(grades)
	s.MedianGrade = median(grades)
	s.MeanDiffScorePrediction = mean(diffs)
	s.StdevScorePrediction = stdev(diffs)

	var gapDiffs []float64
	for _, g := range pop.GapTable() {
		gapDiffs = append(gapDiffs, math.Abs(g.Actual-g.Expected))
	}
	s.MeanDiffGapScorePrediction = mean(gapDiffs)
	s.StdevGapScorePrediction = stdev(gapDiffs)
	return s
}

// Interval accumulates results for performance differences at least
// base and less than base plus width, from the viewpoint of the
// higher-rated player.
type Interval struct {
	Base   float64
	Width  float64
	Wins   int
	Draws  int
	Losses int
}

// Distribution partitions the population's games by performance
// difference into buckets of the given width, which must be positive.
func (pop *Population) Distribution(width float64) ([]*Interval, error) {
	if width <= 0 {
		return nil, fmt.Errorf("interval width must be positive, got %g", width)
	}
	buckets := make(map[int]*Interval)
	for _, e := range pop.edges {
		wp := pop.Persons[e.white].Performance()
		bp := pop.Persons[e.black].Performance()
		bucket := int(math.Abs(wp-bp) / width)
		interval := buckets[bucket]
		if interval == nil {
			interval = &Interval{Base: float64(bucket) * width, Width: width}
			buckets[bucket] = interval
		}
		higherWhite := wp >= bp
		switch {
		case e.whiteReward == 0:
			interval.Draws++
		case (e.whiteReward > 0) == higherWhite:
			interval.Wins++
		default:
			interval.Losses++
		}
	}
	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	intervals := make([]*Interval, 0, len(keys))
	for _, k := range keys {
		intervals = append(intervals, buckets[k])
	}
	return intervals, nil
}

func maxOf(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	m := nums[0]
	for _, x := range nums[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	m := nums[0]
	for _, x := range nums[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func mean(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range nums {
		sum += x
	}
	return sum / float64(len(nums))
}

func median(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid] + sorted[mid-1]) / 2
	}
	return sorted[mid]
}

// stdev is the sample standard deviation; fewer than two values give
// zero.
func stdev(nums []float64) float64 {
	if len(nums) < 2 {
		return 0
	}
	avg := mean(nums)
	sumsq := 0.0
	for _, x := range nums {
		d := x - avg
		sumsq += d * d
	}
	return math.Sqrt(sumsq / float64(len(nums)-1))
}
