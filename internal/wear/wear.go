// Package wear aggregates a shoe's assigned activities into distance,
// duration, and wear statistics. Everything here is a pure function of its
// input; the rack writes results back onto the shoe.
package wear

import (
	"math"
	"time"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

const metersPerKilometer = 1000.0

// Compute aggregates the activities assigned to shoe. Activities are
// expected most recent first, but the result does not depend on order.
// Personal bests are not computed here.
func Compute(shoe *types.Shoe, activities []types.Activity) types.Statistics {
	st := types.Statistics{
		ActivityCount: len(activities),
		PersonalBests: types.PersonalBests{},
		TotalRuns:     map[types.ActivityCategory]int{},
	}

	var meters float64
	var last time.Time
	for _, a := range activities {
		meters += a.Distance
		st.TotalDuration += a.Duration()
		if a.EndTime.After(last) {
			last = a.EndTime
		}
	}
	st.TotalDistance = meters / metersPerKilometer

	if !last.IsZero() {
		st.LastActivityAt = &last
	}
	if n := len(activities); n > 0 {
		st.AverageDistance = st.TotalDistance / float64(n)
		st.AverageDuration = st.TotalDuration / time.Duration(n)
	}
	st.AveragePace = types.PaceFor(st.TotalDuration, st.TotalDistance)

	var lifespan float64
	if shoe != nil {
		lifespan = shoe.LifespanDistance
	}
	st.WearRatio = Ratio(st.TotalDistance, lifespan)
	return st
}

// Ratio returns distance/lifespan, unclamped above 1. A non-positive or
// non-finite lifespan, or a non-finite distance, yields 0.
func Ratio(distance, lifespan float64) float64 {
	if !(lifespan > 0) || math.IsInf(lifespan, 0) {
		return 0
	}
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0
	}
	return distance / lifespan
}

// Remaining returns the kilometers left before the shoe reaches its
// lifespan, or 0 once it has been exceeded.
func Remaining(shoe *types.Shoe) float64 {
	left := shoe.LifespanDistance - shoe.TotalDistance
	if left < 0 {
		return 0
	}
	return left
}
