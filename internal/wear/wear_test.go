package wear

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

var base = time.Date(2026, 5, 4, 7, 0, 0, 0, time.UTC)

func run(id string, dayOffset int, meters float64, d time.Duration) types.Activity {
	start := base.AddDate(0, 0, dayOffset)
	return types.Activity{ActivityID: id, StartTime: start, EndTime: start.Add(d), Distance: meters}
}

func TestCompute(t *testing.T) {
	shoe := &types.Shoe{LifespanDistance: 800}
	acts := []types.Activity{
		run("a3", 2, 10000, 50*time.Minute),
		run("a2", 1, 5000, 25*time.Minute),
		run("a1", 0, 15000, 75*time.Minute),
	}

	st := Compute(shoe, acts)

	assert.InDelta(t, 30.0, st.TotalDistance, 1e-9)
	assert.Equal(t, 150*time.Minute, st.TotalDuration)
	require.NotNil(t, st.LastActivityAt)
	assert.Equal(t, acts[0].EndTime, *st.LastActivityAt)
	assert.Equal(t, 3, st.ActivityCount)
	assert.InDelta(t, 10.0, st.AverageDistance, 1e-9)
	assert.Equal(t, 50*time.Minute, st.AverageDuration)
	assert.Equal(t, types.Pace{Minutes: 5, Seconds: 0}, st.AveragePace)
	assert.InDelta(t, 30.0/800.0, st.WearRatio, 1e-12)
}

func TestComputeEmpty(t *testing.T) {
	st := Compute(&types.Shoe{LifespanDistance: 500}, nil)

	assert.Zero(t, st.TotalDistance)
	assert.Zero(t, st.TotalDuration)
	assert.Nil(t, st.LastActivityAt)
	assert.Zero(t, st.AverageDistance)
	assert.Zero(t, st.AverageDuration)
	assert.Equal(t, types.Pace{}, st.AveragePace)
	assert.Zero(t, st.WearRatio)
	assert.NotNil(t, st.PersonalBests)
	assert.NotNil(t, st.TotalRuns)
}

func TestRatioNonFiniteInputs(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		lifespan float64
	}{
		{name: "NaN lifespan", distance: 12, lifespan: math.NaN()},
		{name: "infinite lifespan", distance: 12, lifespan: math.Inf(1)},
		{name: "negative infinite lifespan", distance: 12, lifespan: math.Inf(-1)},
		{name: "NaN distance", distance: math.NaN(), lifespan: 500},
		{name: "infinite distance", distance: math.Inf(1), lifespan: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 0.0, Ratio(tt.distance, tt.lifespan))
		})
	}
}

func TestComputeNaNLifespan(t *testing.T) {
	st := Compute(&types.Shoe{LifespanDistance: math.NaN()}, []types.Activity{run("a", 0, 12000, time.Hour)})

	assert.Equal(t, 0.0, st.WearRatio)
	assert.Equal(t, types.WearNew, types.ConditionForRatio(st.WearRatio))
}

func TestComputeZeroLifespan(t *testing.T) {
	st := Compute(&types.Shoe{LifespanDistance: 0}, []types.Activity{run("a", 0, 12000, time.Hour)})

	assert.Equal(t, 0.0, st.WearRatio)
	assert.False(t, math.IsNaN(st.WearRatio))
	assert.False(t, math.IsInf(st.WearRatio, 0))
}

func TestRatioUnclamped(t *testing.T) {
	assert.InDelta(t, 1.25, Ratio(1000, 800), 1e-12)
	assert.Equal(t, 0.0, Ratio(10, -5))
}

func TestComputeMonotonicInActivities(t *testing.T) {
	shoe := &types.Shoe{LifespanDistance: 600}
	acts := []types.Activity{run("a1", 0, 8000, 40*time.Minute)}
	prev := Compute(shoe, acts)

	for i, meters := range []float64{0, 3000, 21097.5, 42195} {
		acts = append(acts, run("x", i+1, meters, time.Hour))
		next := Compute(shoe, acts)
		assert.GreaterOrEqual(t, next.TotalDistance, prev.TotalDistance)
		assert.GreaterOrEqual(t, next.WearRatio, prev.WearRatio)
		prev = next
	}
}

func TestComputeInvertedActivityTimes(t *testing.T) {
	a := types.Activity{ActivityID: "bad", StartTime: base, EndTime: base.Add(-time.Minute), Distance: 1000}
	st := Compute(&types.Shoe{LifespanDistance: 100}, []types.Activity{a})
	assert.Zero(t, st.TotalDuration)
	assert.Equal(t, types.Pace{}, st.AveragePace)
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 300.0, Remaining(&types.Shoe{LifespanDistance: 500, TotalDistance: 200}))
	assert.Equal(t, 0.0, Remaining(&types.Shoe{LifespanDistance: 500, TotalDistance: 650}))
}
