package types

import (
	"fmt"
	"math"
	"sort"
)

// ActivityCategory is a standard race distance used for personal-best
// tracking. It is unrelated to RunCategory.
type ActivityCategory string

// Activity categories, shortest first.
const (
	Category5K           ActivityCategory = "5k"
	Category10K          ActivityCategory = "10k"
	CategoryHalfMarathon ActivityCategory = "half_marathon"
	CategoryMarathon     ActivityCategory = "marathon"
)

// ActivityCategories lists every activity category in ascending distance.
var ActivityCategories = []ActivityCategory{
	Category5K,
	Category10K,
	CategoryHalfMarathon,
	CategoryMarathon,
}

var categoryThresholds = map[ActivityCategory]float64{
	Category5K:           5000,
	Category10K:          10000,
	CategoryHalfMarathon: 21097.5,
	CategoryMarathon:     42195,
}

// Threshold returns the category distance in meters, or 0 for an unknown
// category.
func (c ActivityCategory) Threshold() float64 {
	return categoryThresholds[c]
}

// Valid reports whether c is one of the four standard distances.
func (c ActivityCategory) Valid() bool {
	_, ok := categoryThresholds[c]
	return ok
}

// ParseActivityCategory converts a string to an ActivityCategory.
func ParseActivityCategory(s string) (ActivityCategory, error) {
	c := ActivityCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidActivityCategory, s)
	}
	return c, nil
}

// RunCategory is a usage category for default-shoe assignment.
type RunCategory string

// Run categories.
const (
	RunDaily RunCategory = "daily"
	RunLong  RunCategory = "long"
	RunTempo RunCategory = "tempo"
	RunRace  RunCategory = "race"
	RunTrail RunCategory = "trail"
)

// RunCategories lists every run category in canonical order.
var RunCategories = []RunCategory{RunDaily, RunLong, RunTempo, RunRace, RunTrail}

var runCategoryOrder = map[RunCategory]int{
	RunDaily: 0,
	RunLong:  1,
	RunTempo: 2,
	RunRace:  3,
	RunTrail: 4,
}

// Valid reports whether r is a known run category.
func (r RunCategory) Valid() bool {
	_, ok := runCategoryOrder[r]
	return ok
}

// ParseRunCategory converts a string to a RunCategory.
func ParseRunCategory(s string) (RunCategory, error) {
	r := RunCategory(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunCategory, s)
	}
	return r, nil
}

// ParseRunCategories parses and normalizes a list of run category names.
func ParseRunCategories(names []string) ([]RunCategory, error) {
	out := make([]RunCategory, 0, len(names))
	for _, n := range names {
		r, err := ParseRunCategory(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return NormalizeRunCategories(out)
}

// NormalizeRunCategories returns the categories deduplicated and sorted in
// canonical order. The result is never nil.
func NormalizeRunCategories(cats []RunCategory) ([]RunCategory, error) {
	seen := make(map[RunCategory]bool, len(cats))
	out := make([]RunCategory, 0, len(cats))
	for _, c := range cats {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRunCategory, c)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return runCategoryOrder[out[i]] < runCategoryOrder[out[j]]
	})
	return out, nil
}

// ContainsRunCategory reports whether cats includes c.
func ContainsRunCategory(cats []RunCategory, c RunCategory) bool {
	for _, x := range cats {
		if x == c {
			return true
		}
	}
	return false
}

// DefaultMode selects how SetDefault combines new categories with a shoe's
// existing default categories.
type DefaultMode string

// Default assignment modes.
const (
	DefaultReplace DefaultMode = "replace"
	DefaultAppend  DefaultMode = "append"
)

// Valid reports whether m is replace or append.
func (m DefaultMode) Valid() bool {
	return m == DefaultReplace || m == DefaultAppend
}

// WearCondition is a coarse band of the wear ratio.
type WearCondition string

// Wear conditions, from unworn to worn out.
const (
	WearNew      WearCondition = "new"
	WearGood     WearCondition = "good"
	WearModerate WearCondition = "moderate"
	WearHigh     WearCondition = "high"
	WearCritical WearCondition = "critical"
)

// ConditionForRatio maps a wear ratio to its condition band. A NaN ratio
// is treated as unworn.
func ConditionForRatio(ratio float64) WearCondition {
	switch {
	case ratio <= 0 || math.IsNaN(ratio):
		return WearNew
	case ratio < 0.5:
		return WearGood
	case ratio < 0.7:
		return WearModerate
	case ratio <= 0.9:
		return WearHigh
	default:
		return WearCritical
	}
}
