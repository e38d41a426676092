package types

import (
	"fmt"
	"math"
	"time"
)

// Statistics is the result of recomputing a shoe from its assigned
// activities. Distances are kilometers.
type Statistics struct {
	TotalDistance   float64                  `json:"total_distance"`
	TotalDuration   time.Duration            `json:"total_duration"`
	LastActivityAt  *time.Time               `json:"last_activity_at,omitempty"`
	ActivityCount   int                      `json:"activity_count"`
	AverageDistance float64                  `json:"average_distance"`
	AverageDuration time.Duration            `json:"average_duration"`
	AveragePace     Pace                     `json:"average_pace"`
	WearRatio       float64                  `json:"wear_ratio"`
	PersonalBests   PersonalBests            `json:"personal_bests"`
	TotalRuns       map[ActivityCategory]int `json:"total_runs"`
}

// Pace is a duration per kilometer split into whole minutes and seconds.
type Pace struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// PaceFor returns total/distance per kilometer. A zero, negative or
// non-finite distance yields a zero pace, as does a pace too large to
// represent.
func PaceFor(total time.Duration, distanceKm float64) Pace {
	if !(distanceKm > 0) || math.IsInf(distanceKm, 0) || total <= 0 {
		return Pace{}
	}
	seconds := total.Seconds() / distanceKm
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds > math.MaxInt32 {
		return Pace{}
	}
	perKm := int(seconds)
	return Pace{Minutes: perKm / 60, Seconds: perKm % 60}
}

// String formats the pace as m:ss.
func (p Pace) String() string {
	return fmt.Sprintf("%d:%02d", p.Minutes, p.Seconds)
}
