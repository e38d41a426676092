package types

import (
	"fmt"
	"sort"
	"time"
)

// Activity is an externally recorded workout. The engine only reads
// activities; shoes reference them by ID.
type Activity struct {
	ActivityID string    `json:"activity_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Distance   float64   `json:"distance"` // meters
	Source     string    `json:"source,omitempty"`
}

// Duration returns EndTime - StartTime, or zero if the interval is inverted.
func (a Activity) Duration() time.Duration {
	d := a.EndTime.Sub(a.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Validate checks the fields an activity source must provide.
func (a Activity) Validate() error {
	if a.ActivityID == "" {
		return ErrInvalidID
	}
	if a.StartTime.IsZero() || a.EndTime.Before(a.StartTime) {
		return fmt.Errorf("%w: activity %s has an invalid time range", ErrInvalidData, a.ActivityID)
	}
	if a.Distance < 0 {
		return fmt.Errorf("%w: activity %s has negative distance", ErrInvalidData, a.ActivityID)
	}
	return nil
}

// Sample is one interval of an activity's distance-over-time series.
type Sample struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Distance  float64   `json:"distance"` // meters covered in the interval
}

// Duration returns the sample interval length.
func (s Sample) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// SortActivitiesByEndDesc orders activities most recent first, breaking ties
// by ID so the order is stable.
func SortActivitiesByEndDesc(activities []Activity) {
	sort.Slice(activities, func(i, j int) bool {
		if !activities[i].EndTime.Equal(activities[j].EndTime) {
			return activities[i].EndTime.After(activities[j].EndTime)
		}
		return activities[i].ActivityID < activities[j].ActivityID
	})
}
