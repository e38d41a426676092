package types

import (
	"math"
	"strings"
	"time"
)

// Shoe represents one physical pair of running shoes.
//
// Descriptive fields are edited by the user. Workouts, the default and
// suitable category sets, and the retired flag change only through the
// rack. The aggregated fields are recomputed from the assigned workouts and
// are never edited directly.
type Shoe struct {
	ShoeID           string    `json:"shoe_id"`
	Brand            string    `json:"brand"`
	Model            string    `json:"model"`
	Nickname         string    `json:"nickname,omitempty"`
	AcquiredAt       time.Time `json:"acquired_at"`
	LifespanDistance float64   `json:"lifespan_distance"` // kilometers
	ImageRef         string    `json:"image_ref,omitempty"`

	IsRetired        bool          `json:"is_retired"`
	RetiredAt        *time.Time    `json:"retired_at,omitempty"`
	IsDefaultShoe    bool          `json:"is_default_shoe"`
	DefaultRunTypes  []RunCategory `json:"default_run_types"`
	SuitableRunTypes []RunCategory `json:"suitable_run_types"`
	Workouts         []string      `json:"workouts"`

	TotalDistance  float64                  `json:"total_distance"` // kilometers
	TotalDuration  time.Duration            `json:"total_duration"`
	LastActivityAt *time.Time               `json:"last_activity_at,omitempty"`
	WearRatio      float64                  `json:"wear_ratio"`
	PersonalBests  PersonalBests            `json:"personal_bests"`
	TotalRuns      map[ActivityCategory]int `json:"total_runs"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the nickname, or brand and model when no nickname is set.
func (s *Shoe) DisplayName() string {
	if s.Nickname != "" {
		return s.Nickname
	}
	return strings.TrimSpace(s.Brand + " " + s.Model)
}

// Validate checks the user-editable fields.
func (s *Shoe) Validate() error {
	if strings.TrimSpace(s.Brand) == "" && strings.TrimSpace(s.Model) == "" && strings.TrimSpace(s.Nickname) == "" {
		return ErrInvalidName
	}
	if l := s.LifespanDistance; l < 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return ErrInvalidLifespan
	}
	return nil
}

// Condition returns the wear band for the shoe's current wear ratio.
func (s *Shoe) Condition() WearCondition {
	return ConditionForRatio(s.WearRatio)
}

// IsDefaultFor reports whether the shoe is the default for c.
func (s *Shoe) IsDefaultFor(c RunCategory) bool {
	return ContainsRunCategory(s.DefaultRunTypes, c)
}

// HasActivity reports whether the activity ID is assigned to the shoe.
func (s *Shoe) HasActivity(activityID string) bool {
	for _, id := range s.Workouts {
		if id == activityID {
			return true
		}
	}
	return false
}

// ApplyStatistics copies recomputed aggregates onto the shoe.
func (s *Shoe) ApplyStatistics(st Statistics) {
	s.TotalDistance = st.TotalDistance
	s.TotalDuration = st.TotalDuration
	s.LastActivityAt = copyTime(st.LastActivityAt)
	s.WearRatio = st.WearRatio
	s.PersonalBests = st.PersonalBests.Clone()
	s.TotalRuns = cloneRuns(st.TotalRuns)
}

// Statistics returns the shoe's stored aggregates. Averages are derived
// from the workout count.
func (s *Shoe) Statistics() Statistics {
	st := Statistics{
		TotalDistance:  s.TotalDistance,
		TotalDuration:  s.TotalDuration,
		LastActivityAt: copyTime(s.LastActivityAt),
		ActivityCount:  len(s.Workouts),
		WearRatio:      s.WearRatio,
		PersonalBests:  s.PersonalBests.Clone(),
		TotalRuns:      cloneRuns(s.TotalRuns),
	}
	if n := len(s.Workouts); n > 0 {
		st.AverageDistance = s.TotalDistance / float64(n)
		st.AverageDuration = s.TotalDuration / time.Duration(n)
	}
	st.AveragePace = PaceFor(s.TotalDuration, s.TotalDistance)
	return st
}

// Clone returns a deep copy of the shoe.
func (s *Shoe) Clone() *Shoe {
	if s == nil {
		return nil
	}
	c := *s
	c.RetiredAt = copyTime(s.RetiredAt)
	c.LastActivityAt = copyTime(s.LastActivityAt)
	c.DefaultRunTypes = append([]RunCategory{}, s.DefaultRunTypes...)
	c.SuitableRunTypes = append([]RunCategory{}, s.SuitableRunTypes...)
	c.Workouts = append([]string{}, s.Workouts...)
	c.PersonalBests = s.PersonalBests.Clone()
	c.TotalRuns = cloneRuns(s.TotalRuns)
	return &c
}

// Normalize replaces nil collections with empty ones so persisted and
// cloned shoes compare equal.
func (s *Shoe) Normalize() {
	if s.DefaultRunTypes == nil {
		s.DefaultRunTypes = []RunCategory{}
	}
	if s.SuitableRunTypes == nil {
		s.SuitableRunTypes = []RunCategory{}
	}
	if s.Workouts == nil {
		s.Workouts = []string{}
	}
	if s.PersonalBests == nil {
		s.PersonalBests = PersonalBests{}
	}
	if s.TotalRuns == nil {
		s.TotalRuns = map[ActivityCategory]int{}
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneRuns(m map[ActivityCategory]int) map[ActivityCategory]int {
	out := make(map[ActivityCategory]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
