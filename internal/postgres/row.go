package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// shoeRow is the column image of a shoe. Collection fields travel as JSONB.
type shoeRow struct {
	ShoeID           string
	Brand            string
	Model            string
	Nickname         string
	AcquiredAt       time.Time
	LifespanDistance float64
	ImageRef         string
	IsRetired        bool
	RetiredAt        *time.Time
	IsDefaultShoe    bool
	DefaultRunTypes  []byte
	SuitableRunTypes []byte
	Workouts         []byte
	TotalDistance    float64
	TotalDurationNS  int64
	LastActivityAt   *time.Time
	WearRatio        float64
	PersonalBests    []byte
	TotalRuns        []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func newShoeRow(s *types.Shoe) (shoeRow, error) {
	c := s.Clone()
	c.Normalize()
	row := shoeRow{
		ShoeID:           c.ShoeID,
		Brand:            c.Brand,
		Model:            c.Model,
		Nickname:         c.Nickname,
		AcquiredAt:       c.AcquiredAt.UTC(),
		LifespanDistance: c.LifespanDistance,
		ImageRef:         c.ImageRef,
		IsRetired:        c.IsRetired,
		RetiredAt:        utcPtr(c.RetiredAt),
		IsDefaultShoe:    c.IsDefaultShoe,
		TotalDistance:    c.TotalDistance,
		TotalDurationNS:  int64(c.TotalDuration),
		LastActivityAt:   utcPtr(c.LastActivityAt),
		WearRatio:        c.WearRatio,
		CreatedAt:        c.CreatedAt.UTC(),
		UpdatedAt:        c.UpdatedAt.UTC(),
	}
	var err error
	if row.DefaultRunTypes, err = json.Marshal(c.DefaultRunTypes); err != nil {
		return row, err
	}
	if row.SuitableRunTypes, err = json.Marshal(c.SuitableRunTypes); err != nil {
		return row, err
	}
	if row.Workouts, err = json.Marshal(c.Workouts); err != nil {
		return row, err
	}
	if row.PersonalBests, err = json.Marshal(c.PersonalBests); err != nil {
		return row, err
	}
	if row.TotalRuns, err = json.Marshal(c.TotalRuns); err != nil {
		return row, err
	}
	return row, nil
}

// args returns the row in shoeColumns order.
func (r *shoeRow) args() []any {
	return []any{
		r.ShoeID, r.Brand, r.Model, r.Nickname, r.AcquiredAt, r.LifespanDistance, r.ImageRef,
		r.IsRetired, r.RetiredAt, r.IsDefaultShoe, r.DefaultRunTypes, r.SuitableRunTypes, r.Workouts,
		r.TotalDistance, r.TotalDurationNS, r.LastActivityAt, r.WearRatio, r.PersonalBests, r.TotalRuns,
		r.CreatedAt, r.UpdatedAt,
	}
}

// dest returns scan targets in shoeColumns order.
func (r *shoeRow) dest() []any {
	return []any{
		&r.ShoeID, &r.Brand, &r.Model, &r.Nickname, &r.AcquiredAt, &r.LifespanDistance, &r.ImageRef,
		&r.IsRetired, &r.RetiredAt, &r.IsDefaultShoe, &r.DefaultRunTypes, &r.SuitableRunTypes, &r.Workouts,
		&r.TotalDistance, &r.TotalDurationNS, &r.LastActivityAt, &r.WearRatio, &r.PersonalBests, &r.TotalRuns,
		&r.CreatedAt, &r.UpdatedAt,
	}
}

func (r *shoeRow) shoe() (*types.Shoe, error) {
	s := &types.Shoe{
		ShoeID:           r.ShoeID,
		Brand:            r.Brand,
		Model:            r.Model,
		Nickname:         r.Nickname,
		AcquiredAt:       r.AcquiredAt.UTC(),
		LifespanDistance: r.LifespanDistance,
		ImageRef:         r.ImageRef,
		IsRetired:        r.IsRetired,
		RetiredAt:        utcPtr(r.RetiredAt),
		IsDefaultShoe:    r.IsDefaultShoe,
		TotalDistance:    r.TotalDistance,
		TotalDuration:    time.Duration(r.TotalDurationNS),
		LastActivityAt:   utcPtr(r.LastActivityAt),
		WearRatio:        r.WearRatio,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	fields := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"default_run_types", r.DefaultRunTypes, &s.DefaultRunTypes},
		{"suitable_run_types", r.SuitableRunTypes, &s.SuitableRunTypes},
		{"workouts", r.Workouts, &s.Workouts},
		{"personal_bests", r.PersonalBests, &s.PersonalBests},
		{"total_runs", r.TotalRuns, &s.TotalRuns},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("%w: shoe %s column %s: %v", types.ErrInvalidData, r.ShoeID, f.name, err)
		}
	}
	s.Normalize()
	return s, nil
}
