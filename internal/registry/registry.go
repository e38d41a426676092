// Package registry maintains default-shoe assignments across a shoe
// collection: each run category has at most one default shoe, a shoe is
// flagged default exactly when it has default categories, and retired
// shoes are never default.
//
// The functions mutate the shoes in place and return the IDs of the shoes
// they changed so the caller can persist exactly those. They do no locking;
// the rack serializes every call.
package registry

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// DeleteOutcome reports what a deletion left behind.
type DeleteOutcome struct {
	ShoeID string
	// LostDefaults lists the categories that no longer have a default shoe.
	LostDefaults []types.RunCategory
	// NeedsDailyDefault is true when the deleted shoe was the daily default
	// and the caller should prompt for a replacement.
	NeedsDailyDefault bool
}

// Find returns the shoe with the given ID, or nil.
func Find(shoes []*types.Shoe, id string) *types.Shoe {
	for _, s := range shoes {
		if s.ShoeID == id {
			return s
		}
	}
	return nil
}

// DefaultFor returns the default shoe for c, or nil when none is set.
func DefaultFor(shoes []*types.Shoe, c types.RunCategory) *types.Shoe {
	for _, s := range shoes {
		if s.IsDefaultFor(c) {
			return s
		}
	}
	return nil
}

// SetDefault makes the target shoe the default for cats. The categories are
// first removed from every other shoe; a shoe left with no default
// categories stops being a default shoe. With DefaultReplace the target's
// categories become exactly cats; with DefaultAppend they are added to its
// existing ones. A retired target is reinstated.
func SetDefault(shoes []*types.Shoe, targetID string, cats []types.RunCategory, mode types.DefaultMode, now time.Time) ([]string, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidMode, mode)
	}
	cats, err := types.NormalizeRunCategories(cats)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return nil, types.ErrEmptyCategories
	}
	target := Find(shoes, targetID)
	if target == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrShoeNotFound, targetID)
	}

	var touched []string
	for _, s := range shoes {
		if s == target {
			continue
		}
		if removeCategories(s, cats) {
			s.UpdatedAt = now
			touched = append(touched, s.ShoeID)
		}
	}

	switch mode {
	case types.DefaultReplace:
		target.DefaultRunTypes = cats
	case types.DefaultAppend:
		merged, _ := types.NormalizeRunCategories(append(append([]types.RunCategory{}, target.DefaultRunTypes...), cats...))
		target.DefaultRunTypes = merged
	}
	target.IsDefaultShoe = true
	target.IsRetired = false
	target.RetiredAt = nil
	target.UpdatedAt = now
	touched = append(touched, target.ShoeID)
	return touched, nil
}

// ClearDefault removes cats from the target's default categories, leaving
// those categories without a default shoe.
func ClearDefault(shoes []*types.Shoe, targetID string, cats []types.RunCategory, now time.Time) ([]string, error) {
	cats, err := types.NormalizeRunCategories(cats)
	if err != nil {
		return nil, err
	}
	target := Find(shoes, targetID)
	if target == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrShoeNotFound, targetID)
	}
	if len(cats) == 0 {
		cats = append([]types.RunCategory{}, target.DefaultRunTypes...)
	}
	if !removeCategories(target, cats) {
		return nil, nil
	}
	target.UpdatedAt = now
	return []string{target.ShoeID}, nil
}

// Retire toggles the retired flag. Retiring clears every default category
// of the shoe without choosing a replacement; the returned slice lists the
// categories that lost their default. Reinstating leaves defaults empty.
func Retire(shoes []*types.Shoe, targetID string, now time.Time) (retired bool, cleared []types.RunCategory, err error) {
	target := Find(shoes, targetID)
	if target == nil {
		return false, nil, fmt.Errorf("%w: %s", types.ErrShoeNotFound, targetID)
	}

	target.UpdatedAt = now
	if target.IsRetired {
		target.IsRetired = false
		target.RetiredAt = nil
		return false, nil, nil
	}

	at := now
	target.IsRetired = true
	target.RetiredAt = &at
	cleared = append([]types.RunCategory{}, target.DefaultRunTypes...)
	target.DefaultRunTypes = []types.RunCategory{}
	target.IsDefaultShoe = false
	return true, cleared, nil
}

// Delete removes the target from the collection. It never selects a new
// default; the outcome tells the caller which categories were orphaned.
func Delete(shoes []*types.Shoe, targetID string) ([]*types.Shoe, DeleteOutcome, error) {
	idx := -1
	for i, s := range shoes {
		if s.ShoeID == targetID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shoes, DeleteOutcome{}, fmt.Errorf("%w: %s", types.ErrShoeNotFound, targetID)
	}

	target := shoes[idx]
	out := DeleteOutcome{
		ShoeID:            targetID,
		LostDefaults:      append([]types.RunCategory{}, target.DefaultRunTypes...),
		NeedsDailyDefault: target.IsDefaultFor(types.RunDaily),
	}

	remaining := make([]*types.Shoe, 0, len(shoes)-1)
	remaining = append(remaining, shoes[:idx]...)
	remaining = append(remaining, shoes[idx+1:]...)
	return remaining, out, nil
}

// SetSuitable replaces the shoe's suitable categories. Suitability carries
// no exclusivity.
func SetSuitable(shoes []*types.Shoe, targetID string, cats []types.RunCategory, now time.Time) error {
	cats, err := types.NormalizeRunCategories(cats)
	if err != nil {
		return err
	}
	target := Find(shoes, targetID)
	if target == nil {
		return fmt.Errorf("%w: %s", types.ErrShoeNotFound, targetID)
	}
	target.SuitableRunTypes = cats
	target.UpdatedAt = now
	return nil
}

// Check verifies the collection invariants and wraps ErrInvariantViolation
// with the first violation found.
func Check(shoes []*types.Shoe) error {
	owner := make(map[types.RunCategory]string)
	for _, s := range shoes {
		if s.IsDefaultShoe != (len(s.DefaultRunTypes) > 0) {
			return fmt.Errorf("%w: shoe %s default flag %t with %d default categories",
				types.ErrInvariantViolation, s.ShoeID, s.IsDefaultShoe, len(s.DefaultRunTypes))
		}
		if s.IsRetired && s.IsDefaultShoe {
			return fmt.Errorf("%w: retired shoe %s is default", types.ErrInvariantViolation, s.ShoeID)
		}
		for _, c := range s.DefaultRunTypes {
			if prev, ok := owner[c]; ok && prev != s.ShoeID {
				return fmt.Errorf("%w: category %s is default for %s and %s",
					types.ErrInvariantViolation, c, prev, s.ShoeID)
			}
			owner[c] = s.ShoeID
		}
	}
	return nil
}

// removeCategories drops cats from the shoe's defaults and reports whether
// anything changed.
func removeCategories(s *types.Shoe, cats []types.RunCategory) bool {
	kept := make([]types.RunCategory, 0, len(s.DefaultRunTypes))
	for _, c := range s.DefaultRunTypes {
		if !types.ContainsRunCategory(cats, c) {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(s.DefaultRunTypes) {
		return false
	}
	s.DefaultRunTypes = kept
	if len(kept) == 0 {
		s.IsDefaultShoe = false
	}
	return true
}
