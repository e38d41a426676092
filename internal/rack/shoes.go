package rack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/shoerack/internal/registry"
	"github.com/mesh-intelligence/shoerack/internal/wear"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// ShoeEdit carries the descriptive fields to change. Nil fields are left
// as they are.
type ShoeEdit struct {
	Brand            *string    `json:"brand,omitempty"`
	Model            *string    `json:"model,omitempty"`
	Nickname         *string    `json:"nickname,omitempty"`
	AcquiredAt       *time.Time `json:"acquired_at,omitempty"`
	LifespanDistance *float64   `json:"lifespan_distance,omitempty"`
	ImageRef         *string    `json:"image_ref,omitempty"`
}

// Empty reports whether the edit changes nothing.
func (e ShoeEdit) Empty() bool {
	return e.Brand == nil && e.Model == nil && e.Nickname == nil &&
		e.AcquiredAt == nil && e.LifespanDistance == nil && e.ImageRef == nil
}

// AddShoe stores a new shoe built from the descriptive fields and suitable
// categories of in. Everything else starts empty. The first shoe added to
// an empty rack becomes the daily default.
func (r *Rack) AddShoe(ctx context.Context, in types.Shoe) (*types.Shoe, error) {
	now := r.now()
	shoe := &types.Shoe{
		ShoeID:           r.newID(),
		Brand:            strings.TrimSpace(in.Brand),
		Model:            strings.TrimSpace(in.Model),
		Nickname:         strings.TrimSpace(in.Nickname),
		AcquiredAt:       in.AcquiredAt,
		LifespanDistance: in.LifespanDistance,
		ImageRef:         in.ImageRef,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if shoe.AcquiredAt.IsZero() {
		shoe.AcquiredAt = now
	}
	if err := shoe.Validate(); err != nil {
		return nil, err
	}
	suitable, err := types.NormalizeRunCategories(in.SuitableRunTypes)
	if err != nil {
		return nil, err
	}
	shoe.SuitableRunTypes = suitable
	shoe.Normalize()
	shoe.ApplyStatistics(wear.Compute(shoe, nil))

	return r.mutate(ctx, shoe.ShoeID, func(working []*types.Shoe) ([]*types.Shoe, []string, []types.Event, error) {
		if registry.Find(working, shoe.ShoeID) != nil {
			return nil, nil, nil, fmt.Errorf("%w: duplicate shoe ID %s", types.ErrInvalidID, shoe.ShoeID)
		}
		first := len(working) == 0
		working = append(working, shoe)
		events := []types.Event{{Type: types.EventShoeAdded, ShoeID: shoe.ShoeID}}
		if first {
			if _, err := registry.SetDefault(working, shoe.ShoeID, []types.RunCategory{types.RunDaily}, types.DefaultReplace, now); err != nil {
				return nil, nil, nil, err
			}
			events = append(events, types.Event{
				Type:       types.EventDefaultsChanged,
				ShoeID:     shoe.ShoeID,
				Categories: []types.RunCategory{types.RunDaily},
			})
		}
		return working, []string{shoe.ShoeID}, events, nil
	})
}

// EditShoe changes the descriptive fields of a shoe. A lifespan change
// updates the wear ratio immediately.
func (r *Rack) EditShoe(ctx context.Context, id string, edit ShoeEdit) (*types.Shoe, error) {
	return r.mutate(ctx, id, func(working []*types.Shoe) ([]*types.Shoe, []string, []types.Event, error) {
		s, err := r.usableIn(working, id)
		if err != nil {
			return nil, nil, nil, err
		}
		if edit.Empty() {
			return working, nil, nil, nil
		}
		if edit.Brand != nil {
			s.Brand = strings.TrimSpace(*edit.Brand)
		}
		if edit.Model != nil {
			s.Model = strings.TrimSpace(*edit.Model)
		}
		if edit.Nickname != nil {
			s.Nickname = strings.TrimSpace(*edit.Nickname)
		}
		if edit.AcquiredAt != nil {
			s.AcquiredAt = *edit.AcquiredAt
		}
		if edit.LifespanDistance != nil {
			s.LifespanDistance = *edit.LifespanDistance
		}
		if edit.ImageRef != nil {
			s.ImageRef = *edit.ImageRef
		}
		if err := s.Validate(); err != nil {
			return nil, nil, nil, err
		}
		s.WearRatio = wear.Ratio(s.TotalDistance, s.LifespanDistance)
		s.UpdatedAt = r.now()
		return working, []string{id}, []types.Event{{Type: types.EventShoeUpdated, ShoeID: id}}, nil
	})
}

// DeleteShoe removes a shoe and cancels any recomputation in flight for it.
// No replacement default is chosen; the outcome names the categories left
// without one.
func (r *Rack) DeleteShoe(ctx context.Context, id string) (registry.DeleteOutcome, error) {
	r.mu.Lock()
	if err := r.checkOpenLocked(); err != nil {
		r.mu.Unlock()
		return registry.DeleteOutcome{}, err
	}
	remaining, out, err := registry.Delete(r.shoes, id)
	if err != nil {
		r.mu.Unlock()
		return registry.DeleteOutcome{}, err
	}
	if err := registry.Check(remaining); err != nil {
		r.mu.Unlock()
		return registry.DeleteOutcome{}, err
	}
	if err := r.store.DeleteShoe(ctx, id); err != nil && !errors.Is(err, types.ErrNotFound) {
		r.mu.Unlock()
		return registry.DeleteOutcome{}, fmt.Errorf("deleting shoe: %w", err)
	}
	r.shoes = remaining
	delete(r.gen, id)
	r.cancelInflightLocked(id)
	r.mu.Unlock()

	if out.NeedsDailyDefault {
		r.logger.Printf("deleted daily default shoe %s; no daily default is set", id)
	}
	r.emit(ctx, []types.Event{{
		Type:       types.EventShoeDeleted,
		ShoeID:     id,
		Categories: out.LostDefaults,
		OccurredAt: r.now(),
	}})
	return out, nil
}
