package rack

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/shoerack/internal/registry"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// AssignActivities moves the activities onto the shoe. Any other shoe
// holding one of them gives it up first, so an activity belongs to at most
// one shoe. Every affected shoe is recomputed before the call returns.
// Activities unknown to the source are rejected with ErrActivityNotFound.
func (r *Rack) AssignActivities(ctx context.Context, activityIDs []string, shoeID string) (*types.Shoe, error) {
	ids := dedupe(activityIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no activity IDs", types.ErrInvalidID)
	}

	shoe, _, err := r.run(ctx, shoeID, func() (*plan, error) {
		target, err := r.usableLocked(shoeID)
		if err != nil {
			return nil, err
		}
		p := &plan{targetID: shoeID, claimed: ids, checkRestrict: true}

		for _, s := range r.shoes {
			if s.ShoeID == shoeID {
				continue
			}
			kept, removed := without(s.Workouts, ids)
			if len(removed) == 0 {
				continue
			}
			p.changes = append(p.changes, r.planChangeLocked(s, kept))
			p.events = append(p.events, types.Event{
				Type:        types.EventActivitiesUnassigned,
				ShoeID:      s.ShoeID,
				ActivityIDs: removed,
			})
		}

		workouts := append([]string{}, target.Workouts...)
		for _, id := range ids {
			if !target.HasActivity(id) {
				workouts = append(workouts, id)
				p.added = append(p.added, id)
			}
		}
		if len(p.added) == 0 && len(p.changes) == 0 {
			return nil, nil
		}
		p.changes = append(p.changes, r.planChangeLocked(target, workouts))
		p.events = append(p.events, types.Event{
			Type:        types.EventActivitiesAssigned,
			ShoeID:      shoeID,
			ActivityIDs: append([]string{}, p.added...),
		})
		return p, nil
	})
	return shoe, err
}

// UnassignActivities removes the activities from the shoe and recomputes
// it. IDs the shoe does not hold are ignored.
func (r *Rack) UnassignActivities(ctx context.Context, activityIDs []string, shoeID string) (*types.Shoe, error) {
	ids := dedupe(activityIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no activity IDs", types.ErrInvalidID)
	}

	shoe, _, err := r.run(ctx, shoeID, func() (*plan, error) {
		target, err := r.usableLocked(shoeID)
		if err != nil {
			return nil, err
		}
		kept, removed := without(target.Workouts, ids)
		if len(removed) == 0 {
			return nil, nil
		}
		return &plan{
			targetID:      shoeID,
			changes:       []change{r.planChangeLocked(target, kept)},
			checkRestrict: true,
			events: []types.Event{{
				Type:        types.EventActivitiesUnassigned,
				ShoeID:      shoeID,
				ActivityIDs: removed,
			}},
		}, nil
	})
	return shoe, err
}

// RecomputeStatistics refreshes the shoe's derived fields from its current
// workouts and returns the full statistics. It is allowed on restricted
// shoes.
func (r *Rack) RecomputeStatistics(ctx context.Context, shoeID string) (types.Statistics, error) {
	_, stats, err := r.run(ctx, shoeID, func() (*plan, error) {
		target := registry.Find(r.shoes, shoeID)
		if target == nil {
			return nil, fmt.Errorf("%w: %s", types.ErrShoeNotFound, shoeID)
		}
		return &plan{
			targetID: shoeID,
			changes:  []change{r.planChangeLocked(target, target.Workouts)},
			events:   []types.Event{{Type: types.EventStatisticsRecomputed, ShoeID: shoeID}},
		}, nil
	})
	return stats, err
}

// RecomputeAll recomputes every shoe. Shoes deleted while it runs are
// skipped; other failures are joined.
func (r *Rack) RecomputeAll(ctx context.Context) error {
	shoes, err := r.Shoes()
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range shoes {
		if _, err := r.RecomputeStatistics(ctx, s.ShoeID); err != nil {
			if errors.Is(err, types.ErrShoeNotFound) {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			errs = append(errs, fmt.Errorf("shoe %s: %w", s.ShoeID, err))
		}
	}
	return errors.Join(errs...)
}

// without returns workouts minus ids, and the IDs actually removed in
// workout order.
func without(workouts, ids []string) (kept, removed []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept = make([]string, 0, len(workouts))
	for _, w := range workouts {
		if drop[w] {
			removed = append(removed, w)
			continue
		}
		kept = append(kept, w)
	}
	return kept, removed
}
