package rack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/shoerack/internal/observability"
	"github.com/mesh-intelligence/shoerack/internal/registry"
	"github.com/mesh-intelligence/shoerack/internal/wear"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// errStale marks a commit whose inputs changed after planning.
var errStale = errors.New("collection changed during recomputation")

// change is one shoe's planned workout list.
type change struct {
	shoeID   string
	gen      uint64
	snapshot *types.Shoe
}

// plan is the set of shoes a workout mutation will rewrite.
type plan struct {
	targetID string
	changes  []change
	// claimed activity IDs must not be held by any shoe outside the plan
	// at commit time.
	claimed []string
	// added activity IDs must be known to the activity source.
	added         []string
	checkRestrict bool
	events        []types.Event
}

func (p *plan) includes(id string) bool {
	for _, c := range p.changes {
		if c.shoeID == id {
			return true
		}
	}
	return false
}

// recomputed is the outcome of recomputing one planned shoe.
type recomputed struct {
	stats types.Statistics
	// found is nil when the activity fetch failed.
	found   map[string]bool
	elapsed time.Duration
	err     error
}

// planChangeLocked snapshots s with the given workouts and records its
// generation.
func (r *Rack) planChangeLocked(s *types.Shoe, workouts []string) change {
	snap := s.Clone()
	snap.Workouts = append([]string{}, workouts...)
	return change{shoeID: s.ShoeID, gen: r.gen[s.ShoeID], snapshot: snap}
}

// run drives the plan, recompute, commit cycle. planFn is called with the
// lock held and may return a nil plan when there is nothing to do.
func (r *Rack) run(ctx context.Context, targetID string, planFn func() (*plan, error)) (*types.Shoe, types.Statistics, error) {
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		r.mu.Lock()
		if err := r.checkOpenLocked(); err != nil {
			r.mu.Unlock()
			return nil, types.Statistics{}, err
		}
		p, err := planFn()
		if err != nil {
			r.mu.Unlock()
			return nil, types.Statistics{}, err
		}
		if p == nil {
			s := registry.Find(r.shoes, targetID)
			if s == nil {
				r.mu.Unlock()
				return nil, types.Statistics{}, fmt.Errorf("%w: %s", types.ErrShoeNotFound, targetID)
			}
			out := s.Clone()
			r.mu.Unlock()
			return out, out.Statistics(), nil
		}
		r.mu.Unlock()

		results := make([]recomputed, len(p.changes))
		for i, c := range p.changes {
			results[i] = r.recompute(ctx, c.snapshot)
		}
		if err := ctx.Err(); err != nil {
			for _, res := range results {
				observability.RecordRecompute(observability.OutcomeDiscarded, res.elapsed)
			}
			return nil, types.Statistics{}, err
		}

		shoe, stats, err := r.commit(ctx, p, results)
		if errors.Is(err, errStale) {
			observability.RecordConflict()
			r.logger.Printf("commit conflict (shoe=%s attempt=%d), retrying", targetID, attempt)
			continue
		}
		return shoe, stats, err
	}
	return nil, types.Statistics{}, fmt.Errorf("%w: shoe %s after %d attempts", types.ErrConflict, targetID, maxCommitAttempts)
}

// recompute fetches the shoe's activities and samples and returns fresh
// statistics. It runs without the rack lock under a context that
// DeleteShoe cancels. A failed activity fetch is logged and treated as an
// empty activity list.
func (r *Rack) recompute(ctx context.Context, shoe *types.Shoe) recomputed {
	start := time.Now()
	rctx, cancel := context.WithCancel(ctx)
	token := r.track(shoe.ShoeID, cancel)
	defer func() {
		r.untrack(shoe.ShoeID, token)
		cancel()
	}()

	var found map[string]bool
	activities, err := r.source.GetActivities(rctx, shoe.Workouts)
	if err != nil {
		if rctx.Err() != nil {
			return recomputed{err: rctx.Err(), elapsed: time.Since(start)}
		}
		r.logger.Printf("activity fetch failed (shoe=%s): %v", shoe.ShoeID, err)
		observability.RecordActivityFetchFailure()
		activities = nil
	} else {
		found = make(map[string]bool, len(activities))
		for _, a := range activities {
			found[a.ActivityID] = true
		}
	}
	types.SortActivitiesByEndDesc(activities)

	st := wear.Compute(shoe, activities)
	res, err := r.engine.Compute(rctx, activities)
	if err != nil {
		return recomputed{err: err, elapsed: time.Since(start)}
	}
	st.PersonalBests = res.PersonalBests
	st.TotalRuns = res.TotalRuns
	return recomputed{stats: st, found: found, elapsed: time.Since(start)}
}

// commit applies recomputed statistics if the planned shoes are unchanged.
// Results for shoes deleted meanwhile are dropped; if the target itself is
// gone the commit fails with ErrShoeNotFound.
func (r *Rack) commit(ctx context.Context, p *plan, results []recomputed) (*types.Shoe, types.Statistics, error) {
	r.mu.Lock()
	fail := func(err error) (*types.Shoe, types.Statistics, error) {
		r.mu.Unlock()
		return nil, types.Statistics{}, err
	}
	if err := r.checkOpenLocked(); err != nil {
		return fail(err)
	}

	live := make([]int, 0, len(p.changes))
	for i, c := range p.changes {
		if registry.Find(r.shoes, c.shoeID) == nil {
			observability.RecordRecompute(observability.OutcomeDiscarded, results[i].elapsed)
			if c.shoeID == p.targetID {
				return fail(fmt.Errorf("%w: %s", types.ErrShoeNotFound, c.shoeID))
			}
			r.logger.Printf("dropping recomputation for deleted shoe %s", c.shoeID)
			continue
		}
		if r.gen[c.shoeID] != c.gen {
			return fail(errStale)
		}
		if err := results[i].err; err != nil {
			observability.RecordRecompute(observability.OutcomeFailed, results[i].elapsed)
			return fail(fmt.Errorf("recomputing shoe %s: %w", c.shoeID, err))
		}
		live = append(live, i)
	}
	for _, aid := range p.claimed {
		for _, s := range r.shoes {
			if !p.includes(s.ShoeID) && s.HasActivity(aid) {
				return fail(errStale)
			}
		}
	}
	if p.checkRestrict {
		if _, err := r.usableIn(r.shoes, p.targetID); err != nil {
			return fail(err)
		}
	}

	var target recomputed
	for _, i := range live {
		if p.changes[i].shoeID == p.targetID {
			target = results[i]
		}
	}
	if target.found != nil {
		for _, aid := range p.added {
			if !target.found[aid] {
				return fail(fmt.Errorf("%w: %s", types.ErrActivityNotFound, aid))
			}
		}
	}

	now := r.now()
	next := cloneAll(r.shoes)
	touched := make([]*types.Shoe, 0, len(live))
	var stats types.Statistics
	for _, i := range live {
		c := p.changes[i]
		s := registry.Find(next, c.shoeID)
		st := results[i].stats
		st.WearRatio = wear.Ratio(st.TotalDistance, s.LifespanDistance)
		s.Workouts = append([]string{}, c.snapshot.Workouts...)
		s.ApplyStatistics(st)
		s.UpdatedAt = now
		touched = append(touched, s)
		if c.shoeID == p.targetID {
			stats = st
		}
	}
	if err := registry.Check(next); err != nil {
		return fail(err)
	}
	if err := r.store.SaveShoes(ctx, touched...); err != nil {
		return fail(fmt.Errorf("saving shoes: %w", err))
	}
	r.shoes = next
	for _, i := range live {
		r.gen[p.changes[i].shoeID]++
		observability.RecordRecompute(observability.OutcomeApplied, results[i].elapsed)
	}

	events := make([]types.Event, 0, len(p.events))
	for _, ev := range p.events {
		s := registry.Find(next, ev.ShoeID)
		if s == nil {
			continue
		}
		ev.OccurredAt = now
		ev.Shoe = s.Clone()
		events = append(events, ev)
	}
	result := registry.Find(next, p.targetID).Clone()
	r.mu.Unlock()

	r.emit(ctx, events)
	return result, stats, nil
}

// track registers cancel for the shoe's in-flight recomputation. If the
// shoe is already gone the context is cancelled at once.
func (r *Rack) track(shoeID string, cancel context.CancelFunc) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextToken++
	token := r.nextToken
	if !r.open || registry.Find(r.shoes, shoeID) == nil {
		cancel()
		return token
	}
	m := r.inflight[shoeID]
	if m == nil {
		m = make(map[uint64]context.CancelFunc)
		r.inflight[shoeID] = m
	}
	m[token] = cancel
	return token
}

func (r *Rack) untrack(shoeID string, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.inflight[shoeID]
	delete(m, token)
	if len(m) == 0 {
		delete(r.inflight, shoeID)
	}
}

// cancelInflightLocked cancels every recomputation running for shoeID.
func (r *Rack) cancelInflightLocked(shoeID string) {
	for _, cancel := range r.inflight[shoeID] {
		cancel()
	}
	delete(r.inflight, shoeID)
}
