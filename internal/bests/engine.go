// Package bests computes per-category personal bests for a shoe by
// interpolating each activity's distance samples to the exact moment the
// category distance was reached.
package bests

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/shoerack/internal/observability"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// DefaultConcurrency bounds simultaneous sample fetches per Compute call.
const DefaultConcurrency = 4

// Result holds the personal bests and qualifying run counts for every
// activity category. TotalRuns has an entry for each category, zero
// included; PersonalBests has entries only for achieved categories.
type Result struct {
	PersonalBests types.PersonalBests
	TotalRuns     map[types.ActivityCategory]int
}

// Option configures optional behaviour for the Engine.
type Option func(*Engine)

// WithLogger overrides the logger used to report fetch failures.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sample fetches.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// Engine computes personal bests using samples from an ActivitySource.
type Engine struct {
	source      types.ActivitySource
	concurrency int
	logger      *log.Logger
}

// NewEngine constructs an Engine reading samples from source.
func NewEngine(source types.ActivitySource, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		concurrency: DefaultConcurrency,
		logger:      log.New(log.Writer(), "[bests] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute returns the personal bests over activities.
//
// Samples are fetched once for every activity long enough for the shortest
// category, concurrently, and reused for each category. The per-category
// minimum is taken only after every fetch has finished or failed. A failed
// fetch is logged and that activity contributes no candidate. Compute
// returns ctx.Err() if ctx is cancelled before the reduction.
func (e *Engine) Compute(ctx context.Context, activities []types.Activity) (Result, error) {
	res := Result{
		PersonalBests: types.PersonalBests{},
		TotalRuns:     make(map[types.ActivityCategory]int, len(types.ActivityCategories)),
	}
	for _, c := range types.ActivityCategories {
		res.TotalRuns[c] = 0
	}

	shortest := types.ActivityCategories[0].Threshold()
	var qualifying []types.Activity
	for _, a := range activities {
		for _, c := range types.ActivityCategories {
			if a.Distance >= c.Threshold() {
				res.TotalRuns[c]++
			}
		}
		if a.Distance >= shortest {
			qualifying = append(qualifying, a)
		}
	}
	if len(qualifying) == 0 {
		return res, ctx.Err()
	}

	crossings := make([]map[types.ActivityCategory]time.Duration, len(qualifying))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, a := range qualifying {
		g.Go(func() error {
			samples, err := e.source.GetDistanceSamples(gctx, a.ActivityID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Printf("sample fetch failed (activity=%s): %v", a.ActivityID, err)
				observability.RecordSampleFetchFailure()
				return nil
			}
			crossings[i] = Crossings(a, samples)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	for _, c := range types.ActivityCategories {
		var best types.PersonalBest
		found := false
		for i, a := range qualifying {
			elapsed, ok := crossings[i][c]
			if !ok {
				continue
			}
			if !found || elapsed < best.Elapsed || (elapsed == best.Elapsed && a.ActivityID < best.ActivityID) {
				best = types.PersonalBest{Elapsed: elapsed, ActivityID: a.ActivityID}
				found = true
			}
		}
		if found {
			res.PersonalBests[c] = best
		}
	}
	return res, nil
}

// Crossings returns the interpolated elapsed time for every category the
// activity qualifies for and whose threshold its samples actually reach.
func Crossings(a types.Activity, samples []types.Sample) map[types.ActivityCategory]time.Duration {
	out := make(map[types.ActivityCategory]time.Duration)
	for _, c := range types.ActivityCategories {
		if a.Distance < c.Threshold() {
			continue
		}
		if elapsed, ok := CrossingElapsed(a, samples, c.Threshold()); ok {
			out[c] = elapsed
		}
	}
	return out
}

// CrossingElapsed walks samples in order, accumulating distance, and returns
// the time from the activity start to the instant threshold meters were
// covered, interpolated linearly inside the sample that crosses it. It
// reports false when the samples never reach the threshold.
func CrossingElapsed(a types.Activity, samples []types.Sample, threshold float64) (time.Duration, bool) {
	var covered float64
	for _, s := range samples {
		if s.Distance <= 0 {
			continue
		}
		if covered+s.Distance >= threshold {
			proportion := (threshold - covered) / s.Distance
			offset := time.Duration(proportion * float64(s.Duration()))
			elapsed := s.StartTime.Add(offset).Sub(a.StartTime)
			if elapsed < 0 {
				return 0, false
			}
			return elapsed, true
		}
		covered += s.Distance
	}
	return 0, false
}
