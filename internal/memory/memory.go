// Package memory holds the shoe collection and activities in process
// memory. It backs local development and the rack tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// Operations passed to a Hook.
const (
	OpGetActivities = "get_activities"
	OpGetSamples    = "get_samples"
	OpSaveShoes     = "save_shoes"
)

// Hook runs before a store operation. A non-nil error fails the operation.
// Hooks may block on ctx to simulate a slow source.
type Hook func(ctx context.Context, op string, id string) error

// Store implements types.ShoeStore, types.ActivitySource and
// types.ActivityWriter.
type Store struct {
	mu         sync.RWMutex
	shoes      map[string]*types.Shoe
	activities map[string]types.Activity
	samples    map[string][]types.Sample
	hook       Hook
	saves      int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		shoes:      make(map[string]*types.Shoe),
		activities: make(map[string]types.Activity),
		samples:    make(map[string][]types.Sample),
	}
}

// SetHook installs h, replacing any previous hook. Pass nil to remove it.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// SaveCount returns how many SaveShoes calls succeeded.
func (s *Store) SaveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *Store) runHook(ctx context.Context, op, id string) error {
	s.mu.RLock()
	h := s.hook
	s.mu.RUnlock()
	if h == nil {
		return nil
	}
	return h(ctx, op, id)
}

// LoadShoes implements types.ShoeStore. Shoes are returned in ID order.
func (s *Store) LoadShoes(ctx context.Context) ([]*types.Shoe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Shoe, 0, len(s.shoes))
	for _, shoe := range s.shoes {
		out = append(out, shoe.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShoeID < out[j].ShoeID })
	return out, nil
}

// SaveShoes implements types.ShoeStore.
func (s *Store) SaveShoes(ctx context.Context, shoes ...*types.Shoe) error {
	if err := s.runHook(ctx, OpSaveShoes, ""); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, shoe := range shoes {
		if shoe == nil || shoe.ShoeID == "" {
			return types.ErrInvalidID
		}
	}
	for _, shoe := range shoes {
		s.shoes[shoe.ShoeID] = shoe.Clone()
	}
	s.saves++
	return nil
}

// DeleteShoe implements types.ShoeStore.
func (s *Store) DeleteShoe(ctx context.Context, shoeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shoes[shoeID]; !ok {
		return fmt.Errorf("shoe %s: %w", shoeID, types.ErrNotFound)
	}
	delete(s.shoes, shoeID)
	return nil
}

// GetActivities implements types.ActivitySource.
func (s *Store) GetActivities(ctx context.Context, ids []string) ([]types.Activity, error) {
	if err := s.runHook(ctx, OpGetActivities, ""); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Activity, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.activities[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// GetDistanceSamples implements types.ActivitySource.
func (s *Store) GetDistanceSamples(ctx context.Context, activityID string) ([]types.Sample, error) {
	if err := s.runHook(ctx, OpGetSamples, activityID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.activities[activityID]; !ok {
		return nil, fmt.Errorf("activity %s: %w", activityID, types.ErrActivityNotFound)
	}
	return append([]types.Sample(nil), s.samples[activityID]...), nil
}

// PutActivity implements types.ActivityWriter. An empty activity ID is
// replaced with a random one.
func (s *Store) PutActivity(ctx context.Context, activity types.Activity, samples []types.Sample) error {
	if activity.ActivityID == "" {
		activity.ActivityID = uuid.NewString()
	}
	if err := activity.Validate(); err != nil {
		return err
	}

	sorted := append([]types.Sample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[activity.ActivityID] = activity
	s.samples[activity.ActivityID] = sorted
	return nil
}

// ListActivities implements types.ActivityWriter, newest first.
func (s *Store) ListActivities(ctx context.Context) ([]types.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, a)
	}
	types.SortActivitiesByEndDesc(out)
	return out, nil
}
