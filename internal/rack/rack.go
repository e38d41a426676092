// Package rack coordinates the shoe collection: it owns the in-memory
// shoes, serializes every mutation, keeps derived statistics current, and
// persists and announces each committed change.
//
// Mutations that change a shoe's workouts follow a plan, recompute, commit
// cycle. Planning and committing happen under the rack lock; the slow
// activity and sample fetches in between do not. A commit is applied only
// if the shoes it touches have not changed workouts since planning,
// otherwise the cycle is retried.
package rack

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/shoerack/internal/bests"
	"github.com/mesh-intelligence/shoerack/internal/entitlement"
	"github.com/mesh-intelligence/shoerack/internal/observability"
	"github.com/mesh-intelligence/shoerack/internal/registry"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// maxCommitAttempts bounds plan/recompute/commit cycles per operation.
const maxCommitAttempts = 3

// Listener receives events after each committed change. Listeners run
// synchronously on the goroutine that made the change, outside the rack
// lock.
type Listener func(types.Event)

// Option configures optional behaviour for the Rack.
type Option func(*Rack)

// WithLogger overrides the rack logger. The same logger is handed to the
// personal-best engine.
func WithLogger(logger *log.Logger) Option {
	return func(r *Rack) {
		r.logger = logger
	}
}

// WithEntitlement sets the tier source. Without one every shoe is usable.
func WithEntitlement(src types.EntitlementSource) Option {
	return func(r *Rack) {
		r.entitlement = src
	}
}

// WithPublisher sends every committed event to p.
func WithPublisher(p types.Publisher) Option {
	return func(r *Rack) {
		r.publisher = p
	}
}

// WithConcurrency bounds concurrent sample fetches per recomputation.
func WithConcurrency(n int) Option {
	return func(r *Rack) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Rack) {
		r.now = now
	}
}

// WithIDGenerator overrides how new shoe IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(r *Rack) {
		r.newID = fn
	}
}

// Rack owns a shoe collection loaded from a ShoeStore.
type Rack struct {
	store       types.ShoeStore
	source      types.ActivitySource
	engine      *bests.Engine
	entitlement types.EntitlementSource
	publisher   types.Publisher
	logger      *log.Logger
	concurrency int
	now         func() time.Time
	newID       func() string

	mu        sync.Mutex
	open      bool
	shoes     []*types.Shoe
	gen       map[string]uint64
	inflight  map[string]map[uint64]context.CancelFunc
	nextToken uint64

	listenerMu   sync.RWMutex
	listeners    map[int]Listener
	nextListener int
}

// Open loads every shoe from store and returns a ready Rack. The loaded
// collection must satisfy the default-assignment invariants.
func Open(ctx context.Context, store types.ShoeStore, source types.ActivitySource, opts ...Option) (*Rack, error) {
	r := &Rack{
		store:       store,
		source:      source,
		logger:      log.New(log.Writer(), "[rack] ", log.LstdFlags),
		concurrency: bests.DefaultConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.Must(uuid.NewV7()).String() },
		gen:         make(map[string]uint64),
		inflight:    make(map[string]map[uint64]context.CancelFunc),
		listeners:   make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.engine = bests.NewEngine(source, bests.WithLogger(r.logger), bests.WithConcurrency(r.concurrency))

	shoes, err := store.LoadShoes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading shoes: %w", err)
	}
	for _, s := range shoes {
		s.Normalize()
	}
	if err := registry.Check(shoes); err != nil {
		return nil, fmt.Errorf("loaded collection: %w", err)
	}

	r.shoes = shoes
	r.open = true
	observability.SetRestrictedShoes(len(entitlement.RestrictedFor(shoes, r.entitlement)))
	return r, nil
}

// Close cancels in-flight recomputations. Later calls return ErrNotOpen.
// The store and publisher are owned by the caller and stay open.
func (r *Rack) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil
	}
	r.open = false
	for id := range r.inflight {
		r.cancelInflightLocked(id)
	}
	return nil
}

// Shoes returns copies of every shoe in collection order.
func (r *Rack) Shoes() ([]*types.Shoe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil, types.ErrNotOpen
	}
	out := make([]*types.Shoe, 0, len(r.shoes))
	for _, s := range r.shoes {
		out = append(out, s.Clone())
	}
	return out, nil
}

// Shoe returns a copy of one shoe.
func (r *Rack) Shoe(id string) (*types.Shoe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil, types.ErrNotOpen
	}
	s := registry.Find(r.shoes, id)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrShoeNotFound, id)
	}
	return s.Clone(), nil
}

// DefaultShoe returns a copy of the default shoe for c, or nil when the
// category has no default.
func (r *Rack) DefaultShoe(c types.RunCategory) (*types.Shoe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil, types.ErrNotOpen
	}
	return registry.DefaultFor(r.shoes, c).Clone(), nil
}

// RestrictedShoeIDs returns, sorted, the IDs of shoes that cannot be
// modified under the current entitlement.
func (r *Rack) RestrictedShoeIDs() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil, types.ErrNotOpen
	}
	restricted := entitlement.RestrictedFor(r.shoes, r.entitlement)
	observability.SetRestrictedShoes(len(restricted))
	return entitlement.SortedIDs(restricted), nil
}

// Subscribe registers l for every later event and returns a function that
// removes it.
func (r *Rack) Subscribe(l Listener) (unsubscribe func()) {
	r.listenerMu.Lock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = l
	r.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.listenerMu.Lock()
			delete(r.listeners, id)
			r.listenerMu.Unlock()
		})
	}
}

// emit delivers events to listeners in subscription order and then to the
// publisher. Publish failures are logged and never fail the mutation.
func (r *Rack) emit(ctx context.Context, events []types.Event) {
	if len(events) == 0 {
		return
	}

	r.listenerMu.RLock()
	ids := make([]int, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, r.listeners[id])
	}
	r.listenerMu.RUnlock()

	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
		if r.publisher == nil {
			continue
		}
		err := r.publisher.Publish(ctx, ev)
		observability.RecordEvent(string(ev.Type), err)
		if err != nil {
			r.logger.Printf("publish failed (event=%s shoe=%s): %v", ev.Type, ev.ShoeID, err)
		}
	}
}

// checkOpenLocked must be called with r.mu held.
func (r *Rack) checkOpenLocked() error {
	if !r.open {
		return types.ErrNotOpen
	}
	return nil
}

// usableLocked returns the shoe if it exists and is not restricted.
func (r *Rack) usableLocked(id string) (*types.Shoe, error) {
	if err := r.checkOpenLocked(); err != nil {
		return nil, err
	}
	return r.usableIn(r.shoes, id)
}

// usableIn looks id up in shoes and applies the entitlement check against
// that collection.
func (r *Rack) usableIn(shoes []*types.Shoe, id string) (*types.Shoe, error) {
	s := registry.Find(shoes, id)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrShoeNotFound, id)
	}
	if entitlement.IsRestricted(entitlement.RestrictedFor(shoes, r.entitlement), id) {
		return nil, fmt.Errorf("%w: %s", types.ErrShoeRestricted, id)
	}
	return s, nil
}

// mutation edits a working copy of the collection. It returns the
// resulting collection, the IDs of shoes to persist and the events to emit.
type mutation func(working []*types.Shoe) ([]*types.Shoe, []string, []types.Event, error)

// mutate applies fn to a copy of the collection. If fn succeeds and the
// copy still satisfies the invariants, the shoes fn reports as touched are
// saved in one call and the copy replaces the collection. Events returned
// by fn are emitted after the lock is released, with shoe snapshots filled
// in from the committed collection. The returned shoe is a copy of
// resultID after the commit, or nil if it no longer exists.
func (r *Rack) mutate(ctx context.Context, resultID string, fn mutation) (*types.Shoe, error) {
	r.mu.Lock()
	if err := r.checkOpenLocked(); err != nil {
		r.mu.Unlock()
		return nil, err
	}

	working := cloneAll(r.shoes)
	working, touched, events, err := fn(working)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if err := registry.Check(working); err != nil {
		r.mu.Unlock()
		return nil, err
	}

	toSave := make([]*types.Shoe, 0, len(touched))
	for _, id := range dedupe(touched) {
		if s := registry.Find(working, id); s != nil {
			toSave = append(toSave, s)
		}
	}
	if len(toSave) > 0 {
		if err := r.store.SaveShoes(ctx, toSave...); err != nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("saving shoes: %w", err)
		}
	}
	r.shoes = working

	for i := range events {
		if events[i].OccurredAt.IsZero() {
			events[i].OccurredAt = r.now()
		}
		if s := registry.Find(working, events[i].ShoeID); s != nil && events[i].Type != types.EventShoeDeleted {
			events[i].Shoe = s.Clone()
		}
	}
	result := registry.Find(working, resultID).Clone()
	r.mu.Unlock()

	r.emit(ctx, events)
	return result, nil
}

func cloneAll(shoes []*types.Shoe) []*types.Shoe {
	out := make([]*types.Shoe, len(shoes))
	for i, s := range shoes {
		out[i] = s.Clone()
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
