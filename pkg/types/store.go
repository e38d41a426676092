package types

import (
	"context"
	"errors"
)

// ShoeStore persists the shoe collection. The rack loads every shoe once and
// writes back the shoes a mutation touched. Save must be atomic across the
// shoes passed in one call.
type ShoeStore interface {
	// LoadShoes returns every stored shoe.
	LoadShoes(ctx context.Context) ([]*Shoe, error)

	// SaveShoes creates or replaces the given shoes in one transaction.
	SaveShoes(ctx context.Context, shoes ...*Shoe) error

	// DeleteShoe removes a shoe. Returns ErrNotFound if it does not exist.
	DeleteShoe(ctx context.Context, shoeID string) error
}

// ActivitySource supplies immutable activity records and their distance
// samples. Both calls may be slow and should honor ctx.
type ActivitySource interface {
	// GetActivities returns the activities that exist among ids. Unknown IDs
	// are omitted rather than reported as errors.
	GetActivities(ctx context.Context, ids []string) ([]Activity, error)

	// GetDistanceSamples returns the samples of one activity ordered by
	// start time.
	GetDistanceSamples(ctx context.Context, activityID string) ([]Sample, error)
}

// ActivityWriter stores imported activities.
type ActivityWriter interface {
	PutActivity(ctx context.Context, activity Activity, samples []Sample) error
	ListActivities(ctx context.Context) ([]Activity, error)
}

// EntitlementSource reports the user's tier.
type EntitlementSource interface {
	IsPremium() bool
	ShoeLimit() int
}

// Publisher delivers change events outside the process.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Backend is a store with an attach/detach lifecycle that serves shoes and
// activities from one place.
type Backend interface {
	ShoeStore
	ActivitySource
	ActivityWriter

	// Attach opens the store described by config.
	Attach(config Config) error

	// Detach flushes pending writes and releases resources. It is
	// idempotent.
	Detach() error
}
