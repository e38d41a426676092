package types

import "errors"

// Lookup and data errors.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrShoeNotFound     = errors.New("shoe not found")
	ErrActivityNotFound = errors.New("activity not found")
	ErrInvalidID        = errors.New("invalid entity ID")
	ErrInvalidData      = errors.New("invalid entity data")
)

// Validation errors for shoe and category input.
var (
	ErrInvalidName             = errors.New("shoe needs a brand, model, or nickname")
	ErrInvalidLifespan         = errors.New("lifespan distance must not be negative")
	ErrInvalidRunCategory      = errors.New("invalid run category")
	ErrInvalidActivityCategory = errors.New("invalid activity category")
	ErrInvalidMode             = errors.New("invalid default mode")
	ErrEmptyCategories         = errors.New("at least one run category is required")
	ErrInvalidActivityFile     = errors.New("invalid activity file")
)

// Rack operation errors.
var (
	ErrShoeRestricted     = errors.New("shoe is restricted on the free tier")
	ErrInvariantViolation = errors.New("shoe collection invariant violated")
	ErrConflict           = errors.New("concurrent modification, retry")
	ErrNotOpen            = errors.New("rack is not open")
)
