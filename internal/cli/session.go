package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mesh-intelligence/shoerack/internal/events"
	"github.com/mesh-intelligence/shoerack/internal/postgres"
	"github.com/mesh-intelligence/shoerack/internal/rack"
	"github.com/mesh-intelligence/shoerack/pkg/sqlite"
	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// storage is what every backend offers the commands.
type storage interface {
	types.ShoeStore
	types.ActivitySource
	types.ActivityWriter
}

// session is an opened backend plus a rack over it. Close releases both.
type session struct {
	store     storage
	rack      *rack.Rack
	publisher types.Publisher
	closers   []func() error
}

// openStorage attaches the configured backend without opening a rack.
func (a *app) openStorage(ctx context.Context) (*session, error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, err
	}

	s := &session{}
	switch cfg.Backend {
	case types.BackendPostgres:
		repo, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("attach backend: %w", err)
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("attach backend: %w", err)
		}
		s.store = repo
		s.closers = append(s.closers, func() error { repo.Close(); return nil })
	default:
		backend := sqlite.NewBackend()
		if err := backend.Attach(cfg); err != nil {
			return nil, fmt.Errorf("attach backend: %w", err)
		}
		s.store = backend
		s.closers = append(s.closers, backend.Detach)
	}
	return s, nil
}

// openSession attaches the backend and opens a rack with the configured
// entitlement, concurrency and event publisher.
func (a *app) openSession(ctx context.Context) (*session, error) {
	s, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	out := a.logOutput()
	s.publisher = events.New(a.kafkaBrokers(), a.config.GetString(cfgKeyKafkaTopic), log.New(out, "[events] ", log.LstdFlags))
	s.closers = append(s.closers, s.publisher.Close)

	r, err := rack.Open(ctx, s.store, s.store,
		rack.WithLogger(log.New(out, "[rack] ", log.LstdFlags)),
		rack.WithEntitlement(a.tier()),
		rack.WithConcurrency(a.config.GetInt(cfgKeyFetchConcurrency)),
		rack.WithPublisher(s.publisher),
	)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open rack: %w", err)
	}
	s.rack = r
	return s, nil
}

// Close closes the rack, then the publisher and backend in reverse order of
// opening.
func (s *session) Close() error {
	var errs []error
	if s.rack != nil {
		errs = append(errs, s.rack.Close())
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}
