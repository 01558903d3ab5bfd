// Package persistence selects the backing store for workout data at runtime:
// the remote Postgres store when it answers a connectivity probe, the local
// SQLite store otherwise.
package persistence

import (
	"context"
	"log"
	"sync"

	"github.com/hoangtv090103/flex-track/internal/domain"
	"github.com/hoangtv090103/flex-track/internal/observability"
)

// RepositoryType names the active backend for diagnostics.
type RepositoryType string

const (
	RepositoryTypePostgres RepositoryType = "postgres"
	RepositoryTypeSQLite   RepositoryType = "sqlite"
)

// StoreFactory builds a store. The remote factory may fail (for example when
// the connection string cannot be parsed); a failed remote is treated the same
// as a failed probe.
type StoreFactory func(ctx context.Context) (domain.WorkoutStore, error)

// Selector picks a store on first use and keeps that choice for the process
// lifetime. It is constructed once in main and passed by reference; there is
// no package-level instance. Operation-level errors after selection never
// trigger re-selection.
type Selector struct {
	mu          sync.Mutex
	store       domain.WorkoutStore
	kind        RepositoryType
	newRemote   StoreFactory
	newFallback StoreFactory
}

// NewSelector constructs a Selector from the two backend factories.
func NewSelector(remote, fallback StoreFactory) *Selector {
	return &Selector{newRemote: remote, newFallback: fallback}
}

// Store returns the selected store, probing the remote backend on first call.
func (s *Selector) Store(ctx context.Context) (domain.WorkoutStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		return s.store, nil
	}

	if remote, ok := s.probeRemote(ctx); ok {
		s.store = remote
		s.kind = RepositoryTypePostgres
		observability.RecordBackendSelected(string(RepositoryTypePostgres))
		return s.store, nil
	}

	fallback, err := s.newFallback(ctx)
	if err != nil {
		return nil, domain.NewStorageError("open fallback store", err)
	}
	log.Printf("persistence: remote probe failed, falling back to local sqlite store")
	s.store = fallback
	s.kind = RepositoryTypeSQLite
	observability.RecordBackendSelected(string(RepositoryTypeSQLite))
	return s.store, nil
}

// probeRemote builds the remote store and runs its probe. Any error or panic
// counts as a probe failure; nothing propagates.
func (s *Selector) probeRemote(ctx context.Context) (store domain.WorkoutStore, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("persistence: remote probe panicked: %v", r)
			observability.RecordProbeFailure()
			store, ok = nil, false
		}
	}()

	remote, err := s.newRemote(ctx)
	if err != nil {
		log.Printf("persistence: remote store unavailable: %v", err)
		observability.RecordProbeFailure()
		return nil, false
	}
	if !remote.Probe(ctx) {
		observability.RecordProbeFailure()
		return nil, false
	}
	return remote, true
}

// Reset clears the cached selection so the next Store call re-probes.
// Intended for tests and explicit backend switching; nothing calls it
// automatically.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = nil
	s.kind = ""
}

// ActiveRepositoryType reports which backend is selected, or empty before the
// first Store call.
func (s *Selector) ActiveRepositoryType() RepositoryType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}
