package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
	"github.com/cory-johannsen/construct/internal/gameserver"
)

// Store combines the snapshot and journal repositories behind the
// persistence interface the block producer consumes.
type Store struct {
	Snapshots *SnapshotRepository
	Journal   *JournalRepository
}

// NewStore builds a Store over pool.
//
// Precondition: pool must be connected and migrated.
func NewStore(pool *Pool) *Store {
	return &Store{
		Snapshots: NewSnapshotRepository(pool.DB()),
		Journal:   NewJournalRepository(pool.DB()),
	}
}

// RecordStep stores one step summary with its deliveries.
func (s *Store) RecordStep(ctx context.Context, contract chain.AccountID, rep construct.Report, deliveries []chain.Delivery) error {
	return s.Journal.Record(ctx, contract, rep, deliveries)
}

// SaveSnapshot stores c at height.
func (s *Store) SaveSnapshot(ctx context.Context, height int64, c *construct.Construct) (uuid.UUID, error) {
	return s.Snapshots.Save(ctx, height, c)
}

// RecentSteps returns up to limit step summaries of contract, newest first.
func (s *Store) RecentSteps(ctx context.Context, contract chain.AccountID, limit int) ([]construct.StepSummary, error) {
	entries, err := s.Journal.Recent(ctx, contract, limit)
	if err != nil {
		return nil, err
	}
	out := make([]construct.StepSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.StepSummary)
	}
	return out, nil
}

// StepDeliveries returns the deliveries recorded for runID.
func (s *Store) StepDeliveries(ctx context.Context, runID uuid.UUID) ([]chain.Delivery, error) {
	return s.Journal.Deliveries(ctx, runID)
}

// LatestSnapshot returns the newest snapshot of contract.
func (s *Store) LatestSnapshot(ctx context.Context, contract chain.AccountID) (gameserver.SnapshotRecord, bool, error) {
	snap, err := s.Snapshots.Latest(ctx, contract)
	if errors.Is(err, ErrSnapshotNotFound) {
		return gameserver.SnapshotRecord{}, false, nil
	}
	if err != nil {
		return gameserver.SnapshotRecord{}, false, err
	}
	return gameserver.SnapshotRecord{ID: snap.ID, Height: snap.Height, Construct: snap.Construct}, true, nil
}
