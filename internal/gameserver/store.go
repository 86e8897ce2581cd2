package gameserver

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
)

// Store persists what each block produced.
type Store interface {
	// RecordStep stores a step report and the deliveries it produced.
	RecordStep(ctx context.Context, contract chain.AccountID, rep construct.Report, deliveries []chain.Delivery) error
	// SaveSnapshot stores the Construct state at height.
	SaveSnapshot(ctx context.Context, height int64, c *construct.Construct) (uuid.UUID, error)
	// RecentSteps returns up to limit step summaries of contract, newest first.
	RecentSteps(ctx context.Context, contract chain.AccountID, limit int) ([]construct.StepSummary, error)
	// StepDeliveries returns the deliveries recorded for runID, in order.
	// An unknown runID yields no deliveries.
	StepDeliveries(ctx context.Context, runID uuid.UUID) ([]chain.Delivery, error)
	// LatestSnapshot returns the highest-height snapshot of contract; ok is
	// false when none was saved.
	LatestSnapshot(ctx context.Context, contract chain.AccountID) (rec SnapshotRecord, ok bool, err error)
}

// StepRecord is one step kept by MemoryStore.
type StepRecord struct {
	Contract   chain.AccountID
	Report     construct.Report
	Deliveries []chain.Delivery
}

// SnapshotRecord is one saved snapshot.
type SnapshotRecord struct {
	ID        uuid.UUID
	Height    int64
	Construct *construct.Construct
}

// MemoryStore is a Store that keeps everything in process memory.
// It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.Mutex
	steps     []StepRecord
	snapshots []SnapshotRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// RecordStep implements Store.
func (m *MemoryStore) RecordStep(_ context.Context, contract chain.AccountID, rep construct.Report, deliveries []chain.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, StepRecord{
		Contract:   contract,
		Report:     rep,
		Deliveries: append([]chain.Delivery(nil), deliveries...),
	})
	return nil
}

// SaveSnapshot implements Store. c is cloned.
func (m *MemoryStore) SaveSnapshot(_ context.Context, height int64, c *construct.Construct) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.snapshots = append(m.snapshots, SnapshotRecord{ID: id, Height: height, Construct: c.Clone()})
	return id, nil
}

// RecentSteps implements Store.
func (m *MemoryStore) RecentSteps(_ context.Context, contract chain.AccountID, limit int) ([]construct.StepSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []construct.StepSummary
	for i := len(m.steps) - 1; i >= 0 && len(out) < limit; i-- {
		if m.steps[i].Contract == contract {
			out = append(out, m.steps[i].Report.Summary())
		}
	}
	return out, nil
}

// StepDeliveries implements Store.
func (m *MemoryStore) StepDeliveries(_ context.Context, runID uuid.UUID) ([]chain.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.steps {
		if st.Report.RunID == runID {
			return append([]chain.Delivery(nil), st.Deliveries...), nil
		}
	}
	return nil, nil
}

// LatestSnapshot implements Store.
func (m *MemoryStore) LatestSnapshot(_ context.Context, contract chain.AccountID) (SnapshotRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		best  SnapshotRecord
		found bool
	)
	for _, s := range m.snapshots {
		if s.Construct.Self == contract && (!found || s.Height >= best.Height) {
			best, found = s, true
		}
	}
	if found {
		best.Construct = best.Construct.Clone()
	}
	return best, found, nil
}

// Steps returns the recorded steps in order.
func (m *MemoryStore) Steps() []StepRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StepRecord(nil), m.steps...)
}

// Snapshots returns the saved snapshots in order.
func (m *MemoryStore) Snapshots() []SnapshotRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SnapshotRecord(nil), m.snapshots...)
}
