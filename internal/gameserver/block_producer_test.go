package gameserver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
	"github.com/cory-johannsen/construct/internal/gameserver"
)

func TestNewBlockProducer_PanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() {
		gameserver.NewBlockProducer(gameserver.BlockProducerConfig{}, nil, nil, nil, nil, zap.NewNop())
	})
}

func TestBlockProducer_ProduceRunsStepAndRecords(t *testing.T) {
	h := newHarness(t, 0)
	assert.Equal(t, int64(0), h.producer.Height())

	h.attack(t, alice, 1000)
	rep, err := h.producer.Produce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), rep.Height)
	assert.Equal(t, int64(1), h.producer.Height())
	require.Len(t, rep.Turns, 1)
	assert.Equal(t, int64(100), rep.Turns[0].Damage)
	assert.Equal(t, int64(900), h.driver.Hitpoints())

	steps := h.store.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, contract, steps[0].Contract)
	assert.Equal(t, rep.RunID, steps[0].Report.RunID)
	assert.NotEmpty(t, steps[0].Deliveries)
	assert.Equal(t, 0, h.outbox.Len())
	assert.Empty(t, h.store.Snapshots())
}

func TestBlockProducer_EmptyBlocksOnlyAdvanceHeight(t *testing.T) {
	h := newHarness(t, 1)
	for i := 1; i <= 3; i++ {
		rep, err := h.producer.Produce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(i), rep.Height)
		assert.Equal(t, uuid.Nil, rep.RunID)
	}
	assert.Equal(t, int64(3), h.producer.Height())
	assert.Empty(t, h.store.Steps())
	assert.Empty(t, h.store.Snapshots())
}

func TestBlockProducer_SnapshotsEveryN(t *testing.T) {
	h := newHarness(t, 2)
	for i := 0; i < 5; i++ {
		h.noop(t)
		_, err := h.producer.Produce(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, h.store.Steps(), 5)
	snaps := h.store.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, int64(2), snaps[0].Height)
	assert.Equal(t, int64(4), snaps[1].Height)
}

func TestBlockProducer_SnapshotsOnSettlement(t *testing.T) {
	h := newHarness(t, 100)
	// Two players at the 200 HP breach limit need three rounds against 1000 HP.
	for _, sender := range []chain.AccountID{alice, bob} {
		h.attack(t, sender, 2000)
	}
	_, err := h.producer.Produce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.store.Snapshots())

	var settled construct.Report
	for height := 0; height < 40 && settled.Settlement == nil; height++ {
		if !h.driver.State().Construct.Defeated {
			if rec, ok := h.driver.Attacker(alice); !ok || h.producer.Height()+1-rec.LastAttackHeight >= construct.DefaultCoolDown {
				h.attack(t, alice, 2000)
			}
			if rec, ok := h.driver.Attacker(bob); !ok || h.producer.Height()+1-rec.LastAttackHeight >= construct.DefaultCoolDown {
				h.attack(t, bob, 2000)
			}
		}
		settled, err = h.producer.Produce(context.Background())
		require.NoError(t, err)
	}
	require.NotNil(t, settled.Settlement)

	snaps := h.store.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, settled.Height, snaps[0].Height)
	assert.True(t, snaps[0].Construct.Settled)
}

func TestBlockProducer_SubscribersReceiveReports(t *testing.T) {
	h := newHarness(t, 0)
	ch := make(chan construct.Report, 1)
	h.producer.Subscribe(ch)

	h.noop(t)
	_, err := h.producer.Produce(context.Background())
	require.NoError(t, err)
	select {
	case rep := <-ch:
		assert.Equal(t, int64(1), rep.Height)
	default:
		t.Fatal("expected a report")
	}

	h.producer.Unsubscribe(ch)
	h.noop(t)
	_, err = h.producer.Produce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ch)
}

type failingStore struct{}

func (failingStore) RecordStep(context.Context, chain.AccountID, construct.Report, []chain.Delivery) error {
	return errors.New("disk full")
}

func (failingStore) SaveSnapshot(context.Context, int64, *construct.Construct) (uuid.UUID, error) {
	return uuid.Nil, errors.New("disk full")
}

func (failingStore) RecentSteps(context.Context, chain.AccountID, int) ([]construct.StepSummary, error) {
	return nil, errors.New("disk full")
}

func (failingStore) StepDeliveries(context.Context, uuid.UUID) ([]chain.Delivery, error) {
	return nil, errors.New("disk full")
}

func (failingStore) LatestSnapshot(context.Context, chain.AccountID) (gameserver.SnapshotRecord, bool, error) {
	return gameserver.SnapshotRecord{}, false, errors.New("disk full")
}

func TestBlockProducer_StoreErrorIsReturned(t *testing.T) {
	h := newHarness(t, 0)
	p := gameserver.NewBlockProducer(
		gameserver.BlockProducerConfig{Contract: contract, Interval: time.Second, StartHeight: 7},
		h.driver, h.pool, h.outbox, failingStore{}, zap.NewNop(),
	)
	h.noop(t)
	_, err := p.Produce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording block 7")
	assert.Equal(t, int64(7), p.Height())
}

func TestBlockProducer_CancelledContextConsumesHeight(t *testing.T) {
	h := newHarness(t, 0)
	h.attack(t, alice, 1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.producer.Produce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), h.producer.Height())
	assert.Equal(t, int64(1000), h.driver.Hitpoints())
	assert.Empty(t, h.store.Steps())
	assert.Equal(t, 20_000*chain.Coin, h.ledger.NativeBalance(alice))
	assert.Zero(t, h.ledger.NativeBalance(contract))
}

func TestBlockProducer_StartStop(t *testing.T) {
	h := newHarness(t, 0)
	ch := make(chan construct.Report, 16)
	h.producer.Subscribe(ch)
	h.attack(t, alice, 1000)

	errCh := make(chan error, 1)
	go func() { errCh <- h.producer.Start() }()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no block produced")
	}
	h.producer.Stop()
	h.producer.Stop()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	assert.GreaterOrEqual(t, h.producer.Height(), int64(1))
}
