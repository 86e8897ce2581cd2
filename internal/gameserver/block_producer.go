package gameserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
	"github.com/cory-johannsen/construct/internal/observability"
)

// ActionSource yields the actions to include in the next block and takes
// back the value of actions a failed block could not apply.
type ActionSource interface {
	Drain() []chain.Action
	Refund(actions []chain.Action) error
}

// DeliverySource yields the notices and events a block produced.
type DeliverySource interface {
	Drain() []chain.Delivery
}

// BlockProducerConfig configures a BlockProducer.
type BlockProducerConfig struct {
	Contract chain.AccountID
	// Interval is the wall-clock time between blocks.
	Interval time.Duration
	// StartHeight is the height of the first produced block.
	StartHeight int64
	// SnapshotEvery saves a snapshot every N blocks and after settlement; 0 disables.
	SnapshotEvery int64
}

// BlockProducer advances the chain one block per interval: it drains the
// mempool, runs one Driver step at the new height and persists the result.
//
// Invariant: heights are strictly increasing and blocks are produced one at a time.
type BlockProducer struct {
	cfg        BlockProducerConfig
	driver     *construct.Driver
	actions    ActionSource
	deliveries DeliverySource
	store      Store
	logger     *zap.Logger

	mu          sync.Mutex
	height      int64
	subscribers map[chan<- construct.Report]struct{}

	stopOnce sync.Once
	done     chan struct{}
}

// NewBlockProducer returns a stopped producer whose first block is at
// cfg.StartHeight.
//
// Precondition: cfg.Interval must be > 0; all collaborators must be non-nil.
func NewBlockProducer(
	cfg BlockProducerConfig,
	driver *construct.Driver,
	actions ActionSource,
	deliveries DeliverySource,
	store Store,
	logger *zap.Logger,
) *BlockProducer {
	if cfg.Interval <= 0 {
		panic("gameserver.NewBlockProducer: interval must be > 0")
	}
	return &BlockProducer{
		cfg:         cfg,
		driver:      driver,
		actions:     actions,
		deliveries:  deliveries,
		store:       store,
		logger:      logger,
		height:      cfg.StartHeight - 1,
		subscribers: make(map[chan<- construct.Report]struct{}),
		done:        make(chan struct{}),
	}
}

// Height returns the height of the last produced block.
func (p *BlockProducer) Height() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

// Subscribe registers ch to receive the report of each block in which the
// Construct executed.
// If ch is full the report is dropped for that subscriber.
//
// Precondition: ch must not be nil.
func (p *BlockProducer) Subscribe(ch chan<- construct.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the subscriber list.
func (p *BlockProducer) Unsubscribe(ch chan<- construct.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribers, ch)
}

// Produce builds one block immediately. The Construct only executes in
// blocks that carry actions for it; an empty block just advances the height
// and returns a Report with a nil RunID.
//
// A failed step still consumes its height. The Construct and ledger are left
// as they were before the step and every drained action is refunded to its
// sender.
//
// Postcondition: Height() has advanced by one.
func (p *BlockProducer) Produce(ctx context.Context) (construct.Report, error) {
	p.mu.Lock()
	height := p.height + 1
	p.height = height
	p.mu.Unlock()

	start := time.Now()
	actions := p.actions.Drain()
	if len(actions) == 0 {
		p.logger.Debug("empty block", zap.Int64("height", height))
		return construct.Report{Height: height}, nil
	}
	rep, err := p.driver.Step(ctx, height, actions)
	deliveries := p.deliveries.Drain()
	if err != nil {
		txs := make([]uint64, 0, len(actions))
		for _, a := range actions {
			txs = append(txs, a.TxID)
		}
		if rerr := p.actions.Refund(actions); rerr != nil {
			p.logger.Error("refunding failed block",
				zap.Int64("height", height),
				zap.Uint64s("tx_ids", txs),
				zap.Error(rerr),
			)
			return rep, fmt.Errorf("block %d: %w (refund: %w)", height, err, rerr)
		}
		p.logger.Error("block step failed, actions refunded",
			zap.Int64("height", height),
			zap.Uint64s("tx_ids", txs),
			zap.Error(err),
		)
		return rep, err
	}

	if err := p.store.RecordStep(ctx, p.cfg.Contract, rep, deliveries); err != nil {
		return rep, fmt.Errorf("recording block %d: %w", height, err)
	}
	if p.snapshotDue(height, rep) {
		id, err := p.store.SaveSnapshot(ctx, height, p.driver.Snapshot())
		if err != nil {
			return rep, fmt.Errorf("saving snapshot at block %d: %w", height, err)
		}
		p.logger.Debug("snapshot saved", zap.Int64("height", height), zap.Stringer("snapshot_id", id))
	}

	fields := append(observability.ReportFields(rep),
		zap.Int("deliveries", len(deliveries)),
		zap.Duration("elapsed", time.Since(start)),
	)
	p.logger.Info("block produced", fields...)

	p.publish(rep)
	return rep, nil
}

func (p *BlockProducer) snapshotDue(height int64, rep construct.Report) bool {
	if p.cfg.SnapshotEvery <= 0 {
		return false
	}
	return rep.Settlement != nil || height%p.cfg.SnapshotEvery == 0
}

func (p *BlockProducer) publish(rep construct.Report) {
	p.mu.Lock()
	subs := make([]chan<- construct.Report, 0, len(p.subscribers))
	for ch := range p.subscribers {
		subs = append(subs, ch)
	}
	p.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- rep:
		default:
		}
	}
}

// Start produces a block every interval until Stop is called. Block
// failures are logged and do not stop the loop.
//
// Postcondition: Returns nil after Stop.
func (p *BlockProducer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-p.done
		cancel()
	}()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	p.logger.Info("block producer started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int64("next_height", p.Height()+1),
	)
	for {
		select {
		case <-p.done:
			return nil
		case <-ticker.C:
			if _, err := p.Produce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("producing block", zap.Error(err))
			}
		}
	}
}

// Stop ends the loop started by Start. Calling Stop more than once is safe.
func (p *BlockProducer) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}
