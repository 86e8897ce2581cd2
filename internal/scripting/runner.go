package scripting

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
	"github.com/cory-johannsen/construct/internal/game/dice"
	"github.com/cory-johannsen/construct/internal/gameserver"
)

// DefaultFirstTokenID is the first id the scenario ledger issues.
const DefaultFirstTokenID chain.TokenID = 10000

// Options configures a Runner.
type Options struct {
	// Rand overrides the weak block-derived source seeded with Seed.
	Rand dice.Source
	Seed string
	// FirstTokenID is the first token id issued by the ledger; 0 uses DefaultFirstTokenID.
	FirstTokenID chain.TokenID
	// InstructionLimit bounds each script; 0 uses DefaultInstructionLimit.
	InstructionLimit int
	Logger           *zap.Logger
}

// Runner hosts one Construct on an in-memory chain and executes scenario
// scripts against it. Blocks are produced only when a script advances.
//
// A Runner is not safe for concurrent Run calls.
type Runner struct {
	genesis   construct.Genesis
	contract  chain.AccountID
	ledger    *chain.MemLedger
	outbox    *chain.Outbox
	pool      *chain.Mempool
	driver    *construct.Driver
	store     *gameserver.MemoryStore
	producer  *gameserver.BlockProducer
	rand      dice.Source
	hpToken   chain.TokenID
	instLimit int
	logger    *zap.Logger
}

// NewRunner seeds a fresh ledger from g and deploys the Construct.
//
// Precondition: g must pass Validate.
// Postcondition: No block has been produced; the next block is height 1.
func NewRunner(g construct.Genesis, opts Options) (*Runner, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	first := opts.FirstTokenID
	if first == 0 {
		first = DefaultFirstTokenID
	}
	src := opts.Rand
	if src == nil {
		seed := opts.Seed
		if seed == "" {
			seed = g.Name
		}
		src = dice.NewWeakSource([]byte(seed))
	}

	ledger := chain.NewMemLedger(first)
	g.Seed(ledger)
	outbox := chain.NewOutbox()
	rt := construct.Runtime{
		Ledger:  ledger,
		Notices: outbox,
		Events:  outbox,
		Rand:    dice.NewLoggedSource(src, logger),
		Logger:  logger,
	}
	c, err := construct.Deploy(rt, g)
	if err != nil {
		return nil, fmt.Errorf("scripting: deploying %q: %w", g.Name, err)
	}

	r := &Runner{
		genesis:   g,
		contract:  g.Contract,
		ledger:    ledger,
		outbox:    outbox,
		pool:      chain.NewMempool(ledger, g.Contract),
		driver:    construct.NewDriver(c, rt),
		store:     gameserver.NewMemoryStore(),
		rand:      src,
		hpToken:   c.HitpointToken,
		instLimit: opts.InstructionLimit,
		logger:    logger,
	}
	r.producer = gameserver.NewBlockProducer(
		gameserver.BlockProducerConfig{Contract: g.Contract, Interval: time.Second, StartHeight: 1},
		r.driver, r.pool, r.outbox, r.store, logger,
	)
	return r, nil
}

// Submit queues a for the next block.
func (r *Runner) Submit(a chain.Action) (uint64, error) {
	return r.pool.Submit(a)
}

// Advance produces n blocks and returns the last height.
//
// Postcondition: on error, blocks before the failing one stay produced.
func (r *Runner) Advance(ctx context.Context, n int) (int64, error) {
	for i := 0; i < n; i++ {
		if _, err := r.producer.Produce(ctx); err != nil {
			return r.producer.Height(), err
		}
	}
	return r.producer.Height(), nil
}

// Height returns the last produced height.
func (r *Runner) Height() int64 { return r.producer.Height() }

// State returns the Construct state.
func (r *Runner) State() construct.State { return r.driver.State() }

// Ledger returns the scenario ledger.
func (r *Runner) Ledger() *chain.MemLedger { return r.ledger }

// Blocks returns every produced block in order.
func (r *Runner) Blocks() []gameserver.StepRecord { return r.store.Steps() }

// last returns the deliveries of the most recent block.
func (r *Runner) last() []chain.Delivery {
	steps := r.store.Steps()
	if len(steps) == 0 {
		return nil
	}
	return steps[len(steps)-1].Deliveries
}

// Run executes the scenario file at path.
func (r *Runner) Run(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	return r.RunString(ctx, path, string(src))
}

// RunString executes src as a scenario named name.
//
// Postcondition: a failed assert or engine error is returned as an error;
// blocks produced before the failure remain.
func (r *Runner) RunString(ctx context.Context, name, src string) error {
	L, cancel := NewSandboxedState(ctx, r.instLimit)
	defer L.Close()
	defer cancel()
	r.RegisterModules(L)

	start := time.Now()
	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("scripting: running %q: %w", name, err)
	}
	r.logger.Info("scenario finished",
		zap.String("scenario", name),
		zap.Int64("height", r.Height()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
