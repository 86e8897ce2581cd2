package gameserver_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
	"github.com/cory-johannsen/construct/internal/game/dice"
	"github.com/cory-johannsen/construct/internal/gameserver"
)

const (
	contract chain.AccountID = 999
	creator  chain.AccountID = 555
	alice    chain.AccountID = 10
	bob      chain.AccountID = 20

	rewardToken chain.TokenID = 1000
)

type harness struct {
	ledger   *chain.MemLedger
	outbox   *chain.Outbox
	pool     *chain.Mempool
	driver   *construct.Driver
	store    *gameserver.MemoryStore
	producer *gameserver.BlockProducer
}

func newHarness(t *testing.T, snapshotEvery int64) *harness {
	t.Helper()
	g := construct.Genesis{
		Name:         "CT000001",
		Contract:     contract,
		Creator:      creator,
		RewardToken:  rewardToken,
		MaxHitpoints: 1000,
		Accounts: []construct.GenesisAccount{
			{ID: contract, Tokens: map[chain.TokenID]int64{rewardToken: 1_000_000}},
			{ID: creator, Balance: 100 * chain.Coin},
			{ID: alice, Balance: 20_000 * chain.Coin},
			{ID: bob, Balance: 20_000 * chain.Coin},
		},
	}
	require.NoError(t, g.Validate())

	ledger := chain.NewMemLedger(5000)
	g.Seed(ledger)
	outbox := chain.NewOutbox()
	rt := construct.Runtime{
		Ledger:  ledger,
		Notices: outbox,
		Events:  outbox,
		Rand:    dice.NewFixedSource(),
		Logger:  zap.NewNop(),
	}
	c, err := construct.Deploy(rt, g)
	require.NoError(t, err)

	h := &harness{
		ledger: ledger,
		outbox: outbox,
		pool:   chain.NewMempool(ledger, contract),
		driver: construct.NewDriver(c, rt),
		store:  gameserver.NewMemoryStore(),
	}
	h.producer = gameserver.NewBlockProducer(
		gameserver.BlockProducerConfig{
			Contract:      contract,
			Interval:      10 * time.Millisecond,
			StartHeight:   1,
			SnapshotEvery: snapshotEvery,
		},
		h.driver, h.pool, h.outbox, h.store, zap.NewNop(),
	)
	return h
}

func (h *harness) attack(t *testing.T, sender chain.AccountID, coins int64) uint64 {
	t.Helper()
	id, err := h.pool.Submit(chain.Action{Sender: sender, Amount: coins * chain.Coin})
	require.NoError(t, err)
	return id
}

// noop queues a creator action with an unknown opcode so the next block
// executes without changing state.
func (h *harness) noop(t *testing.T) {
	t.Helper()
	_, err := h.pool.Submit(chain.Action{Sender: creator, Message: [chain.Slots]int64{99}})
	require.NoError(t, err)
}
