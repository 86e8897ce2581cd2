package construct_test

import (
	"context"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
	"github.com/cory-johannsen/construct/internal/game/dice"
)

const (
	contract    chain.AccountID = 999
	creator     chain.AccountID = 555
	listener    chain.AccountID = 777
	alice       chain.AccountID = 10
	bob         chain.AccountID = 20
	carol       chain.AccountID = 30
	collectible chain.AccountID = 4242

	rewardToken chain.TokenID = 1000
	boostToken  chain.TokenID = 2001
	shieldToken chain.TokenID = 2002

	startingCoins = 20_000 * chain.Coin
)

type fixture struct {
	t       require.TestingT
	ledger  *chain.MemLedger
	outbox  *chain.Outbox
	rand    *dice.FixedSource
	pool    *chain.Mempool
	driver  *construct.Driver
	last    []chain.Delivery
	lastErr error
}

func zero() *int64 {
	var v int64
	return &v
}

// baseGenesis is a 1000 HP Construct with modest bonuses and an event
// listener; debuff and regeneration are off.
func baseGenesis() construct.Genesis {
	return construct.Genesis{
		Name:            "CT000001",
		Contract:        contract,
		Creator:         creator,
		RewardToken:     rewardToken,
		MaxHitpoints:    1000,
		FirstBloodBonus: 100 * chain.Coin,
		FinalBlowBonus:  500 * chain.Coin,
		EventListener:   listener,
		Tokens: []construct.GenesisToken{
			{ID: boostToken, Decimals: zero(), Multiplier: 200},
			{ID: shieldToken, Decimals: zero(), Multiplier: 50},
		},
		Accounts: []construct.GenesisAccount{
			{ID: contract, Tokens: map[chain.TokenID]int64{rewardToken: 1_000_000}},
			{ID: alice, Balance: startingCoins, Tokens: map[chain.TokenID]int64{boostToken: 10, shieldToken: 10}},
			{ID: creator, Balance: startingCoins},
			{ID: bob, Balance: startingCoins},
			{ID: carol, Balance: startingCoins},
		},
		Collectibles: []construct.GenesisCollectible{{ID: collectible, Owner: creator}},
	}
}

func newFixture(t require.TestingT, opts ...func(*construct.Genesis)) *fixture {
	g := baseGenesis()
	for _, o := range opts {
		o(&g)
	}
	require.NoError(t, g.Validate())

	ledger := chain.NewMemLedger(5000)
	g.Seed(ledger)
	outbox := chain.NewOutbox()
	src := dice.NewFixedSource()
	rt := construct.Runtime{
		Ledger:  ledger,
		Notices: outbox,
		Events:  outbox,
		Rand:    src,
		Logger:  zap.NewNop(),
	}
	c, err := construct.Deploy(rt, g)
	require.NoError(t, err)
	return &fixture{
		t:      t,
		ledger: ledger,
		outbox: outbox,
		rand:   src,
		pool:   chain.NewMempool(ledger, contract),
		driver: construct.NewDriver(c, rt),
	}
}

func (f *fixture) attack(sender chain.AccountID, coins int64, atts ...chain.Attachment) {
	a := chain.Action{Sender: sender, Amount: coins * chain.Coin}
	copy(a.Attachments[:], atts)
	_, err := f.pool.Submit(a)
	require.NoError(f.t, err)
}

func (f *fixture) admin(cmd construct.Command) {
	_, err := f.pool.Submit(chain.Action{Sender: creator, Message: cmd.Message()})
	require.NoError(f.t, err)
}

func (f *fixture) step(height int64) construct.Report {
	rep, err := f.driver.Step(context.Background(), height, f.pool.Drain())
	f.lastErr = err
	f.last = f.outbox.Drain()
	require.NoError(f.t, err)
	return rep
}

func (f *fixture) state() *construct.Construct {
	return f.driver.Snapshot()
}

func (f *fixture) noticesTo(to chain.AccountID) []string {
	var out []string
	for _, d := range f.last {
		if d.To == to && d.Notice != nil {
			out = append(out, d.Notice.Text)
		}
	}
	return out
}

func (f *fixture) eventsTo(to chain.AccountID) []chain.Event {
	var out []chain.Event
	for _, d := range f.last {
		if d.To == to && d.Event != nil {
			out = append(out, *d.Event)
		}
	}
	return out
}

func (f *fixture) hitpoints() int64 {
	return f.driver.Hitpoints()
}
