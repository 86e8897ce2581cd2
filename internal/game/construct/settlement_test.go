package construct_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
)

// defeat runs one step in which alice draws first blood and bob lands the
// final blow, with 10,000 coins paid in total.
func defeat(f *fixture) construct.Report {
	f.admin(construct.SetBreachLimit{Percent: 100})
	f.attack(alice, 100)
	f.attack(bob, 9_900)
	return f.step(1)
}

func TestSettlement_PaysOutPrizePool(t *testing.T) {
	f := newFixture(t)
	rep := defeat(f)

	c := f.state()
	assert.True(t, c.Defeated)
	assert.True(t, c.Settled)
	assert.Equal(t, bob, c.FinalBlow)
	assert.Equal(t, alice, c.FirstBlood)
	assert.Zero(t, f.hitpoints())

	require.NotNil(t, rep.Settlement)
	s := rep.Settlement
	assert.Equal(t, 500*chain.Coin, s.FinalBlowBonus)
	assert.Equal(t, 100*chain.Coin, s.FirstBloodBonus)
	assert.Equal(t, 470*chain.Coin, s.Treasury)
	assert.Equal(t, 2, s.Holders)
	assert.Equal(t, 7990*chain.Coin-2*construct.DistributionFeePerHolder, s.Players)
	assert.Equal(t, int64(94_000_200_000), s.Burned)
	assert.Zero(t, f.ledger.NativeBalance(contract))

	assert.Equal(t, startingCoins+470*chain.Coin, f.ledger.NativeBalance(creator))
	assert.Equal(t, startingCoins-100*chain.Coin+100*chain.Coin+7_989_998_000, f.ledger.NativeBalance(alice))
	assert.Equal(t, startingCoins-9_900*chain.Coin+500*chain.Coin+791_009_802_000, f.ledger.NativeBalance(bob))
}

func TestSettlement_NotifiesAndEmits(t *testing.T) {
	f := newFixture(t)
	defeat(f)

	assert.Contains(t, f.noticesTo(creator), construct.NoticeDefeated.Text())
	assert.Contains(t, f.noticesTo(bob), construct.NoticeVictory.Text())
	assert.Contains(t, f.noticesTo(alice), construct.NoticeFirstBloodBonus.Text())
	assert.Equal(t, []chain.Event{
		chain.NewEvent(chain.EventHit, int64(alice), 10, 990),
		chain.NewEvent(chain.EventDefeated, int64(bob), 0, 0),
	}, f.eventsTo(listener), "the defeating hit emits no hit event")
}

func TestSettlement_TransfersRewardCollectible(t *testing.T) {
	f := newFixture(t, func(g *construct.Genesis) { g.RewardCollectible = collectible })
	defeat(f)

	owner, ok := f.ledger.CollectibleOwner(collectible)
	require.True(t, ok)
	assert.Equal(t, bob, owner)
	assert.Equal(t, construct.CollectibleTransferFee, f.ledger.NativeBalance(collectible))
}

func TestSettlement_RunsOnceAndLaterAttacksAreRefunded(t *testing.T) {
	f := newFixture(t)
	defeat(f)

	f.attack(carol, 100, chain.Attachment{})
	rep := f.step(2)

	assert.Nil(t, rep.Settlement)
	assert.Empty(t, rep.Turns)
	assert.Len(t, rep.Refunded, 1)
	assert.Equal(t, startingCoins, f.ledger.NativeBalance(carol))
	assert.Contains(t, f.noticesTo(carol), construct.NoticeAlreadyDefeated.Text())
	assert.Empty(t, f.eventsTo(listener))
}

func TestSettlement_ActionsAfterDefeatInSameStepAreRefunded(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetBreachLimit{Percent: 100})
	f.attack(bob, 10_000)
	f.attack(carol, 100)
	rep := f.step(1)

	require.Len(t, rep.Turns, 1)
	assert.Equal(t, []uint64{3}, rep.Refunded)
	assert.Equal(t, startingCoins, f.ledger.NativeBalance(carol))
	require.NotNil(t, rep.Settlement)
}

func TestSettlement_SkipsRegeneration(t *testing.T) {
	f := newFixture(t, func(g *construct.Genesis) {
		g.Regeneration = construct.GenesisRegeneration{BlockInterval: 1, Hitpoints: 100}
	})
	defeat(f)
	rep := f.step(50)

	assert.Zero(t, rep.Regenerated)
	assert.Zero(t, f.hitpoints())
}
