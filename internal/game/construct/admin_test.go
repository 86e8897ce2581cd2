package construct_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
)

func TestDecodeCommand_RoundTrip(t *testing.T) {
	cmds := []construct.Command{
		construct.SetActive{Active: true},
		construct.SetBreachLimit{Percent: 40},
		construct.SetDamageMultiplier{Token: boostToken, Percent: 150, Limit: 3},
		construct.SetDamageAddition{Token: boostToken, Addition: 12, Limit: 0},
		construct.SetRewardCollectible{Collectible: collectible},
		construct.SetRewardDistribution{PlayersPercent: 70, TreasuryPercent: 20},
		construct.SetBonuses{FirstBlood: 1, FinalBlow: 2},
		construct.SetDebuff{ChancePercent: 25, ReductionPercent: -10, MaxStack: 3},
		construct.SetRegeneration{BlockInterval: 10, HitpointsPerInterval: 5},
		construct.Heal{Hitpoints: 100},
		construct.SetTokenDecimals{Token: shieldToken, Decimals: 2},
		construct.SetEventListener{Listener: listener},
	}
	for _, cmd := range cmds {
		t.Run(cmd.Opcode().String(), func(t *testing.T) {
			got, ok := construct.DecodeCommand(cmd.Message())
			require.True(t, ok)
			assert.Equal(t, cmd, got)
		})
	}
}

func TestDecodeCommand_UnknownOpcode(t *testing.T) {
	_, ok := construct.DecodeCommand([chain.Slots]int64{99, 1, 2, 3})
	assert.False(t, ok)
	_, ok = construct.DecodeCommand([chain.Slots]int64{})
	assert.False(t, ok)
}

func TestAdmin_UnknownOpcodeIgnored(t *testing.T) {
	f := newFixture(t)
	_, err := f.pool.Submit(chain.Action{Sender: creator, Amount: chain.Coin, Message: [chain.Slots]int64{42}})
	require.NoError(t, err)
	rep := f.step(1)

	assert.Empty(t, rep.Commands)
	assert.Empty(t, rep.Turns)
	assert.Equal(t, chain.Coin, f.ledger.NativeBalance(contract), "creator funding stays in the pool")
}

func TestAdmin_SetActiveFalseRefundsAttacks(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetActive{Active: false})
	f.attack(alice, 100, chain.Attachment{Token: boostToken, Quantity: 2})
	rep := f.step(1)

	assert.False(t, f.state().Active)
	assert.Empty(t, rep.Turns)
	assert.Equal(t, []uint64{2}, rep.Refunded)
	assert.Equal(t, startingCoins, f.ledger.NativeBalance(alice))
	assert.Equal(t, int64(10), f.ledger.TokenBalance(alice, boostToken))
	assert.Contains(t, f.noticesTo(alice), construct.NoticeNotActive.Text())
	assert.Equal(t, []chain.Event{chain.NewEvent(chain.EventActiveToggled, 0, 0, 0)}, f.eventsTo(listener))

	f.admin(construct.SetActive{Active: true})
	f.attack(alice, 100)
	rep = f.step(2)
	assert.Len(t, rep.Turns, 1)
}

func TestAdmin_SetBreachLimitRange(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetBreachLimit{Percent: 0})
	f.admin(construct.SetBreachLimit{Percent: 101})
	f.step(1)
	assert.Equal(t, construct.DefaultBreachLimitPercent, f.state().Params.BreachLimitPercent)

	f.admin(construct.SetBreachLimit{Percent: 100})
	f.step(2)
	assert.Equal(t, int64(100), f.state().Params.BreachLimitPercent)
}

func TestAdmin_ModifierOnUnregisteredTokenWarns(t *testing.T) {
	const unknown chain.TokenID = 3003
	f := newFixture(t)
	f.admin(construct.SetDamageMultiplier{Token: unknown, Percent: 300, Limit: 2})
	f.admin(construct.SetDamageAddition{Token: boostToken, Addition: 5, Limit: -1})
	f.step(1)

	assert.Equal(t, []string{construct.NoticeUnregisteredToken.Text()}, f.noticesTo(creator))
	mods := f.state().Modifiers
	assert.Equal(t, int64(300), mods.Lookup(unknown).MultiplierPercent)
	assert.Equal(t, int64(2), mods.Lookup(unknown).QuantityLimit)
	assert.Equal(t, int64(5), mods.Lookup(boostToken).AdditionFlat)
}

func TestAdmin_SetRewardCollectible(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetRewardCollectible{Collectible: 31337})
	f.step(1)
	assert.Equal(t, []string{construct.NoticeCollectibleMissing.Text()}, f.noticesTo(creator))
	assert.Zero(t, f.state().Params.RewardCollectible)

	f.admin(construct.SetRewardCollectible{Collectible: collectible})
	f.step(2)
	assert.Equal(t, collectible, f.state().Params.RewardCollectible)
}

func TestAdmin_SetRewardDistribution(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetRewardDistribution{PlayersPercent: 90, TreasuryPercent: 20})
	f.admin(construct.SetRewardDistribution{PlayersPercent: -1, TreasuryPercent: 20})
	f.step(1)
	assert.Equal(t, construct.Distribution{PlayersPercent: 85, TreasuryPercent: 5}, f.state().Params.Distribution)

	f.admin(construct.SetRewardDistribution{PlayersPercent: 70, TreasuryPercent: 30})
	f.step(2)
	d := f.state().Params.Distribution
	assert.Equal(t, construct.Distribution{PlayersPercent: 70, TreasuryPercent: 30}, d)
	assert.Zero(t, d.BurnPercent())
}

func TestAdmin_SetRewardDistributionRejectsWrappingSums(t *testing.T) {
	f := newFixture(t, func(g *construct.Genesis) { g.BreachLimitPercent = 100 })
	f.admin(construct.SetRewardDistribution{PlayersPercent: math.MaxInt64, TreasuryPercent: 1})
	f.admin(construct.SetRewardDistribution{PlayersPercent: 1, TreasuryPercent: math.MaxInt64})
	f.admin(construct.SetRewardDistribution{PlayersPercent: 101, TreasuryPercent: 0})
	f.step(1)
	assert.Equal(t, construct.Distribution{PlayersPercent: 85, TreasuryPercent: 5}, f.state().Params.Distribution)

	f.attack(alice, 10_000)
	f.step(2)
	assert.True(t, f.state().Defeated)
	assert.True(t, f.state().Settled)
}

func TestDistribution_Valid(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := construct.Distribution{
			PlayersPercent:  rapid.Int64().Draw(rt, "players"),
			TreasuryPercent: rapid.Int64().Draw(rt, "treasury"),
		}
		if d.Valid() {
			assert.GreaterOrEqual(rt, d.BurnPercent(), int64(0))
			assert.LessOrEqual(rt, d.BurnPercent(), int64(100))
		}
	})
}

func TestAdmin_SetBonusesFieldwise(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetBonuses{FirstBlood: -1, FinalBlow: 0})
	f.step(1)

	p := f.state().Params
	assert.Equal(t, 100*chain.Coin, p.FirstBloodBonus)
	assert.Zero(t, p.FinalBlowBonus)
}

func TestAdmin_SetDebuffReductionAlwaysWritten(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetDebuff{ChancePercent: 20, ReductionPercent: 10, MaxStack: 3})
	f.admin(construct.SetDebuff{ChancePercent: -10, ReductionPercent: 15, MaxStack: -5})
	f.step(1)

	assert.Equal(t, construct.DebuffProfile{ChancePercent: 20, ReductionPercent: 15, MaxStack: 3}, f.state().Params.Debuff)
}

func TestAdmin_SetDebuffReductionOutOfRangeIgnored(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetDebuff{ChancePercent: 20, ReductionPercent: -50, MaxStack: 3})
	f.admin(construct.SetDebuff{ChancePercent: -1, ReductionPercent: math.MinInt64, MaxStack: -1})
	f.admin(construct.SetDebuff{ChancePercent: -1, ReductionPercent: 101, MaxStack: -1})
	f.step(1)
	assert.Equal(t, int64(-50), f.state().Params.Debuff.ReductionPercent)

	f.admin(construct.SetDebuff{ChancePercent: -1, ReductionPercent: construct.MinDebuffReductionPercent, MaxStack: -1})
	f.step(2)
	assert.Equal(t, construct.MinDebuffReductionPercent, f.state().Params.Debuff.ReductionPercent)
}

func TestAdmin_SetRegenerationBounds(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetRegeneration{BlockInterval: 10, HitpointsPerInterval: 1001})
	f.step(1)
	r := f.state().Params.Regeneration
	assert.Equal(t, int64(10), r.BlockInterval)
	assert.Zero(t, r.HitpointsPerInterval)
}

func TestAdmin_HealClampsToMax(t *testing.T) {
	f := newFixture(t)
	f.attack(alice, 300)
	f.step(1)
	require.Equal(t, int64(970), f.hitpoints())

	f.admin(construct.Heal{Hitpoints: 500})
	f.step(2)

	assert.Equal(t, int64(1000), f.hitpoints())
	assert.Equal(t, []string{construct.NoticeHealer.Text()}, f.noticesTo(creator))
	assert.Equal(t, []chain.Event{chain.NewEvent(chain.EventHealed, int64(creator), 30, 1000)}, f.eventsTo(listener))
}

func TestAdmin_HealNonPositiveIgnored(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.Heal{Hitpoints: 0})
	f.step(1)
	assert.Empty(t, f.noticesTo(creator))
}

func TestAdmin_SetTokenDecimals(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetTokenDecimals{Token: 3003, Decimals: 7})
	f.admin(construct.SetTokenDecimals{Token: 3004, Decimals: 2})
	f.step(1)

	mods := f.state().Modifiers
	_, ok := mods.Decimals(3003)
	assert.False(t, ok)
	dec, ok := mods.Decimals(3004)
	assert.True(t, ok)
	assert.Equal(t, 2, dec)
}

func TestAdmin_ClearEventListener(t *testing.T) {
	f := newFixture(t)
	f.admin(construct.SetEventListener{Listener: 0})
	f.attack(alice, 100)
	f.step(1)

	assert.Zero(t, f.state().Params.EventListener)
	for _, d := range f.last {
		assert.Nil(t, d.Event)
	}
}

func TestAdmin_HealIgnoredOnceDefeated(t *testing.T) {
	f := newFixture(t)
	defeat(f)
	f.admin(construct.Heal{Hitpoints: 100})
	f.step(2)

	assert.Zero(t, f.hitpoints())
	assert.Empty(t, f.noticesTo(creator))
}
