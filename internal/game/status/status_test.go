package status_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/status"
)

const attacker chain.AccountID = 10

func TestLedger_InCooldown_NoRecord(t *testing.T) {
	l := status.NewLedger()
	assert.False(t, l.InCooldown(attacker, 100, 15))
}

func TestLedger_InCooldown_Window(t *testing.T) {
	l := status.NewLedger()
	l.RecordAttack(attacker, 100)
	assert.True(t, l.InCooldown(attacker, 100, 15))
	assert.True(t, l.InCooldown(attacker, 114, 15))
	assert.False(t, l.InCooldown(attacker, 115, 15))
}

func TestLedger_InCooldown_HeightZeroStillCounts(t *testing.T) {
	l := status.NewLedger()
	l.RecordAttack(attacker, 0)
	assert.True(t, l.InCooldown(attacker, 3, 15))
}

func TestLedger_RecordAttack_Overwrites(t *testing.T) {
	l := status.NewLedger()
	l.RecordAttack(attacker, 50)
	l.RecordAttack(attacker, 20)
	r, ok := l.Get(attacker)
	require.True(t, ok)
	assert.Equal(t, int64(20), r.LastAttackHeight)
}

func TestLedger_IncrementStack_Caps(t *testing.T) {
	l := status.NewLedger()
	assert.True(t, l.IncrementStack(attacker, 2))
	assert.True(t, l.IncrementStack(attacker, 2))
	assert.False(t, l.IncrementStack(attacker, 2))
	assert.Equal(t, int64(2), l.Stacks(attacker))
}

func TestLedger_IncrementStack_ClampsStaleValueWithoutIncrement(t *testing.T) {
	l := status.NewLedger()
	l.Put(attacker, status.Record{DebuffStacks: 5})
	assert.False(t, l.IncrementStack(attacker, 3))
	assert.Equal(t, int64(3), l.Stacks(attacker), "clamp must be persisted")
}

func TestLedger_EffectiveStacks_ClampedAfterMaxLowered(t *testing.T) {
	l := status.NewLedger()
	l.Put(attacker, status.Record{DebuffStacks: 5})
	assert.Equal(t, int64(2), l.EffectiveStacks(attacker, 2))
	assert.Equal(t, int64(0), l.EffectiveStacks(attacker, 0))
	assert.Equal(t, int64(5), l.Stacks(attacker), "reading must not mutate")
}

func TestLedger_DecrementStack_FloorsAtZero(t *testing.T) {
	l := status.NewLedger()
	l.DecrementStack(attacker)
	assert.Equal(t, int64(0), l.Stacks(attacker))
	l.IncrementStack(attacker, 3)
	l.DecrementStack(attacker)
	assert.Equal(t, int64(0), l.Stacks(attacker))
}

func TestLedger_CloneIsIndependent(t *testing.T) {
	l := status.NewLedger()
	l.RecordAttack(attacker, 7)
	c := l.Clone()
	c.RecordAttack(attacker, 9)
	r, _ := l.Get(attacker)
	assert.Equal(t, int64(7), r.LastAttackHeight)
	assert.Equal(t, []chain.AccountID{attacker}, c.Attackers())
}

func TestApplyDebuff(t *testing.T) {
	assert.Equal(t, int64(100), status.ApplyDebuff(100, 0, 25))
	assert.Equal(t, int64(50), status.ApplyDebuff(100, 2, 25))
	assert.Equal(t, int64(0), status.ApplyDebuff(100, 5, 25), "floored at zero")
	assert.Equal(t, int64(150), status.ApplyDebuff(100, 2, -25), "negative reduction buffs")
	assert.Equal(t, int64(66), status.ApplyDebuff(99, 1, 33))
}

func TestPropertyEffectiveStacks_NeverExceedMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		l := status.NewLedger()
		maxStack := rapid.Int64Range(0, 10).Draw(rt, "max_stack")
		ops := rapid.SliceOfN(rapid.IntRange(0, 2), 0, 40).Draw(rt, "ops")
		for _, op := range ops {
			switch op {
			case 0:
				l.IncrementStack(attacker, maxStack)
			case 1:
				l.DecrementStack(attacker)
			case 2:
				maxStack = rapid.Int64Range(0, 10).Draw(rt, "new_max")
			}
			eff := l.EffectiveStacks(attacker, maxStack)
			assert.GreaterOrEqual(rt, eff, int64(0))
			assert.LessOrEqual(rt, eff, maxStack)
		}
	})
}

func TestPropertyApplyDebuff_NonNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		damage := rapid.Int64Range(0, 1_000_000).Draw(rt, "damage")
		stacks := rapid.Int64Range(0, 20).Draw(rt, "stacks")
		reduction := rapid.Int64Range(-100, 100).Draw(rt, "reduction")
		assert.GreaterOrEqual(rt, status.ApplyDebuff(damage, stacks, reduction), int64(0))
	})
}
