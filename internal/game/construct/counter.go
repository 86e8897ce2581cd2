package construct

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/dice"
	"github.com/cory-johannsen/construct/internal/mathx"
)

// CounterChance returns the counter-attack probability in percent for an
// attack whose damage before the breach cap was preBreach. Damage above the
// breach threshold scales the configured chance by the overkill ratio, capped
// at MaxCounterChance.
func (c *Construct) CounterChance(preBreach int64) int64 {
	chance := c.Params.Debuff.ChancePercent
	limit, ok := c.BreachDamage()
	if !ok || limit <= 0 || preBreach <= limit {
		return chance
	}
	return min(mathx.MulDiv(chance, preBreach, limit), MaxCounterChance)
}

// counterAttack rolls the counter-attack for the attacker and applies a stack
// on success.
//
// Postcondition: returns true iff a roll succeeded and a stack was added; a
// stack at the configured maximum absorbs the hit silently.
func (t *turn) counterAttack(attacker chain.AccountID, preBreach int64) bool {
	c := t.c
	if !c.Params.Debuff.Enabled() {
		return false
	}
	chance := c.CounterChance(preBreach)
	hit := dice.Percent(t.rt.Rand, chance)
	t.rt.Logger.Debug("counter-attack roll",
		zap.Stringer("attacker", attacker),
		zap.Int64("chance", chance),
		zap.Bool("hit", hit),
	)
	if !hit || !c.Attackers.IncrementStack(attacker, c.Params.Debuff.MaxStack) {
		return false
	}
	if c.Params.Debuff.ReductionPercent < 0 {
		t.notify(attacker, NoticeCounterBuff)
	} else {
		t.notify(attacker, NoticeCounterDebuff)
	}
	t.emit(chain.EventCounterAttacked, int64(attacker), 0, 0)
	return true
}
