package construct

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/mathx"
)

// regenerate heals the Construct in proportion to the blocks elapsed since the
// last tick. The first tick after configuration only records the height.
//
// Precondition: !c.Defeated.
// Postcondition: hit points never exceed MaxHitpoints; when regeneration is
// enabled, LastHeight == t.height.
func (t *turn) regenerate() (int64, error) {
	r := &t.c.Params.Regeneration
	if !r.Enabled() {
		return 0, nil
	}
	if !r.Initialized {
		r.Initialized = true
		r.LastHeight = t.height
		return 0, nil
	}

	elapsed := t.height - r.LastHeight
	r.LastHeight = t.height
	if elapsed <= 0 {
		return 0, nil
	}
	amount := mathx.MulDiv(elapsed, r.HitpointsPerInterval, r.BlockInterval)
	healed, err := t.heal(amount)
	if err != nil || healed == 0 {
		return 0, err
	}

	hp := t.hitpoints()
	t.emit(chain.EventHealed, 0, healed, hp)
	t.rt.Logger.Info("construct regenerated",
		zap.Int64("elapsed", elapsed),
		zap.Int64("healed", healed),
		zap.Int64("hitpoints", hp),
	)
	return healed, nil
}
