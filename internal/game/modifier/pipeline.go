package modifier

import (
	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/mathx"
)

// DamageDivisor converts minor units times a percent ratio into damage:
// 100 (percent) * 10^8 (minor units per coin).
const DamageDivisor = 100 * chain.Coin

// BaseDamage returns floor(amount * ratio / DamageDivisor), computed from
// raw minor units so fractional coins still count.
//
// Postcondition: returns 0 for amount <= 0 or ratio <= 0.
func BaseDamage(amount, ratio int64) int64 {
	if amount <= 0 || ratio <= 0 {
		return 0
	}
	return mathx.MulDiv(amount, ratio, DamageDivisor)
}

// Breakdown records the intermediate values of one pipeline run.
type Breakdown struct {
	Base     int64
	Addition int64
	Final    int64
}

// Pipeline applies the token registry to one action's attachments.
type Pipeline struct {
	reg *Registry
}

// NewPipeline returns a Pipeline reading effects from reg.
//
// Precondition: reg must be non-nil.
func NewPipeline(reg *Registry) *Pipeline {
	return &Pipeline{reg: reg}
}

// Damage runs the full pipeline: flat additions from every slot are summed
// onto base, then multipliers are applied slot by slot in attachment order.
//
// Postcondition: result >= 0 when base >= 0.
func (p *Pipeline) Damage(base int64, attachments [chain.Slots]chain.Attachment) Breakdown {
	b := Breakdown{Base: base}
	for _, a := range attachments {
		b.Addition = mathx.Add(b.Addition, p.addition(a))
	}
	damage := mathx.Add(base, b.Addition)
	for _, a := range attachments {
		damage = p.multiply(damage, a)
	}
	b.Final = damage
	return b
}

// countedQuantity clamps the attached raw quantity to the token's limit,
// converted to raw units with the registered decimals.
func countedQuantity(e Effect, quantity int64) (int64, int64) {
	scale := mathx.Pow10(e.Decimals)
	if e.QuantityLimit > 0 {
		quantity = min(quantity, mathx.Mul(e.QuantityLimit, scale))
	}
	return quantity, scale
}

func (p *Pipeline) addition(a chain.Attachment) int64 {
	if a.Empty() || a.Quantity <= 0 {
		return 0
	}
	e := p.reg.Lookup(a.Token)
	if e.AdditionFlat == 0 {
		return 0
	}
	quantity, scale := countedQuantity(e, a.Quantity)
	return mathx.MulDiv(e.AdditionFlat, quantity, scale)
}

func (p *Pipeline) multiply(damage int64, a chain.Attachment) int64 {
	if a.Empty() || a.Quantity <= 0 {
		return damage
	}
	e := p.reg.Lookup(a.Token)
	if e.MultiplierPercent == 0 {
		return damage
	}
	quantity, scale := countedQuantity(e, a.Quantity)
	if e.MultiplierPercent >= NeutralPercent {
		// Buffs stack linearly in a single step.
		return mathx.MulMulDiv(damage, e.MultiplierPercent, quantity, mathx.Mul(NeutralPercent, scale))
	}
	return Resist(damage, e.MultiplierPercent, quantity, scale)
}

// Resist applies a resistance multiplier once per whole token (compounding),
// then once more with a multiplier interpolated between 100 and multiplier for
// the fractional remainder.
//
// Precondition: 0 < multiplier < 100; scale is 10^decimals.
func Resist(damage, multiplier, quantity, scale int64) int64 {
	whole := quantity / scale
	for i := int64(0); i < whole && damage != 0; i++ {
		damage = mathx.MulDiv(damage, multiplier, NeutralPercent)
	}
	if frac := quantity % scale; frac > 0 {
		interpolated := NeutralPercent - mathx.MulDiv(NeutralPercent-multiplier, frac, scale)
		damage = mathx.MulDiv(damage, interpolated, NeutralPercent)
	}
	return damage
}
