package construct

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/dice"
	"github.com/cory-johannsen/construct/internal/game/modifier"
	"github.com/cory-johannsen/construct/internal/game/status"
	"github.com/cory-johannsen/construct/internal/mathx"
)

// Outcome classifies how an attack turn ended.
type Outcome int

const (
	// OutcomeCooldown means the attack was rejected with a penalty.
	OutcomeCooldown Outcome = iota + 1
	// OutcomeHit means damage was dealt and the Construct survived.
	OutcomeHit
	// OutcomeDefeat means the attack brought hit points to zero.
	OutcomeDefeat
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeCooldown:
		return "cooldown"
	case OutcomeHit:
		return "hit"
	case OutcomeDefeat:
		return "defeat"
	default:
		return "unknown"
	}
}

// TurnResult describes one resolved attack.
type TurnResult struct {
	TxID     uint64
	Attacker chain.AccountID
	Outcome  Outcome
	Pipeline modifier.Breakdown
	// DebuffStacks is the clamped stack count applied to this attack.
	DebuffStacks int64
	// PreBreach is the damage before the breach cap.
	PreBreach int64
	Damage    int64
	Breached  bool
	Countered bool
	// FirstBlood is true when this attack claimed first blood.
	FirstBlood     bool
	HitpointsAfter int64
}

// attack resolves one attack action against an active, undefeated Construct.
//
// Precondition: a.Sender is not the creator; c.Active && !c.Defeated.
// Postcondition: the attacker's last attack height equals t.height unless the
// attack was rejected for cooldown.
func (t *turn) attack(a chain.Action) (TurnResult, error) {
	c := t.c
	res := TurnResult{TxID: a.TxID, Attacker: a.Sender}

	if c.Attackers.InCooldown(a.Sender, t.height, c.Params.CoolDown) {
		res.Outcome = OutcomeCooldown
		return res, t.rejectCooldown(a)
	}

	base := modifier.BaseDamage(a.Amount, c.Params.BaseDamageRatio)
	res.Pipeline = modifier.NewPipeline(c.Modifiers).Damage(base, a.Attachments)
	damage := res.Pipeline.Final

	if c.Attackers.Stacks(a.Sender) > 0 {
		res.DebuffStacks = c.Attackers.EffectiveStacks(a.Sender, c.Params.Debuff.MaxStack)
		damage = status.ApplyDebuff(damage, res.DebuffStacks, c.Params.Debuff.ReductionPercent)
		c.Attackers.DecrementStack(a.Sender)
	}

	res.PreBreach = damage
	if limit, ok := c.BreachDamage(); ok && damage > limit {
		damage = limit
		res.Breached = true
	}

	hp := t.hitpoints()
	res.Outcome = OutcomeHit
	if damage >= hp {
		damage = hp
		c.Defeated = true
		c.FinalBlow = a.Sender
		res.Outcome = OutcomeDefeat
	}
	res.Damage = damage
	res.HitpointsAfter = mathx.Sub(hp, damage)

	t.rt.Logger.Debug("attack resolved",
		zap.Uint64("tx", a.TxID),
		zap.Stringer("attacker", a.Sender),
		zap.Int64("base", res.Pipeline.Base),
		zap.Int64("addition", res.Pipeline.Addition),
		zap.Int64("pipeline", res.Pipeline.Final),
		zap.Int64("stacks", res.DebuffStacks),
		zap.Int64("pre_breach", res.PreBreach),
		zap.Int64("damage", damage),
		zap.Int64("hitpoints", res.HitpointsAfter),
	)

	if err := t.payout(a.Sender, damage); err != nil {
		return res, err
	}

	if c.FirstBlood == 0 {
		c.FirstBlood = a.Sender
		res.FirstBlood = true
		t.notify(a.Sender, NoticeFirstBlood)
	}

	if res.Breached && !c.Defeated {
		t.notify(a.Sender, NoticeBreachLimit)
	}

	res.Countered = t.counterAttack(a.Sender, res.PreBreach)

	c.Attackers.RecordAttack(a.Sender, t.height)

	if c.Defeated {
		t.rt.Logger.Info("construct defeated",
			zap.Stringer("final_blow", c.FinalBlow),
			zap.Int64("height", t.height),
		)
	} else {
		t.emit(chain.EventHit, int64(a.Sender), damage, res.HitpointsAfter)
	}
	return res, nil
}

// payout sends damage units of the reward token and of the hit-point token
// to the attacker. A short reward reserve is reported but not fatal.
func (t *turn) payout(attacker chain.AccountID, damage int64) error {
	c := t.c
	if reserve := c.RewardReserve(t.rt.Ledger); reserve < damage {
		t.rt.Logger.Warn("reward reserve below damage",
			zap.Int64("reserve", reserve),
			zap.Int64("damage", damage),
		)
		t.notify(c.Creator, NoticeInsufficientReward)
	}
	if _, err := t.rt.Ledger.SendToken(c.Self, attacker, c.RewardToken, damage); err != nil {
		return fmt.Errorf("paying reward: %w", err)
	}
	if _, err := t.rt.Ledger.SendToken(c.Self, attacker, c.HitpointToken, damage); err != nil {
		return fmt.Errorf("transferring hitpoints: %w", err)
	}
	return nil
}

// rejectCooldown refunds a cooldown-violating attack minus a penalty: the
// currency is refunded at CooldownRefundPercent with the rest burned, and one
// randomly chosen attachment is withheld.
func (t *turn) rejectCooldown(a chain.Action) error {
	c := t.c
	t.notifyAmount(a.Sender, NoticeCooldown, a.Amount)

	refund := mathx.MulDiv(max(a.Amount, 0), CooldownRefundPercent, 100)
	burn := max(a.Amount, 0) - refund
	if _, err := t.rt.Ledger.SendNative(c.Self, a.Sender, refund); err != nil {
		return fmt.Errorf("refunding cooldown payment: %w", err)
	}
	if _, err := t.rt.Ledger.SendNative(c.Self, chain.Burn, burn); err != nil {
		return fmt.Errorf("burning cooldown penalty: %w", err)
	}

	attached := 0
	for _, att := range a.Attachments {
		if !att.Empty() {
			attached++
		}
	}
	kept := -1
	if attached > 1 {
		kept = dice.Pick(t.rt.Rand, attached)
	}
	i := 0
	for _, att := range a.Attachments {
		if att.Empty() {
			continue
		}
		withhold := attached == 1 || i == kept
		i++
		if withhold {
			continue
		}
		if _, err := t.rt.Ledger.SendToken(c.Self, a.Sender, att.Token, att.Quantity); err != nil {
			return fmt.Errorf("refunding attachment %s: %w", att.Token, err)
		}
	}

	t.rt.Logger.Debug("attack rejected: cooldown",
		zap.Stringer("attacker", a.Sender),
		zap.Int64("refund", refund),
		zap.Int64("burn", burn),
		zap.Int("attachments", attached),
	)
	return nil
}

// refund returns the full payment and every attachment with the given notice.
func (t *turn) refund(a chain.Action, kind NoticeKind) error {
	c := t.c
	t.notifyAmount(a.Sender, kind, a.Amount)
	if _, err := t.rt.Ledger.SendNative(c.Self, a.Sender, max(a.Amount, 0)); err != nil {
		return fmt.Errorf("refunding payment: %w", err)
	}
	for _, att := range a.Attachments {
		if att.Empty() {
			continue
		}
		if _, err := t.rt.Ledger.SendToken(c.Self, a.Sender, att.Token, att.Quantity); err != nil {
			return fmt.Errorf("refunding attachment %s: %w", att.Token, err)
		}
	}
	return nil
}
