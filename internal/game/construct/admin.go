package construct

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
)

// Opcode identifies an admin command in message word 0.
type Opcode int64

const (
	OpSetActive Opcode = iota + 1
	OpSetBreachLimit
	OpSetDamageMultiplier
	OpSetDamageAddition
	OpSetRewardCollectible
	OpSetRewardDistribution
	OpSetBonuses
	OpSetDebuff
	OpSetRegeneration
	OpHeal
	OpSetTokenDecimals
	OpSetEventListener
)

var opcodeNames = map[Opcode]string{
	OpSetActive:             "set_active",
	OpSetBreachLimit:        "set_breach_limit",
	OpSetDamageMultiplier:   "set_damage_multiplier",
	OpSetDamageAddition:     "set_damage_addition",
	OpSetRewardCollectible:  "set_reward_collectible",
	OpSetRewardDistribution: "set_reward_distribution",
	OpSetBonuses:            "set_bonuses",
	OpSetDebuff:             "set_debuff",
	OpSetRegeneration:       "set_regeneration",
	OpHeal:                  "heal",
	OpSetTokenDecimals:      "set_token_decimals",
	OpSetEventListener:      "set_event_listener",
}

// String implements fmt.Stringer.
func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("opcode(%d)", int64(o))
}

// Command is a decoded creator instruction. Out-of-range arguments are
// ignored field by field; a command never fails the step for bad input.
type Command interface {
	Opcode() Opcode
	// Message encodes the command into the four message words.
	Message() [chain.Slots]int64
	apply(t *turn) error
}

// SetActive toggles whether attacks are accepted.
type SetActive struct{ Active bool }

// SetBreachLimit sets the per-attack damage cap in percent of max hit points.
type SetBreachLimit struct{ Percent int64 }

// SetDamageMultiplier configures a token's multiplier and quantity limit.
type SetDamageMultiplier struct {
	Token   chain.TokenID
	Percent int64
	Limit   int64
}

// SetDamageAddition configures a token's flat addition and quantity limit.
type SetDamageAddition struct {
	Token    chain.TokenID
	Addition int64
	Limit    int64
}

// SetRewardCollectible names the collectible awarded for the final blow.
type SetRewardCollectible struct{ Collectible chain.AccountID }

// SetRewardDistribution sets the players and treasury shares.
type SetRewardDistribution struct {
	PlayersPercent  int64
	TreasuryPercent int64
}

// SetBonuses sets the first blood and final blow bonuses.
type SetBonuses struct {
	FirstBlood int64
	FinalBlow  int64
}

// SetDebuff configures the counter-attack.
type SetDebuff struct {
	ChancePercent    int64
	ReductionPercent int64
	MaxStack         int64
}

// SetRegeneration configures passive healing.
type SetRegeneration struct {
	BlockInterval        int64
	HitpointsPerInterval int64
}

// Heal mints hit points up to the maximum.
type Heal struct{ Hitpoints int64 }

// SetTokenDecimals registers a token's decimals.
type SetTokenDecimals struct {
	Token    chain.TokenID
	Decimals int64
}

// SetEventListener sets the account receiving events; 0 disables events.
type SetEventListener struct{ Listener chain.AccountID }

// DecodeCommand decodes a creator message. ok is false for unknown opcodes.
func DecodeCommand(msg [chain.Slots]int64) (cmd Command, ok bool) {
	a, b, c := msg[1], msg[2], msg[3]
	switch Opcode(msg[0]) {
	case OpSetActive:
		return SetActive{Active: a != 0}, true
	case OpSetBreachLimit:
		return SetBreachLimit{Percent: a}, true
	case OpSetDamageMultiplier:
		return SetDamageMultiplier{Token: chain.TokenID(a), Percent: b, Limit: c}, true
	case OpSetDamageAddition:
		return SetDamageAddition{Token: chain.TokenID(a), Addition: b, Limit: c}, true
	case OpSetRewardCollectible:
		return SetRewardCollectible{Collectible: chain.AccountID(a)}, true
	case OpSetRewardDistribution:
		return SetRewardDistribution{PlayersPercent: a, TreasuryPercent: b}, true
	case OpSetBonuses:
		return SetBonuses{FirstBlood: a, FinalBlow: b}, true
	case OpSetDebuff:
		return SetDebuff{ChancePercent: a, ReductionPercent: b, MaxStack: c}, true
	case OpSetRegeneration:
		return SetRegeneration{BlockInterval: a, HitpointsPerInterval: b}, true
	case OpHeal:
		return Heal{Hitpoints: a}, true
	case OpSetTokenDecimals:
		return SetTokenDecimals{Token: chain.TokenID(a), Decimals: b}, true
	case OpSetEventListener:
		return SetEventListener{Listener: chain.AccountID(a)}, true
	default:
		return nil, false
	}
}

func message(op Opcode, a, b, c int64) [chain.Slots]int64 {
	return [chain.Slots]int64{int64(op), a, b, c}
}

func (SetActive) Opcode() Opcode { return OpSetActive }
func (cmd SetActive) Message() [chain.Slots]int64 {
	var a int64
	if cmd.Active {
		a = 1
	}
	return message(OpSetActive, a, 0, 0)
}
func (cmd SetActive) apply(t *turn) error {
	t.c.Active = cmd.Active
	var flag int64
	if cmd.Active {
		flag = 1
	}
	t.emit(chain.EventActiveToggled, flag, 0, 0)
	return nil
}

func (SetBreachLimit) Opcode() Opcode { return OpSetBreachLimit }
func (cmd SetBreachLimit) Message() [chain.Slots]int64 {
	return message(OpSetBreachLimit, cmd.Percent, 0, 0)
}
func (cmd SetBreachLimit) apply(t *turn) error {
	if cmd.Percent > 0 && cmd.Percent <= 100 {
		t.c.Params.BreachLimitPercent = cmd.Percent
	}
	return nil
}

func (SetDamageMultiplier) Opcode() Opcode { return OpSetDamageMultiplier }
func (cmd SetDamageMultiplier) Message() [chain.Slots]int64 {
	return message(OpSetDamageMultiplier, int64(cmd.Token), cmd.Percent, cmd.Limit)
}
func (cmd SetDamageMultiplier) apply(t *turn) error {
	t.warnUnregistered(cmd.Token)
	t.c.Modifiers.SetMultiplier(cmd.Token, cmd.Percent, cmd.Limit)
	return nil
}

func (SetDamageAddition) Opcode() Opcode { return OpSetDamageAddition }
func (cmd SetDamageAddition) Message() [chain.Slots]int64 {
	return message(OpSetDamageAddition, int64(cmd.Token), cmd.Addition, cmd.Limit)
}
func (cmd SetDamageAddition) apply(t *turn) error {
	t.warnUnregistered(cmd.Token)
	t.c.Modifiers.SetAddition(cmd.Token, cmd.Addition, cmd.Limit)
	return nil
}

func (SetRewardCollectible) Opcode() Opcode { return OpSetRewardCollectible }
func (cmd SetRewardCollectible) Message() [chain.Slots]int64 {
	return message(OpSetRewardCollectible, int64(cmd.Collectible), 0, 0)
}
func (cmd SetRewardCollectible) apply(t *turn) error {
	if !t.rt.Ledger.CollectibleExists(cmd.Collectible) {
		t.notify(t.c.Creator, NoticeCollectibleMissing)
		return nil
	}
	t.c.Params.RewardCollectible = cmd.Collectible
	return nil
}

func (SetRewardDistribution) Opcode() Opcode { return OpSetRewardDistribution }
func (cmd SetRewardDistribution) Message() [chain.Slots]int64 {
	return message(OpSetRewardDistribution, cmd.PlayersPercent, cmd.TreasuryPercent, 0)
}
func (cmd SetRewardDistribution) apply(t *turn) error {
	d := Distribution{PlayersPercent: cmd.PlayersPercent, TreasuryPercent: cmd.TreasuryPercent}
	if !d.Valid() {
		return nil
	}
	t.c.Params.Distribution = d
	return nil
}

func (SetBonuses) Opcode() Opcode { return OpSetBonuses }
func (cmd SetBonuses) Message() [chain.Slots]int64 {
	return message(OpSetBonuses, cmd.FirstBlood, cmd.FinalBlow, 0)
}
func (cmd SetBonuses) apply(t *turn) error {
	if cmd.FirstBlood >= 0 {
		t.c.Params.FirstBloodBonus = cmd.FirstBlood
	}
	if cmd.FinalBlow >= 0 {
		t.c.Params.FinalBlowBonus = cmd.FinalBlow
	}
	return nil
}

func (SetDebuff) Opcode() Opcode { return OpSetDebuff }
func (cmd SetDebuff) Message() [chain.Slots]int64 {
	return message(OpSetDebuff, cmd.ChancePercent, cmd.ReductionPercent, cmd.MaxStack)
}
func (cmd SetDebuff) apply(t *turn) error {
	d := &t.c.Params.Debuff
	if cmd.ChancePercent >= 0 {
		d.ChancePercent = cmd.ChancePercent
	}
	if cmd.ReductionPercent >= MinDebuffReductionPercent && cmd.ReductionPercent <= MaxDebuffReductionPercent {
		d.ReductionPercent = cmd.ReductionPercent
	}
	if cmd.MaxStack >= 0 {
		d.MaxStack = cmd.MaxStack
	}
	return nil
}

func (SetRegeneration) Opcode() Opcode { return OpSetRegeneration }
func (cmd SetRegeneration) Message() [chain.Slots]int64 {
	return message(OpSetRegeneration, cmd.BlockInterval, cmd.HitpointsPerInterval, 0)
}
func (cmd SetRegeneration) apply(t *turn) error {
	r := &t.c.Params.Regeneration
	if cmd.BlockInterval >= 0 {
		r.BlockInterval = cmd.BlockInterval
	}
	if cmd.HitpointsPerInterval >= 0 && cmd.HitpointsPerInterval <= t.c.MaxHitpoints {
		r.HitpointsPerInterval = cmd.HitpointsPerInterval
	}
	r.Initialized = false
	return nil
}

func (Heal) Opcode() Opcode { return OpHeal }
func (cmd Heal) Message() [chain.Slots]int64 {
	return message(OpHeal, cmd.Hitpoints, 0, 0)
}
func (cmd Heal) apply(t *turn) error {
	if cmd.Hitpoints <= 0 || t.c.Defeated {
		return nil
	}
	healed, err := t.heal(cmd.Hitpoints)
	if err != nil {
		return fmt.Errorf("healing: %w", err)
	}
	t.notifyAmount(t.c.Creator, NoticeHealer, healed)
	t.emit(chain.EventHealed, int64(t.sender), healed, t.hitpoints())
	return nil
}

func (SetTokenDecimals) Opcode() Opcode { return OpSetTokenDecimals }
func (cmd SetTokenDecimals) Message() [chain.Slots]int64 {
	return message(OpSetTokenDecimals, int64(cmd.Token), cmd.Decimals, 0)
}
func (cmd SetTokenDecimals) apply(t *turn) error {
	t.c.Modifiers.SetDecimals(cmd.Token, cmd.Decimals)
	return nil
}

func (SetEventListener) Opcode() Opcode { return OpSetEventListener }
func (cmd SetEventListener) Message() [chain.Slots]int64 {
	return message(OpSetEventListener, int64(cmd.Listener), 0, 0)
}
func (cmd SetEventListener) apply(t *turn) error {
	t.c.Params.EventListener = cmd.Listener
	return nil
}

// warnUnregistered notifies the creator when token has no registered decimals.
func (t *turn) warnUnregistered(token chain.TokenID) {
	if _, ok := t.c.Modifiers.Decimals(token); !ok {
		t.notify(t.c.Creator, NoticeUnregisteredToken)
	}
}

// admin decodes and applies a creator action. Unknown opcodes are ignored.
func (t *turn) admin(a chain.Action) (Command, error) {
	cmd, ok := DecodeCommand(a.Message)
	if !ok {
		t.rt.Logger.Debug("ignoring unknown admin opcode", zap.Int64("opcode", a.Message[0]))
		return nil, nil
	}
	if err := cmd.apply(t); err != nil {
		return cmd, fmt.Errorf("%s: %w", cmd.Opcode(), err)
	}
	t.rt.Logger.Info("admin command applied",
		zap.Stringer("opcode", cmd.Opcode()),
		zap.Int64s("args", a.Message[1:]),
	)
	return cmd, nil
}
