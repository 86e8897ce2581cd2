// Package construct implements the Construct: a ledger-resident adversary
// whose hit points are the contract's balance of a dedicated token. Players
// damage it by paying native currency, are paid a reward token per point of
// damage, and share the prize pool when it is defeated.
package construct

import (
	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/modifier"
	"github.com/cory-johannsen/construct/internal/game/status"
	"github.com/cory-johannsen/construct/internal/mathx"
)

// Defaults applied at deployment to parameters left <= 0.
const (
	DefaultBaseDamageRatio    int64 = 10
	DefaultBreachLimitPercent int64 = 20
	DefaultCoolDown           int64 = 15
	DefaultFirstBloodBonus          = 1000 * chain.Coin
	DefaultFinalBlowBonus           = 5000 * chain.Coin
	DefaultPlayersPercent     int64 = 85
	DefaultTreasuryPercent    int64 = 5
)

const (
	// DistributionFeePerHolder is deducted from the players' share for every
	// holder the distribution pays.
	DistributionFeePerHolder int64 = 100_000
	// CollectibleTransferFee is paid to the reward collectible's contract.
	CollectibleTransferFee int64 = 32_000_000
	// CooldownRefundPercent of the payment is returned on a cooldown rejection;
	// the rest is burned.
	CooldownRefundPercent int64 = 90
	// MaxCounterChance caps the overkill-scaled counter-attack chance.
	MaxCounterChance int64 = 90
	// MinDebuffReductionPercent bounds the per-stack buff; a reduction of
	// 100 already zeroes damage at one stack.
	MinDebuffReductionPercent = -modifier.MaxMultiplierPercent
	MaxDebuffReductionPercent = int64(100)
)

// Distribution splits the prize pool on defeat. The burn share is implicitly
// 100 - PlayersPercent - TreasuryPercent.
type Distribution struct {
	PlayersPercent  int64
	TreasuryPercent int64
}

// Valid reports whether both shares are non-negative and sum to at most 100.
func (d Distribution) Valid() bool {
	return d.PlayersPercent >= 0 && d.TreasuryPercent >= 0 &&
		d.PlayersPercent <= 100 && d.TreasuryPercent <= 100 &&
		d.PlayersPercent+d.TreasuryPercent <= 100
}

// BurnPercent returns the nominal burn share.
func (d Distribution) BurnPercent() int64 {
	return 100 - d.PlayersPercent - d.TreasuryPercent
}

// DebuffProfile configures the counter-attack. A negative ReductionPercent
// makes the applied status a buff.
type DebuffProfile struct {
	ChancePercent    int64
	ReductionPercent int64
	MaxStack         int64
}

// Enabled reports whether counter-attacks can trigger at all.
func (d DebuffProfile) Enabled() bool {
	return d.ChancePercent > 0 && d.ReductionPercent != 0
}

// RegenerationProfile configures passive healing.
type RegenerationProfile struct {
	BlockInterval        int64
	HitpointsPerInterval int64
	// LastHeight is the height of the last regeneration tick.
	LastHeight int64
	// Initialized is false until the first tick after (re)configuration.
	Initialized bool
}

// Enabled reports whether regeneration is configured.
func (r RegenerationProfile) Enabled() bool {
	return r.BlockInterval > 0 && r.HitpointsPerInterval > 0
}

// Params are the creator-tunable parameters.
type Params struct {
	BaseDamageRatio    int64
	BreachLimitPercent int64
	CoolDown           int64
	FirstBloodBonus    int64
	FinalBlowBonus     int64
	RewardCollectible  chain.AccountID
	EventListener      chain.AccountID
	Distribution       Distribution
	Debuff             DebuffProfile
	Regeneration       RegenerationProfile
}

// Construct is the singleton adversary state. Hit points are not stored here:
// they are the contract's balance of HitpointToken.
type Construct struct {
	Name          string
	Self          chain.AccountID
	Creator       chain.AccountID
	RewardToken   chain.TokenID
	HitpointToken chain.TokenID
	MaxHitpoints  int64

	Active bool
	// Defeated flips false -> true exactly once.
	Defeated bool
	// Settled is set once the defeat payout ran.
	Settled bool

	FirstBlood chain.AccountID
	FinalBlow  chain.AccountID

	Params    Params
	Modifiers *modifier.Registry
	Attackers *status.Ledger
}

// Hitpoints returns the current hit points as held on the ledger.
func (c *Construct) Hitpoints(l chain.Ledger) int64 {
	return l.TokenBalance(c.Self, c.HitpointToken)
}

// RewardReserve returns the contract's balance of the reward token.
func (c *Construct) RewardReserve(l chain.Ledger) int64 {
	return l.TokenBalance(c.Self, c.RewardToken)
}

// BreachDamage returns the largest damage a single attack may deal. ok is
// false when no breach limit is configured. The cap floors, so a small
// Construct can have a cap of 0.
func (c *Construct) BreachDamage() (limit int64, ok bool) {
	if c.Params.BreachLimitPercent <= 0 {
		return 0, false
	}
	return mathx.MulDiv(c.MaxHitpoints, c.Params.BreachLimitPercent, 100), true
}

// Clone returns a deep copy suitable for rolling back a failed step.
func (c *Construct) Clone() *Construct {
	cp := *c
	cp.Modifiers = c.Modifiers.Clone()
	cp.Attackers = c.Attackers.Clone()
	return &cp
}
