package construct

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/modifier"
	"github.com/cory-johannsen/construct/internal/game/status"
	"github.com/cory-johannsen/construct/internal/mathx"
)

// Genesis is the deployment description of a Construct, plus the initial
// state of the in-memory chain it runs on.
type Genesis struct {
	Name         string          `yaml:"name"`
	Contract     chain.AccountID `yaml:"contract"`
	Creator      chain.AccountID `yaml:"creator"`
	RewardToken  chain.TokenID   `yaml:"reward_token"`
	MaxHitpoints int64           `yaml:"max_hitpoints"`

	BaseDamageRatio    int64           `yaml:"base_damage_ratio"`
	BreachLimitPercent int64           `yaml:"breach_limit_percent"`
	CoolDown           int64           `yaml:"cooldown_blocks"`
	FirstBloodBonus    int64           `yaml:"first_blood_bonus"`
	FinalBlowBonus     int64           `yaml:"final_blow_bonus"`
	RewardCollectible  chain.AccountID `yaml:"reward_collectible"`
	EventListener      chain.AccountID `yaml:"event_listener"`

	Distribution GenesisDistribution `yaml:"distribution"`
	Debuff       GenesisDebuff       `yaml:"debuff"`
	Regeneration GenesisRegeneration `yaml:"regeneration"`

	Tokens       []GenesisToken       `yaml:"tokens"`
	Accounts     []GenesisAccount     `yaml:"accounts"`
	Collectibles []GenesisCollectible `yaml:"collectibles"`
}

// GenesisDistribution mirrors Distribution.
type GenesisDistribution struct {
	Players  int64 `yaml:"players"`
	Treasury int64 `yaml:"treasury"`
}

// GenesisDebuff mirrors DebuffProfile.
type GenesisDebuff struct {
	Chance    int64 `yaml:"chance"`
	Reduction int64 `yaml:"reduction"`
	MaxStack  int64 `yaml:"max_stack"`
}

// GenesisRegeneration mirrors the configurable part of RegenerationProfile.
type GenesisRegeneration struct {
	BlockInterval int64 `yaml:"block_interval"`
	Hitpoints     int64 `yaml:"hitpoints"`
}

// GenesisToken pre-registers a modifier token. A nil Decimals leaves the
// token unregistered.
type GenesisToken struct {
	ID         chain.TokenID `yaml:"id"`
	Decimals   *int64        `yaml:"decimals"`
	Multiplier int64         `yaml:"multiplier"`
	Addition   int64         `yaml:"addition"`
	Limit      int64         `yaml:"limit"`
}

// GenesisAccount seeds balances on the in-memory chain.
type GenesisAccount struct {
	ID      chain.AccountID         `yaml:"id"`
	Balance int64                   `yaml:"balance"`
	Tokens  map[chain.TokenID]int64 `yaml:"tokens"`
}

// GenesisCollectible registers a collectible contract and its owner.
type GenesisCollectible struct {
	ID    chain.AccountID `yaml:"id"`
	Owner chain.AccountID `yaml:"owner"`
}

// LoadGenesis reads and validates a genesis YAML file. Unknown fields are
// rejected.
//
// Postcondition: returns a valid Genesis or a non-nil error.
func LoadGenesis(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("reading genesis %q: %w", path, err)
	}
	return ParseGenesis(data)
}

// ParseGenesis decodes and validates genesis YAML.
func ParseGenesis(data []byte) (Genesis, error) {
	var g Genesis
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil {
		return Genesis{}, fmt.Errorf("parsing genesis: %w", err)
	}
	if err := g.Validate(); err != nil {
		return Genesis{}, err
	}
	return g, nil
}

// Validate checks every genesis invariant and reports all violations at once.
func (g Genesis) Validate() error {
	var errs []string
	if strings.TrimSpace(g.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if g.Contract == 0 {
		errs = append(errs, "contract must be non-zero")
	}
	if g.Creator == 0 || g.Creator == g.Contract {
		errs = append(errs, "creator must be non-zero and differ from contract")
	}
	if g.RewardToken == 0 {
		errs = append(errs, "reward_token must be non-zero")
	}
	if g.MaxHitpoints <= 0 {
		errs = append(errs, fmt.Sprintf("max_hitpoints must be positive, got %d", g.MaxHitpoints))
	}
	if g.BreachLimitPercent > 100 {
		errs = append(errs, fmt.Sprintf("breach_limit_percent must be <= 100, got %d", g.BreachLimitPercent))
	}
	d := g.Distribution
	if !(Distribution{PlayersPercent: d.Players, TreasuryPercent: d.Treasury}).Valid() {
		errs = append(errs, fmt.Sprintf("distribution players=%d treasury=%d must be non-negative and sum to <= 100", d.Players, d.Treasury))
	}
	if g.Debuff.Chance < 0 || g.Debuff.MaxStack < 0 {
		errs = append(errs, "debuff chance and max_stack must be non-negative")
	}
	if g.Debuff.Reduction < MinDebuffReductionPercent || g.Debuff.Reduction > MaxDebuffReductionPercent {
		errs = append(errs, fmt.Sprintf("debuff reduction %d out of range [%d, %d]", g.Debuff.Reduction, MinDebuffReductionPercent, MaxDebuffReductionPercent))
	}
	r := g.Regeneration
	if r.BlockInterval < 0 || r.Hitpoints < 0 || r.Hitpoints > g.MaxHitpoints {
		errs = append(errs, fmt.Sprintf("regeneration block_interval=%d hitpoints=%d out of range", r.BlockInterval, r.Hitpoints))
	}
	for _, t := range g.Tokens {
		if t.ID == 0 {
			errs = append(errs, "token id must be non-zero")
		}
		if t.Decimals != nil && (*t.Decimals < 0 || *t.Decimals > int64(mathx.MaxDecimals)) {
			errs = append(errs, fmt.Sprintf("token %s decimals %d out of range [0, %d]", t.ID, *t.Decimals, mathx.MaxDecimals))
		}
		if t.Multiplier < 0 || t.Multiplier > modifier.MaxMultiplierPercent {
			errs = append(errs, fmt.Sprintf("token %s multiplier %d out of range", t.ID, t.Multiplier))
		}
		if t.Addition < 0 || t.Limit < 0 {
			errs = append(errs, fmt.Sprintf("token %s addition and limit must be non-negative", t.ID))
		}
	}
	for _, a := range g.Accounts {
		if a.Balance < 0 {
			errs = append(errs, fmt.Sprintf("account %s balance must be non-negative", a.ID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("genesis validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Seed credits the genesis balances and collectibles onto l.
func (g Genesis) Seed(l *chain.MemLedger) {
	for _, a := range g.Accounts {
		if a.Balance > 0 {
			l.Credit(a.ID, a.Balance)
		}
		for tok, qty := range a.Tokens {
			l.CreditToken(a.ID, tok, qty)
		}
	}
	for _, c := range g.Collectibles {
		l.RegisterCollectible(c.ID, c.Owner)
	}
}

// Deploy issues the hit-point token, mints MaxHitpoints of it to the contract
// and returns an active Construct. Parameters left <= 0 take their defaults.
//
// Precondition: g is valid.
// Postcondition: c.Hitpoints(rt.Ledger) == g.MaxHitpoints.
func Deploy(rt Runtime, g Genesis) (*Construct, error) {
	hp, err := rt.Ledger.IssueToken(g.Contract, g.Name, 0)
	if err != nil {
		return nil, fmt.Errorf("issuing hitpoint token: %w", err)
	}
	if err := rt.Ledger.MintToken(g.Contract, hp, g.MaxHitpoints); err != nil {
		return nil, fmt.Errorf("minting hitpoints: %w", err)
	}

	c := &Construct{
		Name:          g.Name,
		Self:          g.Contract,
		Creator:       g.Creator,
		RewardToken:   g.RewardToken,
		HitpointToken: hp,
		MaxHitpoints:  g.MaxHitpoints,
		Active:        true,
		Params: Params{
			BaseDamageRatio:    orDefault(g.BaseDamageRatio, DefaultBaseDamageRatio),
			BreachLimitPercent: orDefault(g.BreachLimitPercent, DefaultBreachLimitPercent),
			CoolDown:           orDefault(g.CoolDown, DefaultCoolDown),
			FirstBloodBonus:    orDefault(g.FirstBloodBonus, DefaultFirstBloodBonus),
			FinalBlowBonus:     orDefault(g.FinalBlowBonus, DefaultFinalBlowBonus),
			RewardCollectible:  g.RewardCollectible,
			EventListener:      g.EventListener,
			Distribution: Distribution{
				PlayersPercent:  g.Distribution.Players,
				TreasuryPercent: g.Distribution.Treasury,
			},
			Debuff: DebuffProfile{
				ChancePercent:    g.Debuff.Chance,
				ReductionPercent: g.Debuff.Reduction,
				MaxStack:         g.Debuff.MaxStack,
			},
			Regeneration: RegenerationProfile{
				BlockInterval:        g.Regeneration.BlockInterval,
				HitpointsPerInterval: g.Regeneration.Hitpoints,
			},
		},
		Modifiers: modifier.NewRegistry(),
		Attackers: status.NewLedger(),
	}
	if c.Params.Distribution.PlayersPercent <= 0 {
		c.Params.Distribution = Distribution{
			PlayersPercent:  DefaultPlayersPercent,
			TreasuryPercent: DefaultTreasuryPercent,
		}
	}
	for _, t := range g.Tokens {
		if t.Decimals != nil {
			c.Modifiers.SetDecimals(t.ID, *t.Decimals)
		}
		if t.Multiplier > 0 {
			c.Modifiers.SetMultiplier(t.ID, t.Multiplier, t.Limit)
		}
		if t.Addition > 0 {
			c.Modifiers.SetAddition(t.ID, t.Addition, t.Limit)
		}
	}

	rt.Logger.Info("construct deployed",
		zap.String("name", c.Name),
		zap.Stringer("contract", c.Self),
		zap.Stringer("creator", c.Creator),
		zap.Stringer("hitpoint_token", hp),
		zap.Int64("max_hitpoints", c.MaxHitpoints),
	)
	return c, nil
}

func orDefault(v, def int64) int64 {
	if v <= 0 {
		return def
	}
	return v
}
