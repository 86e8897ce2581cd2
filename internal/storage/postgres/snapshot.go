package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/construct"
	"github.com/cory-johannsen/construct/internal/game/modifier"
	"github.com/cory-johannsen/construct/internal/game/status"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a contract.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is a persisted copy of Construct state at a height.
type Snapshot struct {
	ID        uuid.UUID
	Height    int64
	TakenAt   time.Time
	Construct *construct.Construct
}

// paramsDoc is the JSONB form of construct.Params.
type paramsDoc struct {
	BaseDamageRatio    int64  `json:"base_damage_ratio"`
	BreachLimitPercent int64  `json:"breach_limit_percent"`
	CoolDown           int64  `json:"cooldown"`
	FirstBloodBonus    int64  `json:"first_blood_bonus"`
	FinalBlowBonus     int64  `json:"final_blow_bonus"`
	RewardCollectible  uint64 `json:"reward_collectible"`
	EventListener      uint64 `json:"event_listener"`
	PlayersPercent     int64  `json:"players_percent"`
	TreasuryPercent    int64  `json:"treasury_percent"`
	DebuffChance       int64  `json:"debuff_chance"`
	DebuffReduction    int64  `json:"debuff_reduction"`
	DebuffMaxStack     int64  `json:"debuff_max_stack"`
	RegenInterval      int64  `json:"regen_interval"`
	RegenHitpoints     int64  `json:"regen_hitpoints"`
	RegenLastHeight    int64  `json:"regen_last_height"`
	RegenInitialized   bool   `json:"regen_initialized"`
}

func toParamsDoc(p construct.Params) paramsDoc {
	return paramsDoc{
		BaseDamageRatio:    p.BaseDamageRatio,
		BreachLimitPercent: p.BreachLimitPercent,
		CoolDown:           p.CoolDown,
		FirstBloodBonus:    p.FirstBloodBonus,
		FinalBlowBonus:     p.FinalBlowBonus,
		RewardCollectible:  uint64(p.RewardCollectible),
		EventListener:      uint64(p.EventListener),
		PlayersPercent:     p.Distribution.PlayersPercent,
		TreasuryPercent:    p.Distribution.TreasuryPercent,
		DebuffChance:       p.Debuff.ChancePercent,
		DebuffReduction:    p.Debuff.ReductionPercent,
		DebuffMaxStack:     p.Debuff.MaxStack,
		RegenInterval:      p.Regeneration.BlockInterval,
		RegenHitpoints:     p.Regeneration.HitpointsPerInterval,
		RegenLastHeight:    p.Regeneration.LastHeight,
		RegenInitialized:   p.Regeneration.Initialized,
	}
}

func (d paramsDoc) params() construct.Params {
	return construct.Params{
		BaseDamageRatio:    d.BaseDamageRatio,
		BreachLimitPercent: d.BreachLimitPercent,
		CoolDown:           d.CoolDown,
		FirstBloodBonus:    d.FirstBloodBonus,
		FinalBlowBonus:     d.FinalBlowBonus,
		RewardCollectible:  chain.AccountID(d.RewardCollectible),
		EventListener:      chain.AccountID(d.EventListener),
		Distribution: construct.Distribution{
			PlayersPercent:  d.PlayersPercent,
			TreasuryPercent: d.TreasuryPercent,
		},
		Debuff: construct.DebuffProfile{
			ChancePercent:    d.DebuffChance,
			ReductionPercent: d.DebuffReduction,
			MaxStack:         d.DebuffMaxStack,
		},
		Regeneration: construct.RegenerationProfile{
			BlockInterval:        d.RegenInterval,
			HitpointsPerInterval: d.RegenHitpoints,
			LastHeight:           d.RegenLastHeight,
			Initialized:          d.RegenInitialized,
		},
	}
}

// SnapshotRepository stores Construct snapshots together with their
// attacker statuses and token modifiers.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save writes c as the snapshot at height in one transaction.
//
// Precondition: c must not be mutated concurrently.
// Postcondition: Returns the new snapshot id.
func (r *SnapshotRepository) Save(ctx context.Context, height int64, c *construct.Construct) (uuid.UUID, error) {
	id := uuid.New()
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO construct_snapshots (
				id, contract_id, height, name, creator_id, reward_token, hitpoint_token,
				max_hitpoints, active, defeated, settled, first_blood, final_blow, params)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			id, int64(c.Self), height, c.Name, int64(c.Creator), int64(c.RewardToken), int64(c.HitpointToken),
			c.MaxHitpoints, c.Active, c.Defeated, c.Settled, int64(c.FirstBlood), int64(c.FinalBlow),
			toParamsDoc(c.Params),
		)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		batch := &pgx.Batch{}
		for _, a := range c.Attackers.Attackers() {
			rec, _ := c.Attackers.Get(a)
			batch.Queue(`
				INSERT INTO attacker_statuses (snapshot_id, attacker_id, attacked, last_attack_height, debuff_stacks)
				VALUES ($1, $2, $3, $4, $5)`,
				id, int64(a), rec.Attacked, rec.LastAttackHeight, rec.DebuffStacks,
			)
		}
		for _, tok := range c.Modifiers.Tokens() {
			e := c.Modifiers.Lookup(tok)
			batch.Queue(`
				INSERT INTO token_modifiers (
					snapshot_id, token_id, multiplier_percent, addition_flat, quantity_limit, decimals, decimals_registered)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				id, int64(tok), e.MultiplierPercent, e.AdditionFlat, e.QuantityLimit, int16(e.Decimals), e.DecimalsRegistered,
			)
		}
		return execBatch(ctx, tx, batch)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving snapshot at height %d: %w", height, err)
	}
	return id, nil
}

// Latest loads the highest-height snapshot of contract.
//
// Postcondition: Returns ErrSnapshotNotFound when none exists.
func (r *SnapshotRepository) Latest(ctx context.Context, contract chain.AccountID) (Snapshot, error) {
	var (
		s                              Snapshot
		self, creator, reward, hpToken int64
		firstBlood, finalBlow          int64
		doc                            paramsDoc
	)
	c := &construct.Construct{}
	err := r.db.QueryRow(ctx, `
		SELECT id, height, taken_at, contract_id, name, creator_id, reward_token, hitpoint_token,
		       max_hitpoints, active, defeated, settled, first_blood, final_blow, params
		FROM construct_snapshots
		WHERE contract_id = $1
		ORDER BY height DESC, taken_at DESC
		LIMIT 1`,
		int64(contract),
	).Scan(&s.ID, &s.Height, &s.TakenAt, &self, &c.Name, &creator, &reward, &hpToken,
		&c.MaxHitpoints, &c.Active, &c.Defeated, &c.Settled, &firstBlood, &finalBlow, &doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, fmt.Errorf("querying snapshot: %w", err)
	}
	c.Self = chain.AccountID(self)
	c.Creator = chain.AccountID(creator)
	c.RewardToken = chain.TokenID(reward)
	c.HitpointToken = chain.TokenID(hpToken)
	c.FirstBlood = chain.AccountID(firstBlood)
	c.FinalBlow = chain.AccountID(finalBlow)
	c.Params = doc.params()

	if c.Attackers, err = r.loadStatuses(ctx, s.ID); err != nil {
		return Snapshot{}, err
	}
	if c.Modifiers, err = r.loadModifiers(ctx, s.ID); err != nil {
		return Snapshot{}, err
	}
	s.Construct = c
	return s, nil
}

func (r *SnapshotRepository) loadStatuses(ctx context.Context, id uuid.UUID) (*status.Ledger, error) {
	rows, err := r.db.Query(ctx, `
		SELECT attacker_id, attacked, last_attack_height, debuff_stacks
		FROM attacker_statuses WHERE snapshot_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query attacker statuses: %w", err)
	}
	defer rows.Close()

	l := status.NewLedger()
	for rows.Next() {
		var (
			attacker int64
			rec      status.Record
		)
		if err := rows.Scan(&attacker, &rec.Attacked, &rec.LastAttackHeight, &rec.DebuffStacks); err != nil {
			return nil, fmt.Errorf("scan attacker status: %w", err)
		}
		l.Put(chain.AccountID(attacker), rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attacker statuses: %w", err)
	}
	return l, nil
}

func (r *SnapshotRepository) loadModifiers(ctx context.Context, id uuid.UUID) (*modifier.Registry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT token_id, multiplier_percent, addition_flat, quantity_limit, decimals, decimals_registered
		FROM token_modifiers WHERE snapshot_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("query token modifiers: %w", err)
	}
	defer rows.Close()

	reg := modifier.NewRegistry()
	for rows.Next() {
		var (
			token    int64
			decimals int16
			e        modifier.Effect
		)
		if err := rows.Scan(&token, &e.MultiplierPercent, &e.AdditionFlat, &e.QuantityLimit, &decimals, &e.DecimalsRegistered); err != nil {
			return nil, fmt.Errorf("scan token modifier: %w", err)
		}
		e.Decimals = int(decimals)
		reg.Put(chain.TokenID(token), e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token modifiers: %w", err)
	}
	return reg, nil
}
