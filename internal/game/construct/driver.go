package construct

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/status"
	"github.com/cory-johannsen/construct/internal/mathx"
)

// Report summarizes one step.
type Report struct {
	RunID   uuid.UUID
	Height  int64
	Actions int
	Turns   []TurnResult
	// Commands are the admin commands applied, in order.
	Commands []Command
	// Refunded lists the transaction ids fully refunded.
	Refunded []uint64
	// Deactivated is set when the reserve pre-check switched the Construct off.
	Deactivated bool
	Settlement  *Settlement
	Regenerated int64
	Hitpoints   int64
}

// Damage is the total damage dealt by the step's attacks.
func (r Report) Damage() int64 {
	var total int64
	for _, t := range r.Turns {
		total += t.Damage
	}
	return total
}

// StepSummary is the flat, persistable digest of a Report.
type StepSummary struct {
	RunID       uuid.UUID
	Height      int64
	Actions     int
	Attacks     int
	Commands    int
	Refunds     int
	Damage      int64
	Hitpoints   int64
	Regenerated int64
	Deactivated bool
	Settled     bool
	FinalBlow   chain.AccountID
}

// Summary digests r.
func (r Report) Summary() StepSummary {
	s := StepSummary{
		RunID:       r.RunID,
		Height:      r.Height,
		Actions:     r.Actions,
		Attacks:     len(r.Turns),
		Commands:    len(r.Commands),
		Refunds:     len(r.Refunded),
		Damage:      r.Damage(),
		Hitpoints:   r.Hitpoints,
		Regenerated: r.Regenerated,
		Deactivated: r.Deactivated,
	}
	if r.Settlement != nil {
		s.Settled = true
		s.FinalBlow = r.Settlement.FinalBlow
	}
	return s
}

// Driver runs steps against a single Construct. All methods are safe for
// concurrent use; steps are serialized.
type Driver struct {
	mu sync.Mutex
	c  *Construct
	rt Runtime
}

// NewDriver wraps c.
//
// Precondition: c and every Runtime field must be non-nil.
func NewDriver(c *Construct, rt Runtime) *Driver {
	return &Driver{c: c, rt: rt}
}

// Snapshot returns a deep copy of the current state.
func (d *Driver) Snapshot() *Construct {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.c.Clone()
}

// Attacker returns the status record of one attacker.
func (d *Driver) Attacker(id chain.AccountID) (status.Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.c.Attackers.Get(id)
}

// Hitpoints returns the current hit points.
func (d *Driver) Hitpoints() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.c.Hitpoints(d.rt.Ledger)
}

// State is a read of the Construct together with its ledger-held balances,
// taken between steps.
type State struct {
	Construct     *Construct
	Hitpoints     int64
	RewardReserve int64
}

// State returns a consistent copy of the Construct and its balances.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Construct:     d.c.Clone(),
		Hitpoints:     d.c.Hitpoints(d.rt.Ledger),
		RewardReserve: d.c.RewardReserve(d.rt.Ledger),
	}
}

// Step processes actions in order at the given block height, then either
// settles a fresh defeat or runs regeneration. A failing step leaves the
// Construct state, and every collaborator implementing chain.Checkpointer,
// exactly as before the call.
//
// Postcondition: on error nothing observable changed.
func (d *Driver) Step(ctx context.Context, height int64, actions []chain.Action) (rep Report, err error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	runID := uuid.New()
	saved := d.c.Clone()
	var restores []func()
	for _, x := range []any{d.rt.Ledger, d.rt.Notices, d.rt.Events} {
		if cp, ok := x.(chain.Checkpointer); ok {
			restores = append(restores, cp.Checkpoint())
		}
	}
	rollback := func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		*d.c = *saved
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		rollback()
		e, ok := r.(error)
		if !ok || !errors.Is(e, mathx.ErrOverflow) {
			panic(r)
		}
		d.rt.Logger.Error("step rolled back", zap.Int64("height", height), zap.Error(e))
		rep = Report{RunID: runID, Height: height, Actions: len(actions)}
		err = fmt.Errorf("step at height %d: %w", height, e)
	}()

	if s, ok := d.rt.Rand.(interface{ At(int64) }); ok {
		s.At(height)
	}

	rep, err = d.step(runID, height, actions)
	if err != nil {
		rollback()
		d.rt.Logger.Error("step rolled back", zap.Int64("height", height), zap.Error(err))
		return Report{RunID: runID, Height: height, Actions: len(actions)}, fmt.Errorf("step at height %d: %w", height, err)
	}
	return rep, nil
}

func (d *Driver) step(runID uuid.UUID, height int64, actions []chain.Action) (Report, error) {
	c := d.c
	rep := Report{RunID: runID, Height: height, Actions: len(actions)}
	t := &turn{rt: &d.rt, c: c, height: height}

	if c.Active && c.RewardReserve(d.rt.Ledger) < c.Hitpoints(d.rt.Ledger) {
		t.notify(c.Creator, NoticeRewardShortage)
		c.Active = false
		rep.Deactivated = true
		d.rt.Logger.Warn("reward reserve below hitpoints, deactivating",
			zap.Int64("reserve", c.RewardReserve(d.rt.Ledger)),
			zap.Int64("hitpoints", c.Hitpoints(d.rt.Ledger)),
		)
	}

	for _, a := range actions {
		t.sender = a.Sender
		switch {
		case a.Sender == c.Creator:
			cmd, err := t.admin(a)
			if err != nil {
				return rep, fmt.Errorf("tx %d: %w", a.TxID, err)
			}
			if cmd != nil {
				rep.Commands = append(rep.Commands, cmd)
			}
		case c.Defeated:
			if err := t.refund(a, NoticeAlreadyDefeated); err != nil {
				return rep, fmt.Errorf("tx %d: %w", a.TxID, err)
			}
			rep.Refunded = append(rep.Refunded, a.TxID)
		case !c.Active:
			if err := t.refund(a, NoticeNotActive); err != nil {
				return rep, fmt.Errorf("tx %d: %w", a.TxID, err)
			}
			rep.Refunded = append(rep.Refunded, a.TxID)
		default:
			res, err := t.attack(a)
			if err != nil {
				return rep, fmt.Errorf("tx %d: %w", a.TxID, err)
			}
			rep.Turns = append(rep.Turns, res)
		}
	}

	switch {
	case c.Defeated && !c.Settled:
		s, err := t.settle()
		if err != nil {
			return rep, fmt.Errorf("settlement: %w", err)
		}
		rep.Settlement = &s
	case !c.Defeated:
		healed, err := t.regenerate()
		if err != nil {
			return rep, fmt.Errorf("regeneration: %w", err)
		}
		rep.Regenerated = healed
	}

	rep.Hitpoints = c.Hitpoints(d.rt.Ledger)
	return rep, nil
}
