// Package status tracks per-attacker cooldown and debuff stack records.
package status

import (
	"maps"
	"slices"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/mathx"
)

// Record is the persistent status of one attacker. Records are created lazily
// and never deleted.
type Record struct {
	// Attacked is true once any attack was resolved for this attacker.
	Attacked bool
	// LastAttackHeight is the block height of the most recent resolved attack.
	LastAttackHeight int64
	// DebuffStacks is the stored stack count. It may exceed the current
	// maximum if the maximum was lowered after the stacks accrued.
	DebuffStacks int64
}

// Ledger holds attacker records. It is not safe for concurrent use; the
// caller must serialise access.
type Ledger struct {
	records map[chain.AccountID]*Record
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[chain.AccountID]*Record)}
}

func (l *Ledger) record(attacker chain.AccountID) *Record {
	r, ok := l.records[attacker]
	if !ok {
		r = &Record{}
		l.records[attacker] = r
	}
	return r
}

// Get returns a copy of the attacker's record and whether one exists.
func (l *Ledger) Get(attacker chain.AccountID) (Record, bool) {
	if r, ok := l.records[attacker]; ok {
		return *r, true
	}
	return Record{}, false
}

// Put overwrites the attacker's record. Used when restoring persisted state.
func (l *Ledger) Put(attacker chain.AccountID, r Record) {
	l.records[attacker] = &r
}

// InCooldown reports whether a prior attack is on record and fewer than
// period blocks have elapsed since it.
func (l *Ledger) InCooldown(attacker chain.AccountID, now, period int64) bool {
	r, ok := l.records[attacker]
	if !ok || !r.Attacked {
		return false
	}
	return now-r.LastAttackHeight < period
}

// RecordAttack overwrites the attacker's last attack height unconditionally.
//
// Postcondition: Get(attacker).LastAttackHeight == height.
func (l *Ledger) RecordAttack(attacker chain.AccountID, height int64) {
	r := l.record(attacker)
	r.Attacked = true
	r.LastAttackHeight = height
}

// Stacks returns the stored stack count, which may exceed a lowered maximum.
func (l *Ledger) Stacks(attacker chain.AccountID) int64 {
	if r, ok := l.records[attacker]; ok {
		return r.DebuffStacks
	}
	return 0
}

// EffectiveStacks returns the stored stack count clamped to [0, maxStack].
//
// Postcondition: 0 <= result <= max(maxStack, 0).
func (l *Ledger) EffectiveStacks(attacker chain.AccountID, maxStack int64) int64 {
	return mathx.Clamp(l.Stacks(attacker), 0, max(maxStack, 0))
}

// IncrementStack adds one stack up to maxStack. A stored value above maxStack
// is first clamped down and persisted, in which case no increment happens.
//
// Postcondition: returns true iff the stored count grew by one.
func (l *Ledger) IncrementStack(attacker chain.AccountID, maxStack int64) bool {
	r := l.record(attacker)
	if r.DebuffStacks > maxStack {
		r.DebuffStacks = max(maxStack, 0)
	}
	if r.DebuffStacks < maxStack {
		r.DebuffStacks++
		return true
	}
	return false
}

// DecrementStack removes one stack, flooring at zero.
func (l *Ledger) DecrementStack(attacker chain.AccountID) {
	r := l.record(attacker)
	if r.DebuffStacks > 0 {
		r.DebuffStacks--
	}
}

// Attackers returns every attacker with a record in ascending id order.
func (l *Ledger) Attackers() []chain.AccountID {
	ids := slices.Collect(maps.Keys(l.records))
	slices.Sort(ids)
	return ids
}

// Clone returns an independent deep copy.
func (l *Ledger) Clone() *Ledger {
	c := NewLedger()
	for id, r := range l.records {
		cp := *r
		c.records[id] = &cp
	}
	return c
}

// ApplyDebuff scales damage by (100 - stacks*reductionPercent)/100, flooring
// at zero. A negative reductionPercent turns the debuff into a buff.
//
// Precondition: stacks is already clamped to the current maximum.
// Postcondition: result >= 0.
func ApplyDebuff(damage, stacks, reductionPercent int64) int64 {
	if stacks <= 0 {
		return damage
	}
	factor := mathx.Sub(100, mathx.Mul(stacks, reductionPercent))
	out := mathx.MulDiv(damage, factor, 100)
	return max(out, 0)
}
