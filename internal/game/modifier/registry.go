// Package modifier implements the token modifier registry and the damage
// pipeline that turns a payment plus up to four token attachments into a
// pre-status damage value.
package modifier

import (
	"maps"
	"slices"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/mathx"
)

const (
	// MaxMultiplierPercent caps a configured damage multiplier (10x).
	MaxMultiplierPercent int64 = 1000
	// NeutralPercent is the multiplier that leaves damage unchanged.
	NeutralPercent int64 = 100
)

// Effect is the admin-configured behaviour of one auxiliary token.
// Zero values mean "no effect" for every field.
type Effect struct {
	// MultiplierPercent < 100 is a resistance, >= 100 a buff; 0 is unset.
	MultiplierPercent int64
	// AdditionFlat is added per whole token; 0 is unset.
	AdditionFlat int64
	// QuantityLimit caps the counted quantity in whole tokens; 0 is unlimited.
	QuantityLimit int64
	// Decimals is the token's decimal count, meaningful only when DecimalsRegistered.
	Decimals int
	// DecimalsRegistered distinguishes "0 decimals configured" from "never configured".
	DecimalsRegistered bool
}

// Registry holds token effects keyed by token id. Entries are only ever
// added or overwritten. It is not safe for concurrent use.
type Registry struct {
	effects map[chain.TokenID]Effect
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{effects: make(map[chain.TokenID]Effect)}
}

// Lookup returns the effect for token; unknown tokens yield the zero Effect.
func (r *Registry) Lookup(token chain.TokenID) Effect {
	return r.effects[token]
}

// Decimals returns the registered decimal count for token and whether one was
// registered. Unregistered tokens report 0 decimals.
func (r *Registry) Decimals(token chain.TokenID) (int, bool) {
	e := r.effects[token]
	if !e.DecimalsRegistered {
		return 0, false
	}
	return e.Decimals, true
}

// SetMultiplier stores multiplier when it is in [1, MaxMultiplierPercent] and
// the quantity limit when it is >= 0. Out-of-range values are ignored.
//
// Postcondition: returns true iff at least one field was written.
func (r *Registry) SetMultiplier(token chain.TokenID, multiplier, limit int64) bool {
	e := r.effects[token]
	changed := false
	if multiplier > 0 && multiplier <= MaxMultiplierPercent {
		e.MultiplierPercent = multiplier
		changed = true
	}
	if limit >= 0 {
		e.QuantityLimit = limit
		changed = true
	}
	r.effects[token] = e
	return changed
}

// SetAddition stores addition when it is > 0 and the quantity limit when it
// is >= 0. Out-of-range values are ignored.
//
// Postcondition: returns true iff at least one field was written.
func (r *Registry) SetAddition(token chain.TokenID, addition, limit int64) bool {
	e := r.effects[token]
	changed := false
	if addition > 0 {
		e.AdditionFlat = addition
		changed = true
	}
	if limit >= 0 {
		e.QuantityLimit = limit
		changed = true
	}
	r.effects[token] = e
	return changed
}

// SetDecimals registers decimals for token when it is in [0, mathx.MaxDecimals].
//
// Postcondition: returns true iff the value was stored.
func (r *Registry) SetDecimals(token chain.TokenID, decimals int64) bool {
	if decimals < 0 || decimals > int64(mathx.MaxDecimals) {
		return false
	}
	e := r.effects[token]
	e.Decimals = int(decimals)
	e.DecimalsRegistered = true
	r.effects[token] = e
	return true
}

// Put overwrites the effect for token. Used when restoring persisted state.
func (r *Registry) Put(token chain.TokenID, e Effect) {
	r.effects[token] = e
}

// Tokens returns the ids with a registry entry in ascending order.
func (r *Registry) Tokens() []chain.TokenID {
	ids := slices.Collect(maps.Keys(r.effects))
	slices.Sort(ids)
	return ids
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	return &Registry{effects: maps.Clone(r.effects)}
}
