// Package dice provides the randomness abstraction used by the Construct
// engine for penalty selection and counter-attack rolls.
//
// None of the sources here are fair against an adversary. The production
// source is derived from public block data, so an attacker who can choose
// when an action lands can predict or bias every roll.
package dice

// Source is the randomness provider for engine decisions.
type Source interface {
	// Intn returns a non-negative pseudo-random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Percent rolls a d100 and reports whether the result (0-99) is below chance.
//
// Postcondition: always false for chance <= 0, always true for chance >= 100.
func Percent(src Source, chance int64) bool {
	if chance <= 0 {
		return false
	}
	return int64(src.Intn(100)) < chance
}

// Pick returns a uniformly chosen index in [0, n).
//
// Precondition: n > 0.
func Pick(src Source, n int) int {
	return src.Intn(n)
}
