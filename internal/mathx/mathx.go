// Package mathx provides overflow-checked int64 arithmetic for ledger amounts.
//
// Every function floors (truncates toward zero for non-negative operands) and
// panics with *OverflowError instead of wrapping. Callers that must stay alive
// after an overflow recover the panic at a step boundary.
package mathx

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

// ErrOverflow is wrapped by every OverflowError.
var ErrOverflow = errors.New("mathx: integer overflow")

// OverflowError describes the operation that left the int64 range.
type OverflowError struct {
	Op       string
	Operands []int64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("mathx: %s%v overflows int64", e.Op, e.Operands)
}

// Unwrap lets errors.Is match ErrOverflow.
func (e *OverflowError) Unwrap() error { return ErrOverflow }

func overflow(op string, operands ...int64) {
	panic(&OverflowError{Op: op, Operands: operands})
}

// Add returns a+b.
//
// Postcondition: panics with *OverflowError if the sum leaves the int64 range.
func Add(a, b int64) int64 {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		overflow("add", a, b)
	}
	return s
}

// Sub returns a-b.
//
// Postcondition: panics with *OverflowError if the difference leaves the int64 range.
func Sub(a, b int64) int64 {
	if b == math.MinInt64 {
		overflow("sub", a, b)
	}
	return Add(a, -b)
}

// Mul returns a*b.
//
// Postcondition: panics with *OverflowError if the product leaves the int64 range.
func Mul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		overflow("mul", a, b)
	}
	return p
}

// MulDiv returns a*b/d with an unbounded intermediate product.
//
// Precondition: d != 0.
// Postcondition: the quotient is truncated toward zero; panics with
// *OverflowError if it does not fit in int64.
func MulDiv(a, b, d int64) int64 {
	return ratio("muldiv", d, a, b)
}

// MulMulDiv returns a*b*c/d with an unbounded intermediate product.
//
// Precondition: d != 0.
// Postcondition: the quotient is truncated toward zero; panics with
// *OverflowError if it does not fit in int64.
func MulMulDiv(a, b, c, d int64) int64 {
	return ratio("mulmuldiv", d, a, b, c)
}

func ratio(op string, d int64, factors ...int64) int64 {
	if d == 0 {
		panic("mathx: division by zero")
	}
	n := big.NewInt(1)
	for _, f := range factors {
		n.Mul(n, big.NewInt(f))
	}
	n.Quo(n, big.NewInt(d))
	if !n.IsInt64() {
		overflow(op, append(factors, d)...)
	}
	return n.Int64()
}

var pow10 = [...]int64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000}

// MaxDecimals is the largest decimal exponent Pow10 accepts.
const MaxDecimals = len(pow10) - 1

// Pow10 returns 10^exp for exp in [0, MaxDecimals]; any other exponent yields 1.
func Pow10(exp int) int64 {
	if exp < 0 || exp > MaxDecimals {
		return 1
	}
	return pow10[exp]
}

// Clamp returns v limited to [lo, hi].
//
// Precondition: lo <= hi.
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
