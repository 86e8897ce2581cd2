package dice

import (
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// WeakSource derives values from a public seed, the current block height and
// a per-block call counter. Anyone who knows the seed and height can replay
// the sequence.
//
// Invariant: for a fixed (seed, height) the sequence of Intn results is fixed.
type WeakSource struct {
	mu      sync.Mutex
	seed    []byte
	height  int64
	counter uint64
}

// NewWeakSource returns a WeakSource seeded with seed at height 0.
func NewWeakSource(seed []byte) *WeakSource {
	return &WeakSource{seed: append([]byte(nil), seed...)}
}

// At moves the source to height and resets the call counter.
func (w *WeakSource) At(height int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.height = height
	w.counter = 0
}

// Intn returns a value in [0, n) derived from blake2b-256(seed || height || counter).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" otherwise.
func (w *WeakSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	w.mu.Lock()
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(w.height))
	binary.BigEndian.PutUint64(buf[8:], w.counter)
	w.counter++
	h, _ := blake2b.New256(nil)
	h.Write(w.seed)
	h.Write(buf[:])
	w.mu.Unlock()

	sum := h.Sum(nil)
	v := binary.BigEndian.Uint64(sum[:8]) >> 1
	return int(v % uint64(n))
}

// FixedSource replays a scripted list of raw values, reducing each modulo n.
// After the list is exhausted it repeats the last value. An empty list always
// yields 0. Intended for tests and scenario scripts.
type FixedSource struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewFixedSource returns a FixedSource that replays values.
func NewFixedSource(values ...int) *FixedSource {
	return &FixedSource{values: append([]int(nil), values...)}
}

// Push appends values to the replay list.
func (f *FixedSource) Push(values ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, values...)
}

// Intn implements Source.
//
// Precondition: n > 0.
func (f *FixedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0
	}
	i := f.next
	if i >= len(f.values) {
		i = len(f.values) - 1
	} else {
		f.next++
	}
	v := f.values[i] % n
	if v < 0 {
		v += n
	}
	return v
}
