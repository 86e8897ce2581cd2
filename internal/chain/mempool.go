package chain

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInsufficientFunds is returned when a submitted action carries more than
// the sender holds.
var ErrInsufficientFunds = errors.New("chain: insufficient funds")

// ErrDuplicateAttachment is returned when one action attaches the same token
// in more than one slot.
var ErrDuplicateAttachment = errors.New("chain: token attached more than once")

// Mempool collects submitted actions addressed to one contract until the
// next step drains them. Submitting moves the paid currency and attachments
// into the contract account immediately, as inclusion in a block would.
//
// All methods are safe for concurrent use.
type Mempool struct {
	mu       sync.Mutex
	ledger   *MemLedger
	contract AccountID
	nextTx   uint64
	pending  []Action
}

// NewMempool creates an empty pool feeding contract.
//
// Precondition: ledger must be non-nil.
func NewMempool(ledger *MemLedger, contract AccountID) *Mempool {
	return &Mempool{ledger: ledger, contract: contract, nextTx: 1}
}

// Submit validates a, transfers its value to the contract and queues it.
//
// Postcondition: on success the returned id is unique and a.TxID is overwritten with it.
func (m *Mempool) Submit(a Action) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.Amount < 0 {
		return 0, fmt.Errorf("submitting action from %s: %w", a.Sender, ErrNegativeAmount)
	}
	if m.ledger.NativeBalance(a.Sender) < a.Amount {
		return 0, fmt.Errorf("submitting %d from %s: %w", a.Amount, a.Sender, ErrInsufficientFunds)
	}
	seen := make(map[TokenID]int, Slots)
	for i, att := range a.Attachments {
		if att.Empty() {
			continue
		}
		if att.Quantity <= 0 {
			return 0, fmt.Errorf("attachment %d of token %s has quantity %d: %w", i, att.Token, att.Quantity, ErrNegativeAmount)
		}
		if j, dup := seen[att.Token]; dup {
			return 0, fmt.Errorf("attachments %d and %d of token %s: %w", j, i, att.Token, ErrDuplicateAttachment)
		}
		seen[att.Token] = i
		if m.ledger.TokenBalance(a.Sender, att.Token) < att.Quantity {
			return 0, fmt.Errorf("attachment %d of token %s from %s: %w", i, att.Token, a.Sender, ErrInsufficientFunds)
		}
	}

	if err := m.collect(a); err != nil {
		return 0, err
	}
	a.TxID = m.nextTx
	m.nextTx++
	m.pending = append(m.pending, a)
	return a.TxID, nil
}

// collect moves the value of a into the contract. Either every transfer moves
// its full amount or whatever already moved is returned to the sender.
func (m *Mempool) collect(a Action) error {
	var moved []Attachment
	undo := func() {
		for _, att := range moved {
			_, _ = m.ledger.SendToken(m.contract, a.Sender, att.Token, att.Quantity)
		}
	}

	sent, err := m.ledger.SendNative(a.Sender, m.contract, a.Amount)
	if err != nil {
		return fmt.Errorf("crediting contract: %w", err)
	}
	if sent < a.Amount {
		_, _ = m.ledger.SendNative(m.contract, a.Sender, sent)
		return fmt.Errorf("crediting %d from %s, moved %d: %w", a.Amount, a.Sender, sent, ErrInsufficientFunds)
	}
	for _, att := range a.Attachments {
		if att.Empty() {
			continue
		}
		n, err := m.ledger.SendToken(a.Sender, m.contract, att.Token, att.Quantity)
		if n > 0 {
			moved = append(moved, Attachment{Token: att.Token, Quantity: n})
		}
		if err == nil && n < att.Quantity {
			err = fmt.Errorf("token %s from %s, moved %d of %d: %w", att.Token, a.Sender, n, att.Quantity, ErrInsufficientFunds)
		}
		if err != nil {
			undo()
			_, _ = m.ledger.SendNative(m.contract, a.Sender, sent)
			return fmt.Errorf("crediting attachment: %w", err)
		}
	}
	return nil
}

// Drain returns the queued actions in submission order and empties the pool.
func (m *Mempool) Drain() []Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}

// Refund returns the value of actions that were drained but never applied
// from the contract to their senders.
//
// Precondition: the ledger holds the state from before the actions were
// applied, so their value still sits in the contract.
func (m *Mempool) Refund(actions []Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range actions {
		if _, err := m.ledger.SendNative(m.contract, a.Sender, max(a.Amount, 0)); err != nil {
			return fmt.Errorf("refunding tx %d: %w", a.TxID, err)
		}
		for _, att := range a.Attachments {
			if att.Empty() {
				continue
			}
			if _, err := m.ledger.SendToken(m.contract, a.Sender, att.Token, att.Quantity); err != nil {
				return fmt.Errorf("refunding tx %d token %s: %w", a.TxID, att.Token, err)
			}
		}
	}
	return nil
}

// Len returns the number of queued actions.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
