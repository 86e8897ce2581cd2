package chain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/cory-johannsen/construct/internal/mathx"
)

var (
	// ErrUnknownToken is returned for operations on a token that was never issued.
	ErrUnknownToken = errors.New("chain: unknown token")
	// ErrNegativeAmount is returned when a transfer or mint amount is negative.
	ErrNegativeAmount = errors.New("chain: negative amount")
	// ErrUnknownCollectible is returned when transferring a collectible that does not exist.
	ErrUnknownCollectible = errors.New("chain: unknown collectible")
)

// Transfer records one value movement performed by a MemLedger.
// Token is zero for native currency.
type Transfer struct {
	From   AccountID
	To     AccountID
	Token  TokenID
	Amount int64
}

type token struct {
	name     string
	issuer   AccountID
	decimals int
	balances map[AccountID]int64
}

func (t *token) clone() *token {
	c := *t
	c.balances = maps.Clone(t.balances)
	return &c
}

// MemLedger is an in-memory Ledger. All methods are safe for concurrent use.
type MemLedger struct {
	mu           sync.RWMutex
	native       map[AccountID]int64
	tokens       map[TokenID]*token
	collectibles map[AccountID]AccountID
	nextToken    TokenID
	transfers    []Transfer
}

// NewMemLedger returns an empty ledger whose first issued token gets firstToken.
//
// Precondition: firstToken > 0.
func NewMemLedger(firstToken TokenID) *MemLedger {
	if firstToken == 0 {
		panic("chain.NewMemLedger: firstToken must be > 0")
	}
	return &MemLedger{
		native:       make(map[AccountID]int64),
		tokens:       make(map[TokenID]*token),
		collectibles: make(map[AccountID]AccountID),
		nextToken:    firstToken,
	}
}

// Credit adds amount of native currency to account out of thin air.
func (l *MemLedger) Credit(account AccountID, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.native[account] = mathx.Add(l.native[account], amount)
}

// CreditToken adds quantity of an existing token to account, creating the
// token under the given issuer if it is unknown.
func (l *MemLedger) CreditToken(account AccountID, id TokenID, quantity int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[id]
	if !ok {
		t = &token{name: fmt.Sprintf("T%d", id), balances: make(map[AccountID]int64)}
		l.tokens[id] = t
		if id >= l.nextToken {
			l.nextToken = id + 1
		}
	}
	t.balances[account] = mathx.Add(t.balances[account], quantity)
}

// RegisterCollectible records a collectible contract owned by owner.
func (l *MemLedger) RegisterCollectible(collectible, owner AccountID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.collectibles[collectible] = owner
}

// CollectibleOwner returns the current owner of collectible.
func (l *MemLedger) CollectibleOwner(collectible AccountID) (AccountID, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.collectibles[collectible]
	return o, ok
}

// NativeBalance implements Ledger.
func (l *MemLedger) NativeBalance(account AccountID) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.native[account]
}

// TokenBalance implements Ledger.
func (l *MemLedger) TokenBalance(account AccountID, id TokenID) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t, ok := l.tokens[id]; ok {
		return t.balances[account]
	}
	return 0
}

// SendNative implements Ledger. Sending to Burn destroys the amount.
func (l *MemLedger) SendNative(from, to AccountID, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sendNativeLocked(from, to, amount)
}

func (l *MemLedger) sendNativeLocked(from, to AccountID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("sending %d native from %s: %w", amount, from, ErrNegativeAmount)
	}
	sent := min(amount, l.native[from])
	if sent <= 0 {
		return 0, nil
	}
	l.native[from] -= sent
	if to != Burn {
		l.native[to] = mathx.Add(l.native[to], sent)
	}
	l.transfers = append(l.transfers, Transfer{From: from, To: to, Amount: sent})
	return sent, nil
}

// SendToken implements Ledger.
func (l *MemLedger) SendToken(from, to AccountID, id TokenID, quantity int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if quantity < 0 {
		return 0, fmt.Errorf("sending %d of token %s: %w", quantity, id, ErrNegativeAmount)
	}
	t, ok := l.tokens[id]
	if !ok {
		return 0, fmt.Errorf("sending token %s: %w", id, ErrUnknownToken)
	}
	sent := min(quantity, t.balances[from])
	if sent <= 0 {
		return 0, nil
	}
	t.balances[from] -= sent
	if to != Burn {
		t.balances[to] = mathx.Add(t.balances[to], sent)
	}
	l.transfers = append(l.transfers, Transfer{From: from, To: to, Token: id, Amount: sent})
	return sent, nil
}

// IssueToken implements Ledger.
func (l *MemLedger) IssueToken(owner AccountID, name string, decimals int) (TokenID, error) {
	if decimals < 0 || decimals > mathx.MaxDecimals {
		return 0, fmt.Errorf("issuing %q: decimals %d out of range [0, %d]", name, decimals, mathx.MaxDecimals)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextToken
	l.nextToken++
	l.tokens[id] = &token{name: name, issuer: owner, decimals: decimals, balances: make(map[AccountID]int64)}
	return id, nil
}

// MintToken implements Ledger.
func (l *MemLedger) MintToken(owner AccountID, id TokenID, quantity int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if quantity < 0 {
		return fmt.Errorf("minting %d of token %s: %w", quantity, id, ErrNegativeAmount)
	}
	t, ok := l.tokens[id]
	if !ok {
		return fmt.Errorf("minting token %s: %w", id, ErrUnknownToken)
	}
	t.balances[owner] = mathx.Add(t.balances[owner], quantity)
	return nil
}

// holdersLocked returns the qualifying holders in ascending id order.
func (l *MemLedger) holdersLocked(t *token, minQuantity int64) []AccountID {
	var out []AccountID
	for acct, bal := range t.balances {
		if acct == t.issuer || bal < minQuantity || bal <= 0 {
			continue
		}
		out = append(out, acct)
	}
	slices.Sort(out)
	return out
}

// HolderCount implements Ledger.
func (l *MemLedger) HolderCount(id TokenID, minQuantity int64) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tokens[id]
	if !ok {
		return 0
	}
	return len(l.holdersLocked(t, minQuantity))
}

// DistributeToHolders implements Ledger. Each holder receives
// floor(amount * balance / totalHeld); the rounding remainder stays with from.
func (l *MemLedger) DistributeToHolders(from AccountID, id TokenID, minQuantity, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount < 0 {
		return fmt.Errorf("distributing %d: %w", amount, ErrNegativeAmount)
	}
	t, ok := l.tokens[id]
	if !ok {
		return fmt.Errorf("distributing over token %s: %w", id, ErrUnknownToken)
	}
	holders := l.holdersLocked(t, minQuantity)
	if len(holders) == 0 || amount == 0 {
		return nil
	}
	amount = min(amount, l.native[from])
	var total int64
	for _, h := range holders {
		total = mathx.Add(total, t.balances[h])
	}
	for _, h := range holders {
		share := mathx.MulDiv(amount, t.balances[h], total)
		if _, err := l.sendNativeLocked(from, h, share); err != nil {
			return err
		}
	}
	return nil
}

// CollectibleExists implements Ledger.
func (l *MemLedger) CollectibleExists(collectible AccountID) bool {
	_, ok := l.CollectibleOwner(collectible)
	return ok
}

// TransferCollectible implements Ledger.
func (l *MemLedger) TransferCollectible(from, collectible, to AccountID, fee int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.collectibles[collectible]; !ok {
		return fmt.Errorf("transferring collectible %s: %w", collectible, ErrUnknownCollectible)
	}
	if _, err := l.sendNativeLocked(from, collectible, fee); err != nil {
		return err
	}
	l.collectibles[collectible] = to
	return nil
}

// Transfers returns a copy of every transfer performed so far.
func (l *MemLedger) Transfers() []Transfer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.transfers)
}

// Checkpoint implements Checkpointer.
func (l *MemLedger) Checkpoint() (restore func()) {
	l.mu.RLock()
	native := maps.Clone(l.native)
	tokens := make(map[TokenID]*token, len(l.tokens))
	for id, t := range l.tokens {
		tokens[id] = t.clone()
	}
	collectibles := maps.Clone(l.collectibles)
	next := l.nextToken
	nTransfers := len(l.transfers)
	l.mu.RUnlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.native = native
		l.tokens = tokens
		l.collectibles = collectibles
		l.nextToken = next
		l.transfers = l.transfers[:nTransfers]
	}
}
