// Package chain defines the ledger-side collaborators the Construct engine
// consumes: identities, inbound actions, the ledger service, notice and event
// sinks. It also ships an in-memory implementation used by the daemon, the
// scenario runner and tests.
package chain

import "fmt"

// AccountID identifies an account on the ledger. The zero value is the burn
// address and doubles as the "unset" sentinel.
type AccountID uint64

// TokenID identifies a fungible token. The zero value means "no token".
type TokenID uint64

// Burn is the account that destroys native currency sent to it.
const Burn AccountID = 0

// String renders the id in decimal.
func (a AccountID) String() string { return fmt.Sprintf("%d", uint64(a)) }

// String renders the id in decimal.
func (t TokenID) String() string { return fmt.Sprintf("%d", uint64(t)) }

// Coin is the number of minor units in one unit of native currency.
const Coin int64 = 1_0000_0000

// Slots is the fixed number of attachment slots and message words per action.
const Slots = 4

// Attachment is one auxiliary token carried by an action. A zero Token marks an
// empty slot.
type Attachment struct {
	Token    TokenID
	Quantity int64
}

// Empty reports whether the slot carries no token.
func (a Attachment) Empty() bool { return a.Token == 0 }

// Action is one already-validated inbound transaction for the current step.
//
// Slot order of Attachments is significant: it drives the order in which
// damage multipliers are applied.
type Action struct {
	TxID        uint64
	Sender      AccountID
	Amount      int64
	Message     [Slots]int64
	Attachments [Slots]Attachment
}

// Ledger is the account and token service the engine moves value through.
//
// Transfers send at most the sender's available balance and return the amount
// actually moved; they only fail for structurally invalid requests (unknown
// token, negative amount).
type Ledger interface {
	NativeBalance(account AccountID) int64
	TokenBalance(account AccountID, token TokenID) int64
	SendNative(from, to AccountID, amount int64) (int64, error)
	SendToken(from, to AccountID, token TokenID, quantity int64) (int64, error)
	IssueToken(owner AccountID, name string, decimals int) (TokenID, error)
	MintToken(owner AccountID, token TokenID, quantity int64) error
	// HolderCount counts accounts holding at least minQuantity of token,
	// excluding the token's issuer.
	HolderCount(token TokenID, minQuantity int64) int
	// DistributeToHolders splits amount of native currency from "from" pro rata
	// over the holders HolderCount would count.
	DistributeToHolders(from AccountID, token TokenID, minQuantity, amount int64) error
	CollectibleExists(collectible AccountID) bool
	// TransferCollectible pays fee to the collectible's contract and hands it to "to".
	TransferCollectible(from, collectible, to AccountID, fee int64) error
}

// Checkpointer is implemented by ledgers that can roll back a partially
// applied step.
type Checkpointer interface {
	Checkpoint() (restore func())
}
