package construct

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/game/dice"
)

// Runtime bundles the collaborators the engine calls out to.
//
// Invariant: all fields are non-nil.
type Runtime struct {
	Ledger  chain.Ledger
	Notices chain.Notifier
	Events  chain.EventSink
	Rand    dice.Source
	Logger  *zap.Logger
}

// turn is the context of one action (or of the end-of-step phase, where
// sender is the last processed action's sender).
type turn struct {
	rt     *Runtime
	c      *Construct
	height int64
	sender chain.AccountID
}

func (t *turn) notify(to chain.AccountID, kind NoticeKind) {
	t.notifyAmount(to, kind, 0)
}

func (t *turn) notifyAmount(to chain.AccountID, kind NoticeKind, amount int64) {
	t.rt.Notices.Notify(to, kind.Notice(amount))
}

// emit sends e to the event listener unless none is registered or the
// listener itself caused the event.
func (t *turn) emit(code chain.EventCode, a, b, c int64) {
	listener := t.c.Params.EventListener
	if listener == 0 || listener == t.sender {
		return
	}
	t.rt.Events.Emit(listener, chain.NewEvent(code, a, b, c))
}

func (t *turn) hitpoints() int64 {
	return t.c.Hitpoints(t.rt.Ledger)
}

// heal mints up to amount hit points without exceeding the maximum and
// reports the amount minted.
func (t *turn) heal(amount int64) (int64, error) {
	if amount <= 0 {
		return 0, nil
	}
	hp := t.hitpoints()
	if hp >= t.c.MaxHitpoints {
		return 0, nil
	}
	amount = min(amount, t.c.MaxHitpoints-hp)
	if err := t.rt.Ledger.MintToken(t.c.Self, t.c.HitpointToken, amount); err != nil {
		return 0, err
	}
	return amount, nil
}
