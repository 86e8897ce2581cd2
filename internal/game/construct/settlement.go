package construct

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/mathx"
)

// Settlement records what the defeat payout paid out.
type Settlement struct {
	FinalBlow       chain.AccountID
	FirstBlood      chain.AccountID
	FinalBlowBonus  int64
	FirstBloodBonus int64
	Collectible     chain.AccountID
	Treasury        int64
	Players         int64
	Holders         int
	Burned          int64
}

// settle pays out the prize pool of a defeated Construct.
//
// Precondition: c.Defeated && !c.Settled.
// Postcondition: c.Settled; the contract's native balance is zero.
func (t *turn) settle() (Settlement, error) {
	c := t.c
	l := t.rt.Ledger
	s := Settlement{FinalBlow: c.FinalBlow, FirstBlood: c.FirstBlood}

	t.notify(c.Creator, NoticeDefeated)
	t.notify(c.FinalBlow, NoticeVictory)

	paid, err := l.SendNative(c.Self, c.FinalBlow, c.Params.FinalBlowBonus)
	if err != nil {
		return s, fmt.Errorf("paying final blow bonus: %w", err)
	}
	s.FinalBlowBonus = paid

	if c.FirstBlood != 0 {
		paid, err = l.SendNative(c.Self, c.FirstBlood, c.Params.FirstBloodBonus)
		if err != nil {
			return s, fmt.Errorf("paying first blood bonus: %w", err)
		}
		s.FirstBloodBonus = paid
		t.notifyAmount(c.FirstBlood, NoticeFirstBloodBonus, paid)
	}

	if id := c.Params.RewardCollectible; id != 0 {
		if l.CollectibleExists(id) {
			if err := l.TransferCollectible(c.Self, id, c.FinalBlow, CollectibleTransferFee); err != nil {
				return s, fmt.Errorf("transferring reward collectible %s: %w", id, err)
			}
			s.Collectible = id
		} else {
			t.rt.Logger.Warn("reward collectible vanished before settlement", zap.Stringer("collectible", id))
		}
	}

	pool := l.NativeBalance(c.Self)
	s.Treasury = mathx.MulDiv(pool, c.Params.Distribution.TreasuryPercent, 100)
	if s.Treasury > 0 {
		if s.Treasury, err = l.SendNative(c.Self, c.Creator, s.Treasury); err != nil {
			return s, fmt.Errorf("paying treasury share: %w", err)
		}
	}

	s.Holders = l.HolderCount(c.HitpointToken, 1)
	fee := mathx.Mul(int64(s.Holders), DistributionFeePerHolder)
	s.Players = mathx.MulDiv(pool, c.Params.Distribution.PlayersPercent, 100) - fee
	if s.Players > 0 {
		if err := l.DistributeToHolders(c.Self, c.HitpointToken, 1, s.Players); err != nil {
			return s, fmt.Errorf("distributing players share: %w", err)
		}
	} else {
		s.Players = 0
	}

	t.emit(chain.EventDefeated, int64(c.FinalBlow), 0, 0)

	if s.Burned, err = l.SendNative(c.Self, chain.Burn, l.NativeBalance(c.Self)); err != nil {
		return s, fmt.Errorf("burning remainder: %w", err)
	}

	c.Settled = true
	t.rt.Logger.Info("construct settled",
		zap.Stringer("final_blow", s.FinalBlow),
		zap.Stringer("first_blood", s.FirstBlood),
		zap.Int64("pool", pool),
		zap.Int64("treasury", s.Treasury),
		zap.Int64("players", s.Players),
		zap.Int("holders", s.Holders),
		zap.Int64("burned", s.Burned),
	)
	return s, nil
}
