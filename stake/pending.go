// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// PendingSummary splits pending withdrawals by whether they can be finalized.
type PendingSummary struct {
	Ready   *big.Int
	Pending *big.Int
}

func isReady(p PendingWithdrawal, now time.Time) bool {
	return p.UnlockTime < uint64(now.Unix())
}

// Classify sums pending withdrawals unlocked strictly before now into Ready
// and the rest into Pending.
func Classify(pending []PendingWithdrawal, now time.Time) PendingSummary {
	sum := PendingSummary{Ready: new(big.Int), Pending: new(big.Int)}
	for _, p := range pending {
		if isReady(p, now) {
			sum.Ready.Add(sum.Ready, p.Amount)
		} else {
			sum.Pending.Add(sum.Pending, p.Amount)
		}
	}
	return sum
}

// Tracker reports and finalizes pending withdrawals.
type Tracker struct {
	reader Reader
	steps  *Steps
}

func NewTracker(reader Reader, steps *Steps) *Tracker {
	return &Tracker{reader: reader, steps: steps}
}

// Check summarizes the pending withdrawals of addr.
func (t *Tracker) Check(ctx context.Context, addr common.Address, now time.Time) (PendingSummary, error) {
	acc, err := t.reader.Account(ctx, addr)
	if err != nil {
		return PendingSummary{}, errors.Wrap(err, "read account")
	}
	if !acc.IsAccount {
		return Classify(nil, now), nil
	}
	return Classify(acc.Pending, now), nil
}

func firstReady(pending []PendingWithdrawal, now time.Time) (PendingWithdrawal, bool) {
	for _, p := range pending {
		if isReady(p, now) {
			return p, true
		}
	}
	return PendingWithdrawal{}, false
}

// FinalizeAll finalizes every withdrawal of the router's account that unlocked
// before now. Finalizing reorders the on-chain list, so the list is read again
// after every transaction and the first ready entry by current position is
// taken. It returns the number of finalized withdrawals.
func (t *Tracker) FinalizeAll(ctx context.Context, router Router, now time.Time) (int, error) {
	addr := router.Address()
	acc, err := t.reader.Account(ctx, addr)
	if err != nil {
		return 0, errors.Wrap(err, "read account")
	}
	if !acc.IsAccount {
		return 0, nil
	}

	limit := 0
	for _, p := range acc.Pending {
		if isReady(p, now) {
			limit++
		}
	}

	for n := 0; ; n++ {
		if n > 0 {
			if acc, err = t.reader.Account(ctx, addr); err != nil {
				return n, errors.Wrap(err, "read account")
			}
		}
		p, ok := firstReady(acc.Pending, now)
		if !ok {
			return n, nil
		}
		if n >= limit {
			return n, Inconsistent("still finding ready withdrawals after finalizing %d", n)
		}
		step := Step{Action: ActionFinalize, Amount: p.Amount}
		if _, err := t.steps.Execute(ctx, addr, step, func(ctx context.Context) (common.Hash, error) {
			return router.FinalizeWithdrawal(ctx, p.Index)
		}); err != nil {
			return n, errors.Wrapf(err, "finalize withdrawal #%d", p.Index)
		}
	}
}
