// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Limits are the amounts kept aside by staking flows.
type Limits struct {
	// Reserve stays liquid on direct accounts to pay for fees.
	Reserve *big.Int
	// CustodialReserve stays liquid on release contracts.
	CustodialReserve *big.Int
	// MinLocked is the locked stake required before authorizing a vote signer.
	MinLocked *big.Int
}

// DefaultLimits keeps 3 CELO liquid and requires 100 CELO locked.
func DefaultLimits() Limits {
	return Limits{
		Reserve:          CELO(3),
		CustodialReserve: CELO(3),
		MinLocked:        CELO(100),
	}
}

func (l Limits) reserve(custodial bool) *big.Int {
	if custodial {
		return l.CustodialReserve
	}
	return l.Reserve
}

// Request asks for the locked stake of Address to become Target.
type Request struct {
	Address common.Address
	Routing Routing
	Target  *big.Int
}

// Relock relocks Amount of the pending withdrawal at Index.
type Relock struct {
	Index  int
	Amount *big.Int
}

// RelockPlan spreads amount over pending withdrawals starting from the last
// entry, so that an entry relocked in full and removed from the list never
// shifts an index still to be used.
func RelockPlan(pending []PendingWithdrawal, amount *big.Int) ([]Relock, error) {
	remaining := new(big.Int).Set(amount)
	var plan []Relock
	for i := len(pending) - 1; i >= 0 && remaining.Sign() > 0; i-- {
		if pending[i].Amount.Sign() <= 0 {
			continue
		}
		value := minBig(pending[i].Amount, remaining)
		plan = append(plan, Relock{Index: pending[i].Index, Amount: value})
		remaining.Sub(remaining, value)
	}
	if remaining.Sign() > 0 {
		return nil, Inconsistent("pending withdrawals short by %s to relock %s", remaining, amount)
	}
	return plan, nil
}

// Reconciler moves the locked stake of an account to a target amount.
type Reconciler struct {
	backend Backend
	limits  Limits
	steps   *Steps
}

func NewReconciler(backend Backend, limits Limits, steps *Steps) *Reconciler {
	return &Reconciler{backend: backend, limits: limits, steps: steps}
}

// Reconcile submits the transactions that bring the locked stake of
// req.Address to req.Target. Pending withdrawals are relocked before new funds
// are locked; when decreasing, free stake is unlocked first and votes are
// revoked only when nothing is free. Running it again with the same target
// submits nothing, and after a partial failure it resumes from chain state.
func (r *Reconciler) Reconcile(ctx context.Context, signer Signer, req Request) error {
	if req.Target == nil || req.Target.Sign() < 0 {
		return Invalid("target must not be negative")
	}
	if req.Address == (common.Address{}) {
		return Invalid("address is required")
	}

	router, err := r.backend.Route(ctx, req.Address, req.Routing, signer)
	if err != nil {
		return err
	}
	acc, err := r.backend.Account(ctx, router.Address())
	if err != nil {
		return errors.Wrap(err, "read account")
	}
	available := new(big.Int).Sub(acc.Total(), r.limits.reserve(router.Custodial()))
	if available.Sign() < 0 {
		available.SetInt64(0)
	}
	if req.Target.Cmp(available) > 0 {
		return Invalid("target %s CELO exceeds available %s CELO", FormatCELO(req.Target), FormatCELO(available))
	}

	if !acc.IsAccount {
		if _, err := r.steps.Execute(ctx, router.Address(), Step{Action: ActionCreateAccount}, router.CreateAccount); err != nil {
			return errors.Wrap(err, "create account")
		}
		if acc, err = r.backend.Account(ctx, router.Address()); err != nil {
			return errors.Wrap(err, "read account")
		}
	}

	delta := new(big.Int).Sub(req.Target, acc.Locked)
	switch delta.Sign() {
	case 1:
		return r.increase(ctx, router, acc, delta)
	case -1:
		return r.decrease(ctx, router, acc.Locked, delta.Neg(delta))
	}
	logger.Debug("locked stake already at target", "account", router.Address(), "target", req.Target)
	return nil
}

func (r *Reconciler) increase(ctx context.Context, router Router, acc *Account, delta *big.Int) error {
	toRelock := minBig(acc.PendingTotal(), delta)
	toLock := new(big.Int).Sub(delta, toRelock)

	plan, err := RelockPlan(acc.Pending, toRelock)
	if err != nil {
		return err
	}
	for i, p := range plan {
		step := Step{Action: ActionRelock, Amount: p.Amount, Seq: i + 1, Count: len(plan)}
		if _, err := r.steps.Execute(ctx, router.Address(), step, func(ctx context.Context) (common.Hash, error) {
			return router.Relock(ctx, p.Index, p.Amount)
		}); err != nil {
			return errors.Wrapf(err, "relock withdrawal #%d", p.Index)
		}
	}

	if toLock.Sign() > 0 {
		step := Step{Action: ActionLock, Amount: toLock}
		if _, err := r.steps.Execute(ctx, router.Address(), step, func(ctx context.Context) (common.Hash, error) {
			return router.Lock(ctx, toLock)
		}); err != nil {
			return errors.Wrap(err, "lock")
		}
	}
	return nil
}

func (r *Reconciler) decrease(ctx context.Context, router Router, locked, need *big.Int) error {
	addr := router.Address()
	locked = new(big.Int).Set(locked)
	limit := -1

	for iter := 0; need.Sign() > 0; iter++ {
		votes, err := r.backend.Votes(ctx, addr)
		if err != nil {
			return errors.Wrap(err, "read votes")
		}
		if limit < 0 {
			// at most one unlock of free stake plus one round per voted group
			limit = len(votes) + 1
		}
		if iter >= limit {
			return Inconsistent("still %s CELO to unlock after %d rounds", FormatCELO(need), iter)
		}

		votesTotal := new(big.Int)
		for _, v := range votes {
			votesTotal.Add(votesTotal, v.Total())
		}
		if votesTotal.Cmp(locked) > 0 {
			return Inconsistent("votes %s exceed locked stake %s", votesTotal, locked)
		}

		toUnlock := minBig(need, new(big.Int).Sub(locked, votesTotal))
		if toUnlock.Sign() <= 0 {
			revoked, err := r.revoke(ctx, router, votes, need)
			if err != nil {
				return err
			}
			toUnlock = minBig(need, revoked)
		}
		if toUnlock.Sign() <= 0 {
			return Inconsistent("no progress unlocking %s CELO", FormatCELO(need))
		}

		amount := toUnlock
		if _, err := r.steps.Execute(ctx, addr, Step{Action: ActionUnlock, Amount: amount}, func(ctx context.Context) (common.Hash, error) {
			return router.Unlock(ctx, amount)
		}); err != nil {
			return errors.Wrap(err, "unlock")
		}
		need.Sub(need, toUnlock)
		locked.Sub(locked, toUnlock)
	}
	return nil
}

// revoke revokes the votes chosen by SelectRevocation, pending votes first,
// and returns the revoked amount.
func (r *Reconciler) revoke(ctx context.Context, router Router, votes []GroupVote, need *big.Int) (*big.Int, error) {
	rev, err := SelectRevocation(votes, need)
	if err != nil {
		return nil, err
	}

	type part struct {
		action Action
		amount *big.Int
		submit func(ctx context.Context, group common.Address, amount *big.Int) (common.Hash, error)
	}
	var parts []part
	if rev.Pending.Sign() > 0 {
		parts = append(parts, part{ActionRevokePending, rev.Pending, router.RevokePending})
	}
	if rev.Active.Sign() > 0 {
		parts = append(parts, part{ActionRevokeActive, rev.Active, router.RevokeActive})
	}
	for i, p := range parts {
		step := Step{Action: p.action, Amount: p.amount, Group: rev.Group, Seq: i + 1, Count: len(parts)}
		if _, err := r.steps.Execute(ctx, router.Address(), step, func(ctx context.Context) (common.Hash, error) {
			return p.submit(ctx, rev.Group, p.amount)
		}); err != nil {
			return nil, errors.Wrapf(err, "revoke votes from %s", rev.Group.Hex())
		}
	}
	return rev.Amount, nil
}
