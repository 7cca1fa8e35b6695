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

// Mover moves liquid funds out of staking accounts. Ready withdrawals are
// finalized first so that they can be spent. Readiness is judged by the chain
// clock, so a local clock running ahead never submits a finalize that reverts.
type Mover struct {
	backend Backend
	tracker *Tracker
	steps   *Steps
}

func NewMover(backend Backend, steps *Steps) *Mover {
	return &Mover{
		backend: backend,
		tracker: NewTracker(backend, steps),
		steps:   steps,
	}
}

// Withdraw pays amount from the release contract to its beneficiary.
func (m *Mover) Withdraw(ctx context.Context, signer Signer, contract common.Address, amount *big.Int) error {
	router, err := m.prepare(ctx, signer, contract, RouteCustodial, amount)
	if err != nil {
		return err
	}
	step := Step{Action: ActionWithdraw, Amount: amount, To: router.Signer()}
	if _, err := m.steps.Execute(ctx, contract, step, func(ctx context.Context) (common.Hash, error) {
		return router.Withdraw(ctx, amount)
	}); err != nil {
		return errors.Wrap(err, "withdraw")
	}
	return nil
}

// Transfer sends amount from the direct account from to to.
func (m *Mover) Transfer(ctx context.Context, signer Signer, from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return Invalid("destination address is required")
	}
	router, err := m.prepare(ctx, signer, from, RouteDirect, amount)
	if err != nil {
		return err
	}
	step := Step{Action: ActionTransfer, Amount: amount, To: to}
	if _, err := m.steps.Execute(ctx, from, step, func(ctx context.Context) (common.Hash, error) {
		return router.Transfer(ctx, to, amount)
	}); err != nil {
		return errors.Wrap(err, "transfer")
	}
	return nil
}

// prepare validates the request and finalizes ready withdrawals.
func (m *Mover) prepare(ctx context.Context, signer Signer, from common.Address, routing Routing, amount *big.Int) (Router, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, Invalid("amount must be positive")
	}
	if from == (common.Address{}) {
		return nil, Invalid("source address is required")
	}
	router, err := m.backend.Route(ctx, from, routing, signer)
	if err != nil {
		return nil, err
	}
	acc, err := m.backend.Account(ctx, from)
	if err != nil {
		return nil, errors.Wrap(err, "read account")
	}
	now, err := m.backend.Now(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read chain time")
	}
	spendable := new(big.Int).Set(acc.Balance)
	if acc.IsAccount {
		spendable.Add(spendable, Classify(acc.Pending, now).Ready)
	}
	if amount.Cmp(spendable) > 0 {
		return nil, Invalid("amount %s CELO exceeds spendable %s CELO", FormatCELO(amount), FormatCELO(spendable))
	}
	if router.Custodial() {
		limit, err := m.backend.Withdrawable(ctx, from)
		if err != nil {
			return nil, errors.Wrap(err, "read withdrawable")
		}
		if amount.Cmp(limit) > 0 {
			return nil, Invalid("amount %s CELO exceeds released %s CELO", FormatCELO(amount), FormatCELO(limit))
		}
	}

	if _, err := m.tracker.FinalizeAll(ctx, router, now); err != nil {
		return nil, err
	}
	return router, nil
}
