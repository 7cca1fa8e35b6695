// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stake turns target balances into ordered sequences of staking
// transactions. All state is read fresh from a Backend before each decision
// and every transaction is confirmed before the next one is submitted.
package stake

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

var logger = log.New("pkg", "stake")

// Routing selects how transactions for an address are submitted.
type Routing int

const (
	// RouteAuto detects custodial contracts by their deployed code.
	RouteAuto Routing = iota
	// RouteDirect submits as the address itself.
	RouteDirect
	// RouteCustodial submits through a release contract, signed by its beneficiary.
	RouteCustodial
)

func (r Routing) String() string {
	switch r {
	case RouteAuto:
		return "auto"
	case RouteDirect:
		return "direct"
	case RouteCustodial:
		return "custodial"
	}
	return "unknown"
}

// PendingWithdrawal is an unlocked amount waiting for its unlock time. Index is
// the position in the on-chain list and changes whenever an entry is removed.
type PendingWithdrawal struct {
	Index      int
	Amount     *big.Int
	UnlockTime uint64
}

// Account is a snapshot of a staking account.
type Account struct {
	Address   common.Address
	IsAccount bool
	Locked    *big.Int
	Balance   *big.Int
	Pending   []PendingWithdrawal
}

// PendingTotal sums all pending withdrawals.
func (a *Account) PendingTotal() *big.Int {
	total := new(big.Int)
	for _, p := range a.Pending {
		total.Add(total, p.Amount)
	}
	return total
}

// Total is the locked, liquid and pending amounts together.
func (a *Account) Total() *big.Int {
	total := a.PendingTotal()
	total.Add(total, a.Locked)
	return total.Add(total, a.Balance)
}

// GroupVote is the vote an account casts for one validator group.
type GroupVote struct {
	Group   common.Address
	Active  *big.Int
	Pending *big.Int
}

func (v GroupVote) Total() *big.Int {
	return new(big.Int).Add(v.Active, v.Pending)
}

// Proof is a vote signer's proof of possession of its key, signed over the
// account it is going to vote for.
type Proof struct {
	Signer common.Address
	V      uint8
	R      common.Hash
	S      common.Hash
}

// Signer signs transactions for the addresses it exposes.
type Signer interface {
	Accounts() []common.Address
	SignTx(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Reader reads staking state.
type Reader interface {
	// Account returns the snapshot of addr. Non-accounts have IsAccount unset,
	// zero locked stake and no pending withdrawals.
	Account(ctx context.Context, addr common.Address) (*Account, error)
	// Votes returns the groups addr votes for, in on-chain order.
	Votes(ctx context.Context, addr common.Address) ([]GroupVote, error)
	// Now returns the chain time, the timestamp of the latest block. Unlock
	// times of pending withdrawals are compared against it.
	Now(ctx context.Context) (time.Time, error)
}

// Backend is a Reader able to route writes.
type Backend interface {
	Reader
	// Route resolves how writes for addr are submitted. It fails with
	// ValidationError when the routing does not match the address.
	Route(ctx context.Context, addr common.Address, routing Routing, signer Signer) (Router, error)
	// Withdrawable returns how much a release contract may still pay to its
	// beneficiary.
	Withdrawable(ctx context.Context, contract common.Address) (*big.Int, error)
}

// Router submits transactions for one staking account. Each method returns
// once the transaction is confirmed; a reverted transaction is a
// ChainStateError.
type Router interface {
	// Address is the staking account, the release contract when custodial.
	Address() common.Address
	// Signer is the address that signs, the beneficiary when custodial.
	Signer() common.Address
	Custodial() bool

	CreateAccount(ctx context.Context) (common.Hash, error)
	Lock(ctx context.Context, amount *big.Int) (common.Hash, error)
	Relock(ctx context.Context, index int, amount *big.Int) (common.Hash, error)
	Unlock(ctx context.Context, amount *big.Int) (common.Hash, error)
	RevokePending(ctx context.Context, group common.Address, amount *big.Int) (common.Hash, error)
	RevokeActive(ctx context.Context, group common.Address, amount *big.Int) (common.Hash, error)
	FinalizeWithdrawal(ctx context.Context, index int) (common.Hash, error)
	// Withdraw pays amount from a release contract to its beneficiary.
	Withdraw(ctx context.Context, amount *big.Int) (common.Hash, error)
	// Transfer sends amount from a direct account.
	Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
	AuthorizeVoteSigner(ctx context.Context, proof *Proof) (common.Hash, error)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
