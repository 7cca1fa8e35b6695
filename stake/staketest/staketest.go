// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staketest provides an in-memory staking chain implementing
// stake.Backend, following the on-chain bookkeeping of locked stake, votes
// and pending withdrawals.
package staketest

import (
	"context"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/zviadm/celovote-app/stake"
)

// UnlockingPeriod is the time an unlocked amount stays pending.
const UnlockingPeriod = 3 * 24 * time.Hour

// Call is a submitted transaction.
type Call struct {
	Account common.Address
	Action  stake.Action
	Amount  *big.Int
	Index   int
	Group   common.Address
	To      common.Address
}

type pending struct {
	amount *big.Int
	time   uint64
}

type vote struct {
	group   common.Address
	active  *big.Int
	pending *big.Int
}

type account struct {
	isAccount   bool
	locked      *big.Int
	balance     *big.Int
	pending     []pending
	votes       []vote
	beneficiary *common.Address
	voteSigner  common.Address
	// release schedule of a release contract; nil released means everything
	// is released
	released        *big.Int
	maxDistribution *big.Int
	withdrawn       *big.Int
}

// Chain is an in-memory staking chain. The zero value is not usable, use New.
type Chain struct {
	mu       sync.Mutex
	accounts map[common.Address]*account
	now      time.Time
	calls    []Call
	failures map[stake.Action]error
	onSubmit func(Call)
}

func New(now time.Time) *Chain {
	return &Chain{
		accounts: make(map[common.Address]*account),
		now:      now,
		failures: make(map[stake.Action]error),
	}
}

func (c *Chain) get(addr common.Address) *account {
	acc, ok := c.accounts[addr]
	if !ok {
		acc = &account{locked: new(big.Int), balance: new(big.Int), withdrawn: new(big.Int)}
		c.accounts[addr] = acc
	}
	return acc
}

// Fund adds liquid balance to addr.
func (c *Chain) Fund(addr common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := c.get(addr)
	acc.balance.Add(acc.balance, amount)
}

// SetAccount registers addr as a staking account with locked stake.
func (c *Chain) SetAccount(addr common.Address, locked *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := c.get(addr)
	acc.isAccount = true
	acc.locked = new(big.Int).Set(locked)
}

// AddPending appends a pending withdrawal unlocking at unlockTime.
func (c *Chain) AddPending(addr common.Address, amount *big.Int, unlockTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := c.get(addr)
	acc.pending = append(acc.pending, pending{amount: new(big.Int).Set(amount), time: uint64(unlockTime.Unix())})
}

// Vote records votes of addr for group.
func (c *Chain) Vote(addr, group common.Address, active, pendingVotes *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := c.get(addr)
	acc.votes = append(acc.votes, vote{group: group, active: new(big.Int).Set(active), pending: new(big.Int).Set(pendingVotes)})
}

// ClearVotes drops all votes of addr.
func (c *Chain) ClearVotes(addr common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(addr).votes = nil
}

// SetCustodial turns addr into a release contract paying to beneficiary.
func (c *Chain) SetCustodial(addr, beneficiary common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := beneficiary
	c.get(addr).beneficiary = &b
}

// SetRelease sets the released total and the maximal distribution of the
// release contract addr.
func (c *Chain) SetRelease(addr common.Address, released, maxDistribution *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := c.get(addr)
	acc.released = new(big.Int).Set(released)
	acc.maxDistribution = new(big.Int).Set(maxDistribution)
}

// SetNow moves the chain clock.
func (c *Chain) SetNow(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// FailOn makes every following submission of action fail with err. A nil err
// clears the failure.
func (c *Chain) FailOn(action stake.Action, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, action)
		return
	}
	c.failures[action] = err
}

// OnSubmit registers a hook run, with the chain unlocked, after each
// successful submission.
func (c *Chain) OnSubmit(f func(Call)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSubmit = f
}

// Calls returns the submitted transactions.
func (c *Chain) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// ResetCalls forgets submitted transactions.
func (c *Chain) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// VoteSigner returns the authorized vote signer of addr.
func (c *Chain) VoteSigner(addr common.Address) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(addr).voteSigner
}

// Balance returns the liquid balance of addr.
func (c *Chain) Balance(addr common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.get(addr).balance)
}

func (c *Chain) Account(_ context.Context, addr common.Address) (*stake.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := c.get(addr)
	res := &stake.Account{
		Address:   addr,
		IsAccount: acc.isAccount,
		Locked:    new(big.Int),
		Balance:   new(big.Int).Set(acc.balance),
	}
	if !acc.isAccount {
		return res, nil
	}
	res.Locked.Set(acc.locked)
	for i, p := range acc.pending {
		res.Pending = append(res.Pending, stake.PendingWithdrawal{Index: i, Amount: new(big.Int).Set(p.amount), UnlockTime: p.time})
	}
	return res, nil
}

func (c *Chain) Votes(_ context.Context, addr common.Address) ([]stake.GroupVote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var res []stake.GroupVote
	for _, v := range c.get(addr).votes {
		res = append(res, stake.GroupVote{Group: v.group, Active: new(big.Int).Set(v.active), Pending: new(big.Int).Set(v.pending)})
	}
	return res, nil
}

// Now returns the chain clock.
func (c *Chain) Now(context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

func (c *Chain) Withdrawable(_ context.Context, contract common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := c.get(contract)
	if acc.beneficiary == nil {
		return nil, stake.Invalid("%s is not a release contract", contract.Hex())
	}
	return acc.withdrawable(), nil
}

func (acc *account) withdrawable() *big.Int {
	if acc.released == nil {
		total := new(big.Int).Add(acc.balance, acc.locked)
		for _, p := range acc.pending {
			total.Add(total, p.amount)
		}
		return total
	}
	limit := new(big.Int).Set(acc.released)
	if acc.maxDistribution.Cmp(limit) < 0 {
		limit.Set(acc.maxDistribution)
	}
	limit.Sub(limit, acc.withdrawn)
	if limit.Sign() < 0 {
		limit.SetInt64(0)
	}
	return limit
}

func (c *Chain) Route(_ context.Context, addr common.Address, routing stake.Routing, signer stake.Signer) (stake.Router, error) {
	c.mu.Lock()
	acc := c.get(addr)
	custodial := acc.beneficiary != nil
	from := addr
	if custodial {
		from = *acc.beneficiary
	}
	c.mu.Unlock()

	switch {
	case routing == stake.RouteDirect && custodial:
		return nil, stake.Invalid("%s is a release contract", addr.Hex())
	case routing == stake.RouteCustodial && !custodial:
		return nil, stake.Invalid("%s is not a release contract", addr.Hex())
	}
	if signer != nil && !slices.Contains(signer.Accounts(), from) {
		return nil, stake.Invalid("signer does not hold %s", from.Hex())
	}
	return &router{chain: c, addr: addr, from: from, custodial: custodial}, nil
}

type router struct {
	chain     *Chain
	addr      common.Address
	from      common.Address
	custodial bool
}

func (r *router) Address() common.Address { return r.addr }
func (r *router) Signer() common.Address  { return r.from }
func (r *router) Custodial() bool         { return r.custodial }

func (r *router) submit(call Call, apply func(acc *account) error) (common.Hash, error) {
	c := r.chain
	c.mu.Lock()
	if err := c.failures[call.Action]; err != nil {
		c.mu.Unlock()
		return common.Hash{}, err
	}
	if err := apply(c.get(r.addr)); err != nil {
		c.mu.Unlock()
		return common.Hash{}, &stake.ChainStateError{Err: errors.Wrapf(err, "%s reverted", call.Action)}
	}
	call.Account = r.addr
	c.calls = append(c.calls, call)
	hash := common.BigToHash(big.NewInt(int64(len(c.calls))))
	hook := c.onSubmit
	c.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return hash, nil
}

func (acc *account) votesTotal() *big.Int {
	total := new(big.Int)
	for _, v := range acc.votes {
		total.Add(total, v.active)
		total.Add(total, v.pending)
	}
	return total
}

func (acc *account) removePending(index int) {
	last := len(acc.pending) - 1
	acc.pending[index] = acc.pending[last]
	acc.pending = acc.pending[:last]
}

func (r *router) CreateAccount(context.Context) (common.Hash, error) {
	return r.submit(Call{Action: stake.ActionCreateAccount}, func(acc *account) error {
		if acc.isAccount {
			return errors.New("account exists")
		}
		acc.isAccount = true
		return nil
	})
}

func (r *router) Lock(_ context.Context, amount *big.Int) (common.Hash, error) {
	return r.submit(Call{Action: stake.ActionLock, Amount: amount}, func(acc *account) error {
		if !acc.isAccount {
			return errors.New("not an account")
		}
		if acc.balance.Cmp(amount) < 0 {
			return errors.New("insufficient balance")
		}
		acc.balance.Sub(acc.balance, amount)
		acc.locked.Add(acc.locked, amount)
		return nil
	})
}

func (r *router) Relock(_ context.Context, index int, amount *big.Int) (common.Hash, error) {
	return r.submit(Call{Action: stake.ActionRelock, Amount: amount, Index: index}, func(acc *account) error {
		if index < 0 || index >= len(acc.pending) {
			return errors.New("bad pending withdrawal index")
		}
		p := acc.pending[index]
		if p.amount.Cmp(amount) < 0 {
			return errors.New("requested value larger than pending value")
		}
		if p.amount.Cmp(amount) == 0 {
			acc.removePending(index)
		} else {
			p.amount.Sub(p.amount, amount)
		}
		acc.locked.Add(acc.locked, amount)
		return nil
	})
}

func (r *router) Unlock(_ context.Context, amount *big.Int) (common.Hash, error) {
	return r.submit(Call{Action: stake.ActionUnlock, Amount: amount}, func(acc *account) error {
		now := r.chain.now
		nonvoting := new(big.Int).Sub(acc.locked, acc.votesTotal())
		if nonvoting.Cmp(amount) < 0 {
			return errors.New("not enough nonvoting locked gold")
		}
		acc.locked.Sub(acc.locked, amount)
		acc.pending = append(acc.pending, pending{amount: new(big.Int).Set(amount), time: uint64(now.Add(UnlockingPeriod).Unix())})
		return nil
	})
}

func (r *router) revoke(action stake.Action, group common.Address, amount *big.Int, field func(v *vote) *big.Int) (common.Hash, error) {
	return r.submit(Call{Action: action, Amount: amount, Group: group}, func(acc *account) error {
		for i := range acc.votes {
			v := &acc.votes[i]
			if v.group != group {
				continue
			}
			f := field(v)
			if f.Cmp(amount) < 0 {
				return errors.New("vote value larger than votes")
			}
			f.Sub(f, amount)
			if v.active.Sign() == 0 && v.pending.Sign() == 0 {
				acc.votes = slices.Delete(acc.votes, i, i+1)
			}
			return nil
		}
		return errors.New("group not voted for")
	})
}

func (r *router) RevokePending(_ context.Context, group common.Address, amount *big.Int) (common.Hash, error) {
	return r.revoke(stake.ActionRevokePending, group, amount, func(v *vote) *big.Int { return v.pending })
}

func (r *router) RevokeActive(_ context.Context, group common.Address, amount *big.Int) (common.Hash, error) {
	return r.revoke(stake.ActionRevokeActive, group, amount, func(v *vote) *big.Int { return v.active })
}

func (r *router) FinalizeWithdrawal(_ context.Context, index int) (common.Hash, error) {
	return r.submit(Call{Action: stake.ActionFinalize, Index: index}, func(acc *account) error {
		now := uint64(r.chain.now.Unix())
		if index < 0 || index >= len(acc.pending) {
			return errors.New("bad pending withdrawal index")
		}
		p := acc.pending[index]
		if p.time >= now {
			return errors.New("pending withdrawal not available")
		}
		acc.balance.Add(acc.balance, p.amount)
		acc.removePending(index)
		return nil
	})
}

func (r *router) Withdraw(_ context.Context, amount *big.Int) (common.Hash, error) {
	if !r.custodial {
		return common.Hash{}, stake.Invalid("%s is not a release contract", r.addr.Hex())
	}
	var beneficiary *account
	r.chain.mu.Lock()
	beneficiary = r.chain.get(r.from)
	r.chain.mu.Unlock()
	return r.submit(Call{Action: stake.ActionWithdraw, Amount: amount, To: r.from}, func(acc *account) error {
		if acc.balance.Cmp(amount) < 0 {
			return errors.New("insufficient balance")
		}
		if acc.withdrawable().Cmp(amount) < 0 {
			return errors.New("requested amount is greater than available to withdraw")
		}
		acc.balance.Sub(acc.balance, amount)
		acc.withdrawn.Add(acc.withdrawn, amount)
		beneficiary.balance.Add(beneficiary.balance, amount)
		return nil
	})
}

func (r *router) Transfer(_ context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	if r.custodial {
		return common.Hash{}, stake.Invalid("%s is a release contract", r.addr.Hex())
	}
	var dest *account
	r.chain.mu.Lock()
	dest = r.chain.get(to)
	r.chain.mu.Unlock()
	return r.submit(Call{Action: stake.ActionTransfer, Amount: amount, To: to}, func(acc *account) error {
		if acc.balance.Cmp(amount) < 0 {
			return errors.New("insufficient balance")
		}
		acc.balance.Sub(acc.balance, amount)
		dest.balance.Add(dest.balance, amount)
		return nil
	})
}

func (r *router) AuthorizeVoteSigner(_ context.Context, proof *stake.Proof) (common.Hash, error) {
	return r.submit(Call{Action: stake.ActionAuthorize, To: proof.Signer}, func(acc *account) error {
		if !acc.isAccount {
			return errors.New("not an account")
		}
		acc.voteSigner = proof.Signer
		return nil
	})
}

// Signer is a stake.Signer that holds addresses without signing anything.
type Signer []common.Address

func (s Signer) Accounts() []common.Address { return s }

func (s Signer) SignTx(context.Context, common.Address, *types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, errors.New("in-memory chain takes no transactions")
}
