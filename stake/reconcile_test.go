// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zviadm/celovote-app/stake"
	"github.com/zviadm/celovote-app/stake/staketest"
)

var (
	alice       = common.HexToAddress("0xa11ce")
	bob         = common.HexToAddress("0xb0b")
	contract    = common.HexToAddress("0xc0117ac7")
	beneficiary = common.HexToAddress("0xbe7e")
	groupX      = common.HexToAddress("0x1111")
	groupY      = common.HexToAddress("0x2222")

	now = time.Unix(1_700_000_000, 0)
)

func celo(n int64) *big.Int { return stake.CELO(n) }

type call struct {
	action stake.Action
	amount *big.Int
	group  common.Address
}

func calls(chain *staketest.Chain) []call {
	var res []call
	for _, c := range chain.Calls() {
		res = append(res, call{c.Action, c.Amount, c.Group})
	}
	return res
}

func newReconciler(chain *staketest.Chain, progress stake.Progress) *stake.Reconciler {
	return stake.NewReconciler(chain, stake.DefaultLimits(), &stake.Steps{Progress: progress})
}

func locked(t *testing.T, chain *staketest.Chain, addr common.Address) *big.Int {
	acc, err := chain.Account(context.Background(), addr)
	require.NoError(t, err)
	return acc.Locked
}

func TestReconcileRelocksBeforeLocking(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(100))
	chain.Fund(alice, celo(50))
	chain.AddPending(alice, celo(30), now.Add(time.Hour))

	var messages []string
	r := newReconciler(chain, func(s stake.Step) { messages = append(messages, s.String()) })
	req := stake.Request{Address: alice, Routing: stake.RouteDirect, Target: celo(150)}

	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{alice}, req))
	assert.Equal(t, []call{
		{stake.ActionRelock, celo(30), common.Address{}},
		{stake.ActionLock, celo(20), common.Address{}},
	}, calls(chain))
	assert.Equal(t, []string{
		"Waiting for approval to relock 30.00 CELO...",
		"Waiting for approval to lock 20.00 CELO...",
	}, messages)
	assert.Equal(t, celo(150), locked(t, chain, alice))

	// same target again submits nothing
	chain.ResetCalls()
	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{alice}, req))
	assert.Empty(t, chain.Calls())
}

func TestReconcileRelockOrder(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(0))
	chain.AddPending(alice, celo(10), now.Add(time.Hour))
	chain.AddPending(alice, celo(20), now.Add(time.Hour))
	chain.AddPending(alice, celo(30), now.Add(time.Hour))

	r := newReconciler(chain, nil)
	req := stake.Request{Address: alice, Routing: stake.RouteAuto, Target: celo(45)}
	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{alice}, req))

	got := chain.Calls()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Index)
	assert.Equal(t, celo(30), got[0].Amount)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, celo(15), got[1].Amount)
	assert.Equal(t, celo(45), locked(t, chain, alice))
}

func TestReconcileUnlocksFreeStakeFirst(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(100))
	chain.Fund(alice, celo(10))
	chain.Vote(alice, groupX, celo(50), celo(30))

	r := newReconciler(chain, nil)
	req := stake.Request{Address: alice, Routing: stake.RouteDirect, Target: celo(40)}
	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{alice}, req))

	assert.Equal(t, []call{
		{stake.ActionUnlock, celo(20), common.Address{}},
		{stake.ActionRevokePending, celo(30), groupX},
		{stake.ActionRevokeActive, celo(10), groupX},
		{stake.ActionUnlock, celo(40), common.Address{}},
	}, calls(chain))
	assert.Equal(t, celo(40), locked(t, chain, alice))

	chain.ResetCalls()
	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{alice}, req))
	assert.Empty(t, chain.Calls())
}

func TestReconcileRevokesWhenFullyVoted(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(100))
	chain.Vote(alice, groupX, celo(70), celo(30))

	var steps []stake.Step
	r := newReconciler(chain, func(s stake.Step) { steps = append(steps, s) })
	req := stake.Request{Address: alice, Target: celo(40)}
	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{alice}, req))

	assert.Equal(t, []call{
		{stake.ActionRevokePending, celo(30), groupX},
		{stake.ActionRevokeActive, celo(30), groupX},
		{stake.ActionUnlock, celo(60), common.Address{}},
	}, calls(chain))
	require.Len(t, steps, 3)
	assert.Equal(t, 1, steps[0].Seq)
	assert.Equal(t, 2, steps[1].Seq)
	assert.Equal(t, 2, steps[1].Count)
	assert.Equal(t, celo(40), locked(t, chain, alice))
}

func TestReconcileRevokesLargestGroupFirst(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(100))
	chain.Fund(alice, celo(3))
	chain.Vote(alice, groupX, celo(40), celo(0))
	chain.Vote(alice, groupY, celo(60), celo(0))

	r := newReconciler(chain, nil)
	req := stake.Request{Address: alice, Target: celo(0)}
	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{alice}, req))

	assert.Equal(t, []call{
		{stake.ActionRevokeActive, celo(60), groupY},
		{stake.ActionUnlock, celo(60), common.Address{}},
		{stake.ActionRevokeActive, celo(40), groupX},
		{stake.ActionUnlock, celo(40), common.Address{}},
	}, calls(chain))
	assert.Equal(t, 0, locked(t, chain, alice).Sign())
}

func TestReconcileCreatesAccount(t *testing.T) {
	chain := staketest.New(now)
	chain.Fund(alice, celo(50))

	r := newReconciler(chain, nil)
	req := stake.Request{Address: alice, Target: celo(10)}
	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{alice}, req))
	assert.Equal(t, []call{
		{stake.ActionCreateAccount, nil, common.Address{}},
		{stake.ActionLock, celo(10), common.Address{}},
	}, calls(chain))
}

func TestReconcileCustodial(t *testing.T) {
	chain := staketest.New(now)
	chain.SetCustodial(contract, beneficiary)
	chain.SetAccount(contract, celo(0))
	chain.Fund(contract, celo(1000))

	r := newReconciler(chain, nil)
	req := stake.Request{Address: contract, Target: celo(500)}
	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{beneficiary}, req))
	assert.Equal(t, celo(500), locked(t, chain, contract))

	// the contract itself is not the signer
	err := r.Reconcile(context.Background(), staketest.Signer{contract}, req)
	assert.True(t, stake.IsValidation(err))
}

func TestReconcileValidation(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(100))
	chain.SetCustodial(contract, beneficiary)
	r := newReconciler(chain, nil)
	signer := staketest.Signer{alice, beneficiary}

	tests := []struct {
		name string
		req  stake.Request
	}{
		{"negative target", stake.Request{Address: alice, Target: celo(-1)}},
		{"missing target", stake.Request{Address: alice}},
		{"missing address", stake.Request{Target: celo(1)}},
		{"above reserve", stake.Request{Address: alice, Target: celo(98)}},
		{"direct route to contract", stake.Request{Address: contract, Routing: stake.RouteDirect, Target: celo(0)}},
		{"custodial route to account", stake.Request{Address: alice, Routing: stake.RouteCustodial, Target: celo(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Reconcile(context.Background(), signer, tt.req)
			assert.True(t, stake.IsValidation(err), "got %v", err)
		})
	}
	assert.Empty(t, chain.Calls())
}

func TestReconcileResumesAfterFailure(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(100))
	chain.Fund(alice, celo(50))
	chain.AddPending(alice, celo(30), now.Add(time.Hour))

	r := newReconciler(chain, nil)
	req := stake.Request{Address: alice, Target: celo(150)}

	chain.FailOn(stake.ActionLock, errors.New("rejected on device"))
	err := r.Reconcile(context.Background(), staketest.Signer{alice}, req)
	require.Error(t, err)
	assert.Equal(t, celo(130), locked(t, chain, alice))

	chain.FailOn(stake.ActionLock, nil)
	chain.ResetCalls()
	require.NoError(t, r.Reconcile(context.Background(), staketest.Signer{alice}, req))
	assert.Equal(t, []call{{stake.ActionLock, celo(20), common.Address{}}}, calls(chain))
	assert.Equal(t, celo(150), locked(t, chain, alice))
}

func TestReconcileVotesExceedLocked(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(50))
	chain.Fund(alice, celo(100))
	chain.Vote(alice, groupX, celo(80), celo(0))

	r := newReconciler(chain, nil)
	err := r.Reconcile(context.Background(), staketest.Signer{alice}, stake.Request{Address: alice, Target: celo(0)})
	assert.True(t, stake.IsChainState(err), "got %v", err)
	assert.Empty(t, chain.Calls())
}

func TestReconcileIterationCap(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(100))
	chain.Fund(alice, celo(3))
	chain.Vote(alice, groupX, celo(98), celo(0))

	// another signer moves one vote to a second group after the first unlock
	moved := false
	chain.OnSubmit(func(c staketest.Call) {
		if c.Action != stake.ActionUnlock || moved {
			return
		}
		moved = true
		chain.ClearVotes(alice)
		chain.Vote(alice, groupX, celo(97), celo(0))
		chain.Vote(alice, groupY, celo(1), celo(0))
	})

	r := newReconciler(chain, nil)
	err := r.Reconcile(context.Background(), staketest.Signer{alice}, stake.Request{Address: alice, Target: celo(0)})
	assert.True(t, stake.IsChainState(err), "got %v", err)
	assert.Equal(t, []call{
		{stake.ActionUnlock, celo(2), common.Address{}},
		{stake.ActionRevokeActive, celo(97), groupX},
		{stake.ActionUnlock, celo(97), common.Address{}},
	}, calls(chain))
}
