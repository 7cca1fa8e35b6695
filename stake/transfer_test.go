// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zviadm/celovote-app/stake"
	"github.com/zviadm/celovote-app/stake/staketest"
)

func TestTransfer(t *testing.T) {
	chain := staketest.New(now)
	chain.SetAccount(alice, celo(0))
	chain.Fund(alice, celo(5))
	chain.AddPending(alice, celo(10), now.Add(-time.Hour))
	chain.AddPending(alice, celo(7), now.Add(time.Hour))

	m := stake.NewMover(chain, nil)
	signer := staketest.Signer{alice}

	err := m.Transfer(context.Background(), signer, alice, bob, celo(16))
	assert.True(t, stake.IsValidation(err), "got %v", err)
	err = m.Transfer(context.Background(), signer, alice, common.Address{}, celo(1))
	assert.True(t, stake.IsValidation(err), "got %v", err)
	err = m.Transfer(context.Background(), signer, alice, bob, celo(0))
	assert.True(t, stake.IsValidation(err), "got %v", err)
	assert.Empty(t, chain.Calls())

	require.NoError(t, m.Transfer(context.Background(), signer, alice, bob, celo(12)))
	assert.Equal(t, []call{
		{stake.ActionFinalize, nil, common.Address{}},
		{stake.ActionTransfer, celo(12), common.Address{}},
	}, calls(chain))
	assert.Equal(t, celo(12), chain.Balance(bob))
	assert.Equal(t, celo(3), chain.Balance(alice))
}

func TestTransferUsesChainTime(t *testing.T) {
	// the chain lags the local clock: an entry that unlocked locally is not
	// ready on chain yet
	lagging := time.Now().Add(-10 * time.Minute)
	chain := staketest.New(lagging)
	chain.SetAccount(alice, celo(0))
	chain.AddPending(alice, celo(10), time.Now().Add(-5*time.Minute))

	m := stake.NewMover(chain, nil)
	signer := staketest.Signer{alice}
	err := m.Transfer(context.Background(), signer, alice, bob, celo(5))
	assert.True(t, stake.IsValidation(err), "got %v", err)
	assert.Empty(t, chain.Calls())

	chain.SetNow(lagging.Add(10 * time.Minute))
	require.NoError(t, m.Transfer(context.Background(), signer, alice, bob, celo(5)))
	assert.Equal(t, []call{
		{stake.ActionFinalize, nil, common.Address{}},
		{stake.ActionTransfer, celo(5), common.Address{}},
	}, calls(chain))
}

func TestWithdraw(t *testing.T) {
	chain := staketest.New(now)
	chain.SetCustodial(contract, beneficiary)
	chain.Fund(contract, celo(20))

	m := stake.NewMover(chain, nil)

	err := m.Withdraw(context.Background(), staketest.Signer{beneficiary}, contract, celo(21))
	assert.True(t, stake.IsValidation(err), "got %v", err)

	require.NoError(t, m.Withdraw(context.Background(), staketest.Signer{beneficiary}, contract, celo(20)))
	assert.Equal(t, celo(20), chain.Balance(beneficiary))
	assert.Equal(t, 0, chain.Balance(contract).Sign())
}

func TestWithdrawReleaseLimit(t *testing.T) {
	chain := staketest.New(now)
	chain.SetCustodial(contract, beneficiary)
	chain.SetAccount(contract, celo(0))
	chain.Fund(contract, celo(20))
	chain.AddPending(contract, celo(5), now.Add(-time.Hour))
	chain.SetRelease(contract, celo(12), celo(30))

	m := stake.NewMover(chain, nil)
	signer := staketest.Signer{beneficiary}

	// above the released amount fails before any finalize is submitted
	err := m.Withdraw(context.Background(), signer, contract, celo(13))
	assert.True(t, stake.IsValidation(err), "got %v", err)
	assert.Empty(t, chain.Calls())

	require.NoError(t, m.Withdraw(context.Background(), signer, contract, celo(12)))
	assert.Equal(t, []call{
		{stake.ActionFinalize, nil, common.Address{}},
		{stake.ActionWithdraw, celo(12), common.Address{}},
	}, calls(chain))
	chain.ResetCalls()

	err = m.Withdraw(context.Background(), signer, contract, celo(1))
	assert.True(t, stake.IsValidation(err), "got %v", err)
	assert.Empty(t, chain.Calls())

	// max distribution caps a larger release
	chain.SetRelease(contract, celo(40), celo(15))
	limit, err := chain.Withdrawable(context.Background(), contract)
	require.NoError(t, err)
	assert.Equal(t, celo(3), limit)
	err = m.Withdraw(context.Background(), signer, contract, celo(4))
	assert.True(t, stake.IsValidation(err), "got %v", err)
	require.NoError(t, m.Withdraw(context.Background(), signer, contract, celo(3)))
	assert.Equal(t, celo(15), chain.Balance(beneficiary))
}

func TestMoverRoutingMismatch(t *testing.T) {
	chain := staketest.New(now)
	chain.SetCustodial(contract, beneficiary)
	chain.Fund(contract, celo(20))
	chain.Fund(alice, celo(20))

	m := stake.NewMover(chain, nil)
	err := m.Withdraw(context.Background(), staketest.Signer{alice}, alice, celo(1))
	assert.True(t, stake.IsValidation(err), "got %v", err)

	err = m.Transfer(context.Background(), staketest.Signer{beneficiary}, contract, bob, celo(1))
	assert.True(t, stake.IsValidation(err), "got %v", err)
	assert.Empty(t, chain.Calls())
}
