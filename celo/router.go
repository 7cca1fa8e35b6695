// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package celo

import (
	"context"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/zviadm/celovote-app/stake"
)

// base holds what both router kinds share: the staking account, the signing
// address and the session signer.
type base struct {
	client  *Client
	addr    common.Address
	from    common.Address
	signer  stake.Signer
	chainID *big.Int
}

func (b *base) Address() common.Address { return b.addr }
func (b *base) Signer() common.Address  { return b.from }

func (b *base) send(ctx context.Context, name string, parsed abi.ABI, method string, args ...any) (common.Hash, error) {
	contract, err := b.client.contract(ctx, name, parsed)
	if err != nil {
		return common.Hash{}, err
	}
	return b.newSender(contract, nil, method, args...).receipt(ctx)
}

// revokeArgs returns the list neighbours and the voted group index needed to
// revoke value votes of the account from group.
func (b *base) revokeArgs(ctx context.Context, group common.Address, value *big.Int) (lesser, greater common.Address, index *big.Int, err error) {
	election, err := b.client.contract(ctx, ElectionID, electionABI)
	if err != nil {
		return
	}
	groups, err := b.client.votedGroups(ctx, election, b.addr)
	if err != nil {
		return
	}
	idx := slices.Index(groups, group)
	if idx < 0 {
		err = stake.Inconsistent("%s does not vote for %s", b.addr.Hex(), group.Hex())
		return
	}
	eligible, err := b.client.eligibleVotes(ctx, election)
	if err != nil {
		return
	}
	lesser, greater = LesserGreater(eligible, group, new(big.Int).Neg(value))
	return lesser, greater, big.NewInt(int64(idx)), nil
}

type directRouter struct {
	*base
}

func (r *directRouter) Custodial() bool { return false }

func (r *directRouter) CreateAccount(ctx context.Context) (common.Hash, error) {
	return r.send(ctx, AccountsID, accountsABI, "createAccount")
}

func (r *directRouter) Lock(ctx context.Context, amount *big.Int) (common.Hash, error) {
	lockedGold, err := r.client.contract(ctx, LockedGoldID, lockedGoldABI)
	if err != nil {
		return common.Hash{}, err
	}
	return r.newSender(lockedGold, amount, "lock").receipt(ctx)
}

func (r *directRouter) Relock(ctx context.Context, index int, amount *big.Int) (common.Hash, error) {
	return r.send(ctx, LockedGoldID, lockedGoldABI, "relock", big.NewInt(int64(index)), amount)
}

func (r *directRouter) Unlock(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return r.send(ctx, LockedGoldID, lockedGoldABI, "unlock", amount)
}

func (r *directRouter) revoke(ctx context.Context, method string, group common.Address, amount *big.Int) (common.Hash, error) {
	lesser, greater, index, err := r.revokeArgs(ctx, group, amount)
	if err != nil {
		return common.Hash{}, err
	}
	return r.send(ctx, ElectionID, electionABI, method, group, amount, lesser, greater, index)
}

func (r *directRouter) RevokePending(ctx context.Context, group common.Address, amount *big.Int) (common.Hash, error) {
	return r.revoke(ctx, "revokePending", group, amount)
}

func (r *directRouter) RevokeActive(ctx context.Context, group common.Address, amount *big.Int) (common.Hash, error) {
	return r.revoke(ctx, "revokeActive", group, amount)
}

func (r *directRouter) FinalizeWithdrawal(ctx context.Context, index int) (common.Hash, error) {
	return r.send(ctx, LockedGoldID, lockedGoldABI, "withdraw", big.NewInt(int64(index)))
}

func (r *directRouter) Withdraw(context.Context, *big.Int) (common.Hash, error) {
	return common.Hash{}, stake.Invalid("%s is not a release contract", r.addr.Hex())
}

func (r *directRouter) Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	dest := bind.NewBoundContract(to, abi.ABI{}, r.client.eth, r.client.eth, r.client.eth)
	return r.newSender(dest, amount, "").receipt(ctx)
}

func (r *directRouter) AuthorizeVoteSigner(ctx context.Context, proof *stake.Proof) (common.Hash, error) {
	return r.send(ctx, AccountsID, accountsABI, "authorizeVoteSigner", proof.Signer, proof.V, proof.R, proof.S)
}

// custodialRouter calls the release contract, which forwards to the core
// contracts on behalf of its beneficiary.
type custodialRouter struct {
	*base
	rg *bind.BoundContract
}

func (r *custodialRouter) Custodial() bool { return true }

func (r *custodialRouter) call(ctx context.Context, method string, args ...any) (common.Hash, error) {
	return r.newSender(r.rg, nil, method, args...).receipt(ctx)
}

func (r *custodialRouter) CreateAccount(ctx context.Context) (common.Hash, error) {
	return r.call(ctx, "createAccount")
}

func (r *custodialRouter) Lock(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return r.call(ctx, "lockGold", amount)
}

func (r *custodialRouter) Relock(ctx context.Context, index int, amount *big.Int) (common.Hash, error) {
	return r.call(ctx, "relockGold", big.NewInt(int64(index)), amount)
}

func (r *custodialRouter) Unlock(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return r.call(ctx, "unlockGold", amount)
}

func (r *custodialRouter) revoke(ctx context.Context, method string, group common.Address, amount *big.Int) (common.Hash, error) {
	lesser, greater, index, err := r.revokeArgs(ctx, group, amount)
	if err != nil {
		return common.Hash{}, err
	}
	return r.call(ctx, method, group, amount, lesser, greater, index)
}

func (r *custodialRouter) RevokePending(ctx context.Context, group common.Address, amount *big.Int) (common.Hash, error) {
	return r.revoke(ctx, "revokePending", group, amount)
}

func (r *custodialRouter) RevokeActive(ctx context.Context, group common.Address, amount *big.Int) (common.Hash, error) {
	return r.revoke(ctx, "revokeActive", group, amount)
}

func (r *custodialRouter) FinalizeWithdrawal(ctx context.Context, index int) (common.Hash, error) {
	return r.call(ctx, "withdrawLockedGold", big.NewInt(int64(index)))
}

func (r *custodialRouter) Withdraw(ctx context.Context, amount *big.Int) (common.Hash, error) {
	return r.call(ctx, "withdraw", amount)
}

func (r *custodialRouter) Transfer(context.Context, common.Address, *big.Int) (common.Hash, error) {
	return common.Hash{}, stake.Invalid("%s is a release contract, use withdraw", r.addr.Hex())
}

func (r *custodialRouter) AuthorizeVoteSigner(ctx context.Context, proof *stake.Proof) (common.Hash, error) {
	return r.call(ctx, "authorizeVoteSigner", proof.Signer, proof.V, proof.R, proof.S)
}
