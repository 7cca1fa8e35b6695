// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package celo reads and writes Celo core contracts through a JSON-RPC node.
package celo

import (
	"context"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/zviadm/celovote-app/stake"
)

var logger = log.New("pkg", "celo")

// EthBackend is the node API the client needs. *ethclient.Client implements it.
type EthBackend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Client reads staking state and builds routers submitting staking
// transactions. It implements stake.Backend.
type Client struct {
	eth            EthBackend
	registry       *Registry
	confirmTimeout time.Duration
}

var _ stake.Backend = (*Client)(nil)

// Dial connects to the node at url.
func Dial(ctx context.Context, url string, confirmTimeout time.Duration) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	return New(eth, confirmTimeout), nil
}

// New creates a client over eth. Transactions not confirmed within
// confirmTimeout fail.
func New(eth EthBackend, confirmTimeout time.Duration) *Client {
	return &Client{
		eth:            eth,
		registry:       NewRegistry(eth),
		confirmTimeout: confirmTimeout,
	}
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

func (c *Client) contract(ctx context.Context, name string, parsed abi.ABI) (*bind.BoundContract, error) {
	addr, err := c.registry.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(addr, parsed, c.eth, c.eth, c.eth), nil
}

func (c *Client) call(ctx context.Context, contract *bind.BoundContract, method string, args ...any) ([]any, error) {
	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, errors.Wrap(err, method)
	}
	return out, nil
}

func toBig(v any) *big.Int {
	return new(big.Int).Set(*abi.ConvertType(v, new(*big.Int)).(**big.Int))
}

func toBigs(v any) []*big.Int {
	return *abi.ConvertType(v, new([]*big.Int)).(*[]*big.Int)
}

func toAddress(v any) common.Address {
	return *abi.ConvertType(v, new(common.Address)).(*common.Address)
}

func (c *Client) Account(ctx context.Context, addr common.Address) (*stake.Account, error) {
	accounts, err := c.contract(ctx, AccountsID, accountsABI)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, accounts, "isAccount", addr)
	if err != nil {
		return nil, err
	}
	balance, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "balance")
	}
	acc := &stake.Account{
		Address:   addr,
		IsAccount: *abi.ConvertType(out[0], new(bool)).(*bool),
		Locked:    new(big.Int),
		Balance:   balance,
	}
	if !acc.IsAccount {
		return acc, nil
	}

	lockedGold, err := c.contract(ctx, LockedGoldID, lockedGoldABI)
	if err != nil {
		return nil, err
	}
	if out, err = c.call(ctx, lockedGold, "getAccountTotalLockedGold", addr); err != nil {
		return nil, err
	}
	acc.Locked = toBig(out[0])

	if out, err = c.call(ctx, lockedGold, "getPendingWithdrawals", addr); err != nil {
		return nil, err
	}
	values, times := toBigs(out[0]), toBigs(out[1])
	if len(values) != len(times) {
		return nil, stake.Inconsistent("pending withdrawals: %d values, %d timestamps", len(values), len(times))
	}
	for i := range values {
		acc.Pending = append(acc.Pending, stake.PendingWithdrawal{
			Index:      i,
			Amount:     values[i],
			UnlockTime: times[i].Uint64(),
		})
	}
	return acc, nil
}

func (c *Client) Votes(ctx context.Context, addr common.Address) ([]stake.GroupVote, error) {
	election, err := c.contract(ctx, ElectionID, electionABI)
	if err != nil {
		return nil, err
	}
	groups, err := c.votedGroups(ctx, election, addr)
	if err != nil {
		return nil, err
	}
	votes := make([]stake.GroupVote, 0, len(groups))
	for _, group := range groups {
		pending, err := c.call(ctx, election, "getPendingVotesForGroupByAccount", group, addr)
		if err != nil {
			return nil, err
		}
		active, err := c.call(ctx, election, "getActiveVotesForGroupByAccount", group, addr)
		if err != nil {
			return nil, err
		}
		votes = append(votes, stake.GroupVote{Group: group, Active: toBig(active[0]), Pending: toBig(pending[0])})
	}
	return votes, nil
}

func (c *Client) votedGroups(ctx context.Context, election *bind.BoundContract, addr common.Address) ([]common.Address, error) {
	out, err := c.call(ctx, election, "getGroupsVotedForByAccount", addr)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

// eligibleVotes returns the eligible groups ordered by total votes, most voted first.
func (c *Client) eligibleVotes(ctx context.Context, election *bind.BoundContract) ([]GroupTotal, error) {
	out, err := c.call(ctx, election, "getTotalVotesForEligibleValidatorGroups")
	if err != nil {
		return nil, err
	}
	groups := *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address)
	values := toBigs(out[1])
	if len(groups) != len(values) {
		return nil, stake.Inconsistent("eligible groups: %d groups, %d totals", len(groups), len(values))
	}
	res := make([]GroupTotal, len(groups))
	for i := range groups {
		res[i] = GroupTotal{Group: groups[i], Votes: values[i]}
	}
	slices.SortStableFunc(res, func(a, b GroupTotal) int { return b.Votes.Cmp(a.Votes) })
	return res, nil
}

// Beneficiary returns the beneficiary of a release contract.
func (c *Client) Beneficiary(ctx context.Context, contract common.Address) (common.Address, error) {
	rg := bind.NewBoundContract(contract, releaseGoldABI, c.eth, c.eth, c.eth)
	out, err := c.call(ctx, rg, "beneficiary")
	if err != nil {
		return common.Address{}, err
	}
	return toAddress(out[0]), nil
}

// Now returns the timestamp of the latest block.
func (c *Client) Now(ctx context.Context) (time.Time, error) {
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "latest header")
	}
	return time.Unix(int64(head.Time), 0), nil
}

// Withdrawable returns how much the release contract may still pay out: the
// smaller of the released and the distributable amounts, less what was
// already withdrawn.
func (c *Client) Withdrawable(ctx context.Context, contract common.Address) (*big.Int, error) {
	rg := bind.NewBoundContract(contract, releaseGoldABI, c.eth, c.eth, c.eth)
	var vals [3]*big.Int
	for i, method := range []string{"getCurrentReleasedTotalAmount", "maxDistribution", "totalWithdrawn"} {
		out, err := c.call(ctx, rg, method)
		if err != nil {
			return nil, err
		}
		vals[i] = toBig(out[0])
	}
	released, maxDistribution, withdrawn := vals[0], vals[1], vals[2]
	limit := released
	if maxDistribution.Cmp(limit) < 0 {
		limit = maxDistribution
	}
	limit = new(big.Int).Sub(limit, withdrawn)
	if limit.Sign() < 0 {
		limit.SetInt64(0)
	}
	return limit, nil
}

// Route resolves addr to a direct account or a release contract.
func (c *Client) Route(ctx context.Context, addr common.Address, routing stake.Routing, signer stake.Signer) (stake.Router, error) {
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "read code")
	}
	custodial := len(code) > 0
	switch {
	case routing == stake.RouteDirect && custodial:
		return nil, stake.Invalid("%s is a contract, not a direct account", addr.Hex())
	case routing == stake.RouteCustodial && !custodial:
		return nil, stake.Invalid("%s is not a release contract", addr.Hex())
	}

	from := addr
	if custodial {
		if from, err = c.Beneficiary(ctx, addr); err != nil {
			return nil, stake.Invalid("%s is not a release contract: %v", addr.Hex(), err)
		}
		if from == (common.Address{}) {
			return nil, stake.Invalid("release contract %s has no beneficiary", addr.Hex())
		}
	}
	if !slices.Contains(signer.Accounts(), from) {
		return nil, stake.Invalid("signer does not hold %s", from.Hex())
	}
	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "chain id")
	}

	b := &base{client: c, addr: addr, from: from, signer: signer, chainID: chainID}
	logger.Debug("routed account", "address", addr, "signer", from, "custodial", custodial)
	if custodial {
		return &custodialRouter{base: b, rg: bind.NewBoundContract(addr, releaseGoldABI, c.eth, c.eth, c.eth)}, nil
	}
	return &directRouter{base: b}, nil
}
