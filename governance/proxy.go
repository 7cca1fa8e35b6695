// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package governance

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"

	"github.com/zviadm/celovote-app/stake"
)

var logger = log.New("pkg", "governance")

// Signer signs transactions and typed data.
type Signer interface {
	stake.Signer
	SignTypedData(ctx context.Context, from common.Address, data apitypes.TypedData) ([]byte, error)
}

// Relay replays signed governance actions of release contracts.
type Relay interface {
	ProxyGovernance(ctx context.Context, from common.Address, typedDataJSON, signature string) error
}

// Account is an account with governance voting power. When Contract is set
// the votes belong to the release contract and Address is its beneficiary.
type Account struct {
	Address  common.Address
	Contract common.Address
}

func (a Account) custodial() bool { return a.Contract != (common.Address{}) }

func (a Account) owner() common.Address {
	if a.custodial() {
		return a.Contract
	}
	return a.Address
}

// Proxy performs governance actions directly or through the relay.
type Proxy struct {
	chain Chain
	relay Relay
	steps *stake.Steps
}

func NewProxy(chain Chain, relay Relay, steps *stake.Steps) *Proxy {
	return &Proxy{chain: chain, relay: relay, steps: steps}
}

// Perform runs action on proposalID for account.
func (p *Proxy) Perform(ctx context.Context, signer Signer, account Account, proposalID uint64, action Action) error {
	return p.perform(ctx, signer, account, proposalID, action, 1, 1)
}

// PerformAll runs action on proposalID for every account in order. It stops
// at the first failure.
func (p *Proxy) PerformAll(ctx context.Context, signer Signer, accounts []Account, proposalID uint64, action Action) error {
	if len(accounts) == 0 {
		return stake.Invalid("no accounts to act for")
	}
	for i, acc := range accounts {
		if err := p.perform(ctx, signer, acc, proposalID, action, i+1, len(accounts)); err != nil {
			return errors.Wrapf(err, "%s for %s", action, acc.owner().Hex())
		}
	}
	return nil
}

func (p *Proxy) perform(ctx context.Context, signer Signer, account Account, proposalID uint64, action Action, seq, count int) error {
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}
	if proposalID == 0 {
		return stake.Invalid("proposal id is required")
	}
	if account.Address == (common.Address{}) {
		return stake.Invalid("account address is required")
	}
	step := stake.Step{
		Action:     stake.Action(action),
		ProposalID: proposalID,
		To:         account.Contract,
		Seq:        seq,
		Count:      count,
	}
	if account.custodial() {
		_, err := p.steps.Execute(ctx, account.Contract, step, func(ctx context.Context) (common.Hash, error) {
			return p.proxy(ctx, signer, account, proposalID, action)
		})
		return err
	}
	_, err := p.steps.Execute(ctx, account.Address, step, func(ctx context.Context) (common.Hash, error) {
		return p.submit(ctx, signer, account.Address, proposalID, action)
	})
	return err
}

func (p *Proxy) submit(ctx context.Context, signer Signer, from common.Address, proposalID uint64, action Action) (common.Hash, error) {
	switch action {
	case Upvote:
		return p.chain.Upvote(ctx, signer, from, proposalID)
	case RevokeUpvote:
		return p.chain.RevokeUpvote(ctx, signer, from)
	}
	value, _ := action.voteValue()
	return p.chain.Vote(ctx, signer, from, proposalID, value)
}

// proxy signs the action as the beneficiary and relays it. The returned hash
// is the signed typed data hash.
func (p *Proxy) proxy(ctx context.Context, signer Signer, account Account, proposalID uint64, action Action) (common.Hash, error) {
	if p.relay == nil {
		return common.Hash{}, stake.Invalid("no relay configured for release contract %s", account.Contract.Hex())
	}
	block, err := p.chain.BlockNumber(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "read block number")
	}
	chainID, err := p.chain.ChainID(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "read chain id")
	}
	msg := Message{
		SignedAtBlock: block,
		Contract:      account.Contract,
		ProposalID:    proposalID,
		Action:        action,
	}
	data, err := BuildTypedData(chainID, msg)
	if err != nil {
		return common.Hash{}, err
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash typed data")
	}

	sig, err := signer.SignTypedData(ctx, account.Address, data)
	if err != nil {
		return common.Hash{}, err
	}
	recovered, err := Recover(data, sig)
	if err != nil {
		return common.Hash{}, err
	}
	if recovered != account.Address {
		return common.Hash{}, errors.Errorf("signature recovers to %s, expected %s", recovered.Hex(), account.Address.Hex())
	}

	encoded, err := Encode(chainID, msg)
	if err != nil {
		return common.Hash{}, err
	}
	logger.Info("proxying governance action", "contract", account.Contract, "proposal", proposalID, "action", action, "block", block)
	if err := p.relay.ProxyGovernance(ctx, account.Address, encoded, signatureHex(sig)); err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(hash), nil
}
