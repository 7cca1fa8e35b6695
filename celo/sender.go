// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package celo

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/zviadm/celovote-app/stake"
)

// sender builds, signs, sends and confirms one contract call. An empty method
// sends a plain value transfer to the contract address.
type sender struct {
	base     *base
	contract *bind.BoundContract
	value    *big.Int
	method   string
	args     []any
}

func (b *base) newSender(contract *bind.BoundContract, value *big.Int, method string, args ...any) *sender {
	return &sender{base: b, contract: contract, value: value, method: method, args: args}
}

// build signs the transaction without sending it.
func (s *sender) build(ctx context.Context) (*types.Transaction, error) {
	opts := &bind.TransactOpts{
		From:    s.base.from,
		Context: ctx,
		Value:   s.value,
		NoSend:  true,
		Signer: func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
			return s.base.signer.SignTx(ctx, from, tx, s.base.chainID)
		},
	}
	if s.method == "" {
		return s.contract.Transfer(opts)
	}
	return s.contract.Transact(opts, s.method, s.args...)
}

// receipt sends the transaction and waits until it is mined.
func (s *sender) receipt(ctx context.Context) (common.Hash, error) {
	tx, err := s.build(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "build %s", s.name())
	}
	eth := s.base.client.eth
	if err := eth.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, errors.Wrapf(err, "send %s", s.name())
	}
	logger.Debug("transaction sent", "method", s.name(), "tx", tx.Hash())

	waitCtx := ctx
	if timeout := s.base.client.confirmTimeout; timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	receipt, err := bind.WaitMined(waitCtx, eth, tx)
	if err != nil {
		return tx.Hash(), errors.Wrapf(err, "wait for %s transaction %s", s.name(), tx.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), stake.Inconsistent("%s transaction %s reverted", s.name(), tx.Hash().Hex())
	}
	return tx.Hash(), nil
}

func (s *sender) name() string {
	if s.method == "" {
		return "transfer"
	}
	return s.method
}
