// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

// Signer signs on behalf of the addresses derived when its session connected.
// Device access is serialized.
type Signer struct {
	mu        sync.Mutex
	transport Transport
	accounts  []WalletAddress
}

// Accounts returns the addresses available for signing, in session index order.
func (s *Signer) Accounts() []common.Address {
	res := make([]common.Address, len(s.accounts))
	for i, acc := range s.accounts {
		res[i] = acc.Address
	}
	return res
}

func (s *Signer) path(addr common.Address) (string, error) {
	for _, acc := range s.accounts {
		if acc.Address == addr {
			return acc.Path, nil
		}
	}
	return "", errors.Wrap(ErrUnknownAccount, addr.Hex())
}

// SignTx signs tx as from.
func (s *Signer) SignTx(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	path, err := s.path(from)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	signed, err := s.transport.SignTx(ctx, path, tx, chainID)
	if err != nil {
		return nil, classify(err)
	}
	return signed, nil
}

// SignTypedData signs the EIP-712 payload as from.
func (s *Signer) SignTypedData(ctx context.Context, from common.Address, data apitypes.TypedData) ([]byte, error) {
	path, err := s.path(from)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, err := s.transport.SignTypedData(ctx, path, data)
	if err != nil {
		return nil, classify(err)
	}
	return sig, nil
}
