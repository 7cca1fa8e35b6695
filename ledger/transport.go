// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Transport is an open connection to a signing device. Paths are relative
// derivation paths as returned by Path.
type Transport interface {
	// Derive returns the address at path. With verify set the device is asked
	// to confirm the address where it supports doing so.
	Derive(ctx context.Context, path string, verify bool) (common.Address, error)
	// SignTx signs tx with the key at path.
	SignTx(ctx context.Context, path string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	// SignTypedData signs the EIP-712 payload with the key at path and returns a
	// 65 byte [R || S || V] signature, V being 27 or 28.
	SignTypedData(ctx context.Context, path string, data apitypes.TypedData) ([]byte, error)
	Close() error
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Transport, error)

func (f DialerFunc) Dial(ctx context.Context) (Transport, error) { return f(ctx) }

// WalletAddress is an address read from the device together with its path.
type WalletAddress struct {
	Path    string         `json:"path"`
	Address common.Address `json:"address"`
}

// Addresses reads the addresses of idxs over a single transport which is
// closed before returning.
func Addresses(ctx context.Context, dialer Dialer, idxs []int, verify bool) ([]WalletAddress, error) {
	return AddressesWithProgress(ctx, dialer, idxs, verify, nil)
}

// AddressesWithProgress is Addresses reporting every derived address to onAddress.
func AddressesWithProgress(
	ctx context.Context,
	dialer Dialer,
	idxs []int,
	verify bool,
	onAddress func(WalletAddress),
) ([]WalletAddress, error) {
	transport, err := dialer.Dial(ctx)
	if err != nil {
		return nil, connectionError(err)
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logger.Warn("failed to close transport", "err", err)
		}
	}()

	res := make([]WalletAddress, 0, len(idxs))
	for _, idx := range idxs {
		path := Path(idx)
		addr, err := transport.Derive(ctx, path, verify)
		if err != nil {
			return nil, classify(err)
		}
		wa := WalletAddress{Path: path, Address: addr}
		res = append(res, wa)
		if onAddress != nil {
			onAddress(wa)
		}
	}
	return res, nil
}
