// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

// KeyDialer serves in-process private keys as if they were device accounts:
// index i of Path(i) selects Keys[i]. Meant for development networks and tests.
type KeyDialer struct {
	Keys []*ecdsa.PrivateKey
}

// NewKeyDialer parses hex encoded private keys.
func NewKeyDialer(hexKeys ...string) (*KeyDialer, error) {
	d := &KeyDialer{}
	for i, h := range hexKeys {
		key, err := crypto.HexToECDSA(h)
		if err != nil {
			return nil, errors.Wrapf(err, "key #%d", i)
		}
		d.Keys = append(d.Keys, key)
	}
	return d, nil
}

func (d *KeyDialer) Dial(_ context.Context) (Transport, error) {
	if len(d.Keys) == 0 {
		return nil, &ConnectionError{Err: errors.New("no keys configured")}
	}
	return &keyTransport{keys: d.Keys}, nil
}

type keyTransport struct {
	keys   []*ecdsa.PrivateKey
	closed bool
}

func (t *keyTransport) key(path string) (*ecdsa.PrivateKey, error) {
	if t.closed {
		return nil, errClosed
	}
	idx, err := PathIndex(path)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(t.keys) {
		return nil, errors.Errorf("no key for %s", path)
	}
	return t.keys[idx], nil
}

func (t *keyTransport) Derive(_ context.Context, path string, _ bool) (common.Address, error) {
	key, err := t.key(path)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func (t *keyTransport) SignTx(_ context.Context, path string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	key, err := t.key(path)
	if err != nil {
		return nil, err
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
}

func (t *keyTransport) SignTypedData(_ context.Context, path string, data apitypes.TypedData) ([]byte, error) {
	key, err := t.key(path)
	if err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

func (t *keyTransport) Close() error {
	if t.closed {
		return errClosed
	}
	t.closed = true
	return nil
}
