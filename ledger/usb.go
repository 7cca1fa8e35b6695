// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/usbwallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

// USBDialer connects to the first Ledger device found over USB HID. The device
// must be unlocked with the Ethereum application open.
type USBDialer struct{}

func (USBDialer) Dial(_ context.Context) (Transport, error) {
	hub, err := usbwallet.NewLedgerHub()
	if err != nil {
		return nil, &ConnectionError{Err: errors.Wrap(err, "usb transport unsupported")}
	}
	wallets := hub.Wallets()
	if len(wallets) == 0 {
		return nil, &ConnectionError{Err: errors.New("no ledger device found")}
	}
	wallet := wallets[0]
	if err := wallet.Open(""); err != nil {
		return nil, &ConnectionError{Err: errors.Wrap(err, "open device, make sure it is unlocked with the ethereum app open")}
	}
	if _, err := wallet.Status(); err != nil {
		wallet.Close()
		return nil, &ConnectionError{Err: err}
	}
	return &usbTransport{wallet: wallet, derived: make(map[string]accounts.Account)}, nil
}

type usbTransport struct {
	wallet  accounts.Wallet
	derived map[string]accounts.Account
}

func (t *usbTransport) account(path string) (accounts.Account, error) {
	if acc, ok := t.derived[path]; ok {
		return acc, nil
	}
	dp, err := accounts.ParseDerivationPath("m/" + path)
	if err != nil {
		return accounts.Account{}, err
	}
	// pinned accounts are the only ones the wallet signs for
	acc, err := t.wallet.Derive(dp, true)
	if err != nil {
		return accounts.Account{}, err
	}
	t.derived[path] = acc
	return acc, nil
}

// Derive reads the address at path. The Ledger driver offers no on-screen
// confirmation, so verification re-derives the path and compares results.
func (t *usbTransport) Derive(_ context.Context, path string, verify bool) (common.Address, error) {
	acc, err := t.account(path)
	if err != nil {
		return common.Address{}, err
	}
	if verify {
		dp, err := accounts.ParseDerivationPath("m/" + path)
		if err != nil {
			return common.Address{}, err
		}
		again, err := t.wallet.Derive(dp, false)
		if err != nil {
			return common.Address{}, err
		}
		if again.Address != acc.Address {
			return common.Address{}, errors.Errorf("address mismatch for %s: %s != %s", path, again.Address.Hex(), acc.Address.Hex())
		}
	}
	return acc.Address, nil
}

func (t *usbTransport) SignTx(_ context.Context, path string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	acc, err := t.account(path)
	if err != nil {
		return nil, err
	}
	return t.wallet.SignTx(acc, tx, chainID)
}

func (t *usbTransport) SignTypedData(_ context.Context, path string, data apitypes.TypedData) ([]byte, error) {
	acc, err := t.account(path)
	if err != nil {
		return nil, err
	}
	raw, err := typedDataPreimage(data)
	if err != nil {
		return nil, err
	}
	return t.wallet.SignData(acc, accounts.MimetypeTypedData, raw)
}

func (t *usbTransport) Close() error {
	return t.wallet.Close()
}

// typedDataPreimage returns 0x19 0x01 || domainSeparator || hashStruct(message),
// the layout the Ledger driver expects for EIP-712 signing.
func typedDataPreimage(data apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := data.HashStruct("EIP712Domain", data.Domain.Map())
	if err != nil {
		return nil, errors.Wrap(err, "hash domain")
	}
	messageHash, err := data.HashStruct(data.PrimaryType, data.Message)
	if err != nil {
		return nil, errors.Wrap(err, "hash message")
	}
	raw := make([]byte, 0, 66)
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, messageHash...)
	return raw, nil
}
