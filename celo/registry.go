// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package celo

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Registry resolves core contract addresses by name. Resolved addresses are
// cached and concurrent lookups of one name share a single call.
type Registry struct {
	contract *bind.BoundContract
	cache    *lru.Cache
	group    singleflight.Group
}

func NewRegistry(caller bind.ContractCaller) *Registry {
	cache, err := lru.New(32)
	if err != nil {
		// lru.New only fails for non-positive sizes
		panic(fmt.Errorf("failed to create registry cache: %v", err))
	}
	return &Registry{
		contract: bind.NewBoundContract(RegistryAddress, registryABI, caller, nil, nil),
		cache:    cache,
	}
}

// Lookup returns the address registered for name.
func (r *Registry) Lookup(ctx context.Context, name string) (common.Address, error) {
	if v, ok := r.cache.Get(name); ok {
		return v.(common.Address), nil
	}
	v, err, _ := r.group.Do(name, func() (any, error) {
		var out []any
		if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getAddressForString", name); err != nil {
			return nil, errors.Wrapf(err, "registry lookup %s", name)
		}
		addr := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
		if addr == (common.Address{}) {
			return nil, errors.Errorf("%s is not registered", name)
		}
		r.cache.Add(name, addr)
		return addr, nil
	})
	if err != nil {
		return common.Address{}, err
	}
	return v.(common.Address), nil
}
