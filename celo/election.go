// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package celo

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// GroupTotal is the total vote of an eligible validator group.
type GroupTotal struct {
	Group common.Address
	Votes *big.Int
}

// LesserGreater returns the neighbours group will have in the sorted list of
// eligible groups once its total changes by change. eligible must be ordered
// most voted first. A zero address means no neighbour on that side.
func LesserGreater(eligible []GroupTotal, group common.Address, change *big.Int) (lesser, greater common.Address) {
	total := new(big.Int).Set(change)
	for _, g := range eligible {
		if g.Group == group {
			total.Add(total, g.Votes)
			break
		}
	}
	for _, g := range eligible {
		if g.Group == group {
			continue
		}
		if g.Votes.Cmp(total) <= 0 {
			lesser = g.Group
			break
		}
		greater = g.Group
	}
	return lesser, greater
}
