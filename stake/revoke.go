// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Revocation is the vote amount to revoke from one group.
type Revocation struct {
	Group common.Address
	// Amount never exceeds the group's total votes.
	Amount *big.Int
	// Pending and Active split Amount, pending votes first.
	Pending *big.Int
	Active  *big.Int
}

// SelectRevocation picks the group to revoke need votes from:
//  1. the smallest group whose pending votes alone cover need,
//  2. else the smallest group whose total covers need,
//  3. else the largest group.
//
// Ties keep the group listed first.
func SelectRevocation(votes []GroupVote, need *big.Int) (Revocation, error) {
	if need.Sign() <= 0 {
		return Revocation{}, Invalid("revocation amount must be positive")
	}
	smallest := func(match func(v GroupVote) bool) int {
		best := -1
		for i, v := range votes {
			if !match(v) {
				continue
			}
			if best < 0 || v.Total().Cmp(votes[best].Total()) < 0 {
				best = i
			}
		}
		return best
	}

	chosen := smallest(func(v GroupVote) bool { return v.Pending.Cmp(need) >= 0 })
	if chosen < 0 {
		chosen = smallest(func(v GroupVote) bool { return v.Total().Cmp(need) >= 0 })
	}
	if chosen < 0 {
		for i, v := range votes {
			if chosen < 0 || v.Total().Cmp(votes[chosen].Total()) > 0 {
				chosen = i
			}
		}
	}
	if chosen < 0 || votes[chosen].Total().Sign() <= 0 {
		return Revocation{}, Inconsistent("no votes to revoke %s from", need)
	}

	v := votes[chosen]
	amount := minBig(need, v.Total())
	pending := minBig(v.Pending, amount)
	return Revocation{
		Group:   v.Group,
		Amount:  amount,
		Pending: pending,
		Active:  new(big.Int).Sub(amount, pending),
	}, nil
}
