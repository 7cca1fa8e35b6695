// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	groupA = common.HexToAddress("0xa0")
	groupB = common.HexToAddress("0xb0")
	groupC = common.HexToAddress("0xc0")
)

func gv(group common.Address, active, pending int64) GroupVote {
	return GroupVote{Group: group, Active: big.NewInt(active), Pending: big.NewInt(pending)}
}

func TestSelectRevocation(t *testing.T) {
	tests := []struct {
		name    string
		votes   []GroupVote
		need    int64
		group   common.Address
		amount  int64
		pending int64
	}{
		{
			name:    "pending covers need, smallest total wins",
			votes:   []GroupVote{gv(groupA, 100, 50), gv(groupB, 10, 40), gv(groupC, 0, 10)},
			need:    40,
			group:   groupB,
			amount:  40,
			pending: 40,
		},
		{
			name:    "total covers need",
			votes:   []GroupVote{gv(groupA, 50, 30)},
			need:    60,
			group:   groupA,
			amount:  60,
			pending: 30,
		},
		{
			name:    "smallest total covering need",
			votes:   []GroupVote{gv(groupA, 200, 0), gv(groupB, 70, 0), gv(groupC, 10, 0)},
			need:    60,
			group:   groupB,
			amount:  60,
			pending: 0,
		},
		{
			name:    "nothing covers need, largest total",
			votes:   []GroupVote{gv(groupA, 20, 0), gv(groupB, 35, 5), gv(groupC, 30, 0)},
			need:    100,
			group:   groupB,
			amount:  40,
			pending: 5,
		},
		{
			name:    "ties keep the first group",
			votes:   []GroupVote{gv(groupA, 10, 0), gv(groupB, 10, 0)},
			need:    5,
			group:   groupA,
			amount:  5,
			pending: 0,
		},
		{
			name:    "ties keep the first group when nothing covers",
			votes:   []GroupVote{gv(groupA, 10, 0), gv(groupB, 0, 10)},
			need:    50,
			group:   groupA,
			amount:  10,
			pending: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rev, err := SelectRevocation(tt.votes, big.NewInt(tt.need))
			require.NoError(t, err)
			assert.Equal(t, tt.group, rev.Group)
			assert.Equal(t, big.NewInt(tt.amount), rev.Amount)
			assert.Equal(t, big.NewInt(tt.pending), rev.Pending)
			assert.Equal(t, big.NewInt(tt.amount-tt.pending), rev.Active)
		})
	}
}

func TestSelectRevocationNeverExceedsGroup(t *testing.T) {
	votes := []GroupVote{gv(groupA, 3, 4), gv(groupB, 1, 0), gv(groupC, 0, 2)}
	for need := int64(1); need < 20; need++ {
		rev, err := SelectRevocation(votes, big.NewInt(need))
		require.NoError(t, err)
		for _, v := range votes {
			if v.Group == rev.Group {
				assert.LessOrEqual(t, rev.Amount.Cmp(v.Total()), 0)
				assert.LessOrEqual(t, rev.Pending.Cmp(v.Pending), 0)
			}
		}
		assert.LessOrEqual(t, rev.Amount.Cmp(big.NewInt(need)), 0)
	}
}

func TestSelectRevocationNoVotes(t *testing.T) {
	_, err := SelectRevocation(nil, big.NewInt(1))
	assert.True(t, IsChainState(err))

	_, err = SelectRevocation([]GroupVote{gv(groupA, 0, 0)}, big.NewInt(1))
	assert.True(t, IsChainState(err))

	_, err = SelectRevocation([]GroupVote{gv(groupA, 1, 0)}, big.NewInt(0))
	assert.True(t, IsValidation(err))
}
