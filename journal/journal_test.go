// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package journal

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zviadm/celovote-app/stake"
)

var (
	alice = common.HexToAddress("0xa1")
	bob   = common.HexToAddress("0xb0")
	group = common.HexToAddress("0x99")
)

func TestRecordAndList(t *testing.T) {
	j, err := OpenMem()
	require.NoError(t, err)
	defer j.Close()
	j.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	require.NoError(t, j.Record(alice, stake.Step{Action: stake.ActionLock, Amount: stake.CELO(10)}, common.HexToHash("0x01")))
	require.NoError(t, j.Record(bob, stake.Step{Action: stake.ActionCreateAccount}, common.HexToHash("0x02")))
	require.NoError(t, j.Record(alice, stake.Step{Action: stake.ActionRevokeActive, Amount: stake.CELO(5), Group: group}, common.HexToHash("0x03")))

	all, err := j.List(common.Address{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(3), all[0].Seq)
	assert.Equal(t, uint64(1), all[2].Seq)

	mine, err := j.List(alice, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "revoke-active", mine[0].Action)
	assert.Equal(t, group, mine[0].Group)
	assert.Equal(t, common.HexToHash("0x03"), mine[0].Tx)
	assert.Equal(t, uint64(1_700_000_000), mine[0].Time)
	assert.Equal(t, "Waiting for approval to lock 10.00 CELO...", mine[1].Step().String())

	latest, err := j.List(common.Address{}, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, uint64(3), latest[0].Seq)
	assert.Equal(t, bob, all[1].Account)
	assert.Equal(t, 0, all[1].Amount.Sign())
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, j.Record(alice, stake.Step{Action: stake.ActionUnlock, Amount: stake.CELO(1)}, common.HexToHash("0x01")))
	require.NoError(t, j.Close())

	j, err = Open(dir)
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.Record(alice, stake.Step{Action: stake.ActionFinalize, Amount: stake.CELO(1)}, common.HexToHash("0x02")))

	entries, err := j.List(alice, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(2), entries[0].Seq)
	assert.Equal(t, 0, stake.CELO(1).Cmp(entries[1].Amount))
}

func TestStepsRecordToJournal(t *testing.T) {
	j, err := OpenMem()
	require.NoError(t, err)
	defer j.Close()

	steps := &stake.Steps{Recorder: j}
	_, err = steps.Execute(t.Context(), alice, stake.Step{Action: stake.ActionLock, Amount: stake.CELO(2)}, func(_ context.Context) (common.Hash, error) {
		return common.HexToHash("0xff"), nil
	})
	require.NoError(t, err)

	entries, err := j.List(alice, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, common.HexToHash("0xff"), entries[0].Tx)
}
