// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package governance

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zviadm/celovote-app/celo"
	"github.com/zviadm/celovote-app/ledger"
	"github.com/zviadm/celovote-app/stake"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var (
	chainID  = big.NewInt(44787)
	contract = common.HexToAddress("0xc0")
)

type chainCall struct {
	method   string
	from     common.Address
	proposal uint64
	value    celo.VoteValue
}

type fakeChain struct {
	block uint64
	calls []chainCall
	fail  error
}

func (c *fakeChain) ChainID(context.Context) (*big.Int, error) { return chainID, nil }

func (c *fakeChain) BlockNumber(context.Context) (uint64, error) { return c.block, nil }

func (c *fakeChain) record(call chainCall) (common.Hash, error) {
	if c.fail != nil {
		return common.Hash{}, c.fail
	}
	c.calls = append(c.calls, call)
	return common.BigToHash(big.NewInt(int64(len(c.calls)))), nil
}

func (c *fakeChain) Upvote(_ context.Context, _ stake.Signer, from common.Address, id uint64) (common.Hash, error) {
	return c.record(chainCall{method: "upvote", from: from, proposal: id})
}

func (c *fakeChain) RevokeUpvote(_ context.Context, _ stake.Signer, from common.Address) (common.Hash, error) {
	return c.record(chainCall{method: "revokeUpvote", from: from})
}

func (c *fakeChain) Vote(_ context.Context, _ stake.Signer, from common.Address, id uint64, value celo.VoteValue) (common.Hash, error) {
	return c.record(chainCall{method: "vote", from: from, proposal: id, value: value})
}

type relayed struct {
	from      common.Address
	json      string
	signature string
}

type fakeRelay struct {
	sent []relayed
	fail error
}

func (r *fakeRelay) ProxyGovernance(_ context.Context, from common.Address, typedDataJSON, signature string) error {
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, relayed{from, typedDataJSON, signature})
	return nil
}

// withSigner runs fn with a session signer over the test key.
func withSigner(t *testing.T, fn func(signer *ledger.Signer, addr common.Address)) {
	dialer, err := ledger.NewKeyDialer(testKey)
	require.NoError(t, err)
	err = ledger.Do(context.Background(), dialer, []int{0}, func(_ context.Context, signer *ledger.Signer) error {
		fn(signer, signer.Accounts()[0])
		return nil
	})
	require.NoError(t, err)
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"upvote", "revoke-upvote", "vote-yes", "vote-no", "vote-abstain"} {
		a, err := ParseAction(s)
		require.NoError(t, err)
		assert.Equal(t, Action(s), a)
	}
	_, err := ParseAction("vote-maybe")
	assert.True(t, stake.IsValidation(err))
}

func TestBuildTypedData(t *testing.T) {
	msg := Message{SignedAtBlock: 100, Contract: contract, ProposalID: 7, Action: VoteYes}
	data, err := BuildTypedData(chainID, msg)
	require.NoError(t, err)
	assert.Equal(t, "ProxyGovernance", data.PrimaryType)
	assert.Equal(t, "celovote.com", data.Domain.Name)
	assert.Equal(t, "1", data.Domain.Version)
	assert.Equal(t, contract.Hex(), data.Message["rgContract"])

	hash, _, err := apitypes.TypedDataAndHash(data)
	require.NoError(t, err)

	again, err := BuildTypedData(chainID, msg)
	require.NoError(t, err)
	hash2, _, err := apitypes.TypedDataAndHash(again)
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)

	other, err := BuildTypedData(big.NewInt(42220), msg)
	require.NoError(t, err)
	hash3, _, err := apitypes.TypedDataAndHash(other)
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash3)

	// the relay hashes the decoded JSON
	encoded, err := Encode(chainID, msg)
	require.NoError(t, err)
	var decoded apitypes.TypedData
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	hash4, _, err := apitypes.TypedDataAndHash(decoded)
	require.NoError(t, err)
	assert.Equal(t, hash, hash4)

	direct, err := BuildTypedData(chainID, Message{SignedAtBlock: 1, ProposalID: 7, Action: Upvote})
	require.NoError(t, err)
	assert.Equal(t, "", direct.Message["rgContract"])
}

func TestEncodeRelayedJSON(t *testing.T) {
	msg := Message{
		SignedAtBlock: 123456,
		Contract:      common.HexToAddress("0x0000000000000000000000000000000000000010"),
		ProposalID:    7,
		Action:        VoteYes,
	}
	encoded, err := Encode(big.NewInt(42220), msg)
	require.NoError(t, err)
	assert.Equal(t, `{"domain":{"name":"celovote.com","version":"1","chainId":42220},`+
		`"types":{"EIP712Domain":[{"name":"name","type":"string"},{"name":"version","type":"string"},{"name":"chainId","type":"uint256"}],`+
		`"ProxyGovernance":[{"name":"signedAtBlock","type":"uint64"},{"name":"rgContract","type":"string"},{"name":"proposalId","type":"uint64"},{"name":"action","type":"string"}]},`+
		`"primaryType":"ProxyGovernance",`+
		`"message":{"signedAtBlock":123456,"rgContract":"0x0000000000000000000000000000000000000010","proposalId":7,"action":"vote-yes"}}`,
		encoded)

	_, err = Encode(big.NewInt(42220), Message{SignedAtBlock: 1, Action: Upvote})
	assert.True(t, stake.IsValidation(err), "got %v", err)
}

func TestBuildTypedDataValidation(t *testing.T) {
	_, err := BuildTypedData(nil, Message{ProposalID: 1, Action: Upvote})
	assert.True(t, stake.IsValidation(err))
	_, err = BuildTypedData(chainID, Message{ProposalID: 1, Action: "delegate"})
	assert.True(t, stake.IsValidation(err))
	_, err = BuildTypedData(chainID, Message{Action: Upvote})
	assert.True(t, stake.IsValidation(err))
}

func TestProxyCustodial(t *testing.T) {
	withSigner(t, func(signer *ledger.Signer, addr common.Address) {
		chain := &fakeChain{block: 1234}
		relay := &fakeRelay{}
		var steps []stake.Step
		proxy := NewProxy(chain, relay, &stake.Steps{Progress: func(s stake.Step) { steps = append(steps, s) }})

		err := proxy.Perform(context.Background(), signer, Account{Address: addr, Contract: contract}, 7, VoteNo)
		require.NoError(t, err)
		assert.Empty(t, chain.calls)
		require.Len(t, relay.sent, 1)
		assert.Equal(t, addr, relay.sent[0].from)

		var data apitypes.TypedData
		require.NoError(t, json.Unmarshal([]byte(relay.sent[0].json), &data))
		sig, err := hexutil.Decode(relay.sent[0].signature)
		require.NoError(t, err)
		signer2, err := Recover(data, sig)
		require.NoError(t, err)
		assert.Equal(t, addr, signer2)
		assert.Equal(t, "vote-no", data.Message["action"])

		require.Len(t, steps, 1)
		assert.Equal(t, contract, steps[0].To)
		assert.Contains(t, steps[0].String(), `proxy "vote-no" on proposal 7`)
	})
}

func TestProxyDirect(t *testing.T) {
	withSigner(t, func(signer *ledger.Signer, addr common.Address) {
		chain := &fakeChain{}
		proxy := NewProxy(chain, nil, nil)
		for _, a := range []Action{Upvote, RevokeUpvote, VoteYes, VoteNo, VoteAbstain} {
			require.NoError(t, proxy.Perform(context.Background(), signer, Account{Address: addr}, 3, a))
		}
		assert.Equal(t, []chainCall{
			{method: "upvote", from: addr, proposal: 3},
			{method: "revokeUpvote", from: addr},
			{method: "vote", from: addr, proposal: 3, value: celo.VoteYes},
			{method: "vote", from: addr, proposal: 3, value: celo.VoteNo},
			{method: "vote", from: addr, proposal: 3, value: celo.VoteAbstain},
		}, chain.calls)
	})
}

func TestProxyRelayRejects(t *testing.T) {
	withSigner(t, func(signer *ledger.Signer, addr common.Address) {
		proxy := NewProxy(&fakeChain{block: 1}, &fakeRelay{fail: errors.New("relay declined governance action")}, nil)
		err := proxy.Perform(context.Background(), signer, Account{Address: addr, Contract: contract}, 7, Upvote)
		assert.ErrorContains(t, err, "declined")

		err = NewProxy(&fakeChain{block: 1}, nil, nil).Perform(context.Background(), signer, Account{Address: addr, Contract: contract}, 7, Upvote)
		assert.True(t, stake.IsValidation(err))
	})
}

type wrongKeySigner struct {
	addr common.Address
}

func (s wrongKeySigner) Accounts() []common.Address { return []common.Address{s.addr} }

func (s wrongKeySigner) SignTx(context.Context, common.Address, *types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, errors.New("not supported")
}

func (s wrongKeySigner) SignTypedData(_ context.Context, _ common.Address, data apitypes.TypedData) ([]byte, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, err
	}
	return crypto.Sign(hash, key)
}

func TestProxySignerMismatch(t *testing.T) {
	relay := &fakeRelay{}
	addr := common.HexToAddress("0xbe")
	err := NewProxy(&fakeChain{block: 1}, relay, nil).Perform(context.Background(), wrongKeySigner{addr}, Account{Address: addr, Contract: contract}, 7, Upvote)
	assert.ErrorContains(t, err, "signature recovers to")
	assert.Empty(t, relay.sent)
}

func TestPerformAll(t *testing.T) {
	withSigner(t, func(signer *ledger.Signer, addr common.Address) {
		chain := &fakeChain{block: 9}
		relay := &fakeRelay{}
		var steps []stake.Step
		proxy := NewProxy(chain, relay, &stake.Steps{Progress: func(s stake.Step) { steps = append(steps, s) }})

		accounts := []Account{{Address: addr}, {Address: addr, Contract: contract}}
		require.NoError(t, proxy.PerformAll(context.Background(), signer, accounts, 5, VoteYes))
		assert.Len(t, chain.calls, 1)
		assert.Len(t, relay.sent, 1)
		require.Len(t, steps, 2)
		assert.Equal(t, `Waiting for approval (1 of 2) to "vote-yes" on proposal 5...`, steps[0].String())
		assert.Equal(t, 2, steps[1].Seq)

		chain.fail = errors.New("boom")
		err := proxy.PerformAll(context.Background(), signer, accounts, 5, VoteYes)
		assert.ErrorContains(t, err, "boom")
		assert.Len(t, relay.sent, 1)

		assert.True(t, stake.IsValidation(proxy.PerformAll(context.Background(), signer, nil, 5, VoteYes)))
	})
}
