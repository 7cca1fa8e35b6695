// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var account = common.HexToAddress("0x0123456789abcdef0123456789abcdef01234567")

func newServer(t *testing.T, handle func(req request) any) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(handle(req))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestSignPOP(t *testing.T) {
	ts := newServer(t, func(req request) any {
		assert.Contains(t, req.Query, "signPOP(address: $address)")
		assert.Equal(t, account.Hex(), req.Variables["address"])
		return map[string]any{"data": map[string]any{"signPOP": map[string]any{
			"signer": "0x00000000000000000000000000000000000000aa",
			"signature": map[string]any{
				"v": 28,
				"r": "0x0000000000000000000000000000000000000000000000000000000000000001",
				"s": "0x0000000000000000000000000000000000000000000000000000000000000002",
			},
		}}}
	})

	proof, err := New(ts.URL).SignPOP(context.Background(), account)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xaa"), proof.Signer)
	assert.Equal(t, uint8(28), proof.V)
	assert.Equal(t, common.HexToHash("0x01"), proof.R)
	assert.Equal(t, common.HexToHash("0x02"), proof.S)
}

func TestAutoVote(t *testing.T) {
	ts := newServer(t, func(req request) any {
		assert.Contains(t, req.Query, "autoVote(addresses: $addresses)")
		assert.Equal(t, []any{account.Hex()}, req.Variables["addresses"])
		return map[string]any{"data": map[string]any{"autoVote": []string{account.Hex()}}}
	})
	require.NoError(t, New(ts.URL).AutoVote(context.Background(), []common.Address{account}))
}

func TestProxyGovernance(t *testing.T) {
	accepted := true
	ts := newServer(t, func(req request) any {
		assert.Equal(t, account.Hex(), req.Variables["from"])
		assert.Equal(t, `{"a":1}`, req.Variables["typedDataJSON"])
		assert.Equal(t, "0xsig", req.Variables["typedDataSignature"])
		return map[string]any{"data": map[string]any{"proxyGovernance": accepted}}
	})

	client := New(ts.URL)
	require.NoError(t, client.ProxyGovernance(context.Background(), account, `{"a":1}`, "0xsig"))

	accepted = false
	assert.Error(t, client.ProxyGovernance(context.Background(), account, `{"a":1}`, "0xsig"))
}

func TestGraphQLErrors(t *testing.T) {
	ts := newServer(t, func(request) any {
		return map[string]any{"errors": []map[string]any{{"message": "account not found"}}}
	})
	_, err := New(ts.URL).SignPOP(context.Background(), account)
	assert.ErrorContains(t, err, "account not found")
}

func TestNon200Status(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	err := New(ts.URL).AutoVote(context.Background(), []common.Address{account})
	assert.True(t, errors.Is(err, ErrNot200Status))
	assert.ErrorContains(t, err, "502")
}
