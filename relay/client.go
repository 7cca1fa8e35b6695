// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package relay is a client of the celovote GraphQL service, which issues vote
// signer proofs, votes for authorized accounts and relays governance actions
// signed by release contract beneficiaries.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/zviadm/celovote-app/metrics"
	"github.com/zviadm/celovote-app/stake"
)

var (
	logger = log.New("pkg", "relay")

	metricFailures = metrics.LazyLoadCounter("relay_failures_count")

	ErrNot200Status = errors.New("not 200 status code")
)

const (
	mSignPOP = `mutation signPOP($address: String!) {
  signPOP(address: $address) {
    signer
    signature {v r s}
  }
}`
	mAutoVote = `mutation autoVote($addresses: [String!]!) {
  autoVote(addresses: $addresses)
}`
	mProxyGovernance = `mutation proxyGovernance($from: String!, $typedDataJSON: String!, $typedDataSignature: String!) {
  proxyGovernance(from: $from, typedDataJSON: $typedDataJSON, typedDataSignature: $typedDataSignature)
}`
)

// Client sends GraphQL requests to the relay.
type Client struct {
	url string
	c   *http.Client
}

var _ stake.ProofSource = (*Client)(nil)

// New creates a Client posting to url.
func New(url string) *Client {
	return NewWithHTTP(url, http.DefaultClient)
}

func NewWithHTTP(url string, c *http.Client) *Client {
	return &Client{url: url, c: c}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do posts query and decodes the data field of the response into out.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	err := c.request(ctx, query, variables, out)
	if err != nil {
		metricFailures().Add(1)
	}
	return err
}

func (c *Client) request(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("unable to marshal request - %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	requestID := uuid.New()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("relay request %s - %w", requestID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unable to read response - %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrNot200Status, "relay request %s: %d %s", requestID, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var res response
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("unable to unmarshal response - %w", err)
	}
	if len(res.Errors) > 0 {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			msgs[i] = e.Message
		}
		return errors.Errorf("relay: %s", strings.Join(msgs, "; "))
	}
	logger.Debug("relay request done", "id", requestID)
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return fmt.Errorf("unable to unmarshal data - %w", err)
	}
	return nil
}

// SignPOP asks the relay vote signer for a proof of possession over account.
func (c *Client) SignPOP(ctx context.Context, account common.Address) (*stake.Proof, error) {
	var data struct {
		SignPOP struct {
			Signer    string `json:"signer"`
			Signature struct {
				V int    `json:"v"`
				R string `json:"r"`
				S string `json:"s"`
			} `json:"signature"`
		} `json:"signPOP"`
	}
	if err := c.do(ctx, mSignPOP, map[string]any{"address": account.Hex()}, &data); err != nil {
		return nil, err
	}
	pop := data.SignPOP
	if !common.IsHexAddress(pop.Signer) {
		return nil, errors.Errorf("relay returned invalid signer %q", pop.Signer)
	}
	if pop.Signature.V < 0 || pop.Signature.V > 255 {
		return nil, errors.Errorf("relay returned invalid signature v %d", pop.Signature.V)
	}
	return &stake.Proof{
		Signer: common.HexToAddress(pop.Signer),
		V:      uint8(pop.Signature.V),
		R:      common.HexToHash(pop.Signature.R),
		S:      common.HexToHash(pop.Signature.S),
	}, nil
}

// AutoVote asks the relay to vote with the locked stake of accounts.
func (c *Client) AutoVote(ctx context.Context, accounts []common.Address) error {
	addrs := make([]string, len(accounts))
	for i, a := range accounts {
		addrs[i] = a.Hex()
	}
	return c.do(ctx, mAutoVote, map[string]any{"addresses": addrs}, nil)
}

// ProxyGovernance hands a signed governance action of a release contract
// beneficiary to the relay. It fails when the relay declines it.
func (c *Client) ProxyGovernance(ctx context.Context, from common.Address, typedDataJSON, signature string) error {
	var data struct {
		ProxyGovernance bool `json:"proxyGovernance"`
	}
	vars := map[string]any{
		"from":               from.Hex(),
		"typedDataJSON":      typedDataJSON,
		"typedDataSignature": signature,
	}
	if err := c.do(ctx, mProxyGovernance, vars, &data); err != nil {
		return err
	}
	if !data.ProxyGovernance {
		return errors.New("relay declined governance action")
	}
	return nil
}
