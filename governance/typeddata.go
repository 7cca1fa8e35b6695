// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package governance performs governance actions for staking accounts.
// Accounts held by a release contract cannot act directly, so their
// beneficiary signs an EIP-712 message the relay replays on the contract's
// behalf.
package governance

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"

	"github.com/zviadm/celovote-app/celo"
	"github.com/zviadm/celovote-app/stake"
)

const (
	domainName    = "celovote.com"
	domainVersion = "1"
	primaryType   = "ProxyGovernance"
)

// Action is a governance action.
type Action string

const (
	Upvote       Action = "upvote"
	RevokeUpvote Action = "revoke-upvote"
	VoteYes      Action = "vote-yes"
	VoteNo       Action = "vote-no"
	VoteAbstain  Action = "vote-abstain"
)

// ParseAction validates s as an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case Upvote, RevokeUpvote, VoteYes, VoteNo, VoteAbstain:
		return a, nil
	}
	return "", stake.Invalid("unknown governance action: %q", s)
}

func (a Action) voteValue() (celo.VoteValue, bool) {
	switch a {
	case VoteYes:
		return celo.VoteYes, true
	case VoteNo:
		return celo.VoteNo, true
	case VoteAbstain:
		return celo.VoteAbstain, true
	}
	return celo.VoteNone, false
}

// Message is the governance action a beneficiary asks the relay to perform.
// A zero Contract means the signer acts for itself.
type Message struct {
	SignedAtBlock uint64
	Contract      common.Address
	ProposalID    uint64
	Action        Action
}

func (m Message) contract() string {
	if m.Contract == (common.Address{}) {
		return ""
	}
	return m.Contract.Hex()
}

var (
	domainType = []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	}
	messageType = []apitypes.Type{
		{Name: "signedAtBlock", Type: "uint64"},
		{Name: "rgContract", Type: "string"},
		{Name: "proposalId", Type: "uint64"},
		{Name: "action", Type: "string"},
	}
)

// relayedData is the JSON shape the relay decodes: integers are plain
// numbers and the domain carries only name, version and chain id.
type relayedData struct {
	Domain struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		ChainID *big.Int `json:"chainId"`
	} `json:"domain"`
	Types struct {
		EIP712Domain    []apitypes.Type `json:"EIP712Domain"`
		ProxyGovernance []apitypes.Type `json:"ProxyGovernance"`
	} `json:"types"`
	PrimaryType string `json:"primaryType"`
	Message     struct {
		SignedAtBlock uint64 `json:"signedAtBlock"`
		Contract      string `json:"rgContract"`
		ProposalID    uint64 `json:"proposalId"`
		Action        Action `json:"action"`
	} `json:"message"`
}

func uint64Value(v uint64) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(new(big.Int).SetUint64(v))
}

// BuildTypedData returns the EIP-712 payload for msg, bound to chainID.
func BuildTypedData(chainID *big.Int, msg Message) (apitypes.TypedData, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return apitypes.TypedData{}, stake.Invalid("invalid chain id")
	}
	if _, err := ParseAction(string(msg.Action)); err != nil {
		return apitypes.TypedData{}, err
	}
	if msg.ProposalID == 0 {
		return apitypes.TypedData{}, stake.Invalid("proposal id is required")
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			primaryType:    messageType,
		},
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:    domainName,
			Version: domainVersion,
			ChainId: (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
		},
		Message: apitypes.TypedDataMessage{
			"signedAtBlock": uint64Value(msg.SignedAtBlock),
			"rgContract":    msg.contract(),
			"proposalId":    uint64Value(msg.ProposalID),
			"action":        string(msg.Action),
		},
	}, nil
}

// Encode returns the JSON encoding of the payload BuildTypedData builds for
// the same arguments, in the form handed to the relay.
func Encode(chainID *big.Int, msg Message) (string, error) {
	if _, err := BuildTypedData(chainID, msg); err != nil {
		return "", err
	}
	var data relayedData
	data.Domain.Name = domainName
	data.Domain.Version = domainVersion
	data.Domain.ChainID = chainID
	data.Types.EIP712Domain = domainType
	data.Types.ProxyGovernance = messageType
	data.PrimaryType = primaryType
	data.Message.SignedAtBlock = msg.SignedAtBlock
	data.Message.Contract = msg.contract()
	data.Message.ProposalID = msg.ProposalID
	data.Message.Action = msg.Action

	b, err := json.Marshal(&data)
	if err != nil {
		return "", errors.Wrap(err, "encode typed data")
	}
	return string(b), nil
}

// Recover returns the address that produced the 65 byte signature over data.
func Recover(data apitypes.TypedData, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, errors.Errorf("invalid signature length %d", len(sig))
	}
	hash, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "hash typed data")
	}
	rsv := common.CopyBytes(sig)
	if rsv[crypto.RecoveryIDOffset] >= 27 {
		rsv[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, rsv)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "recover signer")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func signatureHex(sig []byte) string { return hexutil.Encode(sig) }

// Chain is the network a Proxy acts on.
type Chain interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Upvote(ctx context.Context, signer stake.Signer, from common.Address, proposalID uint64) (common.Hash, error)
	RevokeUpvote(ctx context.Context, signer stake.Signer, from common.Address) (common.Hash, error)
	Vote(ctx context.Context, signer stake.Signer, from common.Address, proposalID uint64, value celo.VoteValue) (common.Hash, error)
}

var _ Chain = (*celo.Client)(nil)
