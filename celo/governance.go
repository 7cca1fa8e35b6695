// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package celo

import (
	"context"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/zviadm/celovote-app/stake"
)

// VoteValue is a governance vote choice.
type VoteValue uint8

const (
	VoteNone VoteValue = iota
	VoteAbstain
	VoteNo
	VoteYes
)

// QueuedProposal is a proposal waiting in the upvote queue.
type QueuedProposal struct {
	ID      uint64
	Upvotes *big.Int
}

// UpvoteRecord is the proposal an account upvotes and the weight it gave.
type UpvoteRecord struct {
	ProposalID uint64
	Weight     *big.Int
}

// QueueNeighbours returns the ids around id in queue ordered by upvotes,
// fewest first, 0 meaning none.
func QueueNeighbours(queue []QueuedProposal, id uint64) (lesser, greater uint64) {
	sorted := slices.Clone(queue)
	slices.SortStableFunc(sorted, func(a, b QueuedProposal) int { return a.Upvotes.Cmp(b.Upvotes) })
	idx := slices.IndexFunc(sorted, func(p QueuedProposal) bool { return p.ID == id })
	if idx < 0 {
		return 0, 0
	}
	if idx > 0 {
		lesser = sorted[idx-1].ID
	}
	if idx < len(sorted)-1 {
		greater = sorted[idx+1].ID
	}
	return lesser, greater
}

// adjust returns a copy of queue with delta added to the upvotes of id.
func adjust(queue []QueuedProposal, id uint64, delta *big.Int) []QueuedProposal {
	res := make([]QueuedProposal, len(queue))
	for i, p := range queue {
		res[i] = QueuedProposal{ID: p.ID, Upvotes: new(big.Int).Set(p.Upvotes)}
		if p.ID == id {
			res[i].Upvotes.Add(res[i].Upvotes, delta)
		}
	}
	return res
}

// UpvoteNeighbours returns the queue neighbours of id after an account holding
// weight moves its upvote from record to id.
func UpvoteNeighbours(queue []QueuedProposal, record UpvoteRecord, id uint64, weight *big.Int) (lesser, greater uint64) {
	if record.ProposalID != 0 {
		queue = adjust(queue, record.ProposalID, new(big.Int).Neg(record.Weight))
	}
	return QueueNeighbours(adjust(queue, id, weight), id)
}

// RevokeUpvoteNeighbours returns the queue neighbours of the upvoted proposal
// once record is revoked.
func RevokeUpvoteNeighbours(queue []QueuedProposal, record UpvoteRecord) (lesser, greater uint64) {
	return QueueNeighbours(adjust(queue, record.ProposalID, new(big.Int).Neg(record.Weight)), record.ProposalID)
}

func (c *Client) governance(ctx context.Context) (*bind.BoundContract, error) {
	return c.contract(ctx, GovernanceID, governanceABI)
}

// Queue returns the proposals waiting for upvotes.
func (c *Client) Queue(ctx context.Context) ([]QueuedProposal, error) {
	gov, err := c.governance(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, gov, "getQueue")
	if err != nil {
		return nil, err
	}
	ids, upvotes := toBigs(out[0]), toBigs(out[1])
	if len(ids) != len(upvotes) {
		return nil, stake.Inconsistent("queue: %d ids, %d upvotes", len(ids), len(upvotes))
	}
	res := make([]QueuedProposal, len(ids))
	for i := range ids {
		res[i] = QueuedProposal{ID: ids[i].Uint64(), Upvotes: upvotes[i]}
	}
	return res, nil
}

// Dequeue returns the proposals past the queue, by dequeue index.
func (c *Client) Dequeue(ctx context.Context) ([]uint64, error) {
	gov, err := c.governance(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, gov, "getDequeue")
	if err != nil {
		return nil, err
	}
	var res []uint64
	for _, id := range toBigs(out[0]) {
		res = append(res, id.Uint64())
	}
	return res, nil
}

// UpvoteRecord returns the current upvote of account.
func (c *Client) UpvoteRecord(ctx context.Context, account common.Address) (UpvoteRecord, error) {
	gov, err := c.governance(ctx)
	if err != nil {
		return UpvoteRecord{}, err
	}
	out, err := c.call(ctx, gov, "getUpvoteRecord", account)
	if err != nil {
		return UpvoteRecord{}, err
	}
	return UpvoteRecord{ProposalID: toBig(out[0]).Uint64(), Weight: toBig(out[1])}, nil
}

func (c *Client) lockedGold(ctx context.Context, account common.Address) (*big.Int, error) {
	lockedGold, err := c.contract(ctx, LockedGoldID, lockedGoldABI)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, lockedGold, "getAccountTotalLockedGold", account)
	if err != nil {
		return nil, err
	}
	return toBig(out[0]), nil
}

func (c *Client) governanceSender(ctx context.Context, signer stake.Signer, from common.Address) (*base, *bind.BoundContract, error) {
	if !slices.Contains(signer.Accounts(), from) {
		return nil, nil, stake.Invalid("signer does not hold %s", from.Hex())
	}
	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "chain id")
	}
	gov, err := c.governance(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &base{client: c, addr: from, from: from, signer: signer, chainID: chainID}, gov, nil
}

// Upvote upvotes a queued proposal with the locked stake of from.
func (c *Client) Upvote(ctx context.Context, signer stake.Signer, from common.Address, proposalID uint64) (common.Hash, error) {
	b, gov, err := c.governanceSender(ctx, signer, from)
	if err != nil {
		return common.Hash{}, err
	}
	queue, err := c.Queue(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	if !slices.ContainsFunc(queue, func(p QueuedProposal) bool { return p.ID == proposalID }) {
		return common.Hash{}, stake.Invalid("proposal %d is not queued", proposalID)
	}
	record, err := c.UpvoteRecord(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}
	weight, err := c.lockedGold(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}
	lesser, greater := UpvoteNeighbours(queue, record, proposalID, weight)
	return b.newSender(gov, nil, "upvote",
		new(big.Int).SetUint64(proposalID), new(big.Int).SetUint64(lesser), new(big.Int).SetUint64(greater)).receipt(ctx)
}

// RevokeUpvote revokes the current upvote of from.
func (c *Client) RevokeUpvote(ctx context.Context, signer stake.Signer, from common.Address) (common.Hash, error) {
	b, gov, err := c.governanceSender(ctx, signer, from)
	if err != nil {
		return common.Hash{}, err
	}
	record, err := c.UpvoteRecord(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}
	if record.ProposalID == 0 {
		return common.Hash{}, stake.Invalid("%s has no upvote to revoke", from.Hex())
	}
	queue, err := c.Queue(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	lesser, greater := RevokeUpvoteNeighbours(queue, record)
	return b.newSender(gov, nil, "revokeUpvote",
		new(big.Int).SetUint64(lesser), new(big.Int).SetUint64(greater)).receipt(ctx)
}

// Vote votes on a dequeued proposal.
func (c *Client) Vote(ctx context.Context, signer stake.Signer, from common.Address, proposalID uint64, value VoteValue) (common.Hash, error) {
	b, gov, err := c.governanceSender(ctx, signer, from)
	if err != nil {
		return common.Hash{}, err
	}
	dequeue, err := c.Dequeue(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	idx := slices.Index(dequeue, proposalID)
	if idx < 0 {
		return common.Hash{}, stake.Invalid("proposal %d is not in the referendum stage", proposalID)
	}
	return b.newSender(gov, nil, "vote",
		new(big.Int).SetUint64(proposalID), big.NewInt(int64(idx)), uint8(value)).receipt(ctx)
}
