// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zviadm/celovote-app/metrics"
)

var (
	metricSteps        = metrics.LazyLoadCounterVec("stake_steps_count", []string{"action"})
	metricStepDuration = metrics.LazyLoadHistogram("stake_step_duration_ms", metrics.Bucket10m)
)

// Action names a kind of submitted step.
type Action string

const (
	ActionCreateAccount Action = "create-account"
	ActionLock          Action = "lock"
	ActionRelock        Action = "relock"
	ActionUnlock        Action = "unlock"
	ActionRevokePending Action = "revoke-pending"
	ActionRevokeActive  Action = "revoke-active"
	ActionFinalize      Action = "finalize"
	ActionWithdraw      Action = "withdraw"
	ActionTransfer      Action = "transfer"
	ActionAuthorize     Action = "authorize"
)

// Step describes a transaction about to be submitted. Seq and Count are set
// when the step is one of a batch.
type Step struct {
	Action     Action
	Amount     *big.Int
	Group      common.Address
	To         common.Address
	ProposalID uint64
	Seq        int
	Count      int
}

func (s Step) batch() string {
	if s.Count > 1 {
		return fmt.Sprintf(" (%d of %d)", s.Seq, s.Count)
	}
	return ""
}

// String is the message shown while the step awaits approval on the device.
func (s Step) String() string {
	amount := FormatCELO(s.Amount)
	switch s.Action {
	case ActionCreateAccount:
		return "Waiting for approval to create account..."
	case ActionLock:
		return fmt.Sprintf("Waiting for approval to lock %s CELO...", amount)
	case ActionRelock:
		return fmt.Sprintf("Waiting for approval%s to relock %s CELO...", s.batch(), amount)
	case ActionUnlock:
		return fmt.Sprintf("Waiting for approval to unlock %s CELO...", amount)
	case ActionRevokePending, ActionRevokeActive:
		return fmt.Sprintf("Waiting for approval%s to revoke %s votes from %s before unlocking...", s.batch(), amount, s.Group.Hex())
	case ActionFinalize:
		return fmt.Sprintf("Finalize unlock of %s CELO...", amount)
	case ActionWithdraw:
		return fmt.Sprintf("Confirm withdraw of %s CELO on your Ledger device...", amount)
	case ActionTransfer:
		return fmt.Sprintf("Confirm transfer of %s CELO ==> %s on your Ledger device...", amount, s.To.Hex())
	case ActionAuthorize:
		return fmt.Sprintf("Waiting for approval to authorize vote signer %s with Celovote...", s.To.Hex())
	}
	if s.ProposalID != 0 {
		if s.To != (common.Address{}) {
			return fmt.Sprintf("Waiting for approval%s to proxy %q on proposal %d for ReleaseGold contract %s...",
				s.batch(), string(s.Action), s.ProposalID, s.To.Hex())
		}
		return fmt.Sprintf("Waiting for approval%s to %q on proposal %d...", s.batch(), string(s.Action), s.ProposalID)
	}
	return fmt.Sprintf("Waiting for approval to %s...", string(s.Action))
}

// Progress is invoked before every submission.
type Progress func(Step)

// Recorder persists submitted steps.
type Recorder interface {
	Record(account common.Address, step Step, tx common.Hash) error
}

// Steps announces, submits and records steps one at a time. The zero value
// is usable.
type Steps struct {
	Progress Progress
	Recorder Recorder
}

// Execute runs submit for step on behalf of account.
func (s *Steps) Execute(
	ctx context.Context,
	account common.Address,
	step Step,
	submit func(ctx context.Context) (common.Hash, error),
) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	if s != nil && s.Progress != nil {
		s.Progress(step)
	}
	logger.Debug("submitting step", "account", account, "action", step.Action, "amount", step.Amount)

	start := time.Now()
	hash, err := submit(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	metricSteps().AddWithLabel(1, map[string]string{"action": string(step.Action)})
	metricStepDuration().Observe(time.Since(start).Milliseconds())
	logger.Info("step confirmed", "account", account, "action", step.Action, "tx", hash)

	if s != nil && s.Recorder != nil {
		if err := s.Recorder.Record(account, step, hash); err != nil {
			logger.Warn("failed to record step", "tx", hash, "err", err)
		}
	}
	return hash, nil
}
