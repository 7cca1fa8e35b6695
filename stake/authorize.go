// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ProofSource issues vote signer proofs and triggers voting once authorized.
type ProofSource interface {
	SignPOP(ctx context.Context, account common.Address) (*Proof, error)
	AutoVote(ctx context.Context, accounts []common.Address) error
}

// Serialize renders the proof signature as 0x<v><r><s>.
func (p *Proof) Serialize() string {
	return fmt.Sprintf("0x%x%x%x", p.V, p.R.Bytes(), p.S.Bytes())
}

// Authorizer hands the voting rights of accounts to the relay's vote signer.
type Authorizer struct {
	backend Backend
	proofs  ProofSource
	limits  Limits
	steps   *Steps

	autoVoteTimeout time.Duration
}

func NewAuthorizer(backend Backend, proofs ProofSource, limits Limits, steps *Steps) *Authorizer {
	return &Authorizer{
		backend:         backend,
		proofs:          proofs,
		limits:          limits,
		steps:           steps,
		autoVoteTimeout: 10 * time.Second,
	}
}

func (a *Authorizer) check(ctx context.Context, addr common.Address) error {
	if addr == (common.Address{}) {
		return Invalid("address is required")
	}
	acc, err := a.backend.Account(ctx, addr)
	if err != nil {
		return errors.Wrap(err, "read account")
	}
	if !acc.IsAccount || acc.Locked.Cmp(a.limits.MinLocked) < 0 {
		return Invalid("at least %s CELO must be locked before authorizing, %s has %s CELO",
			FormatCELO(a.limits.MinLocked), addr.Hex(), FormatCELO(acc.Locked))
	}
	return nil
}

// Authorize submits the vote signer authorization for addr and asks the relay
// to start voting. A failing vote request is logged and does not fail the
// authorization.
func (a *Authorizer) Authorize(ctx context.Context, signer Signer, addr common.Address, routing Routing) (*Proof, error) {
	if err := a.check(ctx, addr); err != nil {
		return nil, err
	}
	router, err := a.backend.Route(ctx, addr, routing, signer)
	if err != nil {
		return nil, err
	}
	proof, err := a.proofs.SignPOP(ctx, router.Address())
	if err != nil {
		return nil, errors.Wrap(err, "sign proof of possession")
	}

	step := Step{Action: ActionAuthorize, To: proof.Signer}
	if _, err := a.steps.Execute(ctx, router.Address(), step, func(ctx context.Context) (common.Hash, error) {
		return router.AuthorizeVoteSigner(ctx, proof)
	}); err != nil {
		return nil, errors.Wrap(err, "authorize vote signer")
	}

	voteCtx, cancel := context.WithTimeout(ctx, a.autoVoteTimeout)
	defer cancel()
	if err := a.proofs.AutoVote(voteCtx, []common.Address{router.Address()}); err != nil {
		logger.Warn("auto vote request failed", "account", router.Address(), "err", err)
	}
	return proof, nil
}

// CLICommand returns the celocli command that performs the authorization of
// addr, held at ledger index idx, offline.
func (a *Authorizer) CLICommand(ctx context.Context, idx int, addr common.Address, custodial bool) (string, error) {
	if err := a.check(ctx, addr); err != nil {
		return "", err
	}
	proof, err := a.proofs.SignPOP(ctx, addr)
	if err != nil {
		return "", errors.Wrap(err, "sign proof of possession")
	}
	return CLICommand(idx, addr, custodial, proof), nil
}

// CLICommand renders the celocli authorization command for proof.
func CLICommand(idx int, addr common.Address, custodial bool, proof *Proof) string {
	cmd, target := "account:authorize", "--from"
	if custodial {
		cmd, target = "releasegold:authorize", "--contract"
	}
	lines := []string{
		"celocli " + cmd,
		fmt.Sprintf("  --useLedger --ledgerCustomAddresses \"[%d]\"", idx),
		"  --role vote",
		fmt.Sprintf("  %s %s", target, addr.Hex()),
		"  --signer " + proof.Signer.Hex(),
		"  --signature " + proof.Serialize(),
	}
	return strings.Join(lines, " \\\n")
}
