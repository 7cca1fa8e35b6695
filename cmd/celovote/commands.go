// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/zviadm/celovote-app/governance"
	"github.com/zviadm/celovote-app/idxrange"
	"github.com/zviadm/celovote-app/journal"
	"github.com/zviadm/celovote-app/ledger"
	"github.com/zviadm/celovote-app/stake"
)

// describe renders err for the terminal, with a hint for the known kinds.
func describe(err error) string {
	var (
		connErr     *ledger.ConnectionError
		rejectErr   *ledger.RejectionError
		conflictErr *ledger.ConflictError
	)
	switch {
	case errors.As(err, &connErr):
		return fmt.Sprintf("%v\nmake sure the Ledger device is connected, unlocked and the Celo app is open", err)
	case errors.As(err, &rejectErr):
		return fmt.Sprintf("%v\nthe request was declined on the device", err)
	case errors.As(err, &conflictErr):
		return fmt.Sprintf("%v\nwait for the pending device request to finish", err)
	case stake.IsValidation(err):
		return fmt.Sprintf("invalid request: %v", err)
	case stake.IsChainState(err):
		return fmt.Sprintf("%v\nchain state changed or was not as expected, run the command again", err)
	}
	return err.Error()
}

// withSession runs fn with a signer over the Ledger addresses of idxs.
func withSession(ctx *cli.Context, idxs []int, fn func(ctx context.Context, e *env, signer *ledger.Signer) error) error {
	exit, stop := handleExitSignal()
	defer stop()

	e, cleanup, err := newEnv(ctx, exit)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("Connecting to Ledger device...")
	return ledger.Do(exit, e.dialer, idxs, func(ctx context.Context, signer *ledger.Signer) error {
		return fn(ctx, e, signer)
	})
}

func addressesAction(ctx *cli.Context) error {
	idxs := idxrange.Parse(ctx.Args().First())
	if len(idxs) == 0 {
		return errors.New("usage: celovote addresses <range>")
	}
	dialer, err := newDialer(ctx)
	if err != nil {
		return err
	}
	exit, stop := handleExitSignal()
	defer stop()

	bar := pb.New(len(idxs)).SetMaxWidth(90)
	bar.Output = os.Stderr
	bar.Start()
	addrs, err := ledger.AddressesWithProgress(exit, dialer, idxs, ctx.Bool(verifyFlag.Name), func(ledger.WalletAddress) {
		bar.Increment()
	})
	bar.Finish()
	if err != nil {
		return err
	}
	for i, a := range addrs {
		fmt.Printf("%d\t%s\t%s\n", idxs[i], a.Path, a.Address.Hex())
	}
	return nil
}

func verifyAction(ctx *cli.Context) error {
	idx, err := strconv.Atoi(ctx.Args().First())
	if err != nil || idx < 0 {
		return errors.New("usage: celovote verify <index>")
	}
	dialer, err := newDialer(ctx)
	if err != nil {
		return err
	}
	exit, stop := handleExitSignal()
	defer stop()

	fmt.Printf("Confirm address %s on your Ledger device...\n", ledger.Path(idx))
	addr, err := ledger.NewVerifier(dialer).Verify(exit, idx)
	if err != nil {
		return err
	}
	fmt.Printf("Address %s verified\n", addr.Hex())
	return nil
}

func routing(ctx *cli.Context) stake.Routing {
	if ctx.Bool(custodialFlag.Name) {
		return stake.RouteCustodial
	}
	return stake.RouteAuto
}

func lockAction(ctx *cli.Context) error {
	target, err := parseAmount(targetFlag.Name, ctx.String(targetFlag.Name))
	if err != nil {
		return err
	}
	return withSession(ctx, []int{ctx.Int(indexFlag.Name)}, func(exit context.Context, e *env, signer *ledger.Signer) error {
		addr, err := optionalAddress(ctx, addressFlag.Name, signer.Accounts()[0])
		if err != nil {
			return err
		}
		reconciler := stake.NewReconciler(e.client, e.limits, e.steps)
		req := stake.Request{Address: addr, Routing: routing(ctx), Target: target}
		if err := reconciler.Reconcile(exit, signer, req); err != nil {
			return err
		}
		acc, err := e.client.Account(exit, addr)
		if err != nil {
			return err
		}
		fmt.Printf("Locked %s CELO in %s\n", stake.FormatCELO(acc.Locked), addr.Hex())
		return nil
	})
}

func withdrawAction(ctx *cli.Context) error {
	contract, err := parseAddress(contractFlag.Name, ctx.String(contractFlag.Name))
	if err != nil {
		return err
	}
	amount, err := parseAmount(amountFlag.Name, ctx.String(amountFlag.Name))
	if err != nil {
		return err
	}
	return withSession(ctx, []int{ctx.Int(indexFlag.Name)}, func(exit context.Context, e *env, signer *ledger.Signer) error {
		if err := stake.NewMover(e.client, e.steps).Withdraw(exit, signer, contract, amount); err != nil {
			return err
		}
		fmt.Printf("Withdrew %s CELO from %s\n", stake.FormatCELO(amount), contract.Hex())
		return nil
	})
}

func transferAction(ctx *cli.Context) error {
	to, err := parseAddress(toFlag.Name, ctx.String(toFlag.Name))
	if err != nil {
		return err
	}
	amount, err := parseAmount(amountFlag.Name, ctx.String(amountFlag.Name))
	if err != nil {
		return err
	}
	return withSession(ctx, []int{ctx.Int(indexFlag.Name)}, func(exit context.Context, e *env, signer *ledger.Signer) error {
		from := signer.Accounts()[0]
		if !ctx.Bool(yesFlag.Name) {
			ok, err := confirm(fmt.Sprintf("Transfer %s CELO from %s to %s?", stake.FormatCELO(amount), from.Hex(), to.Hex()))
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("transfer cancelled")
			}
		}
		if err := stake.NewMover(e.client, e.steps).Transfer(exit, signer, from, to, amount); err != nil {
			return err
		}
		fmt.Printf("Transferred %s CELO to %s\n", stake.FormatCELO(amount), to.Hex())
		return nil
	})
}

func authorizeAction(ctx *cli.Context) error {
	idx := ctx.Int(indexFlag.Name)
	return withSession(ctx, []int{idx}, func(exit context.Context, e *env, signer *ledger.Signer) error {
		addr, err := optionalAddress(ctx, addressFlag.Name, signer.Accounts()[0])
		if err != nil {
			return err
		}
		authorizer := stake.NewAuthorizer(e.client, e.relay, e.limits, e.steps)
		if ctx.Bool(printCLIFlag.Name) {
			cmd, err := authorizer.CLICommand(exit, idx, addr, ctx.Bool(custodialFlag.Name))
			if err != nil {
				return err
			}
			fmt.Println(cmd)
			return nil
		}
		proof, err := authorizer.Authorize(exit, signer, addr, routing(ctx))
		if err != nil {
			return err
		}
		fmt.Printf("Authorized vote signer %s for %s\n", proof.Signer.Hex(), addr.Hex())
		return nil
	})
}

func governanceAction(ctx *cli.Context) error {
	action, err := governance.ParseAction(ctx.String(actionFlag.Name))
	if err != nil {
		return err
	}
	proposal := ctx.Uint64(proposalFlag.Name)
	if proposal == 0 {
		return errors.New("-proposal is required")
	}
	idxs := idxrange.Parse(ctx.String(accountsFlag.Name))
	if len(idxs) == 0 {
		return errors.New("-accounts is required")
	}
	var contracts []common.Address
	for _, s := range ctx.StringSlice(contractsFlag.Name) {
		c, err := parseAddress(contractsFlag.Name, s)
		if err != nil {
			return err
		}
		contracts = append(contracts, c)
	}

	return withSession(ctx, idxs, func(exit context.Context, e *env, signer *ledger.Signer) error {
		owned := signer.Accounts()
		accounts := make([]governance.Account, 0, len(owned)+len(contracts))
		for _, addr := range owned {
			accounts = append(accounts, governance.Account{Address: addr})
		}
		for _, c := range contracts {
			beneficiary, err := e.client.Beneficiary(exit, c)
			if err != nil {
				return err
			}
			if !slices.Contains(owned, beneficiary) {
				return stake.Invalid("beneficiary %s of %s is not among the selected Ledger addresses", beneficiary.Hex(), c.Hex())
			}
			accounts = append(accounts, governance.Account{Address: beneficiary, Contract: c})
		}

		proxy := governance.NewProxy(e.client, e.relay, e.steps)
		if err := proxy.PerformAll(exit, signer, accounts, proposal, action); err != nil {
			return err
		}
		fmt.Printf("Performed %q on proposal %d for %d accounts\n", action, proposal, len(accounts))
		return nil
	})
}

func pendingAction(ctx *cli.Context) error {
	if ctx.Bool(finalizeFlag.Name) {
		return withSession(ctx, []int{ctx.Int(indexFlag.Name)}, func(exit context.Context, e *env, signer *ledger.Signer) error {
			addr, err := optionalAddress(ctx, addressFlag.Name, signer.Accounts()[0])
			if err != nil {
				return err
			}
			router, err := e.client.Route(exit, addr, stake.RouteAuto, signer)
			if err != nil {
				return err
			}
			chainNow, err := e.client.Now(exit)
			if err != nil {
				return err
			}
			n, err := stake.NewTracker(e.client, e.steps).FinalizeAll(exit, router, chainNow)
			if err != nil {
				return err
			}
			fmt.Printf("Finalized %d pending withdrawals of %s\n", n, addr.Hex())
			return nil
		})
	}

	addr, err := parseAddress(addressFlag.Name, ctx.String(addressFlag.Name))
	if err != nil {
		return err
	}
	exit, stop := handleExitSignal()
	defer stop()
	e, cleanup, err := newEnv(ctx, exit)
	if err != nil {
		return err
	}
	defer cleanup()

	chainNow, err := e.client.Now(exit)
	if err != nil {
		return err
	}
	summary, err := stake.NewTracker(e.client, e.steps).Check(exit, addr, chainNow)
	if err != nil {
		return err
	}
	fmt.Printf("Ready to withdraw: %s CELO\n", stake.FormatCELO(summary.Ready))
	fmt.Printf("Still unlocking:   %s CELO\n", stake.FormatCELO(summary.Pending))
	return nil
}

func historyAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.JournalDir == "" {
		return errors.New("no journal configured, set journal_dir or -journal-dir")
	}
	account, err := optionalAddress(ctx, addressFlag.Name, common.Address{})
	if err != nil {
		return err
	}
	j, err := journal.Open(cfg.JournalDir)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List(account, ctx.Int(limitFlag.Name))
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Printf("%s  %s  %-14s %12s  %s\n",
			time.Unix(int64(entry.Time), 0).Format(time.DateTime),
			entry.Account.Hex(),
			entry.Action,
			stake.FormatCELO(entry.Amount),
			entry.Tx.Hex(),
		)
	}
	return nil
}
