// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// celovote locks, unlocks, moves and votes with CELO held on a Ledger device.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/zviadm/celovote-app/celo"
	"github.com/zviadm/celovote-app/config"
	"github.com/zviadm/celovote-app/journal"
	"github.com/zviadm/celovote-app/ledger"
	"github.com/zviadm/celovote-app/metrics"
	"github.com/zviadm/celovote-app/relay"
	"github.com/zviadm/celovote-app/stake"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.New("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	var stopMetrics func()

	app := cli.App{
		Version: fullVersion(),
		Name:    "celovote",
		Usage:   "Stake CELO held on a Ledger device with Celovote",
		Flags: []cli.Flag{
			configFlag,
			networkFlag,
			rpcURLFlag,
			relayURLFlag,
			journalDirFlag,
			keysFlag,
			verbosityFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Before: func(ctx *cli.Context) error {
			initLogger(ctx)
			if !ctx.GlobalBool(enableMetricsFlag.Name) {
				return nil
			}
			metrics.InitializePrometheusMetrics()
			url, closeFunc, err := startMetricsServer(ctx.GlobalString(metricsAddrFlag.Name))
			if err != nil {
				return fmt.Errorf("unable to start metrics server - %w", err)
			}
			logger.Info("metrics server started", "url", url)
			stopMetrics = closeFunc
			return nil
		},
		After: func(*cli.Context) error {
			if stopMetrics != nil {
				stopMetrics()
			}
			return nil
		},
		Commands: []cli.Command{
			{
				Name:      "addresses",
				Usage:     "list Ledger addresses",
				ArgsUsage: "<range>",
				Flags:     []cli.Flag{verifyFlag},
				Action:    addressesAction,
			},
			{
				Name:      "verify",
				Usage:     "display a Ledger address on the device for confirmation",
				ArgsUsage: "<index>",
				Action:    verifyAction,
			},
			{
				Name:   "lock",
				Usage:  "lock or unlock CELO until the locked amount reaches the target",
				Flags:  []cli.Flag{indexFlag, addressFlag, targetFlag, custodialFlag},
				Action: lockAction,
			},
			{
				Name:   "withdraw",
				Usage:  "withdraw CELO from a release contract to its beneficiary",
				Flags:  []cli.Flag{indexFlag, contractFlag, amountFlag},
				Action: withdrawAction,
			},
			{
				Name:   "transfer",
				Usage:  "transfer CELO from a Ledger address",
				Flags:  []cli.Flag{indexFlag, toFlag, amountFlag, yesFlag},
				Action: transferAction,
			},
			{
				Name:   "authorize",
				Usage:  "authorize the Celovote vote signer",
				Flags:  []cli.Flag{indexFlag, addressFlag, custodialFlag, printCLIFlag},
				Action: authorizeAction,
			},
			{
				Name:   "governance",
				Usage:  "upvote or vote on a governance proposal",
				Flags:  []cli.Flag{proposalFlag, actionFlag, accountsFlag, contractsFlag},
				Action: governanceAction,
			},
			{
				Name:   "pending",
				Usage:  "show, and optionally finalize, pending withdrawals",
				Flags:  []cli.Flag{indexFlag, addressFlag, finalizeFlag},
				Action: pendingAction,
			},
			{
				Name:   "history",
				Usage:  "list journaled transactions",
				Flags:  []cli.Flag{addressFlag, limitFlag},
				Action: historyAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

// env is what every command works with.
type env struct {
	cfg     config.Config
	limits  stake.Limits
	dialer  ledger.Dialer
	client  *celo.Client
	relay   *relay.Client
	journal *journal.Journal
	steps   *stake.Steps
}

func newEnv(ctx *cli.Context, exit context.Context) (*env, func(), error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	limits, err := cfg.Limits()
	if err != nil {
		return nil, nil, err
	}
	dialer, err := newDialer(ctx)
	if err != nil {
		return nil, nil, err
	}
	client, err := celo.Dial(exit, cfg.RPCURL, cfg.ConfirmTimeout)
	if err != nil {
		return nil, nil, err
	}

	e := &env{
		cfg:    cfg,
		limits: limits,
		dialer: dialer,
		client: client,
		relay:  relay.New(cfg.RelayURL),
		steps:  &stake.Steps{Progress: printStep},
	}
	cleanup := func() {}
	if cfg.JournalDir != "" {
		if e.journal, err = journal.Open(cfg.JournalDir); err != nil {
			return nil, nil, err
		}
		e.steps.Recorder = e.journal
		cleanup = func() {
			if err := e.journal.Close(); err != nil {
				logger.Warn("failed to close journal", "err", err)
			}
		}
	}
	logger.Debug("environment ready", "network", cfg.Network, "rpc", cfg.RPCURL, "relay", cfg.RelayURL)
	return e, cleanup, nil
}
