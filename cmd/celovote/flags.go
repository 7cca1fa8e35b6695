// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/zviadm/celovote-app/config"
)

var (
	configFlag = cli.StringFlag{
		Name:   "config",
		Usage:  "config file path (.yaml or .toml)",
		EnvVar: "CELOVOTE_CONFIG",
	}
	networkFlag = cli.StringFlag{
		Name:   "network",
		Value:  config.Mainnet,
		Usage:  "network when no config file is given (mainnet|baklava)",
		EnvVar: "CELOVOTE_NETWORK",
	}
	rpcURLFlag = cli.StringFlag{
		Name:   "rpc-url",
		Usage:  "override the node rpc url",
		EnvVar: "CELOVOTE_RPC_URL",
	}
	relayURLFlag = cli.StringFlag{
		Name:   "relay-url",
		Usage:  "override the relay graphql url",
		EnvVar: "CELOVOTE_RELAY_URL",
	}
	journalDirFlag = cli.StringFlag{
		Name:   "journal-dir",
		Usage:  "directory of the transaction journal, empty to disable",
		EnvVar: "CELOVOTE_JOURNAL_DIR",
	}
	keysFlag = cli.StringFlag{
		Name:   "keys",
		Usage:  "comma separated hex private keys to use instead of a Ledger device",
		EnvVar: "CELOVOTE_KEYS",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-9)",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}

	indexFlag = cli.IntFlag{
		Name:  "index",
		Usage: "Ledger address index",
	}
	addressFlag = cli.StringFlag{
		Name:  "address",
		Usage: "account or release contract address, defaults to the Ledger address",
	}
	targetFlag = cli.StringFlag{
		Name:  "target",
		Usage: "target locked amount in CELO",
	}
	amountFlag = cli.StringFlag{
		Name:  "amount",
		Usage: "amount in CELO",
	}
	toFlag = cli.StringFlag{
		Name:  "to",
		Usage: "recipient address",
	}
	contractFlag = cli.StringFlag{
		Name:  "contract",
		Usage: "release contract address",
	}
	contractsFlag = cli.StringSliceFlag{
		Name:  "contract",
		Usage: "release contract address whose beneficiary is a Ledger address, may repeat",
	}
	custodialFlag = cli.BoolFlag{
		Name:  "custodial",
		Usage: "the address is a release contract",
	}
	verifyFlag = cli.BoolFlag{
		Name:  "verify",
		Usage: "display every address on the device",
	}
	yesFlag = cli.BoolFlag{
		Name:  "yes",
		Usage: "skip the confirmation prompt",
	}
	printCLIFlag = cli.BoolFlag{
		Name:  "cli",
		Usage: "print the celocli command instead of submitting",
	}
	finalizeFlag = cli.BoolFlag{
		Name:  "finalize",
		Usage: "finalize every ready pending withdrawal",
	}
	proposalFlag = cli.Uint64Flag{
		Name:  "proposal",
		Usage: "governance proposal id",
	}
	actionFlag = cli.StringFlag{
		Name:  "action",
		Usage: "governance action (upvote|revoke-upvote|vote-yes|vote-no|vote-abstain)",
	}
	accountsFlag = cli.StringFlag{
		Name:  "accounts",
		Usage: "Ledger address indices, e.g. 0-3,7",
	}
	limitFlag = cli.IntFlag{
		Name:  "limit",
		Value: 20,
		Usage: "maximum number of entries, 0 for all",
	}
)
