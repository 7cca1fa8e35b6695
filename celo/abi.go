// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package celo

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// RegistryAddress is the fixed address of the core contracts registry.
var RegistryAddress = common.HexToAddress("0x000000000000000000000000000000000000ce10")

// registry identifiers
const (
	AccountsID   = "Accounts"
	LockedGoldID = "LockedGold"
	ElectionID   = "Election"
	GovernanceID = "Governance"
)

const registryJSON = `[
{"type":"function","name":"getAddressForString","stateMutability":"view","inputs":[{"name":"identifier","type":"string"}],"outputs":[{"name":"","type":"address"}]}
]`

const accountsJSON = `[
{"type":"function","name":"isAccount","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"createAccount","stateMutability":"nonpayable","inputs":[],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"authorizeVoteSigner","stateMutability":"nonpayable","inputs":[{"name":"signer","type":"address"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[]}
]`

const lockedGoldJSON = `[
{"type":"function","name":"getAccountTotalLockedGold","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getPendingWithdrawals","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256[]"},{"name":"","type":"uint256[]"}]},
{"type":"function","name":"lock","stateMutability":"payable","inputs":[],"outputs":[]},
{"type":"function","name":"unlock","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"}],"outputs":[]},
{"type":"function","name":"relock","stateMutability":"nonpayable","inputs":[{"name":"index","type":"uint256"},{"name":"value","type":"uint256"}],"outputs":[]},
{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"index","type":"uint256"}],"outputs":[]}
]`

const electionJSON = `[
{"type":"function","name":"getGroupsVotedForByAccount","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address[]"}]},
{"type":"function","name":"getPendingVotesForGroupByAccount","stateMutability":"view","inputs":[{"name":"group","type":"address"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getActiveVotesForGroupByAccount","stateMutability":"view","inputs":[{"name":"group","type":"address"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getTotalVotesForEligibleValidatorGroups","stateMutability":"view","inputs":[],"outputs":[{"name":"groups","type":"address[]"},{"name":"values","type":"uint256[]"}]},
{"type":"function","name":"revokePending","stateMutability":"nonpayable","inputs":[{"name":"group","type":"address"},{"name":"value","type":"uint256"},{"name":"lesser","type":"address"},{"name":"greater","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"revokeActive","stateMutability":"nonpayable","inputs":[{"name":"group","type":"address"},{"name":"value","type":"uint256"},{"name":"lesser","type":"address"},{"name":"greater","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const releaseGoldJSON = `[
{"type":"function","name":"beneficiary","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"getCurrentReleasedTotalAmount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"totalWithdrawn","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"maxDistribution","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"createAccount","stateMutability":"nonpayable","inputs":[],"outputs":[]},
{"type":"function","name":"lockGold","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"}],"outputs":[]},
{"type":"function","name":"unlockGold","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"}],"outputs":[]},
{"type":"function","name":"relockGold","stateMutability":"nonpayable","inputs":[{"name":"index","type":"uint256"},{"name":"value","type":"uint256"}],"outputs":[]},
{"type":"function","name":"withdrawLockedGold","stateMutability":"nonpayable","inputs":[{"name":"index","type":"uint256"}],"outputs":[]},
{"type":"function","name":"revokePending","stateMutability":"nonpayable","inputs":[{"name":"group","type":"address"},{"name":"value","type":"uint256"},{"name":"lesser","type":"address"},{"name":"greater","type":"address"},{"name":"index","type":"uint256"}],"outputs":[]},
{"type":"function","name":"revokeActive","stateMutability":"nonpayable","inputs":[{"name":"group","type":"address"},{"name":"value","type":"uint256"},{"name":"lesser","type":"address"},{"name":"greater","type":"address"},{"name":"index","type":"uint256"}],"outputs":[]},
{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"authorizeVoteSigner","stateMutability":"nonpayable","inputs":[{"name":"signer","type":"address"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[]}
]`

const governanceJSON = `[
{"type":"function","name":"upvote","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"},{"name":"lesser","type":"uint256"},{"name":"greater","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"revokeUpvote","stateMutability":"nonpayable","inputs":[{"name":"lesser","type":"uint256"},{"name":"greater","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"vote","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"},{"name":"index","type":"uint256"},{"name":"value","type":"uint8"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"getQueue","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256[]"},{"name":"","type":"uint256[]"}]},
{"type":"function","name":"getDequeue","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256[]"}]},
{"type":"function","name":"getUpvoteRecord","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"},{"name":"","type":"uint256"}]}
]`

var (
	registryABI    = mustParseABI(registryJSON)
	accountsABI    = mustParseABI(accountsJSON)
	lockedGoldABI  = mustParseABI(lockedGoldJSON)
	electionABI    = mustParseABI(electionJSON)
	releaseGoldABI = mustParseABI(releaseGoldJSON)
	governanceABI  = mustParseABI(governanceJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
