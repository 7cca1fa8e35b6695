// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"flag"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/zviadm/celovote-app/ledger"
	"github.com/zviadm/celovote-app/stake"
)

func TestDescribe(t *testing.T) {
	conn := errors.Wrap(&ledger.ConnectionError{Err: errors.New("no device")}, "open session")
	assert.Contains(t, describe(conn), "Celo app is open")

	assert.Contains(t, describe(&ledger.RejectionError{Err: errors.New("denied")}), "declined on the device")
	assert.Equal(t, "invalid request: target too high", describe(stake.Invalid("target too high")))
	assert.Contains(t, describe(stake.Inconsistent("votes exceed locked")), "run the command again")
	assert.Equal(t, "boom", describe(errors.New("boom")))
}

func TestParseHelpers(t *testing.T) {
	addr, err := parseAddress("to", "0x0000000000000000000000000000000000000010")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x10"), addr)

	_, err = parseAddress("to", "0x10zz")
	assert.ErrorContains(t, err, "-to")

	amount, err := parseAmount("amount", "1.5")
	require.NoError(t, err)
	assert.Equal(t, "1.50", stake.FormatCELO(amount))

	_, err = parseAmount("amount", "")
	assert.ErrorContains(t, err, "required")
}

func TestLoadConfigOverrides(t *testing.T) {
	set := flag.NewFlagSet("celovote", flag.ContinueOnError)
	for _, f := range []cli.Flag{configFlag, networkFlag, rpcURLFlag, relayURLFlag, journalDirFlag} {
		f.Apply(set)
	}
	require.NoError(t, set.Parse([]string{"-network", "baklava", "-rpc-url", "http://node:8545"}))
	ctx := cli.NewContext(nil, set, nil)

	cfg, err := loadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "baklava", cfg.Network)
	assert.Equal(t, "http://node:8545", cfg.RPCURL)
	assert.Equal(t, "http://localhost:4000", cfg.RelayURL)
}
