// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/zviadm/celovote-app/config"
	"github.com/zviadm/celovote-app/ledger"
	"github.com/zviadm/celovote-app/metrics"
	"github.com/zviadm/celovote-app/stake"
)

func initLogger(ctx *cli.Context) {
	useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	lvl := log.FromLegacyLevel(ctx.GlobalInt(verbosityFlag.Name))
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)))
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if path := ctx.GlobalString(configFlag.Name); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Default(ctx.GlobalString(networkFlag.Name))
	}
	if err != nil {
		return config.Config{}, err
	}
	if ctx.GlobalIsSet(rpcURLFlag.Name) {
		cfg.RPCURL = ctx.GlobalString(rpcURLFlag.Name)
	}
	if ctx.GlobalIsSet(relayURLFlag.Name) {
		cfg.RelayURL = ctx.GlobalString(relayURLFlag.Name)
	}
	if ctx.GlobalIsSet(journalDirFlag.Name) {
		cfg.JournalDir = ctx.GlobalString(journalDirFlag.Name)
	}
	return cfg, nil
}

func newDialer(ctx *cli.Context) (ledger.Dialer, error) {
	keys := ctx.GlobalString(keysFlag.Name)
	if keys == "" {
		return ledger.USBDialer{}, nil
	}
	return ledger.NewKeyDialer(strings.Split(keys, ",")...)
}

func handleExitSignal() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseAddress(flag, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Errorf("-%s: invalid address %q", flag, s)
	}
	return common.HexToAddress(s), nil
}

// optionalAddress parses flag, falling back to def when it is not set.
func optionalAddress(ctx *cli.Context, flag string, def common.Address) (common.Address, error) {
	s := ctx.String(flag)
	if s == "" {
		return def, nil
	}
	return parseAddress(flag, s)
}

func parseAmount(flag, s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.Errorf("-%s is required", flag)
	}
	amount, err := stake.ParseCELO(s)
	if err != nil {
		return nil, errors.Wrap(err, "-"+flag)
	}
	return amount, nil
}

func printStep(step stake.Step) {
	fmt.Println(step.String())
}

// confirm asks question on the terminal and reports whether it was accepted.
func confirm(question string) (bool, error) {
	t, err := tty.Open()
	if err != nil {
		return false, errors.Wrap(err, "open tty")
	}
	defer t.Close()

	fmt.Fprintf(t.Output(), "%s [y/N] ", question)
	answer, err := t.ReadString()
	if err != nil {
		return false, errors.Wrap(err, "read answer")
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func startMetricsServer(addr string) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen metrics addr [%v]", addr)
	}

	router := mux.NewRouter()
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	handler := handlers.CompressHandler(router)

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		srv.Serve(listener)
	}()
	return "http://" + listener.Addr().String() + "/metrics", func() {
		srv.Close()
		wg.Wait()
	}, nil
}
