// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package config holds the network endpoints and staking limits of the tool.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zviadm/celovote-app/stake"
)

const (
	Mainnet = "mainnet"
	Baklava = "baklava"
)

// Config captures the runtime settings. Amounts are in CELO.
type Config struct {
	Network              string        `yaml:"network" toml:"network"`
	RPCURL               string        `yaml:"rpc_url" toml:"rpc_url"`
	RelayURL             string        `yaml:"relay_url" toml:"relay_url"`
	ExplorerURL          string        `yaml:"explorer_url" toml:"explorer_url"`
	LockReserve          string        `yaml:"lock_reserve" toml:"lock_reserve"`
	LockReserveCustodial string        `yaml:"lock_reserve_custodial" toml:"lock_reserve_custodial"`
	MinLocked            string        `yaml:"min_locked" toml:"min_locked"`
	JournalDir           string        `yaml:"journal_dir" toml:"journal_dir"`
	ConfirmTimeout       time.Duration `yaml:"confirm_timeout" toml:"confirm_timeout"`
}

// Default returns the settings of network.
func Default(network string) (Config, error) {
	cfg := Config{
		Network:              network,
		LockReserve:          "3",
		LockReserveCustodial: "3",
		MinLocked:            "100",
		ConfirmTimeout:       2 * time.Minute,
	}
	switch network {
	case Mainnet:
		cfg.RPCURL = "https://celorpc.celovote.com"
		cfg.RelayURL = "https://gql.celovote.com"
		cfg.ExplorerURL = "https://explorer.celo.org"
	case Baklava:
		cfg.RPCURL = "https://baklava-forno.celo-testnet.org"
		cfg.RelayURL = "http://localhost:4000"
		cfg.ExplorerURL = "https://baklava-blockscout.celo-testnet.org"
		cfg.LockReserve = "0.1"
		cfg.MinLocked = "0.1"
	default:
		return Config{}, errors.Errorf("unknown network %q", network)
	}
	return cfg, nil
}

// Load reads path, YAML or TOML by extension, and fills unset fields from the
// defaults of its network.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &cfg)
	case ".toml":
		_, err = toml.Decode(string(content), &cfg)
	default:
		return Config{}, errors.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	if cfg.Network == "" {
		cfg.Network = Mainnet
	}
	def, err := Default(cfg.Network)
	if err != nil {
		return Config{}, err
	}
	cfg.merge(def)
	if _, err := cfg.Limits(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) merge(def Config) {
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&c.RPCURL, def.RPCURL)
	fill(&c.RelayURL, def.RelayURL)
	fill(&c.ExplorerURL, def.ExplorerURL)
	fill(&c.LockReserve, def.LockReserve)
	fill(&c.LockReserveCustodial, def.LockReserveCustodial)
	fill(&c.MinLocked, def.MinLocked)
	fill(&c.JournalDir, def.JournalDir)
	if c.ConfirmTimeout == 0 {
		c.ConfirmTimeout = def.ConfirmTimeout
	}
}

// Limits converts the configured amounts to wei.
func (c Config) Limits() (stake.Limits, error) {
	var (
		l   stake.Limits
		err error
	)
	if l.Reserve, err = stake.ParseCELO(c.LockReserve); err != nil {
		return stake.Limits{}, errors.Wrap(err, "lock_reserve")
	}
	if l.CustodialReserve, err = stake.ParseCELO(c.LockReserveCustodial); err != nil {
		return stake.Limits{}, errors.Wrap(err, "lock_reserve_custodial")
	}
	if l.MinLocked, err = stake.ParseCELO(c.MinLocked); err != nil {
		return stake.Limits{}, errors.Wrap(err, "min_locked")
	}
	return l, nil
}
