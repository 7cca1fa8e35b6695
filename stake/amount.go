// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

var weiPerCELO = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// CELO converts a whole amount of CELO to wei.
func CELO(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), weiPerCELO)
}

// ParseCELO parses a decimal CELO amount such as "12.5" into wei.
func ParseCELO(s string) (*big.Int, error) {
	trimmed := strings.TrimSpace(s)
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	rat.Mul(rat, new(big.Rat).SetInt(weiPerCELO))
	if !rat.IsInt() {
		return nil, errors.Errorf("amount %q has more than 18 decimals", s)
	}
	return new(big.Int).Set(rat.Num()), nil
}

// FormatCELO renders wei as CELO with two decimals.
func FormatCELO(wei *big.Int) string {
	if wei == nil {
		return "0.00"
	}
	return new(big.Rat).SetFrac(wei, weiPerCELO).FloatString(2)
}
