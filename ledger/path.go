// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// PathPrefix is the CELO coin type derivation prefix.
const PathPrefix = "44'/52752'/0'/0/"

// Path returns the derivation path of address index idx.
func Path(idx int) string {
	return PathPrefix + strconv.Itoa(idx)
}

// PathIndex is the inverse of Path.
func PathIndex(path string) (int, error) {
	last, ok := strings.CutPrefix(path, PathPrefix)
	if !ok {
		return 0, errors.Errorf("path %q: not under %s", path, PathPrefix)
	}
	idx, err := strconv.Atoi(last)
	if err != nil {
		return 0, errors.Wrapf(err, "path %q", path)
	}
	return idx, nil
}
