// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package idxrange parses compact range expressions such as "0-4,7,10...12" into
// ordered lists of wallet derivation indices.
package idxrange

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern = regexp.MustCompile(`^-?\d+$`)
	rangePattern  = regexp.MustCompile(`^(-?\d+)(-|\.\.\.?|\x{2025}|\x{2026}|\x{22EF})(-?\d+)$`)
)

// MaxRange is the largest number of indices a single range token may describe.
// Longer ranges are skipped like any other malformed token.
const MaxRange = 1 << 16

// inclusive reports whether the separator includes the right hand side of a range.
// The three dot forms stop before it.
func inclusive(sep string) bool {
	switch sep {
	case "-", "..", "\u2025":
		return true
	}
	return false
}

// Parse converts expr into the sequence of indices it describes. Tokens are comma
// separated and are either a single integer or a range "A<sep>B". Ranges step by one
// towards B and may descend. Malformed tokens, and ranges longer than MaxRange,
// are skipped.
//
//	Parse("2,0-1,4...2") == []int{2, 0, 1, 4, 3}
func Parse(expr string) []int {
	res := make([]int, 0)
	for _, tok := range strings.Split(expr, ",") {
		tok = strings.TrimSpace(tok)
		if numberPattern.MatchString(tok) {
			n, err := strconv.Atoi(tok)
			if err != nil {
				continue
			}
			res = append(res, n)
			continue
		}
		m := rangePattern.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		lhs, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		rhs, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		incr, span := 1, uint64(rhs)-uint64(lhs)
		if lhs > rhs {
			incr, span = -1, uint64(lhs)-uint64(rhs)
		}
		if inclusive(m[2]) {
			if span >= MaxRange {
				continue
			}
			span++
		}
		if span > MaxRange {
			continue
		}
		for k := range int(span) {
			res = append(res, lhs+k*incr)
		}
	}
	return res
}

// Format renders idxs as an expression that Parse maps back to idxs. Runs of
// consecutive indices, ascending or descending, are collapsed into "A-B".
func Format(idxs []int) string {
	var b strings.Builder
	for i := 0; i < len(idxs); {
		j := i + 1
		step := 0
		if j < len(idxs) {
			if d := idxs[j] - idxs[i]; d == 1 || d == -1 {
				step = d
				for j+1 < len(idxs) && idxs[j+1]-idxs[j] == step {
					j++
				}
				j++
			}
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(idxs[i]))
		if step != 0 {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(idxs[j-1]))
		}
		i = j
	}
	return b.String()
}
