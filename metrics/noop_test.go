// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	m := defaultNoopMetrics()

	require.Nil(t, m.GetOrCreateHandler())
	require.NotPanics(t, func() {
		m.GetOrCreateCountMeter("count1").Add(1)
		m.GetOrCreateCountVecMeter("countVec1", []string{"action"}).
			AddWithLabel(1, map[string]string{"thisIsNonsense": "butDoesntBreak"})
		m.GetOrCreateHistogramMeter("hist1", nil).Observe(10)
		g := m.GetOrCreateGaugeMeter("gauge1")
		g.Set(4)
		g.Add(-1)
	})
}
