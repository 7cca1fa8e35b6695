// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"net/http"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zviadm/celovote-app/metrics"
)

func TestMetricsServer(t *testing.T) {
	metrics.InitializePrometheusMetrics()
	metrics.Counter("test_scrapes_count").Add(2)

	url, closeFunc, err := startMetricsServer("127.0.0.1:0")
	require.NoError(t, err)
	defer closeFunc()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	require.NoError(t, err)
	require.Contains(t, families, "celovote_test_scrapes_count")
	assert.Equal(t, float64(2), families["celovote_test_scrapes_count"].GetMetric()[0].GetCounter().GetValue())
}
