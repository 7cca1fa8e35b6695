// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zviadm/celovote-app/metrics"
)

var metricVerifications = metrics.LazyLoadGauge("ledger_verifications_inflight")

// Verifier asks the device to confirm addresses, one at a time. The guard
// covers callers sharing one Verifier; the celovote command verifies a single
// address per run and builds its own.
type Verifier struct {
	dialer Dialer

	mu       sync.Mutex
	busy     bool
	inflight int
}

func NewVerifier(dialer Dialer) *Verifier {
	return &Verifier{dialer: dialer}
}

// Verify displays the address of idx on the device. A request made while
// another verification is outstanding fails with ConflictError naming the
// in-flight index.
func (v *Verifier) Verify(ctx context.Context, idx int) (common.Address, error) {
	v.mu.Lock()
	if v.busy {
		inflight := v.inflight
		v.mu.Unlock()
		return common.Address{}, &ConflictError{Op: "address verification", Index: inflight}
	}
	v.busy = true
	v.inflight = idx
	v.mu.Unlock()
	metricVerifications().Add(1)

	defer func() {
		metricVerifications().Add(-1)
		v.mu.Lock()
		v.busy = false
		v.mu.Unlock()
	}()

	addrs, err := Addresses(ctx, v.dialer, []int{idx}, true)
	if err != nil {
		return common.Address{}, err
	}
	return addrs[0].Address, nil
}

// InFlight returns the index being verified, if any.
func (v *Verifier) InFlight() (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inflight, v.busy
}
