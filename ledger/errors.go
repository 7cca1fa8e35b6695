// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrCancelRefused is returned when cancelling a session that already reached the device.
	ErrCancelRefused = errors.New("session connected, cancellation refused")
	// ErrUnknownAccount is returned when signing for an address not derived in the session.
	ErrUnknownAccount = errors.New("account not available in signer session")

	errClosed = errors.New("session closed")
)

// ConnectionError means the signing device could not be reached: it is absent,
// locked, running the wrong application or the transport is unsupported.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "ledger connection: " + e.Err.Error() }

func (e *ConnectionError) Unwrap() error { return e.Err }

// RejectionError means the user declined the request on the device.
type RejectionError struct {
	Err error
}

func (e *RejectionError) Error() string { return "rejected on device: " + e.Err.Error() }

func (e *RejectionError) Unwrap() error { return e.Err }

// ConflictError is returned when an operation is requested while another one is
// still in flight. Index names the in-flight derivation index, -1 if not applicable.
type ConflictError struct {
	Op    string
	Index int
}

func (e *ConflictError) Error() string {
	if e.Index < 0 {
		return e.Op + " in progress"
	}
	return fmt.Sprintf("%s in progress for index: %d", e.Op, e.Index)
}

// device status words and messages reported when the user declines a prompt
var rejectionMarkers = []string{"denied", "rejected", "0x6985", "condition of use not satisfied"}

// classify maps raw device errors onto RejectionError where possible.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rejected *RejectionError
	if errors.As(err, &rejected) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rejectionMarkers {
		if strings.Contains(msg, marker) {
			return &RejectionError{Err: err}
		}
	}
	return err
}

// connectionError wraps err as ConnectionError unless it already is one or a rejection.
func connectionError(err error) error {
	var (
		conn     *ConnectionError
		rejected *RejectionError
	)
	if errors.As(err, &conn) || errors.As(err, &rejected) {
		return err
	}
	return &ConnectionError{Err: err}
}
