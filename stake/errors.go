// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stake

import (
	"fmt"

	"github.com/pkg/errors"
)

// ValidationError rejects a request before anything is submitted.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Invalid returns a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ChainStateError reports chain state that contradicts what was read before,
// or a flow that stopped making progress.
type ChainStateError struct {
	Err error
}

func (e *ChainStateError) Error() string { return "chain state: " + e.Err.Error() }

func (e *ChainStateError) Unwrap() error { return e.Err }

// Inconsistent returns a ChainStateError.
func Inconsistent(format string, args ...any) error {
	return &ChainStateError{Err: errors.Errorf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsChainState reports whether err is or wraps a ChainStateError.
func IsChainState(err error) bool {
	var c *ChainStateError
	return errors.As(err, &c)
}
