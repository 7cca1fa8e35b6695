// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger manages connections to hardware signing devices. A Session
// connects to the device, derives the requested addresses and runs exactly one
// caller operation before the transport is released.
package ledger

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/zviadm/celovote-app/metrics"
)

var (
	logger = log.New("pkg", "ledger")

	metricSessions = metrics.LazyLoadCounterVec("ledger_sessions_count", []string{"result"})
)

// State of a signer session.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateExecuting
	StateCompleted
	StateCancelled
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is a scoped connection to a signing device for a fixed set of
// derivation indices.
type Session struct {
	indices []int
	cancel  context.CancelFunc
	ready   chan struct{}

	mu        sync.Mutex
	state     State
	err       error
	transport Transport
	signer    *Signer
	running   sync.WaitGroup
	closing   bool

	closeOnce sync.Once
	closeErr  error
}

// Open starts connecting to the device and deriving the addresses of indices.
// It returns immediately; use Wait or Run to block on the connection.
func Open(ctx context.Context, dialer Dialer, indices []int) *Session {
	s := &Session{
		indices: append([]int(nil), indices...),
		ready:   make(chan struct{}),
		state:   StateConnecting,
	}
	ctx, s.cancel = context.WithCancel(ctx)
	go s.connect(ctx, dialer)
	return s
}

// Do opens a session, runs op in it and closes the session whatever the outcome.
func Do(ctx context.Context, dialer Dialer, indices []int, op func(ctx context.Context, signer *Signer) error) error {
	s := Open(ctx, dialer, indices)
	defer s.Close()
	return s.Run(ctx, op)
}

func (s *Session) connect(ctx context.Context, dialer Dialer) {
	defer close(s.ready)

	transport, err := dialer.Dial(ctx)
	if err != nil {
		s.fail(connectionError(err))
		return
	}
	accounts := make([]WalletAddress, 0, len(s.indices))
	for _, idx := range s.indices {
		path := Path(idx)
		addr, err := transport.Derive(ctx, path, false)
		if err != nil {
			s.closeTransport(transport)
			s.fail(connectionError(classify(err)))
			return
		}
		accounts = append(accounts, WalletAddress{Path: path, Address: addr})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		// cancelled or closed while the handshake was running
		s.closeTransport(transport)
		return
	}
	s.transport = transport
	s.signer = &Signer{transport: transport, accounts: accounts}
	s.state = StateConnected
	logger.Debug("session connected", "indices", s.indices)
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting {
		s.state = StateFailed
		metricSessions().AddWithLabel(1, map[string]string{"result": "connection_failed"})
	}
	s.err = err
	logger.Debug("session connection failed", "err", err)
}

func (s *Session) closeTransport(t Transport) {
	if err := t.Close(); err != nil {
		logger.Warn("failed to close transport", "err", err)
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether the device handshake finished and the session is
// usable or in use. Callers must not offer cancellation while it returns true.
func (s *Session) IsConnected() bool {
	st := s.State()
	return st == StateConnected || st == StateExecuting
}

// Wait blocks until the connection attempt resolves.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCancelled:
		return context.Canceled
	case StateClosed:
		if s.err != nil {
			return s.err
		}
		return &ConnectionError{Err: errClosed}
	}
	return s.err
}

// Cancel aborts a session that is still connecting. Once connected the
// device may be showing a prompt, so cancellation is refused.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnecting {
		return ErrCancelRefused
	}
	s.state = StateCancelled
	s.cancel()
	metricSessions().AddWithLabel(1, map[string]string{"result": "cancelled"})
	return nil
}

// Run executes op against the connected device. A session runs a single
// operation; any further call fails with ConflictError.
//
// ctx only bounds the connection: ending it while connecting cancels the
// session. Once connected, op runs to completion with a context that is never
// cancelled, since the device may be in the middle of a transaction sequence.
func (s *Session) Run(ctx context.Context, op func(ctx context.Context, signer *Signer) error) error {
	if err := s.Wait(ctx); err != nil {
		if ctx.Err() == nil || s.Cancel() == nil {
			return err
		}
		// connected just as ctx ended, cancellation is refused from here on
		if err := s.Wait(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return &ConnectionError{Err: errClosed}
	}
	if s.state != StateConnected {
		st := s.state
		s.mu.Unlock()
		return &ConflictError{Op: "session " + st.String(), Index: -1}
	}
	s.state = StateExecuting
	s.running.Add(1)
	signer := s.signer
	s.mu.Unlock()
	defer s.running.Done()

	err := op(context.WithoutCancel(ctx), signer)

	s.mu.Lock()
	result := "completed"
	if err != nil {
		s.state = StateFailed
		s.err = err
		result = "failed"
	} else {
		s.state = StateCompleted
	}
	s.mu.Unlock()
	metricSessions().AddWithLabel(1, map[string]string{"result": result})
	return err
}

// Close releases the transport. It waits for a running operation to finish
// first and is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		s.running.Wait()

		s.mu.Lock()
		transport := s.transport
		s.transport = nil
		s.state = StateClosed
		s.mu.Unlock()

		s.cancel()
		if transport != nil {
			s.closeErr = transport.Close()
		}
	})
	return s.closeErr
}
