// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may not
// use this file except in compliance with the License. A copy of the License
// is located at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.

package qldbdriver

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// releaseMode governs what SessionPool.release does with a session handed
// back to it.
type releaseMode int

const (
	// releaseReturn puts the session back in the idle queue for reuse.
	releaseReturn releaseMode = iota
	// releaseDiscard ends the session and frees its slot in the pool.
	releaseDiscard
)

// sessionPool is a bounded reservoir of ledger sessions. Capacity is
// enforced with a weighted semaphore sized to maxSessions: one unit is held
// for the lifetime of every session the pool has alive, whether idle or
// leased. Acquiring beyond capacity blocks on the semaphore, which gives us
// the acquireTimeout behavior via context.WithTimeout for free.
type sessionPool struct {
	mu     sync.Mutex
	idle   []*session // LIFO: Acquire pops from the end.
	leased int
	closed bool

	sem           *semaphore.Weighted
	ledgerName    string
	transport     transportClient
	acquireTimeout time.Duration
	log           fieldLogger
	metrics       *driverMetrics
}

func newSessionPool(ledgerName string, transport transportClient, maxSessions int, acquireTimeout time.Duration, log fieldLogger, metrics *driverMetrics) *sessionPool {
	return &sessionPool{
		sem:            semaphore.NewWeighted(int64(maxSessions)),
		ledgerName:     ledgerName,
		transport:      transport,
		acquireTimeout: acquireTimeout,
		log:            log,
		metrics:        metrics,
	}
}

// acquire returns a session, reusing an idle one if available, otherwise
// starting a new one if capacity allows, otherwise blocking until a release
// or until acquireTimeout elapses.
func (p *sessionPool) acquire(ctx context.Context) (*session, error) {
	if p.isClosed() {
		return nil, newDriverError(CodeDriverClosed, "session pool is closed", nil)
	}
	if s, ok := p.tryTakeIdle(); ok {
		return s, nil
	}

	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		return nil, newDriverError(CodeSessionPoolEmpty, "timed out waiting for a free session", err)
	}

	// We now hold one semaphore unit. Another release may have raced us and
	// pushed a session onto idle between our first check and this point --
	// prefer reusing it and give the unit back, rather than starting a
	// session we don't need.
	if s, ok := p.tryTakeIdle(); ok {
		p.sem.Release(1)
		return s, nil
	}

	if p.isClosed() {
		p.sem.Release(1)
		return nil, newDriverError(CodeDriverClosed, "session pool is closed", nil)
	}

	token, err := p.transport.StartSession(ctx, p.ledgerName)
	if err != nil {
		p.sem.Release(1)
		return nil, err
	}

	p.mu.Lock()
	p.leased++
	p.metrics.setLeased(p.leased)
	p.mu.Unlock()

	return newSession(token, p.transport, p.log), nil
}

func (p *sessionPool) tryTakeIdle() (*session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, false
	}
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.leased++
		p.metrics.setLeased(p.leased)
		p.metrics.setIdle(len(p.idle))
		return s, true
	}
	return nil, false
}

func (p *sessionPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// release returns a session to the pool (mode == releaseReturn) or discards
// it (mode == releaseDiscard or the pool is already closed). Discarding ends
// the ledger session in the background, swallowing any error, and frees the
// semaphore unit it held.
func (p *sessionPool) release(s *session, mode releaseMode) {
	p.mu.Lock()
	p.leased--
	discard := mode == releaseDiscard || p.closed
	if !discard {
		p.idle = append(p.idle, s)
	}
	p.metrics.setLeased(p.leased)
	p.metrics.setIdle(len(p.idle))
	p.mu.Unlock()

	if discard {
		go func() {
			s.endSession(context.Background())
			p.sem.Release(1)
		}()
	}
}

// close marks the pool closed, drains and ends every idle session, and
// causes every future acquire to fail immediately. Sessions already leased
// will discard on release rather than return to the idle queue.
func (p *sessionPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, s := range idle {
		go func(s *session) {
			s.endSession(context.Background())
			p.sem.Release(1)
		}(s)
	}
}
