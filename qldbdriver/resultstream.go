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
)

// streamState tracks where a ResultStream is in its pump cycle. The source
// driver this package descends from modeled the same cycle with an
// event-emitter Readable and a re-entrancy flag; here it's a single mutex
// guarding an explicit state instead, which is simpler to reason about and
// gives backpressure for free: a page is only ever fetched from inside Next,
// so a caller that stops calling Next stops all further network activity.
type streamState int

const (
	streamIdle streamState = iota
	streamEnded
	streamDestroyed
)

// ResultStream is a pull-based, backpressured sequence of decoded documents.
// Call Next repeatedly until it returns ok == false; check Err afterward to
// distinguish a clean end-of-stream from a failure. At most one FetchPage
// call is ever in flight, and a caller that pauses between Next calls simply
// leaves the cached page parked mid-index -- nothing is re-fetched.
type ResultStream struct {
	mu    sync.Mutex
	ctx   context.Context
	sess  *session
	txnID string

	state   streamState
	current page
	idx     int
	err     error

	readIOs   *int64
	processMs *int64
}

func newResultStream(ctx context.Context, sess *session, transactionID string, first execResult) *ResultStream {
	s := &ResultStream{
		ctx:     ctx,
		sess:    sess,
		txnID:   transactionID,
		current: first.Page,
	}
	s.accumulate(first.IO, first.Timing)
	return s
}

// Next advances to the next document, fetching another page from the ledger
// if the current one is exhausted. It returns ok == false once the stream
// has ended or failed; callers must check Err to tell the two apart.
func (s *ResultStream) Next() (interface{}, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		switch s.state {
		case streamDestroyed:
			return nil, false, s.err
		case streamEnded:
			return nil, false, nil
		}

		if s.idx < len(s.current.Values) {
			raw := s.current.Values[s.idx]
			s.idx++
			v, err := unmarshalValue(raw)
			if err != nil {
				s.state = streamDestroyed
				s.err = err
				return nil, false, err
			}
			return v, true, nil
		}

		if s.current.NextPageToken == nil {
			s.state = streamEnded
			return nil, false, nil
		}

		res, err := s.sess.fetchPage(s.ctx, s.txnID, *s.current.NextPageToken)
		if err != nil {
			s.state = streamDestroyed
			s.err = err
			return nil, false, err
		}
		s.current = res.Page
		s.idx = 0
		s.accumulate(res.IO, res.Timing)
	}
}

// Err returns the error, if any, that terminated the stream.
func (s *ResultStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// GetReadIOs returns the cumulative read I/Os the ledger has reported so
// far, or nil if none of the pages seen so far reported it.
func (s *ResultStream) GetReadIOs() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIOs
}

// GetProcessingTimeMilliseconds returns the cumulative server-side
// processing time the ledger has reported so far, or nil if none of the
// pages seen so far reported it.
func (s *ResultStream) GetProcessingTimeMilliseconds() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processMs
}

func (s *ResultStream) accumulate(io *ioUsage, timing *timingInfo) {
	if io != nil {
		if s.readIOs == nil {
			s.readIOs = new(int64)
		}
		*s.readIOs += io.ReadIOs
	}
	if timing != nil {
		if s.processMs == nil {
			s.processMs = new(int64)
		}
		*s.processMs += timing.ProcessingTimeMilliseconds
	}
}
