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

import "context"

// PagedResult is the eagerly-buffered result of Execute: every page has
// already been fetched and decoded by the time the caller sees it.
type PagedResult struct {
	raw       [][]byte
	values    []interface{}
	readIOs   *int64
	processMs *int64
}

// Values returns the decoded documents in the order the ledger returned them.
func (r *PagedResult) Values() []interface{} {
	return r.values
}

// RawValues returns the documents as their raw Ion-encoded bytes, in the
// order the ledger returned them, for callers that want to unmarshal into a
// specific Go type rather than use the generically-decoded Values.
func (r *PagedResult) RawValues() [][]byte {
	return r.raw
}

// Len returns the number of documents in the result.
func (r *PagedResult) Len() int {
	return len(r.values)
}

// GetReadIOs returns the cumulative read I/Os the ledger reported across all
// pages, or nil if none of the pages reported it.
func (r *PagedResult) GetReadIOs() *int64 {
	return r.readIOs
}

// GetProcessingTimeMilliseconds returns the cumulative server-side
// processing time the ledger reported across all pages, or nil if none of
// the pages reported it.
func (r *PagedResult) GetProcessingTimeMilliseconds() *int64 {
	return r.processMs
}

// newPagedResult buffers every page of a result set, starting from the
// first page already present in an ExecuteStatement response.
func newPagedResult(ctx context.Context, sess *session, transactionID string, first execResult) (*PagedResult, error) {
	r := &PagedResult{}
	current := first

	for {
		for _, raw := range current.Page.Values {
			v, err := unmarshalValue(raw)
			if err != nil {
				return nil, err
			}
			r.raw = append(r.raw, raw)
			r.values = append(r.values, v)
		}
		r.accumulate(current.IO, current.Timing)

		if current.Page.NextPageToken == nil {
			break
		}

		next, err := sess.fetchPage(ctx, transactionID, *current.Page.NextPageToken)
		if err != nil {
			return nil, err
		}
		current = next
	}

	return r, nil
}

// accumulate folds in one page's stats. A nil stat is never treated as
// zero: the accumulator only becomes non-nil once some page actually
// reported that statistic.
func (r *PagedResult) accumulate(io *ioUsage, timing *timingInfo) {
	if io != nil {
		if r.readIOs == nil {
			r.readIOs = new(int64)
		}
		*r.readIOs += io.ReadIOs
	}
	if timing != nil {
		if r.processMs == nil {
			r.processMs = new(int64)
		}
		*r.processMs += timing.ProcessingTimeMilliseconds
	}
}
