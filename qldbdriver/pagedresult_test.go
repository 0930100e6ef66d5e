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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ionInt(t *testing.T, n int64) []byte {
	t.Helper()
	b, err := marshalParam(n)
	require.NoError(t, err)
	return b
}

func strPtr(s string) *string { return &s }

func TestPagedResultConcatenatesAllPagesInOrder(t *testing.T) {
	transport := newMockTransport()
	pages := [][]int64{{1, 2}, {3, 4, 5}, {6}}
	calls := 0
	transport.fetchPage = func(sessionToken, transactionID, nextPageToken string) (execResult, error) {
		idx := calls + 1 // first page was "page 0", fetched pages start at 1
		calls++
		values := make([][]byte, len(pages[idx]))
		for i, n := range pages[idx] {
			values[i] = ionInt(t, n)
		}
		var next *string
		if idx < len(pages)-1 {
			next = strPtr("token")
		}
		return execResult{Page: page{Values: values, NextPageToken: next}}, nil
	}

	first := execResult{Page: page{
		Values:        [][]byte{ionInt(t, pages[0][0]), ionInt(t, pages[0][1])},
		NextPageToken: strPtr("token"),
	}}

	sess := newTestSession(transport)
	result, err := newPagedResult(context.Background(), sess, "txn-1", first)
	require.NoError(t, err)

	require.Equal(t, 6, result.Len())
	for i, v := range result.Values() {
		assert.EqualValues(t, i+1, v)
	}
}

func TestPagedResultAccumulatesReadIOsAcrossPagesIgnoringNilStats(t *testing.T) {
	transport := newMockTransport()
	calls := 0
	transport.fetchPage = func(sessionToken, transactionID, nextPageToken string) (execResult, error) {
		calls++
		if calls == 1 {
			return execResult{
				Page: page{Values: [][]byte{}, NextPageToken: strPtr("t2")},
				IO:   &ioUsage{ReadIOs: 400},
			}, nil
		}
		return execResult{
			Page: page{Values: [][]byte{}},
			IO:   &ioUsage{ReadIOs: 292},
		}, nil
	}

	// First page reports no IO stats at all (nil), as E6 requires: that must
	// not be counted as zero once later pages do report stats.
	first := execResult{
		Page: page{Values: [][]byte{}, NextPageToken: strPtr("t1")},
		IO:   nil,
	}

	sess := newTestSession(transport)
	result, err := newPagedResult(context.Background(), sess, "txn-1", first)
	require.NoError(t, err)

	require.NotNil(t, result.GetReadIOs())
	assert.EqualValues(t, 400+292, *result.GetReadIOs())
}

func TestPagedResultReadIOsNilWhenNoPageReportsIt(t *testing.T) {
	sess := newTestSession(newMockTransport())
	first := execResult{Page: page{Values: [][]byte{}}}

	result, err := newPagedResult(context.Background(), sess, "txn-1", first)
	require.NoError(t, err)

	assert.Nil(t, result.GetReadIOs())
}

func TestPagedResultRawValuesMirrorDecodedValues(t *testing.T) {
	sess := newTestSession(newMockTransport())
	first := execResult{Page: page{Values: [][]byte{ionInt(t, 42)}}}

	result, err := newPagedResult(context.Background(), sess, "txn-1", first)
	require.NoError(t, err)

	require.Len(t, result.RawValues(), 1)
	v, err := unmarshalValue(result.RawValues()[0])
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}
