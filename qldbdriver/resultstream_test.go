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

func TestResultStreamStopsFetchingOnceConsumerStops(t *testing.T) {
	transport := newMockTransport()
	fetchCalls := 0
	transport.fetchPage = func(sessionToken, transactionID, nextPageToken string) (execResult, error) {
		fetchCalls++
		return execResult{Page: page{
			Values:        [][]byte{ionInt(t, 10), ionInt(t, 11)},
			NextPageToken: strPtr("more"),
		}}, nil
	}

	first := execResult{Page: page{
		Values:        [][]byte{ionInt(t, 1), ionInt(t, 2), ionInt(t, 3)},
		NextPageToken: strPtr("t1"),
	}}

	sess := newTestSession(transport)
	stream := newResultStream(context.Background(), sess, "txn-1", first)

	// Consume only 2 of the 3 values on the already-buffered first page.
	v1, ok, err := stream.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, v1)

	v2, ok, err := stream.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, v2)

	// No FetchPage should have been issued: the first page alone satisfied
	// both Next calls.
	assert.Equal(t, 0, fetchCalls)
	assert.Equal(t, 2, stream.idx)
}

func TestResultStreamEndsCleanlyWhenNoNextPageToken(t *testing.T) {
	sess := newTestSession(newMockTransport())
	first := execResult{Page: page{Values: [][]byte{ionInt(t, 1)}}}
	stream := newResultStream(context.Background(), sess, "txn-1", first)

	_, ok, err := stream.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = stream.Next()
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.NoError(t, stream.Err())
}

func TestResultStreamSurfacesFetchPageError(t *testing.T) {
	transport := newMockTransport()
	transport.fetchPage = func(sessionToken, transactionID, nextPageToken string) (execResult, error) {
		return execResult{}, assert.AnError
	}
	first := execResult{Page: page{NextPageToken: strPtr("t1")}}

	sess := newTestSession(transport)
	stream := newResultStream(context.Background(), sess, "txn-1", first)

	_, ok, err := stream.Next()
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Equal(t, err, stream.Err())

	// Once destroyed, further Next calls keep surfacing the same terminal error.
	_, ok, err = stream.Next()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestResultStreamAccumulatesStatsOnlyFromPagesThatReportThem(t *testing.T) {
	transport := newMockTransport()
	transport.fetchPage = func(sessionToken, transactionID, nextPageToken string) (execResult, error) {
		return execResult{
			Page:   page{Values: [][]byte{}},
			Timing: &timingInfo{ProcessingTimeMilliseconds: 5},
		}, nil
	}
	first := execResult{Page: page{NextPageToken: strPtr("t1")}}

	sess := newTestSession(transport)
	stream := newResultStream(context.Background(), sess, "txn-1", first)

	_, _, _ = stream.Next()

	require.NotNil(t, stream.GetProcessingTimeMilliseconds())
	assert.EqualValues(t, 5, *stream.GetProcessingTimeMilliseconds())
	assert.Nil(t, stream.GetReadIOs())
}
