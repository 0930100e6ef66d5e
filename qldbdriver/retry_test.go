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
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/qldbsession/types"
	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestDefaultBackoffFunctionIsBounded(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		for i := 0; i < 50; i++ {
			d := DefaultBackoffFunction(attempt, nil, "")
			assert.GreaterOrEqual(t, d, defaultBackoffBase)
			assert.LessOrEqual(t, d, 2*defaultBackoffCap)
		}
	}
}

func TestDefaultBackoffFunctionGrowsWithAttempt(t *testing.T) {
	// Attempt 1's exponential term is base*2^0; attempt 4's is base*2^3,
	// comfortably clear of attempt 1's maximum possible jittered value.
	var maxAttempt1 time.Duration
	for i := 0; i < 200; i++ {
		if d := DefaultBackoffFunction(1, nil, ""); d > maxAttempt1 {
			maxAttempt1 = d
		}
	}
	var minAttempt4 = 2 * defaultBackoffCap
	for i := 0; i < 200; i++ {
		if d := DefaultBackoffFunction(4, nil, ""); d < minAttempt4 {
			minAttempt4 = d
		}
	}
	assert.Greater(t, minAttempt4, maxAttempt1)
}

func TestClassifyOccConflictRetriesAndReturnsSession(t *testing.T) {
	engine := newRetryEngine(DefaultRetryPolicy(), defaultLogger(), nil)
	err := &types.OccConflictException{Message: ptr("conflict")}

	d := engine.classify(err, false)

	assert.True(t, d.retry)
	assert.Equal(t, releaseReturn, d.disposition)
	assert.Equal(t, CodeOccConflict, d.code)
}

func TestClassifyInvalidSessionDiscardsAndSkipsBackoffOnlyFirstTime(t *testing.T) {
	engine := newRetryEngine(DefaultRetryPolicy(), defaultLogger(), nil)
	err := &types.InvalidSessionException{Message: ptr("invalid session")}

	first := engine.classify(err, false)
	assert.True(t, first.retry)
	assert.Equal(t, releaseDiscard, first.disposition)
	assert.True(t, first.skipBackoff)

	second := engine.classify(err, true)
	assert.True(t, second.retry)
	assert.False(t, second.skipBackoff)
}

func TestClassifyTransactionExpiredDoesNotRetry(t *testing.T) {
	engine := newRetryEngine(DefaultRetryPolicy(), defaultLogger(), nil)
	err := &types.InvalidSessionException{Message: ptr("Transaction 9f8 has expired")}

	d := engine.classify(err, false)

	assert.False(t, d.retry)
	assert.Equal(t, releaseDiscard, d.disposition)
	assert.Equal(t, CodeTransactionExpired, d.code)
}

func TestClassifyBadRequestRetriesAndReturnsSession(t *testing.T) {
	engine := newRetryEngine(DefaultRetryPolicy(), defaultLogger(), nil)
	err := &types.BadRequestException{Message: ptr("bad request")}

	d := engine.classify(err, false)

	assert.True(t, d.retry)
	assert.Equal(t, releaseReturn, d.disposition)
}

func TestClassifyUnrecognizedErrorDoesNotRetry(t *testing.T) {
	engine := newRetryEngine(DefaultRetryPolicy(), defaultLogger(), nil)

	d := engine.classify(assert.AnError, false)

	assert.False(t, d.retry)
}

func TestFinalizeWrapsExhaustedOccConflict(t *testing.T) {
	engine := newRetryEngine(DefaultRetryPolicy(), defaultLogger(), nil)
	d := retryDecision{code: CodeOccConflict}

	err := engine.finalize(d, &types.OccConflictException{Message: ptr("x")})

	var de *DriverError
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, CodeOccConflict, de.Code)
}
