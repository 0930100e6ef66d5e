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
	"errors"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBackoffBase = 10 * time.Millisecond
	defaultBackoffCap  = 5000 * time.Millisecond
	defaultRetryLimit  = 4
)

// BackoffFunc computes the delay before the next retry attempt. attempt is
// 1-indexed (the number of the attempt that just failed, so the first retry
// waits Backoff(1, ...)); transactionID is empty if the
// failure occurred before a transaction was started. A negative result is
// clamped to zero.
type BackoffFunc func(attempt int, lastError error, transactionID string) time.Duration

// RetryPolicy bounds how many times executeLambda retries a classified
// retriable failure, and how long it waits between attempts.
type RetryPolicy struct {
	MaxRetryLimit int
	Backoff       BackoffFunc
}

// DefaultRetryPolicy returns the driver's default policy: 4 retries (5
// total attempts), full-jitter exponential backoff with a 10ms base and a
// 5s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetryLimit: defaultRetryLimit,
		Backoff:       DefaultBackoffFunction,
	}
}

// DefaultBackoffFunction implements min(cap, base*2^(attempt-1)) * U[1,2).
func DefaultBackoffFunction(attempt int, _ error, _ string) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exp := defaultBackoffBase * time.Duration(1<<uint(attempt-1))
	if exp > defaultBackoffCap {
		exp = defaultBackoffCap
	}
	jitter := 1 + rand.Float64()
	return time.Duration(float64(exp) * jitter)
}

func sleepWithContext(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// retryDecision is the outcome of classifying one attempt's failure.
type retryDecision struct {
	retry       bool
	disposition releaseMode
	code        Code
	skipBackoff bool
}

// retryEngine classifies each failed attempt and decides whether to retry,
// how to dispose of the session, and whether to wait before the next try.
// It does not itself talk to the transport; classification is pure so it's
// trivially testable.
type retryEngine struct {
	policy  RetryPolicy
	log     fieldLogger
	metrics *driverMetrics
}

func newRetryEngine(policy RetryPolicy, log fieldLogger, metrics *driverMetrics) *retryEngine {
	return &retryEngine{policy: policy, log: log, metrics: metrics}
}

// classify maps a failed attempt's error to a decision. sawInvalidSession
// is whether an invalid-session failure already occurred earlier in this
// executeLambda invocation -- the first occurrence retries without
// backoff, subsequent ones are subject to it.
func (re *retryEngine) classify(err error, sawInvalidSession bool) retryDecision {
	var de *DriverError
	if errors.As(err, &de) {
		switch de.Code {
		case CodeLambdaAborted:
			return retryDecision{retry: false, disposition: releaseReturn, code: CodeLambdaAborted}
		}
	}

	switch {
	case IsTransactionExpired(err):
		return retryDecision{retry: false, disposition: releaseDiscard, code: CodeTransactionExpired}
	case IsOccConflict(err):
		return retryDecision{retry: true, disposition: releaseReturn, code: CodeOccConflict}
	case IsInvalidSession(err):
		return retryDecision{retry: true, disposition: releaseDiscard, code: CodeInvalidSession, skipBackoff: !sawInvalidSession}
	case IsBadRequest(err):
		return retryDecision{retry: true, disposition: releaseReturn, code: CodeStartTransactionFailed}
	case isRetriableServerError(err):
		return retryDecision{retry: true, disposition: releaseReturn, code: "RetriableServerError"}
	default:
		return retryDecision{retry: false, disposition: releaseReturn, code: ""}
	}
}

// finalize wraps err for surfacing once retries are exhausted or the
// failure was never retriable in the first place.
func (re *retryEngine) finalize(d retryDecision, err error) error {
	switch d.code {
	case CodeLambdaAborted:
		return newDriverError(CodeLambdaAborted, "transaction function called TransactionExecutor.Abort", err)
	case CodeTransactionExpired:
		return newDriverError(CodeTransactionExpired, "the ledger reports this transaction has expired; it cannot be retried and must be re-run from scratch", err)
	case CodeOccConflict:
		return newDriverError(CodeOccConflict, "exhausted retries after repeated optimistic-concurrency conflicts", err)
	case CodeInvalidSession:
		return newDriverError(CodeInvalidSession, "exhausted retries after repeated invalid-session failures", err)
	case CodeStartTransactionFailed:
		return newDriverError(CodeStartTransactionFailed, "exhausted retries starting a transaction", err)
	default:
		return err
	}
}

func (re *retryEngine) logRetry(attempt int, d retryDecision, err error) {
	code := d.code
	if code == "" {
		code = Code(apiErrorCode(err))
	}
	re.log.WithFields(logrus.Fields{
		"attempt":  attempt,
		"code":     code,
		"apiError": apiErrorCode(err),
		"error":    err,
	}).Warn("qldbdriver: classified retriable failure, retrying")
	re.metrics.observeRetry(code)
}
