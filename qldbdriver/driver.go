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

	"github.com/amazon-ion/ion-go/ion"
	"github.com/aws/aws-sdk-go-v2/service/qldbsession"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxConcurrentTransactions = 10
	defaultAcquireTimeout            = 30 * time.Second
)

// TransactionFunc is a user-supplied callback invoked once per attempt of
// Driver.Execute. Its return value is returned from Execute on success. To
// abort instead of committing, return nil, txn.Abort().
type TransactionFunc func(txn TransactionExecutor) (interface{}, error)

type driverConfig struct {
	maxConcurrentTransactions int
	acquireTimeout            time.Duration
	retryPolicy               RetryPolicy
	logger                    fieldLogger
	metricsRegisterer         prometheus.Registerer
}

// DriverOption configures a Driver at construction time.
type DriverOption func(*driverConfig)

// WithMaxConcurrentTransactions bounds how many sessions the driver will
// hold open at once. Default 10.
func WithMaxConcurrentTransactions(n int) DriverOption {
	return func(c *driverConfig) { c.maxConcurrentTransactions = n }
}

// WithAcquireTimeout bounds how long Execute may block waiting for a free
// session when the pool is at capacity. Default 30s.
func WithAcquireTimeout(d time.Duration) DriverOption {
	return func(c *driverConfig) { c.acquireTimeout = d }
}

// WithRetryPolicy overrides the driver's default retry policy.
func WithRetryPolicy(p RetryPolicy) DriverOption {
	return func(c *driverConfig) { c.retryPolicy = p }
}

// WithLogger overrides the driver's default logrus logger. l may be a
// *logrus.Logger or an already-fielded *logrus.Entry.
func WithLogger(l fieldLogger) DriverOption {
	return func(c *driverConfig) { c.logger = l }
}

// WithMetricsRegisterer registers the driver's prometheus collectors
// (session pool gauges, retry counters, and a histogram of successful
// attempt durations from StartTransaction through commit) against reg. If
// unset, no metrics are collected.
func WithMetricsRegisterer(reg prometheus.Registerer) DriverOption {
	return func(c *driverConfig) { c.metricsRegisterer = reg }
}

// Driver executes transaction functions against one QLDB ledger. Construct
// with New; call Close when finished to release pooled sessions.
type Driver struct {
	ledgerName  string
	pool        *sessionPool
	retryPolicy RetryPolicy
	log         fieldLogger
	metrics     *driverMetrics

	mu     sync.Mutex
	closed bool
}

// New constructs a Driver against ledgerName using client as the ledger
// session transport.
func New(ledgerName string, client *qldbsession.Client, opts ...DriverOption) (*Driver, error) {
	if client == nil {
		return nil, newDriverError(CodeDriverClosed, "qldbsession client must not be nil", nil)
	}
	return newDriverWithTransport(ledgerName, newTransportQLDBSession(client), opts...)
}

// newDriverWithTransport is the transport-agnostic constructor tests use to
// inject a mock transportClient.
func newDriverWithTransport(ledgerName string, transport transportClient, opts ...DriverOption) (*Driver, error) {
	cfg := driverConfig{
		maxConcurrentTransactions: defaultMaxConcurrentTransactions,
		acquireTimeout:            defaultAcquireTimeout,
		retryPolicy:               DefaultRetryPolicy(),
		logger:                    defaultLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxConcurrentTransactions < 1 {
		return nil, newDriverError(CodeDriverClosed, "MaxConcurrentTransactions must be 1 or greater", nil)
	}

	metrics := newDriverMetrics(cfg.metricsRegisterer, ledgerName)
	pool := newSessionPool(ledgerName, transport, cfg.maxConcurrentTransactions, cfg.acquireTimeout, cfg.logger, metrics)

	return &Driver{
		ledgerName:  ledgerName,
		pool:        pool,
		retryPolicy: cfg.retryPolicy,
		log:         cfg.logger,
		metrics:     metrics,
	}, nil
}

// Execute runs fn inside a new transaction, committing on a clean return and
// retrying transparently on classified-retriable failures. An optional
// retryPolicyOverride replaces the driver's configured policy for this call
// only.
func (d *Driver) Execute(ctx context.Context, fn TransactionFunc, retryPolicyOverride ...RetryPolicy) (interface{}, error) {
	if d.isClosed() {
		return nil, newDriverError(CodeDriverClosed, "cannot invoke Execute on a closed Driver", nil)
	}

	policy := d.retryPolicy
	if len(retryPolicyOverride) > 0 {
		policy = retryPolicyOverride[0]
	}
	engine := newRetryEngine(policy, d.log, d.metrics)

	sess, err := d.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}

	attempt := 0
	sawInvalidSession := false

	for {
		attempt++

		commitStart := time.Now()
		value, txnID, attemptErr := d.attempt(ctx, sess, fn)
		if attemptErr == nil {
			d.metrics.observeCommitSeconds(time.Since(commitStart).Seconds())
			d.pool.release(sess, releaseReturn)
			return value, nil
		}

		decision := engine.classify(attemptErr, sawInvalidSession)
		if decision.code == CodeStartTransactionFailed && txnID != "" {
			// The bad request came after StartTransaction succeeded, so it is
			// not a StartTransaction failure and is surfaced as-is.
			decision = retryDecision{retry: false, disposition: releaseReturn}
		}
		if decision.code == CodeInvalidSession {
			sawInvalidSession = true
		}

		if !decision.retry || attempt > policy.MaxRetryLimit {
			d.pool.release(sess, decision.disposition)
			return nil, engine.finalize(decision, attemptErr)
		}

		engine.logRetry(attempt, decision, attemptErr)
		d.pool.release(sess, decision.disposition)

		sess, err = d.pool.acquire(ctx)
		if err != nil {
			return nil, err
		}

		if !decision.skipBackoff {
			sleepWithContext(ctx, policy.Backoff(attempt, attemptErr, txnID))
		}
	}
}

// attempt runs one full start/callback/commit cycle on sess. On any
// unsuccessful path it aborts the server-side transaction (swallowing that
// abort's own error) before returning, except when StartTransaction itself
// failed, since no transaction exists yet in that case.
func (d *Driver) attempt(ctx context.Context, sess *session, fn TransactionFunc) (value interface{}, transactionID string, err error) {
	transactionID, err = sess.startTransaction(ctx)
	if err != nil {
		return nil, "", err
	}

	txn := newTransaction(transactionID, sess, d.log)
	executor := &txnExecutor{ctx: ctx, txn: txn}

	value, ferr := fn(executor)
	if ferr != nil {
		txn.abort(ctx)
		if isAbortedSentinel(ferr) {
			return nil, transactionID, newDriverError(CodeLambdaAborted, "transaction function called TransactionExecutor.Abort", nil)
		}
		return nil, transactionID, ferr
	}

	if cerr := txn.commit(ctx); cerr != nil {
		if aerr := sess.abortTransaction(ctx); aerr != nil {
			d.log.WithFields(logrus.Fields{"error": aerr}).Debug("qldbdriver: AbortTransaction after failed commit failed, ignoring")
		}
		return nil, transactionID, cerr
	}
	return value, transactionID, nil
}

type tableNameDoc struct {
	Name string `ion:"name"`
}

// GetTableNames returns the names of all active tables in the ledger.
func (d *Driver) GetTableNames(ctx context.Context) ([]string, error) {
	const tableNameQuery = "SELECT name FROM information_schema.user_tables WHERE status = 'ACTIVE'"

	result, err := d.Execute(ctx, func(txn TransactionExecutor) (interface{}, error) {
		res, err := txn.Execute(tableNameQuery)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, res.Len())
		for _, raw := range res.RawValues() {
			var doc tableNameDoc
			if err := ion.Unmarshal(raw, &doc); err != nil {
				return nil, err
			}
			names = append(names, doc.Name)
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// Close releases the driver's session pool. Sessions leased at the time of
// Close are discarded when their holder releases them; no new Execute calls
// are accepted after Close returns.
func (d *Driver) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.pool.close()
}

func (d *Driver) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
