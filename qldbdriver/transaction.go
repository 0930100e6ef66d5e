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

// transaction owns one in-flight ledger transaction: it routes
// execute/commit/abort to its session, maintains the rolling commit
// digest, and enforces that the transaction is used sequentially even if
// the user callback issues concurrent Execute calls. A per-transaction
// mutex -- not a pool-wide lock -- serializes those calls, so unrelated
// transactions on other sessions proceed fully in parallel.
type transaction struct {
	mu    sync.Mutex
	id    string
	sess  *session
	state qldbHash
	done  bool
	log   fieldLogger
}

func newTransaction(id string, sess *session, log fieldLogger) *transaction {
	return &transaction{
		id:    id,
		sess:  sess,
		state: newTransactionHash(id),
		log:   log,
	}
}

var errTransactionClosed = newDriverError(CodeDriverClosed, "transaction is already committed or aborted", nil)

// execute runs one statement and buffers its entire result set.
func (t *transaction) execute(ctx context.Context, statement string, params ...interface{}) (*PagedResult, error) {
	res, err := t.executeCommand(ctx, statement, params)
	if err != nil {
		return nil, err
	}
	return newPagedResult(ctx, t.sess, t.id, res)
}

// executeAndStreamResults runs one statement and returns a lazily-paged stream.
func (t *transaction) executeAndStreamResults(ctx context.Context, statement string, params ...interface{}) (*ResultStream, error) {
	res, err := t.executeCommand(ctx, statement, params)
	if err != nil {
		return nil, err
	}
	return newResultStream(ctx, t.sess, t.id, res), nil
}

// executeCommand performs the hash fold and the ExecuteStatement RPC under
// the transaction's serializing mutex.
func (t *transaction) executeCommand(ctx context.Context, statement string, params []interface{}) (execResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return execResult{}, errTransactionClosed
	}

	// Snapshot-then-commit: encode every parameter first. If any fails, the
	// rolling hash is left untouched -- only a fully successful statement
	// (text + every parameter) is ever folded in. This is the documented
	// alternative to the source driver's fold-as-you-go behavior, chosen
	// because a partially folded hash dooms the transaction anyway (client
	// and server digests would diverge the moment any prior execute had
	// succeeded).
	encodedParams, err := marshalParams(params)
	if err != nil {
		return execResult{}, err
	}

	t.state = foldStatement(t.state, statement, encodedParams)

	res, err := t.sess.executeStatement(ctx, t.id, statement, encodedParams)
	if err != nil {
		return execResult{}, err
	}
	return res, nil
}

// commit sends the accumulated rolling hash as the commit digest and
// verifies the ledger's returned digest matches byte for byte.
func (t *transaction) commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return errTransactionClosed
	}
	t.done = true

	serverDigest, err := t.sess.commit(ctx, t.id, t.state)
	if err != nil {
		return err
	}
	if serverDigest != t.state {
		return newDriverError(CodeDigestMismatch, "ledger's commit digest did not match the client's; the transaction's outcome is ambiguous and must not be assumed to have committed", nil)
	}
	return nil
}

// abort ends the transaction without committing. It never returns an error
// to its own caller: a failed AbortTransaction RPC is logged and swallowed,
// since by definition the transaction is already unusable either way.
func (t *transaction) abort(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return
	}
	t.done = true

	if err := t.sess.abortTransaction(ctx); err != nil {
		t.log.WithFields(nil).Debug("qldbdriver: AbortTransaction failed, ignoring")
	}
}

// TransactionExecutor is the handle a user-supplied transaction function
// receives. Every method forwards to the underlying transaction.
type TransactionExecutor interface {
	// Execute runs statement with params and buffers its entire result set.
	Execute(statement string, params ...interface{}) (*PagedResult, error)
	// ExecuteAndStreamResults runs statement with params and returns a
	// pull-based stream over its result set.
	ExecuteAndStreamResults(statement string, params ...interface{}) (*ResultStream, error)
	// Abort returns a sentinel error which, when returned from the
	// transaction function, tells the driver to abort rather than commit.
	// The sentinel must never be observed outside the driver's retry loop.
	Abort() error
	// GetTransactionID returns the ledger-assigned id of this transaction.
	GetTransactionID() string
}

type txnExecutor struct {
	ctx context.Context
	txn *transaction
}

func (e *txnExecutor) Execute(statement string, params ...interface{}) (*PagedResult, error) {
	return e.txn.execute(e.ctx, statement, params...)
}

func (e *txnExecutor) ExecuteAndStreamResults(statement string, params ...interface{}) (*ResultStream, error) {
	return e.txn.executeAndStreamResults(e.ctx, statement, params...)
}

func (e *txnExecutor) Abort() error {
	return errAborted
}

func (e *txnExecutor) GetTransactionID() string {
	return e.txn.id
}
