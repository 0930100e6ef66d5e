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

	"github.com/google/uuid"
)

// mockTransport is a scriptable transportClient used across this package's
// test files, the way the teacher's suite stubs its RPC client with a
// hand-rolled fake rather than a generated mock.
type mockTransport struct {
	mu sync.Mutex

	startSessionErr   error
	startTransaction  func(sessionToken string) (string, error)
	executeStatement  func(sessionToken, transactionID, statement string, params [][]byte) (execResult, error)
	fetchPage         func(sessionToken, transactionID, nextPageToken string) (execResult, error)
	commitTransaction func(sessionToken, transactionID string, digest qldbHash) (qldbHash, error)
	abortErr          error
	endSessionErr     error

	startSessionCalls  int
	startTxnCalls      int
	abortCalls         int
	endSessionCalls    int
	startedTokens      []string
}

func newMockTransport() *mockTransport {
	return &mockTransport{}
}

func (m *mockTransport) StartSession(ctx context.Context, ledgerName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startSessionCalls++
	if m.startSessionErr != nil {
		return "", m.startSessionErr
	}
	token := "session-" + uuid.NewString()
	m.startedTokens = append(m.startedTokens, token)
	return token, nil
}

func (m *mockTransport) StartTransaction(ctx context.Context, sessionToken string) (string, error) {
	m.mu.Lock()
	m.startTxnCalls++
	fn := m.startTransaction
	m.mu.Unlock()
	if fn != nil {
		return fn(sessionToken)
	}
	return "txn-" + uuid.NewString(), nil
}

func (m *mockTransport) ExecuteStatement(ctx context.Context, sessionToken, transactionID, statement string, params [][]byte) (execResult, error) {
	m.mu.Lock()
	fn := m.executeStatement
	m.mu.Unlock()
	if fn != nil {
		return fn(sessionToken, transactionID, statement, params)
	}
	return execResult{Page: page{Values: [][]byte{}}}, nil
}

func (m *mockTransport) FetchPage(ctx context.Context, sessionToken, transactionID, nextPageToken string) (execResult, error) {
	m.mu.Lock()
	fn := m.fetchPage
	m.mu.Unlock()
	if fn != nil {
		return fn(sessionToken, transactionID, nextPageToken)
	}
	return execResult{Page: page{Values: [][]byte{}}}, nil
}

func (m *mockTransport) CommitTransaction(ctx context.Context, sessionToken, transactionID string, digest qldbHash) (qldbHash, error) {
	m.mu.Lock()
	fn := m.commitTransaction
	m.mu.Unlock()
	if fn != nil {
		return fn(sessionToken, transactionID, digest)
	}
	return digest, nil
}

func (m *mockTransport) AbortTransaction(ctx context.Context, sessionToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abortCalls++
	return m.abortErr
}

func (m *mockTransport) EndSession(ctx context.Context, sessionToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endSessionCalls++
	return m.endSessionErr
}
