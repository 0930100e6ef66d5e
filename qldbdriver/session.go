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

	"github.com/sirupsen/logrus"
)

// session wraps one ledger session token and the shared transport it was
// issued on. A session is exclusively owned by whichever goroutine holds its
// lease from the SessionPool; at most one transaction is ever in flight on
// it. session itself does not retry or classify errors -- it surfaces
// whatever the transport produced, verbatim, the way the teacher's RPC
// clients leave retry policy to their callers.
type session struct {
	token     string
	transport transportClient
	log       fieldLogger
}

func newSession(token string, transport transportClient, log fieldLogger) *session {
	return &session{token: token, transport: transport, log: log}
}

func (s *session) startTransaction(ctx context.Context) (string, error) {
	return s.transport.StartTransaction(ctx, s.token)
}

func (s *session) executeStatement(ctx context.Context, transactionID, statement string, params [][]byte) (execResult, error) {
	return s.transport.ExecuteStatement(ctx, s.token, transactionID, statement, params)
}

func (s *session) fetchPage(ctx context.Context, transactionID, nextPageToken string) (execResult, error) {
	return s.transport.FetchPage(ctx, s.token, transactionID, nextPageToken)
}

func (s *session) commit(ctx context.Context, transactionID string, digest qldbHash) (qldbHash, error) {
	return s.transport.CommitTransaction(ctx, s.token, transactionID, digest)
}

func (s *session) abortTransaction(ctx context.Context) error {
	return s.transport.AbortTransaction(ctx, s.token)
}

// endSession best-effort closes the ledger session. Errors are logged, never
// raised: by the time we're ending a session its failure modes are already
// handled or irrelevant to the caller.
func (s *session) endSession(ctx context.Context) {
	if err := s.transport.EndSession(ctx, s.token); err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err,
		}).Debug("qldbdriver: EndSession failed, ignoring")
	}
}
