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

// page is one chunk of a result set: an ordered list of Ion-encoded value
// blobs, plus an opaque cursor to the next chunk. A nil NextPageToken means
// this is the final page.
type page struct {
	Values        [][]byte
	NextPageToken *string
}

// ioUsage reports I/O consumed by a single command, when the ledger reports it.
type ioUsage struct {
	ReadIOs int64
}

// timingInfo reports server processing time for a single command, when the
// ledger reports it.
type timingInfo struct {
	ProcessingTimeMilliseconds int64
}

// execResult is the outcome of ExecuteStatement or FetchPage: a page plus
// optional stats. The pointer fields are nil when the ledger did not report
// that statistic for this particular page, which callers must distinguish
// from zero (see PagedResult/ResultStream stat accumulation).
type execResult struct {
	Page    page
	IO      *ioUsage
	Timing  *timingInfo
}

// transportClient is the synchronous request/response stub the driver
// issues the ledger's six session commands against. It is intentionally
// minimal and transport-agnostic: the wire protocol, authentication, and
// retries below this layer are not this package's concern. The production
// implementation is transportQLDBSession, adapting aws-sdk-go-v2's
// qldbsession client; tests supply a mockTransport.
type transportClient interface {
	StartSession(ctx context.Context, ledgerName string) (sessionToken string, err error)
	StartTransaction(ctx context.Context, sessionToken string) (transactionID string, err error)
	ExecuteStatement(ctx context.Context, sessionToken, transactionID, statement string, params [][]byte) (execResult, error)
	FetchPage(ctx context.Context, sessionToken, transactionID, nextPageToken string) (execResult, error)
	CommitTransaction(ctx context.Context, sessionToken, transactionID string, digest qldbHash) (serverDigest qldbHash, err error)
	AbortTransaction(ctx context.Context, sessionToken string) error
	EndSession(ctx context.Context, sessionToken string) error
}
