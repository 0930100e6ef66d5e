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
	"errors"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/service/qldbsession/types"
	"github.com/aws/smithy-go"
)

// Code identifies the broad class of a driver-produced error, independent of
// the underlying transport error (if any).
type Code string

const (
	// CodeDriverClosed means the driver (or its session pool) was used after Close.
	CodeDriverClosed Code = "DriverClosed"
	// CodeSessionPoolEmpty means acquire timed out waiting for a free session.
	CodeSessionPoolEmpty Code = "SessionPoolEmpty"
	// CodeStartTransactionFailed means every retry of StartTransaction failed.
	CodeStartTransactionFailed Code = "StartTransactionFailed"
	// CodeDigestMismatch means the server's returned commit digest did not match ours.
	CodeDigestMismatch Code = "DigestMismatch"
	// CodeLambdaAborted means the user callback called TransactionExecutor.Abort.
	CodeLambdaAborted Code = "LambdaAborted"
	// CodeTransactionExpired means the ledger declared the transaction expired.
	CodeTransactionExpired Code = "TransactionExpired"
	// CodeInvalidSession means retries replacing the session were exhausted.
	CodeInvalidSession Code = "InvalidSession"
	// CodeOccConflict means retries after an OCC conflict were exhausted.
	CodeOccConflict Code = "OccConflict"
	// CodeSerializationError means a parameter could not be encoded to Ion bytes.
	CodeSerializationError Code = "SerializationError"
)

// DriverError is the error type returned for all driver-classified failures.
// The original transport or server error, if any, is available via Unwrap.
type DriverError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *DriverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("qldbdriver: %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("qldbdriver: %s: %s", e.Code, e.Message)
}

func (e *DriverError) Unwrap() error { return e.Cause }

func newDriverError(code Code, message string, cause error) *DriverError {
	return &DriverError{Code: code, Message: message, Cause: cause}
}

// abortedSentinel is returned by TransactionExecutor.Abort to unwind the user
// callback. It must never escape Driver.Execute as-is; Driver.attempt
// translates it into a DriverError with CodeLambdaAborted.
type abortedSentinel struct{}

func (abortedSentinel) Error() string { return "transaction aborted by user code" }

// errAborted is the single shared sentinel value recognized by Driver.attempt.
var errAborted error = abortedSentinel{}

// isAbortedSentinel reports whether err is the sentinel returned by
// TransactionExecutor.Abort, before Driver.attempt translates it.
func isAbortedSentinel(err error) bool {
	var a abortedSentinel
	return errors.As(err, &a)
}

var transactionExpiredPattern = regexp.MustCompile(`(?i)Transaction\s+\S+\s+has\s+expired`)

// IsOccConflict reports whether err represents an optimistic-concurrency
// conflict reported by the ledger at commit time.
func IsOccConflict(err error) bool {
	var t *types.OccConflictException
	return errors.As(err, &t)
}

// IsInvalidSession reports whether err represents a session the ledger no
// longer considers valid (including the transaction-expired variant).
func IsInvalidSession(err error) bool {
	var t *types.InvalidSessionException
	if errors.As(err, &t) {
		return true
	}
	var de *DriverError
	if errors.As(err, &de) && de.Code == CodeInvalidSession {
		return true
	}
	return false
}

// IsTransactionExpired reports whether err is an invalid-session error whose
// message identifies transaction expiry specifically. A structured signal is
// preferred; the message-substring match is a last-resort fallback per the
// driver's design notes.
func IsTransactionExpired(err error) bool {
	var t *types.InvalidSessionException
	if errors.As(err, &t) {
		if t.Message != nil && transactionExpiredPattern.MatchString(*t.Message) {
			return true
		}
	}
	var de *DriverError
	if errors.As(err, &de) && de.Code == CodeTransactionExpired {
		return true
	}
	return false
}

// IsBadRequest reports whether err represents a malformed request rejected
// by the ledger (for example at StartTransaction).
func IsBadRequest(err error) bool {
	var t *types.BadRequestException
	return errors.As(err, &t)
}

// IsResourceNotFound reports whether err represents a missing ledger or table.
func IsResourceNotFound(err error) bool {
	var t *types.ResourceNotFoundException
	return errors.As(err, &t)
}

// IsResourcePreconditionNotMet reports whether err represents a ledger
// resource that exists but is not in the required state (e.g. not ACTIVE).
func IsResourcePreconditionNotMet(err error) bool {
	var t *types.ResourcePreconditionNotMetException
	return errors.As(err, &t)
}

// IsInvalidParameter reports whether err represents an invalid parameter
// rejected by the ledger.
func IsInvalidParameter(err error) bool {
	var t *types.InvalidParameterException
	return errors.As(err, &t)
}

// isRetriableServerError classifies the generic 5xx/throttling class the
// ledger may return for any command, distinct from the named exceptions above.
func isRetriableServerError(err error) bool {
	var capacity *types.CapacityExceededException
	if errors.As(err, &capacity) {
		return true
	}
	var ise *types.InvalidSessionException
	if errors.As(err, &ise) {
		return false // handled by its own branch, not the generic one
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailableException", "InternalServerError":
			return true
		}
	}
	return false
}

// apiErrorCode extracts the ledger's reported error code for an unmodeled
// exception, for structured logging. It returns "" when err does not carry
// one (a non-API error, or nil).
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
