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
	"bytes"
	"crypto/sha256"
)

// digestSize is the width, in bytes, of every hash this package produces.
const digestSize = sha256.Size

// qldbHash accumulates the cryptographic identity of a transaction's work:
// the transaction id folded with every executed statement, each statement
// folded with its parameters, in execution order. The server recomputes the
// same value independently and the two must match at commit.
type qldbHash [digestSize]byte

// hashOf returns the SHA-256 digest of b.
func hashOf(b []byte) qldbHash {
	return sha256.Sum256(b)
}

// dot combines two digests into one. It concatenates them in canonical
// order -- the lexicographically smaller (signed-byte comparison) first --
// and hashes the result. Canonical ordering makes dot commutative, which
// the server relies on when cross-checking a transaction's statement hashes
// independent of the order they were folded in.
func dot(a, b qldbHash) qldbHash {
	first, second := a, b
	if compareSigned(a[:], b[:]) > 0 {
		first, second = b, a
	}
	var buf bytes.Buffer
	buf.Grow(2 * digestSize)
	buf.Write(first[:])
	buf.Write(second[:])
	return sha256.Sum256(buf.Bytes())
}

// compareSigned compares two equal-length byte slices the way a signed
// integer comparator would: each byte is treated as a signed two's
// complement value (-128..127), not its unsigned 0..255 reading. This must
// match the server's comparator bit for bit or the rolling hash will
// silently disagree with it.
func compareSigned(a, b []byte) int {
	for i := range a {
		sa, sb := int8(a[i]), int8(b[i])
		if sa != sb {
			if sa < sb {
				return -1
			}
			return 1
		}
	}
	return 0
}

// newTransactionHash seeds a rolling hash state from a transaction id.
func newTransactionHash(txnID string) qldbHash {
	return hashOf([]byte(txnID))
}

// foldStatement folds one executed statement (its text and, in order, each
// of its serialized parameters) into state, returning the new state.
func foldStatement(state qldbHash, statement string, params [][]byte) qldbHash {
	stmtHash := hashOf([]byte(statement))
	for _, p := range params {
		stmtHash = dot(stmtHash, hashOf(p))
	}
	return dot(state, stmtHash)
}
