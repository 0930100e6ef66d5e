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
	"fmt"

	"github.com/amazon-ion/ion-go/ion"
)

// marshalParam encodes a single user-supplied parameter into the ledger's
// binary document format (Amazon Ion). Encoding happens eagerly, before any
// network call, so a bad parameter never reaches the wire.
func marshalParam(v interface{}) ([]byte, error) {
	b, err := ion.MarshalBinary(v)
	if err != nil {
		return nil, newDriverError(CodeSerializationError, fmt.Sprintf("encoding parameter %#v", v), err)
	}
	return b, nil
}

// marshalParams encodes params in declared order. If any parameter fails to
// encode, it returns only the error -- callers must not fold a partial
// prefix of the result into the rolling hash, since none of it was produced.
func marshalParams(params []interface{}) ([][]byte, error) {
	out := make([][]byte, 0, len(params))
	for _, p := range params {
		b, err := marshalParam(p)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// unmarshalValue decodes one Ion-encoded document value returned by the
// ledger into a generic Go representation.
func unmarshalValue(b []byte) (interface{}, error) {
	var v interface{}
	if err := ion.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decoding result document: %w", err)
	}
	return v, nil
}
