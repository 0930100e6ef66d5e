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

import "github.com/sirupsen/logrus"

// fieldLogger is the subset of *logrus.Logger/Entry this package depends on,
// so callers may pass either.
type fieldLogger interface {
	WithFields(fields logrus.Fields) *logrus.Entry
}

func defaultLogger() fieldLogger {
	return logrus.StandardLogger()
}
