// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package data

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter = errors.New("invalid request parameter")
	ErrSchema           = errors.New("payload does not match a known schema")
	ErrMerge            = errors.New("tables cannot be merged")
	ErrWrite            = errors.New("could not write table")
	ErrHTTPStatus       = errors.New("invalid status code received")
	ErrFetcherClosed    = errors.New("fetcher is closed")
)

// HTTPStatusError is returned when the API answers with a non-2xx status. The
// body is kept so the caller can inspect what the server said.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s (%d): %s", ErrHTTPStatus, e.StatusCode, truncate(string(e.Body), 256))
}

func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
