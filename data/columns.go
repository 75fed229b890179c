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
	"regexp"
	"strings"
	"unicode"
)

const (
	SymbolColumn    = "symbol"
	TimestampColumn = "timestamp"
)

var numericPrefix = regexp.MustCompile(`^[0-9]+\.\s+`)

// CleanColumn normalizes a column name returned by the API, e.g. "4. close"
// becomes "close" and "adjusted close" becomes "adjusted_close".
func CleanColumn(name string) string {
	name = strings.TrimSpace(name)
	name = numericPrefix.ReplaceAllString(name, "")

	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}

// CleanColumns returns a new slice with every column cleaned
func CleanColumns(names []string) []string {
	cleaned := make([]string, len(names))
	for idx, name := range names {
		cleaned[idx] = CleanColumn(name)
	}
	return cleaned
}
