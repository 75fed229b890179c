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
package batch

import (
	"maps"

	"github.com/penny-vault/avdata/data"
)

// RequestsFor returns a builder that requests every function for a symbol
// with the same parameters. Each request receives its own copy of params.
func RequestsFor(functions []string, params map[string]string) RequestBuilder {
	return func(symbol string) []*data.MetricRequest {
		requests := make([]*data.MetricRequest, 0, len(functions))
		for _, function := range functions {
			requests = append(requests, &data.MetricRequest{
				Symbol:   symbol,
				Function: function,
				Params:   maps.Clone(params),
			})
		}
		return requests
	}
}
