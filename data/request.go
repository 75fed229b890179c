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

const (
	OutputSizeParam = "outputsize"
	IntervalParam   = "interval"
	TimePeriodParam = "time_period"
	SeriesTypeParam = "series_type"
	DataTypeParam   = "datatype"
	PeriodParam     = "period"
)

// MetricRequest identifies one API call
type MetricRequest struct {
	Symbol   string
	Function string
	Params   map[string]string
}

// Param returns the named parameter or the fallback when it is unset
func (req *MetricRequest) Param(name, fallback string) string {
	if val, ok := req.Params[name]; ok && val != "" {
		return val
	}
	return fallback
}

// SymbolResult is the outcome of fetching every requested function for a
// single symbol. Exactly one of Table and Err is set.
type SymbolResult struct {
	Symbol    string
	Functions []string
	Table     *Table
	Err       error
}

func (result *SymbolResult) Failed() bool {
	return result.Err != nil
}
