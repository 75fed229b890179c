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
package provider

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/penny-vault/avdata/data"
	"github.com/rs/zerolog"
)

type symbolGroup struct {
	symbol   string
	requests []*data.MetricRequest
}

func (group *symbolGroup) functions() []string {
	functions := make([]string, len(group.requests))
	for idx, req := range group.requests {
		functions[idx] = req.Function
	}
	return functions
}

// groupBySymbol collects the requests of each symbol, ordered by the first
// time a symbol appears
func groupBySymbol(requests []*data.MetricRequest) []*symbolGroup {
	groups := make([]*symbolGroup, 0, len(requests))
	lookup := make(map[string]*symbolGroup, len(requests))

	for _, req := range requests {
		if req == nil {
			continue
		}

		group, ok := lookup[req.Symbol]
		if !ok {
			group = &symbolGroup{symbol: req.Symbol}
			lookup[req.Symbol] = group
			groups = append(groups, group)
		}
		group.requests = append(group.requests, req)
	}

	return groups
}

// Fetch requests every function for every symbol and yields one merged table
// per symbol in the order symbols first appear in requests. Requests run
// concurrently on the fetcher's pool while normalizing and merging happen on
// the caller's goroutine as each symbol's responses become available. Failures
// are reported per symbol through SymbolResult.Err.
func (av *AlphaVantage) Fetch(ctx context.Context, requests []*data.MetricRequest) iter.Seq[*data.SymbolResult] {
	return func(yield func(*data.SymbolResult) bool) {
		logger := zerolog.Ctx(ctx)

		groups := groupBySymbol(requests)
		urls := make([][]string, len(groups))
		buildErrs := make([]error, len(groups))

		// validate everything up front so invalid symbols never hit the network
		for idx, group := range groups {
			for _, req := range group.requests {
				url, err := av.BuildURL(req)
				if err != nil {
					buildErrs[idx] = err
					urls[idx] = nil
					break
				}
				urls[idx] = append(urls[idx], url)
			}
		}

		for idx, responses := range av.fetcher.StreamGroups(ctx, urls) {
			group := groups[idx]
			result := &data.SymbolResult{
				Symbol:    group.symbol,
				Functions: group.functions(),
			}

			if buildErrs[idx] != nil {
				result.Err = buildErrs[idx]
			} else {
				result.Table, result.Err = av.assemble(group, responses)
			}

			if result.Err != nil {
				logger.Debug().Err(result.Err).Str("Symbol", group.symbol).Strs("Functions", result.Functions).Msg("symbol failed")
			}

			if !yield(result) {
				return
			}
		}
	}
}

func (av *AlphaVantage) assemble(group *symbolGroup, responses []*Response) (*data.Table, error) {
	if len(responses) != len(group.requests) {
		return nil, fmt.Errorf("expected %d responses for %q but received %d", len(group.requests), group.symbol, len(responses))
	}

	tables := make([]*data.Table, 0, len(responses))
	for idx, resp := range responses {
		req := group.requests[idx]

		if resp.Err != nil {
			return nil, fmt.Errorf("%s: %w", req.Function, resp.Err)
		}

		if !resp.OK() {
			return nil, fmt.Errorf("%s: %w", req.Function, &data.HTTPStatusError{
				StatusCode: resp.StatusCode,
				URL:        redactURL(resp.URL),
				Body:       resp.Body,
			})
		}

		table, err := Normalize(resp.Body, req.Symbol, WithPeriod(req.Param(data.PeriodParam, AnnualPeriod)))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req.Function, err)
		}

		tables = append(tables, table)
	}

	disambiguate(tables, group.requests)

	return data.Merge(tables, av.Join)
}

// labelKeys are the request attributes that can tell two tables apart, in
// the order they appear in a column label
var labelKeys = []string{
	"function",
	data.TimePeriodParam,
	data.SeriesTypeParam,
	data.IntervalParam,
	data.OutputSizeParam,
	data.PeriodParam,
}

func labelValue(req *data.MetricRequest, key string) string {
	if key == "function" {
		return req.Function
	}
	return req.Param(key, "")
}

// disambiguate renames metric columns produced by more than one request so
// no values are lost in the merge, e.g. SMA for time periods 20 and 50
// becomes SMA_20 and SMA_50. The label is built from the request attributes
// that differ between the colliding requests.
func disambiguate(tables []*data.Table, requests []*data.MetricRequest) {
	owners := make(map[string][]int)
	for idx, table := range tables {
		for _, col := range table.MetricColumns() {
			owners[col] = append(owners[col], idx)
		}
	}

	used := make(map[string]bool)
	for _, table := range tables {
		for _, col := range table.Columns {
			used[col] = true
		}
	}

	for _, col := range slices.Sorted(maps.Keys(owners)) {
		tableIdxs := owners[col]
		if len(tableIdxs) < 2 {
			continue
		}

		differing := make([]string, 0, len(labelKeys))
		for _, key := range labelKeys {
			first := labelValue(requests[tableIdxs[0]], key)
			for _, idx := range tableIdxs[1:] {
				if labelValue(requests[idx], key) != first {
					differing = append(differing, key)
					break
				}
			}
		}

		for pos, idx := range tableIdxs {
			parts := []string{col}
			for _, key := range differing {
				if val := labelValue(requests[idx], key); val != "" {
					parts = append(parts, val)
				}
			}
			if len(parts) == 1 {
				parts = append(parts, strconv.Itoa(pos+1))
			}

			name := strings.Join(parts, "_")
			for n := 2; used[name]; n++ {
				name = fmt.Sprintf("%s_%d", strings.Join(parts, "_"), n)
			}
			used[name] = true

			table := tables[idx]
			table.Columns[table.ColumnIndex(col)] = name
		}
	}
}
