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
	"cmp"
	"fmt"
	"slices"
	"strings"
)

type JoinPolicy string

const (
	// JoinOuter keeps the union of timestamps. Indicator series have
	// different warm-up windows so this is the default.
	JoinOuter JoinPolicy = "outer"
	JoinInner JoinPolicy = "inner"
)

// ParseJoinPolicy converts a user supplied string into a JoinPolicy
func ParseJoinPolicy(policy string) (JoinPolicy, error) {
	switch JoinPolicy(strings.ToLower(strings.TrimSpace(policy))) {
	case JoinOuter, "":
		return JoinOuter, nil
	case JoinInner:
		return JoinInner, nil
	default:
		return "", fmt.Errorf("%w: unknown join policy %q", ErrInvalidParameter, policy)
	}
}

// Merge joins the tables of a single symbol on (symbol, timestamp). Rows of
// the merged table are ordered newest first, including when only one table is
// given; the input tables are never modified. A shared metric column must not
// hold two different values for the same key.
func Merge(tables []*Table, policy JoinPolicy) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables to merge", ErrMerge)
	}

	symbol := ""
	for idx, table := range tables {
		if table == nil {
			return nil, fmt.Errorf("%w: table %d is nil", ErrMerge, idx)
		}

		if !table.HasKeys() {
			return nil, fmt.Errorf("%w: table %d for %q is missing the %s/%s join keys", ErrMerge, idx, table.Symbol, SymbolColumn, TimestampColumn)
		}

		if symbol == "" {
			symbol = table.Symbol
		} else if table.Symbol != "" && table.Symbol != symbol {
			return nil, fmt.Errorf("%w: cannot merge table for %q into %q", ErrMerge, table.Symbol, symbol)
		}
	}

	merged := tables[0].Clone()
	for _, table := range tables[1:] {
		var err error
		if merged, err = join(merged, table, policy); err != nil {
			return nil, err
		}
	}

	merged.Symbol = symbol

	tsIdx := merged.ColumnIndex(TimestampColumn)
	slices.SortStableFunc(merged.Rows, func(a, b []string) int {
		return cmp.Compare(b[tsIdx], a[tsIdx])
	})

	return merged, nil
}

func join(left, right *Table, policy JoinPolicy) (*Table, error) {
	leftMetrics := left.MetricColumns()
	rightMetrics := right.MetricColumns()

	// shared non-key columns must agree on kind
	for _, col := range rightMetrics {
		if !slices.Contains(leftMetrics, col) {
			continue
		}

		leftKind := left.Kind(col)
		rightKind := right.Kind(col)
		if leftKind != EmptyColumn && rightKind != EmptyColumn && leftKind != rightKind {
			return nil, fmt.Errorf("%w: column %q is %s in one table and %s in another", ErrMerge, col, leftKind, rightKind)
		}
	}

	columns := []string{SymbolColumn, TimestampColumn}
	columns = append(columns, leftMetrics...)
	for _, col := range rightMetrics {
		if !slices.Contains(leftMetrics, col) {
			columns = append(columns, col)
		}
	}

	out := NewTable(left.Symbol, columns)

	leftIdx := columnPositions(left, columns)
	rightIdx := columnPositions(right, columns)

	rightRows := make(map[string]int, len(right.Rows))
	for idx, row := range right.Rows {
		rightRows[rowKey(right, row)] = idx
	}

	seen := make(map[string]bool, len(left.Rows))
	for _, leftRow := range left.Rows {
		key := rowKey(left, leftRow)
		seen[key] = true

		rowIdx, ok := rightRows[key]
		if !ok && policy == JoinInner {
			continue
		}

		var rightRow []string
		if ok {
			rightRow = right.Rows[rowIdx]
		}

		row, err := combine(columns, leftRow, leftIdx, rightRow, rightIdx)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, row)
	}

	if policy != JoinInner {
		for _, rightRow := range right.Rows {
			key := rowKey(right, rightRow)
			if seen[key] {
				continue
			}
			seen[key] = true
			row, err := combine(columns, nil, leftIdx, rightRow, rightIdx)
			if err != nil {
				return nil, err
			}
			out.Rows = append(out.Rows, row)
		}
	}

	return out, nil
}

// columnPositions maps each output column to its index in table or -1
func columnPositions(table *Table, columns []string) []int {
	positions := make([]int, len(columns))
	for idx, col := range columns {
		positions[idx] = table.ColumnIndex(col)
	}
	return positions
}

// combine builds an output row. A shared column takes whichever value is set;
// two different non-empty values are a conflict.
func combine(columns []string, leftRow []string, leftIdx []int, rightRow []string, rightIdx []int) ([]string, error) {
	row := make([]string, len(columns))
	for idx, col := range columns {
		if leftRow != nil && leftIdx[idx] >= 0 {
			row[idx] = leftRow[leftIdx[idx]]
		}

		if rightRow == nil || rightIdx[idx] < 0 {
			continue
		}

		rightVal := rightRow[rightIdx[idx]]
		switch {
		case row[idx] == "":
			row[idx] = rightVal
		case rightVal != "" && rightVal != row[idx]:
			return nil, fmt.Errorf("%w: column %q has conflicting values %q and %q at %s", ErrMerge, col, row[idx], rightVal, strings.Join(row[:2], " "))
		}
	}
	return row, nil
}

func rowKey(table *Table, row []string) string {
	return row[table.ColumnIndex(SymbolColumn)] + "\x00" + row[table.ColumnIndex(TimestampColumn)]
}
