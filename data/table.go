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
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type ColumnKind int

const (
	EmptyColumn ColumnKind = iota
	NumericColumn
	TextColumn
)

func (kind ColumnKind) String() string {
	switch kind {
	case NumericColumn:
		return "numeric"
	case TextColumn:
		return "text"
	default:
		return "empty"
	}
}

// Table is a set of rows keyed by (symbol, timestamp). Columns[0] is always
// `symbol` and Columns[1] is `timestamp` for tables produced by the normalizer;
// every row has exactly len(Columns) values.
type Table struct {
	Symbol  string
	Columns []string
	Rows    [][]string
}

// NewTable creates an empty table with the given columns
func NewTable(symbol string, columns []string) *Table {
	return &Table{
		Symbol:  symbol,
		Columns: columns,
		Rows:    make([][]string, 0),
	}
}

// Clone returns a deep copy of the table
func (table *Table) Clone() *Table {
	out := &Table{
		Symbol:  table.Symbol,
		Columns: slices.Clone(table.Columns),
		Rows:    make([][]string, len(table.Rows)),
	}
	for idx, row := range table.Rows {
		out.Rows[idx] = slices.Clone(row)
	}
	return out
}

func (table *Table) Len() int {
	return len(table.Rows)
}

// ColumnIndex returns the position of the named column or -1
func (table *Table) ColumnIndex(name string) int {
	for idx, col := range table.Columns {
		if col == name {
			return idx
		}
	}
	return -1
}

// HasKeys reports whether both join key columns are present
func (table *Table) HasKeys() bool {
	return table.ColumnIndex(SymbolColumn) >= 0 && table.ColumnIndex(TimestampColumn) >= 0
}

// MetricColumns returns every column that is not a join key
func (table *Table) MetricColumns() []string {
	metrics := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		if col == SymbolColumn || col == TimestampColumn {
			continue
		}
		metrics = append(metrics, col)
	}
	return metrics
}

// Value returns the value stored in the named column of row idx
func (table *Table) Value(idx int, column string) (string, bool) {
	colIdx := table.ColumnIndex(column)
	if colIdx < 0 || idx < 0 || idx >= len(table.Rows) {
		return "", false
	}
	return table.Rows[idx][colIdx], true
}

// Timestamps lists the timestamp of each row in row order
func (table *Table) Timestamps() []string {
	colIdx := table.ColumnIndex(TimestampColumn)
	if colIdx < 0 {
		return nil
	}

	timestamps := make([]string, len(table.Rows))
	for idx, row := range table.Rows {
		timestamps[idx] = row[colIdx]
	}
	return timestamps
}

// Kind infers the kind of a column from its values
func (table *Table) Kind(column string) ColumnKind {
	colIdx := table.ColumnIndex(column)
	if colIdx < 0 {
		return EmptyColumn
	}

	kind := EmptyColumn
	for _, row := range table.Rows {
		val := strings.TrimSpace(row[colIdx])
		if val == "" {
			continue
		}
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			return TextColumn
		}
		kind = NumericColumn
	}
	return kind
}

// AppendRow adds a row; the row must have one value per column
func (table *Table) AppendRow(row []string) error {
	if len(row) != len(table.Columns) {
		return fmt.Errorf("%w: row has %d values but table has %d columns", ErrSchema, len(row), len(table.Columns))
	}
	table.Rows = append(table.Rows, row)
	return nil
}

// Equal compares the shape and content of two tables
func (table *Table) Equal(other *Table) bool {
	if other == nil || table.Symbol != other.Symbol || len(table.Rows) != len(other.Rows) {
		return false
	}

	if !slices.Equal(table.Columns, other.Columns) {
		return false
	}

	for idx, row := range table.Rows {
		if !slices.Equal(row, other.Rows[idx]) {
			return false
		}
	}

	return true
}
