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
package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/avdata/data"
)

// Writer saves merged tables as one CSV file per symbol in Dir
type Writer struct {
	Dir string
}

// NewWriter returns a writer for dir, creating the directory if it does not
// exist
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: could not create directory %s: %w", data.ErrWrite, dir, err)
	}

	return &Writer{Dir: dir}, nil
}

// FileName returns the file a symbol is saved to, e.g. BRK/A -> BRK_A.csv
func FileName(symbol string) string {
	symbol = strings.NewReplacer("/", "_", "\\", "_").Replace(symbol)
	return symbol + ".csv"
}

// Path returns the full path of the file a symbol is saved to
func (writer *Writer) Path(symbol string) string {
	return filepath.Join(writer.Dir, FileName(symbol))
}

// Write serializes table to <Dir>/<symbol>.csv with a header row, replacing
// any existing file for the symbol
func (writer *Writer) Write(table *data.Table) (fn string, err error) {
	if table == nil {
		return "", fmt.Errorf("%w: table is nil", data.ErrWrite)
	}

	if table.Symbol == "" {
		return "", fmt.Errorf("%w: table has no symbol", data.ErrWrite)
	}

	fn = writer.Path(table.Symbol)

	fh, err := os.Create(fn)
	if err != nil {
		return "", fmt.Errorf("%w: %w", data.ErrWrite, err)
	}

	defer func() {
		if closeErr := fh.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: %w", data.ErrWrite, closeErr)
		}
	}()

	csvWriter := gocsv.NewSafeCSVWriter(csv.NewWriter(fh))
	if err := csvWriter.Write(table.Columns); err != nil {
		return "", fmt.Errorf("%w: %w", data.ErrWrite, err)
	}

	for _, row := range table.Rows {
		if err := csvWriter.Write(row); err != nil {
			return "", fmt.Errorf("%w: %w", data.ErrWrite, err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return "", fmt.Errorf("%w: %w", data.ErrWrite, err)
	}

	return fn, nil
}

// ReadTable parses a file produced by Write back into a table
func ReadTable(fn string) (*data.Table, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	records, err := gocsv.DefaultCSVReader(fh).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", data.ErrSchema, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s has no header", data.ErrSchema, fn)
	}

	symbol := strings.TrimSuffix(filepath.Base(fn), filepath.Ext(fn))
	table := data.NewTable(symbol, records[0])

	if symbolIdx := table.ColumnIndex(data.SymbolColumn); symbolIdx >= 0 && len(records) > 1 {
		table.Symbol = records[1][symbolIdx]
	}

	for _, record := range records[1:] {
		if err := table.AppendRow(record); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// Remove deletes the CSV files written for symbols; missing files are ignored
func (writer *Writer) Remove(symbols ...string) error {
	var errs []error
	for _, symbol := range symbols {
		if err := os.Remove(writer.Path(symbol)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
