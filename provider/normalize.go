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
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/avdata/data"
	"github.com/tidwall/gjson"
)

const (
	MetadataKey = "Meta Data"

	AnnualPeriod    = "annual"
	QuarterlyPeriod = "quarterly"
)

var (
	// API level messages that come back with a 200 status
	messageKeys = []string{"Error Message", "Note", "Information"}

	// CSV endpoints that name their timestamp column differently
	timestampAliases = []string{"time", "date"}

	metaPrefix = regexp.MustCompile(`^[0-9]+[.:]\s*`)

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

type normalizeConfig struct {
	period string
}

type NormalizeOption func(*normalizeConfig)

// WithPeriod selects annual or quarterly reports for fundamentals payloads
func WithPeriod(period string) NormalizeOption {
	return func(cfg *normalizeConfig) {
		cfg.period = strings.ToLower(period)
	}
}

// Normalize converts a raw payload into a table whose first columns are
// symbol and timestamp. CSV payloads carry no symbol so the caller supplied
// one is used; JSON payloads read it from their metadata.
func Normalize(body []byte, symbol string, opts ...NormalizeOption) (*data.Table, error) {
	cfg := &normalizeConfig{period: AnnualPeriod}
	for _, opt := range opts {
		opt(cfg)
	}

	body = bytes.TrimPrefix(bytes.TrimSpace(body), utf8BOM)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty payload", data.ErrSchema)
	}

	switch body[0] {
	case '{':
		return normalizeJSON(body, symbol, cfg)
	case '[':
		return nil, fmt.Errorf("%w: payload is a JSON array, expected an object or a CSV table", data.ErrSchema)
	default:
		return normalizeCSV(body, symbol)
	}
}

func normalizeCSV(body []byte, symbol string) (*data.Table, error) {
	records, err := gocsv.DefaultCSVReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: could not parse csv: %w", data.ErrSchema, err)
	}

	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("%w: csv payload has no header", data.ErrSchema)
	}

	header := data.CleanColumns(records[0])

	symbolIdx := indexOf(header, data.SymbolColumn)
	timestampIdx := indexOf(header, data.TimestampColumn)
	if timestampIdx < 0 {
		for _, alias := range timestampAliases {
			if timestampIdx = indexOf(header, alias); timestampIdx >= 0 {
				break
			}
		}
	}

	if timestampIdx < 0 {
		return nil, fmt.Errorf("%w: csv header %v has no %s column", data.ErrSchema, header, data.TimestampColumn)
	}

	// symbol first, timestamp second, then everything else in original order
	order := []int{timestampIdx}
	columns := []string{data.SymbolColumn, data.TimestampColumn}
	for idx, col := range header {
		if idx == symbolIdx || idx == timestampIdx {
			continue
		}
		order = append(order, idx)
		columns = append(columns, col)
	}

	table := data.NewTable(symbol, columns)
	for _, record := range records[1:] {
		row := make([]string, 0, len(columns))

		rowSymbol := symbol
		if symbolIdx >= 0 {
			rowSymbol = resolveSymbol(symbol, record[symbolIdx])
		}
		row = append(row, rowSymbol)

		for _, idx := range order {
			row = append(row, record[idx])
		}

		if err := table.AppendRow(row); err != nil {
			return nil, err
		}
	}

	return table, nil
}

type jsonEntry struct {
	key   string
	value gjson.Result
}

func objectEntries(obj gjson.Result) []jsonEntry {
	entries := make([]jsonEntry, 0)
	obj.ForEach(func(key, value gjson.Result) bool {
		entries = append(entries, jsonEntry{key: key.String(), value: value})
		return true
	})
	return entries
}

// resolveSymbol picks the symbol a table is labeled with. The payload symbol
// wins unless it only differs from the requested one by case.
func resolveSymbol(requested, payload string) string {
	if payload == "" || strings.EqualFold(requested, payload) {
		return requested
	}
	return payload
}

func normalizeJSON(body []byte, symbol string, cfg *normalizeConfig) (*data.Table, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json payload", data.ErrSchema)
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: json payload is not an object", data.ErrSchema)
	}

	entries := objectEntries(root)

	if meta := root.Get(MetadataKey); meta.Exists() {
		return normalizeTimeSeries(entries, meta, symbol)
	}

	for _, key := range messageKeys {
		if msg := root.Get(key); msg.Exists() {
			return nil, fmt.Errorf("%w: api returned %q: %s", data.ErrSchema, key, msg.String())
		}
	}

	if root.Get("symbol").Exists() {
		return normalizeReports(entries, root.Get("symbol").String(), symbol, cfg.period)
	}

	if root.Get("Symbol").Exists() {
		return normalizeOverview(entries, resolveSymbol(symbol, root.Get("Symbol").String()))
	}

	return nil, fmt.Errorf("%w: json payload has no %q key", data.ErrSchema, MetadataKey)
}

// normalizeTimeSeries handles payloads with a metadata block and a single
// object keyed by timestamp
func normalizeTimeSeries(entries []jsonEntry, meta gjson.Result, requested string) (*data.Table, error) {
	symbol := ""
	meta.ForEach(func(key, value gjson.Result) bool {
		name := strings.TrimSpace(metaPrefix.ReplaceAllString(strings.TrimSpace(key.String()), ""))
		if strings.EqualFold(name, data.SymbolColumn) {
			symbol = value.String()
			return false
		}
		return true
	})

	if symbol == "" {
		return nil, fmt.Errorf("%w: %q block has no symbol", data.ErrSchema, MetadataKey)
	}
	symbol = resolveSymbol(requested, symbol)

	var series *jsonEntry
	for idx := range entries {
		if entries[idx].key != MetadataKey && entries[idx].value.IsObject() {
			series = &entries[idx]
			break
		}
	}

	if series == nil {
		return nil, fmt.Errorf("%w: payload for %q has no data besides %q", data.ErrSchema, symbol, MetadataKey)
	}

	observations := objectEntries(series.value)
	for _, obs := range observations {
		if !obs.value.IsObject() {
			return nil, fmt.Errorf("%w: entry %q under %q is not an object", data.ErrSchema, obs.key, series.key)
		}
	}

	return buildTable(symbol, observations, func(obs jsonEntry) (string, []jsonEntry) {
		return obs.key, objectEntries(obs.value)
	})
}

// normalizeReports handles fundamentals payloads which hold arrays of
// reports, e.g. annualReports and quarterlyReports
func normalizeReports(entries []jsonEntry, payloadSymbol, symbol, period string) (*data.Table, error) {
	symbol = resolveSymbol(symbol, payloadSymbol)

	var reports *jsonEntry
	for idx := range entries {
		if strings.HasPrefix(strings.ToLower(entries[idx].key), period) && entries[idx].value.IsArray() {
			reports = &entries[idx]
			break
		}
	}

	if reports == nil {
		return nil, fmt.Errorf("%w: payload for %q has no %s reports", data.ErrSchema, symbol, period)
	}

	observations := make([]jsonEntry, 0)
	for _, report := range reports.value.Array() {
		if !report.IsObject() {
			return nil, fmt.Errorf("%w: %q contains a value that is not an object", data.ErrSchema, reports.key)
		}
		observations = append(observations, jsonEntry{
			key:   report.Get("fiscalDateEnding").String(),
			value: report,
		})
	}

	return buildTable(symbol, observations, func(obs jsonEntry) (string, []jsonEntry) {
		fields := objectEntries(obs.value)
		metrics := make([]jsonEntry, 0, len(fields))
		for _, field := range fields {
			if field.key != "fiscalDateEnding" {
				metrics = append(metrics, field)
			}
		}
		return obs.key, metrics
	})
}

// normalizeOverview turns the flat OVERVIEW object into a single row dated
// by its LatestQuarter field
func normalizeOverview(entries []jsonEntry, symbol string) (*data.Table, error) {
	timestamp := ""
	metrics := make([]jsonEntry, 0, len(entries))
	for _, entry := range entries {
		switch entry.key {
		case "Symbol":
		case "LatestQuarter":
			timestamp = entry.value.String()
		default:
			metrics = append(metrics, entry)
		}
	}

	if timestamp == "" {
		return nil, fmt.Errorf("%w: overview for %q has no LatestQuarter", data.ErrSchema, symbol)
	}

	observation := jsonEntry{key: timestamp}
	return buildTable(symbol, []jsonEntry{observation}, func(obs jsonEntry) (string, []jsonEntry) {
		return obs.key, metrics
	})
}

// buildTable lays out observations as rows. Columns are the union of every
// observation's fields in the order they were first seen.
func buildTable(symbol string, observations []jsonEntry, fields func(jsonEntry) (string, []jsonEntry)) (*data.Table, error) {
	type row struct {
		timestamp string
		values    map[string]string
	}

	columns := []string{data.SymbolColumn, data.TimestampColumn}
	known := make(map[string]bool)
	rows := make([]row, 0, len(observations))

	for _, obs := range observations {
		timestamp, metrics := fields(obs)
		values := make(map[string]string, len(metrics))
		for _, metric := range metrics {
			col := data.CleanColumn(metric.key)
			if col == data.SymbolColumn || col == data.TimestampColumn {
				continue
			}
			if !known[col] {
				known[col] = true
				columns = append(columns, col)
			}
			values[col] = metric.value.String()
		}
		rows = append(rows, row{timestamp: timestamp, values: values})
	}

	table := data.NewTable(symbol, columns)
	for _, r := range rows {
		values := make([]string, len(columns))
		values[0] = symbol
		values[1] = r.timestamp
		for idx, col := range columns[2:] {
			values[idx+2] = r.values[col]
		}
		if err := table.AppendRow(values); err != nil {
			return nil, err
		}
	}

	return table, nil
}

func indexOf(columns []string, name string) int {
	for idx, col := range columns {
		if col == name {
			return idx
		}
	}
	return -1
}
