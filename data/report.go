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
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
)

type ItemResult struct {
	Symbol    string     `json:"symbol"`
	Batch     int        `json:"batch"`
	Status    ItemStatus `json:"status"`
	Functions []string   `json:"functions"`
	NumRows   int        `json:"num_rows"`
	FileName  string     `json:"file_name,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// BatchReport collects the outcome of every symbol processed during a run
type BatchReport struct {
	RunID      uuid.UUID     `json:"run_id"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	NumBatches int           `json:"num_batches"`
	Items      []*ItemResult `json:"items"`
}

func NewBatchReport() *BatchReport {
	return &BatchReport{
		RunID:     uuid.New(),
		StartTime: time.Now(),
		Items:     make([]*ItemResult, 0),
	}
}

// Success records a symbol that was written to fn
func (report *BatchReport) Success(batch int, result *SymbolResult, fn string) {
	report.Items = append(report.Items, &ItemResult{
		Symbol:    result.Symbol,
		Batch:     batch,
		Status:    ItemSuccess,
		Functions: result.Functions,
		NumRows:   result.Table.Len(),
		FileName:  fn,
	})
}

// Failure records a symbol that could not be fetched, normalized or written
func (report *BatchReport) Failure(batch int, symbol string, functions []string, err error) {
	report.Items = append(report.Items, &ItemResult{
		Symbol:    symbol,
		Batch:     batch,
		Status:    ItemFailed,
		Functions: functions,
		Error:     err.Error(),
	})
}

func (report *BatchReport) Finish() {
	report.EndTime = time.Now()
}

func (report *BatchReport) Succeeded() []*ItemResult {
	return report.filter(ItemSuccess)
}

func (report *BatchReport) Failed() []*ItemResult {
	return report.filter(ItemFailed)
}

// NumRows is the total number of rows written across all symbols
func (report *BatchReport) NumRows() int {
	total := 0
	for _, item := range report.Items {
		total += item.NumRows
	}
	return total
}

func (report *BatchReport) filter(status ItemStatus) []*ItemResult {
	items := make([]*ItemResult, 0, len(report.Items))
	for _, item := range report.Items {
		if item.Status == status {
			items = append(items, item)
		}
	}
	return items
}

func (report *BatchReport) MarshalZerologObject(e *zerolog.Event) {
	e.Str("RunID", report.RunID.String())
	e.Int("NumBatches", report.NumBatches)
	e.Int("NumSucceeded", len(report.Succeeded()))
	e.Int("NumFailed", len(report.Failed()))
	e.Int("NumRows", report.NumRows())
}
