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
	"context"
	"errors"
	"iter"
	"time"

	"github.com/penny-vault/avdata/data"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBatchSize is the number of symbols submitted to the source at once
const DefaultBatchSize = 25

// Source produces one merged result per symbol for a list of requests
type Source interface {
	Fetch(ctx context.Context, requests []*data.MetricRequest) iter.Seq[*data.SymbolResult]
}

// Sink persists a merged table and returns where it was stored
type Sink interface {
	Write(table *data.Table) (string, error)
}

// RequestBuilder expands a symbol into the requests needed to fetch it
type RequestBuilder func(symbol string) []*data.MetricRequest

// Driver splits a symbol universe into batches and feeds each through Source,
// writing every successful table to Writer
type Driver struct {
	Source    Source
	Writer    Sink
	BatchSize int
	Sleep     time.Duration

	// ProgressInterval controls how often progress is logged
	ProgressInterval time.Duration
}

// Batches splits symbols into consecutive chunks of at most size symbols
func Batches(symbols []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}

	batches := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := min(start+size, len(symbols))
		batches = append(batches, symbols[start:end])
	}

	return batches
}

// Run fetches every symbol and records the outcome of each in the returned
// report. A failing symbol never stops the run; only context cancellation
// ends it early, in which case the partial report is returned with ctx.Err().
func (driver *Driver) Run(ctx context.Context, symbols []string, build RequestBuilder) (*data.BatchReport, error) {
	logger := zerolog.Ctx(ctx)
	report := data.NewBatchReport()
	defer report.Finish()

	if driver.Source == nil || driver.Writer == nil {
		return report, errors.New("batch driver requires a source and a writer")
	}

	interval := driver.ProgressInterval
	if interval == 0 {
		interval = 60 * time.Second
	}

	sometimes := rate.Sometimes{Interval: interval}
	started := time.Now()
	completed := 0

	batches := Batches(symbols, driver.BatchSize)
	report.NumBatches = len(batches)

	for batchNum, batch := range batches {
		if batchNum > 0 && driver.Sleep > 0 {
			logger.Debug().Dur("Sleep", driver.Sleep).Int("Batch", batchNum+1).Msg("waiting before next batch")
			if err := sleep(ctx, driver.Sleep); err != nil {
				return report, err
			}
		}

		requests := make([]*data.MetricRequest, 0, len(batch))
		for _, symbol := range batch {
			requests = append(requests, build(symbol)...)
		}

		for result := range driver.Source.Fetch(ctx, requests) {
			completed++
			driver.record(ctx, report, batchNum+1, result)

			sometimes.Do(func() {
				perItem := time.Since(started) / time.Duration(completed)
				timeLeft := perItem * time.Duration(len(symbols)-completed)
				logger.Info().Int("Completed", completed).Int("NumSymbolsLeft", len(symbols)-completed).
					Int("Batch", batchNum+1).Int("NumBatches", len(batches)).
					Str("SinceStarted", time.Since(started).Round(time.Second).String()).
					Str("ETA", timeLeft.Round(time.Second).String()).Msg("fetch progress")
			})
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	return report, nil
}

func (driver *Driver) record(ctx context.Context, report *data.BatchReport, batchNum int, result *data.SymbolResult) {
	logger := zerolog.Ctx(ctx)

	if result.Failed() || result.Table == nil {
		err := result.Err
		if err == nil {
			err = errors.New("no data returned")
		}

		logger.Error().Err(err).Str("Symbol", result.Symbol).Int("Batch", batchNum).Msg("fetch symbol failed")
		report.Failure(batchNum, result.Symbol, result.Functions, err)
		return
	}

	fn, err := driver.Writer.Write(result.Table)
	if err != nil {
		logger.Error().Err(err).Str("Symbol", result.Symbol).Int("Batch", batchNum).Msg("write symbol failed")
		report.Failure(batchNum, result.Symbol, result.Functions, err)
		return
	}

	logger.Debug().Str("Symbol", result.Symbol).Str("FileName", fn).Int("NumRows", result.Table.Len()).Msg("wrote symbol")
	report.Success(batchNum, result, fn)
}

func sleep(ctx context.Context, dur time.Duration) error {
	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
