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
package batch_test

import (
	"context"
	"errors"
	"iter"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/avdata/batch"
	"github.com/penny-vault/avdata/data"
)

var errUnavailable = errors.New("unavailable")

// fakeSource fails any symbol listed in failing and records each call
type fakeSource struct {
	failing map[string]bool
	calls   [][]*data.MetricRequest
}

func (src *fakeSource) Fetch(ctx context.Context, requests []*data.MetricRequest) iter.Seq[*data.SymbolResult] {
	src.calls = append(src.calls, requests)

	return func(yield func(*data.SymbolResult) bool) {
		for _, req := range requests {
			result := &data.SymbolResult{Symbol: req.Symbol, Functions: []string{req.Function}}
			if src.failing[req.Symbol] {
				result.Err = errUnavailable
			} else {
				result.Table = data.NewTable(req.Symbol, []string{data.SymbolColumn, data.TimestampColumn, "close"})
				result.Table.Rows = append(result.Table.Rows, []string{req.Symbol, "2024-01-02", "1.0"})
			}
			if !yield(result) {
				return
			}
		}
	}
}

type memorySink struct {
	written []string
	broken  string
}

func (sink *memorySink) Write(table *data.Table) (string, error) {
	if table.Symbol == sink.broken {
		return "", data.ErrWrite
	}
	sink.written = append(sink.written, table.Symbol)
	return table.Symbol + ".csv", nil
}

var _ = Describe("Driver", func() {
	var (
		src  *fakeSource
		sink *memorySink
	)

	build := batch.RequestsFor([]string{"TIME_SERIES_DAILY"}, map[string]string{data.OutputSizeParam: "full"})

	BeforeEach(func() {
		src = &fakeSource{failing: map[string]bool{}}
		sink = &memorySink{}
	})

	It("splits symbols into batches", func() {
		Expect(batch.Batches([]string{"A", "B", "C", "D", "E"}, 2)).To(Equal([][]string{{"A", "B"}, {"C", "D"}, {"E"}}))
		Expect(batch.Batches(nil, 2)).To(BeEmpty())
		Expect(batch.Batches([]string{"A"}, 0)).To(Equal([][]string{{"A"}}))
	})

	It("continues after failing symbols and records every outcome", func() {
		src.failing["BAD"] = true
		sink.broken = "MSFT"

		driver := &batch.Driver{Source: src, Writer: sink, BatchSize: 2}
		report, err := driver.Run(context.Background(), []string{"AAPL", "BAD", "MSFT", "IBM", "TSLA"}, build)
		Expect(err).NotTo(HaveOccurred())

		Expect(src.calls).To(HaveLen(3))
		Expect(report.NumBatches).To(Equal(3))
		Expect(sink.written).To(Equal([]string{"AAPL", "IBM", "TSLA"}))

		Expect(report.Items).To(HaveLen(5))
		Expect(report.Failed()).To(HaveLen(2))
		Expect(report.Failed()[0].Symbol).To(Equal("BAD"))
		Expect(report.Failed()[0].Error).To(Equal(errUnavailable.Error()))
		Expect(report.Failed()[1].Symbol).To(Equal("MSFT"))
		Expect(report.Failed()[1].Batch).To(Equal(2))
		Expect(report.Succeeded()[2].FileName).To(Equal("TSLA.csv"))
		Expect(report.EndTime).NotTo(BeZero())
	})

	It("gives every request its own parameters", func() {
		requests := build("IBM")
		Expect(requests).To(HaveLen(1))
		requests[0].Params["outputsize"] = "compact"
		Expect(build("IBM")[0].Params["outputsize"]).To(Equal("full"))
	})

	It("sleeps between batches but not before the first", func() {
		driver := &batch.Driver{Source: src, Writer: sink, BatchSize: 1, Sleep: 20 * time.Millisecond}

		start := time.Now()
		_, err := driver.Run(context.Background(), []string{"A", "B", "C"}, build)
		Expect(err).NotTo(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically(">=", 40*time.Millisecond))
	})

	It("stops when the context is cancelled while sleeping", func() {
		driver := &batch.Driver{Source: src, Writer: sink, BatchSize: 1, Sleep: time.Hour}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		report, err := driver.Run(ctx, []string{"A", "B"}, build)
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(report.Items).To(HaveLen(1))
		Expect(src.calls).To(HaveLen(1))
	})

	It("requires a source and writer", func() {
		_, err := (&batch.Driver{}).Run(context.Background(), []string{"A"}, build)
		Expect(err).To(HaveOccurred())
	})
})
