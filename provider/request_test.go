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
package provider_test

import (
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/avdata/data"
	"github.com/penny-vault/avdata/provider"
)

var _ = Describe("BuildURL", func() {
	var av *provider.AlphaVantage

	BeforeEach(func() {
		av = provider.New("demo", nil)
	})

	It("builds a time series url with the api key last", func() {
		rawURL, err := av.BuildURL(&data.MetricRequest{
			Symbol:   "IBM",
			Function: "TIME_SERIES_DAILY_ADJUSTED",
			Params:   map[string]string{data.OutputSizeParam: "full"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(rawURL).To(Equal("https://www.alphavantage.co/query?function=TIME_SERIES_DAILY_ADJUSTED&symbol=IBM&outputsize=full&datatype=csv&apikey=demo"))
	})

	It("defaults outputsize to compact", func() {
		rawURL, err := av.BuildURL(&data.MetricRequest{Symbol: "IBM", Function: "TIME_SERIES_WEEKLY"})
		Expect(err).NotTo(HaveOccurred())
		Expect(rawURL).To(ContainSubstring("outputsize=compact"))
	})

	It("adds indicator parameters", func() {
		rawURL, err := av.BuildURL(&data.MetricRequest{
			Symbol:   "IBM",
			Function: "SMA",
			Params: map[string]string{
				data.IntervalParam:   "weekly",
				data.TimePeriodParam: "10",
				data.SeriesTypeParam: "open",
			},
		})
		Expect(err).NotTo(HaveOccurred())

		parsed, err := url.Parse(rawURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Query().Get("interval")).To(Equal("weekly"))
		Expect(parsed.Query().Get("time_period")).To(Equal("10"))
		Expect(parsed.Query().Get("series_type")).To(Equal("open"))
		Expect(strings.HasSuffix(rawURL, "&apikey=demo")).To(BeTrue())
	})

	It("omits datatype for json only endpoints", func() {
		rawURL, err := av.BuildURL(&data.MetricRequest{Symbol: "IBM", Function: "OVERVIEW"})
		Expect(err).NotTo(HaveOccurred())
		Expect(rawURL).To(Equal("https://www.alphavantage.co/query?function=OVERVIEW&symbol=IBM&apikey=demo"))
	})

	It("escapes symbols", func() {
		rawURL, err := av.BuildURL(&data.MetricRequest{Symbol: "BRK B", Function: "TIME_SERIES_DAILY"})
		Expect(err).NotTo(HaveOccurred())
		Expect(rawURL).To(ContainSubstring("symbol=BRK+B"))
	})

	It("honors a custom base url", func() {
		custom := provider.New("demo", nil, provider.WithBaseURL("http://localhost:8080/query?"), provider.WithDataType("json"))
		rawURL, err := custom.BuildURL(&data.MetricRequest{Symbol: "IBM", Function: "TIME_SERIES_DAILY"})
		Expect(err).NotTo(HaveOccurred())
		Expect(rawURL).To(Equal("http://localhost:8080/query?function=TIME_SERIES_DAILY&symbol=IBM&outputsize=compact&datatype=json&apikey=demo"))
	})

	DescribeTable("rejects invalid requests",
		func(req *data.MetricRequest) {
			_, err := av.BuildURL(req)
			Expect(err).To(MatchError(data.ErrInvalidParameter))
		},
		Entry("nil request", nil),
		Entry("empty symbol", &data.MetricRequest{Symbol: " ", Function: "TIME_SERIES_DAILY"}),
		Entry("unknown function", &data.MetricRequest{Symbol: "IBM", Function: "NOT_A_FUNCTION"}),
		Entry("bad outputsize", &data.MetricRequest{Symbol: "IBM", Function: "TIME_SERIES_DAILY",
			Params: map[string]string{data.OutputSizeParam: "huge"}}),
		Entry("bad datatype", &data.MetricRequest{Symbol: "IBM", Function: "TIME_SERIES_DAILY",
			Params: map[string]string{data.DataTypeParam: "xml"}}),
		Entry("indicator without interval", &data.MetricRequest{Symbol: "IBM", Function: "SMA",
			Params: map[string]string{data.TimePeriodParam: "10", data.SeriesTypeParam: "close"}}),
		Entry("indicator with bad interval", &data.MetricRequest{Symbol: "IBM", Function: "SMA",
			Params: map[string]string{data.IntervalParam: "hourly", data.TimePeriodParam: "10", data.SeriesTypeParam: "close"}}),
		Entry("indicator with non-numeric time period", &data.MetricRequest{Symbol: "IBM", Function: "EMA",
			Params: map[string]string{data.IntervalParam: "daily", data.TimePeriodParam: "ten", data.SeriesTypeParam: "close"}}),
		Entry("indicator with zero time period", &data.MetricRequest{Symbol: "IBM", Function: "ADX",
			Params: map[string]string{data.IntervalParam: "daily", data.TimePeriodParam: "0"}}),
		Entry("indicator with bad series type", &data.MetricRequest{Symbol: "IBM", Function: "RSI",
			Params: map[string]string{data.IntervalParam: "daily", data.TimePeriodParam: "14", data.SeriesTypeParam: "median"}}),
		Entry("intraday function with daily interval", &data.MetricRequest{Symbol: "IBM", Function: "VWAP",
			Params: map[string]string{data.IntervalParam: "daily"}}),
		Entry("intraday series without interval", &data.MetricRequest{Symbol: "IBM", Function: "TIME_SERIES_INTRADAY"}),
		Entry("daily series with intraday interval", &data.MetricRequest{Symbol: "IBM", Function: "TIME_SERIES_DAILY",
			Params: map[string]string{data.IntervalParam: "5min"}}),
	)

	It("builds listing urls", func() {
		rawURL, err := av.ListingURL("2014-07-10", "delisted")
		Expect(err).NotTo(HaveOccurred())
		Expect(rawURL).To(Equal("https://www.alphavantage.co/query?function=LISTING_STATUS&date=2014-07-10&state=delisted&apikey=demo"))

		_, err = av.ListingURL("07/10/2014", "")
		Expect(err).To(MatchError(data.ErrInvalidParameter))

		_, err = av.ListingURL("", "pending")
		Expect(err).To(MatchError(data.ErrInvalidParameter))
	})

	It("lists every function in sorted order", func() {
		names := provider.FunctionNames()
		Expect(names).To(HaveLen(len(provider.Functions)))
		Expect(names).To(ContainElements("SMA", "OVERVIEW", "TIME_SERIES_DAILY_ADJUSTED"))
		for idx := 1; idx < len(names); idx++ {
			Expect(names[idx-1] < names[idx]).To(BeTrue())
		}
	})
})
