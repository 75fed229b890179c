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
	"sort"

	"github.com/penny-vault/avdata/data"
)

const (
	DefaultBaseURL  = "https://www.alphavantage.co/query"
	DefaultDataType = "csv"

	ListingStatusFunction = "LISTING_STATUS"
)

type Family int

const (
	TimeSeries Family = iota
	Indicator
	Fundamental
)

func (family Family) String() string {
	switch family {
	case TimeSeries:
		return "Time Series"
	case Indicator:
		return "Technical Indicator"
	case Fundamental:
		return "Fundamental"
	default:
		return "Unknown"
	}
}

// Function describes an Alpha Vantage endpoint and the parameters it takes
type Function struct {
	Name        string
	Family      Family
	Description string

	NeedsInterval   bool
	NeedsTimePeriod bool
	NeedsSeriesType bool

	// IntradayOnly functions reject daily, weekly and monthly intervals;
	// NoIntraday functions reject intraday intervals.
	IntradayOnly bool
	NoIntraday   bool

	// JSONOnly endpoints ignore the datatype parameter
	JSONOnly bool
}

var (
	IntradayIntervals = []string{"1min", "5min", "15min", "30min", "60min"}
	PeriodIntervals   = []string{"daily", "weekly", "monthly"}
	SeriesTypes       = []string{"close", "open", "high", "low"}
	OutputSizes       = []string{"compact", "full"}
	DataTypes         = []string{"csv", "json"}
)

func timeSeries(name, description string) *Function {
	return &Function{Name: name, Family: TimeSeries, Description: description, NoIntraday: true}
}

func indicator(name, description string, timePeriod, seriesType bool) *Function {
	return &Function{
		Name:            name,
		Family:          Indicator,
		Description:     description,
		NeedsInterval:   true,
		NeedsTimePeriod: timePeriod,
		NeedsSeriesType: seriesType,
	}
}

func fundamental(name, description string) *Function {
	return &Function{Name: name, Family: Fundamental, Description: description, JSONOnly: true}
}

// Functions is the catalog of endpoints avdata knows how to request
var Functions = map[string]*Function{
	"TIME_SERIES_INTRADAY": {
		Name:          "TIME_SERIES_INTRADAY",
		Family:        TimeSeries,
		Description:   "Intraday OHLCV bars at the requested interval.",
		NeedsInterval: true,
		IntradayOnly:  true,
	},
	"TIME_SERIES_DAILY":            timeSeries("TIME_SERIES_DAILY", "Daily OHLCV bars."),
	"TIME_SERIES_DAILY_ADJUSTED":   timeSeries("TIME_SERIES_DAILY_ADJUSTED", "Daily OHLCV bars with adjusted close, dividends and split coefficients."),
	"TIME_SERIES_WEEKLY":           timeSeries("TIME_SERIES_WEEKLY", "Weekly OHLCV bars."),
	"TIME_SERIES_WEEKLY_ADJUSTED":  timeSeries("TIME_SERIES_WEEKLY_ADJUSTED", "Weekly adjusted OHLCV bars."),
	"TIME_SERIES_MONTHLY":          timeSeries("TIME_SERIES_MONTHLY", "Monthly OHLCV bars."),
	"TIME_SERIES_MONTHLY_ADJUSTED": timeSeries("TIME_SERIES_MONTHLY_ADJUSTED", "Monthly adjusted OHLCV bars."),

	"SMA":    indicator("SMA", "Simple moving average.", true, true),
	"EMA":    indicator("EMA", "Exponential moving average.", true, true),
	"WMA":    indicator("WMA", "Weighted moving average.", true, true),
	"DEMA":   indicator("DEMA", "Double exponential moving average.", true, true),
	"TEMA":   indicator("TEMA", "Triple exponential moving average.", true, true),
	"RSI":    indicator("RSI", "Relative strength index.", true, true),
	"BBANDS": indicator("BBANDS", "Bollinger bands.", true, true),
	"MACD":   indicator("MACD", "Moving average convergence / divergence.", false, true),
	"ADX":    indicator("ADX", "Average directional movement index.", true, false),
	"ATR":    indicator("ATR", "Average true range.", true, false),
	"OBV":    indicator("OBV", "On balance volume.", false, false),
	"VWAP": {
		Name:          "VWAP",
		Family:        Indicator,
		Description:   "Volume weighted average price, intraday only.",
		NeedsInterval: true,
		IntradayOnly:  true,
	},

	"OVERVIEW":         fundamental("OVERVIEW", "Company information, financial ratios and key metrics."),
	"INCOME_STATEMENT": fundamental("INCOME_STATEMENT", "Annual and quarterly income statements."),
	"BALANCE_SHEET":    fundamental("BALANCE_SHEET", "Annual and quarterly balance sheets."),
	"CASH_FLOW":        fundamental("CASH_FLOW", "Annual and quarterly cash flow statements."),
	"EARNINGS":         fundamental("EARNINGS", "Annual and quarterly earnings per share."),
}

// FunctionNames returns the catalog names sorted alphabetically
func FunctionNames() []string {
	names := make([]string, 0, len(Functions))
	for name := range Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AlphaVantage builds requests against the Alpha Vantage API and runs them
// through a shared Fetcher
type AlphaVantage struct {
	BaseURL  string
	APIKey   string
	DataType string
	Join     data.JoinPolicy

	fetcher *Fetcher
}

type Option func(*AlphaVantage)

func WithBaseURL(baseURL string) Option {
	return func(av *AlphaVantage) {
		av.BaseURL = baseURL
	}
}

func WithDataType(dataType string) Option {
	return func(av *AlphaVantage) {
		av.DataType = dataType
	}
}

func WithJoinPolicy(policy data.JoinPolicy) Option {
	return func(av *AlphaVantage) {
		av.Join = policy
	}
}

// New returns an API client; the fetcher is owned by the caller who is
// responsible for closing it
func New(apiKey string, fetcher *Fetcher, opts ...Option) *AlphaVantage {
	av := &AlphaVantage{
		BaseURL:  DefaultBaseURL,
		APIKey:   apiKey,
		DataType: DefaultDataType,
		Join:     data.JoinOuter,
		fetcher:  fetcher,
	}

	for _, opt := range opts {
		opt(av)
	}

	return av
}

func (av *AlphaVantage) Name() string {
	return "alphavantage"
}

func (av *AlphaVantage) Description() string {
	return `Alpha Vantage provides realtime and historical stock market data through a set of REST endpoints: time series of prices, technical indicators calculated on the server, and company fundamentals.`
}

func (av *AlphaVantage) ConfigDescription() map[string]string {
	return map[string]string{
		"apikey": "Enter your Alpha Vantage API key:",
	}
}
