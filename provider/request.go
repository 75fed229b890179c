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
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/penny-vault/avdata/data"
)

// BuildURL constructs the fully-qualified query URL for req. All parameters
// are validated before anything is returned so an invalid request never
// reaches the network. The API key is always the final query parameter.
func (av *AlphaVantage) BuildURL(req *data.MetricRequest) (string, error) {
	fn, err := av.validate(req)
	if err != nil {
		return "", err
	}

	query := newQuery(av.BaseURL)
	query.add("function", fn.Name)
	query.add("symbol", req.Symbol)

	switch fn.Family {
	case TimeSeries:
		query.add(data.OutputSizeParam, req.Param(data.OutputSizeParam, "compact"))
		if fn.NeedsInterval {
			query.add(data.IntervalParam, req.Param(data.IntervalParam, ""))
		}
	case Indicator:
		query.add(data.IntervalParam, req.Param(data.IntervalParam, ""))
		if fn.NeedsTimePeriod {
			query.add(data.TimePeriodParam, req.Param(data.TimePeriodParam, ""))
		}
		if fn.NeedsSeriesType {
			query.add(data.SeriesTypeParam, req.Param(data.SeriesTypeParam, ""))
		}
	}

	if !fn.JSONOnly {
		query.add(data.DataTypeParam, req.Param(data.DataTypeParam, av.dataType()))
	}

	query.add("apikey", av.APIKey)

	return query.String(), nil
}

// ListingURL constructs the query URL for the LISTING_STATUS endpoint. date
// is optional (YYYY-MM-DD) and state is one of active or delisted.
func (av *AlphaVantage) ListingURL(date, state string) (string, error) {
	query := newQuery(av.BaseURL)
	query.add("function", ListingStatusFunction)

	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return "", invalidParam(ListingStatusFunction, "date", date, "expected YYYY-MM-DD")
		}
		query.add("date", date)
	}

	if state != "" {
		if state != "active" && state != "delisted" {
			return "", invalidParam(ListingStatusFunction, "state", state, "expected active or delisted")
		}
		query.add("state", state)
	}

	query.add("apikey", av.APIKey)

	return query.String(), nil
}

func (av *AlphaVantage) dataType() string {
	if av.DataType == "" {
		return DefaultDataType
	}
	return av.DataType
}

func (av *AlphaVantage) validate(req *data.MetricRequest) (*Function, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", data.ErrInvalidParameter)
	}

	if strings.TrimSpace(req.Symbol) == "" {
		return nil, invalidParam(req.Function, "symbol", req.Symbol, "symbol must not be empty")
	}

	fn, ok := Functions[req.Function]
	if !ok {
		return nil, invalidParam(req.Function, "function", req.Function, "unknown function")
	}

	if !fn.JSONOnly {
		dataType := req.Param(data.DataTypeParam, av.dataType())
		if !slices.Contains(DataTypes, dataType) {
			return nil, invalidParam(fn.Name, data.DataTypeParam, dataType, "expected csv or json")
		}
	}

	interval := req.Param(data.IntervalParam, "")
	intraday := slices.Contains(IntradayIntervals, interval)

	switch fn.Family {
	case TimeSeries:
		outputSize := req.Param(data.OutputSizeParam, "compact")
		if !slices.Contains(OutputSizes, outputSize) {
			return nil, invalidParam(fn.Name, data.OutputSizeParam, outputSize, "expected compact or full")
		}
	case Indicator:
		if fn.NeedsInterval && interval == "" {
			return nil, invalidParam(fn.Name, data.IntervalParam, interval, "interval is required")
		}
		if interval != "" && !intraday && !slices.Contains(PeriodIntervals, interval) {
			return nil, invalidParam(fn.Name, data.IntervalParam, interval, "unknown interval")
		}
		if fn.NeedsTimePeriod {
			timePeriod := req.Param(data.TimePeriodParam, "")
			if period, err := strconv.Atoi(timePeriod); err != nil || period <= 0 {
				return nil, invalidParam(fn.Name, data.TimePeriodParam, timePeriod, "time period must be a positive integer")
			}
		}
		if fn.NeedsSeriesType {
			seriesType := req.Param(data.SeriesTypeParam, "")
			if !slices.Contains(SeriesTypes, seriesType) {
				return nil, invalidParam(fn.Name, data.SeriesTypeParam, seriesType, "expected close, open, high or low")
			}
		}
	}

	if fn.IntradayOnly && !intraday {
		return nil, invalidParam(fn.Name, data.IntervalParam, interval, "function requires an intraday interval")
	}

	if fn.NoIntraday && intraday {
		return nil, invalidParam(fn.Name, data.IntervalParam, interval, "function does not support intraday intervals")
	}

	return fn, nil
}

func invalidParam(function, param, value, reason string) error {
	return fmt.Errorf("%w: %s %s=%q: %s", data.ErrInvalidParameter, function, param, value, reason)
}

// query preserves the order parameters are added in
type query struct {
	builder strings.Builder
	count   int
}

func newQuery(baseURL string) *query {
	q := &query{}
	baseURL = strings.TrimRight(baseURL, "?&")
	q.builder.WriteString(baseURL)
	if strings.Contains(baseURL, "?") {
		q.count = 1
	}
	return q
}

func (q *query) add(key, value string) {
	if q.count == 0 {
		q.builder.WriteByte('?')
	} else {
		q.builder.WriteByte('&')
	}
	q.builder.WriteString(url.QueryEscape(key))
	q.builder.WriteByte('=')
	q.builder.WriteString(url.QueryEscape(value))
	q.count++
}

func (q *query) String() string {
	return q.builder.String()
}

// redactURL hides the API key so URLs can be logged
func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	values := parsed.Query()
	if values.Get("apikey") == "" {
		return rawURL
	}

	idx := strings.LastIndex(rawURL, "apikey=")
	return rawURL[:idx] + "apikey=REDACTED"
}
