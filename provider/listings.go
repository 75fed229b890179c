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
	"context"
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/avdata/data"
	"github.com/rs/zerolog"
)

// Listings downloads the LISTING_STATUS table. An empty date means today and
// an empty state means active listings.
func (av *AlphaVantage) Listings(ctx context.Context, date, state string) ([]*data.Listing, error) {
	logger := zerolog.Ctx(ctx)

	listingURL, err := av.ListingURL(date, state)
	if err != nil {
		return nil, err
	}

	resp := av.fetcher.FetchAll(ctx, []string{listingURL})[0]
	if resp.Err != nil {
		return nil, resp.Err
	}

	if !resp.OK() {
		logger.Error().Int("StatusCode", resp.StatusCode).Str("URL", redactURL(listingURL)).Msg("alphavantage returned an invalid HTTP response")
		return nil, &data.HTTPStatusError{
			StatusCode: resp.StatusCode,
			URL:        redactURL(listingURL),
			Body:       resp.Body,
		}
	}

	// errors and rate limit notices come back as json even for csv endpoints
	if body := bytes.TrimSpace(resp.Body); len(body) > 0 && body[0] == '{' {
		logger.Error().Bytes("Body", body).Msg("alphavantage returned json instead of a listings csv")
		return nil, fmt.Errorf("%w: expected a listings csv but received %s", data.ErrSchema, string(body))
	}

	listings := make([]*data.Listing, 0, 12000)
	if err := gocsv.UnmarshalBytes(resp.Body, &listings); err != nil {
		logger.Error().Err(err).Msg("failed to unmarshal alphavantage listings csv")
		return nil, fmt.Errorf("%w: %w", data.ErrSchema, err)
	}

	logger.Info().Int("NumListings", len(listings)).Msg("downloaded listings")

	return listings, nil
}
