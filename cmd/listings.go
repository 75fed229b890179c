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
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/penny-vault/avdata/data"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var listingsOpts struct {
	date   string
	state  string
	output string
}

// listingsCmd represents the listings command
var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Download the list of active or delisted securities",
	Long: `The listings sub-command saves the Alpha Vantage LISTING_STATUS table to a CSV
file. By default the currently active listings are returned; use --state
delisted and --date YYYY-MM-DD to query historical delistings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := log.Logger.WithContext(context.Background())
		if err := runListings(ctx); err != nil {
			log.Error().Err(err).Msg("listings failed")
			return err
		}
		return nil
	},
}

func runListings(ctx context.Context) error {
	av, fetcher, err := newClient(1, "", data.JoinOuter)
	if err != nil {
		return fmt.Errorf("could not configure alphavantage: %w", err)
	}
	defer fetcher.Close()

	listings, err := av.Listings(ctx, listingsOpts.date, listingsOpts.state)
	if err != nil {
		return fmt.Errorf("could not download listings: %w", err)
	}

	fh, err := os.Create(listingsOpts.output)
	if err != nil {
		return fmt.Errorf("could not create listings file %s: %w", listingsOpts.output, err)
	}
	defer fh.Close()

	if err := gocsv.MarshalFile(&listings, fh); err != nil {
		return fmt.Errorf("could not write listings to %s: %w", listingsOpts.output, err)
	}

	log.Info().Int("NumListings", len(listings)).Str("FileName", listingsOpts.output).Msg("saved listings")
	return nil
}

func init() {
	rootCmd.AddCommand(listingsCmd)

	listingsCmd.Flags().StringVar(&listingsOpts.date, "date", "", "listing status as of this date (YYYY-MM-DD)")
	listingsCmd.Flags().StringVar(&listingsOpts.state, "state", "active", "active or delisted")
	listingsCmd.Flags().StringVarP(&listingsOpts.output, "output", "o", "listing_status.csv", "file the listings are written to")
}
