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
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/hako/durafmt"
	"github.com/penny-vault/avdata/backblaze"
	"github.com/penny-vault/avdata/batch"
	"github.com/penny-vault/avdata/data"
	"github.com/penny-vault/avdata/healthcheck"
	"github.com/penny-vault/avdata/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var fetchOpts struct {
	functions   []string
	symbolsFile string
	listings    bool
	dest        string
	zip         bool
	clean       bool
	upload      string
	outputSize  string
	interval    string
	timePeriod  string
	seriesType  string
	dataType    string
	period      string
	join        string
	batchSize   int
	batchSleep  time.Duration
	workers     int
	healthcheck string
}

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [symbols...]",
	Short: "Download, merge and save data for a list of symbols",
	Long: `The fetch sub-command requests every --function for each symbol, joins the
responses on (symbol, timestamp) and writes one CSV file per symbol to --dest.
Symbols may be given as arguments, read from --symbols-file (one per line), or
taken from the list of actively traded listings with --listings.

Examples:

    avdata fetch --function TIME_SERIES_DAILY_ADJUSTED --outputsize full AAPL MSFT
    avdata fetch --function SMA --function EMA --interval daily --time-period 20 --series-type close IBM
    avdata fetch --listings --function OVERVIEW --batch-size 50 --batch-sleep 1m --zip`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := log.Logger.WithContext(context.Background())
		if err := runFetch(ctx, args); err != nil {
			log.Error().Err(err).Msg("fetch failed")
			return err
		}
		return nil
	},
}

// newClient is swapped in tests
var newClient = newAlphaVantage

// runFetch executes a fetch; every exit path closes the worker pool and a
// failure is reported to the healthcheck
func runFetch(ctx context.Context, args []string) (err error) {
	join, err := data.ParseJoinPolicy(fetchOpts.join)
	if err != nil {
		return fmt.Errorf("invalid join policy: %w", err)
	}

	functions := normalizeFunctions(fetchOpts.functions)
	if len(functions) == 0 {
		return fmt.Errorf("%w: at least one --function is required", data.ErrInvalidParameter)
	}

	check := healthcheck.New(fetchOpts.healthcheck)
	if pingErr := check.Start(ctx); pingErr != nil {
		log.Warn().Err(pingErr).Str("CheckID", check.ID).Msg("healthcheck start ping failed")
	}

	defer func() {
		if err == nil {
			return
		}
		if pingErr := check.Fail(ctx, err.Error()); pingErr != nil {
			log.Warn().Err(pingErr).Str("CheckID", check.ID).Msg("healthcheck fail ping failed")
		}
	}()

	av, fetcher, err := newClient(fetchOpts.workers, fetchOpts.dataType, join)
	if err != nil {
		return fmt.Errorf("could not configure alphavantage: %w", err)
	}
	defer fetcher.Close()

	symbols, err := gatherSymbols(ctx, args, func(ctx context.Context) ([]*data.Listing, error) {
		return av.Listings(ctx, "", "active")
	})
	if err != nil {
		return fmt.Errorf("could not gather symbols: %w", err)
	}

	if len(symbols) == 0 {
		return fmt.Errorf("%w: no symbols to fetch", data.ErrInvalidParameter)
	}

	writer, err := library.NewWriter(fetchOpts.dest)
	if err != nil {
		return fmt.Errorf("could not create destination directory: %w", err)
	}

	driver := &batch.Driver{
		Source:    av,
		Writer:    writer,
		BatchSize: fetchOpts.batchSize,
		Sleep:     fetchOpts.batchSleep,
	}

	log.Info().Int("NumSymbols", len(symbols)).Strs("Functions", functions).Int("Workers", fetcher.Workers()).Msg("starting fetch")

	startTime := time.Now()
	report, err := driver.Run(ctx, symbols, batch.RequestsFor(functions, requestParams()))
	if err != nil {
		return fmt.Errorf("fetch did not complete: %w", err)
	}

	runTime := time.Since(startTime)
	log.Info().Str("RunTime", durafmt.Parse(runTime).LimitFirstN(2).String()).Object("Report", report).Msg("fetch finished")

	reportFn := filepath.Join(fetchOpts.dest, "report.json")
	if err := library.SaveReport(reportFn, report); err != nil {
		log.Error().Err(err).Str("FileName", reportFn).Msg("could not save report")
	}

	if fetchOpts.zip || fetchOpts.upload != "" {
		zipFn := filepath.Join(filepath.Dir(filepath.Clean(fetchOpts.dest)), library.ArchiveName(functions, startTime))
		if err := library.Archive(fetchOpts.dest, zipFn); err != nil {
			return fmt.Errorf("could not archive results: %w", err)
		}

		if fetchOpts.clean {
			written := make([]string, 0, len(report.Succeeded()))
			for _, item := range report.Succeeded() {
				written = append(written, item.Symbol)
			}
			if err := writer.Remove(written...); err != nil {
				log.Error().Err(err).Msg("could not remove intermediate files")
			}
		}

		if fetchOpts.upload != "" {
			if err := backblaze.Upload(zipFn, fetchOpts.upload, startTime.Format("2006")); err != nil {
				return fmt.Errorf("upload to backblaze failed: %w", err)
			}
		}
	}

	summary, err := library.Summary(report)
	if err != nil {
		return fmt.Errorf("could not build summary: %w", err)
	}

	if pingErr := check.Success(ctx, summary); pingErr != nil {
		log.Warn().Err(pingErr).Str("CheckID", check.ID).Msg("healthcheck success ping failed")
	}

	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	out, err := r.Render(summary)
	if err != nil {
		return fmt.Errorf("could not render summary: %w", err)
	}

	fmt.Print(out)
	return nil
}

func normalizeFunctions(functions []string) []string {
	out := make([]string, 0, len(functions))
	for _, function := range functions {
		for _, name := range strings.Split(function, ",") {
			if name = strings.ToUpper(strings.TrimSpace(name)); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func requestParams() map[string]string {
	params := map[string]string{
		data.OutputSizeParam: fetchOpts.outputSize,
		data.IntervalParam:   fetchOpts.interval,
		data.TimePeriodParam: fetchOpts.timePeriod,
		data.SeriesTypeParam: fetchOpts.seriesType,
		data.PeriodParam:     fetchOpts.period,
	}

	for key, val := range params {
		if val == "" {
			delete(params, key)
		}
	}

	return params
}

// gatherSymbols combines command line symbols, the symbols file and active
// listings, dropping duplicates while keeping the order they were given in
func gatherSymbols(ctx context.Context, args []string, listings func(context.Context) ([]*data.Listing, error)) ([]string, error) {
	candidates := make([]*data.Listing, 0, len(args))
	for _, arg := range args {
		candidates = append(candidates, &data.Listing{Symbol: strings.TrimSpace(arg)})
	}

	if fetchOpts.symbolsFile != "" {
		fileSymbols, err := readSymbolsFile(fetchOpts.symbolsFile)
		if err != nil {
			return nil, err
		}
		for _, symbol := range fileSymbols {
			candidates = append(candidates, &data.Listing{Symbol: symbol})
		}
	}

	if fetchOpts.listings {
		active, err := listings(ctx)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, active...)
	}

	return data.ListingSymbols(candidates), nil
}

// readSymbolsFile reads one symbol per line; blank lines and lines starting
// with # are skipped
func readSymbolsFile(fn string) ([]string, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	symbols := make([]string, 0)
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// accept the first column of a csv as well
		if before, _, found := strings.Cut(line, ","); found {
			line = strings.TrimSpace(before)
		}

		if strings.EqualFold(line, data.SymbolColumn) {
			continue
		}

		symbols = append(symbols, line)
	}

	return symbols, scanner.Err()
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	flags := fetchCmd.Flags()
	flags.StringArrayVarP(&fetchOpts.functions, "function", "f", nil, "Alpha Vantage function to request (repeatable, or comma separated)")
	flags.StringVar(&fetchOpts.symbolsFile, "symbols-file", "", "file with one symbol per line")
	flags.BoolVar(&fetchOpts.listings, "listings", false, "fetch every actively traded symbol")
	flags.StringVarP(&fetchOpts.dest, "dest", "o", "data", "directory CSV files are written to")
	flags.BoolVar(&fetchOpts.zip, "zip", false, "bundle the output directory into a zip archive")
	flags.BoolVar(&fetchOpts.clean, "clean", false, "remove CSV files after they are archived")
	flags.StringVar(&fetchOpts.upload, "upload", "", "upload the zip archive to this backblaze bucket")
	flags.StringVar(&fetchOpts.outputSize, "outputsize", "", "time series output size (compact or full)")
	flags.StringVar(&fetchOpts.interval, "interval", "", "indicator or intraday interval, e.g. daily or 5min")
	flags.StringVar(&fetchOpts.timePeriod, "time-period", "", "indicator time period, e.g. 20")
	flags.StringVar(&fetchOpts.seriesType, "series-type", "", "indicator series type (open, high, low, close)")
	flags.StringVar(&fetchOpts.dataType, "datatype", "", "response format requested from the API (csv or json)")
	flags.StringVar(&fetchOpts.period, "period", "annual", "fundamental report period (annual or quarterly)")
	flags.StringVar(&fetchOpts.join, "join", string(data.JoinOuter), "how tables of the same symbol are joined (outer or inner)")
	flags.IntVar(&fetchOpts.batchSize, "batch-size", batch.DefaultBatchSize, "number of symbols per batch")
	flags.DurationVar(&fetchOpts.batchSleep, "batch-sleep", 0, "pause between batches, e.g. 1m")
	flags.IntVar(&fetchOpts.workers, "workers", 0, "number of concurrent requests (defaults to alphavantage.workers)")
	flags.StringVar(&fetchOpts.healthcheck, "healthcheck", "", "healthchecks.io check id to ping")
}
