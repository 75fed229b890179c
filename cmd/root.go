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
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	secretsFile string
	logLevel    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "avdata",
	Short: "avdata downloads and merges market data from Alpha Vantage",
	Long: `avdata is a command line utility for downloading time series, technical
indicators, and company fundamentals from the Alpha Vantage API. Every
function requested for a symbol is fetched concurrently and the results are
joined on (symbol, timestamp) into a single CSV file per symbol.

Large symbol universes are processed in batches with an optional pause
between batches to stay inside the API rate limit. Each run produces a
report.json describing which symbols succeeded and why others failed, and the
output can optionally be zipped and uploaded to Backblaze B2.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		zerolog.SetGlobalLevel(level)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.avdata.toml)")
	rootCmd.PersistentFlags().StringVar(&secretsFile, "secrets", "", "yaml file with an alpha_key entry")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.PersistentFlags().String("apikey", "", "Alpha Vantage API key")
	if err := viper.BindPFlag("alphavantage.apikey", rootCmd.PersistentFlags().Lookup("apikey")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for apikey failed")
	}

	viper.SetDefault("alphavantage.base_url", "https://www.alphavantage.co/query")
	viper.SetDefault("alphavantage.workers", 5)
	viper.SetDefault("alphavantage.retries", 3)
	viper.SetDefault("alphavantage.backoff", "500ms")
	viper.SetDefault("alphavantage.timeout", "60s")
	viper.SetDefault("healthchecks.ping_url", "https://hc-ping.com")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".avdata" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".avdata")
	}

	viper.SetEnvPrefix("avdata")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}
