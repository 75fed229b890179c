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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/avdata/provider"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type alphaVantageConfig struct {
	APIKey  string `toml:"apikey"`
	BaseURL string `toml:"base_url"`
	Workers int    `toml:"workers"`
	Retries int    `toml:"retries"`
	Backoff string `toml:"backoff"`
	Timeout string `toml:"timeout"`
}

type backblazeConfig struct {
	ApplicationID  string `toml:"application_id"`
	ApplicationKey string `toml:"application_key"`
}

type healthchecksConfig struct {
	PingURL string `toml:"ping_url"`
}

// fileConfig is the layout of ~/.avdata.toml
type fileConfig struct {
	AlphaVantage alphaVantageConfig `toml:"alphavantage"`
	Backblaze    backblazeConfig    `toml:"backblaze"`
	Healthchecks healthchecksConfig `toml:"healthchecks"`
}

func positiveInt(val string) error {
	num, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return err
	}
	if num < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}

func validDuration(val string) error {
	_, err := time.ParseDuration(strings.TrimSpace(val))
	return err
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather Alpha Vantage credentials and save them to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		av := provider.Map["alphavantage"]

		var (
			confirmed bool
			workers   = strconv.Itoa(viper.GetInt("alphavantage.workers"))
			retries   = strconv.Itoa(viper.GetInt("alphavantage.retries"))
		)

		conf := fileConfig{
			AlphaVantage: alphaVantageConfig{
				APIKey:  viper.GetString("alphavantage.apikey"),
				BaseURL: viper.GetString("alphavantage.base_url"),
				Backoff: viper.GetString("alphavantage.backoff"),
				Timeout: viper.GetString("alphavantage.timeout"),
			},
			Backblaze: backblazeConfig{
				ApplicationID:  viper.GetString("backblaze.application_id"),
				ApplicationKey: viper.GetString("backblaze.application_key"),
			},
			Healthchecks: healthchecksConfig{
				PingURL: viper.GetString("healthchecks.ping_url"),
			},
		}

		form := huh.NewForm(
			// Alpha Vantage access
			huh.NewGroup(
				huh.NewInput().
					Title(av.ConfigDescription()["apikey"]).
					Value(&conf.AlphaVantage.APIKey).
					Validate(func(key string) error {
						if strings.TrimSpace(key) == "" {
							return errors.New("an API key is required")
						}
						return nil
					}),
				huh.NewInput().
					Title("How many requests should run concurrently?").
					Value(&workers).
					Validate(positiveInt),
				huh.NewInput().
					Title("How many times should a failed connection be retried?").
					Value(&retries).
					Validate(positiveInt),
				huh.NewInput().
					Title("Initial wait between retries (e.g. 500ms):").
					Value(&conf.AlphaVantage.Backoff).
					Validate(validDuration),
			),

			// Optional integrations
			huh.NewGroup(
				huh.NewInput().
					Title("Backblaze application ID (leave blank to skip uploads):").
					Value(&conf.Backblaze.ApplicationID),
				huh.NewInput().
					Title("Backblaze application key:").
					Password(true).
					Value(&conf.Backblaze.ApplicationKey),
				huh.NewInput().
					Title("healthchecks.io ping URL:").
					Value(&conf.Healthchecks.PingURL),
			),

			huh.NewGroup(
				huh.NewConfirm().
					Title("Save configuration?").
					Value(&confirmed),
			),
		)

		if err := form.Run(); err != nil {
			log.Fatal().Err(err).Msg("error gathering settings")
		}

		if !confirmed {
			log.Info().Msg("configuration not saved")
			return
		}

		// validated by the form
		conf.AlphaVantage.Workers, _ = strconv.Atoi(strings.TrimSpace(workers))
		conf.AlphaVantage.Retries, _ = strconv.Atoi(strings.TrimSpace(retries))

		configFN := cfgFile
		if configFN == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				log.Fatal().Err(err).Msg("could not determine user home directory")
			}
			configFN = filepath.Join(home, ".avdata.toml")
		}

		configData, err := toml.Marshal(conf)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		if err := os.WriteFile(configFN, configData, 0600); err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		keyword := func(s string) string {
			return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
		}

		uploads := "disabled"
		if conf.Backblaze.ApplicationID != "" {
			uploads = "enabled"
		}

		var sb strings.Builder
		fmt.Fprintf(&sb,
			"%s\n\nConfig: %s\nWorkers: %s\nRetries: %s\nBackoff: %s\nUploads: %s\n",
			lipgloss.NewStyle().Bold(true).Render("AVDATA CONFIGURED"),
			keyword(configFN),
			keyword(workers),
			keyword(retries),
			keyword(conf.AlphaVantage.Backoff),
			keyword(uploads),
		)

		fmt.Println(
			lipgloss.NewStyle().
				Width(60).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(1, 2).
				Render(sb.String()),
		)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
