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

	"github.com/penny-vault/avdata/data"
	"github.com/penny-vault/avdata/pkginfo"
	"github.com/penny-vault/avdata/provider"
	"github.com/penny-vault/avdata/secrets"
	"github.com/spf13/viper"
)

var ErrNoAPIKey = errors.New("no Alpha Vantage API key configured; run `avdata init`, pass --apikey, or use --secrets")

// apiKey resolves the API key, preferring a --secrets file over config
func apiKey() (string, error) {
	if secretsFile != "" {
		creds, err := secrets.Load(secretsFile)
		if err != nil {
			return "", err
		}
		return creds.AlphaKey, nil
	}

	if key := viper.GetString("alphavantage.apikey"); key != "" {
		return key, nil
	}

	return "", ErrNoAPIKey
}

// newAlphaVantage builds a client and the worker pool backing it. The caller
// must Close the returned fetcher.
func newAlphaVantage(workers int, dataType string, join data.JoinPolicy) (*provider.AlphaVantage, *provider.Fetcher, error) {
	key, err := apiKey()
	if err != nil {
		return nil, nil, err
	}

	if workers <= 0 {
		workers = viper.GetInt("alphavantage.workers")
	}

	backoff := viper.GetDuration("alphavantage.backoff")
	if backoff <= 0 {
		return nil, nil, fmt.Errorf("%w: alphavantage.backoff must be positive", data.ErrInvalidParameter)
	}

	fetcher := provider.NewFetcher(
		provider.WithWorkers(workers),
		provider.WithRetries(viper.GetInt("alphavantage.retries"), backoff, provider.DefaultMaxBackoff),
		provider.WithTimeout(viper.GetDuration("alphavantage.timeout")),
		provider.WithUserAgent(pkginfo.UserAgent()),
	)

	opts := []provider.Option{
		provider.WithBaseURL(viper.GetString("alphavantage.base_url")),
		provider.WithJoinPolicy(join),
	}

	if dataType != "" {
		opts = append(opts, provider.WithDataType(dataType))
	}

	return provider.New(key, fetcher, opts...), fetcher, nil
}
