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
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"
)

// DefaultPingURL is the healthchecks.io ping endpoint
const DefaultPingURL = "https://hc-ping.com"

var (
	ErrStatus = errors.New("status code is invalid")
)

// Check reports the progress of a fetch run to a healthchecks.io check
type Check struct {
	ID      string
	PingURL string

	client *resty.Client
}

// New returns a check for id that pings healthchecks.ping_url, falling back to
// DefaultPingURL when it is not configured
func New(id string) *Check {
	pingURL := viper.GetString("healthchecks.ping_url")
	if pingURL == "" {
		pingURL = DefaultPingURL
	}

	return &Check{
		ID:      id,
		PingURL: strings.TrimRight(pingURL, "/"),
		client:  resty.New().SetTimeout(10 * time.Second).SetRetryCount(2),
	}
}

// Start signals that a run has begun
func (check *Check) Start(ctx context.Context) error {
	return check.ping(ctx, "/start", "")
}

// Success signals a completed run; msg is attached to the ping as its body
func (check *Check) Success(ctx context.Context, msg string) error {
	return check.ping(ctx, "", msg)
}

// Fail signals a failed run; msg is attached to the ping as its body
func (check *Check) Fail(ctx context.Context, msg string) error {
	return check.ping(ctx, "/fail", msg)
}

func (check *Check) ping(ctx context.Context, suffix, msg string) error {
	if check == nil || check.ID == "" {
		return nil
	}

	resp, err := check.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(msg).
		Post(fmt.Sprintf("%s/%s%s", check.PingURL, check.ID, suffix))

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}
