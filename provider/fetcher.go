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
	"context"
	"fmt"
	"iter"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/penny-vault/avdata/data"
	"github.com/rs/zerolog"
)

const (
	DefaultWorkers    = 5
	DefaultRetries    = 3
	DefaultBackoff    = 500 * time.Millisecond
	DefaultMaxBackoff = 8 * time.Second
	DefaultTimeout    = 60 * time.Second
)

// Response is the raw result of a single GET request. Err is set when the
// request could not be completed (including after all retries); HTTP error
// statuses are not errors and are reported through StatusCode.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
	Err        error
}

// OK reports whether the request completed with a 2xx status
func (resp *Response) OK() bool {
	return resp.Err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Fetcher runs GET requests on a fixed pool of workers. A single Fetcher is
// meant to be created once and reused for every batch; Close stops the pool.
type Fetcher struct {
	client  *resty.Client
	workers int

	jobs      chan *fetchJob
	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type fetchJob struct {
	ctx  context.Context
	url  string
	resp *Response
	done chan struct{}
}

func (job *fetchJob) fail(err error) {
	job.resp = &Response{URL: job.url, Err: err}
	close(job.done)
}

type FetcherOption func(*Fetcher)

// WithWorkers sets the number of concurrent requests
func WithWorkers(workers int) FetcherOption {
	return func(f *Fetcher) {
		f.workers = workers
	}
}

// WithRetries sets the number of connection retries and the backoff bounds.
// Only transport failures are retried, never HTTP status codes.
func WithRetries(count int, wait, maxWait time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait)
	}
}

func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.client.SetTimeout(timeout)
	}
}

// WithTransport replaces the HTTP transport used by the client
func WithTransport(transport http.RoundTripper) FetcherOption {
	return func(f *Fetcher) {
		f.client.SetTransport(transport)
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(userAgent string) FetcherOption {
	return func(f *Fetcher) {
		f.client.SetHeader("User-Agent", userAgent)
	}
}

// NewFetcher creates a fetcher and starts its workers
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: resty.New().
			SetRetryCount(DefaultRetries).
			SetRetryWaitTime(DefaultBackoff).
			SetRetryMaxWaitTime(DefaultMaxBackoff).
			SetTimeout(DefaultTimeout),
		workers: DefaultWorkers,
		jobs:    make(chan *fetchJob),
		quit:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.workers < 1 {
		f.workers = 1
	}

	f.wg.Add(f.workers)
	for ii := 0; ii < f.workers; ii++ {
		go f.worker()
	}

	return f
}

// Workers returns the size of the pool
func (f *Fetcher) Workers() int {
	return f.workers
}

// Close stops the worker pool and waits for in-flight requests to finish.
// Requests that have not been picked up by a worker fail with
// data.ErrFetcherClosed.
func (f *Fetcher) Close() {
	f.closeOnce.Do(func() {
		close(f.quit)
	})
	f.wg.Wait()
}

// Stream issues a GET for each url and yields the responses in input order,
// regardless of the order in which they complete. Breaking out of the loop
// cancels any request that has not started yet.
func (f *Fetcher) Stream(ctx context.Context, urls []string) iter.Seq2[int, *Response] {
	return func(yield func(int, *Response) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		jobs := make([]*fetchJob, len(urls))
		for idx, url := range urls {
			jobs[idx] = &fetchJob{
				ctx:  ctx,
				url:  url,
				done: make(chan struct{}),
			}
		}

		go f.submit(ctx, jobs)

		for idx, job := range jobs {
			<-job.done
			if !yield(idx, job.resp) {
				return
			}
		}
	}
}

// StreamGroups flattens groups of urls (one group per symbol) into a single
// stream and yields each group's responses, in group order, once all of them
// are available. Empty groups are yielded without any network call.
func (f *Fetcher) StreamGroups(ctx context.Context, groups [][]string) iter.Seq2[int, []*Response] {
	return func(yield func(int, []*Response) bool) {
		flat := make([]string, 0, len(groups))
		for _, group := range groups {
			flat = append(flat, group...)
		}

		groupIdx := 0
		emitEmpty := func() bool {
			for groupIdx < len(groups) && len(groups[groupIdx]) == 0 {
				if !yield(groupIdx, []*Response{}) {
					return false
				}
				groupIdx++
			}
			return true
		}

		if !emitEmpty() {
			return
		}

		current := make([]*Response, 0)
		for _, resp := range f.Stream(ctx, flat) {
			current = append(current, resp)
			if len(current) < len(groups[groupIdx]) {
				continue
			}

			if !yield(groupIdx, current) {
				return
			}

			current = make([]*Response, 0)
			groupIdx++

			if !emitEmpty() {
				return
			}
		}
	}
}

// FetchAll collects every response of Stream into a slice
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []*Response {
	responses := make([]*Response, 0, len(urls))
	for _, resp := range f.Stream(ctx, urls) {
		responses = append(responses, resp)
	}
	return responses
}

func (f *Fetcher) submit(ctx context.Context, jobs []*fetchJob) {
	for _, job := range jobs {
		select {
		case f.jobs <- job:
		case <-ctx.Done():
			job.fail(ctx.Err())
		case <-f.quit:
			job.fail(data.ErrFetcherClosed)
		}
	}
}

func (f *Fetcher) worker() {
	defer f.wg.Done()

	for {
		select {
		case job := <-f.jobs:
			job.resp = f.get(job.ctx, job.url)
			close(job.done)
		case <-f.quit:
			return
		}
	}
}

func (f *Fetcher) get(ctx context.Context, url string) *Response {
	logger := zerolog.Ctx(ctx)
	out := &Response{URL: url}

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if resp != nil {
		out.StatusCode = resp.StatusCode()
		out.Header = resp.Header()
		out.Body = resp.Body()
		if resp.Request != nil {
			out.Attempts = resp.Request.Attempt
		}
	}

	if err != nil {
		logger.Error().Err(err).Str("URL", redactURL(url)).Int("Attempts", out.Attempts).Msg("resty returned an error when querying alphavantage")
		out.Err = fmt.Errorf("GET %s failed after %d attempts: %w", redactURL(url), out.Attempts, err)
		return out
	}

	logger.Debug().Str("URL", redactURL(url)).Int("StatusCode", out.StatusCode).Int("Attempts", out.Attempts).Msg("fetched url")

	return out
}
