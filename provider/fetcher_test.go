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
package provider_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/avdata/data"
	"github.com/penny-vault/avdata/provider"
)

var errConnRefused = errors.New("connection refused")

// flakyTransport fails the first `failures` round trips before delegating
type flakyTransport struct {
	failures int32
	calls    atomic.Int32
	next     http.RoundTripper
}

func (t *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.calls.Add(1) <= t.failures {
		return nil, errConnRefused
	}
	return t.next.RoundTrip(req)
}

var _ = Describe("Fetcher", func() {
	var (
		server  *httptest.Server
		fetcher *provider.Fetcher
		hits    atomic.Int32
	)

	BeforeEach(func() {
		hits.Store(0)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			id, _ := strconv.Atoi(r.URL.Query().Get("id"))

			if status := r.URL.Query().Get("status"); status != "" {
				code, _ := strconv.Atoi(status)
				w.WriteHeader(code)
				fmt.Fprintf(w, "status %d", code)
				return
			}

			// later ids finish first
			time.Sleep(time.Duration(10-id) * 10 * time.Millisecond)
			fmt.Fprintf(w, "%d", id)
		}))
	})

	AfterEach(func() {
		if fetcher != nil {
			fetcher.Close()
		}
		server.Close()
	})

	urls := func(n int) []string {
		out := make([]string, n)
		for idx := range out {
			out[idx] = fmt.Sprintf("%s/query?id=%d", server.URL, idx)
		}
		return out
	}

	It("yields responses in input order", func() {
		fetcher = provider.NewFetcher(provider.WithWorkers(5))

		seen := make([]int, 0)
		for idx, resp := range fetcher.Stream(context.Background(), urls(10)) {
			Expect(resp.Err).NotTo(HaveOccurred())
			Expect(resp.OK()).To(BeTrue())
			Expect(string(resp.Body)).To(Equal(strconv.Itoa(idx)))
			seen = append(seen, idx)
		}

		Expect(seen).To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))
	})

	It("is reusable across batches", func() {
		fetcher = provider.NewFetcher(provider.WithWorkers(3))

		for batch := 0; batch < 3; batch++ {
			responses := fetcher.FetchAll(context.Background(), urls(4))
			Expect(responses).To(HaveLen(4))
			for idx, resp := range responses {
				Expect(string(resp.Body)).To(Equal(strconv.Itoa(idx)))
			}
		}

		Expect(hits.Load()).To(BeNumerically("==", 12))
	})

	It("passes http errors through without retrying", func() {
		fetcher = provider.NewFetcher(provider.WithRetries(3, time.Millisecond, 5*time.Millisecond))

		responses := fetcher.FetchAll(context.Background(), []string{server.URL + "/query?id=0&status=503"})
		Expect(responses).To(HaveLen(1))
		Expect(responses[0].Err).NotTo(HaveOccurred())
		Expect(responses[0].OK()).To(BeFalse())
		Expect(responses[0].StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(string(responses[0].Body)).To(Equal("status 503"))
		Expect(hits.Load()).To(BeNumerically("==", 1))
	})

	It("retries connection failures until one succeeds", func() {
		transport := &flakyTransport{failures: 2, next: http.DefaultTransport}
		fetcher = provider.NewFetcher(
			provider.WithTransport(transport),
			provider.WithRetries(3, time.Millisecond, 5*time.Millisecond),
		)

		responses := fetcher.FetchAll(context.Background(), []string{server.URL + "/query?id=9"})
		Expect(responses[0].Err).NotTo(HaveOccurred())
		Expect(string(responses[0].Body)).To(Equal("9"))
		Expect(responses[0].Attempts).To(Equal(3))
		Expect(transport.calls.Load()).To(BeNumerically("==", 3))
	})

	It("surfaces the error once retries are exhausted", func() {
		transport := &flakyTransport{failures: 100, next: http.DefaultTransport}
		fetcher = provider.NewFetcher(
			provider.WithTransport(transport),
			provider.WithRetries(2, time.Millisecond, 5*time.Millisecond),
		)

		responses := fetcher.FetchAll(context.Background(), []string{server.URL + "/query?id=9"})
		Expect(responses[0].Err).To(MatchError(ContainSubstring("connection refused")))
		Expect(responses[0].OK()).To(BeFalse())
		Expect(transport.calls.Load()).To(BeNumerically("==", 3))
		Expect(hits.Load()).To(BeNumerically("==", 0))
	})

	It("groups responses by symbol", func() {
		fetcher = provider.NewFetcher(provider.WithWorkers(4))
		all := urls(5)
		groups := [][]string{all[0:2], {}, all[2:5]}

		sizes := make([]int, 0)
		for idx, responses := range fetcher.StreamGroups(context.Background(), groups) {
			Expect(idx).To(Equal(len(sizes)))
			sizes = append(sizes, len(responses))
		}

		Expect(sizes).To(Equal([]int{2, 0, 3}))
	})

	It("fails pending requests after the context is cancelled", func() {
		fetcher = provider.NewFetcher(provider.WithWorkers(1))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		for _, resp := range fetcher.Stream(ctx, urls(3)) {
			Expect(resp.Err).To(MatchError(context.Canceled))
		}
	})

	It("fails requests submitted after Close", func() {
		fetcher = provider.NewFetcher()
		fetcher.Close()

		responses := fetcher.FetchAll(context.Background(), urls(2))
		Expect(responses).To(HaveLen(2))
		for _, resp := range responses {
			Expect(resp.Err).To(MatchError(data.ErrFetcherClosed))
		}
	})
})
