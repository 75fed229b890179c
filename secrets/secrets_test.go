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
package secrets_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/avdata/secrets"
)

var _ = Describe("Load", func() {
	write := func(content string) string {
		fn := filepath.Join(GinkgoT().TempDir(), "secrets.yml")
		Expect(os.WriteFile(fn, []byte(content), 0600)).To(Succeed())
		return fn
	}

	It("reads alpha_key", func() {
		creds, err := secrets.Load(write("alpha_key: ABC123 \nother: value\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(creds.AlphaKey).To(Equal("ABC123"))
	})

	It("requires alpha_key", func() {
		_, err := secrets.Load(write("other: value\n"))
		Expect(err).To(MatchError(secrets.ErrMissingKey))
	})

	It("rejects malformed yaml", func() {
		_, err := secrets.Load(write("alpha_key: [unterminated\n"))
		Expect(err).To(HaveOccurred())
	})

	It("returns an error for missing files", func() {
		_, err := secrets.Load(filepath.Join(GinkgoT().TempDir(), "missing.yml"))
		Expect(err).To(MatchError(os.ErrNotExist))
	})
})
