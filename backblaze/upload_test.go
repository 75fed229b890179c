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
package backblaze_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/avdata/backblaze"
)

var _ = Describe("Upload", func() {
	It("stores archives under the prefix", func() {
		Expect(backblaze.ObjectName("2024", "/tmp/data/sma-2024-01-02.zip")).To(Equal("2024/sma-2024-01-02.zip"))
		Expect(backblaze.ObjectName("/prices/", "bundle.zip")).To(Equal("prices/bundle.zip"))
		Expect(backblaze.ObjectName("", "out/bundle.zip")).To(Equal("bundle.zip"))
	})

	It("requires credentials before contacting backblaze", func() {
		viper.Set("backblaze.application_id", "")
		viper.Set("backblaze.application_key", "")
		Expect(backblaze.Upload("bundle.zip", "bucket", "2024")).To(MatchError(backblaze.ErrNoCredentials))
	})
})
