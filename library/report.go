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
package library

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/penny-vault/avdata/data"
)

// SaveReport writes the batch report as indented json
func SaveReport(fn string, report *data.BatchReport) error {
	content, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(fn, content, 0644); err != nil {
		return fmt.Errorf("%w: %w", data.ErrWrite, err)
	}

	return nil
}

// LoadReport reads a report saved by SaveReport
func LoadReport(fn string) (*data.BatchReport, error) {
	content, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}

	report := &data.BatchReport{}
	if err := json.Unmarshal(content, report); err != nil {
		return nil, err
	}

	return report, nil
}
