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
	"strings"
	"time"

	"github.com/penny-vault/avdata/data"
	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary returns a description of a fetch run in markdown
func Summary(report *data.BatchReport) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	if _, err := builder.WriteString(fmt.Sprintf("# Run %s\n", report.RunID.String()[:8])); err != nil {
		return "", err
	}

	if _, err := builder.WriteString("## Details\n\n"); err != nil {
		return "", err
	}

	succeeded := report.Succeeded()
	failed := report.Failed()

	if _, err := builder.WriteString(p.Sprintf("  * Batches: %d\n", report.NumBatches)); err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Symbols Written: %d\n", len(succeeded))); err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Symbols Failed: %d\n", len(failed))); err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Total Rows: %d\n\n", report.NumRows())); err != nil {
		return "", err
	}

	if report.EndTime.Equal(time.Time{}) {
		if _, err := builder.WriteString("Finished: Never\n\n"); err != nil {
			return "", err
		}
	} else {
		age := timeago.English.Format(report.EndTime)
		if _, err := builder.WriteString(fmt.Sprintf("Finished: %s (%s)\n\n", age, report.EndTime.Local().Format("01/02/2006 15:04"))); err != nil {
			return "", err
		}
	}

	if len(failed) == 0 {
		return builder.String(), nil
	}

	if _, err := builder.WriteString("## Failures\n\n"); err != nil {
		return "", err
	}

	for _, item := range failed {
		if _, err := builder.WriteString(p.Sprintf("  * %s (batch %d): %s\n", item.Symbol, item.Batch, item.Error)); err != nil {
			return "", err
		}
	}

	return builder.String(), nil
}
