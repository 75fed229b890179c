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
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/penny-vault/avdata/provider"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// functionsCmd represents the functions command
var functionsCmd = &cobra.Command{
	Use:   "functions [name]",
	Short: "List the Alpha Vantage functions avdata can request or describe one of them",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		var doc string
		if len(args) > 0 {
			function, ok := provider.Functions[strings.ToUpper(args[0])]
			if !ok {
				log.Fatal().Str("Function", args[0]).Msg("unknown function; run `avdata functions` for the full list")
			}
			doc = describeFunction(function)
		} else {
			doc = functionCatalog()
		}

		out, err := r.Render(doc)
		if err != nil {
			log.Fatal().Err(err).Msg("could not render function document")
		}

		fmt.Print(out)
	},
}

func functionCatalog() string {
	builder := strings.Builder{}
	builder.WriteString("# Available Functions\n")

	for _, family := range []provider.Family{provider.TimeSeries, provider.Indicator, provider.Fundamental} {
		builder.WriteString(fmt.Sprintf("\n## %s\n\n", family))
		for _, name := range provider.FunctionNames() {
			function := provider.Functions[name]
			if function.Family != family {
				continue
			}
			builder.WriteString(fmt.Sprintf("- **%s**: %s\n", function.Name, function.Description))
		}
	}

	return builder.String()
}

func describeFunction(function *provider.Function) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("# %s\n\n%s\n\n## Parameters\n\n", function.Name, function.Description))

	switch function.Family {
	case provider.TimeSeries:
		builder.WriteString(fmt.Sprintf("- outputsize: %s\n", strings.Join(provider.OutputSizes, ", ")))
	case provider.Fundamental:
		builder.WriteString("- period: annual, quarterly\n")
	}

	if function.NeedsInterval {
		intervals := append(append([]string{}, provider.IntradayIntervals...), provider.PeriodIntervals...)
		if function.IntradayOnly {
			intervals = provider.IntradayIntervals
		}
		builder.WriteString(fmt.Sprintf("- interval (required): %s\n", strings.Join(intervals, ", ")))
	}

	if function.NeedsTimePeriod {
		builder.WriteString("- time_period (required): positive integer\n")
	}

	if function.NeedsSeriesType {
		builder.WriteString(fmt.Sprintf("- series_type (required): %s\n", strings.Join(provider.SeriesTypes, ", ")))
	}

	if !function.JSONOnly {
		builder.WriteString(fmt.Sprintf("- datatype: %s\n", strings.Join(provider.DataTypes, ", ")))
	}

	return builder.String()
}

func init() {
	rootCmd.AddCommand(functionsCmd)
}
