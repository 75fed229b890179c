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
package pkginfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"slices"

	"github.com/rs/zerolog/log"
)

var (
	BuildDate  string
	CommitHash string
	Version    string
)

func version() string {
	if Version == "" {
		return "devel"
	}
	return Version
}

// UserAgent identifies avdata in outbound HTTP requests
func UserAgent() string {
	return fmt.Sprintf("avdata/%s (%s/%s)", version(), runtime.GOOS, runtime.GOARCH)
}

// BuildVersionString returns a version info string suitable for printing on the command line
func BuildVersionString() string {
	return fmt.Sprintf(`avdata %s %s/%s

Build Date: %s
Commit: %s
Built with: %s`, version(), runtime.GOOS, runtime.GOARCH, BuildDate, CommitHash, runtime.Version())
}

// Dependencies lists every module linked into the binary as `path="version"`
func Dependencies() []string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		log.Error().Msg("could not get package build info")
		return nil
	}

	deps := make([]string, 0, len(buildInfo.Deps))
	for _, dep := range buildInfo.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}

	slices.Sort(deps)
	return deps
}
