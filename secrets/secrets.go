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
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingKey = errors.New("credentials file has no alpha_key entry")
)

// Credentials mirrors the yaml credentials file, e.g.
//
//	alpha_key: ABCDEFG123
type Credentials struct {
	AlphaKey string `yaml:"alpha_key"`
}

// Load reads the credentials file at fn
func Load(fn string) (*Credentials, error) {
	content, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}

	creds := &Credentials{}
	if err := yaml.Unmarshal(content, creds); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", fn, err)
	}

	creds.AlphaKey = strings.TrimSpace(creds.AlphaKey)
	if creds.AlphaKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, fn)
	}

	return creds, nil
}
