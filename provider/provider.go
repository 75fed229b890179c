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

// Provider is a source of market data that avdata can be configured for
type Provider interface {
	Name() string
	Description() string

	// ConfigDescription maps each configuration key the provider needs to
	// the prompt shown when asking the user for it
	ConfigDescription() map[string]string
}

var Map = map[string]Provider{
	"alphavantage": &AlphaVantage{},
}
