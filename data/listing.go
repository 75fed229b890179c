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
package data

// Listing is one row of the LISTING_STATUS endpoint
type Listing struct {
	Symbol        string `json:"symbol" csv:"symbol"`
	Name          string `json:"name" csv:"name"`
	Exchange      string `json:"exchange" csv:"exchange"`
	AssetType     string `json:"assetType" csv:"assetType"`
	IPODate       string `json:"ipoDate" csv:"ipoDate"`
	DelistingDate string `json:"delistingDate" csv:"delistingDate"`
	Status        string `json:"status" csv:"status"`
}

// ListingSymbols returns the symbol of each listing, skipping blanks and
// duplicates while keeping the original order
func ListingSymbols(listings []*Listing) []string {
	seen := make(map[string]bool, len(listings))
	symbols := make([]string, 0, len(listings))
	for _, listing := range listings {
		if listing.Symbol == "" || seen[listing.Symbol] {
			continue
		}
		seen[listing.Symbol] = true
		symbols = append(symbols, listing.Symbol)
	}
	return symbols
}
