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
package library_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/avdata/data"
	"github.com/penny-vault/avdata/library"
)

func aaplTable() *data.Table {
	table := data.NewTable("AAPL", []string{"symbol", "timestamp", "close", "SMA"})
	Expect(table.AppendRow([]string{"AAPL", "2024-01-03", "184.25", "190.1"})).To(Succeed())
	Expect(table.AppendRow([]string{"AAPL", "2024-01-02", "185.64", ""})).To(Succeed())
	return table
}

var _ = Describe("Writer", func() {
	var dir string

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), "out")
	})

	It("creates the destination and round trips a table", func() {
		writer, err := library.NewWriter(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(dir).To(BeADirectory())

		table := aaplTable()
		fn, err := writer.Write(table)
		Expect(err).NotTo(HaveOccurred())
		Expect(fn).To(Equal(filepath.Join(dir, "AAPL.csv")))

		content, err := os.ReadFile(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.SplitN(string(content), "\n", 2)[0]).To(Equal("symbol,timestamp,close,SMA"))

		parsed, err := library.ReadTable(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Equal(table)).To(BeTrue())
	})

	It("overwrites an existing file", func() {
		writer, err := library.NewWriter(dir)
		Expect(err).NotTo(HaveOccurred())

		_, err = writer.Write(aaplTable())
		Expect(err).NotTo(HaveOccurred())

		smaller := data.NewTable("AAPL", []string{"symbol", "timestamp", "close"})
		Expect(smaller.AppendRow([]string{"AAPL", "2024-01-04", "181.91"})).To(Succeed())

		fn, err := writer.Write(smaller)
		Expect(err).NotTo(HaveOccurred())

		parsed, err := library.ReadTable(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Equal(smaller)).To(BeTrue())
	})

	It("replaces path separators in symbols", func() {
		Expect(library.FileName("BRK/A")).To(Equal("BRK_A.csv"))
	})

	It("reports write failures", func() {
		writer, err := library.NewWriter(dir)
		Expect(err).NotTo(HaveOccurred())

		_, err = writer.Write(nil)
		Expect(err).To(MatchError(data.ErrWrite))

		Expect(os.RemoveAll(dir)).To(Succeed())
		_, err = writer.Write(aaplTable())
		Expect(err).To(MatchError(data.ErrWrite))
	})

	It("removes written files", func() {
		writer, err := library.NewWriter(dir)
		Expect(err).NotTo(HaveOccurred())

		fn, err := writer.Write(aaplTable())
		Expect(err).NotTo(HaveOccurred())

		Expect(writer.Remove("AAPL", "MISSING")).To(Succeed())
		Expect(fn).NotTo(BeAnExistingFile())
	})
})

var _ = Describe("Archive", func() {
	It("zips every file in the directory", func() {
		root := GinkgoT().TempDir()
		dir := filepath.Join(root, "out")

		writer, err := library.NewWriter(dir)
		Expect(err).NotTo(HaveOccurred())

		for _, symbol := range []string{"AAPL", "MSFT"} {
			table := aaplTable()
			table.Symbol = symbol
			_, err := writer.Write(table)
			Expect(err).NotTo(HaveOccurred())
		}

		zipFn := filepath.Join(dir, "bundle.zip")
		Expect(library.Archive(dir, zipFn)).To(Succeed())

		reader, err := zip.OpenReader(zipFn)
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		names := make([]string, 0, len(reader.File))
		for _, file := range reader.File {
			names = append(names, file.Name)
		}
		Expect(names).To(ConsistOf("AAPL.csv", "MSFT.csv"))
	})

	It("names archives after the functions and date", func() {
		name := library.ArchiveName([]string{"SMA", "EMA"}, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
		Expect(name).To(HaveSuffix(".zip"))
		Expect(name).To(ContainSubstring("sma"))
		Expect(name).To(ContainSubstring("2024-01-02"))
	})
})

var _ = Describe("Report", func() {
	var report *data.BatchReport

	BeforeEach(func() {
		report = data.NewBatchReport()
		report.NumBatches = 1
		report.Success(1, &data.SymbolResult{Symbol: "AAPL", Functions: []string{"SMA"}, Table: aaplTable()}, "out/AAPL.csv")
		report.Failure(1, "BAD", []string{"SMA"}, data.ErrInvalidParameter)
		report.Finish()
	})

	It("saves and loads the report as json", func() {
		fn := filepath.Join(GinkgoT().TempDir(), "report.json")
		Expect(library.SaveReport(fn, report)).To(Succeed())

		loaded, err := library.LoadReport(fn)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.RunID).To(Equal(report.RunID))
		Expect(loaded.Items).To(HaveLen(2))
		Expect(loaded.Failed()[0].Symbol).To(Equal("BAD"))
	})

	It("summarizes the run in markdown", func() {
		summary, err := library.Summary(report)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(ContainSubstring("Symbols Written: 1"))
		Expect(summary).To(ContainSubstring("Symbols Failed: 1"))
		Expect(summary).To(ContainSubstring("## Failures"))
		Expect(summary).To(ContainSubstring("BAD"))
	})
})
