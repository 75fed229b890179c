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
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/penny-vault/avdata/data"
	"github.com/rs/zerolog/log"
)

// ArchiveName builds a file name for the bundle of a run, e.g.
// time_series_daily_adjusted-2024-01-02.zip
func ArchiveName(functions []string, date time.Time) string {
	name := slug.Make(fmt.Sprintf("%s %s", strings.Join(functions, " "), date.Format("2006-01-02")))
	return name + ".zip"
}

// Archive zips every regular file beneath dir into zipFn. zipFn may live
// inside dir; it is never added to itself.
func Archive(dir, zipFn string) (err error) {
	absZip, err := filepath.Abs(zipFn)
	if err != nil {
		return fmt.Errorf("%w: %w", data.ErrWrite, err)
	}

	out, err := os.Create(zipFn)
	if err != nil {
		return fmt.Errorf("%w: %w", data.ErrWrite, err)
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: %w", data.ErrWrite, closeErr)
		}
	}()

	zipWriter := zip.NewWriter(out)
	numFiles := 0

	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		if absPath, err := filepath.Abs(path); err == nil && absPath == absZip {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		if err := addZipFile(zipWriter, path, filepath.ToSlash(rel)); err != nil {
			return err
		}

		numFiles++
		return nil
	})
	if err != nil {
		zipWriter.Close()
		return fmt.Errorf("%w: %w", data.ErrWrite, err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("%w: %w", data.ErrWrite, err)
	}

	log.Info().Str("FileName", zipFn).Int("NumFiles", numFiles).Msg("archived directory")

	return nil
}

func addZipFile(zipWriter *zip.Writer, path, name string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name
	header.Method = zip.Deflate

	dest, err := zipWriter.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(dest, fh)
	return err
}
