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
package backblaze

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kothar/go-backblaze"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrNoCredentials  = errors.New("backblaze credentials are not configured")
)

// ObjectName returns the key an archive is stored under in the bucket
func ObjectName(prefix, fn string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return filepath.Base(fn)
	}
	return path.Join(prefix, filepath.Base(fn))
}

// Upload copies the archive fn into bucketName under prefix using the
// credentials stored in backblaze.application_id / backblaze.application_key
func Upload(fn, bucketName, prefix string) error {
	creds := backblaze.Credentials{
		KeyID:          viper.GetString("backblaze.application_id"),
		ApplicationKey: viper.GetString("backblaze.application_key"),
	}

	if creds.KeyID == "" || creds.ApplicationKey == "" {
		return ErrNoCredentials
	}

	reader, err := os.Open(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("open archive failed")
		return err
	}
	defer reader.Close()

	b2, err := backblaze.NewB2(creds)
	if err != nil {
		log.Error().Err(err).Str("BucketName", bucketName).Msg("authorize backblaze failed")
		return err
	}

	bucket, err := b2.Bucket(bucketName)
	if err != nil {
		log.Error().Err(err).Str("BucketName", bucketName).Msg("lookup bucket failed")
		return err
	}

	if bucket == nil {
		log.Error().Str("BucketName", bucketName).Msg("bucket does not exist")
		return ErrBucketNotFound
	}

	outName := ObjectName(prefix, fn)
	metadata := map[string]string{
		"source": "alphavantage",
	}

	file, err := bucket.UploadFile(outName, metadata, reader)
	if err != nil {
		log.Error().Err(err).Str("FileName", outName).Str("BucketName", bucketName).Msg("save archive to backblaze failed")
		return err
	}

	log.Info().Str("FileName", file.Name).Int64("Size", file.ContentLength).Str("ID", file.ID).Msg("uploaded archive to backblaze")
	return nil
}
