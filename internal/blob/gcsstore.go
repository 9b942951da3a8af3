// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
)

// languageMetaKey is the GCS object metadata key the source file's
// language tag is stored under alongside its bytes.
const languageMetaKey = "simguard-language"

// GCSStore is a content-addressed blob store backed by a Cloud Storage
// bucket, for deployments that run the worker across multiple nodes
// sharing one corpus.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore opens a Cloud Storage client against bucket using
// Application Default Credentials: if saKeyPath is non-empty it is
// exported as GOOGLE_APPLICATION_CREDENTIALS for the duration of the
// process before the client is constructed, otherwise the ambient
// environment (workload identity, gcloud auth, or a credentials file
// already pointed to by that variable) is used as-is. prefix
// namespaces objects within the bucket (e.g. "simguard/sources/") so
// it can be shared with other tenants.
func NewGCSStore(ctx context.Context, bucket, prefix, saKeyPath string) (*GCSStore, error) {
	if saKeyPath != "" {
		if _, err := os.Stat(saKeyPath); err != nil {
			return nil, fmt.Errorf("blob: service account key not found at %s: %w", saKeyPath, err)
		}
		if err := os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", saKeyPath); err != nil {
			return nil, fmt.Errorf("blob: setting credentials path: %w", err)
		}
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob: creating GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) objectName(contentHash string) string {
	return s.prefix + contentHash
}

// Put uploads src to the bucket, tagging the object with its language.
// Objects are immutable once written, so a pre-existing object is left
// alone rather than re-uploaded.
func (s *GCSStore) Put(ctx context.Context, contentHash string, src []byte, language string) error {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(contentHash))

	if _, err := obj.Attrs(ctx); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("blob: checking existing object for %s: %w", contentHash, err)
	}

	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/octet-stream"
	writer.Metadata = map[string]string{languageMetaKey: language}

	if _, err := writer.Write(src); err != nil {
		_ = writer.Close()
		return fmt.Errorf("blob: writing object for %s: %w", contentHash, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("blob: closing object writer for %s: %w", contentHash, err)
	}
	return nil
}

// Resolve downloads the object for contentHash and returns its bytes
// and the language tag recorded in its metadata.
func (s *GCSStore) Resolve(ctx context.Context, contentHash string) ([]byte, string, error) {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(contentHash))

	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("blob: reading attrs for %s: %w", contentHash, err)
	}

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("blob: opening reader for %s: %w", contentHash, err)
	}
	defer reader.Close()

	src, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("blob: downloading %s: %w", contentHash, err)
	}
	return src, attrs.Metadata[languageMetaKey], nil
}

// Close releases the underlying GCS client's connections.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
