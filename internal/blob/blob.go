// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package blob stores and retrieves the raw source files the engine
// fingerprints, addressed by their content hash. It exists so the
// similarity engine never has to know whether a submitted file lives
// on local disk, in Cloud Storage, or anywhere else.
package blob

import "context"

// ErrNotFound is returned when a content hash has no stored bytes.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "blob: content hash not found" }

// Store persists and retrieves source file bytes by content hash. It
// satisfies similarity.BytesResolver via Resolve, so an *Store can be
// handed directly to similarity.NewEngine.
type Store interface {
	// Put stores src under contentHash, tagged with language so a
	// later Resolve can hand both back to the caller. Put is expected
	// to be idempotent: storing the same hash twice is a no-op.
	Put(ctx context.Context, contentHash string, src []byte, language string) error

	// Resolve returns the bytes and language stored under
	// contentHash, or ErrNotFound if nothing is stored there.
	Resolve(ctx context.Context, contentHash string) (src []byte, language string, err error)
}
