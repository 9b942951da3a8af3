// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sourcewatch/simguard/internal/similarity"
	"github.com/sourcewatch/simguard/internal/store"
	"github.com/sourcewatch/simguard/internal/task"
)

// resultTTL bounds how long a written pair result survives in the
// cache; results are always rebuildable from the two files' content
// hashes, so there is no reason to keep them indefinitely.
const resultTTL = 30 * 24 * time.Hour

// cacheResultSink persists pair results through the same store.Cache
// the similarity engine uses for its own comparison cache, under a
// distinct key prefix so the two never collide.
type cacheResultSink struct {
	cache store.Cache
}

func newCacheResultSink(cache store.Cache) *cacheResultSink {
	return &cacheResultSink{cache: cache}
}

func resultKey(key task.PairKey) string {
	return fmt.Sprintf("simguard:task-result:%s:%s:%s", key.TaskID, key.HashA, key.HashB)
}

func (s *cacheResultSink) HasResult(ctx context.Context, key task.PairKey) (bool, error) {
	_, err := s.cache.Get(ctx, resultKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking result cache for %s/%s: %w", key.HashA, key.HashB, err)
	}
	return true, nil
}

func (s *cacheResultSink) WriteResult(ctx context.Context, key task.PairKey, result *similarity.PairResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result for %s/%s: %w", key.HashA, key.HashB, err)
	}
	if err := s.cache.Put(ctx, resultKey(key), data, resultTTL); err != nil {
		return fmt.Errorf("writing result for %s/%s: %w", key.HashA, key.HashB, err)
	}
	return nil
}
