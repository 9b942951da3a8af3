// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package task

import "context"

// pairEnum is one within-task file pair to compare.
type pairEnum struct {
	a, b FileRef
}

// combinations streams every unordered pair from files (the full
// N·(N−1)/2 within-task set) over a channel, mirroring
// itertools.combinations. Run drains it into its pair list before
// dispatching any pair to the worker pool.
func combinations(ctx context.Context, files []FileRef) <-chan pairEnum {
	out := make(chan pairEnum)
	go func() {
		defer close(out)
		for i := 0; i < len(files); i++ {
			for j := i + 1; j < len(files); j++ {
				select {
				case out <- pairEnum{a: files[i], b: files[j]}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
