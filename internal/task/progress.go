// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package task

import (
	"context"
	"sync/atomic"
)

// progressCounter tracks pairs completed for one job and forwards
// updates to a ProgressReporter as they happen.
type progressCounter struct {
	total     int
	taskID    string
	reporter  ProgressReporter
	completed atomic.Int64
}

func newProgressCounter(total int, taskID string, reporter ProgressReporter) *progressCounter {
	return &progressCounter{total: total, taskID: taskID, reporter: reporter}
}

func (p *progressCounter) increment(ctx context.Context) {
	n := p.completed.Add(1)
	if p.reporter != nil {
		p.reporter.ReportProgress(ctx, p.taskID, int(n), p.total)
	}
}
