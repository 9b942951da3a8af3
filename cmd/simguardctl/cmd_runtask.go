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
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sourcewatch/simguard/internal/fingerprint"
	"github.com/sourcewatch/simguard/internal/similarity"
	"github.com/sourcewatch/simguard/internal/task"
)

// taskSpecFile is a run-task input document: a task ID and the local
// file paths making up the task.
type taskSpecFile struct {
	FileID   string `json:"file_id"`
	Path     string `json:"path"`
	Language string `json:"language"`
}

type taskSpec struct {
	TaskID string         `json:"task_id"`
	Files  []taskSpecFile `json:"files"`
}

// memorySink collects results in process for printing, rather than
// writing them to an external store.
type memorySink struct {
	results map[task.PairKey]*similarity.PairResult
}

func newMemorySink() *memorySink {
	return &memorySink{results: make(map[task.PairKey]*similarity.PairResult)}
}

func (s *memorySink) HasResult(_ context.Context, key task.PairKey) (bool, error) {
	_, ok := s.results[key]
	return ok, nil
}

func (s *memorySink) WriteResult(_ context.Context, key task.PairKey, result *similarity.PairResult) error {
	s.results[key] = result
	return nil
}

// consoleProgress prints a line to stderr as pairs complete; the
// daemon's gauge-backed reporter is not needed for a one-shot run.
type consoleProgress struct{}

func (consoleProgress) ReportProgress(_ context.Context, taskID string, completed, total int) {
	fmt.Fprintf(os.Stderr, "%s: %d/%d pairs compared\n", taskID, completed, total)
}

// noopBroker satisfies task.Broker for a run that has no message
// queue backing it; ack/nack are no-ops.
type noopBroker struct{}

func (noopBroker) Ack(context.Context, string) error        { return nil }
func (noopBroker) Nack(context.Context, string, bool) error { return nil }

func runRunTask(cmd *cobra.Command, args []string) error {
	specPath := args[0]
	data, err := os.ReadFile(specPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", specPath, err)
	}

	var spec taskSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("parsing %s: %w", specPath, err)
	}

	ws, err := newLocalWorkspace(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	files := make([]task.FileRef, 0, len(spec.Files))
	for _, f := range spec.Files {
		src, err := os.ReadFile(f.Path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Path, err)
		}
		contentHash := fingerprint.ContentHash(src)
		if err := ws.blobs.Put(ctx, contentHash, src, f.Language); err != nil {
			return fmt.Errorf("storing %s: %w", f.Path, err)
		}
		files = append(files, task.FileRef{FileID: f.FileID, ContentHash: contentHash, Language: f.Language})
	}

	sink := newMemorySink()
	runner := task.NewRunner(ws.engine, ws.selector, sink, consoleProgress{}, noopBroker{}, nil)

	job := task.Job{TaskID: spec.TaskID, Files: files}
	if err := runner.Run(ctx, job); err != nil {
		return fmt.Errorf("running task %s: %w", spec.TaskID, err)
	}

	type pairOutput struct {
		HashA  string                 `json:"hash_a"`
		HashB  string                 `json:"hash_b"`
		Result *similarity.PairResult `json:"result"`
	}
	out := make([]pairOutput, 0, len(sink.results))
	for key, result := range sink.results {
		out = append(out, pairOutput{HashA: key.HashA, HashB: key.HashB, Result: result})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HashA != out[j].HashA {
			return out[i].HashA < out[j].HashA
		}
		return out[i].HashB < out[j].HashB
	})

	return printJSON(out)
}
