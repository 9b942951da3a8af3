// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/sourcewatch/simguard/internal/task"
)

// httpFileRef is the wire shape of one file in a submitted job: the
// daemon resolves bytes by content hash through its configured blob
// store, so a submission never carries file bytes or paths itself —
// whatever pushed the job is assumed to have already written the blob
// (directly, or via the shared bucket a fleet of workers reads from).
type httpFileRef struct {
	FileID      string `json:"file_id"`
	ContentHash string `json:"content_hash"`
	Language    string `json:"language"`
}

type submitTaskRequest struct {
	TaskID             string        `json:"task_id"`
	Files              []httpFileRef `json:"files"`
	CandidateThreshold *float64      `json:"candidate_threshold,omitempty"`
	Gap                *int          `json:"gap,omitempty"`
	MinMatchKgrams     *int          `json:"min_match_kgrams,omitempty"`
}

type submitTaskResponse struct {
	TaskID string `json:"task_id"`
}

type taskStatusResponse struct {
	TaskID    string       `json:"task_id"`
	Total     int          `json:"total_pairs"`
	Completed int          `json:"completed_pairs"`
	Done      bool         `json:"done"`
	Error     string       `json:"error,omitempty"`
	Results   []pairResult `json:"results"`
}

// server exposes the daemon's HTTP surface: job submission, status
// polling, health, and metrics.
type server struct {
	queue   *jobQueue
	tracker *taskTracker
	options *liveOptions
	metrics http.Handler
}

func newServer(queue *jobQueue, tracker *taskTracker, options *liveOptions, metricsHandler http.Handler) *server {
	return &server{queue: queue, tracker: tracker, options: options, metrics: metricsHandler}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tasks", s.handleSubmit)
	mux.HandleFunc("GET /v1/tasks/{id}", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics)
	return mux
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decoding request: %v", err), http.StatusBadRequest)
		return
	}
	if req.TaskID == "" {
		req.TaskID = uuid.NewString()
	}

	files := make([]task.FileRef, len(req.Files))
	for i, f := range req.Files {
		files[i] = task.FileRef{FileID: f.FileID, ContentHash: f.ContentHash, Language: f.Language}
	}

	job := task.Job{
		TaskID: req.TaskID,
		Files:  files,
		Options: s.options.resolve(task.Options{
			CandidateThreshold: req.CandidateThreshold,
			Gap:                req.Gap,
			MinMatchKgrams:     req.MinMatchKgrams,
		}),
	}

	s.tracker.register(job.TaskID)
	if err := s.queue.Submit(r.Context(), job); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(submitTaskResponse{TaskID: job.TaskID})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("id")
	rec, ok := s.tracker.get(taskID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	total, completed, results, err, done := rec.snapshot()
	resp := taskStatusResponse{
		TaskID:    taskID,
		Total:     total,
		Completed: completed,
		Done:      done,
		Results:   results,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
