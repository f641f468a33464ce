// Copyright 2019-present PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package raftstore

import "sync"

// taskType discriminates what a task carries. The teacher's own worker.go
// enumerated a full raftstore task set (region snapshot gen/apply, raft
// log GC, compaction, PD heartbeats, ...); this repo narrows it to the one
// kind this core implements. See DESIGN.md for why the rest were dropped
// rather than stubbed.
type taskType int

const (
	taskTypeStop taskType = iota
	taskTypeSplitCheck
)

// task is the generic envelope the worker pool dispatches. Scheduling —
// how a task reaches a worker — is explicitly out of spec.md's scope
// (§1); this is the teacher's own answer to it, kept as-is because the
// Rust original's Runnable<Task> trait is the same shape.
type task struct {
	tp   taskType
	data interface{}
}

// taskRunner is implemented by anything a worker can drive to completion.
// splitCheckTaskRunner adapts SplitCheckRunner to it below.
type taskRunner interface {
	run(t task)
}

// worker is a single-goroutine task queue: tasks are dispatched serially,
// one at a time, to its taskRunner (spec.md §5: "a task runs to
// completion before the next begins").
type worker struct {
	name      string
	scheduler chan<- task
	receiver  <-chan task
	wg        *sync.WaitGroup
}

const defaultWorkerCapacity = 128

// newWorker creates a named worker with its own bounded task channel.
func newWorker(name string, wg *sync.WaitGroup) *worker {
	ch := make(chan task, defaultWorkerCapacity)
	return &worker{
		scheduler: (chan<- task)(ch),
		receiver:  (<-chan task)(ch),
		name:      name,
		wg:        wg,
	}
}

// start runs runner.run for every task until a stop task arrives.
func (w *worker) start(runner taskRunner) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for t := range w.receiver {
			if t.tp == taskTypeStop {
				return
			}
			runner.run(t)
		}
	}()
}

// schedule enqueues a SplitCheckTask onto the worker. Best-effort: if the
// worker's queue is full the task is dropped, matching the embedder's
// idempotent-retry story (spec.md §7: "the next scheduled check will
// re-attempt").
func (w *worker) schedule(t *SplitCheckTask) bool {
	select {
	case w.scheduler <- task{tp: taskTypeSplitCheck, data: t}:
		return true
	default:
		return false
	}
}

// stop asks the worker's goroutine to exit after draining what is
// already queued.
func (w *worker) stop() {
	w.scheduler <- task{tp: taskTypeStop}
}

// splitCheckTaskRunner adapts SplitCheckRunner to the worker pool's
// taskRunner interface.
type splitCheckTaskRunner struct {
	runner *SplitCheckRunner
}

func newSplitCheckTaskRunner(r *SplitCheckRunner) *splitCheckTaskRunner {
	return &splitCheckTaskRunner{runner: r}
}

func (r *splitCheckTaskRunner) run(t task) {
	sct, ok := t.data.(*SplitCheckTask)
	if !ok {
		return
	}
	r.runner.Run(sct)
}

// SplitCheckScheduler is the package's public handle onto a running
// split-check worker: the node/server layer schedules tasks onto it
// without needing to see the unexported worker/task machinery.
type SplitCheckScheduler struct {
	w *worker
}

// NewSplitCheckScheduler starts a worker goroutine driving runner and
// returns the handle used to feed it tasks.
func NewSplitCheckScheduler(name string, runner *SplitCheckRunner, wg *sync.WaitGroup) *SplitCheckScheduler {
	w := newWorker(name, wg)
	w.start(newSplitCheckTaskRunner(runner))
	return &SplitCheckScheduler{w: w}
}

// Schedule enqueues a split-check task for region. Returns false if the
// worker's queue is full; the caller's next periodic scan will retry.
func (s *SplitCheckScheduler) Schedule(t *SplitCheckTask) bool {
	return s.w.schedule(t)
}

// Stop asks the worker to exit once its queue drains.
func (s *SplitCheckScheduler) Stop() {
	s.w.stop()
}
