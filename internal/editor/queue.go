/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "sync"

// Queue runs deferred work on the next tick of the event loop. The host
// calls Flush once per tick; Notify, when set, is called after each Post so
// the host can schedule that tick.
type Queue struct {
	mu     sync.Mutex
	tasks  []*Task
	closed bool

	Notify func()
}

// Task is a handle to posted work.
type Task struct {
	mu       sync.Mutex
	fn       func()
	canceled bool
	done     bool
}

// Cancel prevents the task from running. Canceling a finished task is a no-op.
func (t *Task) Cancel() {
	t.mu.Lock()
	t.canceled = true
	t.mu.Unlock()
}

// Pending reports whether the task will still run.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.canceled && !t.done
}

func (t *Task) run() {
	t.mu.Lock()
	if t.canceled || t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	t.mu.Unlock()
	t.fn()
}

// Post schedules fn for the next Flush. Posting to a closed queue returns an
// already canceled task.
func (q *Queue) Post(fn func()) *Task {
	t := &Task{fn: fn}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		t.canceled = true
		return t
	}
	q.tasks = append(q.tasks, t)
	notify := q.Notify
	q.mu.Unlock()
	if notify != nil {
		notify()
	}
	return t
}

// Flush runs the tasks posted before the call, in order. Tasks posted while
// flushing wait for the next Flush. It returns how many tasks ran.
func (q *Queue) Flush() int {
	q.mu.Lock()
	batch := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	n := 0
	for _, t := range batch {
		if t.Pending() {
			t.run()
			n++
		}
	}
	return n
}

// Len reports the number of queued tasks, canceled ones included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close cancels every pending task and rejects new ones.
func (q *Queue) Close() {
	q.mu.Lock()
	batch := q.tasks
	q.tasks = nil
	q.closed = true
	q.mu.Unlock()
	for _, t := range batch {
		t.Cancel()
	}
}

// Reopen accepts posts again after Close. Tasks canceled by Close stay
// canceled.
func (q *Queue) Reopen() {
	q.mu.Lock()
	q.closed = false
	q.mu.Unlock()
}
