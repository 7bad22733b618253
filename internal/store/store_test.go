/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"sync"
	"testing"
)

type demo struct {
	Items    []*int
	Selected []*int
	Count    int
}

func TestSubscribeReceivesCompleteSnapshots(t *testing.T) {
	s := New(demo{})
	var seen []demo
	off := s.Subscribe(func(next, prev demo) { seen = append(seen, next) })

	a := 1
	s.Update(func(d demo) demo {
		d.Items = append(append([]*int(nil), d.Items...), &a)
		d.Count = len(d.Items)
		return d
	})
	if len(seen) != 1 || seen[0].Count != 1 || len(seen[0].Items) != 1 {
		t.Fatalf("unexpected snapshots: %+v", seen)
	}

	off()
	off() // idempotent
	s.Set(demo{Count: 5})
	if len(seen) != 1 {
		t.Fatalf("listener called after unsubscribe")
	}
	if s.Get().Count != 5 {
		t.Fatalf("Get = %+v", s.Get())
	}
}

func TestWatchIgnoresUnrelatedSlices(t *testing.T) {
	s := New(demo{})
	selCalls, itemCalls := 0, 0
	Watch(s, func(d demo) []*int { return d.Selected }, SameSlice[*int], func(_, _ []*int) { selCalls++ })
	Watch(s, func(d demo) []*int { return d.Items }, SameSlice[*int], func(_, _ []*int) { itemCalls++ })

	a := 1
	s.Update(func(d demo) demo { d.Items = []*int{&a}; return d })
	if itemCalls != 1 || selCalls != 0 {
		t.Fatalf("after items change: items=%d sel=%d", itemCalls, selCalls)
	}
	s.Update(func(d demo) demo { d.Selected = []*int{&a}; return d })
	if itemCalls != 1 || selCalls != 1 {
		t.Fatalf("after selection change: items=%d sel=%d", itemCalls, selCalls)
	}
	s.Update(func(d demo) demo { d.Count++; return d })
	if itemCalls != 1 || selCalls != 1 {
		t.Fatalf("unrelated change woke a slice watcher: items=%d sel=%d", itemCalls, selCalls)
	}
}

func TestNestedWriteFromListener(t *testing.T) {
	s := New(demo{})
	Watch(s, func(d demo) int { return d.Count }, Equal[int], func(next, _ int) {
		if next == 1 {
			s.Update(func(d demo) demo { d.Count = 2; return d })
		}
	})
	s.Set(demo{Count: 1})
	if got := s.Get().Count; got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}
}

func TestConcurrentUpdatesAreAtomic(t *testing.T) {
	s := New(demo{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(d demo) demo { d.Count++; return d })
		}()
	}
	wg.Wait()
	if got := s.Get().Count; got != 50 {
		t.Fatalf("Count = %d, want 50", got)
	}
}
