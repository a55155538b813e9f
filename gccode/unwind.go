// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gccode

import (
	"sync"
	"unsafe"
)

// UnwindTable is the side table backing the x86/Windows RefUnwindInfo
// ref kind: it maps a code block to its SEH handler record. UpdatePtrs
// fills it for every RefUnwindInfo entry whatever the target; nothing in
// this module registers unwind data with an OS function table.
type UnwindTable struct {
	mu      sync.Mutex
	entries map[unsafe.Pointer]unsafe.Pointer // code client -> handler record
}

// NewUnwindTable returns an empty table.
func NewUnwindTable() *UnwindTable {
	return &UnwindTable{entries: make(map[unsafe.Pointer]unsafe.Pointer)}
}

// Register records that client's SEH handler record lives at handler.
// Called from UpdatePtrs whenever it processes a RefUnwindInfo entry.
func (t *UnwindTable) Register(client, handler unsafe.Pointer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[client] = handler
}

// Unregister drops client's entry, called when its code allocation is
// finalized.
func (t *UnwindTable) Unregister(client unsafe.Pointer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, client)
}

// Lookup returns the handler record for client, and whether one is
// registered. Consulted by the platform unwinder when it walks off the
// end of a frame into a code block it doesn't otherwise recognize.
func (t *UnwindTable) Lookup(client unsafe.Pointer) (unsafe.Pointer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.entries[client]
	return h, ok
}

// Len reports how many code blocks currently have a registration,
// exposed for MemorySummary-style diagnostics.
func (t *UnwindTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
