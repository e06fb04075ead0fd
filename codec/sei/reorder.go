/*
DESCRIPTION
  reorder.go provides a ReorderingQueue that holds SEI messages and releases
  them in presentation timestamp order once enough later pictures have been
  seen.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sei provides handling of supplemental enhancement information
// messages: reading them from an SEI RBSP and reordering them from decode
// order into presentation order.
package sei

import (
	"math"
	"sort"
)

// entry holds the payloads sharing one presentation timestamp, in the order
// they were added.
type entry struct {
	pts  int64
	bufs [][]byte
}

// ReorderingQueue buffers SEI payloads keyed by presentation timestamp and
// passes them to a consumer in non-decreasing timestamp order. At most
// MaxSize distinct timestamps are held; adding one more releases the
// smallest.
//
// Payloads with the same timestamp added one after another are grouped and
// released in insertion order. A timestamp added again after a different
// one starts a new group, released after the earlier group with the same
// timestamp.
//
// The payload slice given to the consumer is owned by the queue and is only
// valid for the duration of the call, and the consumer must not call back
// into the queue. A ReorderingQueue must not be used concurrently.
type ReorderingQueue struct {
	consume func(ptsUs int64, payload []byte)
	maxSize int

	entries []*entry // Ascending by pts.
	last    *entry   // Most recently added to, or nil.

	freeEntries []*entry
	freeBufs    [][]byte
}

// NewReorderingQueue returns a new unbounded ReorderingQueue calling consume
// for each released payload.
func NewReorderingQueue(consume func(ptsUs int64, payload []byte)) *ReorderingQueue {
	return &ReorderingQueue{consume: consume, maxSize: math.MaxInt}
}

// SetMaxSize sets the maximum number of distinct timestamps held, releasing
// the smallest until no more than n remain. A size of 0 makes Add deliver
// payloads immediately; a negative size is treated as 0.
func (q *ReorderingQueue) SetMaxSize(n int) {
	if n < 0 {
		n = 0
	}
	q.maxSize = n
	q.evict(n)
}

// MaxSize returns the maximum number of distinct timestamps held.
func (q *ReorderingQueue) MaxSize() int { return q.maxSize }

// Len returns the number of distinct timestamps held.
func (q *ReorderingQueue) Len() int { return len(q.entries) }

// Add adds payload with presentation timestamp ptsUs. The payload is copied,
// so the caller may reuse it once Add returns.
func (q *ReorderingQueue) Add(ptsUs int64, payload []byte) {
	if q.maxSize == 0 || (len(q.entries) >= q.maxSize && ptsUs < q.entries[0].pts) {
		q.consume(ptsUs, payload)
		return
	}

	buf := append(q.newBuf(), payload...)
	if q.last != nil && q.last.pts == ptsUs {
		q.last.bufs = append(q.last.bufs, buf)
		return
	}

	e := q.newEntry()
	e.pts = ptsUs
	e.bufs = append(e.bufs, buf)

	// Insert after any group with the same timestamp.
	i := sort.Search(len(q.entries), func(i int) bool { return q.entries[i].pts > ptsUs })
	q.entries = append(q.entries, nil)
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = e
	q.last = e

	q.evict(q.maxSize)
}

// Flush releases all held payloads in timestamp order.
func (q *ReorderingQueue) Flush() {
	q.evict(0)
}

// Clear discards all held payloads without releasing them.
func (q *ReorderingQueue) Clear() {
	for _, e := range q.entries {
		q.recycle(e)
	}
	q.entries = q.entries[:0]
	q.last = nil
}

// evict releases the entries with the smallest timestamps until no more than
// n remain.
func (q *ReorderingQueue) evict(n int) {
	for len(q.entries) > n {
		e := q.entries[0]
		copy(q.entries, q.entries[1:])
		q.entries[len(q.entries)-1] = nil
		q.entries = q.entries[:len(q.entries)-1]
		if e == q.last {
			q.last = nil
		}
		for _, b := range e.bufs {
			q.consume(e.pts, b)
		}
		q.recycle(e)
	}
}

func (q *ReorderingQueue) newEntry() *entry {
	n := len(q.freeEntries)
	if n == 0 {
		return &entry{}
	}
	e := q.freeEntries[n-1]
	q.freeEntries = q.freeEntries[:n-1]
	return e
}

func (q *ReorderingQueue) newBuf() []byte {
	n := len(q.freeBufs)
	if n == 0 {
		return nil
	}
	b := q.freeBufs[n-1]
	q.freeBufs = q.freeBufs[:n-1]
	return b[:0]
}

func (q *ReorderingQueue) recycle(e *entry) {
	for i, b := range e.bufs {
		q.freeBufs = append(q.freeBufs, b)
		e.bufs[i] = nil
	}
	e.bufs = e.bufs[:0]
	q.freeEntries = append(q.freeEntries, e)
}
