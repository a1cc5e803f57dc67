package scheduler

import (
	"container/heap"
	"time"

	"croner/internal/jobs"
)

// Entry is a job waiting for its deadline. Entries are replaced, never
// mutated: a fired job is pushed back as a fresh Entry.
type Entry struct {
	When time.Time
	Job  *jobs.Spec

	seq uint64
}

// entryHeap orders by When, then by insertion order so equal deadlines
// fire in the order they were scheduled.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if !h[i].When.Equal(h[j].When) {
		return h[i].When.Before(h[j].When)
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*Entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// queue wraps entryHeap with typed operations.
type queue struct {
	h   entryHeap
	seq uint64
}

func (q *queue) Len() int { return q.h.Len() }

func (q *queue) Reset() {
	clear(q.h)
	q.h = q.h[:0]
}

func (q *queue) Push(when time.Time, job *jobs.Spec) {
	q.seq++
	heap.Push(&q.h, &Entry{When: when, Job: job, seq: q.seq})
}

func (q *queue) Pop() (*Entry, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return heap.Pop(&q.h).(*Entry), true
}

// Peek returns the earliest entry without removing it.
func (q *queue) Peek() (*Entry, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return q.h[0], true
}
