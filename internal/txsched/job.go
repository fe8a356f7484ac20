// Package txsched implements the downlink job priority queue and
// admission control described in spec.md §4.3: class A/B/C scheduling,
// duty-cycle and LBT admission, and the half-duplex gate that prevents
// two downlinks contending for the same transceiver unit.
package txsched

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// Priority ranks a downlink job by device class (s2e derives it from a
// dnmsg's dC field); higher values are scheduled first, so class A jobs
// go ahead of class B, and class B ahead of class C.
type Priority int

const (
	PriorityClassC Priority = iota
	PriorityClassB
	PriorityClassA
)

// Job is one admitted or pending downlink transmission.
type Job struct {
	ID       uuid.UUID
	DevEUI   [8]byte
	Diid     int64
	Priority Priority
	XTime    int64 // absolute scheduled xtime
	RCtx     int64 // transceiver/antenna unit this job targets
	RFChain  int
	Freq     uint32
	DR       int
	Power    int // dBm EIRP requested; clamped to the region's MaxEIRPdBm at admission
	Payload  []byte
	Deadline time.Time

	index int // heap bookkeeping, managed by container/heap
}

// queue is a min-heap ordered by (Priority desc as "earlier", XTime
// asc), i.e. higher-priority jobs with earlier xtime come first.
type queue []*Job

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	return q[i].XTime < q[j].XTime
}
func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *queue) Push(x any) {
	job := x.(*Job)
	job.index = len(*q)
	*q = append(*q, job)
}
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	job.index = -1
	*q = old[:n-1]
	return job
}

// Queue is the exported priority queue wrapper, safe to use from a
// single goroutine (S2E's event loop owns it, per spec.md §5's
// cooperative single-threaded model).
type Queue struct {
	q queue
}

func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.q)
	return q
}

func (q *Queue) Push(j *Job) { heap.Push(&q.q, j) }

func (q *Queue) Pop() *Job {
	if q.q.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.q).(*Job)
}

func (q *Queue) Peek() *Job {
	if q.q.Len() == 0 {
		return nil
	}
	return q.q[0]
}

func (q *Queue) Len() int { return q.q.Len() }

// Remove deletes a pending job by id and reports whether it was found.
func (q *Queue) Remove(id uuid.UUID) bool {
	for i, j := range q.q {
		if j.ID == id {
			heap.Remove(&q.q, i)
			return true
		}
	}
	return false
}
