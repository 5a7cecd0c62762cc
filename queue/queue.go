// Package queue provides the FIFO packet queue that decouples the capture
// callbacks from the disk-writing loop. Admission never blocks: the queue
// has no capacity ceiling, and the memory threshold is advisory policy
// evaluated by the consumer, not enforced here. Blocking the capture
// driver's thread risks dropped hardware frames, so the safety valve is
// stopping the pipeline, not slowing the producer.
package queue

import (
	"errors"
	"sync"

	"github.com/zsiec/reel/media"
)

// ErrClosed is returned by Put once the queue has been closed for
// shutdown. Producers racing teardown drop the frame.
var ErrClosed = errors.New("queue closed")

type node struct {
	pkt  *media.Packet
	next *node
}

// Queue is a thread-safe FIFO of media packets with byte-size accounting.
// Any number of producers may Put concurrently; a single consumer Gets.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	head   *node
	tail   *node
	count  int
	size   int64
	closed bool
}

// New returns an empty open queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends pkt to the tail and wakes one blocked consumer. It never
// blocks. The only failure is ErrClosed after Close.
func (q *Queue) Put(pkt *media.Packet) error {
	n := &node{pkt: pkt}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.count++
	q.size += int64(pkt.Size())
	q.cond.Signal()
	q.mu.Unlock()
	return nil
}

// Get removes and returns the head packet. On an empty queue it returns
// immediately when block is false, and otherwise suspends until a packet
// arrives or the queue is closed. The second return is false only when
// there is nothing to return: an empty queue in non-blocking mode, or a
// closed queue that has been fully drained.
func (q *Queue) Get(block bool) (*media.Packet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if n := q.head; n != nil {
			q.head = n.next
			if q.head == nil {
				q.tail = nil
			}
			q.count--
			q.size -= int64(n.pkt.Size())
			return n.pkt, true
		}
		if q.closed || !block {
			return nil, false
		}
		q.cond.Wait()
	}
}

// Len returns a snapshot of the number of queued packets.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Size returns a snapshot of the queued bytes (payload plus per-packet
// overhead). The value may be stale by the time the caller acts on it;
// it feeds the advisory memory-threshold check only.
func (q *Queue) Size() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Close marks the queue closed and wakes all waiters. Subsequent Puts
// fail with ErrClosed; Gets drain the remaining packets and then report
// the queue closed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Flush drops every queued packet and resets the accounting to zero.
// Teardown only: producers must be stopped and the consumer joined first.
func (q *Queue) Flush() {
	q.mu.Lock()
	q.head = nil
	q.tail = nil
	q.count = 0
	q.size = 0
	q.mu.Unlock()
}
