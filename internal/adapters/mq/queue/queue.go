// Package queue defines the contract for enqueuing and consuming shot
// submissions.
//
// Implementations may use channels or more advanced structures. The
// in-memory bounded queue is the default transport between the ingest
// surface and the analysis workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
	defaultBufferSize    = 10000
)

// Submission represents the payload type flowing through the queue.
// Using the model.ShotSubmission type for type safety.
type Submission = model.ShotSubmission

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a shot submission to the queue.
	// Returns false if the queue is full and the submission was not enqueued.
	Enqueue(ctx context.Context, s Submission) bool

	// Dequeue returns a channel that will receive submissions as they become
	// available. The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Submission

	// Len returns the current number of queued submissions.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new submissions can be enqueued and the dequeue
	// channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	submissions chan Submission
	capacity    int
	bufferSize  int
	mu          sync.RWMutex
	closed      bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.submissions = make(chan Submission, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a shot submission to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s Submission) bool {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordQueueProcessingLatency(float64(latency))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if len(q.submissions) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.submissions <- s:
		metrics.RecordQueueEnqueue()
		currentSize := len(q.submissions)
		metrics.UpdateQueueSize(currentSize)
		utilization := float64(currentSize) / float64(q.capacity)
		metrics.UpdateQueueUtilization(utilization)
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive submissions as they become
// available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Submission {
	// Wrap the channel to track dequeue metrics
	dequeueChan := make(chan Submission)
	go func() {
		defer close(dequeueChan)
		for sub := range q.submissions {
			select {
			case dequeueChan <- sub:
				metrics.RecordQueueDequeue()
				currentSize := len(q.submissions)
				metrics.UpdateQueueSize(currentSize)
				utilization := float64(currentSize) / float64(q.capacity)
				metrics.UpdateQueueUtilization(utilization)
			case <-ctx.Done():
				return
			}
		}
	}()
	return dequeueChan
}

// Len returns the current number of queued submissions.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.submissions)
	metrics.UpdateQueueSize(size)
	utilization := float64(size) / float64(q.capacity)
	metrics.UpdateQueueUtilization(utilization)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.submissions)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
