package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/chatcal/internal/types"
)

// LaneBuffer is how many runs one chat may have waiting.
const LaneBuffer = 100

// GenericFailureReply is sent when a run fails outside the dispatcher.
const GenericFailureReply = "오류가 발생했습니다. 잠시 후 다시 시도해주세요."

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("queue stopped")

// Queue manages per-chat lanes with a global concurrency semaphore.
// Each chat gets its own FIFO channel (lane) so that its messages are
// answered in arrival order, while the semaphore limits the total number
// of concurrent processors across all chats.
type Queue struct {
	lanes     map[types.ChatID]chan *Run
	semaphore *semaphore.Weighted
	processor func(*Run) error
	active    atomic.Int64
	stopped   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewQueue creates a Queue that allows up to maxConcurrent runs to execute
// simultaneously across all chat lanes.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lanes:     make(map[types.ChatID]chan *Run),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// processors to finish.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	if !q.stopped {
		q.stopped = true
		for _, lane := range q.lanes {
			close(lane)
		}
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue adds a Run to its chat's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}

	lane, exists := q.lanes[run.ChatID]
	if !exists {
		lane = make(chan *Run, LaneBuffer)
		q.lanes[run.ChatID] = lane
		q.wg.Add(1)
		go q.processLane(lane)
	}

	select {
	case lane <- run:
		return nil
	default:
		return fmt.Errorf("queue full for chat %s", run.ChatID)
	}
}

// processLane drains a single chat lane, acquiring a semaphore slot before
// running the processor synchronously.
func (q *Queue) processLane(lane chan *Run) {
	defer q.wg.Done()
	for {
		select {
		case run, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			q.active.Add(1)
			q.process(run)
			q.active.Add(-1)
			q.semaphore.Release(1)
		case <-q.ctx.Done():
			return
		}
	}
}

func (q *Queue) process(run *Run) {
	if q.processor == nil {
		return
	}
	run.Ctx = q.ctx
	run.start()
	err := q.processor(run)
	run.finish(err)
	if err != nil {
		slog.Error("run failed", "run_id", string(run.ID), "chat_id", int64(run.ChatID), "error", err)
		if run.OnComplete != nil {
			run.OnComplete(GenericFailureReply)
		}
	}
}

// WaitIdle blocks until no runs are actively being processed, or the timeout
// expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.active.Load() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn func(*Run) error) {
	q.processor = fn
}
