package speech

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/antoniostano/roundtable/internal/observability"
)

var (
	// ErrQueueClosed is returned by Enqueue after shutdown has started.
	ErrQueueClosed = errors.New("speech queue closed")
	// ErrQueueFull is returned when the bounded buffer is exhausted. The
	// orchestrator drains between turns, so hitting this indicates a
	// sequencing bug rather than load.
	ErrQueueFull = errors.New("speech queue full")
)

// Task is one utterance waiting to be narrated.
type Task struct {
	Speaker string
	Text    string
}

// Queue decouples turn production from narration pace: a bounded buffer
// with a single consumer goroutine that narrates tasks strictly in FIFO
// order. One instance serves one discussion.
type Queue struct {
	narrator  Narrator
	metrics   *observability.Metrics
	joinGrace time.Duration

	tasks      chan Task
	done       chan struct{}
	killCtx    context.Context
	killCancel context.CancelFunc

	mu      sync.Mutex
	pending int
	idle    chan struct{}
	closed  bool
	started bool
}

func NewQueue(narrator Narrator, metrics *observability.Metrics, capacity int, joinGrace time.Duration) *Queue {
	if capacity <= 0 {
		capacity = 16
	}
	if joinGrace <= 0 {
		joinGrace = 5 * time.Second
	}
	killCtx, killCancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		narrator:   narrator,
		metrics:    metrics,
		joinGrace:  joinGrace,
		tasks:      make(chan Task, capacity),
		done:       make(chan struct{}),
		killCtx:    killCtx,
		killCancel: killCancel,
		idle:       idle,
	}
}

// Start launches the consumer. Safe to call once; the consumer runs until
// Shutdown drains the queue or Kill abandons it.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go q.consume()
}

func (q *Queue) consume() {
	defer close(q.done)
	for {
		select {
		case <-q.killCtx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.narrate(task)
			q.taskDone()
		}
	}
}

func (q *Queue) narrate(task Task) {
	start := time.Now()
	// A narrator failure must not halt the pipeline: log and discard.
	if err := q.narrator.Speak(q.killCtx, task.Text); err != nil {
		if q.killCtx.Err() == nil {
			log.Printf("narration failed for %s: %v", task.Speaker, err)
			if q.metrics != nil {
				q.metrics.ProviderErrors.WithLabelValues("narrator", "speak_failed").Inc()
			}
		}
		return
	}
	if q.metrics != nil {
		q.metrics.ObserveNarration(time.Since(start))
	}
}

// Enqueue appends a task without blocking. The send happens under the
// queue lock so it can never race with Shutdown closing the channel.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
	default:
		return ErrQueueFull
	}
	if q.pending == 0 {
		q.idle = make(chan struct{})
	}
	q.pending++
	if q.metrics != nil {
		q.metrics.SpeechQueueDepth.Inc()
	}
	return nil
}

func (q *Queue) taskDone() {
	if q.metrics != nil {
		q.metrics.SpeechQueueDepth.Dec()
	}
	q.mu.Lock()
	q.pending--
	if q.pending == 0 {
		close(q.idle)
	}
	q.mu.Unlock()
}

// Drain blocks until every previously enqueued task has been narrated, the
// context is cancelled, or the consumer has exited.
func (q *Queue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.pending == 0 {
			q.mu.Unlock()
			return nil
		}
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return ErrQueueClosed
		}
	}
}

// Shutdown stops accepting tasks, lets the consumer finish the remaining
// ones, and joins it with a bounded wait. Idempotent. If the consumer does
// not exit within the grace period it is abandoned via Kill.
func (q *Queue) Shutdown() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.join()
		return nil
	}
	q.closed = true
	started := q.started
	close(q.tasks)
	q.mu.Unlock()

	if !started {
		return nil
	}
	return q.join()
}

func (q *Queue) join() error {
	timer := time.NewTimer(q.joinGrace)
	defer timer.Stop()
	select {
	case <-q.done:
		return nil
	case <-timer.C:
		q.killCancel()
		select {
		case <-q.done:
		case <-time.After(time.Second):
		}
		return errors.New("speech queue consumer abandoned after join grace")
	}
}

// Kill abandons the queue immediately: the current utterance is cut off and
// remaining tasks are dropped. Used on repeated interrupt.
func (q *Queue) Kill() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.killCancel()
}
