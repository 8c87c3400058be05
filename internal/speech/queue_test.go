package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/antoniostano/roundtable/internal/observability"
)

func newTestQueue(t *testing.T, narrator Narrator) *Queue {
	t.Helper()
	q := NewQueue(narrator, observability.NewMetrics("test"), 8, 2*time.Second)
	q.Start()
	return q
}

func TestQueueNarratesInFIFOOrder(t *testing.T) {
	recorder := NewRecorderNarrator(0)
	q := newTestQueue(t, recorder)

	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		if err := q.Enqueue(Task{Speaker: "A", Text: text}); err != nil {
			t.Fatalf("Enqueue(%q) error = %v", text, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}

	spoken := recorder.Spoken()
	if len(spoken) != len(texts) {
		t.Fatalf("len(Spoken()) = %d, want %d", len(spoken), len(texts))
	}
	for i, text := range texts {
		if spoken[i] != text {
			t.Fatalf("Spoken()[%d] = %q, want %q", i, spoken[i], text)
		}
	}

	if err := q.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestQueueDrainWaitsForPlayback(t *testing.T) {
	recorder := NewRecorderNarrator(50 * time.Millisecond)
	q := newTestQueue(t, recorder)

	if err := q.Enqueue(Task{Speaker: "A", Text: "slow utterance"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("Drain() returned after %v, want it to wait for playback", elapsed)
	}
	if err := q.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestQueueEnqueueAfterShutdown(t *testing.T) {
	q := newTestQueue(t, NewRecorderNarrator(0))
	if err := q.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := q.Enqueue(Task{Speaker: "A", Text: "late"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Enqueue() after shutdown = %v, want ErrQueueClosed", err)
	}
}

func TestQueueShutdownDrainsRemainingTasks(t *testing.T) {
	recorder := NewRecorderNarrator(10 * time.Millisecond)
	q := newTestQueue(t, recorder)

	for _, text := range []string{"one", "two"} {
		if err := q.Enqueue(Task{Speaker: "A", Text: text}); err != nil {
			t.Fatalf("Enqueue(%q) error = %v", text, err)
		}
	}
	if err := q.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if spoken := recorder.Spoken(); len(spoken) != 2 {
		t.Fatalf("len(Spoken()) after graceful shutdown = %d, want 2", len(spoken))
	}
}

func TestQueueShutdownIsIdempotent(t *testing.T) {
	q := newTestQueue(t, NewRecorderNarrator(0))
	if err := q.Shutdown(); err != nil {
		t.Fatalf("first Shutdown() error = %v", err)
	}
	if err := q.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
}

func TestQueueKillAbandonsPlayback(t *testing.T) {
	recorder := NewRecorderNarrator(5 * time.Second)
	q := newTestQueue(t, recorder)

	if err := q.Enqueue(Task{Speaker: "A", Text: "endless monologue"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// Give the consumer time to start narrating, then cut it off.
	time.Sleep(20 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		q.Kill()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Kill() did not return promptly")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Drain(ctx); !errors.Is(err, ErrQueueClosed) && err != nil {
		// Either the consumer already exited (ErrQueueClosed) or the
		// pending count reached zero; both are acceptable after Kill.
		t.Fatalf("Drain() after Kill = %v", err)
	}
}

// stubbornNarrator ignores its context and blocks until released, modelling
// a stuck external speech process.
type stubbornNarrator struct {
	release chan struct{}
}

func (n *stubbornNarrator) Speak(context.Context, string) error {
	<-n.release
	return nil
}

func TestQueueShutdownEscalatesWhenConsumerStalls(t *testing.T) {
	narrator := &stubbornNarrator{release: make(chan struct{})}
	defer close(narrator.release)

	q := NewQueue(narrator, nil, 4, 50*time.Millisecond)
	q.Start()

	if err := q.Enqueue(Task{Speaker: "A", Text: "never ends"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	// Let the consumer start narrating, then ask for a graceful shutdown.
	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	err := q.Shutdown()
	if err == nil {
		t.Fatalf("Shutdown() error = nil, want abandonment error for a stalled consumer")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("Shutdown() took %v, want it bounded by the join grace", elapsed)
	}
}

func TestQueueNarrationFailureDoesNotHaltPipeline(t *testing.T) {
	recorder := NewRecorderNarrator(0)
	recorder.FailOn("broken")
	q := newTestQueue(t, recorder)

	for _, text := range []string{"ok-1", "broken", "ok-2"} {
		if err := q.Enqueue(Task{Speaker: "A", Text: text}); err != nil {
			t.Fatalf("Enqueue(%q) error = %v", text, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}

	spoken := recorder.Spoken()
	if len(spoken) != 2 || spoken[0] != "ok-1" || spoken[1] != "ok-2" {
		t.Fatalf("Spoken() = %v, want the two healthy utterances in order", spoken)
	}
	if err := q.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}
