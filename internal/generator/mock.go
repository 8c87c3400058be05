package generator

import (
	"context"
	"fmt"
	"sync"

	"github.com/antoniostano/roundtable/internal/persona"
)

// Call records one Generate invocation and the context snapshot it saw.
type Call struct {
	Speaker     string
	ContextText string
}

// Scripted is an in-process generator for tests and mock mode. Replies are
// scripted per speaker and consumed in order; with no script it echoes a
// canned line so the discussion keeps moving.
type Scripted struct {
	mu       sync.Mutex
	scripts  map[string][]string
	failures map[string]int
	calls    []Call
	inflight int
	maxSeen  int
	block    chan struct{}
}

func NewScripted() *Scripted {
	return &Scripted{
		scripts:  make(map[string][]string),
		failures: make(map[string]int),
	}
}

// Script queues replies for a speaker, consumed one per turn.
func (g *Scripted) Script(speaker string, replies ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts[speaker] = append(g.scripts[speaker], replies...)
}

// FailNext makes the next n calls for a speaker fail.
func (g *Scripted) FailNext(speaker string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[speaker] += n
}

// Block makes every Generate call wait on the returned release function,
// simulating a slow model.
func (g *Scripted) Block() func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.block = make(chan struct{})
	ch := g.block
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (g *Scripted) Generate(ctx context.Context, p persona.Persona, _, contextText string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, Call{Speaker: p.Name, ContextText: contextText})
	g.inflight++
	if g.inflight > g.maxSeen {
		g.maxSeen = g.inflight
	}
	block := g.block
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inflight--
		g.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failures[p.Name] > 0 {
		g.failures[p.Name]--
		return "", fmt.Errorf("simulated generation failure for %s", p.Name)
	}
	if replies := g.scripts[p.Name]; len(replies) > 0 {
		reply := replies[0]
		g.scripts[p.Name] = replies[1:]
		return reply, nil
	}
	return fmt.Sprintf("%s has nothing further to add.", p.Name), nil
}

// Calls returns a copy of the recorded invocations in order.
func (g *Scripted) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// MaxConcurrent reports the highest number of simultaneously outstanding
// Generate calls observed.
func (g *Scripted) MaxConcurrent() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxSeen
}
