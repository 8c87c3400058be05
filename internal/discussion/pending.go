package discussion

import (
	"context"
	"time"

	"github.com/antoniostano/roundtable/internal/persona"
)

type generationResult struct {
	text string
	err  error
}

// pendingGeneration is the one-ahead look-ahead slot: the in-flight reply
// for a specific speaker and a specific context snapshot. At most one exists
// at a time, created once per turn and consumed exactly once.
type pendingGeneration struct {
	speaker persona.Persona
	index   int
	result  chan generationResult
	cancel  context.CancelFunc
}

// startGeneration launches the generator call for a speaker against the
// given context snapshot. The snapshot is captured by the caller before this
// call; the goroutine never re-reads the log.
func (o *Orchestrator) startGeneration(ctx context.Context, p persona.Persona, index int, contextText string) *pendingGeneration {
	genCtx, cancel := context.WithTimeout(ctx, o.responseTimeout)
	pending := &pendingGeneration{
		speaker: p,
		index:   index,
		result:  make(chan generationResult, 1),
		cancel:  cancel,
	}

	go func() {
		defer cancel()
		start := time.Now()
		text, err := o.generator.Generate(genCtx, p, o.systemPrompt, contextText)
		if err == nil && o.metrics != nil {
			o.metrics.ObserveGeneration(p.Name, time.Since(start))
		}
		pending.result <- generationResult{text: text, err: err}
	}()

	return pending
}

// wait blocks until the generation resolves or ctx is cancelled. A false
// resolved flag means the call was abandoned; its goroutine is released via
// cancel and its eventual result is discarded through the buffered channel.
func (p *pendingGeneration) wait(ctx context.Context) (text string, resolved bool, err error) {
	select {
	case res := <-p.result:
		return res.text, true, res.err
	case <-ctx.Done():
		p.cancel()
		return "", false, ctx.Err()
	}
}
