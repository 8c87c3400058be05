package discussion

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/roundtable/internal/observability"
	"github.com/antoniostano/roundtable/internal/persona"
	"github.com/antoniostano/roundtable/internal/session"
	"github.com/antoniostano/roundtable/internal/speech"
	"github.com/antoniostano/roundtable/internal/transcript"
)

type controlKind int

const (
	ctrlPause controlKind = iota
	ctrlResume
	ctrlTopic
)

type control struct {
	kind  controlKind
	topic string
}

// Options wires an Orchestrator. Generator, Queue and Tracker are required;
// Store, Metrics and Listener default to no-ops.
type Options struct {
	Roster    persona.Roster
	Generator Generator
	Queue     *speech.Queue
	Store     transcript.Store
	Tracker   *session.Tracker
	Metrics   *observability.Metrics
	Listener  Listener

	ContextWindow   int
	MaxRounds       int // 0 = unbounded
	ResponseTimeout time.Duration
	StoreTimeout    time.Duration
}

// Orchestrator drives the round-robin discussion: it resolves one turn at a
// time, keeps exactly one generation in flight ahead of the speaker, and
// overlaps that generation with the narration of the turn just produced.
type Orchestrator struct {
	bots         []persona.Persona
	systemPrompt string
	generator    Generator
	queue        *speech.Queue
	store        transcript.Store
	tracker      *session.Tracker
	metrics      *observability.Metrics
	listener     Listener

	contextWindow   int
	maxRounds       int
	responseTimeout time.Duration
	storeTimeout    time.Duration

	log     *Log
	control chan control

	mu     sync.Mutex
	active bool
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if len(opts.Roster.Bots) == 0 {
		return nil, ErrNoBots
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("nil generator")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("nil speech queue")
	}
	if opts.Tracker == nil {
		opts.Tracker = session.NewTracker()
	}
	if opts.Store == nil {
		opts.Store = transcript.NopStore{}
	}
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 10
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = 30 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 2 * time.Second
	}

	return &Orchestrator{
		bots:            opts.Roster.Bots,
		systemPrompt:    opts.Roster.SystemPrompt,
		generator:       opts.Generator,
		queue:           opts.Queue,
		store:           opts.Store,
		tracker:         opts.Tracker,
		metrics:         opts.Metrics,
		listener:        opts.Listener,
		contextWindow:   opts.ContextWindow,
		maxRounds:       opts.MaxRounds,
		responseTimeout: opts.ResponseTimeout,
		storeTimeout:    opts.StoreTimeout,
		log:             NewLog(),
		control:         make(chan control, 8),
	}, nil
}

// Run drives the discussion until ctx is cancelled or the round limit is
// reached. On return the speech queue has been shut down and the transcript
// flushed. Run is single-shot: one Orchestrator runs one discussion.
func (o *Orchestrator) Run(ctx context.Context, topic string) (Summary, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Summary{}, ErrEmptyTopic
	}

	sessionID := o.tracker.Begin(topic)
	started := time.Now()

	if err := o.beginStore(sessionID, topic); err != nil {
		o.tracker.End()
		return Summary{}, err
	}

	o.mu.Lock()
	o.active = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.active = false
		o.mu.Unlock()
	}()

	o.queue.Start()
	o.countEvent("started")
	o.listener.DiscussionStarted(sessionID, topic, o.bots)

	// Seed the log with the topic announcement. Synthetic: logged for
	// context, never narrated, never persisted.
	o.appendTurn(Turn{
		Speaker:   Moderator,
		Text:      "Today's discussion topic is: " + topic,
		Synthetic: true,
	}, sessionID)

	var pending *pendingGeneration
	index := 0
	rounds := 0
	reason := ReasonInterrupted

loop:
	for {
		if err := o.applyControl(ctx, &pending, sessionID); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}

		bot := o.bots[index]
		o.tracker.SetSpeaker(bot.Name, index)
		o.listener.TurnStarted(bot.Name)

		// Resolve this speaker's reply: consume the prefetch when it
		// matches, otherwise generate synchronously from the current
		// snapshot. A stale prefetch (topic updated underneath it) has
		// already been cancelled by applyControl.
		if pending == nil || pending.index != index {
			if pending != nil {
				pending.cancel()
			}
			pending = o.startGeneration(ctx, bot, index, o.log.ContextWindow(o.contextWindow))
		}
		text, resolved, genErr := pending.wait(ctx)
		pending = nil

		// Abandoned mid-generation: nothing is appended for this call.
		if !resolved || ctx.Err() != nil {
			break
		}

		turn := Turn{Speaker: bot.Name, Text: strings.TrimSpace(text)}
		if genErr != nil {
			turn.Text = fmt.Sprintf("[Error: Could not get response from %s]", bot.Name)
			turn.Failed = true
			o.countTurn(bot.Name, "failed")
			if o.metrics != nil {
				o.metrics.ProviderErrors.WithLabelValues("generator", "generate_failed").Inc()
			}
			log.Printf("generation failed for %s: %v", bot.Name, genErr)
		} else {
			o.countTurn(bot.Name, "ok")
		}

		// Append before anything else reads context: the next speaker's
		// prompt must include this turn.
		o.appendTurn(turn, sessionID)
		o.tracker.RecordTurn()

		// Failure markers and empty replies are logged but never voiced.
		if !turn.Failed && turn.Text != "" {
			if err := o.queue.Enqueue(speech.Task{Speaker: turn.Speaker, Text: turn.Text}); err != nil {
				log.Printf("skipping narration for %s: %v", turn.Speaker, err)
			}
		}

		next := (index + 1) % len(o.bots)
		lastRound := false
		if next == 0 {
			rounds++
			o.tracker.AdvanceRound()
			lastRound = o.maxRounds > 0 && rounds >= o.maxRounds
		}

		// Start the next speaker's generation from the post-append
		// snapshot, then wait out the narration. The overlap between
		// these two is the whole point of the pipeline.
		if !lastRound && ctx.Err() == nil {
			pending = o.startGeneration(ctx, o.bots[next], next, o.log.ContextWindow(o.contextWindow))
		}

		if err := o.queue.Drain(ctx); err != nil && ctx.Err() != nil {
			break
		}

		if lastRound {
			reason = ReasonMaxRounds
			break loop
		}
		index = next
	}

	if pending != nil {
		pending.cancel()
	}

	if reason == ReasonInterrupted {
		o.countEvent("interrupted")
	} else {
		o.countEvent("completed")
	}

	// Graceful teardown: stop accepting tasks, let the consumer finish
	// what is queued, then flush the transcript.
	if err := o.queue.Shutdown(); err != nil {
		log.Printf("speech queue shutdown: %v", err)
	}
	if err := o.store.Close(); err != nil {
		log.Printf("transcript close: %v", err)
	}
	o.tracker.End()

	state := o.tracker.Snapshot()
	summary := Summary{
		SessionID: sessionID,
		Topic:     state.Topic,
		Turns:     state.Turns,
		Rounds:    rounds,
		Reason:    reason,
		Duration:  time.Since(started),
	}
	o.listener.DiscussionEnded(summary)
	return summary, nil
}

// Turns returns the conversation history. Only safe once Run has returned;
// live observers should attach a Listener instead.
func (o *Orchestrator) Turns() []Turn { return o.log.Turns() }

// Pause stops the loop before the next turn; narration in flight finishes.
func (o *Orchestrator) Pause() error { return o.send(control{kind: ctrlPause}) }

// Resume continues a paused discussion.
func (o *Orchestrator) Resume() error { return o.send(control{kind: ctrlResume}) }

// UpdateTopic injects a moderator turn steering the discussion. Any
// prefetched reply is discarded since its context predates the update.
func (o *Orchestrator) UpdateTopic(topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ErrEmptyTopic
	}
	return o.send(control{kind: ctrlTopic, topic: topic})
}

func (o *Orchestrator) send(c control) error {
	o.mu.Lock()
	active := o.active
	o.mu.Unlock()
	if !active {
		return ErrNotRunning
	}
	select {
	case o.control <- c:
		return nil
	default:
		return ErrControlBacklog
	}
}

// applyControl processes queued control commands between turns. Pause parks
// the loop here until a resume arrives or ctx is cancelled.
func (o *Orchestrator) applyControl(ctx context.Context, pending **pendingGeneration, sessionID string) error {
	for {
		select {
		case c := <-o.control:
			switch c.kind {
			case ctrlPause:
				o.tracker.SetStatus(session.StatusPaused)
				o.countEvent("paused")
				if err := o.awaitResume(ctx, pending, sessionID); err != nil {
					return err
				}
				o.tracker.SetStatus(session.StatusRunning)
				o.countEvent("resumed")
			case ctrlResume:
				// Already running.
			case ctrlTopic:
				o.updateTopic(c.topic, pending, sessionID)
			}
		default:
			return nil
		}
	}
}

func (o *Orchestrator) awaitResume(ctx context.Context, pending **pendingGeneration, sessionID string) error {
	for {
		select {
		case c := <-o.control:
			switch c.kind {
			case ctrlResume:
				return nil
			case ctrlTopic:
				o.updateTopic(c.topic, pending, sessionID)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (o *Orchestrator) updateTopic(topic string, pending **pendingGeneration, sessionID string) {
	if *pending != nil {
		(*pending).cancel()
		*pending = nil
	}
	o.appendTurn(Turn{
		Speaker:   Moderator,
		Text:      "Let's expand our discussion to also consider: " + topic,
		Synthetic: true,
	}, sessionID)
	o.tracker.SetTopic(topic)
	o.countEvent("topic_updated")
}

// appendTurn is the single place turns enter the log: in-memory append,
// listener fan-out, then the persistence hook for non-synthetic turns. The
// store write uses a background context so an interrupt cannot lose the
// final turn.
func (o *Orchestrator) appendTurn(turn Turn, sessionID string) {
	turn.ID = uuid.NewString()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	o.log.Append(turn)
	o.listener.TurnAppended(turn)

	if turn.Synthetic {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.Background(), o.storeTimeout)
	defer cancel()
	if err := o.store.Append(storeCtx, transcript.Record{
		ID:        turn.ID,
		SessionID: sessionID,
		Speaker:   turn.Speaker,
		Text:      turn.Text,
		CreatedAt: turn.CreatedAt,
	}); err != nil {
		log.Printf("transcript append failed for %s: %v", turn.Speaker, err)
		if o.metrics != nil {
			o.metrics.ProviderErrors.WithLabelValues("transcript", "append_failed").Inc()
		}
	}
}

func (o *Orchestrator) beginStore(sessionID, topic string) error {
	storeCtx, cancel := context.WithTimeout(context.Background(), o.storeTimeout)
	defer cancel()
	if err := o.store.Begin(storeCtx, sessionID, topic); err != nil {
		return fmt.Errorf("begin transcript: %w", err)
	}
	return nil
}

func (o *Orchestrator) countTurn(speaker, outcome string) {
	if o.metrics != nil {
		o.metrics.TurnsTotal.WithLabelValues(speaker, outcome).Inc()
	}
}

func (o *Orchestrator) countEvent(event string) {
	if o.metrics != nil {
		o.metrics.SessionEvents.WithLabelValues(event).Inc()
	}
}
