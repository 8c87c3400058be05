package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/antoniostano/roundtable/internal/config"
	"github.com/antoniostano/roundtable/internal/discussion"
	"github.com/antoniostano/roundtable/internal/generator"
	"github.com/antoniostano/roundtable/internal/httpapi"
	"github.com/antoniostano/roundtable/internal/observability"
	"github.com/antoniostano/roundtable/internal/persona"
	"github.com/antoniostano/roundtable/internal/session"
	"github.com/antoniostano/roundtable/internal/speech"
	"github.com/antoniostano/roundtable/internal/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	rosterPath := flag.String("config", cfg.RosterPath, "path to the roster file")
	topicFlag := flag.String("topic", "", "discussion topic (prompted when empty)")
	addrFlag := flag.String("addr", cfg.BindAddr, "observer API bind address")
	flag.Parse()
	cfg.RosterPath = *rosterPath
	cfg.BindAddr = *addrFlag

	roster, err := persona.LoadRoster(cfg.RosterPath)
	if err != nil {
		log.Fatalf("roster error: %v", err)
	}
	roster.ApplyDefaultEndpoint(cfg.OllamaDefaultURL)
	if roster.MaxRounds > 0 {
		cfg.MaxRounds = roster.MaxRounds
	}
	if d := roster.ResponseTimeout(); d > 0 {
		cfg.ResponseTimeout = d
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	gen, genName, err := generator.New(generator.Config{
		Mode:          cfg.GeneratorMode,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		Timeout:       cfg.ResponseTimeout,
	})
	if err != nil {
		log.Fatalf("generator init failed: %v", err)
	}
	log.Printf("reply generator: %s", genName)

	narrator, narratorName, err := speech.NewNarrator(cfg.NarratorMode, cfg.NarratorCommand)
	if err != nil {
		log.Fatalf("narrator init failed: %v", err)
	}
	log.Printf("narrator: %s", narratorName)
	queue := speech.NewQueue(narrator, metrics, cfg.SpeechQueueCapacity, cfg.NarrationJoinGrace)

	ctx := context.Background()
	store, archive, err := transcript.NewStore(ctx, cfg.LogDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("transcript store init failed: %v", err)
	}

	tracker := session.NewTracker()
	hub := httpapi.NewHub()

	orch, err := discussion.NewOrchestrator(discussion.Options{
		Roster:          roster,
		Generator:       gen,
		Queue:           queue,
		Store:           store,
		Tracker:         tracker,
		Metrics:         metrics,
		Listener:        discussion.Listeners{newConsolePrinter(os.Stdout), hub},
		ContextWindow:   cfg.ContextWindow,
		MaxRounds:       cfg.MaxRounds,
		ResponseTimeout: cfg.ResponseTimeout,
	})
	if err != nil {
		log.Fatalf("orchestrator init failed: %v", err)
	}

	var httpServer *http.Server
	if strings.TrimSpace(cfg.BindAddr) != "" {
		api := httpapi.New(cfg, tracker, orch, hub, archive, metrics)
		httpServer = &http.Server{
			Addr:    cfg.BindAddr,
			Handler: api.Router(),
		}
		go func() {
			log.Printf("observer API listening on %s", cfg.BindAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("listen error: %v", err)
			}
		}()
	}

	topic := strings.TrimSpace(*topicFlag)
	if topic == "" {
		topic, err = promptTopic()
		if err != nil {
			log.Fatalf("read topic: %v", err)
		}
	}

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	// First interrupt ends the discussion gracefully: the current narration
	// finishes and the transcript is flushed. A second interrupt cuts the
	// narration off.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("interrupt received, stopping after current narration")
		runCancel()
		<-sigCh
		log.Printf("second interrupt, abandoning narration")
		queue.Kill()
	}()

	summary, err := orch.Run(runCtx, topic)
	if err != nil {
		log.Fatalf("discussion failed: %v", err)
	}
	log.Printf("session %s: %d turns, %d rounds (%s)",
		summary.SessionID, summary.Turns, summary.Rounds, summary.Reason)

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
			_ = httpServer.Close()
		}
	}
}

func promptTopic() (string, error) {
	fmt.Print("Enter discussion topic: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	topic := strings.TrimSpace(line)
	if topic == "" {
		return "", errors.New("empty topic")
	}
	return topic, nil
}
