package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"zktrials/internal/attest"
	"zktrials/internal/channels"
	"zktrials/internal/game"
	"zktrials/internal/handlers"
	"zktrials/internal/pipeline"
	"zktrials/internal/proof"
	"zktrials/internal/queue"
	"zktrials/internal/store"
	"zktrials/internal/trials"
	"zktrials/pkg/common/env"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

type Application struct {
	cfg      *Config
	logger   *slog.Logger
	registry *store.Registry
	gr       *channels.GlobalRooms
	handlers *handlers.HandlerRepo
}

type Config struct {
	Port          int
	Countdown     time.Duration
	RoomTTL       time.Duration
	JanitorPeriod time.Duration
	AmqpURL       string
	AttestKeySeed string
	TrialAnswers  map[int]string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	slogHandler := tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug})
	logger := slog.New(slogHandler)
	slog.SetDefault(logger)

	cfg := &Config{
		Port:          env.GetInt("PORT", 8080),
		Countdown:     env.GetDuration("COUNTDOWN", game.DefaultCountdown),
		RoomTTL:       env.GetDuration("ROOM_TTL", 30*time.Minute),
		JanitorPeriod: env.GetDuration("JANITOR_PERIOD", time.Minute),
		AmqpURL:       env.GetString("AMQP_URL", ""),
		AttestKeySeed: env.GetString("ATTEST_KEY", ""),
		TrialAnswers:  parseTrialAnswers(env.GetString("TRIAL_ANSWERS", "")),
	}

	registry := store.NewRegistry(logger)
	gr := channels.NewGlobalRooms(logger)
	// Evicted rooms tear down their broadcaster too, so the janitor never
	// leaves a RoomManager goroutine behind.
	registry.SetEvictHook(gr.Remove)
	coord := game.NewCoordinator(registry, gr, logger, cfg.Countdown)

	prover, err := proof.NewLocalProver()
	if err != nil {
		logger.Error("failed to initialize prover", "error", err)
		os.Exit(1)
	}

	signer, err := attest.NewSchnorrSigner(cfg.AttestKeySeed)
	if err != nil {
		logger.Error("failed to initialize attestation signer", "error", err)
		os.Exit(1)
	}
	logger.Info("attestation signer ready", "pubkey", signer.PubKey())

	var outbox *queue.Outbox
	if cfg.AmqpURL != "" {
		outbox, err = queue.Dial(cfg.AmqpURL, logger)
		if err != nil {
			logger.Error("failed to connect attestation outbox", "error", err)
			os.Exit(1)
		}
		defer outbox.Close()
	}

	pl := pipeline.New(coord, trials.NewStaticKey(cfg.TrialAnswers), prover, attest.NewCounterIssuer(), signer, outbox, logger)
	handlerRepo := handlers.NewHandlerRepo(logger, registry, coord, pl, gr)

	registry.StartJanitor(context.Background(), cfg.RoomTTL, cfg.JanitorPeriod)

	app := &Application{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		gr:       gr,
		handlers: handlerRepo,
	}

	if err := app.run(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// parseTrialAnswers reads "1=alpha,2=beta" into a round->answer map. With
// no configuration, a small demo key is used so the server is playable out
// of the box.
func parseTrialAnswers(raw string) map[int]string {
	answers := make(map[int]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		round, err := strconv.Atoi(k)
		if err != nil || round < 1 {
			continue
		}
		answers[round] = v
	}

	if len(answers) == 0 {
		for i := 1; i <= 5; i++ {
			answers[i] = fmt.Sprintf("trial-%d", i)
		}
	}
	return answers
}
