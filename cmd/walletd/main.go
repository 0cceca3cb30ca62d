package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nutpay/config"
	"nutpay/internal/adapter/engine"
	"nutpay/internal/adapter/storage/memory"
	pgStorage "nutpay/internal/adapter/storage/postgres"
	redisStorage "nutpay/internal/adapter/storage/redis"
	"nutpay/internal/core/ports"
	"nutpay/internal/counter"
	"nutpay/internal/credo"
	"nutpay/internal/dedup"
	"nutpay/internal/keyring"
	"nutpay/internal/queue"
	"nutpay/internal/restore"
	"nutpay/internal/settlement"
	"nutpay/internal/transport"
	"nutpay/pkg/logger"
	"nutpay/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Strs("mints", cfg.Wallet.Mints).
		Str("unit", cfg.Wallet.Unit).
		Msg("Starting wallet settlement daemon")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Record stores: PostgreSQL when configured, in-memory otherwise.
	var (
		tokens   ports.TokenRepository
		mints    ports.MintRepository
		promises ports.PromiseRepository
		intents  ports.IntentRepository
	)
	if cfg.Database.Enabled() {
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		tokens = pgStorage.NewTokenRepo(pool)
		mints = pgStorage.NewMintRepo(pool)
		promises = pgStorage.NewPromiseRepo(pool)
		intents = pgStorage.NewIntentRepo(pool)
	} else {
		log.Warn().Msg("No database configured, records are in-memory only")
		tokens = memory.NewTokenRepo()
		mints = memory.NewMintRepo()
		promises = memory.NewPromiseRepo()
		intents = memory.NewIntentRepo()
	}

	// Counter KV: Redis when configured, in-memory otherwise.
	var counterKV ports.CounterRepository
	if cfg.Redis.Enabled() {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		counterKV = redisStorage.NewCounterKV(rdb)
	} else {
		log.Warn().Msg("No Redis configured, blinding counters are in-memory only")
		counterKV = memory.NewCounterKV()
	}
	counters := counter.NewStore(counterKV, log)

	// Wallet identity
	keys, err := loadKeyring(cfg.Keyring, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load wallet identity")
	}
	log.Info().Str("pubkey", keys.PublicKeyHex()).Msg("Wallet identity loaded")

	// Protocol engine sidecar: ecash crypto and gift wrapping.
	eng := engine.NewClient(cfg.Engine, log)

	// Connectivity and messaging
	probe := transport.NewDialProbe(
		append(append([]string{}, cfg.Transport.Relays...), cfg.Wallet.Mints...),
		cfg.Transport.ProbeTimeout,
	)
	contacts := transport.StaticContacts(cfg.Transport.Contacts)
	publisher := transport.NewPublisher(eng, keys, transport.Config{
		Relays:         cfg.Transport.Relays,
		PublishTimeout: cfg.Transport.PublishTimeout,
		MaxAttempts:    cfg.Transport.MaxAttempts,
	}, log)

	// Core services
	credoSvc := credo.NewService(keys, promises, cfg.Credo.ExposureCap, cfg.Credo.PromiseTTL, log)
	orch := settlement.New(settlement.Deps{
		Ecash:    eng,
		Tokens:   tokens,
		Mints:    mints,
		Counters: counters,
		Credo:    credoSvc,
		Probe:    probe,
		Contacts: contacts,
		Deliver:  publisher,
		Metrics:  m,
	}, settlement.Config{
		Unit:                cfg.Wallet.Unit,
		PreferredMint:       cfg.Wallet.PreferredMint,
		NetworkTimeout:      cfg.Settlement.NetworkTimeout,
		ConflictSkip:        cfg.Settlement.ConflictSkip,
		MaxConflictAttempts: cfg.Settlement.MaxConflictAttempts,
		CredoEnabled:        cfg.Credo.Enabled,
	}, log)

	q := queue.New(intents, orch, m, log)
	orch.AttachQueue(q)

	scanner := restore.NewScanner(eng, tokens, counters, restore.Config{
		Window:    cfg.Restore.Window,
		BatchSize: cfg.Restore.BatchSize,
		Lookahead: cfg.Restore.Lookahead,
		ChunkSize: cfg.Restore.ChunkSize,
	}, m, log)
	reconciler := dedup.New(tokens, mints, log)

	// Startup maintenance: reconcile duplicates, then catch up with the
	// network if it is reachable.
	runStartupTasks(ctx, log, reconciler, scanner, q, probe, cfg)

	// Periodic queue flush while online.
	go flushLoop(ctx, log, q, probe, cfg.Queue.FlushBackoff)

	// Prometheus endpoint
	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = &http.Server{
			Addr:    cfg.Metrics.Addr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("Metrics endpoint listening")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics endpoint failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics endpoint shutdown failed")
		}
	}
	log.Info().Msg("Wallet daemon stopped")
}

// loadKeyring reads the encrypted identity key, generating and persisting a
// fresh one on first run.
func loadKeyring(cfg config.KeyringConfig, log zerolog.Logger) (*keyring.Keyring, error) {
	data, err := os.ReadFile(cfg.File)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading keyring file: %w", err)
		}
		keys, err := keyring.Generate()
		if err != nil {
			return nil, err
		}
		encoded, err := keys.Export(cfg.Passphrase)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(cfg.File, []byte(encoded), 0o600); err != nil {
			return nil, fmt.Errorf("writing keyring file: %w", err)
		}
		log.Info().Str("file", cfg.File).Msg("Generated new wallet identity")
		return keys, nil
	}
	return keyring.Import(strings.TrimSpace(string(data)), cfg.Passphrase)
}

func runStartupTasks(
	ctx context.Context,
	log zerolog.Logger,
	reconciler *dedup.Reconciler,
	scanner *restore.Scanner,
	q *queue.Queue,
	probe ports.ConnectivityProbe,
	cfg *config.Config,
) {
	if n, err := reconciler.Tokens(ctx); err != nil {
		log.Error().Err(err).Msg("Token dedup failed")
	} else if n > 0 {
		log.Info().Int("retired", n).Msg("Duplicate token records retired")
	}
	if n, err := reconciler.Mints(ctx); err != nil {
		log.Error().Err(err).Msg("Mint dedup failed")
	} else if n > 0 {
		log.Info().Int("merged", n).Msg("Duplicate mint records merged")
	}

	if !probe.Online() {
		log.Info().Msg("Offline at startup, deferring restore scan and queue flush")
		return
	}

	results, err := scanner.ScanAll(ctx, cfg.Wallet.Mints, cfg.Wallet.Unit)
	if err != nil {
		log.Error().Err(err).Msg("Restore scan incomplete")
	}
	for _, res := range results {
		if res.RestoredProofs > 0 {
			log.Info().
				Str("keyset", res.KeysetID).
				Int("proofs", res.RestoredProofs).
				Uint64("amount", res.RestoredAmount).
				Msg("Restored proofs adopted")
		}
	}

	report, err := q.Flush(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Startup queue flush failed")
	} else if report.Replayed+report.Dropped+report.Kept > 0 {
		log.Info().
			Int("replayed", report.Replayed).
			Int("dropped", report.Dropped).
			Int("kept", report.Kept).
			Msg("Startup queue flush done")
	}
}

// flushLoop retries queued intents whenever connectivity is back.
func flushLoop(ctx context.Context, log zerolog.Logger, q *queue.Queue, probe ports.ConnectivityProbe, every time.Duration) {
	if every <= 0 {
		every = 30 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := q.Depth(ctx)
			if err != nil || depth == 0 || !probe.Online() {
				continue
			}
			if _, err := q.Flush(ctx); err != nil {
				log.Warn().Err(err).Msg("Queue flush failed")
			}
		}
	}
}
