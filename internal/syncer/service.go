// Package syncer implements the background worker that keeps the in-memory
// strategy registry in line with the custom definitions, context fields and
// segments stored in PostgreSQL.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/config"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/strategy"
	"github.com/rafaeljc/mimir/internal/validation"
)

// Source is the read side of the store the syncer loads from.
type Source interface {
	ListDefinitions(ctx context.Context) ([]strategy.Definition, error)
	ListContextFields(ctx context.Context) ([]strategy.ContextField, error)
	ListSegments(ctx context.Context) ([]strategy.Segment, error)
}

// Subscriber opens a subscription to the registry change channel.
type Subscriber interface {
	Subscribe(ctx context.Context) *redis.PubSub
}

// Service reloads the registry on a fixed interval and whenever a change is
// announced on the Pub/Sub channel.
type Service struct {
	logger   *slog.Logger
	config   config.SyncerConfig
	source   Source
	registry *strategy.Registry
	sub      Subscriber

	// mu serializes reloads. The ticker, the change channel and the API all
	// call Reload, and an older read must never replace a newer snapshot.
	mu sync.Mutex

	// loaded flips once the first reload succeeds.
	loaded atomic.Bool
}

// New creates a new Syncer service. sub may be nil, in which case the
// registry is refreshed by polling only.
func New(logger *slog.Logger, cfg config.SyncerConfig, source Source, registry *strategy.Registry, sub Subscriber) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	validation.AssertImplemented(source, "source")
	validation.AssertNotNil(registry, "registry")

	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second // Safe default
	}

	return &Service{
		logger:   logger,
		config:   cfg,
		source:   source,
		registry: registry,
		sub:      sub,
	}
}

// Run starts the syncer loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting syncer service",
		slog.String("interval", s.config.RefreshInterval.String()),
		slog.Bool("pubsub", s.sub != nil),
	)

	// Load once immediately so the registry is warm before the first tick.
	if err := s.reloadWithRetry(ctx); err != nil {
		s.logger.Error("initial reload failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	var changes <-chan *redis.Message
	if s.sub != nil {
		pubsub := s.sub.Subscribe(ctx)
		defer func() { _ = pubsub.Close() }()
		changes = pubsub.Channel()
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("syncer service stopping...")
			return nil

		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				// We log the error but don't stop the worker. Retry on next tick.
				s.logger.Error("reload cycle failed", slog.String("error", err.Error()))
			}

		case msg, ok := <-changes:
			if !ok {
				// Channel closed by go-redis; fall back to polling only.
				changes = nil
				continue
			}
			observability.SyncerInvalidations.Inc()

			kind, name := cache.DecodeChangeMessage(msg.Payload)
			s.logger.Debug("registry change received", slog.String("kind", kind), slog.String("name", name))

			if err := s.reloadWithRetry(ctx); err != nil {
				s.logger.Error("triggered reload failed",
					slog.String("kind", kind),
					slog.String("name", name),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Reload performs a single synchronization cycle: read everything, swap the registry.
// A failed read leaves the current registry untouched.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	defs, err := s.source.ListDefinitions(ctx)
	if err != nil {
		observability.SyncerReloads.WithLabelValues("fail").Inc()
		return fmt.Errorf("failed to load strategy definitions: %w", err)
	}

	fields, err := s.source.ListContextFields(ctx)
	if err != nil {
		observability.SyncerReloads.WithLabelValues("fail").Inc()
		return fmt.Errorf("failed to load context fields: %w", err)
	}

	segments, err := s.source.ListSegments(ctx)
	if err != nil {
		observability.SyncerReloads.WithLabelValues("fail").Inc()
		return fmt.Errorf("failed to load segments: %w", err)
	}

	counts := s.registry.Replace(defs, fields, segments)
	s.loaded.Store(true)

	observability.SyncerReloads.WithLabelValues("success").Inc()
	observability.SyncerReloadDuration.Observe(time.Since(start).Seconds())
	observability.RegistryDefinitions.Set(float64(counts.Definitions))
	observability.RegistryContextFields.Set(float64(counts.ContextFields))
	observability.RegistrySegments.Set(float64(counts.Segments))

	s.logger.Debug("registry reloaded",
		slog.Int("definitions", counts.Definitions),
		slog.Int("context_fields", counts.ContextFields),
		slog.Int("segments", counts.Segments),
		slog.String("duration", time.Since(start).String()),
	)
	return nil
}

// Name identifies the syncer in readiness reports.
func (s *Service) Name() string {
	return "registry"
}

// Check reports the registry as not ready until custom definitions have been
// loaded at least once. Later failures keep serving the last good snapshot.
func (s *Service) Check(_ context.Context) error {
	if !s.loaded.Load() {
		return errors.New("registry has not been loaded yet")
	}
	return nil
}

// reloadWithRetry retries Reload with exponential backoff, MaxRetries times after the first attempt.
func (s *Service) reloadWithRetry(ctx context.Context) error {
	delay := s.config.BaseRetryDelay

	var err error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if err = s.Reload(ctx); err == nil {
			return nil
		}
		if attempt == s.config.MaxRetries {
			break
		}

		s.logger.Warn("reload failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
