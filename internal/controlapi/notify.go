package controlapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaeljc/mimir/internal/logger"
)

// publishTimeout bounds the whole publish loop, retries included.
const publishTimeout = 20 * time.Second

// afterMutation makes a committed write visible. The local registry is
// reloaded before the response is written so this replica reads its own
// writes; the other replicas learn about it through the change channel.
func (a *API) afterMutation(ctx context.Context, kind, name string) {
	ctx = logger.With(ctx, slog.String("kind", kind), slog.String("name", name))
	log := logger.FromContext(ctx)

	if a.reloader != nil {
		if err := a.reloader.Reload(ctx); err != nil {
			// The periodic refresh will catch up.
			log.Error("failed to reload registry after change", slog.String("error", err.Error()))
		}
	}

	a.notifyChangeAsync(log, kind, name)
}

// notifyChangeAsync publishes the change in the background with retries.
func (a *API) notifyChangeAsync(log *slog.Logger, kind, name string) {
	if a.publisher == nil {
		return
	}

	go func() {
		// Create a context disconnected from the HTTP request.
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		const maxRetries = 3
		baseDelay := 100 * time.Millisecond

		for i := 0; i <= maxRetries; i++ {
			err := a.publisher.PublishChange(ctx, kind, name)
			if err == nil {
				return
			}

			if i == maxRetries {
				log.Error("failed to publish registry change after retries", slog.String("error", err.Error()))
				return
			}

			log.Warn("failed to publish registry change, retrying...",
				slog.Int("attempt", i+1),
				slog.String("error", err.Error()))

			select {
			case <-ctx.Done():
				return
			case <-time.After(baseDelay * time.Duration(1<<i)):
			}
		}
	}()
}
