package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/farum-chat/internal/adapters/llm"
	fsstore "github.com/PabloGalante/farum-chat/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/farum-chat/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/farum-chat/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/farum-chat/internal/app/chatlog"
	"github.com/PabloGalante/farum-chat/internal/app/classifier"
	"github.com/PabloGalante/farum-chat/internal/app/conversation"
	"github.com/PabloGalante/farum-chat/internal/app/grouping"
	"github.com/PabloGalante/farum-chat/internal/app/responder"
	"github.com/PabloGalante/farum-chat/internal/config"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

// app is the wired service plus whatever has to be released on exit.
type app struct {
	svc     *conversation.Service
	closers []func() error
}

// Close drains replication, then releases the backends.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if err := a.svc.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain replication: %w", err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func bootstrap(ctx context.Context, cfg *config.Config) (*app, error) {
	log := observability.Logger()
	a := &app{}

	durable, closer, err := newDurableStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	log.Info("storage selected", "backend", cfg.StorageBackend)

	remote, err := newRemote(ctx, cfg)
	if err != nil {
		_ = a.closeBackends()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		_ = a.closeBackends()
		return nil, err
	}

	fallback, err := classifier.New()
	if err != nil {
		_ = a.closeBackends()
		return nil, err
	}

	store := chatlog.New(durable, chatlog.Config{
		HistoryLimit:   cfg.HistoryLimit,
		PersistTimeout: cfg.PersistTimeout.Duration,
		Greeting:       cfg.Greeting,
	})
	strategy := responder.New(remote, fallback, responder.Config{
		Timeout:       cfg.RemoteTimeout.Duration,
		ContextWindow: cfg.ContextWindow,
		RatePerMinute: cfg.RemoteRatePerMinute,
	})

	a.svc = conversation.NewService(store, strategy, grouping.NewGrouper(loc),
		conversation.WithIdleTTL(cfg.SessionIdleTTL.Duration))
	return a, nil
}

func (a *app) closeBackends() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// newDurableStore returns a nil store for the "none" backend.
func newDurableStore(ctx context.Context, cfg *config.Config) (domain.DurableStore, func() error, error) {
	switch cfg.StorageBackend {
	case config.StorageNone:
		return nil, nil, nil
	case config.StorageSQLite:
		s, err := sqlitestore.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.StorageFirestore:
		s, err := fsstore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing firestore store: %w", err)
		}
		return s, s.Close, nil
	default:
		return memstore.NewMessageStore(), nil, nil
	}
}

// newRemote returns a nil responder when no model is configured; replies then
// come from the classifier alone.
func newRemote(ctx context.Context, cfg *config.Config) (domain.Responder, error) {
	log := observability.Logger()

	if !cfg.RemoteEnabled {
		log.Info("remote responder disabled")
		return nil, nil
	}
	if cfg.UseMockLLM {
		log.Info("using mock responder")
		return llm.NewMockLLM(), nil
	}

	client, err := llm.NewVertexClient(ctx, llm.VertexConfig{
		ProjectID: cfg.GCPProjectID,
		Location:  cfg.GCPLocation,
		ModelName: cfg.ModelName,
	})
	if errors.Is(err, domain.ErrNotConfigured) {
		log.Warn("vertex not configured, answering from the classifier only", "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("initializing vertex client: %w", err)
	}

	log.Info("using vertex responder", "model", cfg.ModelName, "location", cfg.GCPLocation)
	return client, nil
}
