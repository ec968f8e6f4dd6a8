package root

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docqa/pkg/config"
	"github.com/docker/docqa/pkg/environment"
	"github.com/docker/docqa/pkg/model"
	"github.com/docker/docqa/pkg/model/provider"
	"github.com/docker/docqa/pkg/rag/catalog"
	"github.com/docker/docqa/pkg/rag/embed"
	"github.com/docker/docqa/pkg/rag/session"
	"github.com/docker/docqa/pkg/rag/store"
)

// app is everything a command needs to work with the active document.
type app struct {
	cfg     *config.Config
	env     environment.Provider
	store   *store.Store
	catalog *catalog.Catalog
	session *session.Session
}

func (f *rootFlags) loadConfig() (*config.Config, error) {
	return config.Load(configPath(f, config.Path()))
}

func (f *rootFlags) newApp(ctx context.Context) (*app, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	env := environment.NewDefaultProvider(f.envFiles...)

	embeddingProvider, err := provider.NewEmbedding(ctx, cfg.Embedding, env)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	ttl, err := cfg.Embedding.CacheTTL()
	if err != nil {
		return nil, err
	}
	embedder := embed.New(embeddingProvider,
		embed.WithBatchSize(cfg.Embedding.BatchSize),
		embed.WithMaxConcurrency(cfg.Embedding.MaxConcurrency),
		embed.WithDimension(cfg.Embedding.Dimension),
		embed.WithQueryCache(ttl),
		embed.WithUsageHandler(func(tokens int64) {
			slog.Debug("Embedding usage", "provider", embeddingProvider.ID(), "tokens", tokens)
		}),
	)

	st := store.New(cfg.Store.Dir)
	sessionOpts := []session.Opt{
		session.WithChunking(cfg.Chunking.Size, cfg.Chunking.Overlap),
		session.WithTopK(cfg.Retrieval.TopK),
	}

	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		sessionOpts = append(sessionOpts, session.WithCatalog(cat))
	}

	sess := session.New(embedder, st, sessionOpts...)

	return &app{
		cfg:     cfg,
		env:     env,
		store:   st,
		catalog: cat,
		session: sess,
	}, nil
}

// restore loads the most recently learned document, if any.
func (a *app) restore(ctx context.Context) (bool, error) {
	ok, err := a.session.Restore(ctx, "")
	if err != nil {
		return false, fmt.Errorf("failed to restore document: %w", err)
	}
	return ok, nil
}

func (a *app) completer(ctx context.Context, backend model.Backend) (model.Completer, error) {
	return model.New(ctx, backend, a.cfg, a.env)
}

// documents lists the catalog, newest first. Without a catalog the
// list is empty.
func (a *app) documents(ctx context.Context) ([]catalog.Entry, error) {
	if a.catalog == nil {
		return nil, nil
	}
	return a.catalog.List(ctx)
}

func (a *app) Close() error {
	if a.catalog == nil {
		return nil
	}
	return a.catalog.Close()
}
