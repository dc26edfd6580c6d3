// Package app holds the long-lived services a kraken command needs, acting
// as a small dependency injection container. Services are opened on first
// use so commands only pay for what they touch.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/kraken/internal/catalog"
	"github.com/JakeFAU/kraken/internal/config"
	"github.com/JakeFAU/kraken/internal/extract"
	"github.com/JakeFAU/kraken/internal/harvester"
	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/matchstore"
	"github.com/JakeFAU/kraken/internal/quota"
	"github.com/JakeFAU/kraken/internal/riot"
)

// CatalogCloser is a catalog that holds a connection pool.
type CatalogCloser interface {
	kraken.Catalog
	Close()
}

// App is created once per command and closed when it returns.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *matchstore.Store
	catalog CatalogCloser
}

// New returns an App for cfg. Nothing is opened yet.
func New(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// UseStoreDir points the match store at dir. It has no effect once the
// store was opened.
func (a *App) UseStoreDir(dir string) {
	if a.store == nil && dir != "" {
		a.cfg.Store.Dir = dir
	}
}

// Store opens the match store under store.dir.
func (a *App) Store() (*matchstore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := matchstore.New(matchstore.Config{Dir: a.cfg.Store.Dir})
	if err != nil {
		return nil, fmt.Errorf("open match store: %w", err)
	}
	a.logger.Debug("match store opened", zap.String("dir", store.Dir()))
	a.store = store
	return store, nil
}

// Extractor reads the match store.
func (a *App) Extractor() (*extract.Extractor, error) {
	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	return extract.New(store, a.logger), nil
}

// Catalog connects to the configured Postgres catalog. It returns nil when
// no DSN is configured.
func (a *App) Catalog(ctx context.Context) (kraken.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	if !a.cfg.CatalogEnabled() {
		return nil, nil
	}
	pg, err := catalog.New(ctx, a.cfg.CatalogStore())
	if err != nil {
		return nil, fmt.Errorf("connect catalog: %w", err)
	}
	a.logger.Info("match catalog enabled", zap.String("table", a.cfg.Catalog.Table))
	a.catalog = pg
	return pg, nil
}

// UseCatalog installs an already connected catalog.
func (a *App) UseCatalog(c CatalogCloser) {
	a.catalog = c
}

// RiotClient builds a quota governor sized by policy and a client that
// funnels every request through it.
func (a *App) RiotClient(policy harvester.Policy) (*riot.Client, *quota.Governor, error) {
	qcfg := policy.Quota()
	qcfg.Logger = a.logger
	gov, err := quota.New(qcfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := riot.New(a.cfg.RiotClient(), gov, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return client, gov, nil
}

// Close releases what was opened and flushes the logger.
func (a *App) Close() {
	if a.catalog != nil {
		a.catalog.Close()
		a.catalog = nil
	}
	_ = a.logger.Sync()
}
