// internal/app/app.go
//
// Composition root shared by cmd/web and cmd/sitectl.
//
// Context
// -------
// Build turns one *config.Config into the running engine:
//
//	storage    MySQL (site.Repository + property.Repository) when
//	           database.dsn is set, in-memory stores otherwise
//	resolver   tenant.Resolver over the site store
//	renderer   render.Renderer = resolver + properties + composer
//	queue      task.Queue with a Redis tracker when redis.addr is set
//	assets     HTTP generator (+ S3 uploader) when assets.endpoint is set
//	workflow   provision.Workflow over all of the above
//
// Notes
// -----
// • Close releases everything Build opened, in reverse order.
// • Build never starts listeners; the binaries decide what to serve.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/assets"
	"github.com/yanizio/vitrine/internal/catalog"
	"github.com/yanizio/vitrine/internal/compose"
	"github.com/yanizio/vitrine/internal/config"
	"github.com/yanizio/vitrine/internal/database"
	"github.com/yanizio/vitrine/internal/property"
	"github.com/yanizio/vitrine/internal/provision"
	"github.com/yanizio/vitrine/internal/render"
	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/task"
	"github.com/yanizio/vitrine/internal/tenant"
	"github.com/yanizio/vitrine/internal/variant"
)

// Options override parts of the configuration.
type Options struct {
	// Memory forces the in-memory stores even when a DSN is configured.
	Memory bool
}

// App is the wired engine.
type App struct {
	Sites     site.Store
	Props     property.Lister
	Catalog   *catalog.Catalog
	Variants  *variant.Registry
	Resolver  *tenant.Resolver
	Renderer  *render.Renderer
	Queue     *task.Queue
	Workflow  *provision.Workflow
	Generator assets.Generator

	log     *zap.Logger
	closers []func() error
}

// handleSource is implemented by both site stores.
type handleSource interface {
	TenantHandle(ctx context.Context, tenantID string) (string, error)
}

// Build wires an App from cfg.  log may be nil.
func Build(ctx context.Context, cfg *config.Config, opts Options, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.L()
	}
	a := &App{log: log}
	built := false
	defer func() {
		if !built {
			_ = a.Close()
		}
	}()

	if err := a.storage(ctx, cfg, opts); err != nil {
		return nil, err
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	a.Catalog = cat

	a.Variants, err = variant.Builtin(log.Named("variant"))
	if err != nil {
		return nil, fmt.Errorf("variant registry: %w", err)
	}
	if err := a.Catalog.CheckVariants(a.Variants); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	a.Resolver = tenant.New(a.Sites, tenant.Options{
		BaseDomain:     cfg.Sites.BaseDomain,
		LocalhostAlias: cfg.Sites.LocalhostAlias,
		TTL:            cfg.Sites.CacheTTL,
		IdleTTL:        cfg.Sites.CacheIdleTTL,
		MaxEntries:     cfg.Sites.CacheMaxEntries,
	}, log.Named("tenant"))
	a.closers = append(a.closers, func() error { a.Resolver.Close(); return nil })

	a.Renderer = render.New(a.Resolver, a.Props, compose.New(a.Variants, log.Named("compose")), render.Options{
		PropertyLimit: cfg.Render.PropertyLimit,
		FetchTimeout:  cfg.Render.FetchTimeout,
		BaseDomain:    cfg.Sites.BaseDomain,
	}, log.Named("render"))

	tracker, err := a.tracker(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Queue = task.NewQueue(tracker, task.Options{
		Workers:         cfg.Provision.Workers,
		Size:            cfg.Provision.QueueSize,
		ItemConcurrency: cfg.Provision.ItemConcurrency,
		Timeout:         cfg.Provision.TaskTimeout,
	}, log.Named("task"))
	a.closers = append(a.closers, func() error { a.Queue.Close(); return nil })

	a.Generator, err = generator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	deps := provision.Deps{
		Store:     a.Sites,
		Catalog:   a.Catalog,
		Queue:     a.Queue,
		Generator: a.Generator,
		Cache:     a.Resolver,
		Log:       log.Named("provision"),
	}
	if hs, found := a.Sites.(handleSource); found {
		deps.Handles = provision.HandleFunc(hs.TenantHandle)
	}
	a.Workflow = provision.New(deps)

	built = true
	log.Info("engine ready",
		zap.Bool("mysql", !opts.Memory && cfg.Database.DSN != ""),
		zap.Bool("redis", cfg.Redis.Addr != ""),
		zap.Bool("assets", cfg.Assets.Endpoint != ""),
		zap.Strings("templates", a.Catalog.IDs()))
	return a, nil
}

func (a *App) storage(ctx context.Context, cfg *config.Config, opts Options) error {
	if opts.Memory || cfg.Database.DSN == "" {
		a.Sites = site.NewMemoryStore()
		a.Props = property.NewMemoryStore()
		a.log.Warn("no database configured, using in-memory stores")
		return nil
	}
	db, err := database.OpenWithOptions(ctx, cfg.Database.DSN, database.Options{
		MaxOpen:     cfg.Database.MaxOpen,
		MaxIdle:     cfg.Database.MaxIdle,
		MaxLifetime: database.DefaultOptions.MaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	a.Sites = site.NewRepository(db)
	a.Props = property.NewRepository(db)
	return nil
}

func (a *App) tracker(ctx context.Context, cfg *config.Config) (task.Tracker, error) {
	if cfg.Redis.Addr == "" {
		return task.NewMemoryTracker(cfg.Provision.TaskTTL), nil
	}
	rt := task.NewRedisTracker(cfg.Redis.Addr, cfg.Redis.DB, cfg.Provision.TaskTTL)
	if err := rt.Ping(ctx); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}
	a.closers = append(a.closers, rt.Close)
	return rt, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Provision.CatalogFile == "" {
		return catalog.Builtin()
	}
	return catalog.Load(cfg.Provision.CatalogFile)
}

func generator(ctx context.Context, cfg *config.Config) (assets.Generator, error) {
	ac := cfg.Assets
	if ac.Endpoint == "" {
		return assets.Disabled{}, nil
	}
	opts := assets.HTTPOptions{Endpoint: ac.Endpoint, APIKey: ac.APIKey, Timeout: ac.Timeout}
	if ac.S3Bucket != "" {
		up, err := assets.NewS3Uploader(ctx, assets.S3Config{
			Bucket:          ac.S3Bucket,
			Region:          ac.S3Region,
			Endpoint:        ac.S3Endpoint,
			AccessKeyID:     ac.S3AccessKey,
			SecretAccessKey: ac.S3SecretKey,
			PublicBaseURL:   ac.S3PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		opts.Uploader = up
	}
	return assets.NewHTTPGenerator(opts), nil
}

// Publish moves a site to PUBLISHED and drops its cached config.
func (a *App) Publish(ctx context.Context, siteID string, at time.Time) error {
	if err := a.Sites.Publish(ctx, siteID, at); err != nil {
		return err
	}
	a.Resolver.InvalidateSite(siteID)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
