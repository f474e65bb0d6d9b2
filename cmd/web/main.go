// cmd/web/main.go
//
// vitrine – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Bootstrap console logger, then config (Vault secrets when VAULT_ADDR
//     is set).
//
//  2. Daily rotating file logger at the configured level.
//
//  3. Engine wiring (internal/app): stores, tenant resolver, renderer,
//     task queue, provisioning workflow.
//
//  4. Optional GeoLite2 database for visitor metrics (VITRINE_GEOIP_DB).
//
//  5. Public listener on http.listen_addr; admin API and /metrics on
//     http.admin_addr.
//
//  6. SIGINT/SIGTERM stop both listeners, then drain the task queue.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/vitrine/internal/app"
	"github.com/yanizio/vitrine/internal/logger"
	"github.com/yanizio/vitrine/internal/requestinfo"
	"github.com/yanizio/vitrine/internal/server"
	"github.com/yanizio/vitrine/internal/web"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(boot)

	cfg, err := app.LoadConfig(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	logOut, err := logger.New(logger.Options{
		Root:  cfg.Paths.Root,
		Level: cfg.Log.Level,
		Tee:   cfg.Log.Tee && runningInTTY(),
	})
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer logOut.Sync() //nolint:errcheck

	//
	// ── 1.  Engine ──────────────────────────────────────────────────────
	//
	eng, err := app.Build(ctx, cfg, app.Options{}, logOut)
	if err != nil {
		logOut.Fatal("engine wiring failed", zap.Error(err))
	}
	defer eng.Close() //nolint:errcheck

	//
	// ── 2.  Visitor geo lookup (optional) ───────────────────────────────
	//
	var geo *requestinfo.GeoDB
	if p := os.Getenv("VITRINE_GEOIP_DB"); p != "" {
		if geo, err = requestinfo.OpenGeo(p); err != nil {
			logOut.Warn("geoip database not loaded", zap.String("path", p), zap.Error(err))
		} else {
			defer geo.Close() //nolint:errcheck
		}
	}

	//
	// ── 3.  Listeners ───────────────────────────────────────────────────
	//
	timeouts := server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	}
	public := web.Public(eng.Renderer, web.PublicOptions{
		ForceHTTPS: cfg.HTTP.ForceHTTPS,
		Sites:      eng.Resolver,
		Geo:        geo,
	}, logOut.Named("web"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, server.New(cfg.HTTP.ListenAddr, public, timeouts), logOut.Named("public"))
	})
	if cfg.HTTP.AdminAddr != "" {
		admin := web.Admin(web.AdminDeps{
			Provisioner: eng.Workflow,
			Publisher:   eng,
			Tasks:       eng.Queue,
		}, logOut.Named("admin"))
		g.Go(func() error {
			return server.Run(gctx, server.New(cfg.HTTP.AdminAddr, admin, timeouts), logOut.Named("admin"))
		})
	}

	if err := g.Wait(); err != nil {
		logOut.Error("http server", zap.Error(err))
		_ = eng.Close()
		os.Exit(1)
	}
	logOut.Info("shutdown complete")
}
