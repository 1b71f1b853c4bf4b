// Package main boots the POS Register Simulator HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/pos-register-simulator/internal/config"
	httpapi "github.com/fairyhunter13/pos-register-simulator/internal/http"
	"github.com/fairyhunter13/pos-register-simulator/internal/obs"
	"github.com/fairyhunter13/pos-register-simulator/internal/queue"
	"github.com/fairyhunter13/pos-register-simulator/internal/store"
	"go.uber.org/zap"
)

func seedInventory(st *store.Inventory, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := st.ReplenishFrom(f)
	obs.Logger.Info("inventory_seeded", zap.String("file", path), zap.Int("merged", n))
	return err
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		// logger is not configured yet
		os.Stderr.WriteString("dotenv: " + err.Error() + "\n")
	}
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	defer obs.Sync()
	obs.Logger.Info("service_starting", zap.String("store_name", cfg.StoreName))

	st := store.New()
	if cfg.InventorySeedFile != "" {
		if err := seedInventory(st, cfg.InventorySeedFile); err != nil {
			obs.Logger.Fatal("inventory_seed_failed", zap.String("file", cfg.InventorySeedFile), zap.Error(err))
		}
	}

	q := queue.New(128)
	mgr := queue.NewManager(cfg, q, st)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Start(ctx)

	app := httpapi.NewApp(cfg, st, mgr)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Fatal("http_server_error", zap.Error(err))
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", zap.String("signal", s.String()))

	app.StartShutdown()
	obs.Logger.Info("shutdown_drain_begin",
		zap.Int("backlog_size", mgr.BacklogSize()),
		zap.Int("worker_count", mgr.WorkerCount()),
	)

	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if drained := mgr.DrainUntil(ctxDrain); !drained {
		obs.Logger.Warn("shutdown_drain_timeout", zap.Int("backlog_size", mgr.BacklogSize()))
	} else {
		obs.Logger.Info("shutdown_drain_complete")
	}

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", zap.Error(err))
	}
	mgr.Stop()
	obs.Logger.Info("service_stopped", zap.Int("inventory_size", st.Len()))
}
