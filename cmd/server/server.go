package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	toolHandler "github.com/quipper/poc/lti/tool/internal/controller/http/tool"
	"github.com/quipper/poc/lti/tool/internal/lti"
	launchesSqlite "github.com/quipper/poc/lti/tool/internal/repositories/launches/sqlite"
	platformsSqlite "github.com/quipper/poc/lti/tool/internal/repositories/platforms/sqlite"
	"github.com/quipper/poc/lti/tool/pkg/common/config"
	"github.com/quipper/poc/lti/tool/pkg/common/jwkscache"
	"github.com/quipper/poc/lti/tool/pkg/common/keys"
	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.LogLevel)
	logger.Info("starting tool server")

	// Load signing keys early so that if we generate a dev key, the PEM
	// export instructions are printed immediately at startup.
	keySet, err := keys.Load(cfg.ToolKID, cfg.ToolPrivateKeyPEM, cfg.ToolPrivateKeyB64)
	if err != nil {
		logger.Error("load keys: %v", err)
		os.Exit(1)
	}

	platformsRepo, err := platformsSqlite.NewSQLiteRepo(cfg.PlatformsDBPath)
	if err != nil {
		logger.Error("init platforms repo: %v", err)
		os.Exit(1)
	}

	launchesRepo, err := launchesSqlite.NewSQLiteRepo(cfg.LaunchesDBPath)
	if err != nil {
		logger.Error("init launches repo: %v", err)
		os.Exit(1)
	}

	jwksCache := jwkscache.New(10*time.Minute, time.Hour)
	tool := lti.NewTool(cfg, platformsRepo, launchesRepo, keySet, jwksCache)
	h := toolHandler.NewHandler(cfg, tool, platformsRepo)

	router := chi.NewRouter()
	const maxBodySize = 2_100_000
	router.Use(middleware.RequestSize(maxBodySize))
	router.Use(middleware.Recoverer)
	router.Mount("/", h.Router())

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{Addr: addr, Handler: withCORS(router)}

	go func() {
		logger.Info("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown: %v", err)
	}
	if platformsRepo != nil {
		platformsRepo.Disconnect()
	}
	if launchesRepo != nil {
		launchesRepo.Disconnect()
	}
	logger.Info("server stopped")
}
