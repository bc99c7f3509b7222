// Command server runs the rummy room server: HTTP room creation plus one
// websocket per seated player.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/9553s/casino-rummy-master/internal/auth"
	"github.com/9553s/casino-rummy-master/internal/cache"
	"github.com/9553s/casino-rummy-master/internal/config"
	"github.com/9553s/casino-rummy-master/internal/database"
	"github.com/9553s/casino-rummy-master/internal/room"
	"github.com/9553s/casino-rummy-master/internal/ws"
)

const reapInterval = time.Minute

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Redis and Postgres are optional: without them the server still runs,
	// it just keeps no action history and no match records.
	if cfg.RedisAddr != "" {
		if err := cache.InitRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB); err != nil {
			log.WithError(err).Warn("redis unavailable, action history disabled")
		} else {
			log.WithField("addr", cfg.RedisAddr).Info("action historian connected")
		}
	}
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
			log.WithError(err).Warn("postgres unavailable, match persistence disabled")
		} else {
			log.Info("match store connected")
		}
		cancel()
	}

	registry := room.NewRegistry(log)
	handler := &ws.Handler{
		Registry: registry,
		Auth:     auth.NewService(cfg.TokenSecret, cfg.TokenExpire),
		Log:      log,
	}

	mux := http.NewServeMux()
	handler.Routes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		ticker := time.NewTicker(reapInterval)
		defer ticker.Stop()
		for range ticker.C {
			if n := registry.ReapEmpty(); n > 0 {
				log.WithField("rooms", n).Info("reaped empty rooms")
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	if database.DB != nil {
		database.DB.Close()
	}
	if cache.Rdb != nil {
		cache.Rdb.Close()
	}
}
