package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"valhalla/internal/api"
	"valhalla/internal/metrics"
	"valhalla/internal/recorder"
	"valhalla/internal/valhalla"
	"valhalla/pkg/config"
	"valhalla/pkg/db"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	cfg := config.LoadConfig()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.JWTSigningKey == "" {
		logrus.Fatal("JWT_SIGNING_KEY is required")
	}

	pool := valhalla.NewPool(cfg)
	client, err := pool.Open()
	if err != nil {
		logrus.Fatalf("Failed to create analytics store pool: %v", err)
	}

	startup, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if cfg.IsDevelopment() {
		if err := db.EnsureSchema(startup, client.DB()); err != nil {
			logrus.WithError(err).Warn("Failed to apply development schema")
		}
	}
	if out, err := client.Now(startup); err != nil {
		logrus.WithError(err).Warn("Analytics store did not answer at startup")
	} else if len(out.Rows) > 0 {
		logrus.WithField("now", out.Rows[0]["now"]).Info("Analytics store reachable")
	}
	cancel()

	if err := metrics.Register(prometheus.DefaultRegisterer, client.DB().DB); err != nil {
		logrus.Fatalf("Failed to register metrics: %v", err)
	}

	recorderService := recorder.NewService(client)
	apiHandler := api.NewHandler(client, recorderService)

	mux := http.NewServeMux()
	apiHandler.Register(mux, cfg.JWTSigningKey)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.ServerHost, cfg.ServerPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Failed to stop server: %v", err)
	}
	if err := pool.Close(); err != nil {
		logrus.Errorf("Failed to close analytics store pool: %v", err)
	}

	logrus.Info("Server stopped")
}
