package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oluseyi-dev/payflow/docs"
	"github.com/oluseyi-dev/payflow/internal/config"
	"github.com/oluseyi-dev/payflow/internal/gateway"
	"github.com/oluseyi-dev/payflow/internal/handler"
	"github.com/oluseyi-dev/payflow/internal/logging"
	"github.com/oluseyi-dev/payflow/internal/middleware"
	"github.com/oluseyi-dev/payflow/internal/repository"
	"github.com/oluseyi-dev/payflow/internal/service/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("payflow-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	paymentRepo := repository.NewPaymentRepository(db)
	refundRepo := repository.NewRefundRepository(db)

	processor := gateway.NewClient(gateway.Options{
		BaseURL:   cfg.ProcessorBaseURL,
		ClientID:  cfg.ProcessorClientID,
		Secret:    cfg.ProcessorSecret,
		ReturnURL: cfg.ApprovalReturnURL,
		CancelURL: cfg.ApprovalCancelURL,
		Timeout:   time.Duration(cfg.ProcessorTimeoutS) * time.Second,
	})

	slog.Info("processor client configured", "base_url", cfg.ProcessorBaseURL, "mode", cfg.ProcessorMode)

	paymentSvc := payment.NewService(paymentRepo, refundRepo, processor, cfg)

	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	healthHandler := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/live", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/payments", paymentHandler.Create)
	mux.HandleFunc("POST /api/v1/payments/execute", paymentHandler.Execute)
	mux.HandleFunc("GET /api/v1/payments", paymentHandler.List)
	mux.HandleFunc("GET /api/v1/payments/{id}", paymentHandler.Get)
	mux.HandleFunc("POST /api/v1/payments/{id}/refund", paymentHandler.Refund)
	mux.HandleFunc("GET /api/v1/payments/{id}/refunds", paymentHandler.ListRefunds)

	mux.HandleFunc("GET /docs", handler.ServeDocs())
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeSpec(docs.OpenAPISpec))

	chain := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var lastErr error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", lastErr)
}
