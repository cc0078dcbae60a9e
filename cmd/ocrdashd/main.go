package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/ocr-dashboard/internal/backend"
	"github.com/joseph-ayodele/ocr-dashboard/internal/common"
	"github.com/joseph-ayodele/ocr-dashboard/internal/dashboard"
	"github.com/joseph-ayodele/ocr-dashboard/internal/export"
	"github.com/joseph-ayodele/ocr-dashboard/internal/preview"
	"github.com/joseph-ayodele/ocr-dashboard/internal/session"
	"github.com/joseph-ayodele/ocr-dashboard/internal/web"
)

type healthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to $OCRDASH_CONFIG)")
	flag.Parse()

	// Setup structured logger that outputs messages with variables but no time/level
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := session.Open(ctx, cfg.Session.Store, session.WithLogger(logger), session.WithDialTimeout(3*time.Second))
	if err != nil {
		logger.Error("failed to open session store", "error", err, "store", cfg.Session.Store)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("session store close error", "error", err)
		}
	}()
	if hc, ok := store.(healthChecker); ok {
		if err := hc.HealthCheck(ctx, 5*time.Second); err != nil {
			logger.Error("failed to ping session store", "error", err)
			os.Exit(1)
		}
	}

	opts := []backend.Option{backend.WithLogger(logger), backend.WithTimeout(cfg.Backend.Timeout)}
	if cfg.Backend.Token != "" {
		opts = append(opts, backend.WithToken(cfg.Backend.Token))
	}
	client := backend.NewClient(cfg.Backend.URL, opts...)

	deps := dashboard.Deps{
		Backend: client,
		Previewer: preview.NewService(preview.Config{
			Pdftoppm: cfg.Preview.Pdftoppm,
			MaxPages: cfg.Preview.MaxPages,
		}, nil, nil, logger),
		Exporter: export.NewService(client, cfg.Export.Local, logger),
		Store:    store,
	}
	srv, err := web.NewServer(web.OptionsFromConfig(cfg.Server), deps, logger)
	if err != nil {
		logger.Error("failed to build web server", "error", err)
		os.Exit(1)
	}
	go srv.SweepLimiters(ctx, 5*time.Minute)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	var grpcServer *grpc.Server
	if cfg.Server.HealthGRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.HealthGRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.HealthGRPCAddr, "error", err)
			os.Exit(1)
		}
		grpcServer = grpc.NewServer()
		healthServer := health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

		logger.Info("health endpoint listening", "addr", cfg.Server.HealthGRPCAddr)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				slog.Error("gRPC serve error", "error", err)
				os.Exit(1)
			}
		}()
	}

	logger.Info("ocr-dashboard listening",
		"addr", cfg.Server.HTTPAddr,
		"backend", cfg.Backend.URL,
		"session_store", cfg.Session.Store,
		"export_local", cfg.Export.Local,
	)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
}
