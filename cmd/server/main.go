package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/cached-inventory/internal/adapter/handler"
	"github.com/rl1809/cached-inventory/internal/adapter/handler/stockrpc"
	"github.com/rl1809/cached-inventory/internal/adapter/storage"
	"github.com/rl1809/cached-inventory/internal/config"
	"github.com/rl1809/cached-inventory/internal/core/service"
	"github.com/rl1809/cached-inventory/internal/logging"
	"github.com/rl1809/cached-inventory/internal/metrics"
	"github.com/rl1809/cached-inventory/internal/port"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, sync, err := logging.New(logging.Options{Backend: cfg.LogBackend, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", logging.Fields{"err": err})
		sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger logging.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	warehouse, closer, err := openWarehouse(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	stockService := service.NewStockService(storage.NewInstrumented(warehouse, m), service.Options{
		FlushDelay:     cfg.FlushDelay,
		RetryDelay:     cfg.RetryDelay,
		MaxRetryDelay:  cfg.MaxRetryDelay,
		FetchTimeout:   cfg.FetchTimeout,
		PersistTimeout: cfg.PersistTimeout,
		Logger:         logger,
		Metrics:        m,
	})

	// Initialize gRPC server
	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcServer = grpc.NewServer()
		stockrpc.RegisterStockServiceServer(grpcServer, handler.NewGRPCHandler(stockService, logger))

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		go func() {
			logger.Info("gRPC server listening", logging.Fields{"addr": cfg.GRPCAddr})
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", logging.Fields{"err": err})
			}
		}()
	}

	// Initialize HTTP server
	mux := http.NewServeMux()
	handler.NewHTTPHandler(stockService, logger).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.WithRequestID(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logging.Fields{"addr": cfg.HTTPAddr})
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("shutting down", logging.Fields{"signal": sig.String()})
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", logging.Fields{"err": err})
	}
	logger.Info("HTTP server stopped", nil)

	if grpcServer != nil {
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped", nil)
	}

	// No request can mutate stock any more; write everything back. The HTTP
	// drain may have used up shutdownCtx, so the flushes get a deadline of
	// their own.
	if err := drainStock(stockService, cfg.ShutdownTimeout); err != nil {
		logger.Error("unflushed stock at shutdown", logging.Fields{"err": err})
		runErr = errors.Join(runErr, err)
	} else {
		logger.Info("pending flushes written", nil)
	}
	return runErr
}

type stockCloser interface {
	Close(ctx context.Context) error
}

// drainStock closes svc with a fresh timeout, independent of any deadline
// already spent on stopping the transports.
func drainStock(svc stockCloser, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return svc.Close(ctx)
}

func openWarehouse(ctx context.Context, cfg config.Config, logger logging.Logger) (port.WarehouseClient, io.Closer, error) {
	switch cfg.Warehouse {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		adapter, err := storage.NewRedisAdapter(rdb)
		if err != nil {
			rdb.Close()
			return nil, nil, err
		}
		logger.Info("connected to redis warehouse", logging.Fields{"addr": cfg.RedisAddr})
		return adapter, rdb, nil

	case config.BackendMySQL:
		mcfg, err := mysql.ParseDSN(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		mcfg.ParseTime = true
		connector, err := mysql.NewConnector(mcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connector: %w", err)
		}
		db := sql.OpenDB(connector)
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		adapter, err := storage.NewMySQLAdapter(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to mysql warehouse", logging.Fields{"addr": mcfg.Addr, "db": mcfg.DBName})
		return adapter, db, nil

	default:
		logger.Info("using in-memory warehouse", logging.Fields{
			"seed_stock": cfg.SeedStock,
			"latency":    cfg.MemoryLatency.String(),
		})
		return storage.NewMemoryAdapter(cfg.SeedStock, cfg.MemoryLatency), nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
