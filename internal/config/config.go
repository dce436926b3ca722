// Package config loads process configuration from flags, with defaults taken
// from the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

var (
	ErrInvalidBackend = errors.New("invalid warehouse backend")
	ErrInvalidTimings = errors.New("invalid timing configuration")
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	// Warehouse selects the backing store client: memory, redis or mysql.
	Warehouse     string
	RedisAddr     string
	MySQLDSN      string
	MemoryLatency time.Duration
	SeedStock     int64

	FlushDelay      time.Duration
	RetryDelay      time.Duration
	MaxRetryDelay   time.Duration
	FetchTimeout    time.Duration
	PersistTimeout  time.Duration
	ShutdownTimeout time.Duration

	LogBackend string
	LogLevel   string
}

// Load parses args (without the program name) on top of environment defaults.
func Load(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("cached-inventory", flag.ContinueOnError)

	fs.StringVar(&cfg.HTTPAddr, "http_addr", getenv("HTTP_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc_addr", getenv("GRPC_ADDR", ":50051"), "gRPC listen address; empty disables gRPC")

	fs.StringVar(&cfg.Warehouse, "warehouse", getenv("WAREHOUSE_BACKEND", BackendMemory), "Backing store client: memory, redis or mysql")
	fs.StringVar(&cfg.RedisAddr, "redis_addr", getenv("REDIS_ADDR", "localhost:6379"), "Redis address for the redis warehouse")
	fs.StringVar(&cfg.MySQLDSN, "mysql_dsn", getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/warehouse?parseTime=true"), "MySQL DSN for the mysql warehouse")
	fs.DurationVar(&cfg.MemoryLatency, "memory_latency", getduration("MEMORY_LATENCY", 200*time.Millisecond), "Simulated latency of the memory warehouse")
	fs.Int64Var(&cfg.SeedStock, "seed_stock", getint64("SEED_STOCK", 100), "Initial quantity of every item in the memory warehouse")

	fs.DurationVar(&cfg.FlushDelay, "flush_delay", getduration("FLUSH_DELAY", 2500*time.Millisecond), "Quiet period before a coalesced write is flushed")
	fs.DurationVar(&cfg.RetryDelay, "retry_delay", getduration("RETRY_DELAY", 500*time.Millisecond), "Initial backoff after a failed flush")
	fs.DurationVar(&cfg.MaxRetryDelay, "max_retry_delay", getduration("MAX_RETRY_DELAY", 30*time.Second), "Upper bound for flush retry backoff")
	fs.DurationVar(&cfg.FetchTimeout, "fetch_timeout", getduration("FETCH_TIMEOUT", 5*time.Second), "Timeout for fetch-through reads")
	fs.DurationVar(&cfg.PersistTimeout, "persist_timeout", getduration("PERSIST_TIMEOUT", 5*time.Second), "Timeout for a single flush write")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown_timeout", getduration("SHUTDOWN_TIMEOUT", 15*time.Second), "Time allowed for draining pending flushes on shutdown")

	fs.StringVar(&cfg.LogBackend, "log_backend", getenv("LOG_BACKEND", "zap"), "Logging backend: zap or logrus")
	fs.StringVar(&cfg.LogLevel, "log_level", getenv("LOG_LEVEL", "info"), "Log level")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Warehouse {
	case BackendMemory, BackendRedis, BackendMySQL:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Warehouse)
	}
	if c.FlushDelay <= 0 {
		return fmt.Errorf("%w: flush_delay must be positive", ErrInvalidTimings)
	}
	if c.RetryDelay <= 0 || c.MaxRetryDelay < c.RetryDelay {
		return fmt.Errorf("%w: need 0 < retry_delay <= max_retry_delay", ErrInvalidTimings)
	}
	if c.FetchTimeout <= 0 || c.PersistTimeout <= 0 {
		return fmt.Errorf("%w: warehouse timeouts must be positive", ErrInvalidTimings)
	}
	if c.SeedStock < 0 {
		return fmt.Errorf("seed_stock must not be negative: %d", c.SeedStock)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return d
	}
	return def
}

func getint64(k string, def int64) int64 {
	if n, err := strconv.ParseInt(os.Getenv(k), 10, 64); err == nil {
		return n
	}
	return def
}
