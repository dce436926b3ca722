package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/cached-inventory/internal/adapter/storage"
	"github.com/rl1809/cached-inventory/internal/core/domain"
	"github.com/rl1809/cached-inventory/internal/core/service"
	"github.com/rl1809/cached-inventory/internal/logging"
	"github.com/rl1809/cached-inventory/internal/port"
)

const itemID domain.ItemID = 1001

// warehouseProbe reads back what the warehouse ended up with.
type warehouseProbe interface {
	port.WarehouseClient
	writes(ctx context.Context) (int64, error)
}

type memoryProbe struct{ *storage.MemoryAdapter }

func (m memoryProbe) writes(context.Context) (int64, error) {
	return int64(m.Writes(itemID)), nil
}

type redisProbe struct{ *storage.RedisAdapter }

func (r redisProbe) writes(ctx context.Context) (int64, error) {
	return r.Version(ctx, itemID)
}

func main() {
	backend := flag.String("warehouse", "memory", "Backing store: memory or redis")
	redisAddr := flag.String("redis_addr", "localhost:6379", "Redis address")
	initialStock := flag.Int64("stock", 20, "Initial stock of the item")
	totalRequests := flag.Int("requests", 50, "Concurrent withdrawals of one unit")
	latency := flag.Duration("latency", 200*time.Millisecond, "Simulated latency of the memory warehouse")
	flushDelay := flag.Duration("flush_delay", 500*time.Millisecond, "Quiet period before flushing")
	flag.Parse()

	ctx := context.Background()

	var probe warehouseProbe
	switch *backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()

		// Clear previous test data
		rdb.Del(ctx, storage.StockKey(itemID))

		adapter, err := storage.NewRedisAdapter(rdb)
		if err != nil {
			log.Fatalf("redis adapter: %v", err)
		}
		if err := adapter.SetStock(ctx, itemID, *initialStock); err != nil {
			log.Fatalf("failed to set stock: %v", err)
		}
		probe = redisProbe{adapter}
	case "memory":
		probe = memoryProbe{storage.NewMemoryAdapter(*initialStock, *latency)}
	default:
		log.Fatalf("unknown warehouse %q", *backend)
	}

	logger, syncLog, err := logging.New(logging.Options{Level: "warn"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer syncLog()

	stockService := service.NewStockService(probe, service.Options{
		FlushDelay: *flushDelay,
		Logger:     logger,
	})

	// Counters
	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var errorCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			switch err := stockService.Retrieve(ctx, itemID, 1); {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				errorCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	cached, _ := stockService.GetStock(ctx, itemID)

	// Give the debounced flush time to fire on its own before draining.
	time.Sleep(*flushDelay + 200*time.Millisecond)
	if err := stockService.Close(ctx); err != nil {
		log.Printf("drain reported failures: %v", err)
	}

	success := successCount.Load()
	soldOut := soldOutCount.Load()
	wantSuccess := min(int64(*totalRequests), *initialStock)

	// Results
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Warehouse:        %s\n", *backend)
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	check := func(ok bool, pass, fail string) {
		if ok {
			fmt.Println("PASS: " + pass)
			return
		}
		fmt.Println("FAIL: " + fail)
		failed = true
	}

	check(int64(success) == wantSuccess && errorCount.Load() == 0,
		fmt.Sprintf("%d withdrawals succeeded, no oversell", success),
		fmt.Sprintf("expected %d successes, got %d (errors %d)", wantSuccess, success, errorCount.Load()))

	check(cached == *initialStock-wantSuccess,
		fmt.Sprintf("cached stock is %d", cached),
		fmt.Sprintf("expected cached stock %d, got %d", *initialStock-wantSuccess, cached))

	// The warehouse is read with a fresh context; the service is closed.
	final, err := probe.GetStock(context.Background(), itemID)
	check(err == nil && final == cached,
		fmt.Sprintf("warehouse stock is %d", final),
		fmt.Sprintf("expected warehouse stock %d, got %d (%v)", cached, final, err))

	writes, err := probe.writes(ctx)
	check(err == nil && writes == 1,
		"burst coalesced into a single warehouse write",
		fmt.Sprintf("expected 1 warehouse write, got %d (%v)", writes, err))

	if failed {
		os.Exit(1)
	}
}
