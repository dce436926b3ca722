package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/cached-inventory/internal/core/domain"
)

const (
	stockKeyPrefix = "stock:"
	fieldQuantity  = "quantity"
	fieldUpdatedAt = "updated_at"
	fieldVersion   = "version"
)

var ErrNilClient = errors.New("storage: nil client")

// updateStockScript overwrites the quantity and bumps the version in one
// round trip, so readers of the hash never see a half-applied update.
var updateStockScript = redis.NewScript(`
local key = KEYS[1]
redis.call('HSET', key, 'quantity', ARGV[1], 'updated_at', ARGV[2])
return redis.call('HINCRBY', key, 'version', 1)
`)

// RedisAdapter keeps warehouse stock in one hash per item:
// stock:<id> -> {quantity, version, updated_at}.
type RedisAdapter struct {
	client redis.UniversalClient
}

func NewRedisAdapter(client redis.UniversalClient) (*RedisAdapter, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &RedisAdapter{client: client}, nil
}

func StockKey(itemID domain.ItemID) string {
	return stockKeyPrefix + strconv.FormatInt(itemID, 10)
}

// GetStock returns 0 for items the warehouse has never seen.
func (r *RedisAdapter) GetStock(ctx context.Context, itemID domain.ItemID) (int64, error) {
	q, err := r.client.HGet(ctx, StockKey(itemID), fieldQuantity).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get stock %d: %w", itemID, err)
	}
	return q, nil
}

func (r *RedisAdapter) UpdateStock(ctx context.Context, itemID domain.ItemID, quantity int64) error {
	keys := []string{StockKey(itemID)}
	if err := updateStockScript.Run(ctx, r.client, keys, quantity, time.Now().UnixMilli()).Err(); err != nil {
		return fmt.Errorf("redis update stock %d: %w", itemID, err)
	}
	return nil
}

// Version returns how many times the item has been written, 0 if never.
func (r *RedisAdapter) Version(ctx context.Context, itemID domain.ItemID) (int64, error) {
	v, err := r.client.HGet(ctx, StockKey(itemID), fieldVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetStock seeds an item without touching its version.
func (r *RedisAdapter) SetStock(ctx context.Context, itemID domain.ItemID, quantity int64) error {
	return r.client.HSet(ctx, StockKey(itemID), fieldQuantity, quantity).Err()
}
