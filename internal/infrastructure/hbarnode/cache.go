package hbarnode

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"coinsvc/internal/domain"
)

const (
	balanceCacheVersionKey = "coinsvc:balances:version"
	balanceCacheKeyPrefix  = "coinsvc:balances:v"
	heightCacheKeyPrefix   = "coinsvc:height:"
	defaultHeightTTL       = 2 * time.Second
	defaultBalanceTTL      = 30 * time.Second
)

type CacheConfig struct {
	Addr       string
	HeightTTL  time.Duration
	BalanceTTL time.Duration
}

// CachedClient layers a redis read cache over the adapter: chain height for a
// couple of seconds, balances under a versioned prefix that a successful
// broadcast bumps. An empty cache address degrades to plain passthrough.
type CachedClient struct {
	*Client
	cache      *redis.Client
	heightTTL  time.Duration
	balanceTTL time.Duration
}

func NewCachedClient(base *Client, cfg CacheConfig) (*CachedClient, error) {
	if base == nil {
		return nil, errors.New("base adapter is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return &CachedClient{Client: base}, nil
	}
	if cfg.HeightTTL <= 0 {
		cfg.HeightTTL = defaultHeightTTL
	}
	if cfg.BalanceTTL <= 0 {
		cfg.BalanceTTL = defaultBalanceTTL
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &CachedClient{
		Client:     base,
		cache:      client,
		heightTTL:  cfg.HeightTTL,
		balanceTTL: cfg.BalanceTTL,
	}, nil
}

func (c *CachedClient) GetHeight(ctx context.Context) (uint64, error) {
	if c.cache == nil {
		return c.Client.GetHeight(ctx)
	}
	key := heightCacheKeyPrefix + c.cfg.Name
	if cached, err := c.cache.Get(ctx, key).Result(); err == nil {
		if height, err := strconv.ParseUint(cached, 10, 64); err == nil {
			return height, nil
		}
	}
	height, err := c.Client.GetHeight(ctx)
	if err != nil {
		return 0, err
	}
	_ = c.cache.Set(ctx, key, strconv.FormatUint(height, 10), c.heightTTL).Err()
	return height, nil
}

func (c *CachedClient) BalanceByAddress(ctx context.Context, ticker, address string) (*domain.Balance, error) {
	if c.cache == nil {
		return c.Client.BalanceByAddress(ctx, ticker, address)
	}
	version, ok := c.cacheVersion(ctx)
	if !ok {
		return c.Client.BalanceByAddress(ctx, ticker, address)
	}
	key := balanceCacheKey(version, c.cfg.Name, ticker, address)
	if cached, err := c.cache.Get(ctx, key).Result(); err == nil {
		var balance domain.Balance
		if err := json.Unmarshal([]byte(cached), &balance); err == nil {
			return &balance, nil
		}
	}

	balance, err := c.Client.BalanceByAddress(ctx, ticker, address)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(balance); err == nil {
		_ = c.cache.Set(ctx, key, payload, c.balanceTTL).Err()
	}
	return balance, nil
}

// TxBroadcast invalidates cached balances after a successful submission.
func (c *CachedClient) TxBroadcast(ctx context.Context, ticker, signedData string) domain.BroadcastResult {
	result := c.Client.TxBroadcast(ctx, ticker, signedData)
	if c.cache != nil && result.Error == "" {
		_ = c.cache.Incr(ctx, balanceCacheVersionKey).Err()
	}
	return result
}

func (c *CachedClient) cacheVersion(ctx context.Context) (string, bool) {
	version, err := c.cache.Get(ctx, balanceCacheVersionKey).Result()
	if err == nil {
		return version, true
	}
	if errors.Is(err, redis.Nil) {
		return "0", true
	}
	return "", false
}

func balanceCacheKey(version, provider, ticker, address string) string {
	var b strings.Builder
	b.Grow(96)
	b.WriteString(balanceCacheKeyPrefix)
	b.WriteString(version)
	b.WriteString(":")
	b.WriteString(provider)
	b.WriteString(":")
	b.WriteString(strings.ToUpper(ticker))
	b.WriteString(":")
	b.WriteString(address)
	return b.String()
}

func (c *CachedClient) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}
