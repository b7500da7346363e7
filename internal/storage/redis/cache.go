package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

const verifiedDomainsKey = "domains:verified"

// Cache Redis 缓存实现，用于已验证域名集合等热点数据。
// 缓存只是旁路，任何 Redis 故障都不应阻断主流程，调用方拿到错误后回源即可。
type Cache struct {
	client *goredis.Client
}

// NewCache 创建 Redis 缓存实例
func NewCache(addr, password string, db int) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// CacheVerifiedDomains 缓存已验证域名集合
func (c *Cache) CacheVerifiedDomains(ctx context.Context, names []string, ttl time.Duration) error {
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, verifiedDomainsKey, data, ttl).Err()
}

// GetVerifiedDomains 读取缓存的已验证域名集合，未命中返回 ErrCacheMiss
func (c *Cache) GetVerifiedDomains(ctx context.Context) ([]string, error) {
	data, err := c.client.Get(ctx, verifiedDomainsKey).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, err
	}
	return names, nil
}

// InvalidateVerifiedDomains 使已验证域名缓存失效。
// 域名验证通过、停用或删除后必须调用，否则投递校验会放行过期集合。
func (c *Cache) InvalidateVerifiedDomains(ctx context.Context) error {
	return c.client.Del(ctx, verifiedDomainsKey).Err()
}

// Ping 测试 Redis 连接
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}
