package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

const verifiedDomainsKey = "domains:verified"

// DomainCache 基于本地缓存的已验证域名集合缓存，
// Redis 未启用时作为投递服务的退路。
type DomainCache struct {
	local *LocalCache
}

// NewDomainCache 创建本地域名缓存
func NewDomainCache(local *LocalCache) *DomainCache {
	return &DomainCache{local: local}
}

// GetVerifiedDomains 读取缓存的已验证域名集合，未命中返回 ErrCacheMiss
func (c *DomainCache) GetVerifiedDomains(ctx context.Context) ([]string, error) {
	val, ok := c.local.Get(verifiedDomainsKey)
	if !ok {
		return nil, ErrCacheMiss
	}
	names, ok := val.([]string)
	if !ok {
		return nil, ErrCacheMiss
	}
	return names, nil
}

// CacheVerifiedDomains 缓存已验证域名集合
func (c *DomainCache) CacheVerifiedDomains(ctx context.Context, names []string, ttl time.Duration) error {
	c.local.Set(verifiedDomainsKey, names, ttl)
	return nil
}

// InvalidateVerifiedDomains 使已验证域名缓存失效
func (c *DomainCache) InvalidateVerifiedDomains(ctx context.Context) error {
	c.local.Delete(verifiedDomainsKey)
	return nil
}
