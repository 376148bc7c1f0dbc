package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListKind names a public list whose pages are cached together. A write to
// any item of the kind drops every cached page of it.
type ListKind string

const (
	ListProjects ListKind = "projects"
	ListNews     ListKind = "news"
)

const (
	listCacheTTL     = time.Hour
	listCacheTimeout = 2 * time.Second
	listScanCount    = 500
)

// ListPage identifies one cached page. Filter is empty for unfiltered lists.
type ListPage struct {
	Kind   ListKind
	Filter string
	Skip   int
	Limit  int
}

func (k ListKind) keyPattern() string {
	return "cache:" + string(k) + ":list:*"
}

// Key renders the Redis key, e.g. cache:projects:list:GAME:0:100.
func (p ListPage) Key() string {
	if p.Filter == "" {
		return fmt.Sprintf("cache:%s:list:%d:%d", p.Kind, p.Skip, p.Limit)
	}
	return fmt.Sprintf("cache:%s:list:%s:%d:%d", p.Kind, p.Filter, p.Skip, p.Limit)
}

// CachedListPage returns the stored response body for p. ok is false on a
// miss, a Redis error, or when no Redis is configured.
func CachedListPage(p ListPage) (body []byte, ok bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), listCacheTimeout)
	defer cancel()
	body, err := rc.Get(ctx, p.Key()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Warnf("list cache read %s: %v", p.Key(), err)
		}
		return nil, false
	}
	return body, true
}

// StoreListPage caches resp for an hour.
func StoreListPage(p ListPage, resp JSONResponse) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		Sugar.Warnf("list cache encode %s: %v", p.Key(), err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), listCacheTimeout)
	defer cancel()
	if err := rc.Set(ctx, p.Key(), body, listCacheTTL).Err(); err != nil {
		Sugar.Warnf("list cache write %s: %v", p.Key(), err)
	}
}

// InvalidateList drops every cached page of kind and returns how many were removed.
func InvalidateList(kind ListKind) int {
	rc := GetRedis()
	if rc == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), listCacheTimeout)
	defer cancel()

	var keys []string
	iter := rc.Scan(ctx, 0, kind.keyPattern(), listScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		Sugar.Warnf("list cache scan %s: %v", kind, err)
	}
	if len(keys) == 0 {
		return 0
	}
	n, err := rc.Del(ctx, keys...).Result()
	if err != nil {
		Sugar.Warnf("list cache invalidate %s: %v", kind, err)
		return 0
	}
	return int(n)
}
