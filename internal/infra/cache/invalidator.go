// Package cache publishes invalidation signals so member-facing views
// (payment history, profile) refresh after a payment completes. Redis is
// optional: with no REDIS_URL the signal is a no-op.
package cache

import (
	"context"
	"fmt"
	"log"

	"membership-app/config"

	"github.com/redis/go-redis/v9"
)

const invalidationChannel = "member-view-invalidations"

var rdb *redis.Client

func Init() {
	if config.REDIS_URL == "" {
		log.Println("REDIS_URL not set, cache invalidation signals disabled")
		return
	}
	opts, err := redis.ParseURL(config.REDIS_URL)
	if err != nil {
		log.Println("❌ Invalid REDIS_URL, cache invalidation disabled:", err)
		return
	}
	rdb = redis.NewClient(opts)
}

// SetClient swaps the backing client; used by tests.
func SetClient(c *redis.Client) { rdb = c }

// InvalidateMemberViews drops cached payment/profile views for one member
// and broadcasts the change. Failures are logged, never propagated: the
// payment transition must not depend on the cache layer.
func InvalidateMemberViews(ctx context.Context, memberID uint) {
	if rdb == nil {
		return
	}
	keys := []string{
		fmt.Sprintf("views:payments:%d", memberID),
		fmt.Sprintf("views:profile:%d", memberID),
	}
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		log.Println("❌ Cache invalidation delete failed:", err)
	}
	if err := rdb.Publish(ctx, invalidationChannel, fmt.Sprint(memberID)).Err(); err != nil {
		log.Println("❌ Cache invalidation publish failed:", err)
	}
}
