package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	lastBroadcastKeyPrefix = "parksmart:availability:last:"
	lastBroadcastTTL       = 24 * time.Hour
)

type RedisBroadcastCache struct {
	client *redis.Client
}

func NewRedisClient(addr, password string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	log.Printf("Redis client khởi tạo với địa chỉ: %s", addr)
	return client
}

func NewRedisBroadcastCache(client *redis.Client) *RedisBroadcastCache {
	return &RedisBroadcastCache{client: client}
}

func lastBroadcastKey(lotID int) string {
	return lastBroadcastKeyPrefix + strconv.Itoa(lotID)
}

func (c *RedisBroadcastCache) LastBroadcast(ctx context.Context, lotID int) (int, bool, error) {
	val, err := c.client.Get(ctx, lastBroadcastKey(lotID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("RedisBroadcastCache.LastBroadcast: %w", err)
	}
	return val, true, nil
}

func (c *RedisBroadcastCache) SetLastBroadcast(ctx context.Context, lotID int, available int) error {
	if err := c.client.Set(ctx, lastBroadcastKey(lotID), available, lastBroadcastTTL).Err(); err != nil {
		return fmt.Errorf("RedisBroadcastCache.SetLastBroadcast: %w", err)
	}
	return nil
}
