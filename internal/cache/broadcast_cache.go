package cache

import (
	"context"
	"sync"
)

// BroadcastCache lưu số chỗ trống đã phát gần nhất của mỗi bãi.
// Đây chỉ là bộ nhớ đệm phía đọc, không bao giờ là nguồn sự thật về số chỗ.
type BroadcastCache interface {
	LastBroadcast(ctx context.Context, lotID int) (available int, ok bool, err error)
	SetLastBroadcast(ctx context.Context, lotID int, available int) error
}

type MemoryBroadcastCache struct {
	mu     sync.RWMutex
	values map[int]int
}

func NewMemoryBroadcastCache() *MemoryBroadcastCache {
	return &MemoryBroadcastCache{values: make(map[int]int)}
}

func (c *MemoryBroadcastCache) LastBroadcast(_ context.Context, lotID int) (int, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[lotID]
	return v, ok, nil
}

func (c *MemoryBroadcastCache) SetLastBroadcast(_ context.Context, lotID int, available int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[lotID] = available
	return nil
}
