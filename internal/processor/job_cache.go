package processor

import (
	"context"
	"sync"
)

// MemoryJobVectorCache 进程内的岗位向量缓存。
// 读多写少，用RWMutex保护；并发未命中时允许重复计算同一向量（结果相同），
// 但map本身绝不会处于写了一半的状态。
type MemoryJobVectorCache struct {
	mu      sync.RWMutex
	vectors map[string][]float64
}

// NewMemoryJobVectorCache 创建内存缓存
func NewMemoryJobVectorCache() *MemoryJobVectorCache {
	return &MemoryJobVectorCache{
		vectors: make(map[string][]float64),
	}
}

// GetOrCompute 实现 JobVectorCache 接口。
// 计算在锁外进行，嵌入调用可能耗时数秒，不允许持锁等待。
func (c *MemoryJobVectorCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]float64, error)) ([]float64, error) {
	c.mu.RLock()
	vec, ok := c.vectors[key]
	c.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// 竞争时保留先写入的值，保证同一岗位对外返回一致的向量
	if existing, ok := c.vectors[key]; ok {
		vec = existing
	} else {
		c.vectors[key] = vec
	}
	c.mu.Unlock()

	return vec, nil
}

// Len 返回已缓存的岗位数量
func (c *MemoryJobVectorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}
