package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetOrComputeCaches 命中缓存时不再执行计算
func TestGetOrComputeCaches(t *testing.T) {
	cache := NewMemoryJobVectorCache()
	calls := 0
	compute := func(ctx context.Context) ([]float64, error) {
		calls++
		return []float64{1, 2, 3}, nil
	}

	first, err := cache.GetOrCompute(context.Background(), "job-1", compute)
	require.NoError(t, err)
	second, err := cache.GetOrCompute(context.Background(), "job-1", compute)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "缓存命中后不应重复计算")
	assert.Equal(t, 1, cache.Len())
}

// TestGetOrComputeDistinctKeys 不同键各自计算
func TestGetOrComputeDistinctKeys(t *testing.T) {
	cache := NewMemoryJobVectorCache()

	a, err := cache.GetOrCompute(context.Background(), "job-a", func(ctx context.Context) ([]float64, error) {
		return []float64{1}, nil
	})
	require.NoError(t, err)
	b, err := cache.GetOrCompute(context.Background(), "job-b", func(ctx context.Context) ([]float64, error) {
		return []float64{2}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{1}, a)
	assert.Equal(t, []float64{2}, b)
	assert.Equal(t, 2, cache.Len())
}

// TestGetOrComputeErrorNotCached 计算失败不写缓存，下次调用重新计算
func TestGetOrComputeErrorNotCached(t *testing.T) {
	cache := NewMemoryJobVectorCache()
	calls := 0

	_, err := cache.GetOrCompute(context.Background(), "job-1", func(ctx context.Context) ([]float64, error) {
		calls++
		return nil, errors.New("embedding service down")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	vec, err := cache.GetOrCompute(context.Background(), "job-1", func(ctx context.Context) ([]float64, error) {
		calls++
		return []float64{4, 5}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, vec)
	assert.Equal(t, 2, calls)
}

// TestGetOrComputeConcurrent 并发未命中允许重复计算，但所有调用方拿到同一个缓存值
func TestGetOrComputeConcurrent(t *testing.T) {
	cache := NewMemoryJobVectorCache()
	var computeCount int64

	const goroutines = 32
	results := make([][]float64, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			vec, err := cache.GetOrCompute(context.Background(), "job-1", func(ctx context.Context) ([]float64, error) {
				n := atomic.AddInt64(&computeCount, 1)
				return []float64{float64(n)}, nil
			})
			assert.NoError(t, err)
			results[idx] = vec
		}(i)
	}
	wg.Wait()

	// 竞争时保留先写入的值：缓存值与首个落盘结果一致
	cached, err := cache.GetOrCompute(context.Background(), "job-1", func(ctx context.Context) ([]float64, error) {
		t.Fatal("此时必须命中缓存")
		return nil, nil
	})
	require.NoError(t, err)

	for _, vec := range results {
		assert.Equal(t, cached, vec, "所有调用方观察到的向量必须一致")
	}
	assert.Equal(t, 1, cache.Len())
}
