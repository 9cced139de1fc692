package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/constants"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	}

	client := redis.NewClient(opt)

	// Ping to check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetMD5ExpireDuration 返回配置的MD5记录过期时间
func (r *Redis) GetMD5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// AddRawFileMD5 记录原始文件MD5并刷新集合过期时间
func (r *Redis) AddRawFileMD5(ctx context.Context, md5Hex string) error {
	if md5Hex == "" {
		return fmt.Errorf("md5不能为空")
	}
	key := constants.KeyFileMD5Set
	pipe := r.Client.TxPipeline()
	pipe.SAdd(ctx, key, md5Hex)
	pipe.Expire(ctx, key, r.GetMD5ExpireDuration())
	_, err := pipe.Exec(ctx)
	return err
}

// CheckRawFileMD5Exists 判断原始文件MD5是否已上传过
func (r *Redis) CheckRawFileMD5Exists(ctx context.Context, md5Hex string) (bool, error) {
	return r.Client.SIsMember(ctx, constants.KeyFileMD5Set, md5Hex).Result()
}

// SetJobVector 缓存岗位描述向量，JSON编码，带过期时间
func (r *Redis) SetJobVector(ctx context.Context, cacheKey string, vector []float64) error {
	key := fmt.Sprintf(constants.KeyJobDescriptionVector, cacheKey)
	data, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("序列化岗位向量失败: %w", err)
	}
	return r.Client.Set(ctx, key, data, constants.JDCacheDuration).Err()
}

// GetJobVector 读取缓存的岗位向量，未命中时返回 ErrNotFound
func (r *Redis) GetJobVector(ctx context.Context, cacheKey string) ([]float64, error) {
	key := fmt.Sprintf(constants.KeyJobDescriptionVector, cacheKey)
	data, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var vector []float64
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, fmt.Errorf("反序列化岗位向量失败: %w", err)
	}
	return vector, nil
}

// RedisJobVectorCache 基于Redis的岗位向量缓存，跨进程共享。
// 满足 processor.JobVectorCache 接口；Redis读写失败时降级为直接计算，
// 缓存故障不会阻断打分流程。
type RedisJobVectorCache struct {
	redis *Redis
}

// NewRedisJobVectorCache 创建Redis岗位向量缓存
func NewRedisJobVectorCache(r *Redis) *RedisJobVectorCache {
	return &RedisJobVectorCache{redis: r}
}

// GetOrCompute 命中直接返回，未命中或读取失败时计算后回写
func (c *RedisJobVectorCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]float64, error)) ([]float64, error) {
	vec, err := c.redis.GetJobVector(ctx, key)
	if err == nil {
		return vec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		// 缓存读取异常按未命中处理
		vec = nil
	}

	vec, err = compute(ctx)
	if err != nil {
		return nil, err
	}

	// 回写失败只影响下次命中率
	_ = c.redis.SetJobVector(ctx, key, vec)
	return vec, nil
}
