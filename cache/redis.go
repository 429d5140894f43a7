package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// 全局Redis客户端
var (
	redisClient *redis.Client
	initOnce    sync.Once
	initialized bool
	mockMode    bool

	// 模拟模式下的内存缓存
	mockMu    sync.Mutex
	mockStore = make(map[string]mockEntry)
)

type mockEntry struct {
	data      []byte
	expiresAt time.Time
}

// ErrCacheMiss 表示键不存在或已过期
var ErrCacheMiss = errors.New("cache miss")

// InitRedis 初始化Redis连接。连接失败时降级为内存模拟模式，
// 缓存只是加速层，不能成为启动的硬依赖。
func InitRedis() error {
	initOnce.Do(func() {
		if os.Getenv("REDIS_MOCK") == "true" {
			log.Println("强制使用Redis模拟模式")
			mockMode = true
			initialized = true
			return
		}

		redisAddr := os.Getenv("REDIS_ADDR")
		redisPassword := os.Getenv("REDIS_PASSWORD")
		redisDB := 0
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			if db, err := strconv.Atoi(dbStr); err == nil {
				redisDB = db
			}
		}
		if redisAddr == "" {
			redisAddr = "localhost:6379"
		}

		client := redis.NewClient(&redis.Options{
			Addr:        redisAddr,
			Password:    redisPassword,
			DB:          redisDB,
			DialTimeout: 3 * time.Second,
			ReadTimeout: 3 * time.Second,
			PoolSize:    10,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, err := client.Ping(ctx).Result(); err != nil {
			log.Printf("Redis连接失败: %v，将使用模拟模式", err)
			mockMode = true
			initialized = true
			return
		}

		redisClient = client
		initialized = true
		log.Println("Redis连接初始化成功")
	})

	return nil
}

// Available reports whether a real Redis connection is live.
func Available() bool {
	return initialized && !mockMode && redisClient != nil
}

// GetClient 获取原生Redis客户端，模拟模式下返回错误
func GetClient() (*redis.Client, error) {
	if !Available() {
		return nil, errors.New("redis未初始化或处于模拟模式")
	}
	return redisClient, nil
}

// SetJSON 序列化并缓存一个值
func SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if mockMode {
		mockMu.Lock()
		mockStore[key] = mockEntry{data: data, expiresAt: time.Now().Add(expiration)}
		mockMu.Unlock()
		return nil
	}

	return redisClient.Set(ctx, key, data, expiration).Err()
}

// GetJSON 读取并反序列化一个缓存值，未命中返回ErrCacheMiss
func GetJSON(ctx context.Context, key string, dest interface{}) error {
	var data []byte

	if mockMode {
		mockMu.Lock()
		e, ok := mockStore[key]
		if ok && time.Now().After(e.expiresAt) {
			delete(mockStore, key)
			ok = false
		}
		mockMu.Unlock()
		if !ok {
			return ErrCacheMiss
		}
		data = e.data
	} else {
		raw, err := redisClient.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		if err != nil {
			return err
		}
		data = raw
	}

	return json.Unmarshal(data, dest)
}

// Delete 删除缓存键
func Delete(ctx context.Context, keys ...string) error {
	if mockMode {
		mockMu.Lock()
		for _, k := range keys {
			delete(mockStore, k)
		}
		mockMu.Unlock()
		return nil
	}
	return redisClient.Del(ctx, keys...).Err()
}

// CloseRedis 关闭Redis连接
func CloseRedis() {
	if Available() {
		if err := redisClient.Close(); err != nil {
			log.Printf("关闭Redis连接失败: %v", err)
		}
	}
}
