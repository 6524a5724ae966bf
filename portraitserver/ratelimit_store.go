package portraitserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// FileRecordStore keeps one JSON array per key in {dir}/{key}.json.
type FileRecordStore struct {
	dir string
}

func NewFileRecordStore(dir string) *FileRecordStore {
	return &FileRecordStore{dir: dir}
}

func (s *FileRecordStore) Get(_ context.Context, key string) ([]int64, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read rate limit file: %w", err)
	}
	var stamps []int64
	if err := json.Unmarshal(data, &stamps); err != nil {
		return nil, fmt.Errorf("decode rate limit file %q: %w", s.path(key), err)
	}
	return stamps, nil
}

func (s *FileRecordStore) Put(_ context.Context, key string, stamps []int64) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create rate limit dir: %w", err)
	}
	data, err := json.Marshal(stamps)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write rate limit file: %w", err)
	}
	return nil
}

func (s *FileRecordStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient returns a client with short timeouts; it does not ping.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	addr := cfg.Addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(6379))
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// RedisRecordStore keeps the same JSON array under ratelimit:{key}, expiring
// after ttl so idle clients vanish.
type RedisRecordStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRecordStore(client *redis.Client, ttl time.Duration) *RedisRecordStore {
	return &RedisRecordStore{client: client, ttl: ttl}
}

func (s *RedisRecordStore) Get(ctx context.Context, key string) ([]int64, error) {
	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var stamps []int64
	if err := json.Unmarshal(data, &stamps); err != nil {
		return nil, fmt.Errorf("decode rate limit record: %w", err)
	}
	return stamps, nil
}

func (s *RedisRecordStore) Put(ctx context.Context, key string, stamps []int64) error {
	data, err := json.Marshal(stamps)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return "ratelimit:" + key
}
