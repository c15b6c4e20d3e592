package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisBusyLoginCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisBusyLoginCacheStore(client redis.UniversalClient, prefix string) *RedisBusyLoginCacheStore {
	if prefix == "" {
		prefix = "busy_login"
	}
	return &RedisBusyLoginCacheStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisBusyLoginCacheStore) Get(ctx context.Context, login string) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	_, err := s.client.Get(ctx, s.dataKey(login)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisBusyLoginCacheStore) Set(ctx context.Context, login string, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	dataKey := s.dataKey(login)
	index := s.indexKey()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dataKey, "1", ttl)
	pipe.SAdd(ctx, index, dataKey)
	pipe.Expire(ctx, index, ttl+time.Minute)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisBusyLoginCacheStore) Invalidate(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	index := s.indexKey()
	keys, err := s.client.SMembers(ctx, index).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	pipe := s.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, index)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisBusyLoginCacheStore) dataKey(login string) string {
	return fmt.Sprintf("%s:data:%s", s.prefix, hashLogin(login))
}

func (s *RedisBusyLoginCacheStore) indexKey() string {
	return fmt.Sprintf("%s:index", s.prefix)
}
