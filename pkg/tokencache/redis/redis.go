// Package redis is a tokencache.Store on a Redis server, for clients that
// share a cache across processes.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key this store writes.
const DefaultNamespace = "nativeauth:"

type Store struct {
	rdb       goredis.UniversalClient
	namespace string
}

func New(rdb goredis.UniversalClient, namespace string) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Store{rdb: rdb, namespace: namespace}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return New(rdb, ""), nil
}

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, tokencache.ErrNotFound
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, s.namespace+key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.namespace+key).Err()
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, escapeGlob(s.namespace+prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace))
	}
	return keys, iter.Err()
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
