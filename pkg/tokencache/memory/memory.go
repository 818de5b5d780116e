// Package memory is an in-process tokencache.Store backed by go-cache.
package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired entries are evicted.
const DefaultCleanupInterval = 10 * time.Minute

type Store struct {
	c *gocache.Cache
}

func New(cleanupInterval time.Duration) *Store {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Store{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, tokencache.ErrNotFound
	}
	return slices.Clone(v.([]byte)), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.c.Set(key, slices.Clone(value), ttl)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	items := s.c.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Len is the number of live entries.
func (s *Store) Len() int { return s.c.ItemCount() }
