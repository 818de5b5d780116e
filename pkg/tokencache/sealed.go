package tokencache

import (
	"context"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/cryptox"
)

// Sealed encrypts values at rest. Keys stay in the clear so prefix listing
// keeps working.
func Sealed(store Store, sealer *cryptox.Sealer) Store {
	if sealer == nil {
		return store
	}
	return &sealedStore{Store: store, sealer: sealer}
}

type sealedStore struct {
	Store
	sealer *cryptox.Sealer
}

func (s *sealedStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.sealer.Open(data)
}

func (s *sealedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := s.sealer.Seal(value)
	if err != nil {
		return err
	}
	return s.Store.Set(ctx, key, data, ttl)
}
