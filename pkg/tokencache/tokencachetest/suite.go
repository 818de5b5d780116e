// Package tokencachetest holds the behaviour every tokencache.Store driver
// must share.
package tokencachetest

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
	"github.com/stretchr/testify/require"
)

// RunStoreSuite exercises a Store. newStore must return an empty store.
func RunStoreSuite(t *testing.T, newStore func(t *testing.T) tokencache.Store) {
	t.Helper()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "nope")
		require.ErrorIs(t, err, tokencache.ErrNotFound)
	})

	t.Run("set get overwrite delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "k", []byte("v1"), 0))
		require.NoError(t, s.Set(ctx, "k", []byte("v2"), 0))

		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte("v2"), v)

		require.NoError(t, s.Delete(ctx, "k"))
		_, err = s.Get(ctx, "k")
		require.ErrorIs(t, err, tokencache.ErrNotFound)

		require.NoError(t, s.Delete(ctx, "k"), "deleting a missing key is not an error")
	})

	t.Run("keys by prefix", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, k := range []string{"at:c:u1:a b", "at:c:u1:c", "at:c:u2:a", "rt:c:u1"} {
			require.NoError(t, s.Set(ctx, k, []byte("x"), 0))
		}

		keys, err := s.Keys(ctx, "at:c:u1:")
		require.NoError(t, err)
		slices.Sort(keys)
		require.Equal(t, []string{"at:c:u1:a b", "at:c:u1:c"}, keys)

		keys, err = s.Keys(ctx, "missing:")
		require.NoError(t, err)
		require.Empty(t, keys)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "short", []byte("x"), 50*time.Millisecond))
		require.NoError(t, s.Set(ctx, "long", []byte("x"), 0))

		require.Eventually(t, func() bool {
			_, err := s.Get(ctx, "short")
			return err != nil
		}, 5*time.Second, 20*time.Millisecond)

		keys, err := s.Keys(ctx, "")
		require.NoError(t, err)
		require.Equal(t, []string{"long"}, keys)
	})
}
