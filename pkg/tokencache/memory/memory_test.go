package memory

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache/tokencachetest"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()

	tokencachetest.RunStoreSuite(t, func(t *testing.T) tokencache.Store {
		return New(time.Minute)
	})
}

func TestStore_ValuesAreCopied(t *testing.T) {
	t.Parallel()

	s := New(0)
	ctx := context.Background()
	value := []byte("secret")
	require.NoError(t, s.Set(ctx, "k", value, 0))
	value[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), got)
	require.Equal(t, 1, s.Len())
}
