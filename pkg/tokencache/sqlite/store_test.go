package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/nativeauth/pkg/tokencache"
	"github.com/aussiebroadwan/nativeauth/pkg/tokencache/tokencachetest"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	t.Parallel()

	tokencachetest.RunStoreSuite(t, func(t *testing.T) tokencache.Store {
		return openTemp(t)
	})
}

func TestStore_MigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestStore_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "account:c:u", []byte(`{"home_account_id":"u"}`), 0))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, err := s.Get(ctx, "account:c:u")
	require.NoError(t, err)
	require.JSONEq(t, `{"home_account_id":"u"}`, string(v))
}
