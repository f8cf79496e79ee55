package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DOPAMIND_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOPAMIND_TEST_POSTGRES_DSN not set")
	}
	cfg := DefaultConfig()
	cfg.DSN = dsn

	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := testStore(t)
	key := "test-" + uuid.NewString()
	t.Cleanup(func() { s.Delete(key) })

	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Set(key, "one"))
	require.NoError(t, s.Set(key, "two"))
	got, err = s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "two", got)

	require.NoError(t, s.Delete(key))
	got, _ = s.Get(key)
	assert.Empty(t, got)
}

func TestStore_Closed(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Close())

	_, err := s.Get("x")
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.ErrorIs(t, s.Set("x", "y"), ErrConnectionClosed)
	assert.NoError(t, s.Close())
}

func TestOpen_BadDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DSN = "postgres://%zz"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}
