package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should be empty")

	require.NoError(t, s.Save(ctx, "alice@uni.edu"))
	token, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice@uni.edu", token)

	require.NoError(t, s.Save(ctx, "bob@uni.edu"))
	token, _, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob@uni.edu", token)

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing twice is fine.
	require.NoError(t, s.Clear(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreFailure(t *testing.T) {
	s := NewMemoryStore()
	s.Err = ErrUnavailable
	_, _, err := s.Load(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	s, err := OpenBolt(path, "")
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	s, err := OpenBolt(path, DefaultKey)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "alice@uni.edu"))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path, DefaultKey)
	require.NoError(t, err)
	defer s.Close()

	token, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice@uni.edu", token)
}
