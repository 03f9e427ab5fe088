package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/iqrolife/iqrolife-api/pkg/errors"
)

func TestCacheRepositoryWithoutRedis(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	assert.False(t, repo.Enabled())
	var dest map[string]string
	assert.True(t, errors.Is(repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss))
	require.NoError(t, repo.Set(ctx, "k", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, repo.Delete(ctx, "k"))
	require.NoError(t, repo.DeleteByPattern(ctx, "k*"))

	v, err := repo.Incr(ctx, "menus:version")
	require.NoError(t, err)
	assert.Zero(t, v)
	v, err = repo.Counter(ctx, "menus:version")
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}

func TestResetTokenRepositoryWithoutRedis(t *testing.T) {
	repo := NewResetTokenRepository(nil)
	ctx := context.Background()

	assert.True(t, errors.Is(repo.Save(ctx, "hash", "u1", time.Minute), ErrResetUnavailable))
	_, err := repo.Consume(ctx, "hash")
	assert.True(t, errors.Is(err, ErrResetUnavailable))
}
