package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/artriverapp/artriver-server/internal/errors"
	"github.com/artriverapp/artriver-server/internal/search"
)

func setupSearchService(t *testing.T) (*testEnv, *SearchService) {
	t.Helper()

	env := setupEnv(t)
	svc := NewSearchService(env.index, slog.New(slog.DiscardHandler))
	return env, svc
}

func TestSearchService_ClampsLimit(t *testing.T) {
	env, svc := setupSearchService(t)
	seedImages(t, env.store, 3)
	_, err := env.indexing.IndexAll(context.Background(), 100)
	require.NoError(t, err)

	result, err := svc.Search(context.Background(), search.Params{Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result.Total)

	result, err = svc.Search(context.Background(), search.Params{Limit: -5, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), result.Total)
}

func TestSearchService_Suggest(t *testing.T) {
	env, svc := setupSearchService(t)
	seedImages(t, env.store, 3)
	_, err := env.indexing.IndexAll(context.Background(), 100)
	require.NoError(t, err)

	suggestions, err := svc.Suggest(context.Background(), "ima", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, suggestions)
}

func TestSearchService_Suggest_PrefixTooShort(t *testing.T) {
	_, svc := setupSearchService(t)

	_, err := svc.Suggest(context.Background(), "a", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = svc.Suggest(context.Background(), "  a  ", 10)
	require.Error(t, err)
}

func TestSearchService_Suggest_CapsLimit(t *testing.T) {
	env, svc := setupSearchService(t)
	seedImages(t, env.store, 30)
	_, err := env.indexing.IndexAll(context.Background(), 100)
	require.NoError(t, err)

	suggestions, err := svc.Suggest(context.Background(), "image", 500)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(suggestions), 20)
}

func TestSearchService_Artists(t *testing.T) {
	env, svc := setupSearchService(t)
	seedImages(t, env.store, 3)
	_, err := env.indexing.IndexAll(context.Background(), 100)
	require.NoError(t, err)

	artists, err := svc.Artists(context.Background())
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, "Ada", artists[0].Value)
	assert.Equal(t, 3, artists[0].Count)
}
