package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/util"
)

func intPtr(i int) *int {
	return &i
}

func TestNormalizeCreateRequest(t *testing.T) {
	t.Run("trims name and deduplicates scopes", func(t *testing.T) {
		name, scopes, err := NormalizeCreateRequest(model.CreateAPIKeyRequest{
			Name: "  phone  ", Scopes: []string{"read", "write", "read"},
		})
		require.NoError(t, err)
		assert.Equal(t, "phone", name)
		assert.Equal(t, model.Scopes{model.ScopeRead, model.ScopeWrite}, scopes)
	})

	tests := []struct {
		name string
		req  model.CreateAPIKeyRequest
	}{
		{"blank name", model.CreateAPIKeyRequest{Name: "   ", Scopes: []string{"read"}}},
		{"no scopes", model.CreateAPIKeyRequest{Name: "x"}},
		{"unknown scope", model.CreateAPIKeyRequest{Name: "x", Scopes: []string{"admin"}}},
		{"empty scope", model.CreateAPIKeyRequest{Name: "x", Scopes: []string{""}}},
		{"zero rate limit", model.CreateAPIKeyRequest{Name: "x", Scopes: []string{"read"}, RateLimit: intPtr(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NormalizeCreateRequest(tt.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.GetCode(err))
		})
	}
}

func TestAPIKeyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Create stores only the hash", func(t *testing.T) {
		repo := &mockAPIKeyRepo{}
		var stored model.APIKey
		repo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			stored = args.Get(1).(model.APIKey)
		}).Return(nil)

		svc := NewAPIKeyService(repo)
		created, err := svc.Create(ctx, model.CreateAPIKeyRequest{Name: "phone", Scopes: []string{"read"}, RateLimit: intPtr(3)})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(created.Key, util.APIKeyPrefix))
		assert.Equal(t, util.HashToken(created.Key), stored.KeyHash)
		assert.Equal(t, created.Key[:12], stored.KeyPrefix)
		assert.NotContains(t, stored.KeyHash, created.Key)
		assert.Equal(t, 3, *created.RateLimit)
		assert.Equal(t, created.ID, stored.ID)
	})

	t.Run("Create wraps storage errors", func(t *testing.T) {
		repo := &mockAPIKeyRepo{}
		repo.On("Create", ctx, mock.Anything).Return(errors.New("locked"))

		_, err := NewAPIKeyService(repo).Create(ctx, model.CreateAPIKeyRequest{Name: "x", Scopes: []string{"read"}})
		assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetCode(err))
	})

	t.Run("Delete of unknown id is not an error", func(t *testing.T) {
		repo := &mockAPIKeyRepo{}
		repo.On("Delete", ctx, "missing").Return(int64(0), nil)

		deleted, err := NewAPIKeyService(repo).Delete(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Lookup hashes the raw key", func(t *testing.T) {
		repo := &mockAPIKeyRepo{}
		key := &model.APIKey{ID: "k1"}
		repo.On("FindByHash", ctx, util.HashToken("claud_raw")).Return(key, nil)

		found, err := NewAPIKeyService(repo).Lookup(ctx, "claud_raw")
		require.NoError(t, err)
		assert.Equal(t, key, found)
	})
}
