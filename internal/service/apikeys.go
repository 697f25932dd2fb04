package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/repository"
	"github.com/claudiator/server-go/internal/util"
)

var validScopes = []string{string(model.ScopeRead), string(model.ScopeWrite)}

type APIKeyService struct {
	keys repository.APIKeyRepository
	now  func() time.Time
}

func NewAPIKeyService(keys repository.APIKeyRepository) *APIKeyService {
	return &APIKeyService{keys: keys, now: time.Now}
}

// NormalizeCreateRequest trims the name and deduplicates scopes, rejecting
// anything outside read and write.
func NormalizeCreateRequest(req model.CreateAPIKeyRequest) (string, model.Scopes, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", nil, apperrors.MissingRequired("name")
	}
	if len(req.Scopes) == 0 {
		return "", nil, apperrors.BadRequest("at least one scope is required")
	}
	if req.RateLimit != nil && *req.RateLimit <= 0 {
		return "", nil, apperrors.BadRequest("rate_limit must be a positive integer")
	}

	scopes := model.Scopes{}
	for _, raw := range req.Scopes {
		if raw == "" || !util.IsValidEnum(raw, validScopes) {
			return "", nil, apperrors.BadRequest(fmt.Sprintf("invalid scope %q: allowed scopes are read, write", raw))
		}
		if !scopes.Has(model.Scope(raw)) {
			scopes = append(scopes, model.Scope(raw))
		}
	}
	return name, scopes, nil
}

// Create mints a key. The raw value is only ever returned here.
func (s *APIKeyService) Create(ctx context.Context, req model.CreateAPIKeyRequest) (*model.CreatedAPIKey, error) {
	name, scopes, err := NormalizeCreateRequest(req)
	if err != nil {
		return nil, err
	}

	raw := util.GenerateAPIKey()
	key := model.APIKey{
		ID:        uuid.NewString(),
		Name:      name,
		KeyHash:   util.HashToken(raw),
		KeyPrefix: util.KeyDisplayPrefix(raw),
		Scopes:    scopes,
		CreatedAt: util.FormatTimestamp(s.now()),
		RateLimit: req.RateLimit,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return nil, apperrors.Database(fmt.Errorf("create api key: %w", err))
	}

	return &model.CreatedAPIKey{
		ID:        key.ID,
		Name:      key.Name,
		Key:       raw,
		Scopes:    key.Scopes,
		CreatedAt: key.CreatedAt,
		RateLimit: key.RateLimit,
	}, nil
}

func (s *APIKeyService) List(ctx context.Context) ([]model.APIKey, error) {
	keys, err := s.keys.List(ctx)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list api keys: %w", err))
	}
	return keys, nil
}

// Delete removes a key; unknown ids are not an error.
func (s *APIKeyService) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.keys.Delete(ctx, id)
	if err != nil {
		return false, apperrors.Database(fmt.Errorf("delete api key: %w", err))
	}
	return n > 0, nil
}

// Lookup resolves a raw bearer value to a stored key, or nil.
func (s *APIKeyService) Lookup(ctx context.Context, raw string) (*model.APIKey, error) {
	return s.keys.FindByHash(ctx, util.HashToken(raw))
}

func (s *APIKeyService) TouchLastUsed(ctx context.Context, id string) error {
	return s.keys.TouchLastUsed(ctx, id, util.FormatTimestamp(s.now()))
}
