package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/claudiator/server-go/internal/model"
)

type APIKeyRepository interface {
	Create(ctx context.Context, key model.APIKey) error
	FindByHash(ctx context.Context, keyHash string) (*model.APIKey, error)
	List(ctx context.Context) ([]model.APIKey, error)
	// Delete reports how many rows were removed; zero is not an error.
	Delete(ctx context.Context, id string) (int64, error)
	TouchLastUsed(ctx context.Context, id, now string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) APIKeyRepository
}

type apiKeyRepo struct {
	db sqlxDB
}

func NewAPIKeyRepository(db *sqlx.DB) APIKeyRepository {
	return &apiKeyRepo{db: db}
}

func (r *apiKeyRepo) WithTx(tx *sqlx.Tx) APIKeyRepository {
	return &apiKeyRepo{db: tx}
}

const apiKeyColumns = `id, name, key_hash, key_prefix, scopes, created_at, last_used, rate_limit`

func (r *apiKeyRepo) Create(ctx context.Context, key model.APIKey) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO api_keys (`+apiKeyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.LastUsed, key.RateLimit)
	return err
}

func (r *apiKeyRepo) FindByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.GetContext(ctx, &key, r.db.Rebind(`
		SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ?
	`), keyHash)
	return HandleNotFound(&key, err)
}

func (r *apiKeyRepo) List(ctx context.Context) ([]model.APIKey, error) {
	keys := []model.APIKey{}
	err := r.db.SelectContext(ctx, &keys, `
		SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *apiKeyRepo) Delete(ctx context.Context, id string) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM api_keys WHERE id = ?
	`), id))
}

func (r *apiKeyRepo) TouchLastUsed(ctx context.Context, id, now string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE api_keys SET last_used = ? WHERE id = ?
	`), now, id)
	return err
}
