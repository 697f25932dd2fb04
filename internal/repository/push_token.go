package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/claudiator/server-go/internal/model"
)

type PushTokenRepository interface {
	// Upsert registers a token or refreshes platform, sandbox and updated_at.
	Upsert(ctx context.Context, platform, token string, sandbox bool, now string) error
	List(ctx context.Context) ([]model.PushToken, error)
	Delete(ctx context.Context, token string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) PushTokenRepository
}

type pushTokenRepo struct {
	db sqlxDB
}

func NewPushTokenRepository(db *sqlx.DB) PushTokenRepository {
	return &pushTokenRepo{db: db}
}

func (r *pushTokenRepo) WithTx(tx *sqlx.Tx) PushTokenRepository {
	return &pushTokenRepo{db: tx}
}

func (r *pushTokenRepo) Upsert(ctx context.Context, platform, token string, sandbox bool, now string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO push_tokens (platform, push_token, sandbox, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(push_token) DO UPDATE SET
			platform = excluded.platform,
			sandbox = excluded.sandbox,
			updated_at = excluded.updated_at
	`), platform, token, sandbox, now, now)
	return err
}

func (r *pushTokenRepo) List(ctx context.Context) ([]model.PushToken, error) {
	tokens := []model.PushToken{}
	err := r.db.SelectContext(ctx, &tokens, `
		SELECT id, platform, push_token, sandbox, created_at, updated_at
		FROM push_tokens
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *pushTokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM push_tokens WHERE push_token = ?
	`), token)
	return err
}
