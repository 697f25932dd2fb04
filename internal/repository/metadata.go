package repository

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// Metadata keys for the persisted change counters.
const (
	MetaDataVersion         = "data_version"
	MetaNotificationVersion = "notification_version"
)

type MetadataRepository interface {
	// GetCounter returns the stored counter, or 0 when the key is absent or not a number.
	GetCounter(ctx context.Context, key string) (uint64, error)
	// RaiseCounter stores value only if it is greater than the stored one.
	RaiseCounter(ctx context.Context, key string, value uint64) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) MetadataRepository
}

type metadataRepo struct {
	db sqlxDB
}

func NewMetadataRepository(db *sqlx.DB) MetadataRepository {
	return &metadataRepo{db: db}
}

func (r *metadataRepo) WithTx(tx *sqlx.Tx) MetadataRepository {
	return &metadataRepo{db: tx}
}

func (r *metadataRepo) GetCounter(ctx context.Context, key string) (uint64, error) {
	var value string
	err := r.db.GetContext(ctx, &value, r.db.Rebind(`
		SELECT value FROM metadata WHERE key = ?
	`), key)
	found, err := HandleNotFound(&value, err)
	if err != nil || found == nil {
		return 0, err
	}
	n, convErr := strconv.ParseUint(*found, 10, 64)
	if convErr != nil {
		return 0, nil
	}
	return n, nil
}

func (r *metadataRepo) RaiseCounter(ctx context.Context, key string, value uint64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
		WHERE CAST(metadata.value AS BIGINT) < CAST(excluded.value AS BIGINT)
	`), key, strconv.FormatUint(value, 10))
	return err
}
