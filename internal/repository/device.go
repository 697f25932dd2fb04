package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/util"
)

type DeviceRepository interface {
	Upsert(ctx context.Context, device model.DeviceInfo, now string) error
	FindByID(ctx context.Context, deviceID string) (*model.Device, error)
	List(ctx context.Context) ([]model.Device, error)
	// DeleteStale removes devices last seen before cutoff that no session or event references.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) DeviceRepository
}

type deviceRepo struct {
	db sqlxDB
}

func NewDeviceRepository(db *sqlx.DB) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) WithTx(tx *sqlx.Tx) DeviceRepository {
	return &deviceRepo{db: tx}
}

func (r *deviceRepo) Upsert(ctx context.Context, device model.DeviceInfo, now string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO devices (device_id, device_name, platform, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			device_name = excluded.device_name,
			last_seen = excluded.last_seen
	`), device.DeviceID, device.DeviceName, device.Platform, now, now)
	return err
}

func (r *deviceRepo) FindByID(ctx context.Context, deviceID string) (*model.Device, error) {
	var device model.Device
	err := r.db.GetContext(ctx, &device, r.db.Rebind(`
		SELECT device_id, device_name, platform, first_seen, last_seen, 0 AS active_sessions
		FROM devices WHERE device_id = ?
	`), deviceID)
	return HandleNotFound(&device, err)
}

func (r *deviceRepo) List(ctx context.Context) ([]model.Device, error) {
	devices := []model.Device{}
	err := r.db.SelectContext(ctx, &devices, `
		SELECT d.device_id, d.device_name, d.platform, d.first_seen, d.last_seen,
			(SELECT COUNT(*) FROM sessions s
			 WHERE s.device_id = d.device_id AND s.status <> 'ended') AS active_sessions
		FROM devices d
		ORDER BY d.last_seen DESC
	`)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *deviceRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM devices
		WHERE last_seen < ?
		  AND NOT EXISTS (SELECT 1 FROM sessions s WHERE s.device_id = devices.device_id)
		  AND NOT EXISTS (SELECT 1 FROM events e WHERE e.device_id = devices.device_id)
	`), util.FormatTimestamp(cutoff)))
}
