package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/pocketos/internal/domain"
	"github.com/ashureev/pocketos/internal/shared"
	_ "modernc.org/sqlite"
)

// ErrDeviceNotFound is returned by updates that target a missing device.
var ErrDeviceNotFound = errors.New("device not found")

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers so WAL never reports SQLITE_BUSY under load
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS devices (
		device_id TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_devices_last_seen ON devices(last_seen_at);

	CREATE TABLE IF NOT EXISTS snapshots (
		device_id TEXT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		version INTEGER NOT NULL,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (device_id, name)
	);

	CREATE TABLE IF NOT EXISTS settings (
		device_id TEXT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (device_id, key)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetDevice retrieves a device by id.
func (s *SQLiteStore) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	query := `
		SELECT device_id, label, last_seen_at, created_at, updated_at
		FROM devices WHERE device_id = ?`

	var d domain.Device
	var lastSeen, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, deviceID).Scan(
		&d.DeviceID, &d.Label, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan device row: %w", err)
	}

	d.LastSeenAt = time.Unix(lastSeen, 0)
	d.CreatedAt = time.Unix(createdAt, 0)
	d.UpdatedAt = time.Unix(updatedAt, 0)
	return &d, nil
}

// UpsertDevice creates or updates a device record.
func (s *SQLiteStore) UpsertDevice(ctx context.Context, d *domain.Device) error {
	query := `
	INSERT INTO devices (device_id, label, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(device_id) DO UPDATE SET
		label = excluded.label,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	return s.write(ctx, "upsert device", func() error {
		_, err := s.db.ExecContext(ctx, query,
			d.DeviceID, d.Label, d.LastSeenAt.Unix(),
			d.CreatedAt.Unix(), d.UpdatedAt.Unix(),
		)
		return err
	})
}

// UpdateLastSeen updates the last_seen_at timestamp for a device.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, deviceID string, lastSeen time.Time) error {
	query := `UPDATE devices SET last_seen_at = ?, updated_at = ? WHERE device_id = ?`

	var rows int64
	err := s.write(ctx, "update last_seen", func() error {
		result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), deviceID)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "device_id", deviceID)
		return ErrDeviceNotFound
	}
	return nil
}

// GetStaleDevices retrieves devices not seen within ttl.
func (s *SQLiteStore) GetStaleDevices(ctx context.Context, ttl time.Duration) ([]*domain.Device, error) {
	threshold := time.Now().Add(-ttl).Unix()
	query := `
		SELECT device_id, label, last_seen_at, created_at, updated_at
		FROM devices WHERE last_seen_at < ?`
	return s.queryDevices(ctx, "stale devices", query, threshold)
}

// ListDevices returns every device, most recently seen first.
func (s *SQLiteStore) ListDevices(ctx context.Context) ([]*domain.Device, error) {
	query := `
		SELECT device_id, label, last_seen_at, created_at, updated_at
		FROM devices ORDER BY last_seen_at DESC, device_id`
	return s.queryDevices(ctx, "devices", query)
}

func (s *SQLiteStore) queryDevices(ctx context.Context, what, query string, args ...any) ([]*domain.Device, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close device rows", "query", what, "error", closeErr)
		}
	}()

	var devices []*domain.Device
	for rows.Next() {
		var d domain.Device
		var lastSeen, createdAt, updatedAt int64
		if err := rows.Scan(&d.DeviceID, &d.Label, &lastSeen, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan device row: %w", err)
		}
		d.LastSeenAt = time.Unix(lastSeen, 0)
		d.CreatedAt = time.Unix(createdAt, 0)
		d.UpdatedAt = time.Unix(updatedAt, 0)
		devices = append(devices, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return devices, nil
}

// DeleteDevice removes a device. Snapshots and settings go with it.
func (s *SQLiteStore) DeleteDevice(ctx context.Context, deviceID string) error {
	return s.write(ctx, "delete device", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		for _, q := range []string{
			`DELETE FROM snapshots WHERE device_id = ?`,
			`DELETE FROM settings WHERE device_id = ?`,
			`DELETE FROM devices WHERE device_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, deviceID); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// GetSnapshot retrieves a named snapshot.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, deviceID, name string) (*domain.Snapshot, error) {
	query := `
		SELECT device_id, name, version, data, updated_at
		FROM snapshots WHERE device_id = ? AND name = ?`

	var snap domain.Snapshot
	var data string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, query, deviceID, name).Scan(
		&snap.DeviceID, &snap.Name, &snap.Version, &data, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot %s: %w", name, err)
	}
	snap.Data = []byte(data)
	snap.UpdatedAt = time.Unix(updatedAt, 0)
	return &snap, nil
}

// PutSnapshot creates or replaces a named snapshot.
func (s *SQLiteStore) PutSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	query := `
	INSERT INTO snapshots (device_id, name, version, data, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(device_id, name) DO UPDATE SET
		version = excluded.version,
		data = excluded.data,
		updated_at = excluded.updated_at`

	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return s.write(ctx, "put snapshot "+snap.Name, func() error {
		_, err := s.db.ExecContext(ctx, query,
			snap.DeviceID, snap.Name, snap.Version, string(snap.Data), updated.Unix(),
		)
		return err
	})
}

// ListSettings returns every setting stored for a device.
func (s *SQLiteStore) ListSettings(ctx context.Context, deviceID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE device_id = ?`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close settings rows", "error", closeErr)
		}
	}()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting row: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

// PutSetting stores one setting value.
func (s *SQLiteStore) PutSetting(ctx context.Context, deviceID, key, value string) error {
	query := `
	INSERT INTO settings (device_id, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(device_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	return s.write(ctx, "put setting "+key, func() error {
		_, err := s.db.ExecContext(ctx, query, deviceID, key, value, time.Now().Unix())
		return err
	})
}

// DeleteSetting removes one setting.
func (s *SQLiteStore) DeleteSetting(ctx context.Context, deviceID, key string) error {
	return s.write(ctx, "delete setting "+key, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE device_id = ? AND key = ?`, deviceID, key)
		return err
	})
}

// write runs fn under the writer lock, retrying with exponential backoff
// while SQLite reports a lock conflict.
func (s *SQLiteStore) write(ctx context.Context, op string, fn func() error) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms, 200ms
		slog.Debug("SQLite write conflict, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
