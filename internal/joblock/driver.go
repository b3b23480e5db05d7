package joblock

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// Driver is the backing try-lock primitive. The production driver uses
// postgres advisory locks; tests substitute an in-memory one.
type Driver interface {
	TryLock(ctx context.Context, key int64) (bool, error)
	Unlock(ctx context.Context, key int64) error
}

// pgDriver holds each acquired lock on a dedicated pooled connection.
// Advisory locks are session-scoped, so acquire and release for one key
// must happen on the same connection regardless of which code path calls
// Release.
type pgDriver struct {
	db *sql.DB

	mu    sync.Mutex
	conns map[int64]*sql.Conn
}

// NewPostgresDriver builds the advisory-lock driver over the shared gorm
// connection pool.
func NewPostgresDriver(conn *gorm.DB) (Driver, error) {
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("joblock: obtain sql.DB: %w", err)
	}
	return &pgDriver{
		db:    sqlDB,
		conns: make(map[int64]*sql.Conn),
	}, nil
}

func (d *pgDriver) TryLock(ctx context.Context, key int64) (bool, error) {
	d.mu.Lock()
	if _, held := d.conns[key]; held {
		d.mu.Unlock()
		// Same process already holds it; advisory locks are reentrant per
		// session but the job layer treats that as a double acquire.
		return false, nil
	}
	d.mu.Unlock()

	conn, err := d.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired); err != nil {
		_ = conn.Close()
		return false, err
	}
	if !acquired {
		_ = conn.Close()
		return false, nil
	}

	d.mu.Lock()
	d.conns[key] = conn
	d.mu.Unlock()
	return true, nil
}

func (d *pgDriver) Unlock(ctx context.Context, key int64) error {
	d.mu.Lock()
	conn, held := d.conns[key]
	delete(d.conns, key)
	d.mu.Unlock()

	if !held {
		return nil
	}

	var released bool
	err := conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, key).Scan(&released)
	closeErr := conn.Close()
	if err != nil {
		return err
	}
	if !released {
		return fmt.Errorf("joblock: advisory unlock reported no lock for key %d", key)
	}
	return closeErr
}
