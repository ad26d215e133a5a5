package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// pingTimeout bounds the startup connectivity check.
const pingTimeout = 5 * time.Second

// NewPostgresConnection opens the poll state database through a lib/pq connector.
// The poll loop writes at most twice per cycle, so the pool is kept at two connections.
func NewPostgresConnection(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	connector, err := pq.NewConnector(dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(15 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("poll state database unreachable: %w", err)
	}
	return db, nil
}
