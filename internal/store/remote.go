package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Remote wraps the connection to the remote Postgres system of record.
// Only the sync reconciler talks to it; classification never does.
type Remote struct {
	Client *sql.DB
}

// NewRemote creates a Postgres connection with sane pool defaults.
func NewRemote(connString string) (*Remote, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &Remote{Client: db}, db.PingContext(context.Background())
}

// Close closes the underlying connection.
func (r *Remote) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
