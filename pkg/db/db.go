package db

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// NewPostgresDB builds the connection pool for the analytics store. No
// connection is opened until the first lease.
func NewPostgresDB(opts *Options) (*sqlx.DB, error) {
	db, err := OpenDSN(opts.DSN())
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"host":     opts.Host,
		"port":     opts.Port,
		"database": opts.Database,
		"sslmode":  opts.SSLMode,
	}).Info("Postgres pool configured")

	return db, nil
}

// OpenDSN applies the pool policy to an already assembled connection string.
func OpenDSN(dsn string) (*sqlx.DB, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to build postgres connector: %w", err)
	}

	db := sql.OpenDB(newLimitedConnector(connector, MaxConnUses))
	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(MaxOpenConns)
	db.SetConnMaxIdleTime(MaxIdleTime)

	return sqlx.NewDb(db, "postgres"), nil
}
