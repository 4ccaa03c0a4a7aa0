package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB is the storage handle passed explicitly to every repository.
type DB struct {
	*sql.DB
	driver  string
	flavor  sqlbuilder.Flavor
	timeout time.Duration
}

func Open(driver, dsn string) (*DB, error) {
	var flavor sqlbuilder.Flavor

	switch driver {
	case DriverSQLite:
		flavor = sqlbuilder.SQLite
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
		flavor = sqlbuilder.PostgreSQL
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite only supports one writer at a time
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}
	conn.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: conn, driver: driver, flavor: flavor, timeout: 30 * time.Second}, nil
}

func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.timeout)
}

func sqliteDSN(dsn string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if dsn == ":memory:" {
		pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragmas
	}
	return dsn + "?" + pragmas
}
