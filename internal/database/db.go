package database

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"todo-api/internal/config"
	"todo-api/pkg/logger"
)

const (
	postgresDriver = "postgres"
	sqliteDriver   = "sqlite"

	// busyTimeout bounds how long an embedded writer waits for the write lock.
	busyTimeout = 5 * time.Second
)

// Open connects to the backend selected by cfg and verifies it with a ping.
// The returned pool is bounded by cfg.DBPoolSize.
func Open(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	driver, dsn := driverDSN(cfg)
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(cfg.DBPoolSize)
	db.SetMaxIdleConns(max(cfg.DBPoolSize/2, 1))
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	logger.Info(ctx, "Database pool initialized", "backend", cfg.Backend(), "max_open", cfg.DBPoolSize)
	return db, nil
}

func driverDSN(cfg *config.Config) (string, string) {
	if cfg.Backend() == config.BackendPostgres {
		return postgresDriver, withConnectTimeout(cfg.DatabaseURL, cfg.QueryTimeout)
	}
	return sqliteDriver, sqliteDSN(cfg.SQLitePath)
}

// sqliteDSN enables write-ahead logging so readers never wait on a writer,
// and a busy timeout so concurrent writers queue instead of failing.
func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}

// withConnectTimeout adds a connect_timeout to a postgres DSN that lacks one.
// Both URL and key=value forms are accepted.
func withConnectTimeout(dsn string, timeout time.Duration) string {
	secs := strconv.Itoa(max(int(timeout/time.Second), 1))
	if strings.Contains(dsn, "connect_timeout") {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return dsn
		}
		q := u.Query()
		q.Set("connect_timeout", secs)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return strings.TrimSpace(dsn) + " connect_timeout=" + secs
}
