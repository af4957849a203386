package dbclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver
)

// sqlClient is shared by the relational backends; they differ in driver,
// DSN dialect and reset statements.
type sqlClient struct {
	driver string
	dsn    func(string) (string, error)
	reset  func(ctx context.Context, db *sqlx.DB, database string) error

	mu sync.Mutex
	db *sqlx.DB
}

func newPostgresClient() *sqlClient {
	return &sqlClient{
		driver: "postgres",
		dsn:    func(s string) (string, error) { return s, nil },
		reset:  resetPostgres,
	}
}

func newMySQLClient() *sqlClient {
	return &sqlClient{
		driver: "mysql",
		dsn:    mysqlDSN,
		reset:  resetMySQL,
	}
}

func (c *sqlClient) Connect(ctx context.Context, dsn string) error {
	driverDSN, err := c.dsn(dsn)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.closeLocked()

	db, err := sqlx.ConnectContext(ctx, c.driver, driverDSN)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.driver, err)
	}
	c.db = db
	return nil
}

func (c *sqlClient) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *sqlClient) closeLocked() error {
	if c.db == nil {
		return nil
	}
	db := c.db
	c.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("close %s: %w", c.driver, err)
	}
	return nil
}

func (c *sqlClient) Reset(ctx context.Context, database string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return ErrNotConnected
	}
	if err := c.reset(ctx, c.db, database); err != nil {
		return fmt.Errorf("reset %s database %s: %w", c.driver, database, err)
	}
	return nil
}

// resetPostgres recreates the public schema of the connected database.
func resetPostgres(ctx context.Context, db *sqlx.DB, _ string) (retErr error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		"DROP SCHEMA IF EXISTS public CASCADE",
		"CREATE SCHEMA public",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return tx.Commit()
}

// resetMySQL drops and recreates database. USE only affects one session, so
// all statements run on a single pinned connection.
func resetMySQL(ctx context.Context, db *sqlx.DB, database string) error {
	conn, err := db.Connx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ident := quoteMySQLIdent(database)
	for _, stmt := range []string{
		"DROP DATABASE IF EXISTS " + ident,
		"CREATE DATABASE " + ident,
		"USE " + ident,
	} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func quoteMySQLIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// mysqlDSN converts a mysql:// URL into the driver's DSN format.
func mysqlDSN(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql url: %w", err)
	}
	if u.Scheme != "mysql" {
		return "", fmt.Errorf("parse mysql url: unexpected scheme %q", u.Scheme)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
