package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLDriverName maps a configured driver to its database/sql name.
func SQLDriverName(driver string) string {
	if driver == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

// InitSQL connects with sqlx, retrying while the database comes up.
func InitSQL(driver, dsn string) (*sqlx.DB, error) {
	var (
		conn *sqlx.DB
		err  error
	)
	for i := 0; i < 10; i++ {
		conn, err = sqlx.Connect(SQLDriverName(driver), dsn)
		if err == nil {
			if driver != "postgres" {
				// sqlite allows a single writer
				conn.SetMaxOpenConns(1)
			}
			return conn, nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("failed to connect with sqlx: %w", err)
}
