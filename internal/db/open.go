package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config points either at a local sqlite file or at a remote libsql database.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// Open opens the configured database and makes sure the schema exists.
func (config Config) Open(ctx context.Context) (*sql.DB, error) {
	database, err := config.open()
	if err != nil {
		return nil, err
	}
	err = Migrate(ctx, database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}

func (config Config) open() (*sql.DB, error) {
	if config.Url == "" {
		if config.File == "" {
			return nil, fmt.Errorf("neither a database file nor url was specified")
		}
		if config.File != ":memory:" {
			err := os.MkdirAll(filepath.Dir(config.File), 0777)
			if err != nil {
				return nil, err
			}
		}
		database, err := sql.Open("sqlite", config.File)
		if err != nil {
			return nil, err
		}
		// every connection to ":memory:" is a different database and sqlite
		// serializes writers anyway
		database.SetMaxOpenConns(1)
		if config.File != ":memory:" {
			_, err = database.Exec("PRAGMA journal_mode=WAL")
			if err != nil {
				database.Close()
				return nil, err
			}
		}
		return database, nil
	}

	values := url.Values{}
	if config.AuthToken != "" {
		values.Add("authToken", config.AuthToken)
	}
	dsn := config.Url
	if len(values) > 0 {
		dsn += "?" + values.Encode()
	}
	return sql.Open("libsql", dsn)
}
