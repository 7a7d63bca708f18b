// Copyright (C) sentryd authors.
// All rights reserved. This file is part of sentryd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package persistence

import (
	"database/sql"
	"embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	sqlite3drv "github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"
)

//go:embed migrations/sqlite3/*
var sqliteMigrations embed.FS

const sqliteHooksDriver = "sqlite3WithHooks"

var sqliteHooksRegistered bool

// SQLiteStore is a Store backed by a single-table SQLite database, an
// alternative to FSStore for deployments that already run sentryd
// alongside infrastructure expecting one queryable database file instead
// of a directory of JSON documents.
type SQLiteStore struct {
	db     *sqlx.DB
	runner sq.BaseRunner
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path,
// registers sqlhooks query logging once per process, and applies pending
// migrations before returning.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if !sqliteHooksRegistered {
		sql.Register(sqliteHooksDriver, sqlhooks.Wrap(&sqlite3drv.SQLiteDriver{}, queryHooks{}))
		sqliteHooksRegistered = true
	}

	db, err := sqlx.Open(sqliteHooksDriver, fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("persistence: opening sqlite store %s: %w", path, err)
	}
	// SQLite does not multiplex writers; one connection avoids lock waits
	// under concurrent do_persist calls from multiple detectors.
	db.SetMaxOpenConns(1)

	if err := migrateSQLite(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:     db,
		runner: sq.NewStmtCache(db.DB),
	}, nil
}

func migrateSQLite(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("persistence: sqlite migration driver: %w", err)
	}
	src, err := iofs.New(sqliteMigrations, "migrations/sqlite3")
	if err != nil {
		return fmt.Errorf("persistence: sqlite migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("persistence: building migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("persistence: applying migrations: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadJSON(key string) ([]byte, bool, error) {
	var payload []byte
	err := sq.Select("payload").From("documents").Where(sq.Eq{"key": key}).
		RunWith(s.runner).QueryRow().Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persistence: loading %s: %w", key, err)
	}
	return payload, true, nil
}

func (s *SQLiteStore) StoreJSON(key string, doc []byte) error {
	_, err := sq.Insert("documents").
		Columns("key", "payload", "updated_at").
		Values(key, doc, sq.Expr("strftime('%s','now')")).
		Suffix("ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
		RunWith(s.runner).Exec()
	if err != nil {
		return fmt.Errorf("persistence: storing %s: %w", key, err)
	}
	return nil
}
