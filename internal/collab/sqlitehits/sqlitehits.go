// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sqlitehits persists hit tables to a SQLite database. Grounded on
// the teacher's internal/repository/migration.go (golang-migrate with an
// embedded iofs source, sqlite3 driver) and test/db.go (sqlx.Open against
// mattn/go-sqlite3).
package sqlitehits

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/silab-bonn/m26interp/pkg/m26interp"
)

//go:embed migrations/*
var migrationFiles embed.FS

// Writer implements m26interp.HitWriter against a SQLite database.
type Writer struct {
	db *sqlx.DB
}

// NewWriter opens (creating if necessary) the SQLite database at path and
// migrates its schema to the latest version.
func NewWriter(path string) (*Writer, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("[SQLITEHITS]> open %s: %w", path, err)
	}
	if err := migrateSchema(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &Writer{db: db}, nil
}

func migrateSchema(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("[SQLITEHITS]> migration driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		return fmt.Errorf("[SQLITEHITS]> migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("[SQLITEHITS]> migration init: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("[SQLITEHITS]> migrate: %w", err)
	}
	return nil
}

const insertHit = `INSERT INTO hits
	(plane, event_number, trigger_number, trigger_timestamp, row_timestamp, frame_id, column, row, event_status)
	VALUES (:plane, :event_number, :trigger_number, :trigger_timestamp, :row_timestamp, :frame_id, :column, :row, :event_status)`

type hitRow struct {
	Plane            uint8  `db:"plane"`
	EventNumber      int64  `db:"event_number"`
	TriggerNumber    int64  `db:"trigger_number"`
	TriggerTimestamp int64  `db:"trigger_timestamp"`
	RowTimestamp     int64  `db:"row_timestamp"`
	FrameID          int64  `db:"frame_id"`
	Column           uint16 `db:"column"`
	Row              uint16 `db:"row"`
	EventStatus      uint32 `db:"event_status"`
}

// WriteHits appends hits to the hits table inside a single transaction.
func (w *Writer) WriteHits(ctx context.Context, hits []m26interp.HitRecord) error {
	if len(hits) == 0 {
		return nil
	}
	rows := make([]hitRow, len(hits))
	for i, h := range hits {
		rows[i] = hitRow{
			Plane:            h.Plane,
			EventNumber:      h.EventNumber,
			TriggerNumber:    h.TriggerNumber,
			TriggerTimestamp: h.TriggerTimestamp,
			RowTimestamp:     h.RowTimestamp,
			FrameID:          h.FrameID,
			Column:           h.Column,
			Row:              h.Row,
			EventStatus:      uint32(h.EventStatus),
		}
	}

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[SQLITEHITS]> begin tx: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertHit, rows); err != nil {
		tx.Rollback()
		return fmt.Errorf("[SQLITEHITS]> insert hits: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[SQLITEHITS]> commit: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (w *Writer) Close() error { return w.db.Close() }
