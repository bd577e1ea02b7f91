// Package db keeps a history of motion events in SQLite.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/nvr-ai/roi-motion/images"
	"github.com/nvr-ai/roi-motion/notify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DB is the motion event store.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// EventFilter narrows ListEvents. Zero fields match everything.
type EventFilter struct {
	ROIID int
	Since time.Time
	Limit int
}

// Open opens (or creates) the database at path and migrates it to the
// latest schema.
//
// @example
// events, err := db.Open("motion.db", logger)
// if err != nil { ... }
// defer events.Close()
func Open(path string, logger zerolog.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	// A single connection keeps in-memory databases and migrations on the
	// same handle.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, logger: logger.With().Str("component", "db").Logger()}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// RecordEvent stores one motion event. Recording the same event id twice is
// an error.
func (db *DB) RecordEvent(ctx context.Context, e notify.Event) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO motion_events (event_id, roi_id, x1, y1, x2, y2, area, event_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ROIID, e.Rect.X1, e.Rect.Y1, e.Rect.X2, e.Rect.Y2, e.Area, e.Timestamp.UnixNano(),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record event %s", e.ID)
	}
	return nil
}

// Notify implements notify.Notifier so the store can sit in a notifier chain.
func (db *DB) Notify(ctx context.Context, e notify.Event) error {
	return db.RecordEvent(ctx, e)
}

// ListEvents returns the events matching f, newest first.
func (db *DB) ListEvents(ctx context.Context, f EventFilter) ([]notify.Event, error) {
	query := `SELECT event_id, roi_id, x1, y1, x2, y2, area, event_time FROM motion_events WHERE 1=1`
	var args []any
	if f.ROIID > 0 {
		query += ` AND roi_id = ?`
		args = append(args, f.ROIID)
	}
	if !f.Since.IsZero() {
		query += ` AND event_time >= ?`
		args = append(args, f.Since.UnixNano())
	}
	query += ` ORDER BY event_time DESC, event_id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	defer rows.Close()

	var events []notify.Event
	for rows.Next() {
		var (
			e              notify.Event
			x1, y1, x2, y2 int
			nanos          int64
		)
		if err := rows.Scan(&e.ID, &e.ROIID, &x1, &y1, &x2, &y2, &e.Area, &nanos); err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		e.Rect = images.NewRect(x1, y1, x2, y2)
		e.Timestamp = time.Unix(0, nanos)
		events = append(events, e)
	}
	return events, errors.Wrap(rows.Err(), "failed to iterate events")
}

// CountEvents returns the number of stored events, for one ROI when roiID
// is positive or for all of them otherwise.
func (db *DB) CountEvents(ctx context.Context, roiID int) (int, error) {
	query := `SELECT COUNT(*) FROM motion_events`
	var args []any
	if roiID > 0 {
		query += ` WHERE roi_id = ?`
		args = append(args, roiID)
	}

	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count events")
	}
	return n, nil
}
