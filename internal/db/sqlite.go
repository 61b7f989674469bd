// Package db opens the SQLite metastore that holds async query records and
// applies its schema migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// Mode selects how a pool is tuned.
type Mode string

// Pool modes.
const (
	// ModeWrite is a single-connection pool whose transactions take the write
	// lock up front (BEGIN IMMEDIATE), so lifecycle transactions serialize.
	ModeWrite Mode = "write"
	// ModeRead is a multi-connection pool for read-only transactions.
	ModeRead Mode = "read"
)

// SQLite DSN parameters.
const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
	defaultReadConns   = 4
)

// Pools is a write/read pool pair over one SQLite file.
type Pools struct {
	Write *sql.DB
	Read  *sql.DB
}

// Close closes both pools.
func (p *Pools) Close() error {
	rerr := p.Read.Close()
	if werr := p.Write.Close(); werr != nil {
		return werr
	}
	return rerr
}

// Open opens a *sql.DB pool for the SQLite file at path.
//
// Both modes use WAL journaling, busy_timeout=5000ms, synchronous=NORMAL and
// foreign_keys=on; the latter is what makes deleting an async query cascade
// to its result.
func Open(path string, mode Mode, maxOpen int) (*sql.DB, error) {
	if mode != ModeRead && mode != ModeWrite {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be %q or %q", mode, ModeRead, ModeWrite)
	}

	db, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	if mode == ModeWrite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = defaultReadConns
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}
	return db, nil
}

// OpenPair opens the write pool and a read pool of readMaxOpen connections
// (0 means the default of 4) for the same file.
func OpenPair(path string, readMaxOpen int) (*Pools, error) {
	writeDB, err := Open(path, ModeWrite, 0)
	if err != nil {
		return nil, err
	}
	readDB, err := Open(path, ModeRead, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, err
	}
	return &Pools{Write: writeDB, Read: readDB}, nil
}

func buildDSN(path string, mode Mode) string {
	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", defaultSynchronous)
	params.Set("_foreign_keys", "on")
	if mode == ModeWrite {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
