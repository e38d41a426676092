// Package sqlite implements the SQLite storage backend for shoerack.
//
// JSONL files in the data directory are the source of truth. On Attach
// they are loaded into a fresh SQLite database that serves every query;
// writes go to SQLite first and are then persisted back to JSONL according
// to the configured sync strategy.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shoerack/pkg/types"
)

// dbFile is the SQLite cache rebuilt on every Attach.
const dbFile = "shoerack.db"

// Backend implements types.ShoeStore, types.ActivitySource and
// types.ActivityWriter using SQLite as the query engine and JSONL files as
// the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dataDir  string
	db       *sql.DB

	// Sync strategy state.
	syncStrategy  string
	batchSize     int
	batchInterval time.Duration
	pendingWrites []pendingWrite
	batchTimer    *time.Timer
	batchMu       sync.Mutex // protects pendingWrites and batchTimer
}

// pendingWrite is a deferred JSONL rewrite. Each persist reads the current
// table contents, so only the latest queued write per file matters.
type pendingWrite struct {
	file    string
	persist func() error
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, creates the SQLite schema, and
// loads the JSONL files.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendSQLite {
		return fmt.Errorf("%w: %s", types.ErrBackendUnknown, config.Backend)
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The database is a cache of the JSONL files and is rebuilt every time.
	dbPath := filepath.Join(dataDir, dbFile)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// A single connection serializes writers, which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return err
	}
	if err := initJSONLFiles(dataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.dataDir = dataDir
	b.syncStrategy = config.SQLiteConfig.GetSyncStrategy()
	b.batchSize = config.SQLiteConfig.GetBatchSize()
	b.batchInterval = config.SQLiteConfig.GetBatchInterval()
	b.pendingWrites = nil
	b.attached = true

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}
	return nil
}

// Detach flushes pending JSONL writes and closes the database. After
// Detach, all operations return ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()
	if err := b.flushPendingWrites(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// Close implements io.Closer by detaching.
func (b *Backend) Close() error {
	return b.Detach()
}

// persist writes file now or queues it, depending on the sync strategy.
// The caller must hold b.mu.
func (b *Backend) persist(file string, fn func() error) error {
	if b.syncStrategy == types.SyncImmediate || b.syncStrategy == "" {
		return fn()
	}
	b.queueWrite(file, fn)
	return nil
}

// queueWrite adds a write to the pending queue, replacing an earlier write
// of the same file. For the batch strategy the queue is flushed once it
// reaches the batch size.
func (b *Backend) queueWrite(file string, fn func() error) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	replaced := false
	for i := range b.pendingWrites {
		if b.pendingWrites[i].file == file {
			b.pendingWrites[i].persist = fn
			replaced = true
			break
		}
	}
	if !replaced {
		b.pendingWrites = append(b.pendingWrites, pendingWrite{file: file, persist: fn})
	}

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pendingWrites) >= b.batchSize {
		_ = b.flushPendingWritesBatchLocked()
	}
}

// flushPendingWrites flushes all pending writes to JSONL files.
// The caller must hold b.mu.
func (b *Backend) flushPendingWrites() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	return b.flushPendingWritesBatchLocked()
}

// flushPendingWritesBatchLocked executes all pending writes.
// The caller must hold b.batchMu.
func (b *Backend) flushPendingWritesBatchLocked() error {
	for len(b.pendingWrites) > 0 {
		pw := b.pendingWrites[0]
		if err := pw.persist(); err != nil {
			// Remaining writes stay queued; the next Attach reloads from
			// whatever reached disk.
			return fmt.Errorf("flush %s: %w", pw.file, err)
		}
		b.pendingWrites = b.pendingWrites[1:]
	}
	b.pendingWrites = nil
	return nil
}

// pendingCount returns the number of queued JSONL writes.
func (b *Backend) pendingCount() int {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	return len(b.pendingWrites)
}

// startBatchTimer starts the batch interval timer for periodic flushes.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}
		_ = b.flushPendingWrites()

		b.batchMu.Lock()
		if b.batchTimer != nil && b.attached {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}
