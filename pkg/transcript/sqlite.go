package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go SQLite driver, registered as "sqlite"

	"mercator-hq/parley/pkg/providers"
)

// Supported database/sql driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteStore implements Store using SQLite for persistence, so
// transcripts survive restarts of a single-instance deployment.
//
// Each transcript is one row holding the messages as a JSON array.
// Writes are serialised by a mutex and run inside transactions.
type SQLiteStore struct {
	db        *sql.DB
	config    SQLiteConfig
	done      chan struct{}
	mu        sync.Mutex
	closeOnce sync.Once
	logger    *slog.Logger

	getStmt     *sql.Stmt
	upsertStmt  *sql.Stmt
	deleteStmt  *sql.Stmt
	cleanupStmt *sql.Stmt
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	Path string

	// Driver is "sqlite" (modernc.org/sqlite) or "sqlite3" (mattn/go-sqlite3).
	// Default: "sqlite"
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// WALMode enables write-ahead logging.
	WALMode bool

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration
}

// NewSQLiteStore opens (and if needed creates) a SQLite transcript store.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "open", Cause: err}
		}
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Cause: err}
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "transcript.sqlite"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, &StorageError{Backend: "sqlite", Op: "init_schema", Cause: err}
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, &StorageError{Backend: "sqlite", Op: "prepare", Cause: err}
	}

	if cfg.WALMode {
		go s.checkpointLoop()
	}

	s.logger.Info("SQLite transcript store initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
	)

	return s, nil
}

// buildDSN encodes the connection pragmas in the syntax of each driver so
// they apply to every pooled connection.
func buildDSN(cfg SQLiteConfig) (string, error) {
	busy := cfg.BusyTimeout.Milliseconds()
	switch cfg.Driver {
	case DriverModernc:
		dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)", cfg.Path, busy)
		if cfg.WALMode {
			dsn += "&_pragma=journal_mode(WAL)"
		}
		return dsn, nil
	case DriverMattn:
		dsn := fmt.Sprintf("%s?_busy_timeout=%d&_synchronous=NORMAL", cfg.Path, busy)
		if cfg.WALMode {
			dsn += "&_journal_mode=WAL"
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", cfg.Driver)
	}
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		session_id TEXT PRIMARY KEY,
		messages TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transcripts_updated_at ON transcripts(updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`SELECT messages FROM transcripts WHERE session_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO transcripts (session_id, messages, updated_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM transcripts WHERE session_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`DELETE FROM transcripts WHERE updated_at < ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

// Get returns the session's transcript.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) ([]providers.Message, error) {
	messages, err := s.load(ctx, s.getStmt, sessionID)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "get", Cause: err}
	}
	return messages, nil
}

// Append adds msg to the end of the transcript in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, msg providers.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		messages, err := s.load(ctx, tx.StmtContext(ctx, s.getStmt), sessionID)
		if err != nil {
			return err
		}
		return s.write(ctx, tx.StmtContext(ctx, s.upsertStmt), sessionID, append(messages, msg))
	})
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "append", Cause: err}
	}
	return nil
}

// Save replaces the transcript with the last maxLen messages.
func (s *SQLiteStore) Save(ctx context.Context, sessionID string, messages []providers.Message, maxLen int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(ctx, s.upsertStmt, sessionID, Trim(messages, maxLen)); err != nil {
		return &StorageError{Backend: "sqlite", Op: "save", Cause: err}
	}
	return nil
}

// Reset empties the transcript.
func (s *SQLiteStore) Reset(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, sessionID); err != nil {
		return &StorageError{Backend: "sqlite", Op: "reset", Cause: err}
	}
	return nil
}

// Cleanup removes transcripts not modified since olderThan.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.UnixMilli())
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "cleanup", Cause: err}
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "cleanup", Cause: err}
	}

	return int(deleted), nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &StorageError{Backend: "sqlite", Op: "ping", Cause: err}
	}
	return nil
}

func (s *SQLiteStore) load(ctx context.Context, stmt *sql.Stmt, sessionID string) ([]providers.Message, error) {
	var raw string
	err := stmt.QueryRowContext(ctx, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []providers.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	messages := []providers.Message{}
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return messages, nil
}

func (s *SQLiteStore) write(ctx context.Context, stmt *sql.Stmt, sessionID string, messages []providers.Message) error {
	if messages == nil {
		messages = []providers.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	now := time.Now().UnixMilli()
	if _, err := stmt.ExecContext(ctx, sessionID, string(raw), now, now); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{s.getStmt, s.upsertStmt, s.deleteStmt, s.cleanupStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.config.WALMode {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		}
		closeErr = s.db.Close()
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.config.CheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
				s.logger.Warn("WAL checkpoint failed", "error", err)
			}
		case <-s.done:
			return
		}
	}
}
