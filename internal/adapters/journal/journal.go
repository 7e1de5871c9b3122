// Package journal persists published events to a SQLite database so that
// clients can replay recent history after connecting.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/pathwatch/pathwatch/internal/domain"
	"github.com/pathwatch/pathwatch/internal/domain/events"
)

const schemaVersion = 1

// Entry is a journaled event row.
type Entry struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event"`
	Root      string          `json:"root,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"timestamp"`
}

// Journal is a SQLite-backed event journal.
type Journal struct {
	db     *sql.DB
	dbPath string

	mu     sync.Mutex
	closed bool

	// Prepared statements
	stmtInsert *sql.Stmt
	stmtRecent *sql.Stmt
	stmtPrune  *sql.Stmt
}

// Open opens (creating if needed) the journal database at dbPath.
// An empty dbPath places the journal under the user cache directory.
func Open(dbPath string) (*Journal, error) {
	if dbPath == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			cacheDir = os.TempDir()
		}
		dbPath = filepath.Join(cacheDir, "pathwatch", "journal.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Configure SQLite for concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("failed to set pragma")
		}
	}

	j := &Journal{
		db:     db,
		dbPath: dbPath,
	}

	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init journal schema: %w", err)
	}

	if err := j.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare journal statements: %w", err)
	}

	return j, nil
}

// initSchema creates or updates the journal schema.
func (j *Journal) initSchema() error {
	var currentVersion int
	err := j.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&currentVersion)
	if err != nil && err != sql.ErrNoRows {
		// Table might not exist yet
		currentVersion = 0
	}

	if currentVersion >= schemaVersion {
		return nil
	}

	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS journal_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			root TEXT NOT NULL DEFAULT '',
			payload TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_journal_created ON journal_events(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_journal_root ON journal_events(root) WHERE root != '';
	`

	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	_, err = j.db.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)", schemaVersion)
	return err
}

// prepareStatements prepares frequently used SQL statements.
func (j *Journal) prepareStatements() error {
	var err error

	j.stmtInsert, err = j.db.Prepare(`
		INSERT INTO journal_events (event_type, root, payload, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	j.stmtRecent, err = j.db.Prepare(`
		SELECT id, event_type, root, payload, created_at
		FROM journal_events
		ORDER BY id DESC
		LIMIT ?
	`)
	if err != nil {
		return err
	}

	j.stmtPrune, err = j.db.Prepare(`
		DELETE FROM journal_events WHERE created_at < ?
	`)
	return err
}

// Append journals a single event. Serialization failures are logged and
// swallowed so a bad payload never stalls the hub.
func (j *Journal) Append(event events.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}

	var payload []byte
	if be, ok := event.(*events.BaseEvent); ok && be.Payload != nil {
		data, err := json.Marshal(be.Payload)
		if err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("failed to serialize event payload")
			return
		}
		payload = data
	}

	_, err := j.stmtInsert.Exec(
		string(event.Type()),
		event.GetRoot(),
		string(payload),
		event.Timestamp().UnixMilli(),
	)
	if err != nil {
		log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("failed to journal event")
	}
}

// Recent returns up to limit journaled events, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, domain.ErrJournalClosed
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.stmtRecent.Query(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			payload   sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.Root, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		if payload.Valid && payload.String != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than maxAge and returns the number removed.
func (j *Journal) Prune(maxAge time.Duration) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, domain.ErrJournalClosed
	}

	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := j.stmtPrune.Exec(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return res.RowsAffected()
}

// Path returns the journal database path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Close closes the journal database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true

	for _, stmt := range []*sql.Stmt{j.stmtInsert, j.stmtRecent, j.stmtPrune} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return j.db.Close()
}
