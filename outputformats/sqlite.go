package outputformats

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/credview/credview/types"
)

// SQLiteFormatter implements the EventFormatter interface for SQLite storage
type SQLiteFormatter struct {
	db         *sql.DB
	sessionUID string
	hostname   string
	mu         sync.Mutex
}

// NewSQLiteFormatter creates a new SQLite formatter
func NewSQLiteFormatter(dbPath string, hostname, sessionUID string) (*SQLiteFormatter, error) {
	// Create db directory if needed
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %v", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %v", err)
	}

	return &SQLiteFormatter{
		db:         db,
		sessionUID: sessionUID,
		hostname:   hostname,
	}, nil
}

// Initialize schema
func initSchema(db *sql.DB) error {
	schema := `
	-- Committed credential transition records
	CREATE TABLE IF NOT EXISTS cred_commits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_uid TEXT NOT NULL,
		hostname TEXT,
		timestamp DATETIME NOT NULL,
		worker INTEGER NOT NULL,
		tid TEXT NOT NULL,
		pid INTEGER NOT NULL,
		comm TEXT,
		reason TEXT NOT NULL,
		secure_exec_flags INTEGER NOT NULL,
		setuid BOOLEAN NOT NULL,
		setgid BOOLEAN NOT NULL,
		inode INTEGER NOT NULL,
		link_count INTEGER NOT NULL,
		device INTEGER,
		fs_type TEXT,
		deleted BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cred_commits_tid ON cred_commits(tid);
	CREATE INDEX IF NOT EXISTS idx_cred_commits_timestamp ON cred_commits(timestamp);
	CREATE INDEX IF NOT EXISTS idx_cred_commits_reason ON cred_commits(reason);
	`
	_, err := db.Exec(schema)
	return err
}

func (f *SQLiteFormatter) Initialize() error {
	return nil
}

func (f *SQLiteFormatter) Close() error {
	return f.db.Close()
}

func (f *SQLiteFormatter) FormatCredCommit(event *types.CredCommitEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	info := &event.Info
	_, err := f.db.Exec(`
		INSERT INTO cred_commits (
			session_uid, hostname, timestamp, worker, tid, pid, comm,
			reason, secure_exec_flags, setuid, setgid,
			inode, link_count, device, fs_type, deleted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.sessionUID,
		f.hostname,
		event.Timestamp,
		event.Worker,
		tidString(event.TID),
		event.PID,
		cleanField(event.Comm, ""),
		commitReason(info),
		info.SecureExec,
		info.SecureExec&types.ExecSetuid != 0,
		info.SecureExec&types.ExecSetgid != 0,
		info.Inode.Ino,
		info.Inode.Nlink,
		info.Mount.Dev,
		info.Mount.FsTypeString(),
		info.Inode.Nlink == 0 && info.Inode.Ino != 0,
	)
	return err
}
