package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"GoldSentinel/internal/logger"
)

// SQLiteJournal persists delivery keys to a SQLite database.
type SQLiteJournal struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteJournal opens (or creates) the SQLite database and runs migrations.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	j := &SQLiteJournal{db: db, now: time.Now}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(context.Background(), "sqlite journal opened", zap.String("path", dbPath))
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS deliveries (
			key       TEXT PRIMARY KEY,
			kind      TEXT NOT NULL,
			sent_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_sent ON deliveries(sent_at)`,
	}
	for _, s := range stmts {
		if _, err := j.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// WasSent reports whether key has been marked before.
func (j *SQLiteJournal) WasSent(ctx context.Context, key string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM deliveries WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query delivery %q: %w", key, err)
	}
	return n > 0, nil
}

// MarkSent records key. Marking the same key twice keeps the first entry.
func (j *SQLiteJournal) MarkSent(ctx context.Context, key, kind string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO deliveries (key, kind, sent_at) VALUES (?,?,?)`,
		key, kind, j.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record delivery %q: %w", key, err)
	}
	return nil
}

// Prune deletes entries older than cutoff and returns how many were removed.
func (j *SQLiteJournal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.ExecContext(ctx, `DELETE FROM deliveries WHERE sent_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return res.RowsAffected()
}

func (j *SQLiteJournal) Close() error {
	logger.Info(context.Background(), "closing sqlite journal")
	return j.db.Close()
}
