package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lintang-b-s/navigatorx-tunnel/pkg/tunnel"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one persisted tunnel transition.
type Entry struct {
	ID                 int64     `json:"id"`
	SessionID          string    `json:"session_id"`
	Kind               string    `json:"kind"`
	Source             string    `json:"source"`
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	Speed              float64   `json:"speed"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
	Qualified          bool      `json:"qualified"`
	FixTime            time.Time `json:"fix_time"`
	RecordedAt         time.Time `json:"recorded_at"`
}

// Journal stores tunnel transitions in a SQLite database. Writes are serialized, sqlite has a single writer.
type Journal struct {
	conn    *sql.DB
	writeMu sync.Mutex
	log     *zap.Logger
	clock   func() time.Time
}

// Open opens (creating it if needed) the journal database at path in WAL mode and ensures the schema.
func Open(ctx context.Context, path string, log *zap.Logger) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	j := &Journal{conn: conn, log: log, clock: time.Now}
	if err := j.ensureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info("tunnel transition journal opened", zap.String("path", path))
	return j, nil
}

func (j *Journal) ensureSchema(ctx context.Context) error {
	j.writeMu.Lock()
	defer j.writeMu.Unlock()

	if _, err := j.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	return j.conn.Close()
}

// Record implements navigation.TransitionRecorder.
func (j *Journal) Record(ctx context.Context, sessionID string, t tunnel.Transition) error {
	if t.Fix == nil {
		return fmt.Errorf("record transition: missing fix")
	}
	source := ""
	if t.Source != nil {
		source = t.Source.Name()
	}

	j.writeMu.Lock()
	defer j.writeMu.Unlock()

	qualified := 0
	if t.Fix.IsQualified() {
		qualified = 1
	}
	_, err := j.conn.ExecContext(ctx, `
		INSERT INTO tunnel_transitions
			(session_id, kind, source, lat, lon, speed, horizontal_accuracy, qualified, fix_time, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, t.Kind.String(), source, t.Fix.Lat(), t.Fix.Lon(), t.Fix.Speed(),
		t.Fix.HorizontalAccuracy(), qualified,
		t.Fix.Time().UTC().Format(time.RFC3339Nano), j.clock().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// ListBySession returns the transitions of a session in the order they were recorded.
func (j *Journal) ListBySession(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := j.conn.QueryContext(ctx, `
		SELECT id, session_id, kind, source, lat, lon, speed, horizontal_accuracy, qualified, fix_time, recorded_at
		FROM tunnel_transitions
		WHERE session_id = ?
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e                   Entry
			qualified           int
			fixTime, recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Source, &e.Lat, &e.Lon, &e.Speed,
			&e.HorizontalAccuracy, &qualified, &fixTime, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		e.Qualified = qualified == 1
		if e.FixTime, err = time.Parse(time.RFC3339Nano, fixTime); err != nil {
			return nil, fmt.Errorf("parse fix_time: %w", err)
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of recorded transitions.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM tunnel_transitions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transitions: %w", err)
	}
	return n, nil
}
