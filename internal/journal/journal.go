// Package journal keeps a write-ahead record of store batches in SQLite.
//
// A batch is opened before any file is written and every change it makes
// is recorded with its old and new line. The batch is committed once all
// files are on disk. A batch still open on the next start was interrupted
// and the roadmap and its replicas may disagree until a sync reconciles
// them.
package journal

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/roadmap/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// FileName is the database file inside the data directory.
const FileName = "journal.db"

// Batch states.
const (
	StateOpen       = "open"
	StateCommitted  = "committed"
	StateReconciled = "reconciled"
)

// Entry kinds.
const (
	KindUpdate = "update"
	KindDelete = "delete"
	KindInsert = "insert"
	KindSync   = "sync"
)

// ErrBatchNotFound is returned for an unknown batch id.
var ErrBatchNotFound = errors.New("batch not found")

// Batch is one journaled store operation.
type Batch struct {
	ID         string     `json:"id"`
	Op         string     `json:"op"`
	State      string     `json:"state"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Entries    int        `json:"entries"`
}

// Entry is one line change made by a batch.
type Entry struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batchId"`
	TaskID    types.ID  `json:"taskId"`
	Kind      string    `json:"kind"`
	File      string    `json:"file"`
	OldLine   string    `json:"oldLine"`
	NewLine   string    `json:"newLine"`
	CreatedAt time.Time `json:"createdAt"`
}

// Journal is an open journal database.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the journal in dataDir.
func Open(dataDir string) (*Journal, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(dataDir, FileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring journal: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}
	return &Journal{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Begin opens a batch for op and returns its id.
func (j *Journal) Begin(op string) (string, error) {
	id := generateUUID()
	_, err := j.db.Exec(
		`INSERT INTO batches (batch_id, op, state, started_at) VALUES (?, ?, ?, ?)`,
		id, op, StateOpen, formatTime(j.now()),
	)
	if err != nil {
		return "", fmt.Errorf("beginning batch: %w", err)
	}
	return id, nil
}

// Record adds a change to an open batch.
func (j *Journal) Record(batchID string, e Entry) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	_, err := j.db.Exec(
		`INSERT INTO entries (entry_id, batch_id, task_id, kind, file, old_line, new_line, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, batchID, string(e.TaskID), e.Kind, e.File, e.OldLine, e.NewLine, formatTime(j.now()),
	)
	if err != nil {
		return fmt.Errorf("recording journal entry: %w", err)
	}
	return nil
}

// Commit marks a batch as fully written.
func (j *Journal) Commit(batchID string) error {
	return j.setState(batchID, StateCommitted)
}

// Discard drops a batch that wrote nothing.
func (j *Journal) Discard(batchID string) error {
	res, err := j.db.Exec(`DELETE FROM batches WHERE batch_id = ?`, batchID)
	if err != nil {
		return fmt.Errorf("discarding batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// Reconcile marks every interrupted batch as repaired and returns how many
// were marked.
func (j *Journal) Reconcile() (int, error) {
	res, err := j.db.Exec(
		`UPDATE batches SET state = ?, finished_at = ? WHERE state = ?`,
		StateReconciled, formatTime(j.now()), StateOpen,
	)
	if err != nil {
		return 0, fmt.Errorf("reconciling batches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reconciling batches: %w", err)
	}
	return int(n), nil
}

func (j *Journal) setState(batchID, state string) error {
	res, err := j.db.Exec(
		`UPDATE batches SET state = ?, finished_at = ? WHERE batch_id = ?`,
		state, formatTime(j.now()), batchID,
	)
	if err != nil {
		return fmt.Errorf("updating batch %s: %w", batchID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// Interrupted returns the batches that were opened but never committed,
// oldest first.
func (j *Journal) Interrupted() ([]Batch, error) {
	return j.batches(`WHERE b.state = ?`, StateOpen)
}

// Batches returns the most recent batches, newest first.
func (j *Journal) Batches(limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	all, err := j.batches(``)
	if err != nil {
		return nil, err
	}
	for l, r := 0, len(all)-1; l < r; l, r = l+1, r-1 {
		all[l], all[r] = all[r], all[l]
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (j *Journal) batches(where string, args ...any) ([]Batch, error) {
	rows, err := j.db.Query(
		`SELECT b.batch_id, b.op, b.state, b.started_at, b.finished_at, COUNT(e.entry_id)
         FROM batches b LEFT JOIN entries e ON e.batch_id = b.batch_id `+where+`
         GROUP BY b.batch_id ORDER BY b.started_at, b.batch_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var (
			b        Batch
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Op, &b.State, &started, &finished, &b.Entries); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		b.StartedAt = parseTime(started)
		if finished.Valid {
			t := parseTime(finished.String)
			b.FinishedAt = &t
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Entries returns the changes recorded by a batch in order.
func (j *Journal) Entries(batchID string) ([]Entry, error) {
	return j.entries(`WHERE batch_id = ? ORDER BY seq`, batchID)
}

// History returns the recorded changes of one record, newest first.
func (j *Journal) History(id types.ID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return j.entries(`WHERE task_id = ? ORDER BY seq DESC LIMIT ?`, string(id), limit)
}

func (j *Journal) entries(clause string, args ...any) ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT entry_id, batch_id, task_id, kind, file, old_line, new_line, created_at
         FROM entries `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			taskID  string
			created string
		)
		if err := rows.Scan(&e.ID, &e.BatchID, &taskID, &e.Kind, &e.File, &e.OldLine, &e.NewLine, &created); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.TaskID = types.ID(taskID)
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// generateUUID returns a time-ordered UUID v7, falling back to v4.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
