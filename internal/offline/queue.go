// Package offline queues entity mutations made while the server is
// unreachable and replays them once it is back.
package offline

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Entities are the collections mutations may target.
var Entities = []string{"chores", "groceries", "expenses", "reminders"}

var ErrInvalidMutation = errors.New("invalid mutation")

// Mutation is one queued write. BaseUpdatedAt is the updated_at of the row
// the update or delete was made against.
type Mutation struct {
	ID            int64           `json:"id"`
	Entity        string          `json:"entity"`
	Op            Op              `json:"op"`
	RowID         string          `json:"row_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	BaseUpdatedAt *time.Time      `json:"base_updated_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Queue is a durable FIFO of mutations in a local SQLite file.
type Queue struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the queue at path and migrates it. ":memory:" gives
// a private queue that lives as long as the Queue.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Queue, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Queue{db: db, logger: logger.With("component", "offline")}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("queue migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("queue migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate queue: %w", err)
	}
	return nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue validates and appends m, returning its queue id.
func (q *Queue) Enqueue(ctx context.Context, m Mutation) (int64, error) {
	if err := m.validate(); err != nil {
		return 0, err
	}
	var base sql.NullTime
	if m.BaseUpdatedAt != nil {
		base = sql.NullTime{Time: *m.BaseUpdatedAt, Valid: true}
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO mutations (entity, op, row_id, payload, base_updated_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.Entity, m.Op, m.RowID, []byte(m.Payload), base, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue mutation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue mutation: %w", err)
	}
	q.logger.Debug("mutation queued", "id", id, "entity", m.Entity, "op", m.Op, "row_id", m.RowID)
	return id, nil
}

// EnqueueInsert queues an add of in, e.g. a model.NewChore.
func (q *Queue) EnqueueInsert(ctx context.Context, entity string, in any) (int64, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode mutation: %w", err)
	}
	return q.Enqueue(ctx, Mutation{Entity: entity, Op: OpInsert, Payload: payload})
}

// EnqueueUpdate queues a partial update of a row last seen at base.
func (q *Queue) EnqueueUpdate(ctx context.Context, entity, id string, base time.Time, patch any) (int64, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return 0, fmt.Errorf("encode mutation: %w", err)
	}
	return q.Enqueue(ctx, Mutation{Entity: entity, Op: OpUpdate, RowID: id, Payload: payload, BaseUpdatedAt: &base})
}

// EnqueueDelete queues the deletion of a row last seen at base.
func (q *Queue) EnqueueDelete(ctx context.Context, entity, id string, base time.Time) (int64, error) {
	return q.Enqueue(ctx, Mutation{Entity: entity, Op: OpDelete, RowID: id, BaseUpdatedAt: &base})
}

// Pending returns the queued mutations in the order they were made.
func (q *Queue) Pending(ctx context.Context) ([]Mutation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, entity, op, row_id, payload, base_updated_at, created_at
		 FROM mutations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	defer rows.Close()

	var out []Mutation
	for rows.Next() {
		var (
			m       Mutation
			payload []byte
			base    sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.Entity, &m.Op, &m.RowID, &payload, &base, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		if len(payload) > 0 {
			m.Payload = payload
		}
		if base.Valid {
			m.BaseUpdatedAt = &base.Time
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count mutations: %w", err)
	}
	return n, nil
}

func (q *Queue) remove(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM mutations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove mutation: %w", err)
	}
	return nil
}

func (m Mutation) validate() error {
	if !slices.Contains(Entities, m.Entity) {
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidMutation, m.Entity)
	}
	switch m.Op {
	case OpInsert:
		if len(m.Payload) == 0 {
			return fmt.Errorf("%w: insert needs a payload", ErrInvalidMutation)
		}
	case OpUpdate, OpDelete:
		if m.RowID == "" || m.BaseUpdatedAt == nil {
			return fmt.Errorf("%w: %s needs a row id and base updated_at", ErrInvalidMutation, m.Op)
		}
		if m.Op == OpUpdate && len(m.Payload) == 0 {
			return fmt.Errorf("%w: update needs a payload", ErrInvalidMutation)
		}
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidMutation, m.Op)
	}
	if len(m.Payload) > 0 && !json.Valid(m.Payload) {
		return fmt.Errorf("%w: payload is not JSON", ErrInvalidMutation)
	}
	return nil
}
