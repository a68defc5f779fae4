// Package recorder persists sessions and their recorded mock requests in a
// relational store and queries them back with structured errors.
package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/autopp/serverify/internal/httperr"
	"github.com/autopp/serverify/internal/model"
)

// Recorder handles database operations for sessions and request logs. It is
// cheap to share: all state lives in the connection pool it wraps.
type Recorder struct {
	db *sql.DB
}

// New creates a Recorder on top of an open database handle. The caller owns
// the handle's lifecycle.
func New(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS session (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS request_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES session(id) ON DELETE CASCADE,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	body TEXT NOT NULL,
	requested_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS request_header (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_log_id INTEGER NOT NULL REFERENCES request_log(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS request_query (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_log_id INTEGER NOT NULL REFERENCES request_log(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	value TEXT NOT NULL
);
`

// Init creates the schema idempotently and enables cascading deletes.
func (r *Recorder) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return httperr.Internal(fmt.Sprintf("enabling foreign keys: %v", err))
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return httperr.Internal(fmt.Sprintf("creating schema: %v", err))
	}
	return nil
}

// Ping reports whether the underlying database is reachable.
func (r *Recorder) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateSession inserts one session row.
func (r *Recorder) CreateSession(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO session (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return httperr.InvalidSession(fmt.Sprintf("session %q already exists", name))
		}
		return httperr.Internal(fmt.Sprintf("creating session: %v", err))
	}
	return nil
}

// DeleteSession deletes the session row and, by cascade, all of its request
// logs and their header and query rows.
func (r *Recorder) DeleteSession(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE name = ?`, name)
	if err != nil {
		return httperr.Internal(fmt.Sprintf("deleting session: %v", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return httperr.Internal(fmt.Sprintf("deleting session: %v", err))
	}
	if affected == 0 {
		return httperr.InvalidSession(fmt.Sprintf("session %q is not found", name))
	}
	return nil
}

// LogRequest appends one request log to the named session, atomically with
// its header and query rows.
func (r *Recorder) LogRequest(ctx context.Context, session string, log model.RequestLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return httperr.Internal(fmt.Sprintf("beginning transaction: %v", err))
	}
	defer tx.Rollback()

	// The subquery resolves the session name inline; an unknown name leaves
	// session_id NULL and trips the NOT NULL constraint.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO request_log (session_id, method, path, body, requested_at)
		VALUES ((SELECT id FROM session WHERE name = ?), ?, ?, ?, ?)`,
		session, log.Method.String(), log.Path, log.Body, log.RequestedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isNotNullViolation(err) {
			return httperr.InvalidSession(fmt.Sprintf("session %q is not found", session))
		}
		return httperr.Internal(fmt.Sprintf("inserting request log: %v", err))
	}

	logID, err := res.LastInsertId()
	if err != nil {
		return httperr.Internal(fmt.Sprintf("inserting request log: %v", err))
	}

	if err := insertPairs(ctx, tx, "request_header", logID, log.Headers); err != nil {
		return err
	}
	if err := insertPairs(ctx, tx, "request_query", logID, log.Query); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return httperr.Internal(fmt.Sprintf("committing request log: %v", err))
	}
	return nil
}

// insertPairs bulk-inserts the entries of an ordered map as child rows of a
// request log. A single multi-row INSERT keeps id order equal to insertion
// order.
func insertPairs(ctx context.Context, tx *sql.Tx, table string, logID int64, pairs *model.OrderedMap) error {
	if pairs.Len() == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (request_log_id, name, value) VALUES ", table)
	args := make([]interface{}, 0, pairs.Len()*3)
	pairs.Range(func(name, value string) {
		if len(args) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, logID, name, value)
	})

	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		return httperr.Internal(fmt.Sprintf("inserting into %s: %v", table, err))
	}
	return nil
}

// GetSessionHistory returns the named session's request logs in insertion
// order, each with its headers and query in insertion order.
func (r *Recorder) GetSessionHistory(ctx context.Context, session string) ([]model.RequestLog, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, httperr.Internal(fmt.Sprintf("beginning transaction: %v", err))
	}
	defer tx.Rollback()

	var sessionID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM session WHERE name = ?`, session).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return nil, httperr.InvalidSession(fmt.Sprintf("session %q is not found", session))
	}
	if err != nil {
		return nil, httperr.Internal(fmt.Sprintf("looking up session: %v", err))
	}

	logs, logIDs, err := fetchLogs(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	headers, err := fetchPairs(ctx, tx, "request_header", sessionID)
	if err != nil {
		return nil, err
	}
	queries, err := fetchPairs(ctx, tx, "request_query", sessionID)
	if err != nil {
		return nil, err
	}

	for i, id := range logIDs {
		if m, ok := headers[id]; ok {
			logs[i].Headers = m
		}
		if m, ok := queries[id]; ok {
			logs[i].Query = m
		}
	}

	return logs, nil
}

func fetchLogs(ctx context.Context, tx *sql.Tx, sessionID int64) ([]model.RequestLog, []int64, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, method, path, body, requested_at
		FROM request_log
		WHERE session_id = ?
		ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, nil, httperr.Internal(fmt.Sprintf("fetching request logs: %v", err))
	}
	defer rows.Close()

	var logs []model.RequestLog
	var ids []int64
	for rows.Next() {
		var (
			id                          int64
			method, path, body, reqTime string
		)
		if err := rows.Scan(&id, &method, &path, &body, &reqTime); err != nil {
			return nil, nil, httperr.Internal(fmt.Sprintf("scanning request log: %v", err))
		}

		parsedMethod, err := model.ParseMethod(method)
		if err != nil {
			return nil, nil, httperr.Internal(fmt.Sprintf("scanning request log: %v", err))
		}
		requestedAt, err := time.Parse(time.RFC3339, reqTime)
		if err != nil {
			return nil, nil, httperr.Internal(fmt.Sprintf("scanning request log: %v", err))
		}

		logs = append(logs, model.RequestLog{
			Method:      parsedMethod,
			Headers:     model.NewOrderedMap(),
			Path:        path,
			Query:       model.NewOrderedMap(),
			Body:        body,
			RequestedAt: requestedAt,
		})
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, httperr.Internal(fmt.Sprintf("fetching request logs: %v", err))
	}
	return logs, ids, nil
}

// fetchPairs loads one child table's rows for every log of the session,
// grouped by log id with each group's entries in id order.
func fetchPairs(ctx context.Context, tx *sql.Tx, table string, sessionID int64) (map[int64]*model.OrderedMap, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT request_log_id, name, value
		FROM %s
		WHERE request_log_id IN (SELECT id FROM request_log WHERE session_id = ?)
		ORDER BY id`, table),
		sessionID,
	)
	if err != nil {
		return nil, httperr.Internal(fmt.Sprintf("fetching from %s: %v", table, err))
	}
	defer rows.Close()

	grouped := make(map[int64]*model.OrderedMap)
	for rows.Next() {
		var (
			logID       int64
			name, value string
		)
		if err := rows.Scan(&logID, &name, &value); err != nil {
			return nil, httperr.Internal(fmt.Sprintf("scanning from %s: %v", table, err))
		}
		m, ok := grouped[logID]
		if !ok {
			m = model.NewOrderedMap()
			grouped[logID] = m
		}
		m.Set(name, value)
	}
	if err := rows.Err(); err != nil {
		return nil, httperr.Internal(fmt.Sprintf("fetching from %s: %v", table, err))
	}
	return grouped, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isNotNullViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NOT NULL constraint failed")
}
