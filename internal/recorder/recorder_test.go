package recorder

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/autopp/serverify/internal/httperr"
	"github.com/autopp/serverify/internal/model"
)

func newTestRecorder(t *testing.T) (*Recorder, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// An in-memory database vanishes when its last connection closes, so
	// the pool is pinned to a single connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	rec := New(db)
	if err := rec.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return rec, db
}

func TestInitIsIdempotent(t *testing.T) {
	rec, _ := newTestRecorder(t)
	if err := rec.Init(context.Background()); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
}

func TestCreateSessionDuplicate(t *testing.T) {
	rec, db := newTestRecorder(t)
	ctx := context.Background()

	if err := rec.CreateSession(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	err := rec.CreateSession(ctx, "a")
	if !httperr.IsInvalidSession(err) {
		t.Fatalf("err = %v, want InvalidSession", err)
	}
	if got, want := err.Error(), `session "a" already exists`; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM session WHERE name = 'a'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("session rows = %d, want 1", count)
	}
}

func TestDeleteSessionNotFound(t *testing.T) {
	rec, _ := newTestRecorder(t)

	err := rec.DeleteSession(context.Background(), "missing")
	if !httperr.IsInvalidSession(err) {
		t.Fatalf("err = %v, want InvalidSession", err)
	}
	if got, want := err.Error(), `session "missing" is not found`; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestLogRequestUnknownSession(t *testing.T) {
	rec, db := newTestRecorder(t)

	err := rec.LogRequest(context.Background(), "missing", model.RequestLog{
		Method:      model.MethodGet,
		Path:        "/hello",
		RequestedAt: time.Now(),
	})
	if !httperr.IsInvalidSession(err) {
		t.Fatalf("err = %v, want InvalidSession", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM request_log`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("request_log rows = %d, want 0 after failed insert", count)
	}
}

func TestGetSessionHistoryUnknownSession(t *testing.T) {
	rec, _ := newTestRecorder(t)

	_, err := rec.GetSessionHistory(context.Background(), "missing")
	if !httperr.IsInvalidSession(err) {
		t.Fatalf("err = %v, want InvalidSession", err)
	}
}

func sampleLog(path string, at time.Time) model.RequestLog {
	headers := model.NewOrderedMap()
	headers.Set("x-first", "1")
	headers.Set("accept", "application/json")
	headers.Set("authorization", "Bearer t")

	query := model.NewOrderedMap()
	query.Set("zeta", "1")
	query.Set("alpha", "2")

	return model.RequestLog{
		Method:      model.MethodPost,
		Headers:     headers,
		Path:        path,
		Query:       query,
		Body:        `{"hello":"world"}`,
		RequestedAt: at,
	}
}

func TestLogRequestAndHistoryOrdering(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()

	if err := rec.CreateSession(ctx, "x"); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 8, 2, 12, 0, 0, 0, time.Local)
	paths := []string{"/first", "/second", "/third"}
	for i, p := range paths {
		if err := rec.LogRequest(ctx, "x", sampleLog(p, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	history, err := rec.GetSessionHistory(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}

	for i, log := range history {
		if log.Path != paths[i] {
			t.Errorf("history[%d].Path = %q, want %q", i, log.Path, paths[i])
		}
		if !log.RequestedAt.Equal(base.Add(time.Duration(i) * time.Second)) {
			t.Errorf("history[%d].RequestedAt = %v, want %v", i, log.RequestedAt, base.Add(time.Duration(i)*time.Second))
		}
		if log.Method != model.MethodPost {
			t.Errorf("history[%d].Method = %q, want post", i, log.Method)
		}
		if log.Body != `{"hello":"world"}` {
			t.Errorf("history[%d].Body = %q", i, log.Body)
		}

		wantHeaders := []string{"x-first", "accept", "authorization"}
		gotHeaders := log.Headers.Keys()
		if len(gotHeaders) != len(wantHeaders) {
			t.Fatalf("history[%d] header keys = %v, want %v", i, gotHeaders, wantHeaders)
		}
		for j, k := range wantHeaders {
			if gotHeaders[j] != k {
				t.Errorf("history[%d] header[%d] = %q, want %q", i, j, gotHeaders[j], k)
			}
		}

		wantQuery := []string{"zeta", "alpha"}
		gotQuery := log.Query.Keys()
		if len(gotQuery) != len(wantQuery) {
			t.Fatalf("history[%d] query keys = %v, want %v", i, gotQuery, wantQuery)
		}
		for j, k := range wantQuery {
			if gotQuery[j] != k {
				t.Errorf("history[%d] query[%d] = %q, want %q", i, j, gotQuery[j], k)
			}
		}
	}
}

func TestLogRequestEmptyMaps(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()

	if err := rec.CreateSession(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	err := rec.LogRequest(ctx, "s", model.RequestLog{
		Method:      model.MethodGet,
		Path:        "/hello",
		RequestedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	history, err := rec.GetSessionHistory(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history))
	}
	if history[0].Headers.Len() != 0 || history[0].Query.Len() != 0 {
		t.Errorf("headers/query = %d/%d entries, want empty", history[0].Headers.Len(), history[0].Query.Len())
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	rec, db := newTestRecorder(t)
	ctx := context.Background()

	if err := rec.CreateSession(ctx, "doomed"); err != nil {
		t.Fatal(err)
	}
	if err := rec.LogRequest(ctx, "doomed", sampleLog("/hello", time.Now())); err != nil {
		t.Fatal(err)
	}

	if err := rec.DeleteSession(ctx, "doomed"); err != nil {
		t.Fatal(err)
	}

	for _, table := range []string{"request_log", "request_header", "request_query"} {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Errorf("%s rows = %d, want 0 after cascade", table, count)
		}
	}

	if _, err := rec.GetSessionHistory(ctx, "doomed"); !httperr.IsInvalidSession(err) {
		t.Errorf("history after delete: err = %v, want InvalidSession", err)
	}
}
