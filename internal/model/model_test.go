package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseMethod(t *testing.T) {
	for _, token := range []string{"get", "post", "put", "delete", "patch"} {
		if _, err := ParseMethod(token); err != nil {
			t.Errorf("ParseMethod(%q) failed: %v", token, err)
		}
	}

	for _, token := range []string{"GET", "head", "options", ""} {
		if _, err := ParseMethod(token); err == nil {
			t.Errorf("ParseMethod(%q) succeeded, want error", token)
		}
	}
}

func TestMethodHTTPRoundTrip(t *testing.T) {
	for _, m := range []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch} {
		back, err := ParseHTTPMethod(m.HTTP())
		if err != nil {
			t.Errorf("ParseHTTPMethod(%q) failed: %v", m.HTTP(), err)
		}
		if back != m {
			t.Errorf("round trip of %q = %q", m, back)
		}
	}
}

func TestNewStatusCode(t *testing.T) {
	for _, code := range []int{100, 200, 404, 599} {
		if _, err := NewStatusCode(code); err != nil {
			t.Errorf("NewStatusCode(%d) failed: %v", code, err)
		}
	}
	for _, code := range []int{0, 99, 600, -1} {
		if _, err := NewStatusCode(code); err == nil {
			t.Errorf("NewStatusCode(%d) succeeded, want error", code)
		}
	}
}

func TestValidSessionName(t *testing.T) {
	for _, name := range []string{"s1", "with-hyphen", "with_underscore", "ABC123"} {
		if !ValidSessionName(name) {
			t.Errorf("ValidSessionName(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"", "has space", "slash/", "dot.", "日本語"} {
		if ValidSessionName(name) {
			t.Errorf("ValidSessionName(%q) = true, want false", name)
		}
	}
}

func TestRequestLogMarshalJSON(t *testing.T) {
	headers := NewOrderedMap()
	headers.Set("x-b", "1")
	headers.Set("x-a", "2")
	query := NewOrderedMap()
	query.Set("q", "v")

	at := time.Date(2026, 8, 2, 12, 34, 56, 0, time.FixedZone("JST", 9*3600))
	log := RequestLog{
		Method:      MethodGet,
		Headers:     headers,
		Path:        "/hello",
		Query:       query,
		Body:        "payload",
		RequestedAt: at,
	}

	got, err := json.Marshal(log)
	if err != nil {
		t.Fatal(err)
	}

	want := `{"method":"get","headers":{"x-b":"1","x-a":"2"},"path":"/hello","query":{"q":"v"},"body":"payload","requested_at":"2026-08-02T12:34:56+09:00"}`
	if string(got) != want {
		t.Errorf("marshalled = %s, want %s", got, want)
	}
}

func TestRequestLogMarshalNilMaps(t *testing.T) {
	log := RequestLog{Method: MethodGet, Path: "/", RequestedAt: time.Unix(0, 0).UTC()}

	got, err := json.Marshal(log)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), `"headers":{}`) || !strings.Contains(string(got), `"query":{}`) {
		t.Errorf("nil maps should serialise as empty objects: %s", got)
	}
}
