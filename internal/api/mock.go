package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/autopp/serverify/internal/httperr"
	"github.com/autopp/serverify/internal/model"
	"github.com/autopp/serverify/internal/routeconfig"
)

// RequestRecorder defines the recorder operation the mock data-plane needs.
type RequestRecorder interface {
	LogRequest(ctx context.Context, session string, log model.RequestLog) error
}

// MountMockRoutes registers every route definition under /mock/{session},
// filtered by its declared method.
func MountMockRoutes(r chi.Router, routes []routeconfig.RouteDefinition, rec RequestRecorder) {
	for _, route := range routes {
		r.Method(route.Method.HTTP(), "/mock/{session}"+route.Path, mockHandler(route, rec))
	}
}

// mockHandler records the request under its session (unless the session is
// the reserved default) and replies with the route's configured response.
func mockHandler(route routeconfig.RouteDefinition, rec RequestRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := chi.URLParam(r, "session")
		query := parseQuery(r.URL.RawQuery)

		if session != model.DefaultSession {
			log, errStatus, errMessage := extractLog(r, route.Path)
			if errStatus != 0 {
				http.Error(w, errMessage, errStatus)
				return
			}

			if err := rec.LogRequest(r.Context(), session, log); err != nil {
				if httperr.IsInvalidSession(err) {
					http.Error(w, err.Error(), http.StatusNotFound)
				} else {
					http.Error(w, err.Error(), http.StatusInternalServerError)
				}
				return
			}
		}

		resp, err := route.Response.Respond(query)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp.Headers.Range(func(name, value string) {
			w.Header().Set(name, value)
		})
		w.WriteHeader(resp.Status.Int())
		io.WriteString(w, resp.Body)
	}
}

// extractLog builds the RequestLog for an inbound mock request. A non-zero
// status return means extraction failed and the handler should reply with
// that status and message.
func extractLog(r *http.Request, path string) (model.RequestLog, int, string) {
	method, err := model.ParseHTTPMethod(r.Method)
	if err != nil {
		// Routing only dispatches the five mockable methods here.
		return model.RequestLog{}, http.StatusInternalServerError, err.Error()
	}

	headers, err := extractHeaders(r.Header)
	if err != nil {
		return model.RequestLog{}, http.StatusInternalServerError, err.Error()
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return model.RequestLog{}, http.StatusInternalServerError, "reading request body: " + err.Error()
	}
	body := strings.ToValidUTF8(string(raw), "�")

	return model.RequestLog{
		Method:      method,
		Headers:     headers,
		Path:        path,
		Query:       parseQuery(r.URL.RawQuery),
		Body:        body,
		RequestedAt: time.Now(),
	}, 0, ""
}

// extractHeaders lowers header names and joins repeated values. net/http
// stores headers in a map, so names are recorded in sorted order to keep
// history deterministic.
func extractHeaders(header http.Header) (*model.OrderedMap, error) {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := model.NewOrderedMap()
	for _, name := range names {
		value := strings.Join(header[name], ", ")
		if !utf8.ValidString(value) {
			return nil, httperr.Internal("header " + strings.ToLower(name) + " is not valid UTF-8")
		}
		headers.Set(strings.ToLower(name), value)
	}
	return headers, nil
}

// parseQuery decodes a raw query string into an ordered map, preserving the
// order parameters appear in the URL. Undecodable pairs are skipped.
func parseQuery(rawQuery string) *model.OrderedMap {
	query := model.NewOrderedMap()
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		decodedName, err := url.QueryUnescape(name)
		if err != nil {
			continue
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		query.Set(decodedName, decodedValue)
	}
	return query
}
