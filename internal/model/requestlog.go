package model

import (
	"encoding/json"
	"time"
)

// RequestLog is one recorded inbound mock request.
type RequestLog struct {
	Method      Method
	Headers     *OrderedMap
	Path        string
	Query       *OrderedMap
	Body        string
	RequestedAt time.Time
}

type requestLogJSON struct {
	Method      string      `json:"method"`
	Headers     *OrderedMap `json:"headers"`
	Path        string      `json:"path"`
	Query       *OrderedMap `json:"query"`
	Body        string      `json:"body"`
	RequestedAt string      `json:"requested_at"`
}

// MarshalJSON serialises a RequestLog with the method as its lowercase
// token and requested_at as RFC3339 with local offset.
func (l RequestLog) MarshalJSON() ([]byte, error) {
	headers := l.Headers
	if headers == nil {
		headers = NewOrderedMap()
	}
	query := l.Query
	if query == nil {
		query = NewOrderedMap()
	}
	return json.Marshal(requestLogJSON{
		Method:      l.Method.String(),
		Headers:     headers,
		Path:        l.Path,
		Query:       query,
		Body:        l.Body,
		RequestedAt: l.RequestedAt.Format(time.RFC3339),
	})
}
