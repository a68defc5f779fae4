package model

import "fmt"

// StatusCode is an HTTP status code constrained to the valid range [100, 599].
type StatusCode uint16

// NewStatusCode validates code and returns a StatusCode.
func NewStatusCode(code int) (StatusCode, error) {
	if code < 100 || code > 599 {
		return 0, fmt.Errorf("invalid status code: %d", code)
	}
	return StatusCode(code), nil
}

func (s StatusCode) Int() int {
	return int(s)
}
