package routeconfig

import (
	"fmt"
	"strconv"

	"github.com/autopp/serverify/internal/jsontemplate"
	"github.com/autopp/serverify/internal/model"
)

// Response is the HTTP response value a Handler produces: status, headers
// in insertion order, and a body string.
type Response struct {
	Status  model.StatusCode
	Headers *model.OrderedMap
	Body    string
}

// Handler produces a Response from the query parameters of a mock request.
type Handler interface {
	Respond(query *model.OrderedMap) (*Response, error)
}

// StaticHandler replies with the same status, headers and body on every
// request.
type StaticHandler struct {
	Status  model.StatusCode
	Headers *model.OrderedMap
	Body    string
}

// Respond returns the stored response.
func (h *StaticHandler) Respond(_ *model.OrderedMap) (*Response, error) {
	headers := model.NewOrderedMap()
	h.Headers.Range(headers.Set)
	return &Response{Status: h.Status, Headers: headers, Body: h.Body}, nil
}

// PagingHandler slices a fixed item list by page/per_page query parameters
// and renders the window into a JSON template.
type PagingHandler struct {
	Status         model.StatusCode
	Headers        *model.OrderedMap
	PageParam      string
	PerPageParam   string
	DefaultPerPage int
	PageOrigin     int
	Template       *jsontemplate.JsonTemplate
	Items          []jsontemplate.Value
}

// ContentsPlaceholder is the value placeholder name every paging template
// binds the current page window to.
const ContentsPlaceholder = "_contents"

// TextPlaceholder is the text placeholder name paging templates may use
// for string rendering.
const TextPlaceholder = "_text"

// Respond computes the page window and expands the template with it.
// Malformed page/per_page values fall back to their defaults; a window
// outside the item list yields an empty page.
func (h *PagingHandler) Respond(query *model.OrderedMap) (*Response, error) {
	page := queryInt(query, h.PageParam, h.PageOrigin)
	perPage := queryInt(query, h.PerPageParam, h.DefaultPerPage)

	window := pageWindow(h.Items, page, h.PageOrigin, perPage)

	expanded, err := h.Template.Expand(map[string]jsontemplate.Value{
		ContentsPlaceholder: jsontemplate.Array(window),
	})
	if err != nil {
		return nil, fmt.Errorf("expanding paging template: %w", err)
	}

	body, err := expanded.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("serialising paging response: %w", err)
	}

	headers := model.NewOrderedMap()
	headers.Set("content-type", "application/json")
	h.Headers.Range(headers.Set)
	return &Response{Status: h.Status, Headers: headers, Body: string(body)}, nil
}

// queryInt parses a non-negative integer query parameter, falling back to
// def when the parameter is absent or malformed.
func queryInt(query *model.OrderedMap, name string, def int) int {
	raw, ok := query.Get(name)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(raw, 10, strconv.IntSize-1)
	if err != nil {
		return def
	}
	return int(n)
}

// pageWindow returns items[(page-origin)*perPage : +perPage], clamped to an
// empty slice when the window falls outside the list.
func pageWindow(items []jsontemplate.Value, page, origin, perPage int) []jsontemplate.Value {
	if perPage <= 0 {
		return nil
	}
	offset := (page - origin) * perPage
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := offset + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
