// Package routeconfig parses the declarative YAML document describing mock
// endpoints into route definitions with typed response handlers.
package routeconfig

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/autopp/serverify/internal/jsontemplate"
	"github.com/autopp/serverify/internal/model"
)

// RouteDefinition binds one HTTP method and path to a response handler.
type RouteDefinition struct {
	Method   model.Method
	Path     string
	Response Handler
}

// Parse reads a configuration document into an ordered list of route
// definitions. The first failure aborts the whole parse.
func Parse(data []byte) ([]RouteDefinition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	doc, err := jsontemplate.FromYAMLNode(&root)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if doc.Kind != jsontemplate.KindObject {
		return nil, fmt.Errorf("config root must be a mapping")
	}

	paths, ok := doc.Field("paths")
	if !ok {
		return nil, fmt.Errorf("config is missing `paths`")
	}
	if paths.Kind != jsontemplate.KindObject {
		return nil, fmt.Errorf("`paths` must be a mapping")
	}

	var routes []RouteDefinition
	for _, pathEntry := range paths.Obj {
		path := pathEntry.Key
		if !strings.HasPrefix(path, "/") {
			return nil, fmt.Errorf("path %q must begin with `/`", path)
		}
		if path == "/mock" || strings.HasPrefix(path, "/mock/") {
			return nil, fmt.Errorf("path %q must not begin with the reserved `/mock/` prefix", path)
		}
		if pathEntry.Val.Kind != jsontemplate.KindObject {
			return nil, fmt.Errorf("path %q must map methods to endpoints", path)
		}

		for _, methodEntry := range pathEntry.Val.Obj {
			method, err := model.ParseMethod(methodEntry.Key)
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", path, err)
			}

			handler, err := parseEndpoint(methodEntry.Val)
			if err != nil {
				return nil, fmt.Errorf("path %q, method %q: %w", path, method, err)
			}

			routes = append(routes, RouteDefinition{Method: method, Path: path, Response: handler})
		}
	}

	return routes, nil
}

func parseEndpoint(endpoint jsontemplate.Value) (Handler, error) {
	if endpoint.Kind != jsontemplate.KindObject {
		return nil, fmt.Errorf("endpoint must be a mapping")
	}
	response, ok := endpoint.Field("response")
	if !ok {
		return nil, fmt.Errorf("endpoint is missing `response`")
	}
	if response.Kind != jsontemplate.KindObject {
		return nil, fmt.Errorf("`response` must be a mapping")
	}

	typ, err := stringField(response, "type")
	if err != nil {
		return nil, err
	}

	switch typ {
	case "static":
		return parseStatic(response)
	case "paging":
		return parsePaging(response)
	default:
		return nil, fmt.Errorf("invalid response type: %q", typ)
	}
}

func parseStatic(response jsontemplate.Value) (Handler, error) {
	status, err := statusField(response)
	if err != nil {
		return nil, err
	}
	headers, err := headersField(response)
	if err != nil {
		return nil, err
	}
	body, err := stringField(response, "body")
	if err != nil {
		return nil, err
	}
	return &StaticHandler{Status: status, Headers: headers, Body: body}, nil
}

func parsePaging(response jsontemplate.Value) (Handler, error) {
	status, err := statusField(response)
	if err != nil {
		return nil, err
	}
	headers, err := headersField(response)
	if err != nil {
		return nil, err
	}
	pageParam, err := stringField(response, "page_param")
	if err != nil {
		return nil, err
	}
	perPageParam, err := stringField(response, "per_page_param")
	if err != nil {
		return nil, err
	}
	defaultPerPage, err := intField(response, "default_per_page")
	if err != nil {
		return nil, err
	}
	pageOrigin := 1
	if _, ok := response.Field("page_origin"); ok {
		pageOrigin, err = intField(response, "page_origin")
		if err != nil {
			return nil, err
		}
	}

	templateValue, ok := response.Field("template")
	if !ok {
		return nil, fmt.Errorf("paging response is missing `template`")
	}
	template, err := jsontemplate.Parse(templateValue, []string{ContentsPlaceholder}, TextPlaceholder)
	if err != nil {
		return nil, err
	}

	items, ok := response.Field("items")
	if !ok {
		return nil, fmt.Errorf("paging response is missing `items`")
	}
	if items.Kind != jsontemplate.KindArray {
		return nil, fmt.Errorf("`items` must be a sequence")
	}

	return &PagingHandler{
		Status:         status,
		Headers:        headers,
		PageParam:      pageParam,
		PerPageParam:   perPageParam,
		DefaultPerPage: defaultPerPage,
		PageOrigin:     pageOrigin,
		Template:       template,
		Items:          items.Arr,
	}, nil
}

func stringField(v jsontemplate.Value, name string) (string, error) {
	field, ok := v.Field(name)
	if !ok {
		return "", fmt.Errorf("response is missing `%s`", name)
	}
	if field.Kind != jsontemplate.KindString {
		return "", fmt.Errorf("`%s` must be a string", name)
	}
	return field.Str, nil
}

func intField(v jsontemplate.Value, name string) (int, error) {
	field, ok := v.Field(name)
	if !ok {
		return 0, fmt.Errorf("response is missing `%s`", name)
	}
	if field.Kind != jsontemplate.KindNumber {
		return 0, fmt.Errorf("`%s` must be an integer", name)
	}
	n, err := field.Number.Int64()
	if err != nil {
		return 0, fmt.Errorf("`%s` must be an integer", name)
	}
	return int(n), nil
}

func statusField(response jsontemplate.Value) (model.StatusCode, error) {
	code, err := intField(response, "status")
	if err != nil {
		return 0, err
	}
	return model.NewStatusCode(code)
}

func headersField(response jsontemplate.Value) (*model.OrderedMap, error) {
	headers := model.NewOrderedMap()
	field, ok := response.Field("headers")
	if !ok {
		return headers, nil
	}
	if field.Kind != jsontemplate.KindObject {
		return nil, fmt.Errorf("`headers` must be a mapping")
	}
	for _, entry := range field.Obj {
		if entry.Val.Kind != jsontemplate.KindString {
			return nil, fmt.Errorf("header %q must be a string", entry.Key)
		}
		headers.Set(entry.Key, entry.Val.Str)
	}
	return headers, nil
}
