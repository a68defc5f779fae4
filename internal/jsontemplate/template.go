// Package jsontemplate implements the JSON templating mini-language used
// by the paging response handler: a JSON value with distinguished
// string-valued ("$name") and object-form ({"$text_name": "<source>"})
// placeholders, located once at parse time and expanded on every request.
package jsontemplate

import (
	"fmt"
	"regexp"
)

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type leafKind int

const (
	leafValue leafKind = iota
	leafText
)

type pathStep struct {
	field   string
	index   int
	isIndex bool
}

func fieldStep(name string) pathStep { return pathStep{field: name} }
func indexStep(i int) pathStep       { return pathStep{index: i, isIndex: true} }

type placeholderPath struct {
	steps []pathStep
	kind  leafKind
	name  string // value placeholder name (leafValue)
	text  *compiledText
}

// JsonTemplate is an immutable, parsed template: the original value plus
// the positions within it that get overwritten on Expand.
type JsonTemplate struct {
	template Value
	paths    []placeholderPath
}

// Parse locates every placeholder in template and validates that
// valuePlaceholderNames and textPlaceholderName are well-formed and
// mutually unique.
func Parse(template Value, valuePlaceholderNames []string, textPlaceholderName string) (*JsonTemplate, error) {
	if err := validateNames(valuePlaceholderNames, textPlaceholderName); err != nil {
		return nil, err
	}

	valueNames := make(map[string]struct{}, len(valuePlaceholderNames))
	for _, n := range valuePlaceholderNames {
		valueNames[n] = struct{}{}
	}

	paths, err := traverse(template, valueNames, textPlaceholderName)
	if err != nil {
		return nil, err
	}

	return &JsonTemplate{template: template, paths: paths}, nil
}

func validateNames(valueNames []string, textName string) error {
	seen := make(map[string]struct{}, len(valueNames)+1)
	all := make([]string, 0, len(valueNames)+1)
	all = append(all, valueNames...)
	all = append(all, textName)

	for _, n := range all {
		if n == "" {
			return fmt.Errorf("placeholder name cannot be empty")
		}
		if !nameRe.MatchString(n) {
			return fmt.Errorf("invalid placeholder name: `%s`", n)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("duplicated placeholder name: `%s`", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

// traverse walks v recursively, returning every placeholder found with its
// path from v's root.
func traverse(v Value, valueNames map[string]struct{}, textName string) ([]placeholderPath, error) {
	switch v.Kind {
	case KindObject:
		if len(v.Obj) == 1 && v.Obj[0].Key == "$"+textName && v.Obj[0].Val.Kind == KindString {
			compiled, err := compileText(v.Obj[0].Val.Str)
			if err != nil {
				return nil, err
			}
			return []placeholderPath{{kind: leafText, text: compiled}}, nil
		}

		var paths []placeholderPath
		for _, entry := range v.Obj {
			sub, err := traverse(entry.Val, valueNames, textName)
			if err != nil {
				return nil, err
			}
			for _, p := range sub {
				p.steps = append([]pathStep{fieldStep(entry.Key)}, p.steps...)
				paths = append(paths, p)
			}
		}
		return paths, nil

	case KindArray:
		var paths []placeholderPath
		for i, elem := range v.Arr {
			sub, err := traverse(elem, valueNames, textName)
			if err != nil {
				return nil, err
			}
			for _, p := range sub {
				p.steps = append([]pathStep{indexStep(i)}, p.steps...)
				paths = append(paths, p)
			}
		}
		return paths, nil

	case KindString:
		if len(v.Str) >= 1 && v.Str[0] == '$' {
			name := v.Str[1:]
			if _, ok := valueNames[name]; ok {
				return []placeholderPath{{kind: leafValue, name: name}}, nil
			}
		}
		return nil, nil

	default:
		return nil, nil
	}
}

// Expand deep-clones the template and overwrites every placeholder
// position with the bound value (leafValue) or rendered text (leafText).
// values is keyed by bare placeholder name, no leading "$".
func (t *JsonTemplate) Expand(values map[string]Value) (Value, error) {
	expanded := t.template.Clone()

	for _, path := range t.paths {
		if err := expandAt(&expanded, path.steps, path, values); err != nil {
			return Value{}, err
		}
	}

	return expanded, nil
}

func expandAt(v *Value, steps []pathStep, path placeholderPath, values map[string]Value) error {
	if len(steps) == 0 {
		switch path.kind {
		case leafValue:
			bound, ok := values[path.name]
			if !ok {
				panic(fmt.Sprintf("jsontemplate: no value bound for placeholder %q", path.name))
			}
			*v = bound
			return nil
		case leafText:
			native := make(map[string]interface{}, len(values))
			for name, val := range values {
				native[name] = val.ToNative()
			}
			rendered, err := path.text.render(native)
			if err != nil {
				return err
			}
			*v = String(rendered)
			return nil
		}
		return nil
	}

	step := steps[0]
	if step.isIndex {
		if v.Kind != KindArray || step.index >= len(v.Arr) {
			return fmt.Errorf("jsontemplate: placeholder path does not match template shape")
		}
		return expandAt(&v.Arr[step.index], steps[1:], path, values)
	}

	for i := range v.Obj {
		if v.Obj[i].Key == step.field {
			return expandAt(&v.Obj[i].Val, steps[1:], path, values)
		}
	}
	return fmt.Errorf("jsontemplate: placeholder path does not match template shape")
}
