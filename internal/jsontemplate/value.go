package jsontemplate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind tags the variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// ObjectEntry is one key/value pair of an object Value, kept in the order
// it was declared.
type ObjectEntry struct {
	Key string
	Val Value
}

// Value is a JSON value that remembers the declaration order of object
// keys, unlike map[string]interface{}. Templates are walked and expanded
// as Values so that a rendered response byte-for-byte matches the
// declared template's field order.
type Value struct {
	Kind   Kind
	Bool   bool
	Number json.Number
	Str    string
	Arr    []Value
	Obj    []ObjectEntry
}

// String builds a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Array builds an array Value from elements.
func Array(elems []Value) Value { return Value{Kind: KindArray, Arr: elems} }

// Field looks up a key on an object Value.
func (v Value) Field(key string) (Value, bool) {
	for _, e := range v.Obj {
		if e.Key == key {
			return e.Val, true
		}
	}
	return Value{}, false
}

// Clone deep-copies v so that expansion never mutates the parsed template.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindArray:
		arr := make([]Value, len(v.Arr))
		for i, e := range v.Arr {
			arr[i] = e.Clone()
		}
		return Value{Kind: KindArray, Arr: arr}
	case KindObject:
		obj := make([]ObjectEntry, len(v.Obj))
		for i, e := range v.Obj {
			obj[i] = ObjectEntry{Key: e.Key, Val: e.Val.Clone()}
		}
		return Value{Kind: KindObject, Obj: obj}
	default:
		return v
	}
}

// ToNative converts v into plain Go values (map[string]interface{},
// []interface{}, string, float64/int64, bool, nil) for consumption by the
// text templating engine, which has no notion of ordered objects.
func (v Value) ToNative() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		if i, err := v.Number.Int64(); err == nil {
			return i
		}
		f, _ := v.Number.Float64()
		return f
	case KindString:
		return v.Str
	case KindArray:
		out := make([]interface{}, len(v.Arr))
		for i, e := range v.Arr {
			out[i] = e.ToNative()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.Obj))
		for _, e := range v.Obj {
			out[e.Key] = e.Val.ToNative()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON renders v with object keys in declaration order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		s := string(v.Number)
		if s == "" {
			s = "0"
		}
		buf.WriteString(s)
	case KindString:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.Arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, e := range v.Obj {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(e.Key)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := e.Val.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jsontemplate: unknown value kind %d", v.Kind)
	}
	return nil
}

// FromYAMLNode decodes a yaml.Node into a Value, preserving mapping key
// order (plain map[string]any decoding via yaml.v3 does not).
func FromYAMLNode(node *yaml.Node) (Value, error) {
	if node == nil {
		return Value{Kind: KindNull}, nil
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Value{Kind: KindNull}, nil
		}
		return FromYAMLNode(node.Content[0])

	case yaml.AliasNode:
		return FromYAMLNode(node.Alias)

	case yaml.MappingNode:
		obj := make([]ObjectEntry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var key string
			if err := node.Content[i].Decode(&key); err != nil {
				return Value{}, fmt.Errorf("decoding object key: %w", err)
			}
			val, err := FromYAMLNode(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			obj = append(obj, ObjectEntry{Key: key, Val: val})
		}
		return Value{Kind: KindObject, Obj: obj}, nil

	case yaml.SequenceNode:
		arr := make([]Value, 0, len(node.Content))
		for _, c := range node.Content {
			val, err := FromYAMLNode(c)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, val)
		}
		return Value{Kind: KindArray, Arr: arr}, nil

	case yaml.ScalarNode:
		return scalarFromYAML(node)

	default:
		return Value{}, fmt.Errorf("unsupported yaml node kind: %v", node.Kind)
	}
}

func scalarFromYAML(node *yaml.Node) (Value, error) {
	switch node.Tag {
	case "!!null":
		return Value{Kind: KindNull}, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBool, Bool: b}, nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return Value{}, err
		}
		return Value{Kind: KindNumber, Number: json.Number(strconv.FormatInt(i, 10))}, nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, err
		}
		return Value{Kind: KindNumber, Number: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}, nil
	default:
		var s string
		if err := node.Decode(&s); err != nil {
			return Value{}, err
		}
		return Value{Kind: KindString, Str: s}, nil
	}
}
