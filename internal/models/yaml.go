package models

import (
	"bytes"
	"encoding"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EncodeYAML marshals v like yaml.Marshal, except that floats are always
// written in float form. yaml.v3 writes a whole float64 as "2", which
// reads back into an interface as int; "2.0" reads back as float64.
func EncodeYAML(v any) ([]byte, error) {
	n, err := yamlNode(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	yamlMarshalerType = reflect.TypeOf((*yaml.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	yamlNodeType      = reflect.TypeOf(yaml.Node{})
)

func yamlNode(v reflect.Value) (*yaml.Node, error) {
	if !v.IsValid() {
		return nullNode(), nil
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nullNode(), nil
		}
		return yamlNode(v.Elem())
	}
	// Types with their own encoding keep it.
	t := v.Type()
	if t.Implements(yamlMarshalerType) || t.Implements(textMarshalerType) || t == yamlNodeType || t == reflect.PointerTo(yamlNodeType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nullNode(), nil
		}
		return encodeNode(v.Interface())
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nullNode(), nil
		}
		return yamlNode(v.Elem())
	case reflect.Float32:
		return floatNode(v.Float(), 32), nil
	case reflect.Float64:
		return floatNode(v.Float(), 64), nil
	case reflect.Map:
		return mapNode(v)
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return encodeNode(v.Interface())
		}
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for i := 0; i < v.Len(); i++ {
			item, err := yamlNode(v.Index(i))
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, item)
		}
		return n, nil
	case reflect.Struct:
		return structNode(v)
	default:
		return encodeNode(v.Interface())
	}
}

func mapNode(v reflect.Value) (*yaml.Node, error) {
	type entry struct {
		sortKey string
		key     reflect.Value
	}
	entries := make([]entry, 0, v.Len())
	for _, k := range v.MapKeys() {
		entries = append(entries, entry{sortKey: fmt.Sprint(k.Interface()), key: k})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].sortKey < entries[j].sortKey })

	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		kn, err := yamlNode(e.key)
		if err != nil {
			return nil, err
		}
		vn, err := yamlNode(v.MapIndex(e.key))
		if err != nil {
			return nil, err
		}
		n.Content = append(n.Content, kn, vn)
	}
	return n, nil
}

func structNode(v reflect.Value) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("yaml")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		fv := v.Field(i)
		if hasOpt(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}

		vn, err := yamlNode(fv)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if hasOpt(opts, "inline") {
			if vn.Kind == yaml.MappingNode {
				n.Content = append(n.Content, vn.Content...)
			}
			continue
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, vn)
	}
	return n, nil
}

func hasOpt(opts, want string) bool {
	for _, o := range strings.Split(opts, ",") {
		if o == want {
			return true
		}
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return v.Len() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}

func floatNode(f float64, bits int) *yaml.Node {
	var s string
	switch {
	case math.IsNaN(f):
		s = ".nan"
	case math.IsInf(f, 1):
		s = ".inf"
	case math.IsInf(f, -1):
		s = "-.inf"
	default:
		s = strconv.FormatFloat(f, 'g', -1, bits)
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func encodeNode(v any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}
