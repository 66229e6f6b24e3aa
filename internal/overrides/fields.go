package overrides

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var errTypeMismatch = errors.New("type mismatch")

// lookupField walks a dotted path through nested structs. Segments match
// the yaml tag name first, then the toml tag, then the Go field name
// ignoring case. Nil struct pointers along the way are allocated.
func lookupField(cfg any, path string) (reflect.Value, error) {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("configuration must be a non-nil pointer, got %T", cfg)
	}
	if path == "" {
		return reflect.Value{}, fmt.Errorf("empty field path")
	}

	for _, seg := range strings.Split(path, ".") {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("field %q: cannot allocate nil pointer", seg)
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field %q: parent is %s, not a struct", seg, v.Kind())
		}
		idx, ok := fieldIndex(v.Type(), seg)
		if !ok {
			return reflect.Value{}, fmt.Errorf("no field %q in %s", seg, v.Type())
		}
		v = v.Field(idx)
	}

	if !v.CanSet() {
		return reflect.Value{}, fmt.Errorf("field %q cannot be set", path)
	}
	return v, nil
}

func fieldIndex(t reflect.Type, name string) (int, bool) {
	for _, tag := range []string{"yaml", "toml"} {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if tagName := strings.Split(f.Tag.Get(tag), ",")[0]; tagName == name {
				return i, true
			}
		}
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && strings.EqualFold(f.Name, name) {
			return i, true
		}
	}
	return 0, false
}

func isListField(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

// assign sets dst to value. The value must be assignable, a number that
// converts without loss, or a []any/map[string]any whose elements convert
// to the destination's element type.
func assign(dst reflect.Value, value any) error {
	if !dst.CanSet() {
		return fmt.Errorf("%s value cannot be set", dst.Type())
	}
	if value == nil {
		switch dst.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		return fmt.Errorf("%w: cannot assign null to %s", errTypeMismatch, dst.Type())
	}

	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if dst.Kind() == reflect.Pointer && src.Type().AssignableTo(dst.Type().Elem()) {
		p := reflect.New(dst.Type().Elem())
		p.Elem().Set(src)
		dst.Set(p)
		return nil
	}
	if isNumeric(src.Kind()) && isNumeric(dst.Kind()) {
		return assignNumber(dst, src)
	}

	switch value.(type) {
	case []any, map[string]any:
		switch dst.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			val, err := nativeToCty(value)
			if err != nil {
				return fmt.Errorf("%w: %v", errTypeMismatch, err)
			}
			return fromCty(dst, val)
		}
	}

	return fmt.Errorf("%w: cannot assign %T to %s", errTypeMismatch, value, dst.Type())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func assignNumber(dst, src reflect.Value) error {
	var f float64
	switch {
	case src.CanInt():
		f = float64(src.Int())
	case src.CanUint():
		f = float64(src.Uint())
	default:
		f = src.Float()
	}

	switch {
	case dst.CanInt():
		if f != math.Trunc(f) {
			return fmt.Errorf("%w: %v is not a whole number", errTypeMismatch, f)
		}
		if dst.OverflowInt(int64(f)) {
			return fmt.Errorf("%w: %v overflows %s", errTypeMismatch, f, dst.Type())
		}
		dst.SetInt(int64(f))
	case dst.CanUint():
		if f != math.Trunc(f) || f < 0 {
			return fmt.Errorf("%w: %v is not a non-negative whole number", errTypeMismatch, f)
		}
		if dst.OverflowUint(uint64(f)) {
			return fmt.Errorf("%w: %v overflows %s", errTypeMismatch, f, dst.Type())
		}
		dst.SetUint(uint64(f))
	default:
		dst.SetFloat(f)
	}
	return nil
}

// fromCty converts a literal into the Go type of dst and stores it.
func fromCty(dst reflect.Value, val cty.Value) error {
	if dst.Kind() == reflect.Interface {
		native, err := ToNative(val)
		if err != nil {
			return err
		}
		if native == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		dst.Set(reflect.ValueOf(native))
		return nil
	}

	ty, err := gocty.ImpliedType(reflect.Zero(dst.Type()).Interface())
	if err != nil {
		return fmt.Errorf("%w: %s has no literal form: %v", errTypeMismatch, dst.Type(), err)
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return fmt.Errorf("%w: %v", errTypeMismatch, err)
	}
	if err := gocty.FromCtyValue(converted, dst.Addr().Interface()); err != nil {
		return fmt.Errorf("%w: %v", errTypeMismatch, err)
	}
	return nil
}

func nativeToCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		vals := make([]cty.Value, 0, len(x))
		for _, e := range x {
			cv, err := nativeToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			vals = append(vals, cv)
		}
		return cty.TupleVal(vals), nil
	case map[string]any:
		if len(x) == 0 {
			return cty.EmptyObjectVal, nil
		}
		vals := make(map[string]cty.Value, len(x))
		for k, e := range x {
			cv, err := nativeToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			vals[k] = cv
		}
		return cty.ObjectVal(vals), nil
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, err
	}
	return gocty.ToCtyValue(v, ty)
}
