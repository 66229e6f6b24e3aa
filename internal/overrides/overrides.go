// Package overrides records ordered edits to a task configuration and
// applies them onto a configuration struct.
package overrides

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/spachava753/pipetask/internal/models"
)

// Kind identifies the form of a single override.
type Kind int

const (
	// KindFile loads a whole file onto the configuration.
	KindFile Kind = iota
	// KindValue assigns one dotted field.
	KindValue
	// KindNames substitutes template names in dataset names.
	KindNames
)

// NameFormatter is implemented by configurations whose dataset names
// contain {placeholder} templates.
type NameFormatter interface {
	FormatTemplateNames(names map[string]string) error
}

// Override is a single recorded edit.
type Override struct {
	Kind  Kind
	Path  string
	Field string
	Value any
	Names string
}

func (o Override) String() string {
	switch o.Kind {
	case KindFile:
		return "file " + o.Path
	case KindValue:
		return fmt.Sprintf("%s=%v", o.Field, o.Value)
	default:
		return "names " + o.Names
	}
}

// List is an ordered sequence of overrides.
type List struct {
	items []Override
}

// AddFile records loading the file at path.
func (l *List) AddFile(path string) {
	l.items = append(l.items, Override{Kind: KindFile, Path: path})
}

// AddValue records assigning value to the dotted field path.
func (l *List) AddValue(field string, value any) {
	l.items = append(l.items, Override{Kind: KindValue, Field: field, Value: value})
}

// AddNameSubstitution records a name substitution. mapping is an object
// literal such as {input = "deep"}.
func (l *List) AddNameSubstitution(mapping string) {
	l.items = append(l.items, Override{Kind: KindNames, Names: mapping})
}

// Len returns the number of recorded overrides.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Items returns a copy of the recorded overrides in order.
func (l *List) Items() []Override {
	if l == nil {
		return nil
	}
	return append([]Override(nil), l.items...)
}

// Clone returns an independent copy of the list.
func (l *List) Clone() *List {
	return &List{items: l.Items()}
}

// ApplyTo applies every override to cfg in order. The first failure stops
// application; overrides already applied stay applied.
func (l *List) ApplyTo(cfg any) error {
	if l == nil {
		return nil
	}
	for _, o := range l.items {
		var err error
		switch o.Kind {
		case KindFile:
			err = applyFile(cfg, o.Path)
		case KindValue:
			err = applyValue(cfg, o.Field, o.Value)
		case KindNames:
			err = applyNames(cfg, o.Names)
		default:
			err = fmt.Errorf("unknown override kind %d", o.Kind)
		}
		if err != nil {
			return &models.OverrideError{Override: o.String(), Err: err}
		}
	}
	return nil
}

func applyFile(cfg any, path string) error {
	if loader, ok := cfg.(FileLoader); ok {
		return loader.Load(path)
	}
	return DecodeFile(path, cfg)
}

func applyValue(cfg any, field string, value any) error {
	dst, err := lookupField(cfg, field)
	if err != nil {
		return err
	}

	s, isString := value.(string)
	if isString && isListField(dst) {
		val, err := ParseLiteral(s)
		if err != nil {
			return err
		}
		return fromCty(dst, val)
	}

	if isString {
		return assignString(dst, s)
	}
	return assign(dst, value)
}

// assignString stores s in dst. A string that does not fit the field's
// type is retried once as a literal; any other failure is returned as is.
func assignString(dst reflect.Value, s string) error {
	err := assign(dst, s)
	if err == nil || !errors.Is(err, errTypeMismatch) {
		return err
	}

	val, perr := ParseLiteral(s)
	if perr != nil {
		return fmt.Errorf("%w; %w", err, perr)
	}
	native, perr := ToNative(val)
	if perr != nil {
		return perr
	}
	return assign(dst, native)
}

func applyNames(cfg any, mapping string) error {
	formatter, ok := cfg.(NameFormatter)
	if !ok {
		return fmt.Errorf("configuration %T does not support name substitution", cfg)
	}
	val, err := ParseLiteral(mapping)
	if err != nil {
		return err
	}
	native, err := ToNative(val)
	if err != nil {
		return err
	}
	m, ok := native.(map[string]any)
	if !ok {
		return fmt.Errorf("name substitution must be an object literal, got %T", native)
	}
	names := make(map[string]string, len(m))
	for k, v := range m {
		names[k] = fmt.Sprint(v)
	}
	return formatter.FormatTemplateNames(names)
}

// ParseAssignment splits "field=value" into its parts.
func ParseAssignment(s string) (field, value string, err error) {
	field, value, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return "", "", fmt.Errorf("override %q is not in field=value form", s)
	}
	return field, strings.TrimSpace(value), nil
}

// FormatTemplate replaces every {key} in s with names[key]. Placeholders
// without a mapping are left as they are.
func FormatTemplate(s string, names map[string]string) string {
	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", names[k])
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
