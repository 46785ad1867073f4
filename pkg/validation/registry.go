package validation

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

type factory func(args []any) (Rule, error)

// registry maps every recognized rule name to its constructor.
var registry = map[string]factory{
	"size":      newSizeRule,
	"filesize":  newSizeRule,
	"extension": newExtensionRule,
	"ext":       newExtensionRule,
	"mimetype":  newMIMETypeRule,
	"mime":      newMIMETypeRule,
	"dimension": newDimensionRule,
}

// RuleNames returns the recognized rule names, sorted.
func RuleNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build constructs the named rule from its arguments.
//
// Supported names and arguments:
//
//	size, filesize        max [, min]  bytes as numbers or strings such as "2M"
//	extension, ext        allowed extensions
//	mimetype, mime        allowed MIME types
//	dimension             maxWidth, maxHeight [, minWidth [, minHeight]]
func Build(name string, args ...any) (Rule, error) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotSupported, name)
	}
	rule, err := fn(flatten(args))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return rule, nil
}

func newSizeRule(args []any) (Rule, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("%w: size expects max and optional min, got %d values", ErrInvalidRuleArgs, len(args))
	}
	max, err := toBytes(args[0])
	if err != nil {
		return nil, err
	}
	var min int64
	if len(args) == 2 {
		if min, err = toBytes(args[1]); err != nil {
			return nil, err
		}
	}
	return NewSize(max, min), nil
}

func newExtensionRule(args []any) (Rule, error) {
	exts, err := toStrings(args)
	if err != nil {
		return nil, err
	}
	return NewExtension(exts...), nil
}

func newMIMETypeRule(args []any) (Rule, error) {
	types, err := toStrings(args)
	if err != nil {
		return nil, err
	}
	return NewMIMEType(types...), nil
}

func newDimensionRule(args []any) (Rule, error) {
	if len(args) < 2 || len(args) > 4 {
		return nil, fmt.Errorf("%w: dimension expects 2 to 4 values, got %d", ErrInvalidRuleArgs, len(args))
	}
	bounds := make([]int, 4)
	for i, arg := range args {
		n, err := toInt(arg)
		if err != nil {
			return nil, err
		}
		bounds[i] = int(n)
	}
	return NewDimension(bounds[0], bounds[1], bounds[2], bounds[3]), nil
}

// flatten expands nested slices so that Named("ext", []string{"png"}) and
// Named("ext", "png") are equivalent.
func flatten(args []any) []any {
	out := make([]any, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		rv := reflect.ValueOf(arg)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			nested := make([]any, rv.Len())
			for i := range nested {
				nested[i] = rv.Index(i).Interface()
			}
			out = append(out, flatten(nested)...)
			continue
		}
		out = append(out, arg)
	}
	return out
}

func toBytes(v any) (int64, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, fmt.Errorf("%w: empty size", ErrInvalidRuleArgs)
		}
		return file.ParseSize(s), nil
	}
	return toInt(v)
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidRuleArgs, n)
		}
		return i, nil
	case fmt.Stringer:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidRuleArgs, n.String())
		}
		return i, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows", ErrInvalidRuleArgs, rv.Uint())
		}
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidRuleArgs, v)
}

func toStrings(args []any) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not a string", ErrInvalidRuleArgs, arg)
		}
		out = append(out, s)
	}
	return out, nil
}
