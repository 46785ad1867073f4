package validation

import (
	"slices"
	"strings"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

// Rule checks a single file. A nil error means the file passes; any other error is
// recorded by the Chain. Built-in rules return a Violation.
// Rules hold only configuration and are safe for concurrent use.
type Rule interface {
	Validate(f *file.Info) error
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc func(f *file.Info) error

func (fn RuleFunc) Validate(f *file.Info) error { return fn(f) }

// Size accepts files whose size in bytes lies within [Min, Max].
type Size struct {
	Max int64
	Min int64
}

// NewSize creates a size rule. Both bounds are inclusive.
func NewSize(max, min int64) *Size {
	return &Size{Max: max, Min: min}
}

func (r *Size) Validate(f *file.Info) error {
	size := f.Size()
	switch {
	case size < r.Min:
		return violation(f.DisplayName(), "validation.file.size_min",
			map[string]any{"size": size, "min": r.Min},
			"file size (%s) is too small, must be at least %s",
			file.SizeToHuman(size), file.SizeToHuman(r.Min))
	case size > r.Max:
		return violation(f.DisplayName(), "validation.file.size_max",
			map[string]any{"size": size, "max": r.Max},
			"file size (%s) is too large, must be at most %s",
			file.SizeToHuman(size), file.SizeToHuman(r.Max))
	}
	return nil
}

// Extension accepts files whose extension is in the allow-list. Comparison is
// case-insensitive and an empty list accepts everything.
type Extension struct {
	Allowed []string
}

func NewExtension(exts ...string) *Extension {
	allowed := make([]string, 0, len(exts))
	for _, ext := range exts {
		allowed = append(allowed, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	}
	return &Extension{Allowed: allowed}
}

func (r *Extension) Validate(f *file.Info) error {
	if len(r.Allowed) == 0 || slices.Contains(r.Allowed, strings.ToLower(f.Extension())) {
		return nil
	}
	return violation(f.DisplayName(), "validation.file.extension",
		map[string]any{"extension": f.Extension(), "allowed": r.Allowed},
		"invalid file extension, must be one of: %s", strings.Join(r.Allowed, ", "))
}

// MIMEType accepts files whose sniffed MIME type exactly matches an allow-list entry.
// An empty list accepts everything.
type MIMEType struct {
	Allowed []string
}

func NewMIMEType(types ...string) *MIMEType {
	return &MIMEType{Allowed: slices.Clone(types)}
}

func (r *MIMEType) Validate(f *file.Info) error {
	if len(r.Allowed) == 0 || slices.Contains(r.Allowed, f.MIMEType()) {
		return nil
	}
	return violation(f.DisplayName(), "validation.file.mimetype",
		map[string]any{"mimetype": f.MIMEType(), "allowed": r.Allowed},
		"invalid MIME type, must be one of: %s", strings.Join(r.Allowed, ", "))
}

// Dimension accepts images whose width and height lie within the inclusive bounds.
// Files that cannot be decoded as images always fail.
type Dimension struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

func NewDimension(maxWidth, maxHeight, minWidth, minHeight int) *Dimension {
	return &Dimension{
		MaxWidth:  maxWidth,
		MaxHeight: maxHeight,
		MinWidth:  minWidth,
		MinHeight: minHeight,
	}
}

func (r *Dimension) Validate(f *file.Info) error {
	d, ok := f.Dimensions()
	if !ok {
		return violation(f.DisplayName(), "validation.file.dimension_unknown", nil,
			"could not detect image size")
	}
	if d.Width < r.MinWidth || d.Width > r.MaxWidth {
		return violation(f.DisplayName(), "validation.file.width",
			map[string]any{"width": d.Width, "min": r.MinWidth, "max": r.MaxWidth},
			"image width (%dpx) must be between %dpx and %dpx", d.Width, r.MinWidth, r.MaxWidth)
	}
	if d.Height < r.MinHeight || d.Height > r.MaxHeight {
		return violation(f.DisplayName(), "validation.file.height",
			map[string]any{"height": d.Height, "min": r.MinHeight, "max": r.MaxHeight},
			"image height (%dpx) must be between %dpx and %dpx", d.Height, r.MinHeight, r.MaxHeight)
	}
	return nil
}
