package validation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

// Entry is one element of a chain definition: a named registry rule or a prebuilt Rule.
type Entry func() (Rule, error)

// Named refers to a registry rule. See Build for the supported names.
func Named(name string, args ...any) Entry {
	return func() (Rule, error) { return Build(name, args...) }
}

// Use adds a prebuilt rule.
func Use(rule Rule) Entry {
	return func() (Rule, error) {
		if rule == nil {
			return nil, fmt.Errorf("%w: nil rule", ErrInvalidRuleArgs)
		}
		return rule, nil
	}
}

// Chain runs an ordered list of rules against every file of a tree and collects
// every failure. A Chain keeps the violations of its last Validate call and must not
// be shared between concurrent validations.
type Chain struct {
	rules      []Rule
	violations Violations
}

// New builds a chain. Construction fails on the first unknown rule name or bad arguments.
func New(entries ...Entry) (*Chain, error) {
	c := &Chain{rules: make([]Rule, 0, len(entries))}
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		rule, err := entry()
		if err != nil {
			return nil, err
		}
		c.rules = append(c.rules, rule)
	}
	return c, nil
}

// FromMap builds a chain from a rule-name to arguments mapping, such as a decoded
// JSON object. Values may be a prebuilt Rule, a list of arguments or a single argument.
// Rules run in sorted key order.
func FromMap(rules map[string]any) (*Chain, error) {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	slices.Sort(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, entryFor(name, rules[name]))
	}
	return New(entries...)
}

func entryFor(name string, value any) Entry {
	if rule, ok := value.(Rule); ok {
		return Use(rule)
	}
	return Named(name, value)
}

// Len returns the number of rules.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

// Validate checks every leaf of tree and reports whether no violation was found.
// Violations from a previous call are discarded first.
func (c *Chain) Validate(tree *file.Tree) bool {
	c.violations = nil
	_ = tree.Walk(func(_ []string, f *file.Info) error {
		c.violations = append(c.violations, c.Check(f)...)
		return nil
	})
	return c.violations.IsEmpty()
}

// Check validates a single file without touching the chain's state.
//
// A file whose transport reported an error yields exactly one violation describing
// that error and no rule is evaluated. Otherwise every rule runs and every failure
// is returned.
func (c *Chain) Check(f *file.Info) Violations {
	if f == nil {
		return nil
	}
	if code := f.UploadError(); !code.OK() {
		return Violations{violation(f.DisplayName(), "validation.file.upload_error",
			map[string]any{"code": int(code)}, "%s", code.Message())}
	}

	var out Violations
	for _, rule := range c.rules {
		err := rule.Validate(f)
		if err == nil {
			continue
		}
		var v Violation
		if !errors.As(err, &v) {
			v = Violation{File: f.DisplayName(), Message: err.Error()}
		}
		out = append(out, v)
	}
	return out
}

// Violations returns the findings of the last Validate call.
func (c *Chain) Violations() Violations {
	return slices.Clone(c.violations)
}

// Errors returns the findings of the last Validate call as "<file>: <message>" strings.
func (c *Chain) Errors() []string {
	return c.violations.Strings()
}
