package validation

import (
	"fmt"
	"strings"
)

// Violation is a single failed check for one file, with translation support.
type Violation struct {
	File              string
	Message           string
	TranslationKey    string
	TranslationValues map[string]any
}

// Error returns the message prefixed with the file's display name.
func (v Violation) Error() string {
	if v.File == "" {
		return v.Message
	}
	return v.File + ": " + v.Message
}

// Violations is the ordered list of problems found by a Chain.
type Violations []Violation

func (vs Violations) Error() string {
	if len(vs) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(vs.Strings(), "; ")
}

// Strings renders every violation as "<file>: <message>".
func (vs Violations) Strings() []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Error())
	}
	return out
}

// Has reports whether any violation concerns file.
func (vs Violations) Has(file string) bool {
	for _, v := range vs {
		if v.File == file {
			return true
		}
	}
	return false
}

func (vs Violations) IsEmpty() bool {
	return len(vs) == 0
}

func violation(file, key string, values map[string]any, format string, args ...any) Violation {
	return Violation{
		File:              file,
		Message:           fmt.Sprintf(format, args...),
		TranslationKey:    key,
		TranslationValues: values,
	}
}
