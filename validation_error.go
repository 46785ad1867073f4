package uploadkit

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/dmitrymomot/uploadkit/pkg/validation"
)

// ValidationError collects per-file validation messages keyed by file name.
// It's based on url.Values to leverage built-in string slice handling.
type ValidationError url.Values

// Error returns the first message of every file, sorted by file name.
func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	files := make([]string, 0, len(e))
	for name := range e {
		files = append(files, name)
	}
	slices.Sort(files)

	parts := make([]string, 0, len(files))
	for _, name := range files {
		if messages := e[name]; len(messages) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", name, messages[0]))
		}
	}

	return fmt.Sprintf("validation error: %s", strings.Join(parts, ", "))
}

func NewValidationError() ValidationError {
	return make(ValidationError)
}

// FromViolations groups violations by file.
func FromViolations(vs validation.Violations) ValidationError {
	e := NewValidationError()
	for _, v := range vs {
		e.Add(v.File, v.Message)
	}
	return e
}

// Add adds an error message for a file.
func (e ValidationError) Add(file, message string) {
	url.Values(e).Add(file, message)
}

// Get returns the first error message for a file.
func (e ValidationError) Get(file string) string {
	return url.Values(e).Get(file)
}

// All returns every message recorded for a file.
func (e ValidationError) All(file string) []string {
	return slices.Clone(e[file])
}

// Has checks if a file has any errors.
func (e ValidationError) Has(file string) bool {
	return len(e[file]) > 0
}

// IsEmpty returns true if there are no validation errors.
func (e ValidationError) IsEmpty() bool {
	return len(e) == 0
}
