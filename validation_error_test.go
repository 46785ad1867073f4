package uploadkit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/uploadkit"
	"github.com/dmitrymomot/uploadkit/pkg/validation"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		e := uploadkit.NewValidationError()
		assert.True(t, e.IsEmpty())
		assert.Equal(t, "validation failed", e.Error())
		assert.Empty(t, e.Get("a.txt"))
	})

	t.Run("messages per file", func(t *testing.T) {
		t.Parallel()
		e := uploadkit.NewValidationError()
		e.Add("b.png", "too large")
		e.Add("a.txt", "invalid file extension")
		e.Add("a.txt", "too small")

		assert.False(t, e.IsEmpty())
		assert.True(t, e.Has("a.txt"))
		assert.False(t, e.Has("c.gif"))
		assert.Equal(t, "invalid file extension", e.Get("a.txt"))
		assert.Equal(t, []string{"invalid file extension", "too small"}, e.All("a.txt"))
		assert.Equal(t, "validation error: a.txt: invalid file extension, b.png: too large", e.Error())
	})

	t.Run("from violations", func(t *testing.T) {
		t.Parallel()
		e := uploadkit.FromViolations(validation.Violations{
			{File: "a.txt", Message: "first"},
			{File: "a.txt", Message: "second"},
			{File: "b.jpg", Message: "third"},
		})
		assert.Len(t, e, 2)
		assert.Equal(t, []string{"first", "second"}, e.All("a.txt"))
		assert.Equal(t, "third", e.Get("b.jpg"))
	})
}
