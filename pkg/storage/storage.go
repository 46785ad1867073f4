package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

// Storage is a destination for files.
// Paths and folders are relative to the backend's root.
type Storage interface {
	// List returns the entries of folder, directories first, then files.
	List(ctx context.Context, folder string, includeFolders bool) ([]*file.Info, error)

	// Persist moves f into folder and rebinds f to its new location.
	// Without overwrite an existing destination is kept and a free "<name>-<n>.<ext>"
	// is chosen instead. A failed move returns ErrFailedToMoveFile.
	Persist(ctx context.Context, f *file.Info, folder string, overwrite bool) error

	// Copy duplicates the content of f at dest and describes the copy. f is left untouched.
	Copy(ctx context.Context, f *file.Info, dest string) (*file.Info, error)

	// Exists reports whether anything is stored at path.
	Exists(ctx context.Context, path string) bool

	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error

	// URL returns the public URL for path.
	URL(path string) string
}

// exists tries names until it finds a free one.
type exists func(name string) bool

// freeName returns name.ext when it is free, otherwise the first free name-n.ext
// counting from 1.
func freeName(name, ext string, taken exists) string {
	candidate := joinExt(name, ext)
	for n := 1; taken(candidate); n++ {
		candidate = joinExt(fmt.Sprintf("%s-%d", name, n), ext)
	}
	return candidate
}

func joinExt(name, ext string) string {
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// nameParts splits the stored name of f into the part that receives collision suffixes
// and the extension.
func nameParts(f *file.Info) (name, ext string) {
	if f.Name() != "" {
		return f.Name(), f.Extension()
	}
	display := f.DisplayName()
	ext = strings.TrimPrefix(path.Ext(display), ".")
	return strings.TrimSuffix(display, path.Ext(display)), ext
}
