package logger

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Storage records the storage backend name under the key "storage".
func Storage(name string) slog.Attr {
	return slog.String("storage", name)
}

// File records a file's display name under the key "file".
func File(name string) slog.Attr {
	return slog.String("file", name)
}

// Path records a filesystem path or object key under the key "path".
func Path(p string) slog.Attr {
	return slog.String("path", p)
}

// Folder records a destination folder under the key "folder".
// The storage root is logged as "/".
func Folder(folder string) slog.Attr {
	if folder == "" {
		folder = "/"
	}
	return slog.String("folder", folder)
}

// URL records a remote address under the key "url".
func URL(u string) slog.Attr {
	return slog.String("url", u)
}

// Size records a byte count under the key "size" as a group holding the raw
// value and its human-readable form.
func Size(bytes int64) slog.Attr {
	human := "0 B"
	if bytes > 0 {
		human = humanize.Bytes(uint64(bytes))
	}
	return Group("size", slog.Int64("bytes", bytes), slog.String("human", human))
}

// Count records a number of items under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Duration records an elapsed time under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
