package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/dmitrymomot/uploadkit/pkg/logger"
)

// DefaultMaxMemory is the default memory budget used when parsing multipart forms (10MB).
const DefaultMaxMemory = 10 << 20

// Spool materializes multipart uploads into temporary files and remembers every path it
// wrote. It is the provenance authority for transport uploads: storage backends only
// move a transport upload whose path the spool owns.
//
// A Spool is safe for concurrent use.
type Spool struct {
	fs      afero.Fs
	dir     string
	maxSize int64
	logger  *slog.Logger

	mu    sync.Mutex
	paths map[string]struct{}
}

// SpoolOption configures a Spool.
type SpoolOption func(*Spool)

// WithSpoolFs sets the filesystem temp files are written to. Defaults to the OS filesystem.
func WithSpoolFs(fs afero.Fs) SpoolOption {
	return func(s *Spool) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithMaxFileSize rejects files larger than n bytes with UploadErrIniSize.
// Zero disables the limit.
func WithMaxFileSize(n int64) SpoolOption {
	return func(s *Spool) { s.maxSize = n }
}

// WithSpoolLogger sets the logger used to report write failures.
func WithSpoolLogger(l *slog.Logger) SpoolOption {
	return func(s *Spool) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSpool creates a spool writing into dir, or the system temp directory when dir is empty.
func NewSpool(dir string, opts ...SpoolOption) *Spool {
	if dir == "" {
		dir = os.TempDir()
	}
	s := &Spool{
		fs:     afero.NewOsFs(),
		dir:    dir,
		logger: logger.Discard(),
		paths:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fs returns the filesystem spooled files live on.
func (s *Spool) Fs() afero.Fs { return s.fs }

// FromRequest parses the request's multipart form and spools every file.
// The form's own temporary files are removed once copied.
func (s *Spool) FromRequest(r *http.Request, maxMemory int64) (UploadSource, error) {
	if r == nil {
		return nil, ErrNilForm
	}
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToParseForm, err)
		}
	}
	form := r.MultipartForm
	if form == nil {
		return nil, ErrNilForm
	}
	defer func() { _ = form.RemoveAll() }()

	return s.FromForm(form)
}

// FromForm spools every file of form into an UploadSource.
//
// Bracketed field names nest: "docs[contract]" lands under src["docs"]["contract"].
// A trailing "[]", or several files sent under one name, produces parallel arrays.
// Per-file problems are reported through the record's error code, never as an error.
// A nested segment named after a record key (name, size, type, tmp_name, error) fails
// with ErrInvalidField.
func (s *Spool) FromForm(form *multipart.Form) (UploadSource, error) {
	if form == nil {
		return nil, ErrNilForm
	}

	src := UploadSource{}
	for _, field := range naturalKeys(anyMap(form.File)) {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}

		segments, multi := splitFieldName(field)
		multi = multi || len(headers) > 1

		records := make([]Record, 0, len(headers))
		for _, fh := range headers {
			records = append(records, s.spool(fh))
		}

		var value any = recordMap(records[0])
		if multi {
			value = parallelArrays(records)
		}
		if err := place(src, segments, value); err != nil {
			return nil, fmt.Errorf("%w: %s", err, field)
		}
	}

	return src, nil
}

// Owns reports whether path was written by this spool.
func (s *Spool) Owns(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[filepath.Clean(path)]
	return ok
}

// Cleanup removes spooled files that were not moved away and forgets all paths.
func (s *Spool) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path := range s.paths {
		if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
		delete(s.paths, path)
	}
	return errors.Join(errs...)
}

func (s *Spool) spool(fh *multipart.FileHeader) Record {
	rec := Record{
		Name: fh.Filename,
		Size: fh.Size,
		Type: fh.Header.Get("Content-Type"),
	}

	switch {
	case fh.Filename == "":
		rec.Error = UploadErrNoFile
		return rec
	case s.maxSize > 0 && fh.Size > s.maxSize:
		rec.Error = UploadErrIniSize
		return rec
	}

	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		s.logger.Error("spool directory unavailable", logger.Path(s.dir), logger.Error(err))
		rec.Error = UploadErrNoTmpDir
		return rec
	}

	src, err := fh.Open()
	if err != nil {
		rec.Error = UploadErrPartial
		return rec
	}
	defer func() { _ = src.Close() }()

	path := filepath.Join(s.dir, "upload_"+uuid.NewString())
	dst, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		s.logger.Error("failed to create spool file", logger.Path(path), logger.Error(err))
		rec.Error = UploadErrCantWrite
		return rec
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(path)
		s.logger.Error("failed to write spool file", logger.Path(path), logger.Error(err))
		rec.Error = UploadErrCantWrite
		return rec
	}

	s.mu.Lock()
	s.paths[filepath.Clean(path)] = struct{}{}
	s.mu.Unlock()

	rec.TmpPath = path
	rec.Size = n
	return rec
}

// splitFieldName splits "a[b][c][]" into ["a", "b", "c"] and reports the trailing "[]".
func splitFieldName(name string) ([]string, bool) {
	base, rest, found := strings.Cut(name, "[")
	segments := []string{base}
	if !found {
		return segments, false
	}

	multi := false
	rest = "[" + rest
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		seg := rest[1:end]
		rest = rest[end+1:]
		if seg == "" {
			multi = true
			continue
		}
		segments = append(segments, seg)
	}
	return segments, multi
}

// place stores value under the nested path, creating intermediate maps.
// Nested segments may not use a record key, or the group would parse as a record.
func place(src UploadSource, segments []string, value any) error {
	for _, seg := range segments[1:] {
		if isRecordKey(seg) {
			return ErrInvalidField
		}
	}

	cur := map[string]any(src)
	for _, seg := range segments[:len(segments)-1] {
		next, exists := cur[seg]
		if !exists {
			m := map[string]any{}
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return ErrInvalidField
		}
		if _, isRecord := m[KeyError]; isRecord {
			return ErrInvalidField
		}
		cur = m
	}

	last := segments[len(segments)-1]
	if _, exists := cur[last]; exists {
		return ErrInvalidField
	}
	cur[last] = value
	return nil
}

func isRecordKey(key string) bool {
	switch key {
	case KeyName, KeySize, KeyType, KeyTmpName, KeyError:
		return true
	}
	return false
}

func recordMap(rec Record) map[string]any {
	return map[string]any{
		KeyName:    rec.Name,
		KeySize:    rec.Size,
		KeyType:    rec.Type,
		KeyTmpName: rec.TmpPath,
		KeyError:   int(rec.Error),
	}
}

func parallelArrays(records []Record) map[string]any {
	names := make([]any, len(records))
	sizes := make([]any, len(records))
	types := make([]any, len(records))
	paths := make([]any, len(records))
	codes := make([]any, len(records))
	for i, rec := range records {
		names[i], sizes[i], types[i], paths[i], codes[i] = rec.Name, rec.Size, rec.Type, rec.TmpPath, int(rec.Error)
	}
	return map[string]any{
		KeyName:    names,
		KeySize:    sizes,
		KeyType:    types,
		KeyTmpName: paths,
		KeyError:   codes,
	}
}

func anyMap[V any](m map[string]V) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
