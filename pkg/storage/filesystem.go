package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
)

// DefaultDirPerm is applied to folders created by Persist and Copy.
const DefaultDirPerm os.FileMode = 0o777

// Filesystem stores files below a base directory on an afero filesystem.
// All operations are confined to the base directory.
// Safe for concurrent use.
type Filesystem struct {
	fs      afero.Fs
	baseURL string
	dirPerm os.FileMode
	logger  *slog.Logger

	mu            sync.RWMutex
	basePath      string
	excluded      map[string]struct{}
	includeHidden bool
}

// FilesystemOption configures a Filesystem.
type FilesystemOption func(*Filesystem)

// WithFs sets the filesystem. Defaults to the OS filesystem.
func WithFs(afs afero.Fs) FilesystemOption {
	return func(s *Filesystem) {
		if afs != nil {
			s.fs = afs
		}
	}
}

// WithExcludedFolders hides entries with these exact names from List.
func WithExcludedFolders(names ...string) FilesystemOption {
	return func(s *Filesystem) { s.excluded = nameSet(names) }
}

// WithHiddenFiles makes List return dotfiles.
func WithHiddenFiles(include bool) FilesystemOption {
	return func(s *Filesystem) { s.includeHidden = include }
}

func WithDirPerm(perm os.FileMode) FilesystemOption {
	return func(s *Filesystem) {
		if perm != 0 {
			s.dirPerm = perm
		}
	}
}

// WithBaseURL sets the URL prefix for serving files (e.g., "/files/").
func WithBaseURL(baseURL string) FilesystemOption {
	return func(s *Filesystem) {
		if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		s.baseURL = baseURL
	}
}

func WithLogger(l *slog.Logger) FilesystemOption {
	return func(s *Filesystem) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFilesystem creates a storage rooted at basePath, which must exist and be readable.
func NewFilesystem(basePath string, opts ...FilesystemOption) (*Filesystem, error) {
	s := &Filesystem{
		fs:      afero.NewOsFs(),
		dirPerm: DefaultDirPerm,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.SetBasePath(basePath); err != nil {
		return nil, err
	}

	return s, nil
}

// SetBasePath moves the storage root. The new root must exist and be readable.
func (s *Filesystem) SetBasePath(basePath string) error {
	if strings.TrimSpace(basePath) == "" {
		return fmt.Errorf("%w: base path cannot be empty", ErrInvalidArgument)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := s.checkReadable(abs); err != nil {
		return err
	}

	s.mu.Lock()
	s.basePath = abs
	s.mu.Unlock()
	return nil
}

// SetExcludedFolders replaces the set of names hidden from List.
func (s *Filesystem) SetExcludedFolders(names ...string) {
	set := nameSet(names)
	s.mu.Lock()
	s.excluded = set
	s.mu.Unlock()
}

func (s *Filesystem) SetIncludeHidden(include bool) {
	s.mu.Lock()
	s.includeHidden = include
	s.mu.Unlock()
}

// BasePath returns the absolute storage root.
func (s *Filesystem) BasePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.basePath
}

// Fs returns the underlying filesystem.
func (s *Filesystem) Fs() afero.Fs { return s.fs }

// List returns the entries of folder: directories first, then files, each group in
// enumeration order. "." and "..", dotfiles (unless enabled) and excluded names are skipped.
func (s *Filesystem) List(ctx context.Context, folder string, includeFolders bool) ([]*file.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := s.resolve(folder)
	if err != nil {
		return nil, err
	}
	if err := s.checkReadable(dir); err != nil {
		return nil, err
	}

	d, err := s.fs.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReadable, err)
	}
	defer func() { _ = d.Close() }()

	entries, err := d.Readdir(-1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReadable, err)
	}

	s.mu.RLock()
	excluded, includeHidden := s.excluded, s.includeHidden
	s.mu.RUnlock()

	var folders, files []*file.Info
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := e.Name()
		if name == "." || name == ".." {
			continue
		}
		if !includeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if _, skip := excluded[name]; skip {
			continue
		}
		if e.IsDir() && !includeFolders {
			continue
		}

		info := file.New(filepath.Join(dir, name), file.WithFs(s.fs))
		if e.IsDir() {
			folders = append(folders, info)
		} else {
			files = append(files, info)
		}
	}

	return append(folders, files...), nil
}

// Persist moves f into folder below the storage root.
//
// The destination is folder/<DisplayName>. Without overwrite an existing entry is kept and
// the first free "<name>-<n>.<ext>" is used, probing from n=1 on every call.
// Transport uploads must pass their provenance check. On success f points at the
// stored copy.
func (s *Filesystem) Persist(ctx context.Context, f *file.Info, folder string, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("%w: file is nil", ErrInvalidArgument)
	}

	base := s.BasePath()
	if err := s.checkWritable(base); err != nil {
		return err
	}

	dir, err := s.resolve(folder)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(dir, s.dirPerm); err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}

	dest := filepath.Join(dir, f.DisplayName())
	if !overwrite && s.entryExists(dest) {
		name, ext := nameParts(f)
		dest = filepath.Join(dir, freeName(name, ext, func(candidate string) bool {
			return s.entryExists(filepath.Join(dir, candidate))
		}))
	}

	if f.IsTransportUpload() && !f.VerifiedUpload() {
		return fmt.Errorf("%w: %s", ErrInvalidUpload, f.Path())
	}

	if err := s.move(f, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFailedToMoveFile, f.Path(), err)
	}

	s.logger.DebugContext(ctx, "file persisted",
		logger.Storage("filesystem"),
		logger.File(filepath.Base(dest)),
		logger.Folder(folder),
		logger.Path(f.Path()),
	)
	f.Relocate(s.fs, dest)

	return nil
}

// move relocates the content of f to dest. Transport uploads fall back to copy and
// remove when a rename is refused (e.g. across devices); other files are renamed.
func (s *Filesystem) move(f *file.Info, dest string) error {
	src := f.Fs()
	if !sameFs(src, s.fs) {
		return moveAcross(src, f.Path(), s.fs, dest)
	}

	err := s.fs.Rename(f.Path(), dest)
	if err == nil || !f.IsTransportUpload() {
		return err
	}
	return moveAcross(src, f.Path(), s.fs, dest)
}

// Copy duplicates f at dest (relative to the storage root) and describes the copy.
func (s *Filesystem) Copy(ctx context.Context, f *file.Info, dest string) (*file.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: file is nil", ErrInvalidArgument)
	}

	target, err := s.resolve(dest)
	if err != nil {
		return nil, err
	}
	if target == s.BasePath() {
		return nil, fmt.Errorf("%w: destination is the storage root", ErrInvalidPath)
	}
	if err := s.fs.MkdirAll(filepath.Dir(target), s.dirPerm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCopyFile, err)
	}

	if err := copyFile(f.Fs(), f.Path(), s.fs, target); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFailedToCopyFile, f.Path(), err)
	}

	return file.New(target, file.WithFs(s.fs)), nil
}

// Exists reports whether anything exists at path. Invalid paths report false.
func (s *Filesystem) Exists(ctx context.Context, path string) bool {
	if ctx.Err() != nil {
		return false
	}
	abs, err := s.resolve(path)
	if err != nil {
		return false
	}
	return s.entryExists(abs)
}

// Delete removes a single file. Directories are refused; use DeleteDir.
func (s *Filesystem) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	abs, err := s.resolve(path)
	if err != nil {
		return err
	}

	st, err := s.fs.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}
	if st.IsDir() {
		return fmt.Errorf("%w: %s, use DeleteDir instead", ErrIsDirectory, path)
	}

	if err := s.fs.Remove(abs); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}
	return nil
}

// DeleteDir recursively removes a directory below the storage root.
func (s *Filesystem) DeleteDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if abs == s.BasePath() {
		return fmt.Errorf("%w: refusing to delete the storage root", ErrInvalidPath)
	}

	st, err := s.fs.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDirectoryNotFound, path)
		}
		return fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}

	if err := s.fs.RemoveAll(abs); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteDirectory, err)
	}
	return nil
}

// URL returns the public URL for path. Absolute paths below the storage root are made
// relative first.
func (s *Filesystem) URL(path string) string {
	base := s.BasePath()
	if rel, err := filepath.Rel(base, path); err == nil && filepath.IsAbs(path) && !strings.HasPrefix(rel, "..") {
		path = rel
	}

	path = filepath.ToSlash(filepath.Clean(path))
	if strings.HasPrefix(path, "/") {
		return path
	}
	return s.baseURL + path
}

// resolve maps a folder or path relative to the storage root to an absolute path,
// rejecting anything that escapes the root.
func (s *Filesystem) resolve(rel string) (string, error) {
	base := s.BasePath()

	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" {
		return base, nil
	}

	abs := filepath.Join(base, filepath.FromSlash(rel))
	if abs != base && !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}
	return abs, nil
}

func (s *Filesystem) checkReadable(dir string) error {
	d, err := s.fs.Open(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotReadable, dir, err)
	}
	defer func() { _ = d.Close() }()

	st, err := d.Stat()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotReadable, dir, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: %s: %v", ErrNotReadable, dir, ErrNotDirectory)
	}
	return nil
}

// checkWritable creates and removes a scratch file in dir.
func (s *Filesystem) checkWritable(dir string) error {
	scratch, err := afero.TempFile(s.fs, dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, dir, err)
	}
	name := scratch.Name()
	_ = scratch.Close()
	_ = s.fs.Remove(name)
	return nil
}

func (s *Filesystem) entryExists(abs string) bool {
	_, err := s.fs.Stat(abs)
	return err == nil
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// sameFs reports whether a rename between a and b can work.
func sameFs(a, b afero.Fs) bool {
	if a == b {
		return true
	}
	_, aOs := a.(*afero.OsFs)
	_, bOs := b.(*afero.OsFs)
	return aOs && bOs
}

func moveAcross(srcFs afero.Fs, src string, dstFs afero.Fs, dst string) error {
	if err := copyFile(srcFs, src, dstFs, dst); err != nil {
		return err
	}
	if err := srcFs.Remove(src); err != nil {
		_ = dstFs.Remove(dst)
		return err
	}
	return nil
}

func copyFile(srcFs afero.Fs, src string, dstFs afero.Fs, dst string) error {
	in, err := srcFs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	st, err := in.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return ErrIsDirectory
	}

	out, err := dstFs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = dstFs.Remove(dst)
		return err
	}
	return out.Close()
}
