package uploadkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/dmitrymomot/uploadkit/pkg/fetch"
	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
	"github.com/dmitrymomot/uploadkit/pkg/storage"
	"github.com/dmitrymomot/uploadkit/pkg/validation"
)

// Uploader acquires files from one source, validates them and persists them into a
// storage backend.
//
// An Uploader keeps the acquired tree and the results of the last Upload call, so it is
// not safe for concurrent use. Create one per request.
type Uploader struct {
	storage storage.Storage
	logger  *slog.Logger

	fetcher    file.Fetcher
	fetcherSet bool
	spool      *file.Spool
	verifier   file.Verifier
	fs         afero.Fs
	tempDir    string

	uploadsEnabled bool
	partial        bool
	maxMemory      int64
	maxFileSize    int64

	source     *file.Tree
	stored     []*file.Info
	violations validation.Violations
}

// New creates an Uploader backed by the storage registered under name.
// Unknown names fail with ErrStorageNotSupported.
func New(ctx context.Context, name string, cfg Config, opts ...Option) (*Uploader, error) {
	opts = append(cfg.options(), opts...)

	// The storage shares the Uploader's logger, so options are resolved first.
	resolved := defaults()
	for _, opt := range opts {
		opt(resolved)
	}

	s, err := NewStorage(ctx, name, cfg, resolved.logger.With(logger.Component("storage")))
	if err != nil {
		return nil, err
	}
	return NewWithStorage(s, opts...)
}

// NewFromEnv creates an Uploader from UPLOADKIT_* environment variables.
func NewFromEnv(ctx context.Context, opts ...Option) (*Uploader, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg.Storage, cfg, opts...)
}

// NewWithStorage creates an Uploader around a pre-built storage backend.
func NewWithStorage(s storage.Storage, opts ...Option) (*Uploader, error) {
	if s == nil {
		return nil, ErrNilStorage
	}

	u := defaults()
	u.storage = s
	for _, opt := range opts {
		opt(u)
	}

	if !u.fetcherSet {
		u.fetcher = fetch.New()
	}
	if u.spool == nil {
		u.spool = file.NewSpool(filepath.Join(u.tempDir, "uploadkit"),
			file.WithMaxFileSize(u.maxFileSize),
			file.WithSpoolLogger(u.logger.With(logger.Component("spool"))),
		)
	}
	if u.verifier == nil {
		u.verifier = u.spool
	}

	return u, nil
}

func defaults() *Uploader {
	return &Uploader{
		logger:         logger.Discard(),
		fs:             afero.NewOsFs(),
		tempDir:        os.TempDir(),
		uploadsEnabled: true,
		maxMemory:      file.DefaultMaxMemory,
	}
}

// FromUploads acquires files from a transport upload source whose temp paths live on
// the Uploader's filesystem. When key is not empty only the sub-tree under that field
// is kept.
func (u *Uploader) FromUploads(src file.UploadSource, key string) error {
	if !u.uploadsEnabled {
		return ErrUploadsDisabled
	}

	tree, err := file.ParseUploads(src, u.verifier, file.WithFs(u.fs))
	if err != nil {
		return err
	}
	return u.setSource(tree, key)
}

// FromRequest spools the multipart files of r and acquires them like FromUploads.
func (u *Uploader) FromRequest(r *http.Request, key string) error {
	if !u.uploadsEnabled {
		return ErrUploadsDisabled
	}

	src, err := u.spool.FromRequest(r, u.maxMemory)
	if err != nil {
		return err
	}

	tree, err := file.ParseUploads(src, u.spool, file.WithFs(u.spool.Fs()))
	if err != nil {
		return err
	}
	return u.setSource(tree, key)
}

// FromURL downloads every URL into the temp directory and acquires the results.
// URLs that fail are logged and skipped; ErrNoData is returned when all of them fail.
// Downloaded files that are never persisted stay in the temp directory.
func (u *Uploader) FromURL(ctx context.Context, urls ...string) error {
	if u.fetcher == nil {
		return ErrFetchUnsupported
	}

	tree, err := file.FromURLs(ctx, u.fetcher, urls,
		file.WithTempFs(u.fs),
		file.WithTempDir(u.tempDir),
		file.OnFetchError(func(rawURL string, err error) {
			u.logger.WarnContext(ctx, "failed to fetch file", logger.URL(rawURL), logger.Error(err))
		}),
	)
	if err != nil {
		return err
	}
	return u.setSource(tree, "")
}

// FromPaths acquires files that already exist on the Uploader's filesystem.
func (u *Uploader) FromPaths(paths ...string) error {
	tree, err := file.FromPaths(u.fs, paths)
	if err != nil {
		return err
	}
	return u.setSource(tree, "")
}

// FromTree acquires a tree built elsewhere.
func (u *Uploader) FromTree(tree *file.Tree) error {
	return u.setSource(tree, "")
}

func (u *Uploader) setSource(tree *file.Tree, key string) error {
	if key != "" {
		sub, err := tree.Select(key)
		if err != nil {
			return err
		}
		tree = sub
	}
	if tree.Empty() {
		return file.ErrNoData
	}

	u.source = tree
	return nil
}

// Files lists folder in the storage backend.
func (u *Uploader) Files(ctx context.Context, folder string, includeFolders bool) ([]*file.Info, error) {
	return u.storage.List(ctx, folder, includeFolders)
}

// Upload validates the acquired files with chain and persists them into folder.
//
// A nil chain applies no rules, but files whose transport reported an error still fail.
// By default any failure keeps every file out of storage; with WithPartialUpload the
// files that pass are persisted anyway. The result reports whether no validation error
// occurred; the messages are available from Errors.
//
// Once persisting starts, cancellation of ctx is ignored. A file the backend fails to
// move is logged and left out of Stored without producing a validation error. Any other
// storage error aborts the call.
//
// Results of a previous call are discarded.
func (u *Uploader) Upload(ctx context.Context, chain *validation.Chain, folder string, overwrite bool) (bool, error) {
	if u.source == nil {
		return false, ErrNoFiles
	}
	if chain == nil {
		chain = new(validation.Chain)
	}

	u.stored = nil
	u.violations = nil
	start := time.Now()

	var accepted []*file.Info
	if u.partial {
		for _, f := range u.source.Files() {
			vs := chain.Check(f)
			if len(vs) > 0 {
				u.violations = append(u.violations, vs...)
				continue
			}
			accepted = append(accepted, f)
		}
	} else {
		if !chain.Validate(u.source) {
			u.violations = chain.Violations()
			errs := make([]error, len(u.violations))
			for i, v := range u.violations {
				errs[i] = v
			}
			u.logger.InfoContext(ctx, "upload rejected",
				logger.Count(len(u.violations)),
				logger.Errors(errs...),
			)
			return false, nil
		}
		accepted = u.source.Files()
	}

	persistCtx := context.WithoutCancel(ctx)
	skipped := 0
	for _, f := range accepted {
		persistStart := time.Now()
		if err := u.storage.Persist(persistCtx, f, folder, overwrite); err != nil {
			if errors.Is(err, storage.ErrFailedToMoveFile) {
				skipped++
				u.logger.WarnContext(ctx, "file not stored",
					logger.File(f.DisplayName()),
					logger.Folder(folder),
					logger.Error(err),
				)
				continue
			}
			return false, fmt.Errorf("persisting %s: %w", f.DisplayName(), err)
		}

		u.stored = append(u.stored, f)
		u.logger.InfoContext(ctx, "file stored",
			logger.File(f.DisplayName()),
			logger.Folder(folder),
			logger.Size(f.Size()),
			logger.URL(u.storage.URL(f.Path())),
			logger.Duration(time.Since(persistStart)),
		)
	}

	u.logger.InfoContext(ctx, "upload finished",
		logger.Folder(folder),
		logger.Group("files",
			slog.Int("stored", len(u.stored)),
			slog.Int("skipped", skipped),
			slog.Int("violations", len(u.violations)),
		),
		logger.Duration(time.Since(start)),
	)
	return u.violations.IsEmpty(), nil
}

// Stored returns the files persisted by the last Upload call, in tree order.
func (u *Uploader) Stored() []*file.Info {
	return append([]*file.Info(nil), u.stored...)
}

// Errors returns the validation messages of the last Upload call as "<file>: <message>".
func (u *Uploader) Errors() []string {
	return u.violations.Strings()
}

// Violations returns the structured validation findings of the last Upload call.
func (u *Uploader) Violations() validation.Violations {
	return append(validation.Violations(nil), u.violations...)
}

// Err returns the findings of the last Upload call as a ValidationError, or nil.
func (u *Uploader) Err() error {
	if u.violations.IsEmpty() {
		return nil
	}
	return FromViolations(u.violations)
}

// Source returns the acquired tree, or nil before any acquisition.
func (u *Uploader) Source() *file.Tree { return u.source }

// Storage returns the storage backend.
func (u *Uploader) Storage() storage.Storage { return u.storage }

// URL returns the public URL of a stored file.
func (u *Uploader) URL(f *file.Info) string {
	return u.storage.URL(f.Path())
}

// Cleanup removes spooled uploads that were never persisted.
func (u *Uploader) Cleanup() error {
	return u.spool.Cleanup()
}
