package uploadkit

import (
	"log/slog"

	"github.com/spf13/afero"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

// Option configures an Uploader.
type Option func(*Uploader)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithFetcher sets the client used by FromURL. A nil fetcher disables URL sources.
func WithFetcher(f file.Fetcher) Option {
	return func(u *Uploader) {
		u.fetcher = f
		u.fetcherSet = true
	}
}

// WithSpool sets the spool that materializes multipart uploads for FromRequest.
// It also becomes the provenance verifier for FromUploads unless WithVerifier is given.
func WithSpool(s *file.Spool) Option {
	return func(u *Uploader) {
		if s != nil {
			u.spool = s
		}
	}
}

// WithVerifier sets the provenance check attached to transport uploads passed to
// FromUploads. Use it when the upload source was produced outside the Uploader's spool.
func WithVerifier(v file.Verifier) Option {
	return func(u *Uploader) { u.verifier = v }
}

// WithUploadsEnabled toggles transport uploads. When disabled, FromUploads and
// FromRequest fail with ErrUploadsDisabled.
func WithUploadsEnabled(enabled bool) Option {
	return func(u *Uploader) { u.uploadsEnabled = enabled }
}

// WithPartialUpload makes Upload persist every file that passes validation even when
// other files fail. By default a single failure keeps every file out of storage.
func WithPartialUpload(partial bool) Option {
	return func(u *Uploader) { u.partial = partial }
}

// WithMaxMemory bounds the part of a multipart form kept in memory by FromRequest.
func WithMaxMemory(n int64) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.maxMemory = n
		}
	}
}

// WithMaxFileSize rejects spooled uploads larger than n bytes with an ini-size upload
// error. It applies to the default spool only.
func WithMaxFileSize(n int64) Option {
	return func(u *Uploader) {
		if n >= 0 {
			u.maxFileSize = n
		}
	}
}

// WithFs sets the filesystem FromPaths reads from and FromURL downloads to.
// Defaults to the OS filesystem.
func WithFs(afs afero.Fs) Option {
	return func(u *Uploader) {
		if afs != nil {
			u.fs = afs
		}
	}
}

// WithTempDir sets the directory FromURL downloads to. Defaults to the OS temp dir.
func WithTempDir(dir string) Option {
	return func(u *Uploader) {
		if dir != "" {
			u.tempDir = dir
		}
	}
}
