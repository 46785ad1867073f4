package file

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Dimensions holds the pixel size of an image.
type Dimensions struct {
	Width  int
	Height int
}

// Verifier confirms that a path was produced by the transport layer.
// Storage backends consult it before trusting a transport upload as a move source.
type Verifier interface {
	Owns(path string) bool
}

// Info describes one file regardless of where its bytes came from: a transport upload,
// a fetched URL, a file already on disk, or an object in a remote bucket.
//
// Size, modification time, MIME type and image dimensions are computed at most once and
// cached. ReplacePath keeps the cache; call Refresh to recompute it explicitly.
// An Info is not safe for concurrent use.
type Info struct {
	fs        afero.Fs
	path      string
	name      string // sanitized, without extension
	ext       string // lowercase, without dot
	isDir     bool
	remote    bool
	upload    bool
	verifier  Verifier
	uploadErr UploadError

	size       int64
	sizeSet    bool
	modTime    time.Time
	modTimeSet bool
	mimeType   string
	mimeSet    bool
	dims       Dimensions
	dimsOK     bool
	dimsSet    bool
}

// Option configures a new Info.
type Option func(*options)

type options struct {
	fs        afero.Fs
	name      string
	size      int64
	uploadErr UploadError
	upload    bool
	verifier  Verifier
	remote    bool
	mimeType  string
	modTime   time.Time
	dir       bool
}

// WithName sets the client-declared file name. It is sanitized before use.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSize sets the declared size in bytes. Zero means "stat the file".
func WithSize(size int64) Option {
	return func(o *options) { o.size = size }
}

// WithUploadError records the transport error code reported for the file.
func WithUploadError(code UploadError) Option {
	return func(o *options) { o.uploadErr = code }
}

// WithTransportUpload marks the file as delivered by the transport layer.
// v answers the provenance check performed before the file is moved into storage.
func WithTransportUpload(v Verifier) Option {
	return func(o *options) {
		o.upload = true
		o.verifier = v
	}
}

// WithFs sets the filesystem the path lives on. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithRemote marks the path as a key in a remote store. Remote files are never inspected;
// their metadata comes from WithSize, WithMIMEType and WithModTime.
func WithRemote() Option {
	return func(o *options) { o.remote = true }
}

// WithDirectory marks a remote entry as a folder.
func WithDirectory() Option {
	return func(o *options) { o.dir = true }
}

// WithMIMEType presets the MIME type instead of sniffing it.
func WithMIMEType(mimeType string) Option {
	return func(o *options) { o.mimeType = mimeType }
}

// WithModTime presets the modification time.
func WithModTime(t time.Time) Option {
	return func(o *options) { o.modTime = t }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	return o
}

// New creates a descriptor for path.
//
// The declared name (or the path base when none is given) is sanitized into Name.
// The extension comes from the declared name unless content sniffing disagrees, in which
// case the sniffed extension wins. Metadata is best effort: the file may not exist yet,
// so failed inspections leave zero values instead of returning errors.
func New(path string, opts ...Option) *Info {
	o := buildOptions(opts)

	declared := o.name
	if declared == "" {
		declared = baseName(path)
	}
	cleaned := cleanName(declared)

	f := &Info{
		fs:        o.fs,
		path:      path,
		name:      stem(cleaned),
		ext:       strings.ToLower(strings.TrimPrefix(filepath.Ext(cleaned), ".")),
		remote:    o.remote,
		upload:    o.upload,
		verifier:  o.verifier,
		uploadErr: o.uploadErr,
	}

	if o.mimeType != "" {
		f.mimeType, f.mimeSet = o.mimeType, true
	}
	if !o.modTime.IsZero() {
		f.modTime, f.modTimeSet = o.modTime, true
	}
	if o.size > 0 {
		f.size, f.sizeSet = o.size, true
	}

	if f.remote {
		f.isDir = o.dir
		if f.isDir && f.mimeType == "" {
			f.mimeType = mimeDirectory
		}
		f.sizeSet, f.modTimeSet, f.mimeSet = true, true, true
		return f
	}

	f.inspect()

	return f
}

// inspect stats and sniffs the backing file. Every failure collapses to the zero value.
func (f *Info) inspect() {
	st, err := f.fs.Stat(f.path)
	if err != nil {
		// File may not exist yet (failed upload, deferred write): keep defaults.
		if !f.sizeSet {
			f.size, f.sizeSet = 0, true
		}
		return
	}

	f.isDir = st.IsDir()
	if !f.sizeSet {
		f.size, f.sizeSet = st.Size(), true
	}

	if f.isDir {
		if !f.mimeSet {
			f.mimeType, f.mimeSet = mimeDirectory, true
		}
		return
	}

	res, err := sniff(f.fs, f.path)
	if err != nil {
		return
	}
	f.ext = res.extension(f.ext)
	if !f.mimeSet {
		f.mimeType, f.mimeSet = res.mimeType, true
	}
}

// Path returns the current location of the file content.
func (f *Info) Path() string { return f.path }

// Name returns the sanitized name without extension.
func (f *Info) Name() string { return f.name }

// Extension returns the lowercase extension without the leading dot.
func (f *Info) Extension() string {
	if f.ext != "" {
		return f.ext
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.path), "."))
}

// DisplayName returns the name the file is stored under: the sanitized name plus
// extension, or the path base when no usable name was declared.
func (f *Info) DisplayName() string {
	if f.name == "" {
		return baseName(f.path)
	}
	if ext := f.Extension(); ext != "" {
		return f.name + "." + ext
	}
	return f.name
}

// Size returns the size in bytes.
func (f *Info) Size() int64 {
	if !f.sizeSet {
		f.size, f.sizeSet = 0, true
		if st, err := f.fs.Stat(f.path); err == nil {
			f.size = st.Size()
		}
	}
	return f.size
}

// ModTime returns the modification time, or the zero time when it cannot be read.
func (f *Info) ModTime() time.Time {
	if !f.modTimeSet {
		f.modTimeSet = true
		if st, err := f.fs.Stat(f.path); err == nil {
			f.modTime = st.ModTime()
		}
	}
	return f.modTime
}

// MIMEType returns the content-sniffed MIME type without parameters,
// or an empty string when detection is impossible.
func (f *Info) MIMEType() string {
	if !f.mimeSet {
		f.mimeSet = true
		if res, err := sniff(f.fs, f.path); err == nil {
			f.mimeType = res.mimeType
		}
	}
	return f.mimeType
}

// Dimensions returns the image size. ok is false when the file is not a decodable image.
func (f *Info) Dimensions() (d Dimensions, ok bool) {
	if !f.dimsSet {
		f.dimsSet = true
		if !f.remote && !f.isDir {
			f.dims, f.dimsOK = decodeDimensions(f.fs, f.path)
		}
	}
	return f.dims, f.dimsOK
}

// IsDir reports whether the path was a directory when the descriptor was created.
func (f *Info) IsDir() bool { return f.isDir }

// IsRemote reports whether the path is a key in a remote store.
func (f *Info) IsRemote() bool { return f.remote }

// UploadError returns the transport error code.
func (f *Info) UploadError() UploadError { return f.uploadErr }

// IsTransportUpload reports whether the file was delivered by the transport layer.
func (f *Info) IsTransportUpload() bool { return f.upload }

// VerifiedUpload reports whether the path is independently confirmed as a genuine
// transport upload. Descriptors built from forged metadata fail this check.
func (f *Info) VerifiedUpload() bool {
	return f.upload && f.verifier != nil && f.verifier.Owns(f.path)
}

// Fs returns the filesystem the file lives on.
func (f *Info) Fs() afero.Fs { return f.fs }

// Open opens the file content for reading.
func (f *Info) Open() (afero.File, error) {
	return f.fs.Open(f.path)
}

// ReplacePath rebinds the descriptor after its content was moved, renamed or copied.
// Cached metadata is kept; if the content changed, create a new descriptor instead.
func (f *Info) ReplacePath(path string, transportUpload bool) {
	f.path = path
	f.upload = transportUpload
}

// Relocate rebinds the descriptor to path on another filesystem after its content was
// moved there. The file is no longer considered a transport upload.
func (f *Info) Relocate(fs afero.Fs, path string) {
	if fs != nil {
		f.fs = fs
	}
	f.ReplacePath(path, false)
}

// MarkRemote rebinds the descriptor to a key in a remote store.
func (f *Info) MarkRemote(key string) {
	f.ReplacePath(key, false)
	f.remote = true
}

// Refresh drops cached metadata so it is recomputed from the current path on next access.
func (f *Info) Refresh() {
	if f.remote {
		return
	}
	f.sizeSet, f.modTimeSet, f.mimeSet, f.dimsSet = false, false, false, false
	f.dimsOK = false
	if st, err := f.fs.Stat(f.path); err == nil {
		f.isDir = st.IsDir()
	}
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(filepath.ToSlash(path))
}
