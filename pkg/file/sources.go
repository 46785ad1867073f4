package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Fetcher downloads the content of rawURL into w and returns the number of bytes written.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, w io.Writer) (int64, error)
}

// URLOption configures FromURLs.
type URLOption func(*urlOptions)

type urlOptions struct {
	fs      afero.Fs
	dir     string
	onError func(rawURL string, err error)
	opts    []Option
}

// WithTempDir sets the directory fetched files are written to.
// Defaults to the system temp directory.
func WithTempDir(dir string) URLOption {
	return func(o *urlOptions) { o.dir = dir }
}

// WithTempFs sets the filesystem fetched files are written to.
func WithTempFs(fs afero.Fs) URLOption {
	return func(o *urlOptions) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// OnFetchError registers a callback invoked for every URL that could not be fetched.
func OnFetchError(fn func(rawURL string, err error)) URLOption {
	return func(o *urlOptions) { o.onError = fn }
}

// WithFileOptions passes descriptor options to every fetched file.
func WithFileOptions(opts ...Option) URLOption {
	return func(o *urlOptions) { o.opts = append(o.opts, opts...) }
}

// FromURLs downloads every URL into a temporary file and returns a node keyed by the
// URL's position. Each descriptor is named after the last segment of the URL path.
// URLs that fail to download are skipped; when all fail the result is ErrNoData.
func FromURLs(ctx context.Context, fetcher Fetcher, urls []string, opts ...URLOption) (*Tree, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if len(urls) == 0 {
		return nil, ErrNoData
	}

	o := urlOptions{fs: afero.NewOsFs(), dir: os.TempDir()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.fs.MkdirAll(o.dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateFile, err)
	}

	node := Node()
	for i, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dst := filepath.Join(o.dir, "furl_"+strconv.Itoa(i)+"_"+uuid.NewString())
		if err := fetchTo(ctx, fetcher, o.fs, rawURL, dst); err != nil {
			_ = o.fs.Remove(dst)
			if o.onError != nil {
				o.onError(rawURL, err)
			}
			continue
		}

		fileOpts := append([]Option{WithFs(o.fs), WithName(urlBaseName(rawURL))}, o.opts...)
		node.Set(strconv.Itoa(i), Leaf(New(dst, fileOpts...)))
	}

	if node.Empty() {
		return nil, ErrNoData
	}
	return node, nil
}

func fetchTo(ctx context.Context, fetcher Fetcher, afs afero.Fs, rawURL, dst string) error {
	f, err := afs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToCreateFile, err)
	}
	_, err = fetcher.Fetch(ctx, rawURL, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %v", ErrFailedToWriteFile, closeErr)
	}
	return err
}

// urlBaseName returns the last path segment of rawURL without query or fragment.
func urlBaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// FromPaths describes files already present on fs. The result is a node keyed by the
// path's position. A missing path fails with ErrFileNotFound and a directory with
// ErrNotAFile.
func FromPaths(afs afero.Fs, paths []string, opts ...Option) (*Tree, error) {
	if len(paths) == 0 {
		return nil, ErrNoData
	}
	if afs == nil {
		afs = afero.NewOsFs()
	}

	node := Node()
	for i, p := range paths {
		st, err := afs.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
			}
			return nil, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
		}
		if st.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNotAFile, p)
		}
		fileOpts := append([]Option{WithFs(afs)}, opts...)
		node.Set(strconv.Itoa(i), Leaf(New(p, fileOpts...)))
	}
	return node, nil
}
