package file

import (
	"mime"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

const (
	mimeDirectory   = "directory"
	mimeOctetStream = "application/octet-stream"
	mimeTextPlain   = "text/plain"
)

type sniffResult struct {
	mimeType   string
	extensions []string // plausible extensions for the content, best guess first
}

// sniff detects the content type from the file's leading bytes.
func sniff(fs afero.Fs, path string) (sniffResult, error) {
	fh, err := fs.Open(path)
	if err != nil {
		return sniffResult{}, err
	}
	defer func() { _ = fh.Close() }()

	mt, err := mimetype.DetectReader(fh)
	if err != nil {
		return sniffResult{}, err
	}

	mimeType := baseMIMEType(mt.String())
	return sniffResult{
		mimeType:   mimeType,
		extensions: extensionsFor(mt.Extension(), mimeType),
	}, nil
}

// extension picks between the name-derived extension and the sniffed ones.
// The name wins when the content agrees with it or when sniffing is inconclusive.
func (r sniffResult) extension(nameExt string) string {
	if len(r.extensions) == 0 || r.mimeType == mimeOctetStream {
		return nameExt
	}
	if r.mimeType == mimeTextPlain && nameExt != "" {
		return nameExt
	}
	if slices.Contains(r.extensions, nameExt) {
		return nameExt
	}
	return r.extensions[0]
}

func extensionsFor(primary, mimeType string) []string {
	var exts []string
	add := func(ext string) {
		ext = strings.ToLower(strings.TrimPrefix(ext, "."))
		if ext != "" && !slices.Contains(exts, ext) {
			exts = append(exts, ext)
		}
	}

	add(primary)
	if more, err := mime.ExtensionsByType(mimeType); err == nil {
		for _, ext := range more {
			add(ext)
		}
	}
	return exts
}

func baseMIMEType(s string) string {
	t, _, _ := strings.Cut(s, ";")
	return strings.TrimSpace(t)
}
