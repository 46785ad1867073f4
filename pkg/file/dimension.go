package file

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeDimensions decodes only the image header.
func decodeDimensions(fs afero.Fs, path string) (Dimensions, bool) {
	fh, err := fs.Open(path)
	if err != nil {
		return Dimensions{}, false
	}
	defer func() { _ = fh.Close() }()

	cfg, _, err := image.DecodeConfig(fh)
	if err != nil {
		return Dimensions{}, false
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, true
}
