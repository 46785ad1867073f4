package file_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, content, 0o644))
}

type ownsAll bool

func (o ownsAll) Owns(string) bool { return bool(o) }

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("declared name is sanitized", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/tmp/upload_1", []byte("plain text content"))

		f := file.New("/tmp/upload_1", file.WithFs(fs), file.WithName("Résumé <draft>.TXT"))

		assert.Equal(t, "Resume draft", f.Name())
		assert.Equal(t, "txt", f.Extension())
		assert.Equal(t, "Resume draft.txt", f.DisplayName())
		assert.Equal(t, "/tmp/upload_1", f.Path())
	})

	t.Run("name defaults to path base", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/data/report.csv", []byte("a,b\n1,2\n"))

		f := file.New("/data/report.csv", file.WithFs(fs))

		assert.Equal(t, "report", f.Name())
		assert.Equal(t, "report.csv", f.DisplayName())
	})

	t.Run("sniffed extension overrides a lying name", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/tmp/x", pngBytes(t, 2, 2))

		f := file.New("/tmp/x", file.WithFs(fs), file.WithName("avatar.txt"))

		assert.Equal(t, "png", f.Extension())
		assert.Equal(t, "image/png", f.MIMEType())
		assert.Equal(t, "avatar.png", f.DisplayName())
	})

	t.Run("matching extension is kept", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/tmp/x", pngBytes(t, 1, 1))

		f := file.New("/tmp/x", file.WithFs(fs), file.WithName("avatar.PNG"))

		assert.Equal(t, "png", f.Extension())
	})

	t.Run("inconclusive sniff keeps declared extension", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/tmp/bin", []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff})
		writeFile(t, fs, "/tmp/txt", bytes.Repeat([]byte("x"), 2000))

		bin := file.New("/tmp/bin", file.WithFs(fs), file.WithName("b.jpg"))
		txt := file.New("/tmp/txt", file.WithFs(fs), file.WithName("notes.md"))

		assert.Equal(t, "jpg", bin.Extension())
		assert.Equal(t, "md", txt.Extension())
		assert.Equal(t, "text/plain", txt.MIMEType())
	})

	t.Run("missing file yields zero metadata", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()

		f := file.New("/nope", file.WithFs(fs), file.WithName("ghost.pdf"))

		assert.Equal(t, int64(0), f.Size())
		assert.True(t, f.ModTime().IsZero())
		assert.Empty(t, f.MIMEType())
		assert.Equal(t, "pdf", f.Extension())
		_, ok := f.Dimensions()
		assert.False(t, ok)
	})

	t.Run("declared size wins over stat", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/tmp/a", []byte("12345"))

		declared := file.New("/tmp/a", file.WithFs(fs), file.WithSize(42))
		statted := file.New("/tmp/a", file.WithFs(fs))

		assert.Equal(t, int64(42), declared.Size())
		assert.Equal(t, int64(5), statted.Size())
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/srv/photos", 0o755))

		f := file.New("/srv/photos", file.WithFs(fs))

		assert.True(t, f.IsDir())
		assert.Equal(t, "directory", f.MIMEType())
		assert.Equal(t, "photos", f.DisplayName())
	})

	t.Run("remote descriptor is never inspected", func(t *testing.T) {
		t.Parallel()
		mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		f := file.New("uploads/cat.jpg",
			file.WithFs(afero.NewMemMapFs()),
			file.WithRemote(),
			file.WithSize(1234),
			file.WithMIMEType("image/jpeg"),
			file.WithModTime(mod),
		)

		assert.True(t, f.IsRemote())
		assert.Equal(t, int64(1234), f.Size())
		assert.Equal(t, "image/jpeg", f.MIMEType())
		assert.Equal(t, mod, f.ModTime())
		assert.Equal(t, "cat.jpg", f.DisplayName())
	})
}

func TestNew_SamePathSameMetadata(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/tmp/up1", []byte("plain text content"))
	writeFile(t, fs, "/tmp/up2", pngBytes(t, 3, 3))

	cases := []struct {
		name    string
		path    string
		opts    []file.Option
		display string
		ext     string
		size    int64
	}{
		{"declared name and size", "/tmp/up1", []file.Option{file.WithName("Notes v2.txt"), file.WithSize(18)}, "Notes v2.txt", "txt", 18},
		{"stat size", "/tmp/up1", []file.Option{file.WithName("notes.txt")}, "notes.txt", "txt", 18},
		{"sniffed extension", "/tmp/up2", []file.Option{file.WithName("x.jpg")}, "x.png", "png", int64(len(pngBytes(t, 3, 3)))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			opts := append([]file.Option{file.WithFs(fs)}, tc.opts...)
			first := file.New(tc.path, opts...)
			second := file.New(tc.path, opts...)

			assert.Equal(t, tc.display, first.DisplayName())
			assert.Equal(t, tc.ext, first.Extension())
			assert.Equal(t, tc.size, first.Size())

			assert.Equal(t, first.DisplayName(), second.DisplayName())
			assert.Equal(t, first.Extension(), second.Extension())
			assert.Equal(t, first.Size(), second.Size())
			assert.Equal(t, first.MIMEType(), second.MIMEType())
		})
	}
}

func TestInfo_Dimensions(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/img.png", pngBytes(t, 64, 32))
	writeFile(t, fs, "/doc.txt", []byte("hello"))

	d, ok := file.New("/img.png", file.WithFs(fs)).Dimensions()
	require.True(t, ok)
	assert.Equal(t, file.Dimensions{Width: 64, Height: 32}, d)

	_, ok = file.New("/doc.txt", file.WithFs(fs)).Dimensions()
	assert.False(t, ok)
}

func TestInfo_ReplacePathAndRefresh(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.txt", []byte("short"))
	writeFile(t, fs, "/b.txt", []byte("a much longer body"))

	f := file.New("/a.txt", file.WithFs(fs), file.WithTransportUpload(ownsAll(true)))
	require.Equal(t, int64(5), f.Size())
	require.True(t, f.IsTransportUpload())

	f.ReplacePath("/b.txt", false)
	assert.Equal(t, "/b.txt", f.Path())
	assert.False(t, f.IsTransportUpload())
	assert.Equal(t, int64(5), f.Size(), "cache survives a path change")

	f.Refresh()
	assert.Equal(t, int64(18), f.Size())
}

func TestInfo_VerifiedUpload(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/tmp/up", []byte("data"))

	tests := []struct {
		name string
		opts []file.Option
		want bool
	}{
		{name: "not a transport upload", opts: nil, want: false},
		{name: "no verifier", opts: []file.Option{file.WithTransportUpload(nil)}, want: false},
		{name: "verifier rejects", opts: []file.Option{file.WithTransportUpload(ownsAll(false))}, want: false},
		{name: "verifier confirms", opts: []file.Option{file.WithTransportUpload(ownsAll(true))}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := append([]file.Option{file.WithFs(fs)}, tt.opts...)
			f := file.New("/tmp/up", opts...)
			assert.Equal(t, tt.want, f.VerifiedUpload())
		})
	}
}

func TestInfo_MarkRemote(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/tmp/up", []byte("data"))

	f := file.New("/tmp/up", file.WithFs(fs), file.WithName("doc.txt"), file.WithTransportUpload(ownsAll(true)))
	f.MarkRemote("docs/doc.txt")

	assert.True(t, f.IsRemote())
	assert.False(t, f.IsTransportUpload())
	assert.Equal(t, "docs/doc.txt", f.Path())
	assert.Equal(t, int64(4), f.Size())
}
