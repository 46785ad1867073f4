package file_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

func TestUploadError_Message(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code file.UploadError
		want string
	}{
		{file.UploadErrOK, "The file uploaded successfully"},
		{file.UploadErrIniSize, "The uploaded file exceeds the maximum allowed upload size"},
		{file.UploadErrFormSize, "The uploaded file exceeds the maximum size specified in the form"},
		{file.UploadErrPartial, "The uploaded file was only partially uploaded"},
		{file.UploadErrNoFile, "No file was uploaded"},
		{file.UploadErrNoTmpDir, "Missing a temporary folder"},
		{file.UploadErrCantWrite, "Failed to write file to disk"},
		{file.UploadErrExtension, "A server extension stopped the file upload"},
		{file.UploadError(5), "Unknown upload error (code 5)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.Message())
	}
	assert.True(t, file.UploadErrOK.OK())
	assert.False(t, file.UploadErrPartial.OK())
}

func TestParseUploads(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/tmp/up1", []byte("first"))
	writeFile(t, fs, "/tmp/up2", []byte("second file"))
	writeFile(t, fs, "/tmp/up3", []byte("third"))

	t.Run("empty source", func(t *testing.T) {
		t.Parallel()
		_, err := file.ParseUploads(file.UploadSource{}, nil)
		assert.ErrorIs(t, err, file.ErrNoData)
	})

	t.Run("flat record map", func(t *testing.T) {
		t.Parallel()
		src := file.UploadSource{
			"avatar": map[string]any{
				"name":     "me.txt",
				"size":     5,
				"type":     "text/plain",
				"tmp_name": "/tmp/up1",
				"error":    0,
			},
		}

		tree, err := file.ParseUploads(src, ownsAll(true), file.WithFs(fs))
		require.NoError(t, err)

		avatar, err := tree.Select("avatar")
		require.NoError(t, err)
		require.True(t, avatar.IsLeaf())

		f := avatar.File()
		assert.Equal(t, "me.txt", f.DisplayName())
		assert.Equal(t, "/tmp/up1", f.Path())
		assert.Equal(t, int64(5), f.Size())
		assert.True(t, f.IsTransportUpload())
		assert.True(t, f.VerifiedUpload())
		assert.True(t, f.UploadError().OK())
	})

	t.Run("parallel arrays", func(t *testing.T) {
		t.Parallel()
		src := file.UploadSource{
			"docs": map[string]any{
				"name":     []any{"a.txt", "b.txt"},
				"size":     []any{5, 11},
				"type":     []any{"text/plain", "text/plain"},
				"tmp_name": []any{"/tmp/up1", "/tmp/up2"},
				"error":    []any{0, 3},
			},
		}

		tree, err := file.ParseUploads(src, ownsAll(true), file.WithFs(fs))
		require.NoError(t, err)

		docs, err := tree.Select("docs")
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "1"}, docs.Keys())

		second, _ := docs.Child("1")
		assert.Equal(t, "b.txt", second.File().DisplayName())
		assert.Equal(t, file.UploadErrPartial, second.File().UploadError())
	})

	t.Run("nested parallel arrays", func(t *testing.T) {
		t.Parallel()
		src := file.UploadSource{
			"user": map[string]any{
				"name":     map[string]any{"avatar": "me.txt", "cover": "bg.txt"},
				"size":     map[string]any{"avatar": 5, "cover": 11},
				"type":     map[string]any{"avatar": "", "cover": ""},
				"tmp_name": map[string]any{"avatar": "/tmp/up1", "cover": "/tmp/up2"},
				"error":    map[string]any{"avatar": 0, "cover": 0},
			},
		}

		tree, err := file.ParseUploads(src, ownsAll(true), file.WithFs(fs))
		require.NoError(t, err)

		user, err := tree.Select("user")
		require.NoError(t, err)
		assert.Equal(t, []string{"avatar", "cover"}, user.Keys())
		assert.Equal(t, 2, tree.Len())
	})

	t.Run("nested fields and records", func(t *testing.T) {
		t.Parallel()
		src := file.UploadSource{
			"gallery": file.UploadSource{
				"10": file.Record{Name: "ten.txt", TmpPath: "/tmp/up3"},
				"2":  &file.Record{Name: "two.txt", TmpPath: "/tmp/up2"},
			},
			"attachments": []file.Record{
				{Name: "one.txt", TmpPath: "/tmp/up1"},
			},
		}

		tree, err := file.ParseUploads(src, ownsAll(true), file.WithFs(fs))
		require.NoError(t, err)

		assert.Equal(t, []string{"attachments", "gallery"}, tree.Keys())
		gallery, err := tree.Select("gallery")
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "10"}, gallery.Keys(), "numeric keys sort naturally")
	})

	t.Run("decoded json", func(t *testing.T) {
		t.Parallel()
		raw := `{"file":{"name":"me.txt","size":5,"type":"text/plain","tmp_name":"/tmp/up1","error":0}}`
		var src file.UploadSource
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		require.NoError(t, dec.Decode(&src))

		tree, err := file.ParseUploads(src, nil, file.WithFs(fs))
		require.NoError(t, err)
		leaf, err := tree.Select("file")
		require.NoError(t, err)
		assert.Equal(t, int64(5), leaf.File().Size())
		assert.False(t, leaf.File().VerifiedUpload(), "no verifier means unverified")
	})

	t.Run("malformed size", func(t *testing.T) {
		t.Parallel()
		src := file.UploadSource{
			"f": map[string]any{"name": "a.txt", "size": "huge", "tmp_name": "/tmp/up1", "error": 0},
		}
		_, err := file.ParseUploads(src, nil, file.WithFs(fs))
		assert.ErrorIs(t, err, file.ErrInvalidField)
	})

	t.Run("unsupported value", func(t *testing.T) {
		t.Parallel()
		_, err := file.ParseUploads(file.UploadSource{"f": 42}, nil)
		assert.ErrorIs(t, err, file.ErrInvalidField)
	})

	t.Run("only empty groups", func(t *testing.T) {
		t.Parallel()
		_, err := file.ParseUploads(file.UploadSource{"f": map[string]any{}}, nil)
		assert.ErrorIs(t, err, file.ErrNoData)
	})
}
