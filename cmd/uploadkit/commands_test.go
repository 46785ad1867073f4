package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit"
	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/storage"
)

type harness struct {
	fs     afero.Fs
	out    *bytes.Buffer
	errOut *bytes.Buffer
	app    *app
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))

	h := &harness{fs: fs, out: new(bytes.Buffer), errOut: new(bytes.Buffer)}
	h.app = newApp(h.out, h.errOut)
	h.app.fs = fs
	h.app.loadConfig = func() (uploadkit.Config, error) {
		return uploadkit.Config{Storage: "filesystem", BaseURL: "/files", LogLevel: "error"}, nil
	}
	h.app.open = func(_ context.Context, _ uploadkit.Config, log *slog.Logger, opts ...uploadkit.Option) (*uploadkit.Uploader, error) {
		s, err := storage.NewFilesystem("/data", storage.WithFs(fs), storage.WithBaseURL("/files"))
		if err != nil {
			return nil, err
		}
		base := []uploadkit.Option{
			uploadkit.WithLogger(log),
			uploadkit.WithFs(fs),
			uploadkit.WithSpool(file.NewSpool("/spool", file.WithSpoolFs(fs))),
		}
		return uploadkit.NewWithStorage(s, append(base, opts...)...)
	}
	return h
}

func (h *harness) run(args ...string) error {
	root := newRootCommand(h.app)
	root.SetArgs(args)
	root.SetOut(h.out)
	root.SetErr(h.errOut)
	return root.ExecuteContext(context.Background())
}

func (h *harness) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(h.fs, path, []byte(content), 0o644))
}

func TestListCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.write(t, "/data/docs/readme.txt", "hello")
	require.NoError(t, h.fs.MkdirAll("/data/docs/archive", 0o755))

	require.NoError(t, h.run("ls", "docs"))
	out := h.out.String()
	assert.Contains(t, out, "archive/")
	assert.Contains(t, out, "readme.txt")
	assert.Contains(t, out, "5 B")
	assert.Contains(t, out, "/files/docs/readme.txt")
	assert.Less(t, bytes.Index(h.out.Bytes(), []byte("archive/")), bytes.Index(h.out.Bytes(), []byte("readme.txt")))

	h.out.Reset()
	require.NoError(t, h.run("ls", "docs", "--no-folders"))
	assert.NotContains(t, h.out.String(), "archive/")
}

func TestImportCommand(t *testing.T) {
	t.Parallel()

	t.Run("stores valid files", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.write(t, "/in/a.txt", "alpha")
		h.write(t, "/rules.yaml", "extension: [txt]\n")

		require.NoError(t, h.run("import", "/in/a.txt", "--folder", "notes", "--rules", "/rules.yaml"))
		assert.Contains(t, h.out.String(), "/files/notes/a.txt")

		ok, err := afero.Exists(h.fs, "/data/notes/a.txt")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejects invalid files", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.write(t, "/in/a.txt", "alpha")
		h.write(t, "/in/b.jpg", "bravo")
		h.write(t, "/rules.yaml", "extension: [jpg]\n")

		err := h.run("import", "/in/a.txt", "/in/b.jpg", "--rules", "/rules.yaml")
		assert.True(t, errors.Is(err, errRejected))
		assert.Contains(t, h.errOut.String(), "a.txt: invalid file extension, must be one of: jpg")
		assert.Empty(t, h.out.String())
	})

	t.Run("partial stores what passes", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.write(t, "/in/a.txt", "alpha")
		h.write(t, "/in/b.jpg", "bravo")
		h.write(t, "/rules.yaml", "extension: [jpg]\n")

		err := h.run("import", "/in/a.txt", "/in/b.jpg", "--rules", "/rules.yaml", "--partial")
		assert.ErrorIs(t, err, errRejected)
		assert.Contains(t, h.out.String(), "/files/b.jpg")
	})

	t.Run("missing rules file", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.write(t, "/in/a.txt", "alpha")
		err := h.run("import", "/in/a.txt", "--rules", "/nope.yaml")
		assert.ErrorContains(t, err, "reading rules")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		err := h.run("import", "/in/ghost.txt")
		assert.ErrorIs(t, err, file.ErrFileNotFound)
	})

	t.Run("requires a path", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		assert.Error(t, h.run("import"))
	})
}

func TestFetchCommand_NothingFetched(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	err := h.run("fetch", "ftp://example.com/a.txt")
	assert.ErrorIs(t, err, file.ErrNoData)
}

func TestRulesCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	require.NoError(t, h.run("rules"))
	out := h.out.String()
	assert.Contains(t, out, "extension")
	assert.Contains(t, out, "dimension")
	assert.Contains(t, out, "filesystem (active)")
	assert.Contains(t, out, "s3")
}

func TestSetup_ConfigError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.app.loadConfig = func() (uploadkit.Config, error) { return uploadkit.Config{}, errors.New("boom") }
	assert.EqualError(t, h.run("rules"), "boom")
}

func TestLogsCarryRunID(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.app.loadConfig = func() (uploadkit.Config, error) {
		return uploadkit.Config{Storage: "filesystem", LogLevel: "info", LogFormat: "json"}, nil
	}
	h.write(t, "/in/a.txt", "alpha")

	require.NoError(t, h.run("import", "/in/a.txt"))
	assert.Contains(t, h.errOut.String(), `"msg":"file stored"`)
	assert.Contains(t, h.errOut.String(), `"run_id":"`)
}

func TestSetup_LoggingPresets(t *testing.T) {
	t.Parallel()

	t.Run("production env logs json with service attrs", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.app.loadConfig = func() (uploadkit.Config, error) {
			return uploadkit.Config{Storage: "filesystem", Env: "production"}, nil
		}
		h.write(t, "/in/a.txt", "alpha")

		require.NoError(t, h.run("import", "/in/a.txt"))
		logs := h.errOut.String()
		assert.Contains(t, logs, `"service":"uploadkit"`)
		assert.Contains(t, logs, `"env":"production"`)
		assert.Contains(t, logs, `"command":"import"`)
		assert.NotContains(t, logs, `"source":`)
	})

	t.Run("verbose adds source locations", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.app.loadConfig = func() (uploadkit.Config, error) {
			return uploadkit.Config{Storage: "filesystem", Env: "production", LogLevel: "error"}, nil
		}
		h.write(t, "/in/a.txt", "alpha")

		require.NoError(t, h.run("import", "/in/a.txt", "--verbose"))
		logs := h.errOut.String()
		assert.Contains(t, logs, `"msg":"file stored"`)
		assert.Contains(t, logs, `"source":`)
	})

	t.Run("explicit format overrides the preset", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.app.loadConfig = func() (uploadkit.Config, error) {
			return uploadkit.Config{Storage: "filesystem", Env: "production", LogFormat: "text"}, nil
		}
		h.write(t, "/in/a.txt", "alpha")

		require.NoError(t, h.run("import", "/in/a.txt"))
		assert.Contains(t, h.errOut.String(), `msg="file stored"`)
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.app.loadConfig = func() (uploadkit.Config, error) {
			return uploadkit.Config{Storage: "filesystem", LogFormat: "xml"}, nil
		}
		assert.ErrorIs(t, h.run("rules"), errLogFormat)
	})
}

func TestEnvFileFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.env")
	require.NoError(t, os.WriteFile(path, []byte("UPLOADKIT_CLI_MARKER=from-file\n"), 0o600))

	run := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		h := newHarness(t)
		var seen string
		h.app.loadConfig = func() (uploadkit.Config, error) {
			seen = os.Getenv("UPLOADKIT_CLI_MARKER")
			return uploadkit.Config{Storage: "filesystem", LogLevel: "error"}, nil
		}
		err := h.run(append([]string{"rules"}, args...)...)
		return seen, err
	}

	t.Run("process environment wins", func(t *testing.T) {
		t.Setenv("UPLOADKIT_CLI_MARKER", "from-env")
		seen, err := run(t, "--env-file", path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", seen)
	})

	t.Run("override replaces set variables", func(t *testing.T) {
		t.Setenv("UPLOADKIT_CLI_MARKER", "from-env")
		seen, err := run(t, "--env-file", path, "--env-override")
		require.NoError(t, err)
		assert.Equal(t, "from-file", seen)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, "--env-file", filepath.Join(t.TempDir(), "nope.env"))
		assert.ErrorContains(t, err, "loading env files")
	})
}
