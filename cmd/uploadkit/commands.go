package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/uploadkit"
	"github.com/dmitrymomot/uploadkit/pkg/config"
	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
	"github.com/dmitrymomot/uploadkit/pkg/validation"
)

var (
	// errRejected is returned when at least one file failed validation.
	errRejected  = errors.New("upload rejected")
	errLogFormat = errors.New("invalid log format")
)

// opener builds the Uploader a command works with.
type opener func(ctx context.Context, cfg uploadkit.Config, log *slog.Logger, opts ...uploadkit.Option) (*uploadkit.Uploader, error)

type app struct {
	out    io.Writer
	errOut io.Writer
	fs     afero.Fs

	loadConfig func() (uploadkit.Config, error)
	open       opener

	cfg         uploadkit.Config
	log         *slog.Logger
	verbose     bool
	envFiles    []string
	envOverride bool
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:        out,
		errOut:     errOut,
		fs:         afero.NewOsFs(),
		loadConfig: uploadkit.LoadConfig,
		open: func(ctx context.Context, cfg uploadkit.Config, log *slog.Logger, opts ...uploadkit.Option) (*uploadkit.Uploader, error) {
			return uploadkit.New(ctx, cfg.Storage, cfg, append([]uploadkit.Option{uploadkit.WithLogger(log)}, opts...)...)
		},
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "uploadkit",
		Short: "Validate and store files in a configured storage backend.",
		Long: `uploadkit fetches remote files or imports local ones, validates them against a set
of rules and stores them in the backend selected by UPLOADKIT_STORAGE.

Configuration is read from UPLOADKIT_* environment variables and an optional .env file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level with source locations")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "Load variables from these .env files before reading the configuration")
	root.PersistentFlags().BoolVar(&a.envOverride, "env-override", false, "Let --env-file values replace variables already set")

	root.AddCommand(newListCommand(a))
	root.AddCommand(newFetchCommand(a))
	root.AddCommand(newImportCommand(a))
	root.AddCommand(newRulesCommand(a))

	return root
}

// runIDKey carries the id of one command invocation; every log record includes it.
type runIDKey struct{}

func (a *app) setup(cmd *cobra.Command) error {
	if err := a.loadEnvFiles(); err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "uploadkit"),
		logger.WithOutput(a.errOut),
		logger.WithAttr(slog.String("command", cmd.Name())),
		logger.WithContextValue("run_id", runIDKey{}),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "":
	case string(logger.FormatJSON):
		opts = append(opts, logger.WithJSONFormatter())
	case string(logger.FormatText):
		opts = append(opts, logger.WithTextFormatter())
	default:
		return fmt.Errorf("%w %q: must be %q or %q", errLogFormat, cfg.LogFormat, logger.FormatJSON, logger.FormatText)
	}
	if a.verbose {
		opts = append(opts, logger.WithHandlerOptions(&slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true}))
	}

	a.cfg = cfg
	a.log = logger.New(opts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, runIDKey{}, uuid.NewString()))
	return nil
}

func (a *app) loadEnvFiles() error {
	if len(a.envFiles) == 0 {
		return nil
	}
	if a.envOverride {
		return config.OverloadEnv(a.envFiles...)
	}
	return config.LoadEnv(a.envFiles...)
}

func newListCommand(a *app) *cobra.Command {
	var noFolders bool

	cmd := &cobra.Command{
		Use:   "ls [folder]",
		Short: "List files stored in a folder",
		Long: `List the entries of a folder in the storage backend, folders first.

Examples:
  uploadkit ls
  uploadkit ls avatars --no-folders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}
			return a.list(cmd.Context(), folder, !noFolders)
		},
	}
	cmd.Flags().BoolVar(&noFolders, "no-folders", false, "Hide sub-folders")
	return cmd
}

func (a *app) list(ctx context.Context, folder string, includeFolders bool) error {
	u, err := a.open(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}

	entries, err := u.Files(ctx, folder, includeFolders)
	if err != nil {
		return err
	}

	for _, f := range entries {
		if f.IsDir() {
			fmt.Fprintf(a.out, "%-10s %s/\n", "dir", f.DisplayName())
			continue
		}
		modified := "-"
		if t := f.ModTime(); !t.IsZero() {
			modified = humanize.Time(t)
		}
		fmt.Fprintf(a.out, "%-10s %s\t%s\t%s\n", humanize.Bytes(uint64(max(f.Size(), 0))), f.DisplayName(), modified, u.URL(f))
	}
	return nil
}

// storeFlags are shared by commands that persist files.
type storeFlags struct {
	folder    string
	rules     string
	overwrite bool
	partial   bool
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.folder, "folder", "f", "", "Destination folder inside the storage root")
	cmd.Flags().StringVarP(&f.rules, "rules", "r", "", "YAML file with validation rules")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "Replace existing files instead of renaming")
	cmd.Flags().BoolVar(&f.partial, "partial", false, "Store the files that pass even when others fail")
}

func newFetchCommand(a *app) *cobra.Command {
	var flags storeFlags

	cmd := &cobra.Command{
		Use:   "fetch <url>...",
		Short: "Download remote files and store them",
		Long: `Download every URL, validate the results and store them.
URLs that cannot be fetched are skipped with a warning.

Examples:
  uploadkit fetch https://example.com/a.png https://example.com/b.png --folder images
  uploadkit fetch https://example.com/logo.svg --rules rules.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store(cmd.Context(), flags, func(u *uploadkit.Uploader) error {
				return u.FromURL(cmd.Context(), args...)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	var flags storeFlags

	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Move local files into storage",
		Long: `Validate local files and move them into the storage backend.
Files that are stored no longer exist at their original path.

Examples:
  uploadkit import ./scan-01.pdf ./scan-02.pdf --folder scans --rules rules.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store(cmd.Context(), flags, func(u *uploadkit.Uploader) error {
				return u.FromPaths(args...)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) store(ctx context.Context, flags storeFlags, acquire func(*uploadkit.Uploader) error) error {
	chain, err := a.readRules(flags.rules)
	if err != nil {
		return err
	}

	var opts []uploadkit.Option
	if flags.partial {
		opts = append(opts, uploadkit.WithPartialUpload(true))
	}
	u, err := a.open(ctx, a.cfg, a.log, opts...)
	if err != nil {
		return err
	}

	if err := acquire(u); err != nil {
		if errors.Is(err, file.ErrNoData) {
			return fmt.Errorf("nothing to store: %w", err)
		}
		return err
	}

	ok, err := u.Upload(ctx, chain, flags.folder, flags.overwrite)
	if err != nil {
		return err
	}

	for _, f := range u.Stored() {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", f.DisplayName(), humanize.Bytes(uint64(max(f.Size(), 0))), u.URL(f))
	}
	if !ok {
		for _, msg := range u.Errors() {
			fmt.Fprintln(a.errOut, msg)
		}
		return errRejected
	}
	return nil
}

func (a *app) readRules(path string) (*validation.Chain, error) {
	if path == "" {
		return nil, nil
	}
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return validation.ParseYAML(data)
}

func newRulesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List validation rules and storage backends",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintln(a.out, "Rules:")
			for _, name := range validation.RuleNames() {
				fmt.Fprintf(a.out, "  %s\n", name)
			}
			fmt.Fprintln(a.out, "Storage backends:")
			for _, name := range uploadkit.StorageNames() {
				marker := ""
				if name == a.cfg.Storage {
					marker = " (active)"
				}
				fmt.Fprintf(a.out, "  %s%s\n", name, marker)
			}
			return nil
		},
	}
}
