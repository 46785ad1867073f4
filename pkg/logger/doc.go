// Package logger provides a context-aware wrapper around log/slog with functional
// options and attribute helpers shared by every uploadkit component.
//
// New builds a *slog.Logger. Options select the format (text or json), the minimum
// level, static attributes and ContextExtractor callbacks that pull values such as
// a run id out of context.Context on every record:
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "uploadkit"),
//		logger.WithContextValue("run_id", runIDKey{}),
//	)
//	log.InfoContext(ctx, "file stored",
//		logger.File(f.DisplayName()),
//		logger.Folder("avatars"),
//		logger.Size(f.Size()),
//	)
//
// Helpers such as File, Folder, Size and Error keep attribute keys consistent.
// Error and Errors return an empty Attr for nil errors, so they can be passed
// unconditionally.
//
// Components accept a logger through their options and fall back to Discard.
package logger
