// Package storage provides the destinations uploaded files are persisted to.
//
// Storage is implemented by Filesystem, which keeps files below a base directory on an
// afero filesystem, and by S3, which keeps them as objects in a bucket. Both confine
// every path to their root and resolve name collisions the same way: unless overwrite
// is requested, an existing "photo.jpg" makes the next file land at "photo-1.jpg", then
// "photo-2.jpg", probing from 1 on every call.
//
// Persist refuses transport uploads whose provenance cannot be verified:
//
//	fs, err := storage.NewFilesystem("/var/uploads",
//		storage.WithExcludedFolders("tmp"),
//		storage.WithBaseURL("/files/"),
//	)
//	if err != nil {
//		return err
//	}
//	if err := fs.Persist(ctx, f, "avatars", false); err != nil {
//		return err
//	}
//	url := fs.URL(f.Path())
//
// Errors are sentinel values wrapped with context; use errors.Is to test for them.
package storage
