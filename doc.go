// Package uploadkit acquires files from HTTP uploads, remote URLs or local paths,
// validates them against a chain of rules and stores them in a pluggable backend.
//
// An Uploader works in three steps: acquire, validate and persist. Acquisition
// normalizes whatever the source looks like into a file.Tree. Validation runs a
// validation.Chain over every leaf and collects one message per failed rule. Persisting
// moves every accepted file into the backend, renaming it to "name-1.ext", "name-2.ext"
// and so on when the target already exists.
//
// Basic Usage:
//
//	u, err := uploadkit.New(ctx, "filesystem", uploadkit.Config{BasePath: "/var/uploads"})
//	if err != nil {
//		return err
//	}
//	defer u.Cleanup()
//
//	if err := u.FromRequest(r, "photos"); err != nil {
//		return err
//	}
//
//	chain, err := validation.New(
//		validation.Named("extension", "jpg", "png"),
//		validation.Named("size", "5M"),
//	)
//	if err != nil {
//		return err
//	}
//
//	ok, err := u.Upload(ctx, chain, "gallery", false)
//	if err != nil {
//		return err
//	}
//	if !ok {
//		return u.Err() // ValidationError keyed by file name
//	}
//	for _, f := range u.Stored() {
//		fmt.Println(u.URL(f))
//	}
//
// Configuration:
//
// NewFromEnv reads UPLOADKIT_* variables (and a .env file when present):
//
//	UPLOADKIT_STORAGE=s3
//	UPLOADKIT_S3_BUCKET=media
//	UPLOADKIT_S3_REGION=eu-central-1
//	UPLOADKIT_MAX_UPLOAD_SIZE=10M
//	UPLOADKIT_PARTIAL_UPLOAD=true
//
// Supported backends are listed by StorageNames. A zero Config accepts transport uploads
// and fetches URLs; UPLOADKIT_UPLOADS_DISABLED and UPLOADKIT_FETCH_DISABLED turn them off.
//
// By default a single validation failure keeps every file out of storage.
// WithPartialUpload (or UPLOADKIT_PARTIAL_UPLOAD) stores the files that pass and
// reports the rest.
//
// Transport uploads are only persisted when their temporary file was written by the
// Uploader's spool or accepted by the verifier given to WithVerifier; anything else
// aborts Upload with storage.ErrInvalidUpload.
package uploadkit
