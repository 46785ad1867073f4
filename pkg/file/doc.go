// Package file describes files entering the upload pipeline and the trees that group them.
//
// An Info is a descriptor for one file: its current path, a sanitized name, an extension
// checked against the file's content, and lazily computed metadata (size, modification
// time, MIME type and image dimensions). Descriptors are built from four kinds of sources:
//
//   - transport uploads: ParseUploads normalizes the nested mapping produced by a
//     multipart form into a Tree; Spool materializes a *multipart.Form into that mapping
//   - remote URLs: FromURLs downloads each URL through a Fetcher into a temporary file
//   - local paths: FromPaths describes files already on disk
//   - remote objects: storage backends build descriptors with WithRemote
//
// # Trees
//
// A Tree is either a leaf holding one Info or an ordered node of keyed sub-trees.
// Keys mirror the caller's addressing, so a form field "docs[]" with two files becomes
// a node "docs" with leaves "0" and "1":
//
//	spool := file.NewSpool("")
//	defer spool.Cleanup()
//
//	src, err := spool.FromRequest(r, file.DefaultMaxMemory)
//	if err != nil {
//		return err
//	}
//	tree, err := file.ParseUploads(src, spool)
//	if err != nil {
//		return err
//	}
//	docs, err := tree.Select("docs")
//
// # Provenance
//
// Transport uploads carry a Verifier. VerifiedUpload is true only when the verifier
// confirms it produced the path, so descriptors forged from client-supplied metadata
// cannot be used to move arbitrary server files into storage.
//
// # Names
//
// Declared names are never trusted. SanitizeName folds accented letters to ASCII and
// drops every character outside letters, digits, space and -_~,;:[]().
// When content sniffing disagrees with the declared extension, the sniffed one wins;
// inconclusive results (application/octet-stream, or text/plain for a name that
// already has an extension) keep the declared one.
//
// # Sizes
//
// SizeToHuman and ParseSize convert between byte counts and short human strings.
// They are intentionally asymmetric: formatting uses base 1000, parsing base 1024.
package file
