// Package fetch downloads remote files over HTTP for the upload pipeline.
//
// Client follows no redirects and treats any status other than 200 as a failure.
// By default it connects within 10 seconds, gives up after 60 seconds in total and
// does not verify TLS certificates; use WithTLSVerify(true) to turn verification on.
//
//	client := fetch.New(fetch.WithMaxBytes(50 << 20))
//	tree, err := file.FromURLs(ctx, client, urls)
package fetch
