// Package registry provides an HTTP client for an npm-compatible registry.
//
// # Overview
//
// The client answers the two questions the bundling pipeline asks of a
// registry:
//
//   - [Client.FetchMetadata]: the package document (versions map + dist-tags)
//   - [Client.FetchTarball]: download, verify and extract one version's
//     tarball into a working directory
//
// # Usage
//
//	client := registry.NewClient(registry.Options{})
//
//	meta, err := client.FetchMetadata(ctx, "@expo/vector-icons")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m := meta.Versions["10.0.0"]
//	if err := client.FetchTarball(ctx, m, workdir); err != nil {
//	    log.Fatal(err)
//	}
//	// workdir/package now holds the package source
//
// # Retries
//
// Network failures and 5xx responses are retried with exponential backoff
// (see [Retry]). A 404 is returned immediately as [ErrNotFound].
//
// # Caching
//
// Nothing is cached. Metadata is fetched again for every request so that a
// freshly published version is always visible.
package registry
