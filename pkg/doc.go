// Package pkg provides the libraries behind snackpack, a bundler that turns
// registry packages into per-platform bundles for a React Native preview
// runtime.
//
// # Overview
//
// A request names a package, a version tag, an optional deep import and the
// platforms to build. The libraries are layered:
//
//  1. [spec] parses the request
//  2. [registry] fetches metadata and tarballs
//  3. [resolve] picks the version and classifies dependencies
//  4. [install] installs the dependencies that get bundled
//  5. [bundler] builds one bundle per platform with esbuild
//  6. [bundleinfo] describes each artifact and cross-checks its imports
//
// [pipeline] drives these stages; [lock], [store] and [workdir] give it
// exclusivity, publication and scratch space. [server] and the CLI are the
// two entry points, both configured through [config].
//
// # Data Flow
//
//	request string
//	     ↓
//	[spec] → [registry] metadata → [resolve] version + classification
//	     ↓
//	[registry] tarball → [install] bundled set
//	     ↓
//	[bundler] ios | android | web   (concurrently)
//	     ↓
//	[bundleinfo] BundledPackage  →  [store] sink
package pkg
