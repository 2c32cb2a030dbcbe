// Package store publishes finished bundles to a durable sink.
//
// Publication is write-only: the pipeline never reads a published package
// back, so a sink cannot turn into a cross-request cache.
//
// Backends:
//   - [Null]: discards everything (default)
//   - [File]: one JSON document per package version
//   - [Mongo]: one document per package version, upserted
package store

import (
	"context"

	"github.com/matzehuels/snackpack/pkg/bundleinfo"
)

// Sink receives finished packages.
type Sink interface {
	Publish(ctx context.Context, pkg *bundleinfo.BundledPackage) error
	Close(ctx context.Context) error
}

// Null is a Sink that discards everything.
type Null struct{}

// NewNull creates a null sink.
func NewNull() Sink { return Null{} }

func (Null) Publish(context.Context, *bundleinfo.BundledPackage) error { return nil }
func (Null) Close(context.Context) error                               { return nil }
