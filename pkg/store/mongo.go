package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/snackpack/pkg/bundleinfo"
)

const (
	DefaultDatabase   = "snackpack"
	DefaultCollection = "bundles"
)

// MongoConfig configures a [Mongo] sink.
type MongoConfig struct {
	URI        string
	Database   string // default: "snackpack"
	Collection string // default: "bundles"
}

// Mongo upserts one document per package version.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to cfg.URI and verifies the connection.
func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Mongo{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (m *Mongo) Publish(ctx context.Context, pkg *bundleinfo.BundledPackage) error {
	doc := toDocument(pkg, time.Now().UTC())
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", doc.ID, err)
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// document flattens the nested files map: package, platform and file names
// contain dots, which are awkward as BSON field names.
type document struct {
	ID               string         `bson:"_id"`
	Name             string         `bson:"name"`
	Version          string         `bson:"version"`
	PeerDependencies []peerDocument `bson:"peerDependencies"`
	Files            []fileDocument `bson:"files"`
	PublishedAt      time.Time      `bson:"publishedAt"`
}

type peerDocument struct {
	Name  string  `bson:"name"`
	Range *string `bson:"range"`
}

type fileDocument struct {
	Platform  string   `bson:"platform"`
	Filename  string   `bson:"filename"`
	SizeBytes int      `bson:"sizeBytes"`
	Externals []string `bson:"externals"`
	Code      *string  `bson:"code,omitempty"`
}

func toDocument(pkg *bundleinfo.BundledPackage, now time.Time) document {
	doc := document{
		ID:          pkg.ID(),
		Name:        pkg.Name,
		Version:     pkg.Version,
		PublishedAt: now,
	}
	for _, name := range sortedKeys(pkg.PeerDependencies) {
		doc.PeerDependencies = append(doc.PeerDependencies, peerDocument{Name: name, Range: pkg.PeerDependencies[name]})
	}
	for _, platform := range pkg.Platforms() {
		files := pkg.Files[platform]
		for _, filename := range sortedKeys(files) {
			info := files[filename]
			doc.Files = append(doc.Files, fileDocument{
				Platform:  platform,
				Filename:  filename,
				SizeBytes: info.SizeBytes,
				Externals: info.Externals,
				Code:      info.Code,
			})
		}
	}
	return doc
}

var _ Sink = (*Mongo)(nil)
