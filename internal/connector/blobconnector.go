package connector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/s3blob"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/harmonyfs/harmony/internal/harmonyerr"
)

// blobSchemes lists the object-store URI schemes this connector
// generalizes the teacher's file:// vs ssh:// split to. Only s3:// is
// wired, through gocloud.dev/blob/s3blob backed by aws-sdk-go-v2; the
// azblob:// and gs:// schemes would each need their own cloud SDK
// dependency that isn't otherwise exercised here, so they're left
// unregistered rather than adding unused-elsewhere imports.
var blobSchemes = []string{"s3://"}

func init() {
	Register(Factory{
		Name:     "blob",
		Priority: 750,
		IsValid:  isBlobURI,
		New:      func(uri string) (Connector, error) { return newBlobConnector(uri) },
	})
}

func isBlobURI(uri string) bool {
	for _, scheme := range blobSchemes {
		if strings.HasPrefix(uri, scheme) {
			return true
		}
	}
	return false
}

// blobConnector serves a remote hosted in an S3-compatible object store,
// opened through gocloud.dev's s3blob driver. The bucket URI's path prefix, if
// any, is treated as the repository root within the bucket.
type blobConnector struct {
	bucketURI string
	prefix    string

	bucket *blob.Bucket
}

func newBlobConnector(uri string) (*blobConnector, error) {
	scheme, rest, ok := splitScheme(uri)
	if !ok {
		return nil, harmonyerr.New(harmonyerr.ProtocolMismatch, fmt.Sprintf("unrecognized blob URI %q", uri))
	}

	bucket, prefix := rest, ""
	if i := strings.Index(rest, "/"); i >= 0 {
		bucket, prefix = rest[:i], rest[i+1:]
	}

	return &blobConnector{bucketURI: scheme + "://" + bucket, prefix: prefix}, nil
}

func splitScheme(uri string) (scheme, rest string, ok bool) {
	i := strings.Index(uri, "://")
	if i < 0 {
		return "", "", false
	}
	return uri[:i], uri[i+len("://"):], true
}

func (c *blobConnector) Open(ctx context.Context) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return harmonyerr.Wrap(harmonyerr.RemoteUnreachable, "loading AWS config", err)
	}
	client := s3.NewFromConfig(cfg)
	bucket, err := s3blob.OpenBucketV2(ctx, client, strings.TrimPrefix(c.bucketURI, "s3://"), nil)
	if err != nil {
		return harmonyerr.Wrap(harmonyerr.RemoteUnreachable, "opening "+c.bucketURI, err)
	}
	c.bucket = bucket
	return nil
}

func (c *blobConnector) Close() error {
	if c.bucket == nil {
		return nil
	}
	err := c.bucket.Close()
	c.bucket = nil
	return err
}

func (c *blobConnector) key(relativePath string) string {
	if c.prefix == "" {
		return relativePath
	}
	return c.prefix + "/" + relativePath
}

func (c *blobConnector) readAll(ctx context.Context, key string) ([]byte, error) {
	r, err := c.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, harmonyerr.Wrap(harmonyerr.IOFailure, "reading "+key, err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, harmonyerr.Wrap(harmonyerr.IOFailure, "reading "+key, err)
	}
	return buf.Bytes(), nil
}

// listPrefix lists every object key directly under prefix+"/", treating
// the bucket's flat keyspace as a directory when at least one such key
// exists. An empty result is not an error: a location that has never
// heard from any peer yet has a location_states prefix with nothing
// under it.
func (c *blobConnector) listPrefix(ctx context.Context, prefix string) ([]string, error) {
	iter := c.bucket.List(&blob.ListOptions{Prefix: prefix + "/"})
	var keys []string
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, harmonyerr.Wrap(harmonyerr.IOFailure, "listing "+prefix, err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// fetchDir mirrors every object under prefix+"/" into a local directory,
// returning that directory's path.
func (c *blobConnector) fetchDir(ctx context.Context, prefix, relativePath, tmp string) (string, error) {
	localDir := filepath.Join(tmp, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", err
	}

	keys, err := c.listPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	for _, key := range keys {
		data, err := c.readAll(ctx, key)
		if err != nil {
			return "", err
		}
		name := strings.TrimPrefix(key, prefix+"/")
		if err := os.WriteFile(filepath.Join(localDir, name), data, 0o644); err != nil {
			return "", err
		}
	}
	return localDir, nil
}

func (c *blobConnector) FetchMetadataFiles(ctx context.Context, relativePaths []string) (map[string]string, error) {
	tmp, err := os.MkdirTemp("", "harmony-blob-")
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(relativePaths))
	for _, p := range relativePaths {
		if strings.HasSuffix(p, "/") {
			prefix := c.key(".harmony/" + strings.TrimSuffix(p, "/"))
			localDir, err := c.fetchDir(ctx, prefix, p, tmp)
			if err != nil {
				return nil, err
			}
			out[p] = localDir
			continue
		}

		key := c.key(".harmony/" + p)
		data, err := c.readAll(ctx, key)
		if err != nil {
			return nil, err
		}
		local := filepath.Join(tmp, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(local, data, 0o644); err != nil {
			return nil, err
		}
		out[p] = local
	}
	return out, nil
}

func (c *blobConnector) FetchPayloadFiles(ctx context.Context, relativePaths []string, destinationDir string) error {
	for _, p := range relativePaths {
		data, err := c.readAll(ctx, c.key(p))
		if err != nil {
			return err
		}
		local := filepath.Join(destinationDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(local, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
