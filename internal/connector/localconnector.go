package connector

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	Register(Factory{
		Name:     "file",
		Priority: 1000,
		IsValid:  isLocalURI,
		New:      func(uri string) (Connector, error) { return newLocalConnector(uri), nil },
	})
}

// isLocalURI mirrors FileProtocol.is_valid: a file:// URI or bare
// absolute/relative path that resolves to an existing directory.
func isLocalURI(uri string) bool {
	if uri == "/" {
		return false
	}
	path := localPath(uri)
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func localPath(uri string) string {
	p := strings.TrimPrefix(uri, "file://")
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// localConnector serves a remote that happens to be reachable through
// the local filesystem (a bind mount, a second working copy, a path on
// the same host). No network resources are acquired.
type localConnector struct {
	root string
}

func newLocalConnector(uri string) *localConnector {
	return &localConnector{root: localPath(uri)}
}

func (c *localConnector) Open(ctx context.Context) error { return nil }
func (c *localConnector) Close() error                   { return nil }

func (c *localConnector) FetchMetadataFiles(ctx context.Context, relativePaths []string) (map[string]string, error) {
	out := make(map[string]string, len(relativePaths))
	for _, p := range relativePaths {
		out[p] = filepath.Join(c.root, ".harmony", filepath.FromSlash(p))
	}
	return out, nil
}

func (c *localConnector) FetchPayloadFiles(ctx context.Context, relativePaths []string, destinationDir string) error {
	for _, p := range relativePaths {
		src := filepath.Join(c.root, filepath.FromSlash(p))
		dst := filepath.Join(destinationDir, filepath.FromSlash(p))
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
