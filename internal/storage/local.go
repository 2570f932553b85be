package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalDriver writes objects below a directory that the API serves under /uploads/.
type LocalDriver struct {
	basePath string
	baseURL  string
}

// NewLocalDriver creates a driver rooted at basePath. publicBaseURL prefixes the
// "/uploads" path of returned URLs and may be empty for host-relative URLs.
func NewLocalDriver(basePath, publicBaseURL string) *LocalDriver {
	if basePath == "" {
		basePath = "./uploads"
	}
	return &LocalDriver{
		basePath: basePath,
		baseURL:  strings.TrimRight(publicBaseURL, "/") + "/uploads",
	}
}

func (s *LocalDriver) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(out, contextReader{ctx: ctx, r: body}); err != nil {
		out.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

func (s *LocalDriver) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalDriver) KeyFromURL(url string) (string, bool) {
	return keyFromURL(s.baseURL, url)
}

func (s *LocalDriver) Bucket() string {
	return "local"
}

// Handler serves stored objects by key. Directories are reported as missing so the
// uploads of other accounts cannot be listed.
func (s *LocalDriver) Handler() http.Handler {
	return http.FileServer(filesOnly{http.Dir(s.basePath)})
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

// contextReader stops a copy once the request context is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
