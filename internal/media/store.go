package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	// ErrInvalidPath rejects bucket or object names that escape the store.
	ErrInvalidPath = errors.New("media: invalid object path")
	// ErrObjectExists is returned when uploading over an existing object.
	ErrObjectExists = errors.New("media: object already exists")
)

// BlobStore stores binary objects and resolves them to public URLs.
type BlobStore interface {
	Upload(ctx context.Context, bucket, name string, data []byte) (string, error)
	Remove(ctx context.Context, bucket, name string) error
	PublicURL(bucket, name string) string
}

// FSBlobStore keeps objects on an afero filesystem under <bucket>/<name>.
// In production the filesystem is a BasePathFs rooted at MEDIA_DIR and the
// same tree is served under baseURL.
type FSBlobStore struct {
	fs      afero.Fs
	baseURL string
}

// NewFSBlobStore returns a store on fs whose public URLs start with baseURL
// (e.g. "/media" or "https://cdn.example.com/media").
func NewFSBlobStore(fs afero.Fs, baseURL string) *FSBlobStore {
	return &FSBlobStore{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

// ObjectName builds a collision-resistant object name from the upload time
// and a random suffix, e.g. "1714567890123_1a2b3c4d.jpg".
func ObjectName(now time.Time, ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d_%s.%s", now.UnixMilli(), suffix, strings.TrimPrefix(ext, "."))
}

// Upload writes data to bucket/name. Existing objects are never overwritten.
func (s *FSBlobStore) Upload(ctx context.Context, bucket, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := objectKey(bucket, name)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return "", err
	}
	if ok, err := afero.Exists(s.fs, key); err != nil {
		return "", err
	} else if ok {
		return "", ErrObjectExists
	}
	f, err := s.fs.OpenFile(key, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", ErrObjectExists
		}
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(key)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.PublicURL(bucket, name), nil
}

// Remove deletes bucket/name. Removing a missing object is not an error.
func (s *FSBlobStore) Remove(ctx context.Context, bucket, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := objectKey(bucket, name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// PublicURL returns the URL an uploaded object is served at.
func (s *FSBlobStore) PublicURL(bucket, name string) string {
	parts := strings.Split(strings.Trim(path.Join(bucket, name), "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/")
}

// FileSystem exposes the stored objects for http.FileServer / gin.StaticFS.
// Directory listings are not served.
func (s *FSBlobStore) FileSystem() http.FileSystem {
	return filesOnly{afero.NewHttpFs(s.fs).Dir("/")}
}

func objectKey(bucket, name string) (string, error) {
	if bucket == "" || name == "" || strings.Contains(bucket, "/") {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + name)
	if clean == "/" || strings.Contains(name, "..") || strings.Contains(name, "\\") {
		return "", ErrInvalidPath
	}
	return path.Join("/", bucket, clean), nil
}

type filesOnly struct {
	http.FileSystem
}

func (fs filesOnly) Open(name string) (http.File, error) {
	f, err := fs.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
