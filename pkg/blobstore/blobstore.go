// Package blobstore keeps the bytes of uploaded supporting documents. The
// declaration record only carries their metadata.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
)

var ErrInvalidKey = errors.New("invalid blob key")

// Store persists document bytes under slash-separated keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every blob whose key starts with prefix + "/".
	DeletePrefix(ctx context.Context, prefix string) error
}

// Key is the storage key of one document of one session.
func Key(sessionID, documentID string) string {
	return sessionID + "/" + documentID
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// Config selects and configures a backend.
type Config struct {
	UseGCS    bool
	Bucket    string
	LocalRoot string
}

// Open returns the GCS store when cfg.UseGCS is set, the local one otherwise.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Store, func() error, error) {
	if cfg.UseGCS {
		if cfg.Bucket == "" {
			return nil, nil, errors.New("blobstore: GCS_BUCKET is required when USE_GCS=true")
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("blobstore: gcs client: %w", err)
		}
		log.Info("using Google Cloud Storage for documents", zap.String("bucket", cfg.Bucket))
		return NewGCS(client, cfg.Bucket), client.Close, nil
	}

	local, err := NewLocal(cfg.LocalRoot)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using local storage for documents", zap.String("dir", cfg.LocalRoot))
	return local, func() error { return nil }, nil
}

// Local stores blobs as files below a root directory.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("blobstore: create upload directory: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

func (l *Local) Put(_ context.Context, key, _ string, r io.Reader) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("blobstore: create directory: %w", err)
	}

	dst, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("blobstore: create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(p)
		return fmt.Errorf("blobstore: save file: %w", err)
	}
	return dst.Close()
}

func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blobstore: remove file: %w", err)
	}
	return nil
}

func (l *Local) DeletePrefix(_ context.Context, prefix string) error {
	p, err := l.path(prefix)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("blobstore: remove directory: %w", err)
	}
	return nil
}

// GCS stores blobs as objects in one bucket.
type GCS struct {
	bucket *storage.BucketHandle
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{bucket: client.Bucket(bucket)}
}

func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	if err := checkKey(key); err != nil {
		return err
	}
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("blobstore: upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("blobstore: finalize %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := g.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("blobstore: delete %s: %w", key, err)
	}
	return nil
}

func (g *GCS) DeletePrefix(ctx context.Context, prefix string) error {
	if err := checkKey(prefix); err != nil {
		return err
	}
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix + "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("blobstore: list %s: %w", prefix, err)
		}
		if err := g.Delete(ctx, attrs.Name); err != nil {
			return err
		}
	}
}
