package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	"github.com/angelmondragon/agristore-backend/pkg/gcp"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

const (
	pingTimeout   = 5 * time.Second
	uploadTimeout = 60 * time.Second
	cacheControl  = "public, max-age=86400"
)

// Client stores product images in a single public-read bucket.
type Client struct {
	storage       *storage.Client
	defaultBucket string
	publicBaseURL string
	logg          *logger.Logger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	sc, err := storage.NewClient(ctx, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient failed: %w", err)
	}

	client := &Client{
		storage:       sc,
		defaultBucket: cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logg:          logg,
	}

	if err := client.Ping(ctx); err != nil {
		_ = sc.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "gcs client initialized")
	}

	return client, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error {
	if c == nil || c.storage == nil {
		return nil
	}
	return c.storage.Close()
}

// Ping lists at most one object, which needs storage.objects.list only.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.storage == nil {
		return errors.New("gcs client not initialized")
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	it := c.storage.Bucket(c.defaultBucket).Objects(ctx, nil)
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("gcs object check failed: %w", err)
	}
	return nil
}

func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) (backend.BlobHandle, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return backend.BlobHandle{}, backend.UploadFailure(errors.New("empty object path"), "upload")
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.storage.Bucket(c.defaultBucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = cacheControl

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return backend.BlobHandle{}, backend.UploadFailure(err, "upload "+path)
	}
	if err := w.Close(); err != nil {
		return backend.BlobHandle{}, backend.UploadFailure(err, "finalize "+path)
	}

	if c.logg != nil {
		c.logg.Debug(c.logg.WithField(ctx, "object", path), "gcs object uploaded")
	}
	return backend.BlobHandle{Path: path}, nil
}

// PublicURL never calls the API: objects are served straight from the
// public bucket.
func (c *Client) PublicURL(_ context.Context, handle backend.BlobHandle) (string, error) {
	if handle.Path == "" {
		return "", backend.UploadFailure(errors.New("empty object path"), "resolve url")
	}
	return PublicObjectURL(c.publicBaseURL, c.defaultBucket, handle.Path), nil
}

// PublicObjectURL builds https://storage.googleapis.com/<bucket>/<object>.
func PublicObjectURL(baseURL, bucket, object string) string {
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com"
	}
	escaped := (&url.URL{Path: strings.Trim(object, "/")}).EscapedPath()
	return strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(bucket) + "/" + escaped
}

var _ backend.BlobStore = (*Client)(nil)
