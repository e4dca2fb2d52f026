// Package minio stores activity attachments in an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"example.com/fieldactivity/internal/domain"
	"example.com/fieldactivity/internal/logger"
	"example.com/fieldactivity/internal/observability"
	"example.com/fieldactivity/internal/storage"
)

const sniffLen = 512

// Config describes the bucket connection.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL, when set, is joined with the object key to form stable links.
	// Otherwise links are presigned for PresignExpiry.
	PublicURL     string
	PresignExpiry time.Duration
}

// Store implements domain.AttachmentStore.
type Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
	expiry    time.Duration
	log       *logger.Logger
}

// New connects to the endpoint and creates the bucket when missing.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("minio bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	log.Info("attachment bucket ready", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return newStore(client, cfg, log), nil
}

func newStore(client *minio.Client, cfg Config, log *logger.Logger) *Store {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		expiry:    expiry,
		log:       log.With("component", "minio_store"),
	}
}

// Store uploads one file under a fresh key.
func (s *Store) Store(ctx context.Context, upload domain.Upload) (domain.StoredObject, error) {
	obj, err := s.put(ctx, upload)
	observability.RecordAttachmentUpload(err)
	return obj, err
}

func (s *Store) put(ctx context.Context, upload domain.Upload) (domain.StoredObject, error) {
	if upload.Body == nil {
		return domain.StoredObject{}, errors.New("empty upload body")
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(upload.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.StoredObject{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	body := io.MultiReader(bytes.NewReader(head), upload.Body)

	key := storage.ObjectKey(upload.Name)
	size := upload.Size
	if size <= 0 {
		size = -1
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:        contentType(upload.ContentType, head),
		ContentDisposition: fmt.Sprintf("inline; filename=%q", storage.SanitizeFilename(upload.Name)),
	})
	if err != nil {
		return domain.StoredObject{}, fmt.Errorf("put object %s: %w", key, err)
	}

	link, err := s.URLFor(ctx, key)
	if err != nil {
		s.log.Warn("attachment url unavailable", "path", key, "error", err)
	}
	return domain.StoredObject{Path: key, URL: link}, nil
}

// URLFor returns a retrievable link for path.
func (s *Store) URLFor(ctx context.Context, path string) (string, error) {
	if s.publicURL != "" {
		return s.publicURL + "/" + path, nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, path, s.expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return u.String(), nil
}

// Remove deletes the object at path.
func (s *Store) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", path, err)
	}
	return nil
}

// contentType prefers the declared type unless it is missing or generic.
func contentType(declared string, head []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(head).String()
}
