package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/jobs"
	"github.com/noah-isme/campus-feed-api/pkg/storage"
)

// JobDeleteAsset removes a stored object and its thumbnail. The payload is the object path.
const JobDeleteAsset = "asset.delete"

// Upload buckets.
const (
	BucketFlyers        = "flyers"
	BucketAnnouncements = "announcements"
	BucketAvatars       = "avatars"
	BucketLogos         = "logos"
)

const thumbnailDir = "thumbs"

// Buckets lists the buckets accepting uploads.
var Buckets = []string{BucketFlyers, BucketAnnouncements, BucketAvatars, BucketLogos}

type objectStore interface {
	Put(ctx context.Context, bucket, name string, data []byte) (string, error)
	Open(objectPath string) (*os.File, error)
	Stat(objectPath string) (storage.Object, error)
	Delete(ctx context.Context, objectPath string) error
	List(prefix string) ([]storage.Object, error)
	PublicURL(objectPath string) string
}

type urlSigner interface {
	Sign(objectPath string) (string, time.Time, error)
	Verify(token string) (string, time.Time, error)
}

type assetReferenceRepository interface {
	ReferencedPaths(ctx context.Context, paths []string) (map[string]bool, error)
}

type jobRegistrar interface {
	Register(jobType string, handler jobs.Handler)
}

// AssetConfig bounds uploads and orphan retention.
type AssetConfig struct {
	MaxUploadBytes  int64
	AllowedMIMEs    []string
	Image           storage.ImageOptions
	OrphanTTL       time.Duration
	DownloadBaseURL string
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Path          string `json:"path"`
	PublicURL     string `json:"public_url"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	ContentType   string `json:"content_type"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Size          int    `json:"size"`
}

// SignedURL is a time-limited download link.
type SignedURL struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AssetService stores flyers, announcement images, avatars and shop logos.
type AssetService struct {
	store   objectStore
	signer  urlSigner
	refs    assetReferenceRepository
	metrics *MetricsService
	logger  *zap.Logger
	config  AssetConfig
	now     func() time.Time
}

// NewAssetService constructs the service.
func NewAssetService(store objectStore, signer urlSigner, refs assetReferenceRepository, metrics *MetricsService, logger *zap.Logger, cfg AssetConfig) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	}
	if cfg.OrphanTTL <= 0 {
		cfg.OrphanTTL = 24 * time.Hour
	}
	return &AssetService{store: store, signer: signer, refs: refs, metrics: metrics, logger: logger, config: cfg, now: time.Now}
}

// ThumbnailPath returns where the thumbnail of an original is stored.
func ThumbnailPath(objectPath string) string {
	bucket, name, err := storage.SplitObjectPath(objectPath)
	if err != nil || strings.HasPrefix(name, thumbnailDir+"/") {
		return ""
	}
	return path.Join(bucket, thumbnailDir, name)
}

func validBucket(bucket string) bool {
	for _, b := range Buckets {
		if b == bucket {
			return true
		}
	}
	return false
}

// Upload validates, re-encodes and stores an image with its thumbnail.
func (s *AssetService) Upload(ctx context.Context, bucket string, data []byte) (*UploadResult, error) {
	if !validBucket(bucket) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown bucket %q", bucket))
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if int64(len(data)) > s.config.MaxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.config.MaxUploadBytes))
	}
	contentType := storage.SniffContentType(data)
	if !s.allowed(contentType) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("content type %s is not allowed", contentType))
	}

	processed, err := storage.ProcessImage(data, s.config.Image)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedMedia.Code, appErrors.ErrUnsupportedMedia.Status, "file is not a readable image")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process image")
	}

	name := uuid.NewString() + ".webp"
	objectPath, err := s.store.Put(ctx, bucket, name, processed.Original)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
	}
	result := &UploadResult{
		Path:        objectPath,
		PublicURL:   s.store.PublicURL(objectPath),
		ContentType: processed.ContentType,
		Width:       processed.Width,
		Height:      processed.Height,
		Size:        len(processed.Original),
	}
	if len(processed.Thumbnail) > 0 {
		thumb, err := s.store.Put(ctx, bucket, path.Join(thumbnailDir, name), processed.Thumbnail)
		if err != nil {
			_ = s.store.Delete(ctx, objectPath)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store thumbnail")
		}
		result.ThumbnailPath = thumb
	}

	s.metrics.RecordAssetUpload(bucket)
	s.logger.Info("asset stored", zap.String("path", objectPath), zap.Int("bytes", result.Size))
	return result, nil
}

func (s *AssetService) allowed(contentType string) bool {
	for _, mime := range s.config.AllowedMIMEs {
		if strings.EqualFold(mime, contentType) {
			return true
		}
	}
	return false
}

// SignedURL issues a download link for an existing object.
func (s *AssetService) SignedURL(objectPath string) (*SignedURL, error) {
	if _, err := s.store.Stat(objectPath); err != nil {
		return nil, s.mapStoreError(err, "failed to stat asset")
	}
	token, expiresAt, err := s.signer.Sign(objectPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign asset url")
	}
	link := s.config.DownloadBaseURL + "?token=" + url.QueryEscape(token)
	return &SignedURL{URL: link, Token: token, ExpiresAt: expiresAt}, nil
}

// Open resolves a signed token to the stored object. The caller closes the file.
func (s *AssetService) Open(token string) (*os.File, storage.Object, error) {
	objectPath, _, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, storage.Object{}, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "download link expired")
		}
		return nil, storage.Object{}, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download link")
	}
	info, err := s.store.Stat(objectPath)
	if err != nil {
		return nil, storage.Object{}, s.mapStoreError(err, "failed to stat asset")
	}
	file, err := s.store.Open(objectPath)
	if err != nil {
		return nil, storage.Object{}, s.mapStoreError(err, "failed to open asset")
	}
	return file, info, nil
}

// Delete removes an object and its thumbnail. Missing objects are not an error.
func (s *AssetService) Delete(ctx context.Context, objectPath string) error {
	if _, _, err := storage.SplitObjectPath(objectPath); err != nil {
		return appErrors.Invalid(err, "invalid asset path")
	}
	if err := s.store.Delete(ctx, objectPath); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete asset")
	}
	if thumb := ThumbnailPath(objectPath); thumb != "" {
		if err := s.store.Delete(ctx, thumb); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete thumbnail")
		}
	}
	return nil
}

// CleanupOrphans deletes uploads older than the orphan TTL that no record
// references and returns how many were removed.
func (s *AssetService) CleanupOrphans(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.OrphanTTL)
	var candidates []string
	for _, bucket := range Buckets {
		objects, err := s.store.List(bucket)
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assets")
		}
		for _, obj := range objects {
			if strings.HasPrefix(obj.Path, bucket+"/"+thumbnailDir+"/") || obj.ModTime.After(cutoff) {
				continue
			}
			candidates = append(candidates, obj.Path)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	referenced, err := s.refs.ReferencedPaths(ctx, candidates)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check asset references")
	}
	removed := 0
	for _, p := range candidates {
		if referenced[p] {
			continue
		}
		if err := s.Delete(ctx, p); err != nil {
			s.logger.Warn("failed to delete orphaned asset", zap.String("path", p), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("orphaned assets removed", zap.Int("count", removed))
	}
	return removed, nil
}

// RegisterJobs binds the asset job handlers to a queue.
func (s *AssetService) RegisterJobs(q jobRegistrar) {
	q.Register(JobDeleteAsset, s.handleDeleteJob)
}

func (s *AssetService) handleDeleteJob(ctx context.Context, job jobs.Job) error {
	objectPath, ok := job.Payload.(string)
	if !ok || objectPath == "" {
		s.metrics.RecordJob(job.Type, errors.New("invalid payload"))
		s.logger.Warn("discarding asset job with invalid payload", zap.String("job_id", job.ID))
		return nil
	}

	referenced, err := s.refs.ReferencedPaths(ctx, []string{objectPath})
	if err != nil {
		s.metrics.RecordJob(job.Type, err)
		return err
	}
	if referenced[objectPath] {
		s.metrics.RecordJob(job.Type, nil)
		return nil
	}
	err = s.Delete(ctx, objectPath)
	s.metrics.RecordJob(job.Type, err)
	return err
}

func (s *AssetService) mapStoreError(err error, message string) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "asset not found")
	case errors.Is(err, storage.ErrInvalidPath):
		return appErrors.Invalid(err, "invalid asset path")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
