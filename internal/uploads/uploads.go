// Package uploads issues presigned object-storage URLs for project logos.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/oss-listings/claims-backend/config"
)

var (
	ErrNotConfigured          = errors.New("uploads: storage bucket not configured")
	ErrUnsupportedContentType = errors.New("uploads: unsupported content type")
	ErrTooLarge               = errors.New("uploads: file too large")
)

// logoTypes maps accepted image content types to file extensions.
var logoTypes = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/webp":    "webp",
	"image/gif":     "gif",
	"image/svg+xml": "svg",
}

// PutPresigner is implemented by *s3.PresignClient.
type PutPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// NewS3Presigner builds a presign client from the default AWS credential
// chain. A custom endpoint switches to path-style addressing for
// S3-compatible stores.
func NewS3Presigner(ctx context.Context, cfg config.UploadsConfig) (*s3.PresignClient, error) {
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client), nil
}

type UploadRequest struct {
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// PresignedUpload tells the browser where to PUT the file and where it will
// be served from afterwards.
type PresignedUpload struct {
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	Key       string            `json:"key"`
	PublicURL string            `json:"public_url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type Service struct {
	presigner     PutPresigner
	bucket        string
	region        string
	publicBaseURL string
	maxBytes      int64
	ttl           time.Duration
	now           func() time.Time
}

func NewService(presigner PutPresigner, cfg config.UploadsConfig) *Service {
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		presigner:     presigner,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:      cfg.MaxBytes,
		ttl:           ttl,
		now:           time.Now,
	}
}

// PresignLogo returns a one-off upload URL for a new logo of projectID.
func (s *Service) PresignLogo(ctx context.Context, projectID string, req UploadRequest) (*PresignedUpload, error) {
	if s.presigner == nil || s.bucket == "" {
		return nil, ErrNotConfigured
	}
	ext, ok := logoTypes[strings.ToLower(strings.TrimSpace(req.ContentType))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, req.ContentType)
	}
	if req.Size <= 0 || (s.maxBytes > 0 && req.Size > s.maxBytes) {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, req.Size, s.maxBytes)
	}

	key := fmt.Sprintf("%s%s.%s", s.logoPrefix(projectID), uuid.NewString(), ext)
	presigned, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.Size),
	}, func(o *s3.PresignOptions) {
		o.Expires = s.ttl
	})
	if err != nil {
		return nil, fmt.Errorf("presign logo upload: %w", err)
	}

	headers := make(map[string]string, len(presigned.SignedHeader))
	for name, values := range presigned.SignedHeader {
		if strings.EqualFold(name, "host") || len(values) == 0 {
			continue
		}
		headers[name] = values[0]
	}

	return &PresignedUpload{
		UploadURL: presigned.URL,
		Method:    presigned.Method,
		Headers:   headers,
		Key:       key,
		PublicURL: s.PublicURL(key),
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

// PublicURL is where an uploaded object is served from.
func (s *Service) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// IsLogoURL reports whether url points at a logo issued for projectID, so
// callers cannot attach arbitrary images.
func (s *Service) IsLogoURL(projectID, url string) bool {
	return strings.HasPrefix(url, s.PublicURL(s.logoPrefix(projectID)))
}

func (s *Service) logoPrefix(projectID string) string {
	return "projects/" + projectID + "/logo-"
}
