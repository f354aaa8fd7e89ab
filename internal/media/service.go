// Package media issues presigned upload URLs and registers completed
// uploads as sighting attachments.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	smodels "watchpost/internal/sighting/models"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// UploadExpiry is how long a presigned PUT stays valid.
const UploadExpiry = 15 * time.Minute

// extensions maps the accepted MIME types to storage path extensions.
// Anything else is refused up front.
var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"video/mp4":  "mp4",
}

// Presigner is the slice of the S3 presign client the service uses.
// *s3.PresignClient satisfies it.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// MediaAttacher is the slice of the sighting service that registers an
// uploaded object on the sighting record.
type MediaAttacher interface {
	AttachMedia(ctx context.Context, sightingID id.SightingID, media smodels.MediaRef) (*smodels.Sighting, error)
}

// UploadTicket tells the client where to PUT the object and what storage
// path to report back on completion.
type UploadTicket struct {
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	StoragePath string    `json:"storage_path"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Service struct {
	presigner Presigner
	sightings MediaAttacher
	bucket    string
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(presigner Presigner, sightings MediaAttacher, bucket string, opts ...Option) (*Service, error) {
	if presigner == nil {
		return nil, fmt.Errorf("presigner is required")
	}
	if sightings == nil {
		return nil, fmt.Errorf("media attacher is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	svc := &Service{
		presigner: presigner,
		sightings: sightings,
		bucket:    bucket,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RequestUpload mints a presigned PUT for one attachment.
func (s *Service) RequestUpload(ctx context.Context, sightingID id.SightingID, mimeType string) (*UploadTicket, error) {
	ext, ok := extensions[mimeType]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported media type %q", mimeType)
	}

	storagePath := fmt.Sprintf("sightings/%s/%s.%s", sightingID, uuid.NewString(), ext)
	presigned, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(storagePath),
		ContentType: aws.String(mimeType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = UploadExpiry
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to presign upload")
	}

	return &UploadTicket{
		URL:         presigned.URL,
		Method:      presigned.Method,
		StoragePath: storagePath,
		ExpiresAt:   requestcontext.Now(ctx).Add(UploadExpiry),
	}, nil
}

// CompleteUpload registers the uploaded object on the sighting. The storage
// path must be one this service minted for that sighting.
func (s *Service) CompleteUpload(ctx context.Context, sightingID id.SightingID, storagePath, mimeType string) (*smodels.Sighting, error) {
	if _, ok := extensions[mimeType]; !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported media type %q", mimeType)
	}
	if !strings.HasPrefix(storagePath, fmt.Sprintf("sightings/%s/", sightingID)) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "storage path does not belong to this sighting")
	}
	return s.sightings.AttachMedia(ctx, sightingID, smodels.MediaRef{
		StoragePath: storagePath,
		MimeType:    mimeType,
	})
}
