package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"homematch/apperrors"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Presigner is the part of the S3 presign client PhotoService uses.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PhotoURL is a presigned URL for one listing photo.
type PhotoURL struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PhotoService hands out presigned S3 URLs for listing photos stored under
// listings/{roomId}/{listingId}/.
type PhotoService struct {
	Presigner Presigner
	Bucket    string
	Lifetime  time.Duration
	Listings  *ListingService
	Logger    *zap.Logger
	Clock     Clock
}

func NewPhotoService(client *s3.Client, bucket string, lifetime time.Duration, listings *ListingService, logger *zap.Logger) *PhotoService {
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	return &PhotoService{
		Presigner: s3.NewPresignClient(client),
		Bucket:    bucket,
		Lifetime:  lifetime,
		Listings:  listings,
		Logger:    logger,
	}
}

func photoPrefix(roomID, listingID string) string {
	return fmt.Sprintf("listings/%s/%s/", roomID, listingID)
}

// UploadURL returns a presigned PUT URL for a new photo of an existing
// listing.
func (p *PhotoService) UploadURL(ctx context.Context, roomID, listingID, fileName, contentType string) (*PhotoURL, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewValidation("content type %q is not an image", contentType)
	}
	name := path.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == "/" {
		return nil, apperrors.NewValidation("fileName is required")
	}
	if _, err := p.Listings.Get(ctx, roomID, listingID); err != nil {
		return nil, err
	}

	now := p.Clock.now()
	key := photoPrefix(roomID, listingID) + now.Format("20060102150405") + "-" + name
	req, err := p.Presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.Lifetime))
	if err != nil {
		return nil, apperrors.NewUpstream(err, "presign photo upload")
	}
	p.Logger.Info("📸 photo upload URL issued", zap.String("room_id", roomID), zap.String("listing_id", listingID), zap.String("key", key))
	return &PhotoURL{URL: req.URL, Key: key, ExpiresAt: now.Add(p.Lifetime)}, nil
}

// ReadURL returns a presigned GET URL for a photo key of the listing.
func (p *PhotoService) ReadURL(ctx context.Context, roomID, listingID, key string) (*PhotoURL, error) {
	if !strings.HasPrefix(key, photoPrefix(roomID, listingID)) || strings.Contains(key, "..") {
		return nil, apperrors.NewValidation("key does not belong to listing %s", listingID)
	}
	req, err := p.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.Lifetime))
	if err != nil {
		return nil, apperrors.NewUpstream(err, "presign photo read")
	}
	return &PhotoURL{URL: req.URL, Key: key, ExpiresAt: p.Clock.now().Add(p.Lifetime)}, nil
}
