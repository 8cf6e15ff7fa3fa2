package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"homematch/apperrors"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePresigner struct {
	putKey, getKey string
	contentType    string
	expires        time.Duration
}

func (f *fakePresigner) PresignPutObject(_ context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.putKey, f.contentType = aws.ToString(in.Key), aws.ToString(in.ContentType)
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3/" + f.putKey + "?sig=1", Method: "PUT"}, nil
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.getKey = aws.ToString(in.Key)
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3/" + f.getKey + "?sig=2", Method: "GET"}, nil
}

func TestPhotoURLs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	listing, err := env.workflow.Listings.Create(ctx, "r1", homegate("77", "anna"))
	require.NoError(t, err)

	presigner := &fakePresigner{}
	photos := &PhotoService{
		Presigner: presigner,
		Bucket:    "homematch-photos",
		Lifetime:  10 * time.Minute,
		Listings:  env.workflow.Listings,
		Logger:    zap.NewNop(),
		Clock:     env.clock.Now,
	}

	up, err := photos.UploadURL(ctx, "r1", listing.ListingID, "../kitchen.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.Key, "listings/r1/"+listing.ListingID+"/"))
	assert.True(t, strings.HasSuffix(up.Key, "-kitchen.jpg"))
	assert.Equal(t, "image/jpeg", presigner.contentType)
	assert.Equal(t, 10*time.Minute, presigner.expires)

	read, err := photos.ReadURL(ctx, "r1", listing.ListingID, up.Key)
	require.NoError(t, err)
	assert.Equal(t, up.Key, presigner.getKey)
	assert.Contains(t, read.URL, "sig=2")

	_, err = photos.ReadURL(ctx, "r1", listing.ListingID, "listings/r2/other/x.jpg")
	assert.True(t, apperrors.IsValidation(err))
	_, err = photos.UploadURL(ctx, "r1", listing.ListingID, "notes.pdf", "application/pdf")
	assert.True(t, apperrors.IsValidation(err))
	_, err = photos.UploadURL(ctx, "r1", "missing", "a.jpg", "image/png")
	assert.True(t, apperrors.IsNotFound(err))
}
