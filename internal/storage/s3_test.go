package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPresigner(publicBase string) *S3Presigner {
	client := s3.New(s3.Options{
		Region: "eu-west-1",
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIDTEST", SecretAccessKey: "secret"}, nil
		}),
	})
	return NewS3PresignerFromClient(client, "eu-west-1", "thriftify-images", publicBase, 10*time.Minute)
}

func TestPresignUpload(t *testing.T) {
	p := testPresigner("")
	up, err := p.PresignUpload(context.Background(), "listings/u1/a.jpg", "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "PUT", up.Method)
	assert.Contains(t, up.URL, "thriftify-images")
	assert.Contains(t, up.URL, "X-Amz-Signature=")
	assert.Equal(t, "listings/u1/a.jpg", up.Key)
	assert.Equal(t, "https://thriftify-images.s3.eu-west-1.amazonaws.com/listings/u1/a.jpg", up.PublicURL)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), up.ExpiresAt, 5*time.Second)
}

func TestPublicURLWithBase(t *testing.T) {
	p := testPresigner("https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/listings/u1/my%20photo.png", p.PublicURL("listings/u1/my photo.png"))
}

func TestListingImageKey(t *testing.T) {
	key := ListingImageKey("abc", "Photo.JPG")
	assert.True(t, strings.HasPrefix(key, "listings/abc/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, ListingImageKey("abc", "Photo.JPG"))
}
