package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Upload is a presigned PUT the client performs directly against the bucket.
type Upload struct {
	URL       string    `json:"uploadUrl"`
	Method    string    `json:"method"`
	Key       string    `json:"key"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type S3Presigner struct {
	presign       *s3.PresignClient
	bucket        string
	region        string
	publicBaseURL string
	ttl           time.Duration
}

func NewS3Presigner(ctx context.Context, region, bucket, publicBaseURL string, ttl time.Duration) (*S3Presigner, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewS3PresignerFromClient(s3.NewFromConfig(cfg), region, bucket, publicBaseURL, ttl), nil
}

func NewS3PresignerFromClient(client *s3.Client, region, bucket, publicBaseURL string, ttl time.Duration) *S3Presigner {
	return &S3Presigner{
		presign:       s3.NewPresignClient(client),
		bucket:        bucket,
		region:        region,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		ttl:           ttl,
	}
}

// ListingImageKey namespaces uploads per owner and keeps the original extension.
func ListingImageKey(ownerID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("listings/%s/%s%s", ownerID, uuid.NewString(), ext)
}

func (p *S3Presigner) PresignUpload(ctx context.Context, key, contentType string) (*Upload, error) {
	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return nil, err
	}
	return &Upload{
		URL:       req.URL,
		Method:    req.Method,
		Key:       key,
		PublicURL: p.PublicURL(key),
		ExpiresAt: time.Now().Add(p.ttl),
	}, nil
}

func (p *S3Presigner) PublicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if p.publicBaseURL != "" {
		return p.publicBaseURL + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, escaped)
}
