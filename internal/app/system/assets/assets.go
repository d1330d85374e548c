// Package assets hands out presigned S3 PUT URLs so clients upload course
// media directly to the bucket.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// DefaultExpires is how long an upload URL stays valid.
const DefaultExpires = 15 * time.Minute

var (
	ErrNotConfigured   = errors.New("asset storage is not configured")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrInvalidFileName = errors.New("invalid file name")
)

// allowed maps accepted content types to the extension used in the key.
var allowed = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"application/pdf": ".pdf",
}

// Config describes the bucket. Endpoint is for S3-compatible hosts such as
// MinIO; AccessKey/SecretKey fall back to the default AWS chain when empty.
type Config struct {
	Region    string
	Bucket    string
	Prefix    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
	Expires   time.Duration
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool { return c.Bucket != "" && c.Region != "" }

// Presigned is what a client needs to upload one object.
type Presigned struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	Method    string    `json:"method"`
	PublicURL string    `json:"publicUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Uploader presigns PutObject requests.
type Uploader struct {
	cfg     Config
	presign *s3.PresignClient
	now     func() time.Time
	newID   func() string
}

// New builds an Uploader from cfg. No network call is made.
func New(ctx context.Context, cfg Config) (*Uploader, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if cfg.Expires <= 0 {
		cfg.Expires = DefaultExpires
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Uploader{
		cfg:     cfg,
		presign: s3.NewPresignClient(client),
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// PresignPut returns a URL the client can PUT the file to.
func (u *Uploader) PresignPut(ctx context.Context, fileName, contentType string) (Presigned, error) {
	key, err := u.Key(fileName, contentType)
	if err != nil {
		return Presigned{}, err
	}
	req, err := u.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(normalizeType(contentType)),
	}, s3.WithPresignExpires(u.cfg.Expires))
	if err != nil {
		return Presigned{}, fmt.Errorf("presign put %s: %w", key, err)
	}
	return Presigned{
		Key:       key,
		UploadURL: req.URL,
		Method:    req.Method,
		PublicURL: u.PublicURL(key),
		ExpiresAt: u.now().UTC().Add(u.cfg.Expires),
	}, nil
}

// Key builds prefix/yyyy/mm/<uuid><ext> for an upload.
func (u *Uploader) Key(fileName, contentType string) (string, error) {
	ext, ok := allowed[normalizeType(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	name := strings.TrimSpace(fileName)
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", ErrInvalidFileName
	}
	now := u.now().UTC()
	return path.Join(strings.Trim(u.cfg.Prefix, "/"), now.Format("2006"), now.Format("01"), u.newID()+ext), nil
}

// PublicURL is where the object is served from once uploaded.
func (u *Uploader) PublicURL(key string) string {
	switch {
	case u.cfg.PublicURL != "":
		return strings.TrimRight(u.cfg.PublicURL, "/") + "/" + key
	case u.cfg.Endpoint != "":
		return strings.TrimRight(u.cfg.Endpoint, "/") + "/" + u.cfg.Bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
	}
}

func normalizeType(ct string) string {
	mt, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
