package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// OSS configuration via environment variables:
// OSS_ENDPOINT, OSS_REGION, OSS_BUCKET, OSS_ACCESS_KEY_ID,
// OSS_ACCESS_KEY_SECRET, OSS_PUBLIC_BASE_URL (optional)

var (
	ossClient *s3.Client
	ossBucket string
	ossPublic string
)

func InitializeOSS() {
	endpoint := os.Getenv("OSS_ENDPOINT")
	ossBucket = os.Getenv("OSS_BUCKET")
	ossPublic = os.Getenv("OSS_PUBLIC_BASE_URL")

	if endpoint == "" || ossBucket == "" {
		log.Println("⚠️  OSS_ENDPOINT/OSS_BUCKET not set, uploads disabled")
		return
	}

	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(os.Getenv("OSS_REGION")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("OSS_ACCESS_KEY_ID"),
			os.Getenv("OSS_ACCESS_KEY_SECRET"),
			"",
		)),
	)
	if err != nil {
		log.Panic("error loading OSS config: " + err.Error())
	}

	ossClient = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	log.Println("🔧 OSS initialized with endpoint:", endpoint)
}

// UploadFile stores the stream under uploads/YYYY/MM/DD/<uuid><ext> and
// returns the public URL.
func UploadFile(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if ossClient == nil {
		return "", fmt.Errorf("object storage is not configured")
	}

	now := time.Now()
	key := fmt.Sprintf("uploads/%s/%s%s",
		now.Format("2006/01/02"), uuid.New().String(), path.Ext(filename))

	_, err := ossClient.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ossBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	base := ossPublic
	if base == "" {
		base = fmt.Sprintf("https://%s.%s", ossBucket, os.Getenv("OSS_ENDPOINT"))
	}
	return base + "/" + key, nil
}
