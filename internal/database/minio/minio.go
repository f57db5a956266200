package minio

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"insurance-etl/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient wraps the MinIO client with ETL-specific bucket handling.
type MinioClient struct {
	client *minio.Client
	config config.MinioConfig
}

// Storage defines the bucket names used by the pipeline.
var Storage = struct {
	RawExtracts     string
	Staging         string
	CleaningReports string
}{
	RawExtracts:     "raw-extracts",
	Staging:         "staging",
	CleaningReports: "cleaning-reports",
}

var BucketNames = []string{
	Storage.RawExtracts,
	Storage.Staging,
	Storage.CleaningReports,
}

// NewMinioClient initializes a MinIO client and ensures the pipeline
// buckets exist.
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	endpoint := strings.TrimPrefix(cfg.MinioURL, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	isSecure, err := strconv.ParseBool(cfg.MinioSecure)
	if err != nil {
		log.Printf("Invalid value for MinIO secure flag: %v. Defaulting to false.", err)
		isSecure = false
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: isSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := minioClient.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}

	log.Printf("Successfully connected to MinIO at %s", cfg.MinioURL)

	mc := &MinioClient{
		client: minioClient,
		config: cfg,
	}
	if err := mc.ensureRequiredBuckets(); err != nil {
		return nil, fmt.Errorf("failed to ensure required buckets: %w", err)
	}

	return mc, nil
}

func (mc *MinioClient) ensureRequiredBuckets() error {
	ctx := context.Background()
	for _, bucketName := range BucketNames {
		if err := mc.ensureBucket(ctx, bucketName); err != nil {
			return fmt.Errorf("failed to ensure bucket %s: %w", bucketName, err)
		}
	}
	return nil
}

func (mc *MinioClient) ensureBucket(ctx context.Context, bucketName string) error {
	exists, err := mc.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		err := mc.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{
			Region: mc.config.MinioLocation,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", bucketName, err)
		}
		log.Printf("Created bucket: %s", bucketName)
	}
	return nil
}

// UploadBytes uploads byte data to the specified bucket.
func (mc *MinioClient) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	reader := bytes.NewReader(data)
	_, err := mc.client.PutObject(ctx, bucketName, objectName, reader, int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload bytes to %s in bucket %s: %w", objectName, bucketName, err)
	}

	log.Printf("Uploaded %d bytes to %s in bucket %s", len(data), objectName, bucketName)
	return nil
}

// GetFile retrieves an object from the specified bucket.
func (mc *MinioClient) GetFile(ctx context.Context, bucketName, objectName string) (*minio.Object, error) {
	object, err := mc.client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s from bucket %s: %w", objectName, bucketName, err)
	}
	return object, nil
}

// ListFiles lists all objects in a bucket under an optional prefix.
func (mc *MinioClient) ListFiles(ctx context.Context, bucketName, prefix string) ([]minio.ObjectInfo, error) {
	var objects []minio.ObjectInfo

	objectCh := mc.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects in bucket %s: %w", bucketName, object.Err)
		}
		objects = append(objects, object)
	}
	return objects, nil
}

// FileExists checks if an object exists in the specified bucket.
func (mc *MinioClient) FileExists(ctx context.Context, bucketName, objectName string) (bool, error) {
	if _, err := mc.client.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{}); err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("error checking existence of %s in bucket %s: %w", objectName, bucketName, err)
	}
	return true, nil
}

// GetClient returns the underlying MinIO client for advanced operations.
func (mc *MinioClient) GetClient() *minio.Client {
	return mc.client
}

// Close performs any necessary cleanup (MinIO requires no explicit close).
func (mc *MinioClient) Close() error {
	log.Println("MinIO client connection closed")
	return nil
}
