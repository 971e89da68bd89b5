package logcollector

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ArchiveUploader mirrors finished log archives into an S3 bucket so they
// survive the cluster being torn down.
type ArchiveUploader struct {
	input *ArchiveUploaderInput
	s3    *s3.Client
}

type ArchiveUploaderInput struct {
	AwsConfig aws.Config
	Bucket    string
	Prefix    string
}

func NewArchiveUploader(input *ArchiveUploaderInput) *ArchiveUploader {
	return &ArchiveUploader{
		input: input,
		s3:    s3.NewFromConfig(input.AwsConfig),
	}
}

// Creates the bucket if it does not already exist.
func (u *ArchiveUploader) SetUp() error {
	_, err := u.s3.CreateBucket(context.Background(), &s3.CreateBucketInput{
		Bucket: &u.input.Bucket,
		ACL:    s3Types.BucketCannedACLPrivate,
		CreateBucketConfiguration: &s3Types.CreateBucketConfiguration{
			LocationConstraint: s3Types.BucketLocationConstraint(u.input.AwsConfig.Region),
		},
	})
	var e *s3Types.BucketAlreadyOwnedByYou
	if errors.As(err, &e) {
		// this is fine, we'll just upload to it
		slog.Debug("bucket already exists", slog.String("name", u.input.Bucket))
		return nil
	} else if err != nil {
		return err
	}
	slog.Debug("created bucket", slog.String("name", u.input.Bucket))
	return nil
}

func (u *ArchiveUploader) Upload(archivePath string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	uploader := manager.NewUploader(u.s3, func(up *manager.Uploader) {
		up.PartSize = 1024 * 1024 * 10
	})
	key := path.Join(u.input.Prefix, filepath.Base(archivePath))
	_, err = uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket: &u.input.Bucket,
		Key:    &key,
		Body:   f,
	})
	if err != nil {
		return err
	}
	slog.Info("uploaded archive",
		slog.String("bucket", u.input.Bucket),
		slog.String("key", key),
	)
	return nil
}
