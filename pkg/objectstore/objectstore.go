// Package objectstore wraps the S3-compatible object store holding uploaded
// timetable files.
package objectstore

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"github.com/timetabler/timetabler/pkg/util"
)

// Client is the narrow surface the pipeline needs. Buckets and keys are
// opaque strings supplied by the stage event.
type Client interface {
	Get(ctx context.Context, bucket string, key string) ([]byte, error)
	Put(ctx context.Context, bucket string, key string, data []byte) error
}

const maxAttempts = 3

type minioClient struct {
	client *minio.Client
}

func Connect() (Client, error) {
	env := util.GetEnvironmentVariables()

	endpoint := util.EnvOr("TIMETABLER_OBJECTSTORE_ENDPOINT", "localhost:9000")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(env["TIMETABLER_OBJECTSTORE_ACCESS_KEY"], env["TIMETABLER_OBJECTSTORE_SECRET_KEY"], ""),
		Secure: env["TIMETABLER_OBJECTSTORE_USE_TLS"] == "YES",
	})
	if err != nil {
		return nil, err
	}

	return &minioClient{client: client}, nil
}

func (m *minioClient) Get(ctx context.Context, bucket string, key string) ([]byte, error) {
	var data []byte

	operation := func() error {
		object, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		defer object.Close()

		data, err = io.ReadAll(object)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		log.Warn().Err(err).Str("bucket", bucket).Str("key", key).Dur("retryIn", next).Msg("Object storage get failed")
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}

func (m *minioClient) Put(ctx context.Context, bucket string, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}
