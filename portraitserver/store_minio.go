package portraitserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// objectClient is the subset of *minio.Client the store needs.
type objectClient interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// MinIOStore keeps portraits in a bucket under portraits/{characterID}/.
type MinIOStore struct {
	client objectClient
	bucket string
	logger *zap.Logger
	now    func() time.Time
}

// NewMinIOStore connects to MinIO and creates the bucket when missing.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig, logger *zap.Logger) (*MinIOStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	if i := strings.Index(endpoint, "/"); i != -1 {
		endpoint = endpoint[:i]
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		logger.Info("created portrait bucket", zap.String("bucket", cfg.Bucket))
	}

	return newMinIOStore(client, cfg.Bucket, logger), nil
}

func newMinIOStore(client objectClient, bucket string, logger *zap.Logger) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket, logger: logger, now: time.Now}
}

func (s *MinIOStore) Save(ctx context.Context, characterID string, data []byte) (StoredPortrait, error) {
	filename := portraitFilename(s.now())
	key := objectKey(characterID, filename)

	uploaded, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		return StoredPortrait{}, fmt.Errorf("%w: put %q: %w", ErrSaveImage, key, err)
	}

	s.removeStale(ctx, characterID, key)

	size := uploaded.Size
	if info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		size = info.Size
	} else {
		s.logger.Warn("stat stored portrait", zap.String("key", key), zap.Error(err))
	}

	return StoredPortrait{
		CharacterID: characterID,
		Filename:    filename,
		PublicPath:  publicPath(characterID, filename),
		Size:        size,
	}, nil
}

// removeStale deletes every portrait object of the character except keep. Best effort.
func (s *MinIOStore) removeStale(ctx context.Context, characterID, keep string) {
	prefix := objectKey(characterID, "")
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			s.logger.Warn("list portraits for cleanup", zap.String("prefix", prefix), zap.Error(obj.Err))
			return
		}
		if obj.Key == keep || path.Dir(obj.Key)+"/" != prefix || !isPortraitFile(path.Base(obj.Key)) {
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			s.logger.Warn("could not remove stale portrait", zap.String("key", obj.Key), zap.Error(err))
			continue
		}
		s.logger.Debug("removed stale portrait", zap.String("key", obj.Key))
	}
}

func (s *MinIOStore) Open(ctx context.Context, characterID, filename string) (io.ReadCloser, int64, error) {
	key := objectKey(characterID, filename)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, 0, ErrPortraitNotFound
		}
		return nil, 0, fmt.Errorf("stat %q: %w", key, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get %q: %w", key, err)
	}
	return obj, info.Size, nil
}

// objectKey mirrors the disk layout; an empty characterID keeps objects
// directly under portraits/.
func objectKey(characterID, filename string) string {
	if characterID == "" {
		return portraitsDir + "/" + filename
	}
	return portraitsDir + "/" + characterID + "/" + filename
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || strings.Contains(err.Error(), "does not exist")
}
