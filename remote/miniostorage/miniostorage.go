package miniostorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/tenrok/sdstore/internal/logging"
	"github.com/tenrok/sdstore/internal/metrics"
	"github.com/tenrok/sdstore/remote"
)

// Убеждаемся в том, что мы всегда реализуем интерфейс remote.Storage.
var _ remote.Storage = (*MinioStorage)(nil)

func init() {
	remote.Register("minio", &MinioStorage{})
}

// MinioStorage хранит файлы в бакете MinIO/S3. Видимость хранится в
// пользовательских метаданных объекта, каталоги представлены объектами-маркерами
// с именем, оканчивающимся на "/".
type MinioStorage struct {
	client  *minio.Client
	cfg     *Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func (s *MinioStorage) NewStorage(_ context.Context, connString string) (remote.Storage, error) {
	cfg, err := NewConfig(connString)
	if err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretKey, cfg.Token),
		Region: cfg.Region,
		Secure: cfg.Secure,
	}

	client, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, err
	}

	return New(client, cfg, zap.L(), metrics.Default()), nil
}

// New создаёт хранилище поверх готового клиента.
func New(client *minio.Client, cfg *Config, logger *zap.Logger, m *metrics.Metrics) *MinioStorage {
	return &MinioStorage{
		client:  client,
		cfg:     cfg,
		logger:  logging.OrNop(logger),
		metrics: m,
	}
}

// observe учитывает вызов в метриках и журнале.
func (s *MinioStorage) observe(method string, start time.Time, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeRemoteError
	}
	s.metrics.ObserveRequest(method, outcome, time.Since(start))
	s.logger.Debug("minio call", zap.String("method", method), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
}

func (s *MinioStorage) stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	return s.client.StatObject(ctx, s.cfg.BucketName, key, minio.StatObjectOptions{})
}

func (s *MinioStorage) FileExists(ctx context.Context, p string) (ok bool, err error) {
	defer func(start time.Time) { s.observe("fileExists", start, err) }(time.Now())

	key := s.cfg.Key(p)
	if key == "" {
		return false, nil
	}
	if _, err := s.stat(ctx, key); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, wrap(remote.KindUnableToCheckFileExistence, err)
	}
	return true, nil
}

func (s *MinioStorage) DirectoryExists(ctx context.Context, p string) (ok bool, err error) {
	defer func(start time.Time) { s.observe("directoryExists", start, err) }(time.Now())

	prefix := s.cfg.DirKey(p)
	if prefix == "" {
		ok, err := s.client.BucketExists(ctx, s.cfg.BucketName)
		if err != nil {
			return false, wrap(remote.KindUnableToCheckDirectoryExistence, err)
		}
		return ok, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	objects := s.client.ListObjects(ctx, s.cfg.BucketName, minio.ListObjectsOptions{
		Prefix:  prefix,
		MaxKeys: 1,
	})
	object, ok := <-objects
	if !ok {
		return false, nil
	}
	if object.Err != nil {
		return false, wrap(remote.KindUnableToCheckDirectoryExistence, object.Err)
	}
	return true, nil
}

func (s *MinioStorage) Write(ctx context.Context, p string, contents []byte, opts ...remote.Option) error {
	err := s.put(ctx, p, bytes.NewReader(contents), int64(len(contents)), http.DetectContentType(contents), opts)
	if err == nil {
		s.metrics.AddBytesWritten(len(contents))
	}
	return err
}

func (s *MinioStorage) WriteStream(ctx context.Context, p string, r io.Reader, opts ...remote.Option) error {
	if r == nil {
		return remote.NewError(remote.KindInvalidStreamProvided, "stream is nil", 0)
	}
	return s.put(ctx, p, r, -1, mime.TypeByExtension(path.Ext(p)), opts)
}

func (s *MinioStorage) put(ctx context.Context, p string, r io.Reader, size int64, contentType string, opts []remote.Option) (err error) {
	defer func(start time.Time) { s.observe("write", start, err) }(time.Now())

	key := s.cfg.Key(p)
	if key == "" {
		return remote.NewError(remote.KindUnableToWriteFile, "empty location", 0)
	}
	o := remote.NewOptions(opts...)
	_, err = s.client.PutObject(ctx, s.cfg.BucketName, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: userMetadata(o.FileVisibility()),
	})
	if err != nil {
		return wrap(remote.KindUnableToWriteFile, err)
	}
	return nil
}

func (s *MinioStorage) Read(ctx context.Context, p string) ([]byte, error) {
	rc, err := s.ReadStream(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrap(remote.KindUnableToReadFile, err)
	}
	return data, nil
}

// ReadStream открывает объект. Наличие объекта проверяется сразу, а не при
// первом чтении.
func (s *MinioStorage) ReadStream(ctx context.Context, p string) (_ io.ReadCloser, err error) {
	defer func(start time.Time) { s.observe("read", start, err) }(time.Now())

	obj, err := s.client.GetObject(ctx, s.cfg.BucketName, s.cfg.Key(p), minio.GetObjectOptions{})
	if err != nil {
		return nil, wrap(remote.KindUnableToReadFile, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, wrap(remote.KindUnableToReadFile, fmt.Errorf("unable to read file from location: %s: %w", p, err))
	}
	return obj, nil
}

func (s *MinioStorage) Delete(ctx context.Context, p string) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())

	if err := s.client.RemoveObject(ctx, s.cfg.BucketName, s.cfg.Key(p), minio.RemoveObjectOptions{}); err != nil {
		return wrap(remote.KindUnableToDeleteFile, err)
	}
	return nil
}

// DeleteDirectory удаляет все объекты с префиксом каталога, включая маркер.
func (s *MinioStorage) DeleteDirectory(ctx context.Context, p string) (err error) {
	defer func(start time.Time) { s.observe("deleteDirectory", start, err) }(time.Now())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.client.ListObjects(ctx, s.cfg.BucketName, minio.ListObjectsOptions{
		Prefix:    s.cfg.DirKey(p),
		Recursive: true,
	})
	var errs []error
	for e := range s.client.RemoveObjects(ctx, s.cfg.BucketName, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("%s: %w", e.ObjectName, e.Err))
	}
	if err := errors.Join(errs...); err != nil {
		return wrap(remote.KindUnableToDeleteDirectory, err)
	}
	return nil
}

func (s *MinioStorage) CreateDirectory(ctx context.Context, p string, opts ...remote.Option) (err error) {
	defer func(start time.Time) { s.observe("createDirectory", start, err) }(time.Now())

	key := s.cfg.DirKey(p)
	if key == "" {
		return nil
	}
	o := remote.NewOptions(opts...)
	_, err = s.client.PutObject(ctx, s.cfg.BucketName, key, bytes.NewReader(nil), 0, minio.PutObjectOptions{
		UserMetadata: userMetadata(o.DirVisibility()),
	})
	if err != nil {
		return wrap(remote.KindUnableToCreateDirectory, err)
	}
	return nil
}

// SetVisibility перезаписывает метаданные объекта копированием на себя.
func (s *MinioStorage) SetVisibility(ctx context.Context, p string, visibility remote.Visibility) (err error) {
	defer func(start time.Time) { s.observe("setVisibility", start, err) }(time.Now())

	if !visibility.Valid() {
		return remote.NewError(remote.KindInvalidVisibilityProvided, "invalid visibility "+string(visibility), 0)
	}

	key := s.cfg.Key(p)
	info, err := s.stat(ctx, key)
	if isNotFound(err) {
		key = s.cfg.DirKey(p)
		info, err = s.stat(ctx, key)
	}
	if err != nil {
		return wrap(remote.KindUnableToSetVisibility, err)
	}

	meta := make(map[string]string, len(info.UserMetadata)+1)
	for k, v := range info.UserMetadata {
		meta[k] = v
	}
	for k := range userMetadata("") {
		delete(meta, k)
	}
	for k, v := range userMetadata(visibility) {
		meta[k] = v
	}

	src := minio.CopySrcOptions{Bucket: s.cfg.BucketName, Object: key}
	dst := minio.CopyDestOptions{
		Bucket:          s.cfg.BucketName,
		Object:          key,
		UserMetadata:    meta,
		ReplaceMetadata: true,
	}
	if _, err := s.client.CopyObject(ctx, dst, src); err != nil {
		return wrap(remote.KindUnableToSetVisibility, err)
	}
	return nil
}

func (s *MinioStorage) metadata(ctx context.Context, method, p string) (_ *remote.FileAttributes, err error) {
	defer func(start time.Time) { s.observe(method, start, err) }(time.Now())

	info, err := s.stat(ctx, s.cfg.Key(p))
	if err != nil {
		return nil, wrap(remote.KindUnableToRetrieveMetadata,
			fmt.Errorf("unable to retrieve the %s for file at location: %s: %w", method, p, err))
	}
	return fileAttributes(p, info), nil
}

func (s *MinioStorage) Visibility(ctx context.Context, p string) (*remote.FileAttributes, error) {
	attrs, err := s.metadata(ctx, "visibility", p)
	if err != nil {
		return nil, err
	}
	return &remote.FileAttributes{Path: p, Visibility: attrs.Visibility}, nil
}

func (s *MinioStorage) MimeType(ctx context.Context, p string) (*remote.FileAttributes, error) {
	attrs, err := s.metadata(ctx, "mimeType", p)
	if err != nil {
		return nil, err
	}
	return &remote.FileAttributes{Path: p, MimeType: attrs.MimeType}, nil
}

func (s *MinioStorage) LastModified(ctx context.Context, p string) (*remote.FileAttributes, error) {
	attrs, err := s.metadata(ctx, "lastModified", p)
	if err != nil {
		return nil, err
	}
	return &remote.FileAttributes{Path: p, LastModified: attrs.LastModified}, nil
}

func (s *MinioStorage) FileSize(ctx context.Context, p string) (*remote.FileAttributes, error) {
	attrs, err := s.metadata(ctx, "fileSize", p)
	if err != nil {
		return nil, err
	}
	return &remote.FileAttributes{Path: p, FileSize: attrs.FileSize}, nil
}

// ListContents перечисляет объекты с префиксом каталога. Маркер самого
// каталога пропускается. Досрочный выход из цикла останавливает листинг.
func (s *MinioStorage) ListContents(ctx context.Context, p string, deep bool) iter.Seq2[remote.StorageAttributes, error] {
	return func(yield func(remote.StorageAttributes, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		prefix := s.cfg.DirKey(p)
		objects := s.client.ListObjects(ctx, s.cfg.BucketName, minio.ListObjectsOptions{
			Prefix:       prefix,
			Recursive:    deep,
			WithMetadata: true,
		})
		for obj := range objects {
			if obj.Err != nil {
				yield(nil, wrap(remote.KindUnableToReadFile, obj.Err))
				return
			}
			if obj.Key == prefix {
				continue
			}

			var entry remote.StorageAttributes
			location := s.cfg.Location(obj.Key)
			if isDirKey(obj.Key) {
				entry = directoryAttributes(location, obj)
			} else {
				entry = fileAttributes(location, obj)
			}
			s.metrics.IncListed(string(entry.Type()))
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (s *MinioStorage) Move(ctx context.Context, source, destination string, opts ...remote.Option) (err error) {
	defer func(start time.Time) { s.observe("move", start, err) }(time.Now())

	if s.cfg.Key(source) == s.cfg.Key(destination) {
		return nil
	}
	if err := s.copy(ctx, source, destination, remote.NewOptions(opts...)); err != nil {
		return wrap(remote.KindUnableToMoveFile, err)
	}
	if err := s.client.RemoveObject(ctx, s.cfg.BucketName, s.cfg.Key(source), minio.RemoveObjectOptions{}); err != nil {
		return wrap(remote.KindUnableToMoveFile, err)
	}
	return nil
}

func (s *MinioStorage) Copy(ctx context.Context, source, destination string, opts ...remote.Option) (err error) {
	defer func(start time.Time) { s.observe("copy", start, err) }(time.Now())

	if err := s.copy(ctx, source, destination, remote.NewOptions(opts...)); err != nil {
		return wrap(remote.KindUnableToCopyFile, err)
	}
	return nil
}

// copy копирует объект на стороне сервера. Если видимость задана, метаданные
// заменяются, иначе сохраняются метаданные источника.
func (s *MinioStorage) copy(ctx context.Context, source, destination string, o *remote.Options) error {
	src := minio.CopySrcOptions{Bucket: s.cfg.BucketName, Object: s.cfg.Key(source)}
	dst := minio.CopyDestOptions{Bucket: s.cfg.BucketName, Object: s.cfg.Key(destination)}
	if o.Visibility.Valid() {
		dst.UserMetadata = userMetadata(o.Visibility)
		dst.ReplaceMetadata = true
	}
	_, err := s.client.CopyObject(ctx, dst, src)
	return err
}
