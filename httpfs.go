// Package sdstore раздаёт содержимое удалённого хранилища через net/http.
package sdstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/tenrok/sdstore/internal/logging"
	"github.com/tenrok/sdstore/remote"
)

// ErrNilStorage возвращается NewHttpFS, если хранилище не задано.
var ErrNilStorage = errors.New("remote storage is nil")

var _ http.FileSystem = (*HttpFS)(nil)

// HttpFS реализует http.FileSystem поверх remote.Storage.
type HttpFS struct {
	ctx           context.Context
	remoteStorage remote.Storage
	logger        *zap.Logger
}

type HttpFSOption func(*HttpFS)

// WithLogger
func WithLogger(logger *zap.Logger) HttpFSOption {
	return func(httpFS *HttpFS) {
		httpFS.logger = logging.OrNop(logger)
	}
}

// NewHttpFS создаёт файловую систему. ctx используется для всех запросов к
// хранилищу.
func NewHttpFS(ctx context.Context, storage remote.Storage, opts ...HttpFSOption) (*HttpFS, error) {
	if storage == nil {
		return nil, ErrNilStorage
	}

	f := &HttpFS{
		ctx:           ctx,
		remoteStorage: storage,
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f, nil
}

// Open открывает файл или каталог. Отсутствующий путь даёт ошибку,
// удовлетворяющую errors.Is(err, fs.ErrNotExist).
func (f *HttpFS) Open(name string) (http.File, error) {
	n := strings.Trim(path.Clean("/"+name), "/")

	if n == "" {
		return newDir(f.ctx, f.remoteStorage, n), nil
	}

	ok, err := f.remoteStorage.FileExists(f.ctx, n)
	if err != nil {
		f.logger.Debug("open failed", zap.String("name", n), zap.Error(err))
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if ok {
		return f.openFile(n)
	}

	ok, err = f.remoteStorage.DirectoryExists(f.ctx, n)
	if err != nil {
		f.logger.Debug("open failed", zap.String("name", n), zap.Error(err))
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	if ok {
		return newDir(f.ctx, f.remoteStorage, n), nil
	}

	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// openFile читает файл целиком, чтобы отдавать его с поддержкой Seek.
func (f *HttpFS) openFile(name string) (http.File, error) {
	rc, err := f.remoteStorage.ReadStream(f.ctx, name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}

	attrs := &remote.FileAttributes{Path: name}
	if lm, err := f.remoteStorage.LastModified(f.ctx, name); err == nil {
		attrs.LastModified = lm.LastModified
	} else {
		f.logger.Debug("last modified unavailable", zap.String("name", name), zap.Error(err))
	}

	return newFile(name, data, attrs), nil
}

// RemoteStorage
func (f *HttpFS) RemoteStorage() remote.Storage {
	return f.remoteStorage
}
