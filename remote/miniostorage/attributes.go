package miniostorage

import (
	"errors"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/tenrok/sdstore/remote"
)

// visibilityKey задаёт ключ пользовательских метаданных объекта с видимостью.
const visibilityKey = "Visibility"

// visibilityOf извлекает видимость из метаданных объекта. StatObject отдаёт
// пользовательские метаданные без префикса, а ListObjects с префиксом
// X-Amz-Meta-, поэтому проверяются оба варианта.
func visibilityOf(info minio.ObjectInfo) remote.Visibility {
	for k, v := range info.UserMetadata {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k == strings.ToLower(visibilityKey) {
			return remote.ParseVisibility(v)
		}
	}
	return remote.ParseVisibility(info.Metadata.Get("X-Amz-Meta-" + visibilityKey))
}

// userMetadata возвращает метаданные для записи объекта с видимостью v.
func userMetadata(v remote.Visibility) map[string]string {
	return map[string]string{visibilityKey: string(v)}
}

func extraMetadata(info minio.ObjectInfo) remote.Metadata {
	if info.ETag == "" {
		return nil
	}
	return remote.Metadata{"etag": info.ETag}
}

// fileAttributes преобразует сведения об объекте в атрибуты файла.
func fileAttributes(location string, info minio.ObjectInfo) *remote.FileAttributes {
	attrs := &remote.FileAttributes{
		Path:          location,
		Visibility:    visibilityOf(info),
		FileSize:      remote.Int64(info.Size),
		MimeType:      info.ContentType,
		ExtraMetadata: extraMetadata(info),
	}
	if !info.LastModified.IsZero() {
		attrs.LastModified = remote.UnixTime(info.LastModified.Unix())
	}
	return attrs
}

// directoryAttributes преобразует маркер каталога или общий префикс листинга.
func directoryAttributes(location string, info minio.ObjectInfo) *remote.DirectoryAttributes {
	attrs := &remote.DirectoryAttributes{
		Path:       location,
		Visibility: visibilityOf(info),
	}
	if !info.LastModified.IsZero() {
		attrs.LastModified = remote.UnixTime(info.LastModified.Unix())
	}
	return attrs
}

func isDirKey(key string) bool { return strings.HasSuffix(key, "/") }

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// wrap превращает ошибку клиента MinIO в ошибку заданного вида.
func wrap(kind remote.ErrorKind, err error) error {
	var e *remote.Error
	if errors.As(err, &e) {
		return err
	}
	return &remote.Error{Kind: kind, Message: err.Error(), Err: err}
}
