package sdstore

import (
	"io/fs"
	"os"
	"time"

	"github.com/tenrok/sdstore/remote"
)

// Убеждаемся в том, что мы всегда реализуем интерфейс fs.FileInfo.
var _ fs.FileInfo = (*fileInfo)(nil)

// fileInfo реализует fs.FileInfo по атрибутам хранилища.
type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
	attrs   remote.StorageAttributes
}

func newFileInfo(name string, attrs *remote.FileAttributes) *fileInfo {
	fi := &fileInfo{name: name, attrs: attrs}
	if attrs.FileSize != nil {
		fi.size = *attrs.FileSize
	}
	if attrs.LastModified != nil {
		fi.modTime = *attrs.LastModified
	}
	return fi
}

func newDirInfo(name string, attrs *remote.DirectoryAttributes) *fileInfo {
	fi := &fileInfo{name: name, dir: true, attrs: attrs}
	if attrs.LastModified != nil {
		fi.modTime = *attrs.LastModified
	}
	return fi
}

func (f *fileInfo) Name() string { return f.name }

func (f *fileInfo) Size() int64 { return f.size }

// Права доступа хранилище не передаёт. Возвращаем значения по умолчанию.
func (f *fileInfo) Mode() os.FileMode {
	if f.dir {
		return fs.ModeDir | 0755
	}
	return 0644
}

func (f *fileInfo) ModTime() time.Time { return f.modTime.Local() }

func (f *fileInfo) IsDir() bool { return f.dir }

// Sys возвращает исходные атрибуты: *remote.FileAttributes или
// *remote.DirectoryAttributes.
func (f *fileInfo) Sys() any { return f.attrs }

type byName []fs.FileInfo

func (a byName) Len() int           { return len(a) }
func (a byName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byName) Less(i, j int) bool { return a[i].Name() < a[j].Name() }
