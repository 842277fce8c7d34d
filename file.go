package sdstore

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"sort"
	"syscall"

	"github.com/tenrok/sdstore/remote"
)

var (
	_ http.File = (*remoteFile)(nil)
	_ http.File = (*remoteDir)(nil)
)

// remoteFile описывает прочитанный в память файл хранилища.
type remoteFile struct {
	*bytes.Reader
	info   *fileInfo
	closed bool
}

func newFile(name string, data []byte, attrs *remote.FileAttributes) *remoteFile {
	attrs.FileSize = remote.Int64(int64(len(data)))
	return &remoteFile{
		Reader: bytes.NewReader(data),
		info:   newFileInfo(path.Base(name), attrs),
	}
}

func (f *remoteFile) Close() error {
	if f.closed {
		return os.ErrClosed
	}
	f.closed = true
	return nil
}

func (f *remoteFile) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	return f.Reader.Read(p)
}

func (f *remoteFile) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	return f.Reader.Seek(offset, whence)
}

func (f *remoteFile) Readdir(int) ([]fs.FileInfo, error) {
	return nil, syscall.ENOTDIR
}

func (f *remoteFile) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

// remoteDir описывает каталог хранилища. Содержимое запрашивается при первом вызове
// Readdir.
type remoteDir struct {
	ctx     context.Context
	storage remote.Storage
	name    string
	entries []fs.FileInfo
	loaded  bool
	offset  int
	closed  bool
}

func newDir(ctx context.Context, storage remote.Storage, name string) *remoteDir {
	return &remoteDir{ctx: ctx, storage: storage, name: name}
}

func (d *remoteDir) Close() error {
	if d.closed {
		return os.ErrClosed
	}
	d.closed = true
	return nil
}

func (d *remoteDir) Read([]byte) (int, error) {
	return 0, syscall.EISDIR
}

func (d *remoteDir) Seek(offset int64, whence int) (int64, error) {
	if offset == 0 && whence == io.SeekStart {
		d.offset = 0
		return 0, nil
	}
	return 0, syscall.EISDIR
}

func (d *remoteDir) load() error {
	if d.loaded {
		return nil
	}
	for entry, err := range d.storage.ListContents(d.ctx, d.name, false) {
		if err != nil {
			return err
		}
		name := path.Base(entry.Location())
		switch e := entry.(type) {
		case *remote.FileAttributes:
			d.entries = append(d.entries, newFileInfo(name, e))
		case *remote.DirectoryAttributes:
			d.entries = append(d.entries, newDirInfo(name, e))
		}
	}
	sort.Sort(byName(d.entries))
	d.loaded = true
	return nil
}

// Readdir ведёт себя как os.File.Readdir: при count > 0 возвращает не более
// count элементов и io.EOF в конце, иначе все оставшиеся.
func (d *remoteDir) Readdir(count int) ([]fs.FileInfo, error) {
	if d.closed {
		return nil, os.ErrClosed
	}
	if err := d.load(); err != nil {
		return nil, err
	}

	rest := d.entries[d.offset:]
	if count <= 0 {
		d.offset = len(d.entries)
		return append([]fs.FileInfo(nil), rest...), nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if count > len(rest) {
		count = len(rest)
	}
	d.offset += count
	return append([]fs.FileInfo(nil), rest[:count]...), nil
}

func (d *remoteDir) Stat() (fs.FileInfo, error) {
	name := path.Base(d.name)
	if d.name == "" {
		name = "/"
	}
	return newDirInfo(name, &remote.DirectoryAttributes{Path: d.name}), nil
}
