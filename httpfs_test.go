package sdstore_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tenrok/sdstore"
	"github.com/tenrok/sdstore/remote"
	"github.com/tenrok/sdstore/remote/macrosd"
	"github.com/tenrok/sdstore/remote/macrosd/macrosdtest"
)

func newHttpFS(t *testing.T) (*sdstore.HttpFS, remote.Storage) {
	t.Helper()
	srv := macrosdtest.NewServer("user", "secret")
	t.Cleanup(srv.Close)
	srv.SetClock(func() time.Time { return time.Unix(1700000000, 0) })

	storage := macrosd.New(srv.Config())
	ctx := context.Background()
	require.NoError(t, storage.Write(ctx, "docs/a.txt", []byte("alpha")))
	require.NoError(t, storage.Write(ctx, "docs/b.txt", []byte("beta")))
	require.NoError(t, storage.CreateDirectory(ctx, "docs/sub"))

	httpFS, err := sdstore.NewHttpFS(ctx, storage)
	require.NoError(t, err)
	return httpFS, storage
}

func TestNewHttpFSNilStorage(t *testing.T) {
	_, err := sdstore.NewHttpFS(context.Background(), nil)
	require.ErrorIs(t, err, sdstore.ErrNilStorage)
}

func TestOpenFile(t *testing.T) {
	httpFS, storage := newHttpFS(t)
	require.Equal(t, storage, httpFS.RemoteStorage())

	f, err := httpFS.Open("/docs/a.txt")
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, "a.txt", info.Name())
	require.Equal(t, int64(5), info.Size())
	require.False(t, info.IsDir())
	require.Equal(t, int64(1700000000), info.ModTime().Unix())

	pos, err := f.Seek(1, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(1), pos)

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "lpha", string(data))

	_, err = f.Readdir(-1)
	require.Error(t, err)
}

func TestOpenMissing(t *testing.T) {
	httpFS, _ := newHttpFS(t)

	_, err := httpFS.Open("/nope.txt")
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReaddir(t *testing.T) {
	httpFS, _ := newHttpFS(t)

	d, err := httpFS.Open("/docs")
	require.NoError(t, err)
	defer d.Close()

	info, err := d.Stat()
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, "docs", info.Name())

	first, err := d.Readdir(2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, "a.txt", first[0].Name())
	require.Equal(t, "b.txt", first[1].Name())
	require.Equal(t, int64(4), first[1].Size())

	second, err := d.Readdir(2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, "sub", second[0].Name())
	require.True(t, second[0].IsDir())

	_, err = d.Readdir(2)
	require.ErrorIs(t, err, io.EOF)

	_, err = d.Seek(0, io.SeekStart)
	require.NoError(t, err)
	all, err := d.Readdir(-1)
	require.NoError(t, err)
	require.Len(t, all, 3)

	attrs, ok := all[0].Sys().(*remote.FileAttributes)
	require.True(t, ok)
	require.Equal(t, "docs/a.txt", attrs.Path)
}

func TestFileServer(t *testing.T) {
	httpFS, _ := newHttpFS(t)
	srv := httptest.NewServer(http.FileServer(httpFS))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/docs/a.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alpha", string(body))

	resp, err = http.Get(srv.URL + "/docs/")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `<a href="a.txt">a.txt</a>`)
	require.Contains(t, string(body), `<a href="sub/">sub/</a>`)

	resp, err = http.Get(srv.URL + "/missing.txt")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
