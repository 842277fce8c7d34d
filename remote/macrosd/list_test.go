package macrosd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenrok/sdstore/remote"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

type trackingBody struct {
	io.Reader
	closed atomic.Int32
}

func (b *trackingBody) Close() error {
	b.closed.Add(1)
	return nil
}

func newListingStorage(t *testing.T, body *trackingBody) (*MacroSDStorage, *http.Request) {
	t.Helper()
	var captured http.Request
	s := New(Config{Host: "http://localhost", User: "u", Password: "p"}, WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		captured = *req
		return &http.Response{StatusCode: http.StatusOK, Body: body}, nil
	})))
	return s, &captured
}

func collect(t *testing.T, seq func(func(remote.StorageAttributes, error) bool)) []remote.StorageAttributes {
	t.Helper()
	var entries []remote.StorageAttributes
	for entry, err := range seq {
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	return entries
}

func TestListContentsDecodesRows(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(
		"file,/a/1.txt,public,1000,10,text/plain,\n" +
			"dir,/a/b,private,1000,,,\n",
	)}
	s, req := newListingStorage(t, body)

	entries := collect(t, s.ListContents(context.Background(), "/a", true))

	require.Len(t, entries, 2)
	require.Equal(t, "listContents", req.URL.Query().Get("method"))
	require.Equal(t, "/a", req.URL.Query().Get("location"))
	require.Equal(t, "true", req.URL.Query().Get("deep"))

	file, ok := entries[0].(*remote.FileAttributes)
	require.True(t, ok)
	require.Equal(t, "/a/1.txt", file.Path)
	require.Equal(t, remote.VisibilityPublic, file.Visibility)
	require.Equal(t, int64(10), *file.FileSize)
	require.Equal(t, "text/plain", file.MimeType)
	require.Equal(t, int64(1000), file.LastModified.Unix())
	require.Nil(t, file.ExtraMetadata)

	dir, ok := entries[1].(*remote.DirectoryAttributes)
	require.True(t, ok)
	require.Equal(t, "/a/b", dir.Path)
	require.Equal(t, remote.VisibilityPrivate, dir.Visibility)
	require.Equal(t, int64(1000), dir.LastModified.Unix())

	require.Equal(t, int32(1), body.closed.Load())
}

func TestListContentsShallowFlag(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("")}
	s, req := newListingStorage(t, body)

	require.Empty(t, collect(t, s.ListContents(context.Background(), "", false)))
	require.Equal(t, "false", req.URL.Query().Get("deep"))
	require.Equal(t, int32(1), body.closed.Load())
}

func TestListContentsSkipsUnknownAndMalformedRows(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(
		"symlink,/a/link,public,1000,,,\n" +
			"file,/a/bad\"name,public,1000,1,,\n" +
			"\n" +
			"file,/a/2.txt,,,,,\n",
	)}
	s, _ := newListingStorage(t, body)

	entries := collect(t, s.ListContents(context.Background(), "/a", false))

	require.Len(t, entries, 1)
	file := entries[0].(*remote.FileAttributes)
	require.Equal(t, "/a/2.txt", file.Path)
	require.Equal(t, remote.Visibility(""), file.Visibility)
	require.Nil(t, file.LastModified)
	require.Nil(t, file.FileSize)
	require.Equal(t, "", file.MimeType)
}

func TestListContentsExtraMetadataColumn(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(
		"file,a.txt,public,5,3,text/plain,\"{\"\"etag\"\":\"\"abc\"\"}\"\n" +
			"dir,d,public,5,,,\"{\"\"owner\"\":\"\"bob\"\"}\"\n" +
			"file,b.txt,public,5,0,,not-json\n",
	)}
	s, _ := newListingStorage(t, body)

	entries := collect(t, s.ListContents(context.Background(), "", true))
	require.Len(t, entries, 3)

	file := entries[0].(*remote.FileAttributes)
	require.Equal(t, int64(3), *file.FileSize)
	require.Equal(t, remote.Metadata{"etag": "abc"}, file.ExtraMetadata)

	dir := entries[1].(*remote.DirectoryAttributes)
	require.Equal(t, remote.Metadata{"owner": "bob"}, dir.ExtraMetadata)

	second := entries[2].(*remote.FileAttributes)
	require.Equal(t, int64(0), *second.FileSize)
	require.Nil(t, second.ExtraMetadata)
}

func TestListContentsEarlyBreakClosesBody(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(
		"file,a,public,1,1,,\nfile,b,public,1,1,,\nfile,c,public,1,1,,\n",
	)}
	s, _ := newListingStorage(t, body)

	var seen []string
	for entry, err := range s.ListContents(context.Background(), "", true) {
		require.NoError(t, err)
		seen = append(seen, entry.Location())
		break
	}
	require.Equal(t, []string{"a"}, seen)
	require.Equal(t, int32(1), body.closed.Load())
}

func TestListContentsRequestIsLazy(t *testing.T) {
	var calls atomic.Int32
	s := New(Config{Host: "http://localhost"}, WithHTTPClient(doerFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}, nil
	})))

	seq := s.ListContents(context.Background(), "", false)
	require.Equal(t, int32(0), calls.Load())
	for range seq {
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestListContentsTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	s := New(Config{Host: "http://localhost"}, WithHTTPClient(doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, cause
	})))

	var errs []error
	for entry, err := range s.ListContents(context.Background(), "", false) {
		require.Nil(t, entry)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], remote.ErrUnableToReadFile)
	require.ErrorIs(t, errs[0], cause)
}

func TestListContentsStructuredError(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(`{"error":"PathTraversalDetected","message":"nope","code":3}`)}
	s := New(Config{Host: "http://localhost"}, WithHTTPClient(doerFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusInternalServerError, Body: body}, nil
	})))

	var errs []error
	for _, err := range s.ListContents(context.Background(), "../etc", true) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], remote.ErrPathTraversalDetected)
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestListContentsReadError(t *testing.T) {
	cause := errors.New("connection reset")
	body := &trackingBody{Reader: io.MultiReader(strings.NewReader("file,a,public,1,1,,\n"), failingReader{cause})}
	s, _ := newListingStorage(t, body)

	var (
		entries []remote.StorageAttributes
		errs    []error
	)
	for entry, err := range s.ListContents(context.Background(), "", true) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, entry)
	}
	require.Len(t, entries, 1)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], cause)
	require.Equal(t, int32(1), body.closed.Load())
}
