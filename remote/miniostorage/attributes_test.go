package miniostorage

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"

	"github.com/tenrok/sdstore/remote"
)

func TestVisibilityOf(t *testing.T) {
	cases := []struct {
		name     string
		info     minio.ObjectInfo
		expected remote.Visibility
	}{
		{
			name:     "Stat metadata",
			info:     minio.ObjectInfo{UserMetadata: minio.StringMap{"Visibility": "public"}},
			expected: remote.VisibilityPublic,
		},
		{
			name:     "Listing metadata",
			info:     minio.ObjectInfo{UserMetadata: minio.StringMap{"X-Amz-Meta-Visibility": "private"}},
			expected: remote.VisibilityPrivate,
		},
		{
			name:     "Header metadata",
			info:     minio.ObjectInfo{Metadata: http.Header{"X-Amz-Meta-Visibility": {"public"}}},
			expected: remote.VisibilityPublic,
		},
		{
			name:     "Invalid value",
			info:     minio.ObjectInfo{UserMetadata: minio.StringMap{"Visibility": "shared"}},
			expected: "",
		},
		{
			name:     "Missing",
			info:     minio.ObjectInfo{},
			expected: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, visibilityOf(tc.info))
		})
	}
}

func TestFileAttributes(t *testing.T) {
	modified := time.Unix(1700000000, 0)
	info := minio.ObjectInfo{
		Key:          "prefix/a.txt",
		Size:         42,
		ContentType:  "text/plain",
		ETag:         "abc",
		LastModified: modified,
		UserMetadata: minio.StringMap{"Visibility": "public"},
	}

	attrs := fileAttributes("a.txt", info)
	require.Equal(t, "a.txt", attrs.Path)
	require.Equal(t, remote.EntryFile, attrs.Type())
	require.Equal(t, remote.VisibilityPublic, attrs.Visibility)
	require.Equal(t, int64(42), *attrs.FileSize)
	require.Equal(t, "text/plain", attrs.MimeType)
	require.Equal(t, modified.Unix(), attrs.LastModified.Unix())
	require.Equal(t, remote.Metadata{"etag": "abc"}, attrs.ExtraMetadata)
}

func TestDirectoryAttributes(t *testing.T) {
	attrs := directoryAttributes("a/b", minio.ObjectInfo{Key: "a/b/"})
	require.Equal(t, "a/b", attrs.Path)
	require.Equal(t, remote.EntryDir, attrs.Type())
	require.Nil(t, attrs.LastModified)
	require.True(t, isDirKey("a/b/"))
	require.False(t, isDirKey("a/b"))
}

func TestErrors(t *testing.T) {
	notFound := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
	require.True(t, isNotFound(notFound))
	require.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}))

	err := wrap(remote.KindUnableToReadFile, notFound)
	require.ErrorIs(t, err, remote.ErrUnableToReadFile)

	typed := remote.NewError(remote.KindInvalidVisibilityProvided, "bad", 0)
	require.Same(t, typed, wrap(remote.KindUnableToWriteFile, typed))

	cause := errors.New("boom")
	require.ErrorIs(t, wrap(remote.KindUnableToCopyFile, cause), cause)
}

func TestUserMetadata(t *testing.T) {
	require.Equal(t, map[string]string{"Visibility": "private"}, userMetadata(remote.VisibilityPrivate))
}
