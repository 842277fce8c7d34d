package macrosd

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenrok/sdstore/remote"
)

func TestNewRequest(t *testing.T) {
	s := New(Config{Host: "http://localhost/", User: "user", Password: "pass"})

	req, err := s.newRequest(context.Background(), "fileExists", url.Values{"location": {"a b/c.txt"}}, nil)
	require.NoError(t, err)

	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "localhost", req.URL.Host)
	require.Equal(t, "/", req.URL.Path)
	require.Equal(t, "fileExists", req.URL.Query().Get("method"))
	require.Equal(t, "a b/c.txt", req.URL.Query().Get("location"))
	require.Equal(t, "basic "+base64.StdEncoding.EncodeToString([]byte("user:pass")), req.Header.Get("Authorization"))
}

func TestNewRequestDoesNotMutateArgs(t *testing.T) {
	s := New(Config{Host: "http://localhost", User: "u", Password: "p"})
	args := location("x")

	_, err := s.newRequest(context.Background(), "read", args, nil)
	require.NoError(t, err)
	require.False(t, args.Has("method"))
}

func TestNewRequestMethodOverridesArgument(t *testing.T) {
	s := New(Config{Host: "http://localhost", User: "u", Password: "p"})

	req, err := s.newRequest(context.Background(), "delete", url.Values{"method": {"read"}}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"delete"}, req.URL.Query()["method"])
}

func TestCopyArguments(t *testing.T) {
	args := copyArguments("a", "b", remote.NewOptions())
	require.Equal(t, url.Values{"source": {"a"}, "destination": {"b"}}, args)

	args = copyArguments("a", "b", remote.NewOptions(
		remote.WithVisibility(remote.VisibilityPublic),
		remote.WithDirectoryVisibility(remote.VisibilityPrivate),
	))
	require.Equal(t, "public", args.Get("visibility"))
	require.Equal(t, "private", args.Get("directory_visibility"))

	args = copyArguments("a", "b", remote.NewOptions(remote.WithVisibility("shared")))
	require.False(t, args.Has("visibility"))
	require.False(t, args.Has("directory_visibility"))
}
