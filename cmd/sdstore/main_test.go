package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenrok/sdstore"
	"github.com/tenrok/sdstore/remote"
	"github.com/tenrok/sdstore/remote/macrosd"
	"github.com/tenrok/sdstore/remote/macrosd/macrosdtest"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newServer(t *testing.T) string {
	t.Helper()
	srv := macrosdtest.NewServer("user", "secret")
	t.Cleanup(srv.Close)
	return macrosd.ConnString(srv.Config())
}

func TestCommands(t *testing.T) {
	url := newServer(t)

	_, err := execute(t, "hello", "--url", url, "put", "docs/a.txt", "--visibility", "public")
	require.NoError(t, err)

	out, err := execute(t, "", "--url", url, "cat", "docs/a.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", out)

	out, err = execute(t, "", "--url", url, "exists", "docs")
	require.NoError(t, err)
	require.Equal(t, "dir\n", out)

	out, err = execute(t, "", "--url", url, "visibility", "docs/a.txt")
	require.NoError(t, err)
	require.Equal(t, "public\n", out)

	_, err = execute(t, "", "--url", url, "visibility", "docs/a.txt", "private")
	require.NoError(t, err)

	out, err = execute(t, "", "--url", url, "stat", "docs/a.txt")
	require.NoError(t, err)
	require.Contains(t, out, "private")
	require.Contains(t, out, "size")

	_, err = execute(t, "", "--url", url, "cp", "docs/a.txt", "docs/b.txt")
	require.NoError(t, err)
	_, err = execute(t, "", "--url", url, "mv", "docs/b.txt", "other/c.txt")
	require.NoError(t, err)

	out, err = execute(t, "", "--url", url, "ls", "-r")
	require.NoError(t, err)
	require.Contains(t, out, "docs/a.txt")
	require.Contains(t, out, "other/c.txt")
	require.NotContains(t, out, "docs/b.txt")

	_, err = execute(t, "", "--url", url, "rm", "docs/a.txt")
	require.NoError(t, err)
	_, err = execute(t, "", "--url", url, "rmdir", "other")
	require.NoError(t, err)

	_, err = execute(t, "", "--url", url, "cat", "docs/a.txt")
	require.ErrorIs(t, err, remote.ErrUnableToReadFile)
}

func TestNoURL(t *testing.T) {
	t.Setenv("SDSTORE_URL", "")
	config.URL = ""

	_, err := execute(t, "", "--url", "", "ls")
	require.ErrorIs(t, err, errNoURL)
}

func TestServeMux(t *testing.T) {
	srv := macrosdtest.NewServer("user", "secret")
	t.Cleanup(srv.Close)

	storage := macrosd.New(srv.Config())
	require.NoError(t, storage.Write(context.Background(), "index.txt", []byte("served")))
	httpFS, err := sdstore.NewHttpFS(context.Background(), storage)
	require.NoError(t, err)

	ts := httptest.NewServer(newServeMux(httpFS))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/index.txt")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "served", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
