package apiclient

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseMultipart(t *testing.T, contentType string, body []byte) map[string]string {
	t.Helper()

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	parts := map[string]string{}
	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(p)
		require.NoError(t, err)
		parts[p.FormName()] = string(data)
	}
	return parts
}

func TestUpload_FileBytesAndFields(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusCreated, `{"id":"doc-1"}`)
	client := newTestClient(mock)
	defer client.Close()

	res, err := client.Upload().
		Path("/documents").
		FileBytes("document", "report.csv", []byte("id,total\n1,9.5")).
		Field("owner", "ops").
		Field("retention", "90d").
		Send(context.Background())

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode())

	req := mock.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/documents", req.URL.Path)

	bodies := mock.RequestBodies()
	require.Len(t, bodies, 1)
	parts := parseMultipart(t, req.Header.Get("Content-Type"), bodies[0])
	assert.Equal(t, "id,total\n1,9.5", parts["document"])
	assert.Equal(t, "ops", parts["owner"])
	assert.Equal(t, "90d", parts["retention"])
}

func TestUpload_FileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello upload"), 0o600))

	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := newTestClient(mock)
	defer client.Close()

	_, err := client.Upload().
		Path("/documents").
		File("document", path).
		Send(context.Background())
	require.NoError(t, err)

	bodies := mock.RequestBodies()
	require.Len(t, bodies, 1)
	parts := parseMultipart(t, mock.LastRequest().Header.Get("Content-Type"), bodies[0])
	assert.Equal(t, "hello upload", parts["document"])
}

func TestUpload_MissingFileFails(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := newTestClient(mock)
	defer client.Close()

	_, err := client.Upload().
		Path("/documents").
		File("document", "/does/not/exist.bin").
		Send(context.Background())

	require.Error(t, err)
	assert.Zero(t, mock.RequestCount(), "nothing hits the wire when the body cannot be built")
}

func TestUpload_RetriesReplayBody(t *testing.T) {
	mock := NewMockTransport().StubSequence("/documents",
		MockStatus(http.StatusServiceUnavailable, ""),
		MockStatus(http.StatusCreated, ""),
	)
	client := newTestClient(mock)
	defer client.Close()

	res, err := client.Upload().
		Path("/documents").
		FileBytes("document", "a.bin", []byte("payload")).
		Retries(1).
		Send(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts())

	bodies := mock.RequestBodies()
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1], "the buffered body must replay identically")
}
