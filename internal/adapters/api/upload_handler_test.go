package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	savedName string
}

func (f *fakeObjectStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	f.savedName = filename
	return "http://localhost:8080/uploads/" + filename, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, url string) error {
	return nil
}

func uploadRouter(store *fakeObjectStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewUploadHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := gin.New()
	router.POST("/api/upload", handler.Upload)
	return router
}

func imageForm(t *testing.T, filename, contentType string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0xAB}, size))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func TestUpload_StoresImage(t *testing.T) {
	store := &fakeObjectStore{}
	router := uploadRouter(store)

	body, contentType := imageForm(t, "uno.jpg", "image/jpeg", 1024)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "/uploads/")
	assert.Equal(t, "uno.jpg", store.savedName)
}

func TestUpload_MissingFile(t *testing.T) {
	router := uploadRouter(&fakeObjectStore{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("other", "value"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_UnsupportedType(t *testing.T) {
	store := &fakeObjectStore{}
	router := uploadRouter(store)

	body, contentType := imageForm(t, "malware.exe", "application/octet-stream", 1024)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.savedName)
}

func TestUpload_TooLarge(t *testing.T) {
	store := &fakeObjectStore{}
	router := uploadRouter(store)

	body, contentType := imageForm(t, "huge.png", "image/png", maxUploadSize+1)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, store.savedName)
}

// Chunked transfers have no Content-Length, so the cap has to trip while the
// body is being read, not from the header.
func TestUpload_TooLargeChunked(t *testing.T) {
	store := &fakeObjectStore{}
	router := uploadRouter(store)

	body, contentType := imageForm(t, "huge.png", "image/png", maxUploadSize+1)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", io.NopCloser(body))
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, store.savedName)
}
