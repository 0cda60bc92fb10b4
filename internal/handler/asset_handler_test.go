package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-feed-api/internal/service"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/storage"
)

type fakeAssetSrv struct {
	bucket   string
	uploaded []byte
	file     string
	openErr  error
}

func (f *fakeAssetSrv) Upload(_ context.Context, bucket string, data []byte) (*service.UploadResult, error) {
	f.bucket = bucket
	f.uploaded = data
	return &service.UploadResult{Path: bucket + "/abc.webp", ContentType: "image/webp"}, nil
}

func (f *fakeAssetSrv) SignedURL(objectPath string) (*service.SignedURL, error) {
	if objectPath == "flyers/missing.webp" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "asset not found")
	}
	return &service.SignedURL{URL: "/assets/download?token=t", Token: "t"}, nil
}

func (f *fakeAssetSrv) Open(token string) (*os.File, storage.Object, error) {
	if f.openErr != nil {
		return nil, storage.Object{}, f.openErr
	}
	file, err := os.Open(f.file)
	if err != nil {
		return nil, storage.Object{}, err
	}
	return file, storage.Object{Path: "flyers/abc.webp", Size: 4, ModTime: time.Now()}, nil
}

func multipartUpload(t *testing.T, target string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(uploadFormField, "flyer.png")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestAssetHandlerUploadReadsMultipartFile(t *testing.T) {
	srv := &fakeAssetSrv{}
	handler := NewAssetHandler(srv, 1024)
	c, rec := newTestContext(http.MethodPost, "/assets/flyers", nil, testClaims())
	c.Request = multipartUpload(t, "/assets/flyers", []byte("image-bytes"))
	c.Params = gin.Params{{Key: "bucket", Value: "flyers"}}

	handler.Upload(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "flyers", srv.bucket)
	assert.Equal(t, []byte("image-bytes"), srv.uploaded)
}

func TestAssetHandlerUploadRejectsOversizedAndAnonymous(t *testing.T) {
	handler := NewAssetHandler(&fakeAssetSrv{}, 4)

	c, rec := newTestContext(http.MethodPost, "/assets/flyers", nil, testClaims())
	c.Request = multipartUpload(t, "/assets/flyers", []byte("far too large"))
	handler.Upload(c)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/assets/flyers", nil, nil)
	c.Request = multipartUpload(t, "/assets/flyers", []byte("ok"))
	handler.Upload(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/assets/flyers", jsonBody(`{}`), testClaims())
	handler.Upload(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssetHandlerSigned(t *testing.T) {
	handler := NewAssetHandler(&fakeAssetSrv{}, 0)

	c, rec := newTestContext(http.MethodPost, "/assets/signed", jsonBody(`{"path":"flyers/abc.webp"}`), testClaims())
	handler.Signed(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/assets/signed", jsonBody(`{"path":"flyers/missing.webp"}`), testClaims())
	handler.Signed(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/assets/signed", jsonBody(`{}`), testClaims())
	handler.Signed(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssetHandlerDownload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "abc.webp")
	require.NoError(t, os.WriteFile(file, []byte("RIFF"), 0o600))
	handler := NewAssetHandler(&fakeAssetSrv{file: file}, 0)

	c, rec := newTestContext(http.MethodGet, "/assets/download?token=t", nil, nil)
	handler.Download(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RIFF", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "webp")

	c, rec = newTestContext(http.MethodGet, "/assets/download", nil, nil)
	handler.Download(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := NewAssetHandler(&fakeAssetSrv{openErr: appErrors.Clone(appErrors.ErrForbidden, "download link expired")}, 0)
	c, rec = newTestContext(http.MethodGet, "/assets/download?token=old", nil, nil)
	expired.Download(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
