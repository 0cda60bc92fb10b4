package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-feed-api/internal/service"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/response"
	"github.com/noah-isme/campus-feed-api/pkg/storage"
)

const uploadFormField = "file"

type assetService interface {
	Upload(ctx context.Context, bucket string, data []byte) (*service.UploadResult, error)
	SignedURL(objectPath string) (*service.SignedURL, error)
	Open(token string) (*os.File, storage.Object, error)
}

// AssetHandler handles uploads and signed downloads.
type AssetHandler struct {
	service  assetService
	maxBytes int64
}

// NewAssetHandler constructs the handler. maxBytes caps the bytes read from
// one upload.
func NewAssetHandler(svc assetService, maxBytes int64) *AssetHandler {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &AssetHandler{service: svc, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Upload an image
// @Description Stores the image downscaled and re-encoded as WebP with a thumbnail
// @Tags Assets
// @Accept multipart/form-data
// @Produce json
// @Param bucket path string true "flyers, announcements, avatars or logos"
// @Param file formData file true "Image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Security BearerAuth
// @Router /assets/{bucket} [post]
func (h *AssetHandler) Upload(c *gin.Context) {
	if _, ok := requireClaims(c); !ok {
		return
	}
	header, err := c.FormFile(uploadFormField)
	if err != nil {
		response.Error(c, appErrors.Invalid(err, "file is required"))
		return
	}
	if header.Size > h.maxBytes {
		response.Error(c, appErrors.ErrPayloadTooLarge)
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Invalid(err, "unreadable upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		response.Error(c, appErrors.Invalid(err, "unreadable upload"))
		return
	}

	result, err := h.service.Upload(c.Request.Context(), c.Param("bucket"), data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Signed godoc
// @Summary Issue a signed download URL
// @Tags Assets
// @Accept json
// @Produce json
// @Param payload body object true "{\"path\": \"flyers/abc.webp\"}"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /assets/signed [post]
func (h *AssetHandler) Signed(c *gin.Context) {
	var payload struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Invalid(err, "path is required"))
		return
	}
	signed, err := h.service.SignedURL(strings.TrimSpace(payload.Path))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, signed, nil)
}

// Download godoc
// @Summary Download an asset by signed token
// @Tags Assets
// @Produce image/webp
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assets/download [get]
func (h *AssetHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "token is required"))
		return
	}
	file, info, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Cache-Control", "private, max-age=300")
	http.ServeContent(c.Writer, c.Request, path.Base(info.Path), info.ModTime, file)
}
