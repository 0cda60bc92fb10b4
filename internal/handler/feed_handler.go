package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/middleware"
	"github.com/noah-isme/campus-feed-api/internal/service"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/response"
)

type feedService interface {
	View(ctx context.Context, universityID string, state feed.ScreenState) (*service.FeedResult, error)
	Banner(ctx context.Context, universityID string) ([]feed.BannerItem, error)
	Suggestions(ctx context.Context, universityID, query string) ([]feed.Suggestion, error)
	StreamBanner(ctx context.Context, universityID string, emit func(service.BannerFrame)) error
}

// FeedHandler serves the derived feed screens.
type FeedHandler struct {
	service feedService
	logger  *zap.Logger
}

// NewFeedHandler constructs the handler.
func NewFeedHandler(svc feedService, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{service: svc, logger: logger}
}

// View godoc
// @Summary Derive a feed screen
// @Description Applies the screen state (category, search, date filter, time window) to the university's events and announcements
// @Tags Feed
// @Accept json
// @Produce json
// @Param university_id query string false "University (defaults to the caller's)"
// @Param payload body feed.ScreenState false "Screen state"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /feed [post]
func (h *FeedHandler) View(c *gin.Context) {
	universityID, ok := universityScope(c)
	if !ok {
		return
	}
	var state feed.ScreenState
	if err := c.ShouldBindJSON(&state); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Invalid(err, "invalid screen state"))
		return
	}

	result, err := h.service.View(c.Request.Context(), universityID, state)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, result.CacheHit)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Banner godoc
// @Summary Today's banner rotation set
// @Tags Feed
// @Produce json
// @Param university_id query string false "University (defaults to the caller's)"
// @Success 200 {object} response.Envelope
// @Router /feed/banner [get]
func (h *FeedHandler) Banner(c *gin.Context) {
	universityID, ok := universityScope(c)
	if !ok {
		return
	}
	items, err := h.service.Banner(c.Request.Context(), universityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// BannerStream godoc
// @Summary Stream the rotating banner
// @Description Server-sent events; one "banner" event per rotation tick
// @Tags Feed
// @Produce text/event-stream
// @Param university_id query string false "University (defaults to the caller's)"
// @Success 200 {string} string
// @Router /feed/banner/stream [get]
func (h *FeedHandler) BannerStream(c *gin.Context) {
	universityID, ok := universityScope(c)
	if !ok {
		return
	}
	if _, err := h.service.Banner(c.Request.Context(), universityID); err != nil {
		response.Error(c, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	frames := make(chan service.BannerFrame)
	go func() {
		defer close(frames)
		err := h.service.StreamBanner(ctx, universityID, func(frame service.BannerFrame) {
			select {
			case frames <- frame:
			case <-ctx.Done():
			}
		})
		if err != nil {
			h.logger.Warn("banner stream ended", zap.String("university_id", universityID), zap.Error(err))
		}
	}()

	response.PrepareStream(c)
	for {
		select {
		case <-ctx.Done():
			return
		case frame, open := <-frames:
			if !open {
				return
			}
			response.Event(c, "banner", frame)
		}
	}
}

// Suggestions godoc
// @Summary Search suggestions
// @Tags Feed
// @Produce json
// @Param university_id query string false "University (defaults to the caller's)"
// @Param q query string true "Partial query"
// @Success 200 {object} response.Envelope
// @Router /feed/suggestions [get]
func (h *FeedHandler) Suggestions(c *gin.Context) {
	universityID, ok := universityScope(c)
	if !ok {
		return
	}
	items, err := h.service.Suggestions(c.Request.Context(), universityID, c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
