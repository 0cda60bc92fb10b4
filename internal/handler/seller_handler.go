package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-feed-api/internal/models"
	"github.com/noah-isme/campus-feed-api/internal/service"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/response"
)

type sellerService interface {
	CheckShopName(ctx context.Context, name string) (bool, error)
	Onboard(ctx context.Context, actor *models.JWTClaims, req service.OnboardRequest) (*models.Shop, error)
}

// SellerHandler exposes seller onboarding.
type SellerHandler struct {
	service sellerService
}

// NewSellerHandler constructs the handler.
func NewSellerHandler(svc sellerService) *SellerHandler {
	return &SellerHandler{service: svc}
}

// ShopNameAvailability godoc
// @Summary Check whether a shop name is free
// @Tags Sellers
// @Produce json
// @Param name query string true "Shop name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /sellers/shop-name/availability [get]
func (h *SellerHandler) ShopNameAvailability(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "name is required"))
		return
	}
	available, err := h.service.CheckShopName(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"name": name, "available": available}, nil)
}

// Onboard godoc
// @Summary Become a seller
// @Description Creates the caller's shop and promotes the account to SELLER
// @Tags Sellers
// @Accept json
// @Produce json
// @Param payload body service.OnboardRequest true "Onboarding payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /sellers/onboard [post]
func (h *SellerHandler) Onboard(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req service.OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid onboarding payload"))
		return
	}
	shop, err := h.service.Onboard(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, shop)
}
