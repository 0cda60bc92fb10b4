package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-feed-api/internal/models"
	"github.com/noah-isme/campus-feed-api/internal/service"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
)

type fakeSellerSrv struct {
	checked string
	request service.OnboardRequest
}

func (f *fakeSellerSrv) CheckShopName(_ context.Context, name string) (bool, error) {
	f.checked = name
	return name != "Campus Books", nil
}

func (f *fakeSellerSrv) Onboard(_ context.Context, actor *models.JWTClaims, req service.OnboardRequest) (*models.Shop, error) {
	f.request = req
	if req.ShopName == "Campus Books" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "shop name is already taken")
	}
	return &models.Shop{ID: "shop-1", OwnerID: actor.UserID, Name: req.ShopName}, nil
}

type fakeProfileSrv struct {
	updated service.UpdateProfileRequest
}

func (f *fakeProfileSrv) Get(_ context.Context, userID string) (*models.Profile, error) {
	return &models.Profile{ID: userID, FullName: "Me"}, nil
}

func (f *fakeProfileSrv) Update(_ context.Context, userID string, req service.UpdateProfileRequest) (*models.Profile, error) {
	f.updated = req
	return &models.Profile{ID: userID, FullName: req.FullName}, nil
}

func TestSellerHandlerShopNameAvailability(t *testing.T) {
	srv := &fakeSellerSrv{}
	handler := NewSellerHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/sellers/shop-name/availability?name=Campus+Books", nil, testClaims())
	handler.ShopNameAvailability(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Available bool `json:"available"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))
	assert.False(t, body.Available)
	assert.Equal(t, "Campus Books", srv.checked)

	c, rec = newTestContext(http.MethodGet, "/sellers/shop-name/availability", nil, testClaims())
	handler.ShopNameAvailability(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSellerHandlerOnboard(t *testing.T) {
	handler := NewSellerHandler(&fakeSellerSrv{})

	c, rec := newTestContext(http.MethodPost, "/sellers/onboard", jsonBody(`{"shop_name":"Dorm Snacks","phone":"0912345678"}`), testClaims())
	handler.Onboard(c)
	require.Equal(t, http.StatusCreated, rec.Code)
	var shop models.Shop
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &shop))
	assert.Equal(t, "u1", shop.OwnerID)

	c, rec = newTestContext(http.MethodPost, "/sellers/onboard", jsonBody(`{"shop_name":"Campus Books"}`), testClaims())
	handler.Onboard(c)
	assert.Equal(t, http.StatusConflict, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/sellers/onboard", jsonBody(`{}`), nil)
	handler.Onboard(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileHandlerGetAndUpdate(t *testing.T) {
	srv := &fakeProfileSrv{}
	handler := NewProfileHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/profile", nil, testClaims())
	handler.Get(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodPut, "/profile", jsonBody(`{"full_name":"New Name","phone":"0912345678"}`), testClaims())
	handler.Update(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New Name", srv.updated.FullName)
	require.NotNil(t, srv.updated.Phone)
	assert.Equal(t, "0912345678", *srv.updated.Phone)

	c, rec = newTestContext(http.MethodPut, "/profile", jsonBody(`{"full_name":`), testClaims())
	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
