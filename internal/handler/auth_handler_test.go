package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
)

type fakeAuthSrv struct {
	registered models.RegisterRequest
	registerFn func(models.RegisterRequest) (*models.LoginResponse, error)
	loggedOut  string
}

func (f *fakeAuthSrv) Register(_ context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	f.registered = req
	if f.registerFn != nil {
		return f.registerFn(req)
	}
	return &models.LoginResponse{AccessToken: "access", User: models.UserInfo{Email: req.Email}}, nil
}

func (f *fakeAuthSrv) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return nil, appErrors.ErrInvalidCredentials
}

func (f *fakeAuthSrv) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "fresh"}, nil
}

func (f *fakeAuthSrv) Logout(_ context.Context, refreshToken string, _ string, _ models.LoginRequest) error {
	f.loggedOut = refreshToken
	return nil
}

func (f *fakeAuthSrv) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Email: "me@example.com"}, nil
}

func (f *fakeAuthSrv) ChangePassword(context.Context, string, models.ChangePasswordRequest) error {
	return nil
}

func TestAuthHandlerRegisterCapturesClientMetadata(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/auth/register",
		jsonBody(`{"email":"new@example.com","password":"longenough","full_name":"New","university_id":"univ-1"}`), nil)
	c.Request.Header.Set("User-Agent", "feed-test")

	handler.Register(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "new@example.com", srv.registered.Email)
	assert.Equal(t, "feed-test", srv.registered.UserAgent)

	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, "access", res.AccessToken)
}

func TestAuthHandlerRegisterPropagatesConflict(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{registerFn: func(models.RegisterRequest) (*models.LoginResponse, error) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}})
	c, rec := newTestContext(http.MethodPost, "/auth/register", jsonBody(`{"email":"x@example.com"}`), nil)

	handler.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, rec))
}

func TestAuthHandlerLoginRejectsMalformedBody(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newTestContext(http.MethodPost, "/auth/login", jsonBody(`{"email":`), nil)

	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})
	c, rec := newTestContext(http.MethodPost, "/auth/login", jsonBody(`{"email":"a@b.c","password":"nope"}`), nil)

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, rec))
}

func TestAuthHandlerMeAndLogoutRequireClaims(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/auth/me", nil, nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/auth/me", nil, testClaims())
	handler.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.UserInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &info))
	assert.Equal(t, "u1", info.ID)

	c, _ = newTestContext(http.MethodPost, "/auth/logout", jsonBody(`{"refresh_token":"rt-1"}`), testClaims())
	handler.Logout(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "rt-1", srv.loggedOut)
}
