package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/middleware"
	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes 401 and returns false when the request is anonymous.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

// universityScope resolves the university whose feed is requested: the
// university_id query parameter, else the caller's own university.
func universityScope(c *gin.Context) (string, bool) {
	if id := strings.TrimSpace(c.Query("university_id")); id != "" {
		return id, true
	}
	if claims := claimsFromContext(c); claims != nil && claims.UniversityID != "" {
		return claims.UniversityID, true
	}
	response.Error(c, appErrors.Clone(appErrors.ErrValidation, "university_id is required"))
	return "", false
}

// stateFromQuery reads a screen state from query parameters:
// category, q, date (filter label), day (repeated for selected days),
// window_start and window_end.
func stateFromQuery(c *gin.Context) (feed.ScreenState, error) {
	state := feed.ScreenState{
		Category: models.Category(strings.TrimSpace(c.Query("category"))),
		Query:    c.Query("q"),
	}
	label := strings.TrimSpace(c.Query("date"))
	days := c.QueryArray("day")
	if label == "" && len(days) == 1 {
		label = string(feed.FilterSpecificDay) + ": " + days[0]
	}
	filter, err := feed.ParseDateFilter(label, days)
	if err != nil {
		return feed.ScreenState{}, appErrors.Invalid(err, err.Error())
	}
	state.Date = filter

	start, end := strings.TrimSpace(c.Query("window_start")), strings.TrimSpace(c.Query("window_end"))
	if start != "" || end != "" {
		state.Window = &feed.TimeWindow{Start: start, End: end}
	}
	return state, nil
}
