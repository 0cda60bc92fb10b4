package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/jobs"
	"github.com/noah-isme/campus-feed-api/pkg/phone"
)

type profileUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type shopOwnerLookup interface {
	FindByOwner(ctx context.Context, ownerID string) (*models.Shop, error)
}

type phoneNormalizer interface {
	Normalize(raw string) (string, error)
}

type publicURLResolver interface {
	PublicURL(objectPath string) string
}

// UpdateProfileRequest carries the self-service profile fields.
type UpdateProfileRequest struct {
	FullName   string  `json:"full_name" validate:"required,max=120"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	AvatarPath *string `json:"avatar_path" validate:"omitempty,max=300"`
}

// ProfileService exposes the profile of the signed-in user.
type ProfileService struct {
	users     profileUserRepository
	shops     shopOwnerLookup
	phones    phoneNormalizer
	urls      publicURLResolver
	queue     jobEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs the service.
func NewProfileService(users profileUserRepository, shops shopOwnerLookup, phones phoneNormalizer, urls publicURLResolver, queue jobEnqueuer, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{users: users, shops: shops, phones: phones, urls: urls, queue: queue, validator: validate, logger: logger}
}

// Get returns the profile of userID, with the owned shop when present.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := s.toProfile(user)
	if s.shops != nil {
		shop, err := s.shops.FindByOwner(ctx, user.ID)
		switch {
		case err == nil:
			profile.Shop = shop
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shop")
		}
	}
	return profile, nil
}

// Update stores the profile fields. The phone number is normalized and the
// previous avatar is released when replaced.
func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*models.Profile, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid profile payload")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var normalizedPhone *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		value, err := s.phones.Normalize(*req.Phone)
		if err != nil {
			return nil, phoneError(err)
		}
		normalizedPhone = &value
	}

	avatar := trimmedPtr(derefString(req.AvatarPath))
	if avatar != nil && !strings.HasPrefix(*avatar, BucketAvatars+"/") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "avatar must be uploaded to the avatars bucket")
	}
	previousAvatar := derefString(user.AvatarPath)

	user.FullName = req.FullName
	user.Phone = normalizedPhone
	user.AvatarPath = avatar
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	if previousAvatar != "" && previousAvatar != derefString(avatar) && s.queue != nil {
		if _, err := s.queue.Enqueue(jobs.Job{Type: JobDeleteAsset, Payload: previousAvatar}); err != nil {
			s.logger.Warn("failed to enqueue avatar deletion", zap.String("path", previousAvatar), zap.Error(err))
		}
	}

	values, _ := json.Marshal(map[string]interface{}{"full_name": user.FullName, "phone": user.Phone, "avatar_path": user.AvatarPath})
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionProfileUpdate,
		Resource:   models.AuditResourceProfile,
		ResourceID: &user.ID,
		NewValues:  values,
	}); err != nil {
		s.logger.Warn("failed to record profile audit log", zap.Error(err))
	}
	return s.Get(ctx, user.ID)
}

func (s *ProfileService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *ProfileService) toProfile(user *models.User) *models.Profile {
	profile := &models.Profile{
		ID:           user.ID,
		UniversityID: user.UniversityID,
		Email:        user.Email,
		FullName:     user.FullName,
		Phone:        user.Phone,
		Role:         user.Role,
	}
	if user.AvatarPath != nil && s.urls != nil {
		link := s.urls.PublicURL(*user.AvatarPath)
		profile.AvatarURL = &link
	}
	return profile
}

// phoneError maps normalizer failures to validation errors.
func phoneError(err error) error {
	message := "invalid phone number"
	switch {
	case errors.Is(err, phone.ErrInvalidNumber):
		message = "phone number is not a valid number for the configured region"
	case errors.Is(err, phone.ErrInvalidCharacters):
		message = "phone number may only contain digits and separators"
	case errors.Is(err, phone.ErrForeignNumber):
		message = "phone number must belong to the configured country"
	case errors.Is(err, phone.ErrEmpty):
		message = "phone number is required"
	}
	return appErrors.Invalid(err, message)
}
