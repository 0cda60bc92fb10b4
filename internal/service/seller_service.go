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
	"github.com/noah-isme/campus-feed-api/pkg/database"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
)

const (
	shopNameUniqueConstraint  = "shops_name_key_unique"
	shopOwnerUniqueConstraint = "shops_owner_id_key"
)

type shopRepository interface {
	NameTaken(ctx context.Context, nameKey string) (bool, error)
	FindByOwner(ctx context.Context, ownerID string) (*models.Shop, error)
	Onboard(ctx context.Context, shop *models.Shop, role models.UserRole) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// OnboardRequest turns a student account into a seller.
type OnboardRequest struct {
	ShopName    string `json:"shop_name" validate:"required,min=3,max=60"`
	Description string `json:"description" validate:"max=500"`
	Phone       string `json:"phone" validate:"required,max=32"`
	LogoPath    string `json:"logo_path" validate:"max=300"`
}

// SellerService handles seller onboarding.
type SellerService struct {
	shops     shopRepository
	audit     auditWriter
	phones    phoneNormalizer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSellerService constructs the service.
func NewSellerService(shops shopRepository, audit auditWriter, phones phoneNormalizer, validate *validator.Validate, logger *zap.Logger) *SellerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SellerService{shops: shops, audit: audit, phones: phones, validator: validate, logger: logger}
}

// ShopNameKey folds a shop name for uniqueness checks: case-insensitive with
// collapsed whitespace.
func ShopNameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CheckShopName reports whether name is free.
func (s *SellerService) CheckShopName(ctx context.Context, name string) (bool, error) {
	key := ShopNameKey(name)
	if len(key) < 3 {
		return false, appErrors.Clone(appErrors.ErrValidation, "shop name must be at least 3 characters")
	}
	taken, err := s.shops.NameTaken(ctx, key)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check shop name")
	}
	return !taken, nil
}

// Onboard creates the actor's shop and promotes them to seller.
func (s *SellerService) Onboard(ctx context.Context, actor *models.JWTClaims, req OnboardRequest) (*models.Shop, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.ShopName = strings.Join(strings.Fields(req.ShopName), " ")
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid onboarding payload")
	}

	phoneNumber, err := s.phones.Normalize(req.Phone)
	if err != nil {
		return nil, phoneError(err)
	}
	logo := trimmedPtr(req.LogoPath)
	if logo != nil && !strings.HasPrefix(*logo, BucketLogos+"/") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "logo must be uploaded to the logos bucket")
	}

	if _, err := s.shops.FindByOwner(ctx, actor.UserID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account already owns a shop")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shop")
	}

	available, err := s.CheckShopName(ctx, req.ShopName)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, appErrors.Clone(appErrors.ErrConflict, "shop name is already taken")
	}

	shop := &models.Shop{
		OwnerID:      actor.UserID,
		UniversityID: actor.UniversityID,
		Name:         req.ShopName,
		NameKey:      ShopNameKey(req.ShopName),
		Description:  strings.TrimSpace(req.Description),
		Phone:        phoneNumber,
		LogoPath:     logo,
	}
	if err := s.shops.Onboard(ctx, shop, models.RoleSeller); err != nil {
		switch {
		case database.IsUniqueViolation(err, shopNameUniqueConstraint):
			return nil, appErrors.Clone(appErrors.ErrConflict, "shop name is already taken")
		case database.IsUniqueViolation(err, shopOwnerUniqueConstraint):
			return nil, appErrors.Clone(appErrors.ErrConflict, "account already owns a shop")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create shop")
	}

	if s.audit != nil {
		values, _ := json.Marshal(map[string]string{"shop_id": shop.ID, "name": shop.Name})
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionShopOnboard,
			Resource:   models.AuditResourceShop,
			ResourceID: &shop.ID,
			NewValues:  values,
		}); err != nil {
			s.logger.Warn("failed to record onboarding audit log", zap.Error(err))
		}
	}
	s.logger.Info("seller onboarded", zap.String("user_id", actor.UserID), zap.String("shop_id", shop.ID))
	return shop, nil
}
