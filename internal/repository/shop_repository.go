package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

const shopColumns = `id, owner_id, university_id, name, name_key, description, phone, logo_path, created_at, updated_at`

// ShopRepository persists seller storefronts.
type ShopRepository struct {
	db *sqlx.DB
}

// NewShopRepository constructs the repository.
func NewShopRepository(db *sqlx.DB) *ShopRepository {
	return &ShopRepository{db: db}
}

// NameTaken reports whether a shop already uses the normalized name key.
func (r *ShopRepository) NameTaken(ctx context.Context, nameKey string) (bool, error) {
	var taken bool
	if err := r.db.GetContext(ctx, &taken, `SELECT EXISTS (SELECT 1 FROM shops WHERE name_key = $1)`, nameKey); err != nil {
		return false, fmt.Errorf("check shop name: %w", err)
	}
	return taken, nil
}

// FindByOwner returns the shop owned by a user or sql.ErrNoRows.
func (r *ShopRepository) FindByOwner(ctx context.Context, ownerID string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.GetContext(ctx, &shop, `SELECT `+shopColumns+` FROM shops WHERE owner_id = $1`, ownerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find shop by owner: %w", err)
	}
	return &shop, nil
}

// Onboard creates the shop and promotes its owner to role in one transaction.
func (r *ShopRepository) Onboard(ctx context.Context, shop *models.Shop, role models.UserRole) (err error) {
	if shop.ID == "" {
		shop.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	shop.CreatedAt = now
	shop.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin onboard shop: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO shops (id, owner_id, university_id, name, name_key, description, phone, logo_path, created_at, updated_at) VALUES (:id, :owner_id, :university_id, :name, :name_key, :description, :phone, :logo_path, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, shop); err != nil {
		return fmt.Errorf("insert shop: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`, shop.OwnerID, role, now); err != nil {
		return fmt.Errorf("promote shop owner: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit onboard shop: %w", err)
	}
	return nil
}
