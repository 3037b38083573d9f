// internal/domain/bundle/service.go
package bundle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/pricing"
	"gorm.io/gorm"
)

var (
	ErrBundleNotFound = errors.New("bundle not found")
	ErrInvalidBundle  = errors.New("invalid bundle")
	ErrDuplicateSlug  = errors.New("bundle with this slug already exists")
	// ErrBundleOverlap means two active bundles could claim the same SKU
	ErrBundleOverlap = errors.New("bundle overlaps an active bundle")
)

var hundred = decimal.NewFromInt(100)

// ProductMatcher is the slice of the catalog the bundle service needs
type ProductMatcher interface {
	MatchingSKU(ctx context.Context, filter string) ([]catalog.Product, error)
	AllSKUs(ctx context.Context) ([]string, error)
}

// Service manages bundle configuration
type Service struct {
	db      *gorm.DB
	catalog ProductMatcher
	logger  *logrus.Logger
}

// NewService creates a new bundle service
func NewService(db *gorm.DB, catalog ProductMatcher, logger *logrus.Logger) *Service {
	return &Service{
		db:      db,
		catalog: catalog,
		logger:  logger,
	}
}

// CreateRequest represents bundle creation data
type CreateRequest struct {
	Name               string          `json:"name" binding:"required"`
	Slug               string          `json:"slug"`
	Description        string          `json:"description"`
	SKUFilter          string          `json:"sku_filter" binding:"required"`
	RequiredQuantity   int             `json:"required_quantity" binding:"required"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	IsActive           *bool           `json:"is_active"`
}

// UpdateRequest represents bundle update data
type UpdateRequest struct {
	Name               *string          `json:"name"`
	Description        *string          `json:"description"`
	SKUFilter          *string          `json:"sku_filter"`
	RequiredQuantity   *int             `json:"required_quantity"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	IsActive           *bool            `json:"is_active"`
}

// Create validates and stores a new bundle
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Bundle, error) {
	b := Bundle{
		Name:               strings.TrimSpace(req.Name),
		Slug:               req.Slug,
		Description:        req.Description,
		SKUFilter:          strings.TrimSpace(req.SKUFilter),
		RequiredQuantity:   req.RequiredQuantity,
		DiscountPercentage: req.DiscountPercentage,
		IsActive:           true,
	}
	if b.Slug == "" {
		b.Slug = catalog.Slugify(b.Name)
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}

	if err := s.validate(ctx, &b); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Bundle{}).Where("slug = ?", b.Slug).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSlug, b.Slug)
	}

	if err := s.db.WithContext(ctx).Create(&b).Error; err != nil {
		return nil, fmt.Errorf("failed to create bundle: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"bundle_id":  b.ID,
		"slug":       b.Slug,
		"sku_filter": b.SKUFilter,
	}).Info("Bundle created")

	return &b, nil
}

// Update applies a partial update, re-running every write-time check
func (s *Service) Update(ctx context.Context, id uint, req *UpdateRequest) (*Bundle, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		b.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.SKUFilter != nil {
		b.SKUFilter = strings.TrimSpace(*req.SKUFilter)
	}
	if req.RequiredQuantity != nil {
		b.RequiredQuantity = *req.RequiredQuantity
	}
	if req.DiscountPercentage != nil {
		b.DiscountPercentage = *req.DiscountPercentage
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}

	if err := s.validate(ctx, b); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(b).Error; err != nil {
		return nil, fmt.Errorf("failed to update bundle: %w", err)
	}
	return b, nil
}

// Delete soft deletes a bundle
func (s *Service) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Bundle{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete bundle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBundleNotFound
	}
	return nil
}

// Get retrieves a bundle by id regardless of status
func (s *Service) Get(ctx context.Context, id uint) (*Bundle, error) {
	var b Bundle
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBundleNotFound
		}
		return nil, fmt.Errorf("failed to retrieve bundle: %w", err)
	}
	return &b, nil
}

// GetBySlug retrieves an active bundle by slug
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Bundle, error) {
	var b Bundle
	if err := s.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBundleNotFound
		}
		return nil, fmt.Errorf("failed to retrieve bundle: %w", err)
	}
	return &b, nil
}

// List returns all bundles for administration
func (s *Service) List(ctx context.Context) ([]Bundle, error) {
	var bundles []Bundle
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&bundles).Error; err != nil {
		return nil, fmt.Errorf("failed to list bundles: %w", err)
	}
	return bundles, nil
}

// ListActive returns the active bundles in the pricing engine's shape
func (s *Service) ListActive(ctx context.Context) ([]pricing.Bundle, error) {
	var bundles []Bundle
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&bundles).Error; err != nil {
		return nil, fmt.Errorf("failed to list active bundles: %w", err)
	}

	result := make([]pricing.Bundle, 0, len(bundles))
	for i := range bundles {
		result = append(result, bundles[i].Pricing())
	}
	return result, nil
}

// GetConfig returns the public configuration of an active bundle with the
// products its filter currently matches
func (s *Service) GetConfig(ctx context.Context, slug string) (*Config, error) {
	b, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	products, err := s.catalog.MatchingSKU(ctx, b.SKUFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle products: %w", err)
	}

	return &Config{
		Name:               b.Name,
		Description:        b.Description,
		RequiredQuantity:   b.RequiredQuantity,
		DiscountPercentage: b.DiscountPercentage,
		SKUFilter:          b.SKUFilter,
		Products:           products,
	}, nil
}

func (s *Service) validate(ctx context.Context, b *Bundle) error {
	if b.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBundle)
	}
	if b.Slug == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidBundle)
	}
	if b.SKUFilter == "" {
		return fmt.Errorf("%w: %v", ErrInvalidBundle, pricing.ErrEmptySKUFilter)
	}
	if b.RequiredQuantity < 1 {
		return fmt.Errorf("%w: required quantity must be at least 1", ErrInvalidBundle)
	}
	if b.DiscountPercentage.IsNegative() || b.DiscountPercentage.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount percentage must be between 0 and 100", ErrInvalidBundle)
	}

	if !b.IsActive {
		return nil
	}
	return s.checkOverlap(ctx, b)
}

// checkOverlap rejects an active bundle whose filter could claim a SKU already
// claimed by another active bundle
func (s *Service) checkOverlap(ctx context.Context, b *Bundle) error {
	var others []Bundle
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND id <> ?", true, b.ID).
		Find(&others).Error; err != nil {
		return fmt.Errorf("failed to load active bundles: %w", err)
	}
	if len(others) == 0 {
		return nil
	}

	for _, other := range others {
		if err := pricing.CheckFilterOverlap([]string{b.SKUFilter, other.SKUFilter}); err != nil {
			return fmt.Errorf("%w %q: %v", ErrBundleOverlap, other.Slug, err)
		}
	}

	skus, err := s.catalog.AllSKUs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog SKUs: %w", err)
	}
	for _, other := range others {
		if conflicts := pricing.ConflictingSKUs(b.SKUFilter, other.SKUFilter, skus); len(conflicts) > 0 {
			return fmt.Errorf("%w %q: SKUs %s match both filters", ErrBundleOverlap, other.Slug, strings.Join(conflicts, ", "))
		}
	}
	return nil
}
