// internal/domain/shipping/service.go
package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

var (
	ErrMethodNotFound = errors.New("shipping method not found")
	ErrInvalidMethod  = errors.New("invalid shipping method")
)

// Service manages shipping methods
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new shipping service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// CreateRequest represents shipping method creation data
type CreateRequest struct {
	Name          string       `json:"name" binding:"required"`
	Description   string       `json:"description"`
	Price         money.Money  `json:"price"`
	FreeThreshold *money.Money `json:"free_threshold"`
	SortOrder     int          `json:"sort_order"`
	IsActive      *bool        `json:"is_active"`
}

// UpdateRequest represents shipping method update data
type UpdateRequest struct {
	Name               *string      `json:"name"`
	Description        *string      `json:"description"`
	Price              *money.Money `json:"price"`
	FreeThreshold      *money.Money `json:"free_threshold"`
	ClearFreeThreshold bool         `json:"clear_free_threshold"`
	SortOrder          *int         `json:"sort_order"`
	IsActive           *bool        `json:"is_active"`
}

// Create stores a new shipping method
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Method, error) {
	m := Method{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price,
		FreeThreshold: req.FreeThreshold,
		SortOrder:     req.SortOrder,
		IsActive:      true,
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	if err := validateMethod(&m); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, fmt.Errorf("failed to create shipping method: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"method_id": m.ID,
		"name":      m.Name,
		"price":     m.Price.String(),
	}).Info("Shipping method created")

	return &m, nil
}

// Update applies a partial update to a shipping method
func (s *Service) Update(ctx context.Context, id uint, req *UpdateRequest) (*Method, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.Price != nil {
		m.Price = *req.Price
	}
	if req.FreeThreshold != nil {
		m.FreeThreshold = req.FreeThreshold
	}
	if req.ClearFreeThreshold {
		m.FreeThreshold = nil
	}
	if req.SortOrder != nil {
		m.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	if err := validateMethod(m); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return nil, fmt.Errorf("failed to update shipping method: %w", err)
	}
	return m, nil
}

// Delete soft deletes a shipping method
func (s *Service) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Method{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete shipping method: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMethodNotFound
	}
	return nil
}

// Get retrieves a shipping method by id
func (s *Service) Get(ctx context.Context, id uint) (*Method, error) {
	var m Method
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMethodNotFound
		}
		return nil, fmt.Errorf("failed to retrieve shipping method: %w", err)
	}
	return &m, nil
}

// List returns every shipping method for administration
func (s *Service) List(ctx context.Context) ([]Method, error) {
	var methods []Method
	if err := s.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&methods).Error; err != nil {
		return nil, fmt.Errorf("failed to list shipping methods: %w", err)
	}
	return methods, nil
}

// ListActive returns the active methods ordered by sort order
func (s *Service) ListActive(ctx context.Context) ([]Method, error) {
	var methods []Method
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, id ASC").
		Find(&methods).Error; err != nil {
		return nil, fmt.Errorf("failed to list shipping methods: %w", err)
	}
	return methods, nil
}

// ListForPricing returns the active methods in the pricing engine's shape
func (s *Service) ListForPricing(ctx context.Context) ([]pricing.ShippingMethod, error) {
	methods, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]pricing.ShippingMethod, 0, len(methods))
	for i := range methods {
		result = append(result, methods[i].Pricing())
	}
	return result, nil
}

// GetConfig returns the active methods and the lowest free-shipping threshold
// among them, if any method has one
func (s *Service) GetConfig(ctx context.Context) (*Config, error) {
	methods, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Methods: methods}
	for _, m := range methods {
		if m.FreeThreshold == nil {
			continue
		}
		if cfg.FreeShippingThreshold == nil || *m.FreeThreshold < *cfg.FreeShippingThreshold {
			cfg.FreeShippingThreshold = money.Ptr(*m.FreeThreshold)
		}
	}
	return cfg, nil
}

func validateMethod(m *Method) error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMethod)
	}
	if m.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidMethod)
	}
	if m.FreeThreshold != nil && *m.FreeThreshold < 0 {
		return fmt.Errorf("%w: free threshold cannot be negative", ErrInvalidMethod)
	}
	return nil
}
