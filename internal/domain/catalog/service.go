// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/pkg/money"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("product variant not found")
	ErrDuplicateSKU    = errors.New("product with this SKU already exists")
	ErrDuplicateSlug   = errors.New("product with this slug already exists")
	ErrBundleOverlap   = errors.New("SKU would match more than one active bundle")
)

// BundleFilterSource lists the active bundles whose SKU filters new products
// are checked against
type BundleFilterSource interface {
	ListActive(ctx context.Context) ([]pricing.Bundle, error)
}

// Service handles product catalog lookups
type Service struct {
	db      *gorm.DB
	bundles BundleFilterSource
	logger  *logrus.Logger
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// SetBundleFilters enables the bundle overlap check on product creation.
// The bundle service depends on the catalog, so it is attached after both exist.
func (s *Service) SetBundleFilters(bundles BundleFilterSource) {
	s.bundles = bundles
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Search    string `form:"search"`
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
	IsActive  *bool  `form:"is_active"`
}

// VariantRequest represents a variant in a product creation request
type VariantRequest struct {
	SKU           string       `json:"sku"`
	Name          string       `json:"name" binding:"required"`
	Value         string       `json:"value"`
	Price         *money.Money `json:"price"`
	OriginalPrice *money.Money `json:"original_price"`
	Inventory     int          `json:"inventory"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	SKU         string           `json:"sku" binding:"required"`
	Name        string           `json:"name" binding:"required"`
	Slug        string           `json:"slug"`
	Description string           `json:"description"`
	Price       money.Money      `json:"price" binding:"min=0"`
	IsActive    *bool            `json:"is_active"`
	Variants    []VariantRequest `json:"variants"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPagination computes pagination info for a page of results
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ListProducts retrieves products with filtering and pagination
func (s *Service) ListProducts(ctx context.Context, req *ProductListRequest) (*ProductResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	var products []Product
	var total int64

	query := s.db.WithContext(ctx).Model(&Product{}).
		Preload("Variants", "is_active = ?", true)

	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", search, search)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &ProductResponse{
		Products:   products,
		Pagination: NewPagination(req.Page, req.Limit, total),
	}, nil
}

// GetProduct retrieves a single product with its active variants
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).
		Preload("Variants", "is_active = ?", true).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", err)
	}
	return &product, nil
}

// GetVariant retrieves an active variant of a product
func (s *Service) GetVariant(ctx context.Context, productID, variantID uint) (*ProductVariant, error) {
	var variant ProductVariant
	err := s.db.WithContext(ctx).
		Where("id = ? AND product_id = ? AND is_active = ?", variantID, productID, true).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to retrieve variant: %w", err)
	}
	return &variant, nil
}

// GetProducts loads the given products keyed by id. Missing ids are left out.
func (s *Service) GetProducts(ctx context.Context, ids []uint) (map[uint]*Product, error) {
	result := make(map[uint]*Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var products []Product
	if err := s.db.WithContext(ctx).
		Preload("Variants", "is_active = ?", true).
		Where("id IN ?", ids).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}

// CreateProduct creates a new product with its variants
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest) (*Product, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&Product{}).Where("sku = ?", req.SKU).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check SKU: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSKU, req.SKU)
	}

	slug := req.Slug
	if slug == "" {
		slug = Slugify(req.Name)
	}
	if err := db.Model(&Product{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSlug, slug)
	}

	if err := s.checkBundleOverlap(ctx, req.SKUs()); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	product := Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Price:       money.Max(0, req.Price),
		IsActive:    isActive,
	}
	for _, v := range req.Variants {
		product.Variants = append(product.Variants, ProductVariant{
			SKU:           v.SKU,
			Name:          v.Name,
			Value:         v.Value,
			Price:         v.Price,
			OriginalPrice: v.OriginalPrice,
			Inventory:     v.Inventory,
			IsActive:      true,
		})
	}

	if err := db.Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"sku":        product.SKU,
		"variants":   len(product.Variants),
	}).Info("Product created")

	return &product, nil
}

// SKUs returns the product SKU and every non-empty variant SKU of the request
func (r *ProductCreateRequest) SKUs() []string {
	skus := []string{r.SKU}
	for _, v := range r.Variants {
		if v.SKU != "" {
			skus = append(skus, v.SKU)
		}
	}
	return skus
}

// checkBundleOverlap rejects SKUs that two active bundle filters would both
// claim, which would let one cart line count toward two bundle discounts
func (s *Service) checkBundleOverlap(ctx context.Context, skus []string) error {
	if s.bundles == nil {
		return nil
	}

	bundles, err := s.bundles.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active bundles: %w", err)
	}

	for i := range bundles {
		for j := i + 1; j < len(bundles); j++ {
			conflicts := pricing.ConflictingSKUs(bundles[i].SKUFilter, bundles[j].SKUFilter, skus)
			if len(conflicts) > 0 {
				return fmt.Errorf("%w: %s matches bundles %q and %q",
					ErrBundleOverlap, strings.Join(conflicts, ", "), bundles[i].Slug, bundles[j].Slug)
			}
		}
	}
	return nil
}

// MatchingSKU returns active products whose SKU, or the SKU of one of their
// active variants, contains filter. Matching is case-sensitive; the LIKE
// prefilter narrows candidates and the final check runs in Go.
func (s *Service) MatchingSKU(ctx context.Context, filter string) ([]Product, error) {
	if filter == "" {
		return []Product{}, nil
	}

	like := "%" + escapeLike(filter) + "%"
	variantProducts := s.db.Model(&ProductVariant{}).
		Select("product_id").
		Where(`is_active = ? AND sku LIKE ? ESCAPE '\'`, true, like)

	var candidates []Product
	if err := s.db.WithContext(ctx).
		Preload("Variants", "is_active = ?", true).
		Where("is_active = ?", true).
		Where(`sku LIKE ? ESCAPE '\' OR id IN (?)`, like, variantProducts).
		Order("id ASC").
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to match products: %w", err)
	}

	matched := make([]Product, 0, len(candidates))
	for _, p := range candidates {
		if productMatches(p, filter) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// AllSKUs returns every distinct SKU an active cart line could resolve to
func (s *Service) AllSKUs(ctx context.Context) ([]string, error) {
	var products []Product
	if err := s.db.WithContext(ctx).
		Preload("Variants", "is_active = ?", true).
		Where("is_active = ?", true).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list SKUs: %w", err)
	}

	seen := make(map[string]struct{})
	for _, p := range products {
		seen[p.SKU] = struct{}{}
		for _, v := range p.Variants {
			if v.SKU != "" {
				seen[v.SKU] = struct{}{}
			}
		}
	}

	skus := make([]string, 0, len(seen))
	for sku := range seen {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus, nil
}

func productMatches(p Product, filter string) bool {
	if strings.Contains(p.SKU, filter) {
		return true
	}
	for _, v := range p.Variants {
		if v.SKU != "" && strings.Contains(v.SKU, filter) {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// buildOrderClause builds ORDER BY clause for sorting
func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"sku":        true,
		"created_at": true,
		"updated_at": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify generates a URL-friendly slug from a name
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
