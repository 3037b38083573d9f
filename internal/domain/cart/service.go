// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/pricing"
)

var (
	ErrSessionRequired       = errors.New("session ID required for guest cart")
	ErrUserRequired          = errors.New("user ID required for user cart")
	ErrItemNotFound          = errors.New("item not found in cart")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrInvalidLineID         = errors.New("invalid cart line id")
	ErrProductUnavailable    = errors.New("product not found or inactive")
	ErrInsufficientInventory = errors.New("insufficient inventory")
)

// MaxLineQuantity caps a single cart line
const MaxLineQuantity = 999

// ProductSource is the slice of the catalog the cart needs
type ProductSource interface {
	GetProduct(ctx context.Context, id uint) (*catalog.Product, error)
	GetProducts(ctx context.Context, ids []uint) (map[uint]*catalog.Product, error)
}

// BundleSource lists the bundles that apply to carts
type BundleSource interface {
	ListActive(ctx context.Context) ([]pricing.Bundle, error)
}

// Service handles cart business logic
type Service struct {
	products ProductSource
	bundles  BundleSource
	guests   Store
	users    Store
	logger   *logrus.Logger
}

// NewService creates a new cart service. guests holds session carts and users
// holds carts of signed-in users.
func NewService(products ProductSource, bundles BundleSource, guests, users Store, logger *logrus.Logger) *Service {
	return &Service{
		products: products,
		bundles:  bundles,
		guests:   guests,
		users:    users,
		logger:   logger,
	}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID        uint  `json:"product_id" binding:"required"`
	ProductVariantID *uint `json:"product_variant_id"`
	Quantity         int   `json:"quantity" binding:"required,min=1"`
}

// UpdateItemRequest represents update cart item request
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

func (s *Service) store(owner Owner) Store {
	if owner.IsGuest() {
		return s.guests
	}
	return s.users
}

// GetCart returns the cart priced with the active bundles. Shipping and
// coupons are applied at checkout.
func (s *Service) GetCart(ctx context.Context, owner Owner) (*Cart, error) {
	lines, items, err := s.LineItems(ctx, owner)
	if err != nil {
		return nil, err
	}

	bundles, err := s.bundles.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundles: %w", err)
	}

	return &Cart{
		SessionID: owner.SessionID,
		UserID:    owner.UserID,
		Items:     lines,
		Totals:    pricing.Aggregate(items, bundles),
	}, nil
}

// LineItems hydrates the stored items from the catalog. Items whose product
// or variant is gone or inactive are skipped.
func (s *Service) LineItems(ctx context.Context, owner Owner) ([]Line, []pricing.LineItem, error) {
	stored, err := s.store(owner).Load(ctx, owner)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uint, 0, len(stored))
	for _, item := range stored {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load cart products: %w", err)
	}

	lines := make([]Line, 0, len(stored))
	items := make([]pricing.LineItem, 0, len(stored))
	for _, item := range stored {
		product, ok := products[item.ProductID]
		if !ok || !product.IsActive {
			s.logger.WithFields(logrus.Fields{
				"product_id": item.ProductID,
				"owner":      owner.Key(),
			}).Warn("Skipping unavailable product in cart")
			continue
		}

		var variant *catalog.ProductVariant
		if item.ProductVariantID != nil {
			variant = product.FindVariant(*item.ProductVariantID)
			if variant == nil {
				s.logger.WithFields(logrus.Fields{
					"product_id": item.ProductID,
					"variant_id": *item.ProductVariantID,
					"owner":      owner.Key(),
				}).Warn("Skipping unavailable variant in cart")
				continue
			}
		}

		lineItem := pricing.LineItem{
			Product:  product.LineProduct(),
			Variant:  variant.LineVariant(),
			Quantity: item.Quantity,
		}
		items = append(items, lineItem)
		lines = append(lines, Line{
			ID:        item.LineID(),
			ProductID: item.ProductID,
			VariantID: item.ProductVariantID,
			SKU:       pricing.ResolvedSKU(lineItem),
			Quantity:  pricing.Quantity(lineItem),
			UnitPrice: pricing.UnitPrice(lineItem),
			LineTotal: pricing.Extended(lineItem),
			Product:   product,
			Variant:   variant,
			AddedAt:   item.AddedAt,
		})
	}

	return lines, items, nil
}

// AddItem adds quantity of a product (or variant) to the cart, merging with an
// existing line for the same product and variant
func (s *Service) AddItem(ctx context.Context, owner Owner, req *AddItemRequest) (*Cart, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, ErrProductUnavailable
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductUnavailable
	}

	var variant *catalog.ProductVariant
	if req.ProductVariantID != nil {
		variant = product.FindVariant(*req.ProductVariantID)
		if variant == nil {
			return nil, fmt.Errorf("%w: variant %d", ErrProductUnavailable, *req.ProductVariantID)
		}
	}

	store := s.store(owner)
	items, err := store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	lineID := LineID(req.ProductID, req.ProductVariantID)
	idx := indexOf(items, lineID)
	quantity := req.Quantity
	if idx >= 0 {
		quantity += items[idx].Quantity
	}
	if err := checkQuantity(variant, quantity); err != nil {
		return nil, err
	}

	if idx >= 0 {
		items[idx].Quantity = quantity
	} else {
		items = append(items, Item{
			ProductID:        req.ProductID,
			ProductVariantID: req.ProductVariantID,
			Quantity:         quantity,
			AddedAt:          time.Now().UTC(),
		})
	}

	if err := store.Save(ctx, owner, items); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

// UpdateQuantity sets the quantity of a cart line. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, owner Owner, lineID string, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	productID, variantID, err := ParseLineID(lineID)
	if err != nil {
		return nil, err
	}

	store := s.store(owner)
	items, err := store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	idx := indexOf(items, lineID)
	if idx < 0 {
		return nil, ErrItemNotFound
	}

	if quantity == 0 {
		items = append(items[:idx], items[idx+1:]...)
	} else {
		var variant *catalog.ProductVariant
		if variantID != nil {
			if product, err := s.products.GetProduct(ctx, productID); err == nil {
				variant = product.FindVariant(*variantID)
			}
		}
		if err := checkQuantity(variant, quantity); err != nil {
			return nil, err
		}
		items[idx].Quantity = quantity
	}

	if err := store.Save(ctx, owner, items); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

// RemoveItem removes a cart line
func (s *Service) RemoveItem(ctx context.Context, owner Owner, lineID string) (*Cart, error) {
	return s.UpdateQuantity(ctx, owner, lineID, 0)
}

// Clear removes all items from the cart
func (s *Service) Clear(ctx context.Context, owner Owner) error {
	return s.store(owner).Clear(ctx, owner)
}

// Count returns the total quantity of stored items
func (s *Service) Count(ctx context.Context, owner Owner) (int, error) {
	items, err := s.store(owner).Load(ctx, owner)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total, nil
}

// MergeGuestCart moves a guest session's items into the user's cart on login.
// Quantities of matching lines are added together.
func (s *Service) MergeGuestCart(ctx context.Context, userID uint, sessionID string) (*Cart, error) {
	guest := GuestOwner(sessionID)
	user := UserOwner(userID)

	guestItems, err := s.guests.Load(ctx, guest)
	if err != nil {
		return nil, err
	}
	if len(guestItems) == 0 {
		return s.GetCart(ctx, user)
	}

	userItems, err := s.users.Load(ctx, user)
	if err != nil {
		return nil, err
	}

	for _, item := range guestItems {
		if idx := indexOf(userItems, item.LineID()); idx >= 0 {
			userItems[idx].Quantity = min(userItems[idx].Quantity+item.Quantity, MaxLineQuantity)
			continue
		}
		userItems = append(userItems, item)
	}

	if err := s.users.Save(ctx, user, userItems); err != nil {
		return nil, err
	}
	if err := s.guests.Clear(ctx, guest); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":     userID,
		"guest_items": len(guestItems),
	}).Info("Guest cart merged")

	return s.GetCart(ctx, user)
}

func indexOf(items []Item, lineID string) int {
	for i := range items {
		if items[i].LineID() == lineID {
			return i
		}
	}
	return -1
}

func checkQuantity(variant *catalog.ProductVariant, quantity int) error {
	if quantity > MaxLineQuantity {
		return fmt.Errorf("%w: at most %d per line", ErrInvalidQuantity, MaxLineQuantity)
	}
	if variant != nil && variant.Inventory < quantity {
		return fmt.Errorf("%w: available %d", ErrInsufficientInventory, variant.Inventory)
	}
	return nil
}
