// internal/domain/cart/store.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Store persists the raw items of a cart
type Store interface {
	Load(ctx context.Context, owner Owner) ([]Item, error)
	Save(ctx context.Context, owner Owner, items []Item) error
	Clear(ctx context.Context, owner Owner) error
}

// RedisStore keeps guest carts in Redis as JSON with a sliding expiry
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a guest cart store
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func (r *RedisStore) Load(ctx context.Context, owner Owner) ([]Item, error) {
	if owner.SessionID == "" {
		return nil, ErrSessionRequired
	}

	data, err := r.client.Get(ctx, sessionKey(owner.SessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	var cart SessionCart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return cart.Items, nil
}

func (r *RedisStore) Save(ctx context.Context, owner Owner, items []Item) error {
	if owner.SessionID == "" {
		return ErrSessionRequired
	}
	if len(items) == 0 {
		return r.Clear(ctx, owner)
	}

	now := time.Now().UTC()
	cart := SessionCart{
		SessionID: owner.SessionID,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, item := range items {
		if !item.AddedAt.IsZero() && item.AddedAt.Before(cart.CreatedAt) {
			cart.CreatedAt = item.AddedAt
		}
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(owner.SessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, owner Owner) error {
	if owner.SessionID == "" {
		return ErrSessionRequired
	}
	if err := r.client.Del(ctx, sessionKey(owner.SessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear guest cart: %w", err)
	}
	return nil
}

// DBStore keeps signed-in users' carts in the cart_items table
type DBStore struct {
	db *gorm.DB
}

// NewDBStore creates a user cart store
func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (d *DBStore) Load(ctx context.Context, owner Owner) ([]Item, error) {
	if owner.UserID == nil {
		return nil, ErrUserRequired
	}

	var rows []CartItem
	if err := d.db.WithContext(ctx).
		Where("user_id = ?", *owner.UserID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve user cart: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, Item{
			ProductID:        row.ProductID,
			ProductVariantID: row.ProductVariantID,
			Quantity:         row.Quantity,
			AddedAt:          row.CreatedAt,
		})
	}
	return items, nil
}

// Save replaces the user's cart with items inside one transaction
func (d *DBStore) Save(ctx context.Context, owner Owner, items []Item) error {
	if owner.UserID == nil {
		return ErrUserRequired
	}

	tx := d.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Unscoped().Where("user_id = ?", *owner.UserID).Delete(&CartItem{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to reset user cart: %w", err)
	}

	if len(items) > 0 {
		rows := make([]CartItem, 0, len(items))
		for _, item := range items {
			row := CartItem{
				UserID:           *owner.UserID,
				ProductID:        item.ProductID,
				ProductVariantID: item.ProductVariantID,
				Quantity:         item.Quantity,
			}
			if !item.AddedAt.IsZero() {
				row.CreatedAt = item.AddedAt
			}
			rows = append(rows, row)
		}
		if err := tx.Create(&rows).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save user cart: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit user cart: %w", err)
	}
	return nil
}

func (d *DBStore) Clear(ctx context.Context, owner Owner) error {
	if owner.UserID == nil {
		return ErrUserRequired
	}
	if err := d.db.WithContext(ctx).Unscoped().Where("user_id = ?", *owner.UserID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear user cart: %w", err)
	}
	return nil
}
