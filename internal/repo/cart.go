package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/bookshop/internal/models"
)

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("cart_items.id ASC") }).
		Preload("Items.Book")
}

// ActiveCart loads the user's active cart with its lines and their books.
func (r *GormRepo) ActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := preloadItems(r.DB.WithContext(ctx)).
		Where("user_id = ? AND is_ordered = ?", userID, false).
		First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) LockActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND is_ordered = ?", userID, false).
		First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// EnsureActiveCart returns the user's active cart, creating it when absent.
// Concurrent callers race on the partial unique index; the loser's insert is
// a no-op and it reads the winner's row.
func (r *GormRepo) EnsureActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, bool, error) {
	cart := models.Cart{UserID: userID}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&cart)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	locked, err := r.LockActiveCart(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return locked, created, nil
}

func (r *GormRepo) LoadCart(ctx context.Context, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := preloadItems(r.DB.WithContext(ctx)).First(&cart, cartID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) FindItem(ctx context.Context, cartID, bookID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.DB.WithContext(ctx).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *GormRepo) UpdateItem(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{"quantity": item.Quantity, "price": item.Price}).Error
}

// CartItems returns the lines ordered by book id, the lock order used when
// touching book rows.
func (r *GormRepo) CartItems(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("book_id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) DeleteItem(ctx context.Context, cartID, itemID uint) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecalculateTotals sets the cart totals to the sums over its lines.
func (r *GormRepo) RecalculateTotals(ctx context.Context, cartID uint) error {
	var sums struct {
		Quantity int64
		Price    int64
	}
	if err := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Select("COALESCE(SUM(quantity), 0) AS quantity, COALESCE(SUM(price), 0) AS price").
		Where("cart_id = ?", cartID).
		Scan(&sums).Error; err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"total_quantity": sums.Quantity, "total_price": sums.Price}).Error
}

// DeleteCart removes the cart and its lines without touching stock.
func (r *GormRepo) DeleteCart(ctx context.Context, cartID uint) error {
	if err := r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	res := r.DB.WithContext(ctx).Delete(&models.Cart{}, cartID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) MarkOrdered(ctx context.Context, cartID uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND is_ordered = ?", cartID, false).
		Updates(map[string]any{"is_ordered": true, "ordered_at": at}).Error
}
