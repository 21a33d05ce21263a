package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/bookshop/internal/models"
)

func (r *GormRepo) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Cart, error) {
	orders := []models.Cart{}
	if err := preloadItems(r.DB.WithContext(ctx)).
		Where("user_id = ? AND is_ordered = ?", userID, true).
		Order("ordered_at DESC").
		Order("id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, userID uuid.UUID, orderID uint) (*models.Cart, error) {
	var order models.Cart
	if err := preloadItems(r.DB.WithContext(ctx)).
		Where("id = ? AND user_id = ? AND is_ordered = ?", orderID, userID, true).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) LockOrder(ctx context.Context, userID uuid.UUID, orderID uint) (*models.Cart, error) {
	var order models.Cart
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ? AND is_ordered = ?", orderID, userID, true).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
