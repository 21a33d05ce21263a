package models

import (
	"time"

	"github.com/google/uuid"
)

type Book struct {
	ID          uint      `gorm:"primaryKey"                          json:"id"`
	Name        string    `gorm:"size:255;not null;uniqueIndex"       json:"name"`
	Author      string    `gorm:"size:255;not null;index"             json:"author"`
	Description *string   `json:"description"`
	UserID      uuid.UUID `gorm:"type:uuid;index"                     json:"user_id"`
	Price       int64     `gorm:"not null;default:0;check:price >= 0" json:"price"`
	Stock       int64     `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Cart is an order once IsOrdered is set. A user has at most one cart with
// IsOrdered=false, enforced by a partial unique index (see repo.Migrate).
type Cart struct {
	ID            uint       `gorm:"primaryKey"                                   json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index"                     json:"user_id"`
	TotalPrice    int64      `gorm:"not null;default:0;check:total_price >= 0"    json:"total_price"`
	TotalQuantity int64      `gorm:"not null;default:0;check:total_quantity >= 0" json:"total_quantity"`
	IsOrdered     bool       `gorm:"not null;default:false;index"                 json:"is_ordered"`
	OrderedAt     *time.Time `json:"ordered_at,omitempty"`
	Items         []CartItem `gorm:"constraint:OnDelete:CASCADE"                  json:"items"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID       uint  `gorm:"primaryKey"                                                json:"id"`
	CartID   uint  `gorm:"not null;uniqueIndex:idx_cart_items_cart_book,priority:1" json:"cart_id"`
	BookID   uint  `gorm:"not null;uniqueIndex:idx_cart_items_cart_book,priority:2" json:"book_id"`
	Book     *Book `gorm:"constraint:OnDelete:RESTRICT"                              json:"-"`
	Quantity int64 `gorm:"not null;check:quantity > 0"                               json:"quantity"`
	// Price is the line total: unit price times quantity at the last change.
	Price int64 `gorm:"not null;default:0" json:"price"`
}
