package transport

import (
	"time"

	"github.com/Skotchmaster/bookshop/internal/models"
	"github.com/Skotchmaster/bookshop/internal/util"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Response struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
}

type PageResponse struct {
	Message string        `json:"message"`
	Status  string        `json:"status"`
	Data    any           `json:"data"`
	Meta    util.PageMeta `json:"meta"`
}

type ErrorResponse struct {
	Message string         `json:"message"`
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// BookRequest serves create, PUT and PATCH. Pointers tell "absent" from zero.
type BookRequest struct {
	Name        *string `json:"name"`
	Author      *string `json:"author"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Stock       *int64  `json:"stock"`
}

type AddItemRequest struct {
	BookID   *int64 `json:"book_id"`
	Quantity *int64 `json:"quantity"`
}

type CartItemResponse struct {
	ID       uint   `json:"id"`
	BookID   uint   `json:"book_id"`
	Book     string `json:"book"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
}

type CartResponse struct {
	ID            uint               `json:"id"`
	TotalPrice    int64              `json:"total_price"`
	TotalQuantity int64              `json:"total_quantity"`
	IsOrdered     bool               `json:"is_ordered"`
	OrderedAt     *time.Time         `json:"ordered_at,omitempty"`
	Items         []CartItemResponse `json:"items"`
}

func NewCartResponse(c *models.Cart) CartResponse {
	out := CartResponse{
		ID:            c.ID,
		TotalPrice:    c.TotalPrice,
		TotalQuantity: c.TotalQuantity,
		IsOrdered:     c.IsOrdered,
		OrderedAt:     c.OrderedAt,
		Items:         make([]CartItemResponse, 0, len(c.Items)),
	}
	for _, it := range c.Items {
		item := CartItemResponse{
			ID:       it.ID,
			BookID:   it.BookID,
			Quantity: it.Quantity,
			Price:    it.Price,
		}
		if it.Book != nil {
			item.Book = it.Book.Name
		}
		out.Items = append(out.Items, item)
	}
	return out
}

func NewCartResponses(carts []models.Cart) []CartResponse {
	out := make([]CartResponse, 0, len(carts))
	for i := range carts {
		out = append(out, NewCartResponse(&carts[i]))
	}
	return out
}
