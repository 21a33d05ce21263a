package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bookshop/internal/models"
	"github.com/Skotchmaster/bookshop/internal/repo"
	"github.com/Skotchmaster/bookshop/internal/transport"
	"github.com/Skotchmaster/bookshop/pkg/events"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type CartResult struct {
	Cart *models.Cart
	// Created is set when this call opened the user's active cart.
	Created bool
}

func (s *CartService) GetActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.ActiveCart(ctx, userID)
	if err != nil {
		return nil, notFound(err, "no active cart found for the user")
	}
	return cart, nil
}

// AddItem puts quantity copies of a book into the user's active cart, opening
// the cart if needed. Quantities for a book already in the cart accumulate.
// Stock is checked but not reserved.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req transport.AddItemRequest) (*CartResult, error) {
	if req.BookID == nil || *req.BookID <= 0 {
		return nil, fmt.Errorf("%w: book_id must be a positive integer", ErrValidation)
	}
	if req.Quantity == nil || *req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", ErrValidation)
	}
	bookID, qty := uint(*req.BookID), *req.Quantity

	var result CartResult
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		book, err := tx.GetBook(ctx, bookID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: book does not exist", ErrValidation)
		}
		if err != nil {
			return err
		}
		if qty > book.Stock {
			return stockError(book, qty)
		}

		cart, created, err := tx.EnsureActiveCart(ctx, userID)
		if err != nil {
			return err
		}

		item, err := tx.FindItem(ctx, cart.ID, book.ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = &models.CartItem{
				CartID:   cart.ID,
				BookID:   book.ID,
				Quantity: qty,
				Price:    book.Price * qty,
			}
			if err := tx.CreateItem(ctx, item); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			total := item.Quantity + qty
			if total > book.Stock {
				return stockError(book, total)
			}
			item.Quantity = total
			item.Price = book.Price * total
			if err := tx.UpdateItem(ctx, item); err != nil {
				return err
			}
		}

		if err := tx.RecalculateTotals(ctx, cart.ID); err != nil {
			return err
		}
		loaded, err := tx.LoadCart(ctx, cart.ID)
		if err != nil {
			return err
		}
		result = CartResult{Cart: loaded, Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicCartEvents, userID.String(),
		events.New("cart_item_added", userID.String(), map[string]any{
			"cart_id":  result.Cart.ID,
			"book_id":  bookID,
			"quantity": qty,
		}))
	return &result, nil
}

// RemoveItem deletes one line from the user's active cart. Lines of other
// carts are reported as not found.
func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, itemID uint) (*models.Cart, error) {
	var cart *models.Cart
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		active, err := tx.LockActiveCart(ctx, userID)
		if err != nil {
			return notFound(err, "no active cart found for the user")
		}
		if err := tx.DeleteItem(ctx, active.ID, itemID); err != nil {
			return notFound(err, "cart item not found")
		}
		if err := tx.RecalculateTotals(ctx, active.ID); err != nil {
			return err
		}
		cart, err = tx.LoadCart(ctx, active.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicCartEvents, userID.String(),
		events.New("cart_item_removed", userID.String(), map[string]any{
			"cart_id": cart.ID,
			"item_id": itemID,
		}))
	return cart, nil
}

func (s *CartService) DeleteCart(ctx context.Context, userID uuid.UUID) error {
	var cartID uint
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		active, err := tx.LockActiveCart(ctx, userID)
		if err != nil {
			return notFound(err, "no active cart found for the user")
		}
		cartID = active.ID
		return tx.DeleteCart(ctx, active.ID)
	})
	if err != nil {
		return err
	}

	publish(ctx, s.Events, TopicCartEvents, userID.String(),
		events.New("cart_deleted", userID.String(), map[string]any{"cart_id": cartID}))
	return nil
}

func stockError(book *models.Book, requested int64) *StockError {
	return &StockError{
		BookID:    book.ID,
		BookName:  book.Name,
		Requested: requested,
		Available: book.Stock,
	}
}
