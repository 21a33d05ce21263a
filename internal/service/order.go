package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/bookshop/internal/models"
	"github.com/Skotchmaster/bookshop/internal/repo"
	"github.com/Skotchmaster/bookshop/pkg/events"
	"github.com/Skotchmaster/bookshop/pkg/logging"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

// PlaceOrder turns the active cart into an order. Stock for every line is
// taken in one transaction; if any line is short nothing is taken.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var order *models.Cart
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.LockActiveCart(ctx, userID)
		if err != nil {
			return notFound(err, "no active cart to order")
		}

		items, err := tx.CartItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errEmptyCart
		}

		for _, it := range items {
			ok, err := tx.DecrementStock(ctx, it.BookID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				book, err := tx.GetBook(ctx, it.BookID)
				if err != nil {
					return err
				}
				return stockError(book, it.Quantity)
			}
		}

		if err := tx.MarkOrdered(ctx, cart.ID, time.Now().UTC()); err != nil {
			return err
		}
		order, err = tx.LoadCart(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_placed", "order_id", order.ID, "total_price", order.TotalPrice)
	publish(ctx, s.Events, TopicOrderEvents, userID.String(),
		events.New("order_placed", userID.String(), newCartPayload(order)))
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Cart, error) {
	return s.Repo.ListOrders(ctx, userID)
}

func (s *OrderService) GetOrder(ctx context.Context, userID uuid.UUID, orderID uint) (*models.Cart, error) {
	order, err := s.Repo.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, notFound(err, "order not found")
	}
	return order, nil
}

// CancelOrder puts every line's quantity back on its book and deletes the
// order. The returned cart is the order as it was before cancellation.
func (s *OrderService) CancelOrder(ctx context.Context, userID uuid.UUID, orderID uint) (*models.Cart, error) {
	var order *models.Cart
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		locked, err := tx.LockOrder(ctx, userID, orderID)
		if err != nil {
			return notFound(err, "order not found")
		}
		order, err = tx.LoadCart(ctx, locked.ID)
		if err != nil {
			return err
		}

		items, err := tx.CartItems(ctx, locked.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := tx.IncrementStock(ctx, it.BookID, it.Quantity); err != nil {
				return err
			}
		}
		return tx.DeleteCart(ctx, locked.ID)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("order_cancelled", "order_id", order.ID)
	publish(ctx, s.Events, TopicOrderEvents, userID.String(),
		events.New("order_cancelled", userID.String(), newCartPayload(order)))
	return order, nil
}
