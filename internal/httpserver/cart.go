package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshop/internal/service"
	"github.com/Skotchmaster/bookshop/internal/transport"
	"github.com/Skotchmaster/bookshop/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("get_cart_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.Svc.GetActiveCart(ctx, actor.UserID)
	if err != nil {
		return serviceError(l, "get_cart_error", err)
	}

	return c.JSON(http.StatusOK, transport.Response{
		Message: "Cart retrieved successfully",
		Status:  transport.StatusSuccess,
		Data:    transport.NewCartResponse(cart),
	})
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_to_cart")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("add_to_cart_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "reason", "invalid body", "error", err)
		return httpError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.AddItem(ctx, actor.UserID, req)
	if err != nil {
		return serviceError(l, "add_to_cart_error", err)
	}

	status, msg := http.StatusOK, "Cart updated successfully"
	if res.Created {
		status, msg = http.StatusCreated, "New cart created successfully"
	}

	l.Info("add_to_cart_success", "cart_id", res.Cart.ID, "created", res.Created)
	return c.JSON(status, transport.Response{
		Message: msg,
		Status:  transport.StatusSuccess,
		Data:    transport.NewCartResponse(res.Cart),
	})
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("remove_item_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	itemID, err := parseID(c)
	if err != nil {
		l.Warn("remove_item_error", "status", 400, "reason", "bad id", "error", err)
		return httpError(http.StatusBadRequest, err.Error())
	}

	cart, err := h.Svc.RemoveItem(ctx, actor.UserID, itemID)
	if err != nil {
		return serviceError(l, "remove_item_error", err)
	}

	l.Info("remove_item_success", "cart_id", cart.ID, "item_id", itemID)
	return c.JSON(http.StatusOK, transport.Response{
		Message: "Item removed from cart",
		Status:  transport.StatusSuccess,
		Data:    transport.NewCartResponse(cart),
	})
}

func (h *CartHTTP) DeleteCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.delete_cart")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("delete_cart_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.Svc.DeleteCart(ctx, actor.UserID); err != nil {
		return serviceError(l, "delete_cart_error", err)
	}

	l.Info("delete_cart_success")
	return c.JSON(http.StatusOK, transport.Response{
		Message: "Cart deleted successfully",
		Status:  transport.StatusSuccess,
	})
}
