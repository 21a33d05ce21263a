package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshop/internal/service"
	"github.com/Skotchmaster/bookshop/internal/transport"
	"github.com/Skotchmaster/bookshop/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.place_order")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("place_order_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	order, err := h.Svc.PlaceOrder(ctx, actor.UserID)
	if err != nil {
		return serviceError(l, "place_order_error", err)
	}

	l.Info("place_order_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, transport.Response{
		Message: "Order placed successfully",
		Status:  transport.StatusSuccess,
		Data:    transport.NewCartResponse(order),
	})
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("list_orders_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := h.Svc.ListOrders(ctx, actor.UserID)
	if err != nil {
		return serviceError(l, "list_orders_error", err)
	}

	return c.JSON(http.StatusOK, transport.Response{
		Message: "Orders retrieved successfully",
		Status:  transport.StatusSuccess,
		Data:    transport.NewCartResponses(orders),
	})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("get_order_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		l.Warn("get_order_error", "status", 400, "reason", "bad id", "error", err)
		return httpError(http.StatusBadRequest, err.Error())
	}

	order, err := h.Svc.GetOrder(ctx, actor.UserID, id)
	if err != nil {
		return serviceError(l, "get_order_error", err)
	}

	return c.JSON(http.StatusOK, transport.Response{
		Message: "Order retrieved successfully",
		Status:  transport.StatusSuccess,
		Data:    transport.NewCartResponse(order),
	})
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("cancel_order_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		l.Warn("cancel_order_error", "status", 400, "reason", "bad id", "error", err)
		return httpError(http.StatusBadRequest, err.Error())
	}

	order, err := h.Svc.CancelOrder(ctx, actor.UserID, id)
	if err != nil {
		return serviceError(l, "cancel_order_error", err)
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, transport.Response{
		Message: "Order cancelled successfully",
		Status:  transport.StatusSuccess,
		Data:    transport.NewCartResponse(order),
	})
}
