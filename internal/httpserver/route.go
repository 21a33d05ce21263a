package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/bookshop/pkg/authclient"
	middleware "github.com/Skotchmaster/bookshop/pkg/middleware/auth"
)

type Deps struct {
	CatalogHandler *CatalogHTTP
	CartHandler    *CartHTTP
	OrderHandler   *OrderHTTP

	DB         *gorm.DB
	JWTSecret  []byte
	AuthClient *authclient.Client
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", ready(d.DB))

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.AuthClient)

	api := e.Group("/api/v1")

	books := api.Group("/books")
	books.GET("", d.CatalogHandler.ListBooks, authMW.RequireAuth)
	books.GET("/search", d.CatalogHandler.SearchBooks, authMW.RequireAuth)
	books.GET("/:id", d.CatalogHandler.GetBook, authMW.RequireAuth)
	books.POST("", d.CatalogHandler.CreateBook, authMW.RequireAdmin)
	books.PUT("/:id", d.CatalogHandler.UpdateBook, authMW.RequireAdmin)
	books.PATCH("/:id", d.CatalogHandler.UpdateBook, authMW.RequireAdmin)
	books.DELETE("/:id", d.CatalogHandler.DeleteBook, authMW.RequireAdmin)

	cart := api.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("", d.CartHandler.DeleteCart)
	cart.DELETE("/:id", d.CartHandler.RemoveItem)

	orders := api.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.OrderHandler.PlaceOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("/cancel/:id", d.OrderHandler.CancelOrder)
}

func ready(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.NoContent(http.StatusOK)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}
