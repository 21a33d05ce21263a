package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshop/internal/service"
	"github.com/Skotchmaster/bookshop/internal/transport"
	"github.com/Skotchmaster/bookshop/internal/util"
	"github.com/Skotchmaster/bookshop/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) ListBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_books")

	page, offset, limit := util.Calculate(
		util.ParseIntDefault(c.QueryParam("page"), 1),
		util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
	)

	total, books, err := h.Svc.ListBooks(ctx, offset, limit)
	if err != nil {
		return serviceError(l, "list_books_error", err)
	}

	l.Debug("list_books_success", "total", total)
	return c.JSON(http.StatusOK, transport.PageResponse{
		Message: "Books retrieved successfully",
		Status:  transport.StatusSuccess,
		Data:    books,
		Meta:    util.NewPageMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) SearchBooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search_books")

	page, offset, limit := util.Calculate(
		util.ParseIntDefault(c.QueryParam("page"), 1),
		util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
	)

	total, books, err := h.Svc.SearchBooks(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return serviceError(l, "search_books_error", err)
	}

	return c.JSON(http.StatusOK, transport.PageResponse{
		Message: "Search completed",
		Status:  transport.StatusSuccess,
		Data:    books,
		Meta:    util.NewPageMeta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) GetBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_book")

	id, err := parseID(c)
	if err != nil {
		l.Warn("get_book_error", "status", 400, "reason", "bad id", "error", err)
		return httpError(http.StatusBadRequest, err.Error())
	}

	book, err := h.Svc.GetBook(ctx, id)
	if err != nil {
		return serviceError(l, "get_book_error", err)
	}

	return c.JSON(http.StatusOK, transport.Response{
		Message: "Book retrieved successfully",
		Status:  transport.StatusSuccess,
		Data:    book,
	})
}

func (h *CatalogHTTP) CreateBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_book")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("create_book_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.BookRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_book_error", "status", 400, "reason", "invalid body", "error", err)
		return httpError(http.StatusBadRequest, "invalid body")
	}

	book, err := h.Svc.CreateBook(ctx, actor, req)
	if err != nil {
		return serviceError(l, "create_book_error", err)
	}

	l.Info("create_book_success", "book_id", book.ID)
	return c.JSON(http.StatusCreated, transport.Response{
		Message: "Book created successfully",
		Status:  transport.StatusSuccess,
		Data:    book,
	})
}

// UpdateBook serves PUT (full update) and PATCH (partial update).
func (h *CatalogHTTP) UpdateBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.update_book")
	partial := c.Request().Method == http.MethodPatch

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("update_book_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		l.Warn("update_book_error", "status", 400, "reason", "bad id", "error", err)
		return httpError(http.StatusBadRequest, err.Error())
	}

	var req transport.BookRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_book_error", "status", 400, "reason", "invalid body", "error", err)
		return httpError(http.StatusBadRequest, "invalid body")
	}

	book, err := h.Svc.UpdateBook(ctx, actor, id, req, partial)
	if err != nil {
		return serviceError(l, "update_book_error", err)
	}

	l.Info("update_book_success", "book_id", book.ID, "partial", partial)
	return c.JSON(http.StatusOK, transport.Response{
		Message: "Book updated successfully",
		Status:  transport.StatusSuccess,
		Data:    book,
	})
}

func (h *CatalogHTTP) DeleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_book")

	actor, err := actorFromContext(c)
	if err != nil {
		l.Warn("delete_book_error", "status", 401, "reason", "no identity", "error", err)
		return httpError(http.StatusUnauthorized, "unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		l.Warn("delete_book_error", "status", 400, "reason", "bad id", "error", err)
		return httpError(http.StatusBadRequest, err.Error())
	}

	if err := h.Svc.DeleteBook(ctx, actor, id); err != nil {
		return serviceError(l, "delete_book_error", err)
	}

	l.Info("delete_book_success", "book_id", id)
	return c.NoContent(http.StatusNoContent)
}
