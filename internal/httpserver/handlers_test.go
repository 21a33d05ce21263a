package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/bookshop/internal/models"
	"github.com/Skotchmaster/bookshop/internal/repo"
	"github.com/Skotchmaster/bookshop/internal/service"
	"github.com/Skotchmaster/bookshop/internal/transport"
	pkgdb "github.com/Skotchmaster/bookshop/pkg/db"
	"github.com/Skotchmaster/bookshop/pkg/events"
	authmw "github.com/Skotchmaster/bookshop/pkg/middleware/auth"
	"github.com/Skotchmaster/bookshop/pkg/tokens"
)

var jwtSecret = []byte("test-jwt-secret")

type testEnv struct {
	E       *echo.Echo
	Repo    *repo.GormRepo
	Catalog *CatalogHTTP
	Cart    *CartHTTP
	Order   *OrderHTTP
	Deps    *Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := pkgdb.Open(context.Background(), "sqlite://:memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := &repo.GormRepo{DB: db}
	pub := events.Nop{}
	env := &testEnv{
		E:       echo.New(),
		Repo:    r,
		Catalog: &CatalogHTTP{Svc: &service.CatalogService{Repo: r, Events: pub}},
		Cart:    &CartHTTP{Svc: &service.CartService{Repo: r, Events: pub}},
		Order:   &OrderHTTP{Svc: &service.OrderService{Repo: r, Events: pub}},
	}
	env.Deps = &Deps{
		CatalogHandler: env.Catalog,
		CartHandler:    env.Cart,
		OrderHandler:   env.Order,
		DB:             db,
		JWTSecret:      jwtSecret,
	}
	return env
}

func (env *testEnv) doJSONRequest(method, path string, body any, userID uuid.UUID, role string) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	if userID != uuid.Nil {
		c.Set(authmw.CtxUserID, userID.String())
		c.Set(authmw.CtxRole, role)
	}
	return rec, c
}

func (env *testEnv) seedBook(t *testing.T, name string, price, stock int64) *models.Book {
	t.Helper()
	b := &models.Book{Name: name, Author: "Author", Price: price, Stock: stock}
	require.NoError(t, env.Repo.CreateBook(context.Background(), b))
	return b
}

func requireHTTPError(t *testing.T, err error, code int) transport.ErrorResponse {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, code, he.Code)
	body, ok := he.Message.(transport.ErrorResponse)
	require.True(t, ok, "expected ErrorResponse message, got %T", he.Message)
	assert.Equal(t, transport.StatusError, body.Status)
	return body
}

type envelope struct {
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestAddToCart_CreatedThenUpdated(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	book := env.seedBook(t, "A", 5, 10)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"book_id": book.ID, "quantity": 3}, user, "user")
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var cart transport.CartResponse
	body := decode(t, rec, &cart)
	assert.Equal(t, "New cart created successfully", body.Message)
	assert.Equal(t, transport.StatusSuccess, body.Status)
	assert.EqualValues(t, 15, cart.TotalPrice)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "A", cart.Items[0].Book)

	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"book_id": book.ID, "quantity": 4}, user, "user")
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec, &cart)
	assert.Equal(t, "Cart updated successfully", body.Message)
	assert.EqualValues(t, 7, cart.TotalQuantity)
}

func TestAddToCart_InsufficientStockDetails(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	book := env.seedBook(t, "A", 5, 2)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"book_id": book.ID, "quantity": 3}, user, "user")
	body := requireHTTPError(t, env.Cart.AddToCart(c), http.StatusBadRequest)
	assert.Contains(t, body.Message, "only 2 available")
	assert.EqualValues(t, 2, body.Details["available"])
	assert.EqualValues(t, 3, body.Details["requested"])
}

func TestAddToCart_BadInput(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"quantity": 1}, user, "user")
	body := requireHTTPError(t, env.Cart.AddToCart(c), http.StatusBadRequest)
	assert.Equal(t, "book_id must be a positive integer", body.Message)

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"book_id": 1, "quantity": 1}, uuid.Nil, "")
	requireHTTPError(t, env.Cart.AddToCart(c), http.StatusUnauthorized)
}

func TestGetCart_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, c := env.doJSONRequest(http.MethodGet, "/api/v1/cart", nil, uuid.New(), "user")
	body := requireHTTPError(t, env.Cart.GetCart(c), http.StatusNotFound)
	assert.Equal(t, "no active cart found for the user", body.Message)
}

func TestRemoveItemAndDeleteCart(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	book := env.seedBook(t, "A", 5, 10)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"book_id": book.ID, "quantity": 1}, user, "user")
	require.NoError(t, env.Cart.AddToCart(c))
	var cart transport.CartResponse
	decode(t, rec, &cart)

	_, c = env.doJSONRequest(http.MethodDelete, "/api/v1/cart/x", nil, user, "user")
	c.SetParamNames("id")
	c.SetParamValues("x")
	requireHTTPError(t, env.Cart.RemoveItem(c), http.StatusBadRequest)

	rec, c = env.doJSONRequest(http.MethodDelete, "/api/v1/cart/1", nil, user, "user")
	c.SetParamNames("id")
	c.SetParamValues(strconvU(cart.Items[0].ID))
	require.NoError(t, env.Cart.RemoveItem(c))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &cart)
	assert.Empty(t, cart.Items)
	assert.EqualValues(t, 0, cart.TotalPrice)

	rec, c = env.doJSONRequest(http.MethodDelete, "/api/v1/cart", nil, user, "user")
	require.NoError(t, env.Cart.DeleteCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, c = env.doJSONRequest(http.MethodDelete, "/api/v1/cart", nil, user, "user")
	requireHTTPError(t, env.Cart.DeleteCart(c), http.StatusNotFound)
}

func TestOrderFlow(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	book := env.seedBook(t, "A", 5, 10)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", nil, user, "user")
	requireHTTPError(t, env.Order.PlaceOrder(c), http.StatusNotFound)

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"book_id": book.ID, "quantity": 7}, user, "user")
	require.NoError(t, env.Cart.AddToCart(c))

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", nil, user, "user")
	require.NoError(t, env.Order.PlaceOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	var order transport.CartResponse
	decode(t, rec, &order)
	assert.True(t, order.IsOrdered)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/orders", nil, user, "user")
	require.NoError(t, env.Order.ListOrders(c))
	var orders []transport.CartResponse
	decode(t, rec, &orders)
	require.Len(t, orders, 1)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/orders/1", nil, user, "user")
	c.SetParamNames("id")
	c.SetParamValues(strconvU(order.ID))
	require.NoError(t, env.Order.GetOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/orders/cancel/1", nil, uuid.New(), "user")
	c.SetParamNames("id")
	c.SetParamValues(strconvU(order.ID))
	requireHTTPError(t, env.Order.CancelOrder(c), http.StatusNotFound)

	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/orders/cancel/1", nil, user, "user")
	c.SetParamNames("id")
	c.SetParamValues(strconvU(order.ID))
	require.NoError(t, env.Order.CancelOrder(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/orders", nil, user, "user")
	require.NoError(t, env.Order.ListOrders(c))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &orders)
	assert.Empty(t, orders)

	b, err := env.Repo.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, b.Stock)
}

func TestCatalogHandlers(t *testing.T) {
	env := newTestEnv(t)
	adminID := uuid.New()

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/books",
		map[string]any{"name": "Dune", "author": "Herbert", "price": 100, "stock": 3}, adminID, tokens.RoleAdmin)
	require.NoError(t, env.Catalog.CreateBook(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	var book models.Book
	decode(t, rec, &book)
	assert.Equal(t, "Dune", book.Name)

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/books",
		map[string]any{"name": "Dune", "author": "Other", "price": 1, "stock": 1}, adminID, tokens.RoleAdmin)
	body := requireHTTPError(t, env.Catalog.CreateBook(c), http.StatusBadRequest)
	assert.Equal(t, "book with this name already exists", body.Message)

	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/books",
		map[string]any{"name": "Emma", "author": "Austen", "price": 1, "stock": 1}, uuid.New(), "user")
	requireHTTPError(t, env.Catalog.CreateBook(c), http.StatusForbidden)

	rec, c = env.doJSONRequest(http.MethodPatch, "/api/v1/books/1", map[string]any{"stock": 8}, adminID, tokens.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues(strconvU(book.ID))
	require.NoError(t, env.Catalog.UpdateBook(c))
	decode(t, rec, &book)
	assert.EqualValues(t, 8, book.Stock)
	assert.EqualValues(t, 100, book.Price)

	_, c = env.doJSONRequest(http.MethodPut, "/api/v1/books/1", map[string]any{"stock": 8}, adminID, tokens.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues(strconvU(book.ID))
	requireHTTPError(t, env.Catalog.UpdateBook(c), http.StatusBadRequest)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/books?page=1&size=10", nil, adminID, tokens.RoleAdmin)
	require.NoError(t, env.Catalog.ListBooks(c))
	var page struct {
		Data []models.Book `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.EqualValues(t, 1, page.Meta.Total)
	require.Len(t, page.Data, 1)

	rec, c = env.doJSONRequest(http.MethodGet, "/api/v1/books/search?q=dune", nil, adminID, tokens.RoleAdmin)
	require.NoError(t, env.Catalog.SearchBooks(c))
	require.Equal(t, http.StatusOK, rec.Code)

	_, c = env.doJSONRequest(http.MethodGet, "/api/v1/books/999", nil, adminID, tokens.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues("999")
	requireHTTPError(t, env.Catalog.GetBook(c), http.StatusNotFound)

	// referenced by a cart line
	_, c = env.doJSONRequest(http.MethodPost, "/api/v1/cart", map[string]any{"book_id": book.ID, "quantity": 1}, uuid.New(), "user")
	require.NoError(t, env.Cart.AddToCart(c))

	_, c = env.doJSONRequest(http.MethodDelete, "/api/v1/books/1", nil, adminID, tokens.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues(strconvU(book.ID))
	requireHTTPError(t, env.Catalog.DeleteBook(c), http.StatusConflict)

	free := env.seedBook(t, "Free", 1, 1)
	rec, c = env.doJSONRequest(http.MethodDelete, "/api/v1/books/1", nil, adminID, tokens.RoleAdmin)
	c.SetParamNames("id")
	c.SetParamValues(strconvU(free.ID))
	require.NoError(t, env.Catalog.DeleteBook(c))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_AuthAndRoutes(t *testing.T) {
	env := newTestEnv(t)
	Register(env.E, env.Deps)
	book := env.seedBook(t, "A", 5, 10)

	userTok, err := tokens.SignAccess(uuid.NewString(), "user", time.Now().Add(time.Hour), jwtSecret)
	require.NoError(t, err)

	serve := func(method, path, token string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			_ = json.NewEncoder(&buf).Encode(body)
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: token})
		}
		rec := httptest.NewRecorder()
		env.E.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/health/ready", "", nil).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(http.MethodGet, "/api/v1/books", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/api/v1/books", userTok, nil).Code)
	assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/api/v1/books/"+strconvU(book.ID), userTok, nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(http.MethodPost, "/api/v1/books", userTok,
		map[string]any{"name": "B", "author": "x", "price": 1, "stock": 1}).Code)

	rec := serve(http.MethodPost, "/api/v1/cart", userTok, map[string]any{"book_id": book.ID, "quantity": 2})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(http.MethodPost, "/api/v1/orders", userTok, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(http.MethodGet, "/api/v1/orders", userTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
