package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/bookshop/internal/models"
	"github.com/Skotchmaster/bookshop/internal/repo"
	"github.com/Skotchmaster/bookshop/internal/transport"
	pkgdb "github.com/Skotchmaster/bookshop/pkg/db"
	"github.com/Skotchmaster/bookshop/pkg/events"
)

type publishedEvent struct {
	Topic string
	Key   string
	Event events.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: ev})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Event.Type)
	}
	return out
}

type testEnv struct {
	Repo    *repo.GormRepo
	Pub     *recordingPublisher
	Catalog *CatalogService
	Cart    *CartService
	Order   *OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := pkgdb.Open(context.Background(), "sqlite://:memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))
	t.Cleanup(func() { _ = pkgdb.Close(db) })

	r := &repo.GormRepo{DB: db}
	pub := &recordingPublisher{}
	return &testEnv{
		Repo:    r,
		Pub:     pub,
		Catalog: &CatalogService{Repo: r, Events: pub},
		Cart:    &CartService{Repo: r, Events: pub},
		Order:   &OrderService{Repo: r, Events: pub},
	}
}

func (env *testEnv) seedBook(t *testing.T, name string, price, stock int64) *models.Book {
	t.Helper()
	book := &models.Book{Name: name, Author: "Author of " + name, Price: price, Stock: stock, UserID: uuid.New()}
	require.NoError(t, env.Repo.CreateBook(context.Background(), book))
	return book
}

func (env *testEnv) stock(t *testing.T, id uint) int64 {
	t.Helper()
	b, err := env.Repo.GetBook(context.Background(), id)
	require.NoError(t, err)
	return b.Stock
}

func (env *testEnv) add(t *testing.T, userID uuid.UUID, bookID uint, qty int64) (*CartResult, error) {
	t.Helper()
	b, q := int64(bookID), qty
	return env.Cart.AddItem(context.Background(), userID, transport.AddItemRequest{BookID: &b, Quantity: &q})
}

func ptr[T any](v T) *T { return &v }

// requireTotalsConsistent checks the cart totals against its lines.
func requireTotalsConsistent(t *testing.T, cart *models.Cart) {
	t.Helper()
	var qty, price int64
	for _, it := range cart.Items {
		qty += it.Quantity
		price += it.Price
	}
	require.Equal(t, qty, cart.TotalQuantity)
	require.Equal(t, price, cart.TotalPrice)
}
