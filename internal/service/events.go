package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/bookshop/internal/models"
	"github.com/Skotchmaster/bookshop/pkg/events"
	"github.com/Skotchmaster/bookshop/pkg/logging"
)

const (
	TopicBookEvents  = "book_events"
	TopicCartEvents  = "cart_events"
	TopicOrderEvents = "order_events"

	publishTimeout = 5 * time.Second
)

type bookPayload struct {
	BookID uint   `json:"book_id"`
	Name   string `json:"name"`
	Price  int64  `json:"price"`
	Stock  int64  `json:"stock"`
}

type linePayload struct {
	BookID   uint  `json:"book_id"`
	Quantity int64 `json:"quantity"`
	Price    int64 `json:"price"`
}

type cartPayload struct {
	CartID        uint          `json:"cart_id"`
	TotalPrice    int64         `json:"total_price"`
	TotalQuantity int64         `json:"total_quantity"`
	Lines         []linePayload `json:"lines,omitempty"`
}

func newBookPayload(b *models.Book) bookPayload {
	return bookPayload{BookID: b.ID, Name: b.Name, Price: b.Price, Stock: b.Stock}
}

func newCartPayload(c *models.Cart) cartPayload {
	p := cartPayload{CartID: c.ID, TotalPrice: c.TotalPrice, TotalQuantity: c.TotalQuantity}
	for _, it := range c.Items {
		p.Lines = append(p.Lines, linePayload{BookID: it.BookID, Quantity: it.Quantity, Price: it.Price})
	}
	return p
}

// publish is best-effort: the state change is already committed, so a broker
// failure is logged and swallowed.
func publish(ctx context.Context, p events.Publisher, topic, key string, ev events.Event) {
	if p == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.Publish(pctx, topic, key, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", ev.Type, "error", err)
	}
}
