package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/bookshop/internal/models"
)

const DefaultIndex = "books"

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

// NewClient builds an Elasticsearch client and checks the cluster answers.
func NewClient(ctx context.Context, cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return client, nil
}

type BookIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewBookIndex(es *elasticsearch.Client, index string) *BookIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &BookIndex{ES: es, Index: index}
}

type bookDocument struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Author      string  `json:"author"`
	Description *string `json:"description,omitempty"`
	Price       int64   `json:"price"`
	Stock       int64   `json:"stock"`
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "long"},
      "name":        {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "author":      {"type": "text"},
      "description": {"type": "text"},
      "price":       {"type": "long"},
      "stock":       {"type": "long"}
    }
  }
}`

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (b *BookIndex) EnsureIndex(ctx context.Context) error {
	res, err := b.ES.Indices.Exists([]string{b.Index}, b.ES.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = b.ES.Indices.Create(b.Index,
		b.ES.Indices.Create.WithContext(ctx),
		b.ES.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}
	return nil
}

func (b *BookIndex) IndexBook(ctx context.Context, book *models.Book) error {
	doc := bookDocument{
		ID:          book.ID,
		Name:        book.Name,
		Author:      book.Author,
		Description: book.Description,
		Price:       book.Price,
		Stock:       book.Stock,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode book: %w", err)
	}

	res, err := b.ES.Index(b.Index, &buf,
		b.ES.Index.WithContext(ctx),
		b.ES.Index.WithDocumentID(strconv.FormatUint(uint64(book.ID), 10)),
		b.ES.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("index book: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index book", res.Status(), res.Body)
	}
	return nil
}

// DeleteBook removes the document. A document that is already gone is fine.
func (b *BookIndex) DeleteBook(ctx context.Context, id uint) error {
	res, err := b.ES.Delete(b.Index, strconv.FormatUint(uint64(id), 10), b.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete book", res.Status(), res.Body)
	}
	return nil
}

func (b *BookIndex) SearchBooks(ctx context.Context, q string, from, size int) (int64, []models.Book, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"name^2", "author", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := b.ES.Search(
		b.ES.Search.WithContext(ctx),
		b.ES.Search.WithIndex(b.Index),
		b.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, responseError("search", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source bookDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	books := make([]models.Book, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		d := hit.Source
		books = append(books, models.Book{
			ID:          d.ID,
			Name:        d.Name,
			Author:      d.Author,
			Description: d.Description,
			Price:       d.Price,
			Stock:       d.Stock,
		})
	}
	return r.Hits.Total.Value, books, nil
}

func responseError(op, status string, body io.Reader) error {
	msg, _ := io.ReadAll(io.LimitReader(body, 512))
	return fmt.Errorf("%s: %s: %s", op, status, bytes.TrimSpace(msg))
}
