package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bookshop/internal/models"
	"github.com/Skotchmaster/bookshop/internal/repo"
	"github.com/Skotchmaster/bookshop/internal/transport"
	"github.com/Skotchmaster/bookshop/pkg/events"
	"github.com/Skotchmaster/bookshop/pkg/logging"
)

const maxTextLen = 255

// BookIndex is a full-text index over the catalog.
type BookIndex interface {
	IndexBook(ctx context.Context, book *models.Book) error
	DeleteBook(ctx context.Context, id uint) error
	SearchBooks(ctx context.Context, q string, from, size int) (int64, []models.Book, error)
}

type CatalogService struct {
	Repo *repo.GormRepo
	// Index is optional. Without it search runs against the store.
	Index  BookIndex
	Events events.Publisher
}

func (s *CatalogService) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	book, err := s.Repo.GetBook(ctx, id)
	if err != nil {
		return nil, notFound(err, "book not found")
	}
	return book, nil
}

func (s *CatalogService) ListBooks(ctx context.Context, offset, limit int) (int64, []models.Book, error) {
	return s.Repo.ListBooks(ctx, offset, limit)
}

func (s *CatalogService) SearchBooks(ctx context.Context, q string, offset, limit int) (int64, []models.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, fmt.Errorf("%w: search query is required", ErrValidation)
	}

	if s.Index != nil {
		total, books, err := s.Index.SearchBooks(ctx, q, offset, limit)
		if err == nil {
			return total, books, nil
		}
		logging.FromContext(ctx).Warn("search_index_failed", "reason", "falling back to store", "error", err)
	}
	return s.Repo.SearchBooks(ctx, q, offset, limit)
}

func (s *CatalogService) CreateBook(ctx context.Context, actor Actor, req transport.BookRequest) (*models.Book, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("%w: only admins can create books", ErrPermissionDenied)
	}

	book := models.Book{UserID: actor.UserID}
	if err := applyBookRequest(&book, req, false); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, book.Name, 0); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateBook(ctx, &book); err != nil {
		return nil, translateBookWriteErr(err)
	}

	s.indexBook(ctx, &book)
	publish(ctx, s.Events, TopicBookEvents, fmt.Sprint(book.ID),
		events.New("book_created", actor.UserID.String(), newBookPayload(&book)))
	return &book, nil
}

// UpdateBook applies a full (PUT) or partial (PATCH) update.
func (s *CatalogService) UpdateBook(ctx context.Context, actor Actor, id uint, req transport.BookRequest, partial bool) (*models.Book, error) {
	if !actor.IsAdmin {
		return nil, fmt.Errorf("%w: only admins can update books", ErrPermissionDenied)
	}

	book, err := s.Repo.GetBook(ctx, id)
	if err != nil {
		return nil, notFound(err, "book not found")
	}
	if err := applyBookRequest(book, req, partial); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, book.Name, book.ID); err != nil {
		return nil, err
	}

	if err := s.Repo.SaveBook(ctx, book); err != nil {
		return nil, translateBookWriteErr(err)
	}

	s.indexBook(ctx, book)
	publish(ctx, s.Events, TopicBookEvents, fmt.Sprint(book.ID),
		events.New("book_updated", actor.UserID.String(), newBookPayload(book)))
	return book, nil
}

// DeleteBook refuses to remove a book that any cart or order still references.
func (s *CatalogService) DeleteBook(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin {
		return fmt.Errorf("%w: only admins can delete books", ErrPermissionDenied)
	}

	book, err := s.Repo.GetBook(ctx, id)
	if err != nil {
		return notFound(err, "book not found")
	}

	used, err := s.Repo.BookReferenced(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: book is referenced by carts or orders", ErrConflict)
	}

	if err := s.Repo.DeleteBook(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("%w: book is referenced by carts or orders", ErrConflict)
		}
		return notFound(err, "book not found")
	}

	if s.Index != nil {
		if err := s.Index.DeleteBook(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_index_delete_failed", "book_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, TopicBookEvents, fmt.Sprint(id),
		events.New("book_deleted", actor.UserID.String(), newBookPayload(book)))
	return nil
}

func (s *CatalogService) ensureNameFree(ctx context.Context, name string, exceptID uint) error {
	taken, err := s.Repo.BookNameTaken(ctx, name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: book with this name already exists", ErrValidation)
	}
	return nil
}

func (s *CatalogService) indexBook(ctx context.Context, book *models.Book) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexBook(ctx, book); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "book_id", book.ID, "error", err)
	}
}

func translateBookWriteErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: book with this name already exists", ErrValidation)
	}
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return fmt.Errorf("%w: price and stock must be >= 0", ErrValidation)
	}
	return err
}

func applyBookRequest(book *models.Book, req transport.BookRequest, partial bool) error {
	if !partial && (req.Name == nil || req.Author == nil || req.Price == nil || req.Stock == nil) {
		return fmt.Errorf("%w: name, author, price and stock are required", ErrValidation)
	}

	if req.Name != nil {
		name, err := requiredText("name", *req.Name)
		if err != nil {
			return err
		}
		book.Name = name
	}
	if req.Author != nil {
		author, err := requiredText("author", *req.Author)
		if err != nil {
			return err
		}
		book.Author = author
	}
	if req.Description != nil {
		d := *req.Description
		book.Description = &d
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return fmt.Errorf("%w: price must be >= 0", ErrValidation)
		}
		book.Price = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return fmt.Errorf("%w: stock must be >= 0", ErrValidation)
		}
		book.Stock = *req.Stock
	}
	return nil
}

func requiredText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	if utf8.RuneCountInString(v) > maxTextLen {
		return "", fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, field, maxTextLen)
	}
	return v, nil
}
