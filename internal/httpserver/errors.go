package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshop/internal/service"
	"github.com/Skotchmaster/bookshop/internal/transport"
	authmw "github.com/Skotchmaster/bookshop/pkg/middleware/auth"
	"github.com/Skotchmaster/bookshop/pkg/tokens"
)

func httpError(code int, msg string) *echo.HTTPError {
	return echo.NewHTTPError(code, transport.ErrorResponse{Message: msg, Status: transport.StatusError})
}

// serviceError logs err under event and converts it to the HTTP error the
// client sees.
func serviceError(l *slog.Logger, event string, err error) error {
	var stockErr *service.StockError
	switch {
	case errors.As(err, &stockErr):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "insufficient stock", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{
			Message: stockErr.Error(),
			Status:  transport.StatusError,
			Details: map[string]any{
				"book_id":   stockErr.BookID,
				"book":      stockErr.BookName,
				"requested": stockErr.Requested,
				"available": stockErr.Available,
			},
		})
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "validation", "error", err)
		return httpError(http.StatusBadRequest, reason(err, service.ErrValidation))
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", http.StatusNotFound, "reason", "not found", "error", err)
		return httpError(http.StatusNotFound, reason(err, service.ErrNotFound))
	case errors.Is(err, service.ErrPermissionDenied):
		l.Warn(event, "status", http.StatusForbidden, "reason", "permission denied", "error", err)
		return httpError(http.StatusForbidden, reason(err, service.ErrPermissionDenied))
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", http.StatusConflict, "reason", "conflict", "error", err)
		return httpError(http.StatusConflict, reason(err, service.ErrConflict))
	default:
		l.Error(event, "status", http.StatusInternalServerError, "reason", "internal error", "error", err)
		return httpError(http.StatusInternalServerError, "internal error")
	}
}

// reason strips the sentinel prefix so clients get "book not found" rather
// than "not found: book not found".
func reason(err, sentinel error) string {
	msg := err.Error()
	if r, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return r
	}
	return msg
}

func actorFromContext(c echo.Context) (service.Actor, error) {
	s, _ := c.Get(authmw.CtxUserID).(string)
	userID, err := uuid.Parse(s)
	if err != nil || userID == uuid.Nil {
		return service.Actor{}, errors.New("unauthorized")
	}
	role, _ := c.Get(authmw.CtxRole).(string)
	return service.Actor{UserID: userID, IsAdmin: role == tokens.RoleAdmin}, nil
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return uint(id), nil
}
