package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lending/internal/model"
	"github.com/iliyamo/library-lending/internal/service"
)

// apiResponse is the envelope wrapped around every handler response.
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// respond writes a success envelope.
func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, apiResponse{Success: true, Message: message, Data: data})
}

// respondErr maps a service error to its HTTP outcome.  Domain failures
// keep their stable messages; infrastructure trouble is flattened to a
// retryable 503 so store internals never leak to clients.
func respondErr(c echo.Context, err error) error {
	e, ok := err.(*service.Error)
	if !ok {
		return c.JSON(http.StatusInternalServerError, apiResponse{Success: false, Message: "internal error"})
	}
	switch e.Kind {
	case service.KindNotFound:
		return c.JSON(http.StatusNotFound, apiResponse{Success: false, Message: e.Message})
	case service.KindConflict:
		return c.JSON(http.StatusConflict, apiResponse{Success: false, Message: e.Message})
	case service.KindUnauthenticated:
		return c.JSON(http.StatusUnauthorized, apiResponse{Success: false, Message: e.Message})
	case service.KindForbidden:
		return c.JSON(http.StatusForbidden, apiResponse{Success: false, Message: e.Message})
	case service.KindValidation:
		return c.JSON(http.StatusBadRequest, apiResponse{
			Success: false,
			Message: e.Message,
			Data:    echo.Map{"field": e.Field},
		})
	default:
		return c.JSON(http.StatusServiceUnavailable, apiResponse{Success: false, Message: e.Message})
	}
}

// bookResponse is the wire shape of a book.  Overdue is recomputed from
// the due date on every render and never stored.
type bookResponse struct {
	ID             uint64     `json:"id"`
	Title          string     `json:"title"`
	Author         string     `json:"author"`
	ISBN           *string    `json:"isbn,omitempty"`
	Available      bool       `json:"available"`
	BorrowedByID   *uint64    `json:"borrowed_by_member_id,omitempty"`
	BorrowedByName *string    `json:"borrowed_by_member_name,omitempty"`
	BorrowedDate   *time.Time `json:"borrowed_date,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Overdue        bool       `json:"overdue"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toBookResponse(b model.Book) bookResponse {
	return bookResponse{
		ID:             b.ID,
		Title:          b.Title,
		Author:         b.Author,
		ISBN:           b.ISBN,
		Available:      b.Available,
		BorrowedByID:   b.BorrowedByID,
		BorrowedByName: b.BorrowedByName,
		BorrowedDate:   b.BorrowedDate,
		DueDate:        b.DueDate,
		Overdue:        b.Overdue(),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func toBookResponses(books []model.Book) []bookResponse {
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	return out
}

// memberResponse is the wire shape of a member.
type memberResponse struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	Active          bool      `json:"active"`
	MembershipDate  time.Time `json:"membership_date"`
	BorrowedBookIDs []uint64  `json:"borrowed_book_ids,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toMemberResponse(m model.Member) memberResponse {
	return memberResponse{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		Phone:           m.Phone,
		Active:          m.Active,
		MembershipDate:  m.MembershipDate,
		BorrowedBookIDs: m.BorrowedBookIDs,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toMemberResponses(members []model.Member) []memberResponse {
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	return out
}
