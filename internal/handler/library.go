package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lending/internal/service"
)

// LibraryHandler exposes the catalog and lending endpoints.  Borrow and
// return delegate entirely to the lending service; the handler only
// parses input and shapes the response.
type LibraryHandler struct {
	Lending *service.LendingService
}

// NewLibraryHandler constructs a LibraryHandler.
func NewLibraryHandler(lending *service.LendingService) *LibraryHandler {
	if lending == nil {
		panic("nil lending service passed to NewLibraryHandler")
	}
	return &LibraryHandler{Lending: lending}
}

// ----- DTOs -----

type createBookReq struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

type lendingReq struct {
	MemberName  string `json:"member_name"`
	MemberEmail string `json:"member_email"` // optional explicit contact key
}

type lendingData struct {
	BookID     uint64     `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	MemberName string     `json:"member_name"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// Info handles GET /api/v1/library/info.
func (h *LibraryHandler) Info(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	info, err := h.Lending.LibraryInfo(ctx)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "library info", info)
}

// ListBooks handles GET /api/v1/library/books.  The optional
// ?available=true query restricts the listing to borrowable books.
func (h *LibraryHandler) ListBooks(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	onlyAvailable := c.QueryParam("available") == "true"
	books, err := h.Lending.ListBooks(ctx, onlyAvailable)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "books", toBookResponses(books))
}

// GetBook handles GET /api/v1/library/books/:id.
func (h *LibraryHandler) GetBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid book id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Lending.GetBook(ctx, id)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "book", toBookResponse(b))
}

// SearchBooks handles GET /api/v1/library/books/search with keyword,
// page and size query parameters.
func (h *LibraryHandler) SearchBooks(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	books, total, err := h.Lending.SearchBooks(ctx, c.QueryParam("keyword"), page, size)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "search results", echo.Map{
		"items": toBookResponses(books),
		"total": total,
	})
}

// BooksByAuthor handles GET /api/v1/library/books/author/:author.
func (h *LibraryHandler) BooksByAuthor(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	books, err := h.Lending.BooksByAuthor(ctx, c.Param("author"))
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "books", toBookResponses(books))
}

// CreateBook handles POST /api/v1/library/books (ADMIN only).
func (h *LibraryHandler) CreateBook(c echo.Context) error {
	var req createBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Lending.CreateBook(ctx, req.Title, req.Author, req.ISBN)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusCreated, "book created", toBookResponse(b))
}

// DeleteBook handles DELETE /api/v1/library/books/:id (ADMIN only).
func (h *LibraryHandler) DeleteBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid book id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Lending.DeleteBook(ctx, id); err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "book deleted", nil)
}

// Borrow handles POST /api/v1/library/books/:id/borrow.
func (h *LibraryHandler) Borrow(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid book id"})
	}
	var req lendingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Lending.Borrow(ctx, id, req.MemberName, req.MemberEmail)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "book borrowed", lendingData{
		BookID:     res.BookID,
		BookTitle:  res.BookTitle,
		MemberName: res.MemberName,
		DueDate:    res.DueDate,
	})
}

// Return handles POST /api/v1/library/books/:id/return.
func (h *LibraryHandler) Return(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid book id"})
	}
	var req lendingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Lending.Return(ctx, id, req.MemberName)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "book returned", lendingData{
		BookID:     res.BookID,
		BookTitle:  res.BookTitle,
		MemberName: res.MemberName,
	})
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
}

// reqCtx derives the per-request context with the store timeout applied.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
