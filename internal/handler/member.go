package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lending/internal/service"
)

// MemberHandler exposes member administration endpoints.  All routes
// sit behind the member:admin permission (ADMIN or LIBRARIAN), applied
// by the router; the handler itself assumes an authorized caller.
// Deactivation goes through the lending service so the held-set check
// and the flag change happen in one transaction.
type MemberHandler struct {
	Members *service.MemberService
	Lending *service.LendingService
}

// NewMemberHandler constructs a MemberHandler.
func NewMemberHandler(members *service.MemberService, lending *service.LendingService) *MemberHandler {
	if members == nil || lending == nil {
		panic("nil service passed to NewMemberHandler")
	}
	return &MemberHandler{Members: members, Lending: lending}
}

type createMemberReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// List handles GET /api/v1/members with page, size, sort_by and
// sort_dir query parameters.
func (h *MemberHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	res, err := h.Members.List(ctx, page, size, c.QueryParam("sort_by"), c.QueryParam("sort_dir"))
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "members", echo.Map{
		"items": toMemberResponses(res.Members),
		"total": res.Total,
		"page":  res.Page,
		"size":  res.Size,
	})
}

// Get handles GET /api/v1/members/:id.
func (h *MemberHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid member id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Members.Get(ctx, id)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "member", toMemberResponse(m))
}

// GetByEmail handles GET /api/v1/members/email/:email.
func (h *MemberHandler) GetByEmail(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Members.GetByEmail(ctx, c.Param("email"))
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "member", toMemberResponse(m))
}

// Create handles POST /api/v1/members.
func (h *MemberHandler) Create(c echo.Context) error {
	var req createMemberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Members.Create(ctx, req.Name, req.Email, req.Phone)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusCreated, "member created", toMemberResponse(m))
}

// Search handles GET /api/v1/members/search?name=...
func (h *MemberHandler) Search(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	members, err := h.Members.Search(ctx, c.QueryParam("name"))
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "members", toMemberResponses(members))
}

// Active handles GET /api/v1/members/active.
func (h *MemberHandler) Active(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	members, err := h.Members.Active(ctx)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "active members", toMemberResponses(members))
}

// Overdue handles GET /api/v1/members/overdue.
func (h *MemberHandler) Overdue(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	members, err := h.Members.Overdue(ctx)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "members with overdue books", toMemberResponses(members))
}

// BorrowedBooks handles GET /api/v1/members/:id/borrowed-books.
func (h *MemberHandler) BorrowedBooks(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid member id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	books, err := h.Members.BorrowedBooks(ctx, id)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "borrowed books", toBookResponses(books))
}

// Deactivate handles PUT /api/v1/members/:id/deactivate.  Members still
// holding books cannot be deactivated.
func (h *MemberHandler) Deactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid member id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Lending.DeactivateMember(ctx, id); err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "member deactivated", nil)
}

// Stats handles GET /api/v1/members/stats/count.
func (h *MemberHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	total, active, err := h.Members.Stats(ctx)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "member stats", echo.Map{
		"total":    total,
		"active":   active,
		"inactive": total - active,
	})
}
