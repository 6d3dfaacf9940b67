package handler

import (
    "context"  // provides context with cancellation for DB calls
    "net/http" // HTTP status codes and primitives
    "time"     // timeouts for DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/library-lending/internal/service" // authenticator
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authData struct {
	Token    string    `json:"token"`
	Expires  time.Time `json:"expires"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Roles    []string  `json:"roles"`
}

func toAuthData(r service.AuthResult) authData {
	return authData{
		Token:    r.Token,
		Expires:  r.ExpiresAt,
		Username: r.Username,
		Email:    r.Email,
		Roles:    r.Roles,
	}
}

// Register creates an account with the MEMBER role and returns a token
// immediately so the new user does not need a second login round trip.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Register(ctx, req.Username, req.Password, req.Email)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusCreated, "registered", toAuthData(res))
}

// Login verifies credentials and returns a fresh token.  The failure
// message is identical for unknown usernames and wrong passwords.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Success: false, Message: "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return respondErr(c, err)
	}
	return respond(c, http.StatusOK, "logged in", toAuthData(res))
}
