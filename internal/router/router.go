package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/library-lending/internal/authz"      // import the static permission table
	"github.com/iliyamo/library-lending/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/library-lending/internal/middleware" // import middleware for JWT authentication and permission enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints under /api/v1/auth.
// These routes never require an existing session; the optional Redis token
// bucket middleware throttles brute-force attempts on them.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	// Create a route group under the /api/v1/auth prefix for operations
	// that establish a session (register, login).
	g := e.Group("/api/v1/auth")
	if limiter != nil {
		// Apply the rate limiter only to credential endpoints.
		g.Use(limiter)
	}
	// Register a POST endpoint to create an account at /api/v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to exchange credentials for a token.
	g.POST("/login", a.Login)
}

// RegisterLibrary registers the catalog and lending endpoints.  Browsing
// the catalog is public (optionally served through the Redis response
// cache); creating or deleting books requires the catalog:write permission
// and borrowing or returning requires any authenticated caller.
func RegisterLibrary(e *echo.Echo, lib *handler.LibraryHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	// Public browse endpoints live under /api/v1/library without any JWT
	// middleware so that guests can inspect the catalog before signing up.
	pub := e.Group("/api/v1/library")
	if cache != nil {
		// The cache middleware only acts on configured GET paths, so it is
		// safe to attach to the whole public group.
		pub.Use(cache)
	}
	// Library policy summary (name, loan period, late fee, borrow limit).
	pub.GET("/info", lib.Info)
	// List the full catalog, optionally filtered with ?available=true.
	pub.GET("/books", lib.ListBooks)
	// Paged keyword search over title and author.
	pub.GET("/books/search", lib.SearchBooks)
	// All books by one author.
	pub.GET("/books/author/:author", lib.BooksByAuthor)
	// Single book by numeric id.  Registered last so that the literal
	// "search" and "author" segments above win over the :id parameter.
	pub.GET("/books/:id", lib.GetBook)

	// Protected endpoints require a valid access token.  Each route adds
	// the permission check that the static policy table demands for it.
	auth := e.Group("/api/v1/library")
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Catalog mutation is restricted to ADMIN via catalog:write.
	auth.POST("/books", lib.CreateBook, middleware.RequirePermission(authz.PermCatalogWrite))
	auth.DELETE("/books/:id", lib.DeleteBook, middleware.RequirePermission(authz.PermCatalogWrite))
	// Borrow and return only require an authenticated caller.
	auth.POST("/books/:id/borrow", lib.Borrow, middleware.RequirePermission(authz.PermLend))
	auth.POST("/books/:id/return", lib.Return, middleware.RequirePermission(authz.PermLend))
}

// RegisterMembers registers the member administration endpoints under
// /api/v1/members.  Every route requires a token carrying the ADMIN or
// LIBRARIAN role, enforced through the member:admin permission.
func RegisterMembers(e *echo.Echo, m *handler.MemberHandler, jwtSecret string) {
	g := e.Group("/api/v1/members")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequirePermission(authz.PermMemberAdmin))
	// Paged listing with sort_by / sort_dir query parameters.
	g.GET("", m.List)
	// Fixed-path views precede the :id parameter routes.
	g.GET("/search", m.Search)
	g.GET("/active", m.Active)
	g.GET("/overdue", m.Overdue)
	g.GET("/stats/count", m.Stats)
	g.GET("/email/:email", m.GetByEmail)
	g.GET("/:id", m.Get)
	g.GET("/:id/borrowed-books", m.BorrowedBooks)
	// Explicit member creation (implicit creation still happens on a
	// first borrow).
	g.POST("", m.Create)
	// Deactivation refuses members that still hold books.
	g.PUT("/:id/deactivate", m.Deactivate)
}
