// Package authz holds the static permission table that decides which
// roles may invoke which operations.  The decision function is pure:
// it depends only on the permission asked for and the role set carried
// by a verified token, so it needs no locking and no storage.
package authz

import "github.com/iliyamo/library-lending/internal/model"

// Permission names one guarded operation group of the API.
type Permission string

const (
	// PermCatalogRead covers listing and reading books and the library
	// info endpoint.  Public: no token required.
	PermCatalogRead Permission = "catalog:read"
	// PermCatalogWrite covers creating and deleting books.
	PermCatalogWrite Permission = "catalog:write"
	// PermLend covers borrowing and returning books.  Any
	// authenticated role qualifies.
	PermLend Permission = "lend"
	// PermMemberAdmin covers listing, searching and deactivating
	// members.
	PermMemberAdmin Permission = "member:admin"
)

// table maps each permission to the roles allowed to use it.  An empty
// entry means the permission is public.  The table is fixed at compile
// time; there is deliberately no way to change it at runtime.
var table = map[Permission][]string{
	PermCatalogRead:  {},
	PermCatalogWrite: {model.RoleAdmin},
	PermLend:         {model.RoleAdmin, model.RoleLibrarian, model.RoleMember},
	PermMemberAdmin:  {model.RoleAdmin, model.RoleLibrarian},
}

// Public reports whether the permission requires no authentication.
func Public(p Permission) bool {
	req, ok := table[p]
	return ok && len(req) == 0
}

// Allow reports whether a caller holding the given roles may use the
// permission.  Unknown permissions are always denied.  Callers are
// responsible for distinguishing "no valid token" from "valid token,
// wrong role" before consulting this function.
func Allow(p Permission, roles []string) bool {
	req, ok := table[p]
	if !ok {
		return false
	}
	if len(req) == 0 {
		return true
	}
	for _, have := range roles {
		for _, want := range req {
			if have == want {
				return true
			}
		}
	}
	return false
}
