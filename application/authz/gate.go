// Package authz decides whether an authenticated principal may perform an
// operation. It never looks at tokens; authentication happens before it.
package authz

import (
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
)

// Authorize reports whether principal holds one of the required roles. An
// empty requirement admits any authenticated principal.
func Authorize(principal *valueobject.AccessClaims, required ...valueobject.Role) bool {
	if principal == nil || !principal.Role.IsValid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, role := range required {
		if principal.Role == role {
			return true
		}
	}
	return false
}

// Check is Authorize with the failure named: AuthRequired when nobody is
// authenticated, RoleForbidden otherwise.
func Check(principal *valueobject.AccessClaims, required ...valueobject.Role) error {
	if principal == nil {
		return domainerror.ErrAuthRequired()
	}
	if !Authorize(principal, required...) {
		return domainerror.ErrRoleForbidden()
	}
	return nil
}
