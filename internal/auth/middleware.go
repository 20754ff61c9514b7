package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rastercell/lms-api/internal/errors"
)

const identityKey = "auth.identity"

// Middleware resolves the bearer token, if any, and stores the identity on
// the request context. Route guards decide whether an identity is required.
func Middleware(s *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" || token == "null" {
			c.Next()
			return
		}

		id, err := s.VerifyToken(token)
		if err != nil {
			e := errors.Convert(err)
			c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRoles rejects callers who are unauthenticated or whose role is not
// in the allow list.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			e := errors.New(errors.CodeUnauthenticated, errors.WithMessagef("Authentication failed."))
			c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
			return
		}

		if _, ok := allowed[id.Role]; !ok {
			e := errors.New(errors.CodePermissionDenied, errors.WithMessagef("Unauthorized Access"))
			c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
			return
		}

		c.Next()
	}
}

// AnyRole matches every authenticated caller.
func AnyRole() gin.HandlerFunc {
	return RequireRoles(RoleUser, RoleWriter, RoleInstructor, RoleModerator, RoleAdmin, RoleSuperAdmin)
}

// IdentityFrom returns the authenticated identity, if any.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}

	id, ok := v.(Identity)
	return id, ok
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
