package admin

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/gin-admin-kit/internal/session"
)

const (
	userSessionKey      = "admin_user_id"
	principalContextKey = "adminPrincipal"
)

// RequireAdmin redirects to the login page unless the session belongs to an
// admin principal. Sessions whose principal vanished or lost the admin flag
// are cleared.
func (s *Site) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c)
		if sess == nil {
			s.redirect(c, s.loginURL())
			return
		}
		id, ok := sess.Get(userSessionKey)
		if !ok || id == "" {
			s.redirect(c, s.loginURL())
			return
		}

		principal, err := s.auth.GetUser(c.Request.Context(), id)
		if err != nil && !errors.Is(err, ErrPrincipalNotFound) {
			_ = c.Error(err)
			s.logger.Warn("admin principal lookup failed", zap.String("user_id", id), zap.Error(err))
		}
		if err != nil || principal == nil || !principal.IsAdmin {
			sess.Clear()
			s.redirect(c, s.loginURL())
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the admin attached by RequireAdmin.
func PrincipalFromContext(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok && p != nil
}
