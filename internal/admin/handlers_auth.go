package admin

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/gin-admin-kit/internal/session"
)

// Login form messages.
const (
	MsgInvalidLogin   = "Invalid username or password."
	MsgLoginThrottled = "Too many sign-in attempts. Try again shortly."
)

func (s *Site) handleLoginPage(c *gin.Context) {
	if sess := session.FromContext(c); sess != nil {
		if id, ok := sess.Get(userSessionKey); ok && id != "" {
			if p, err := s.auth.GetUser(c.Request.Context(), id); err == nil && p != nil && p.IsAdmin {
				s.redirect(c, s.dashboardURL())
				return
			}
		}
	}
	s.render(c, http.StatusOK, ViewLogin, map[string]any{"page_title": "Sign in", "username": ""})
}

// throttleLogin answers throttled clients with the login page and 429.
func (s *Site) throttleLogin(c *gin.Context) {
	if s.loginLimiter == nil || s.loginLimiter.Allow(c.ClientIP()) {
		c.Next()
		return
	}
	username := strings.TrimSpace(c.PostForm("username"))
	s.notify(c, Event{Action: ActionLogin, Username: username, Err: ErrLoginThrottled})
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(s.loginLimiter.RetryAfter().Seconds()))))
	s.render(c, http.StatusTooManyRequests, ViewLogin, map[string]any{
		"page_title": "Sign in",
		"username":   username,
		"error":      MsgLoginThrottled,
	})
	c.Abort()
}

func (s *Site) handleLoginSubmit(c *gin.Context) {
	start := time.Now()
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	principal, err := s.auth.Authenticate(c.Request.Context(), username, password)
	if err == nil && (principal == nil || !principal.IsAdmin) {
		err = ErrInvalidCredentials
	}
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			_ = c.Error(err)
			s.logger.Error("admin authentication failed", zap.String("username", username), zap.Error(err))
		}
		s.notify(c, Event{Action: ActionLogin, Username: username, Duration: time.Since(start), Err: err})
		s.render(c, http.StatusOK, ViewLogin, map[string]any{
			"page_title": "Sign in",
			"username":   username,
			"error":      MsgInvalidLogin,
		})
		return
	}

	sess, err := s.sessions.Renew(c)
	if err != nil {
		s.fail(c, err, "renew admin session")
		return
	}
	sess.Set(userSessionKey, principal.ID)
	s.notify(c, Event{Action: ActionLogin, Principal: principal, Username: username, Duration: time.Since(start)})
	s.redirect(c, s.dashboardURL())
}

func (s *Site) handleLogout(c *gin.Context) {
	if sess := session.FromContext(c); sess != nil {
		if id, ok := sess.Get(userSessionKey); ok {
			s.notify(c, Event{Action: ActionLogout, Principal: &Principal{ID: id}})
		}
		sess.Clear()
	}
	s.redirect(c, s.loginURL())
}
