package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/gin-admin-kit/internal/session"
)

// Registry and site errors.
var (
	ErrDuplicateResource = errors.New("admin: resource already registered")
	ErrEmptyRegistry     = errors.New("admin: no resources registered")
	ErrInvalidPrefix     = errors.New("admin: prefix must start with '/'")
	ErrMissingAuth       = errors.New("admin: auth provider required")
	ErrMissingSessions   = errors.New("admin: session manager required")
)

// Action names reported to observers.
const (
	ActionLogin  = "login"
	ActionLogout = "logout"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event describes one admin action outcome.
type Event struct {
	Action    string
	Resource  string
	RecordID  string
	Principal *Principal
	Username  string
	ClientIP  string
	Duration  time.Duration
	Err       error
}

// Observer is notified after every admin action.
type Observer interface {
	ObserveAdmin(ctx context.Context, ev Event)
}

// SiteOptions configures NewSite.
type SiteOptions struct {
	Title     string
	Prefix    string
	Auth      AuthProvider
	Sessions  *session.Manager
	Renderer  Renderer
	Logger    *zap.Logger
	Observers []Observer
	// LoginLimiter throttles login submissions per client IP. Nil disables
	// throttling.
	LoginLimiter LoginLimiter
}

// LoginLimiter decides whether a client may submit the login form again.
type LoginLimiter interface {
	Allow(key string) bool
	RetryAfter() time.Duration
}

// Site is the admin registry: an insertion-ordered set of resources plus
// the collaborators the handlers need.
type Site struct {
	title           string
	prefix          string
	auth            AuthProvider
	sessions        *session.Manager
	renderer        Renderer
	logger          *zap.Logger
	observers       []Observer
	loginLimiter    LoginLimiter

	mu        sync.RWMutex
	resources []*Resource
	byName    map[string]*Resource
}

// NewSite validates opts and returns an empty registry.
func NewSite(opts SiteOptions) (*Site, error) {
	if !strings.HasPrefix(opts.Prefix, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, opts.Prefix)
	}
	if opts.Auth == nil {
		return nil, ErrMissingAuth
	}
	if opts.Sessions == nil {
		return nil, ErrMissingSessions
	}
	if opts.Title == "" {
		opts.Title = "Admin"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Renderer == nil {
		r, err := NewTemplateRenderer()
		if err != nil {
			return nil, err
		}
		opts.Renderer = r
	}

	return &Site{
		title:           opts.Title,
		prefix:          strings.TrimRight(opts.Prefix, "/"),
		auth:            opts.Auth,
		sessions:        opts.Sessions,
		renderer:        opts.Renderer,
		logger:          opts.Logger,
		observers:       opts.Observers,
		loginLimiter:    opts.LoginLimiter,
		byName:          map[string]*Resource{},
	}, nil
}

// Prefix returns the mount prefix without a trailing slash.
func (s *Site) Prefix() string { return s.prefix }

// Register adds a resource. Names are unique for the life of the site.
func (s *Site) Register(r *Resource) error {
	if r == nil {
		return errors.New("admin: nil resource")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[r.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResource, r.Name())
	}
	s.byName[r.Name()] = r
	s.resources = append(s.resources, r)
	return nil
}

// Resource looks up a registered resource by name.
func (s *Site) Resource(name string) (*Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byName[name]
	return r, ok
}

// Resources returns the registered resources in registration order.
func (s *Site) Resources() []*Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Resource(nil), s.resources...)
}

// Mount registers every admin route under the site prefix.
func (s *Site) Mount(router gin.IRouter) error {
	if len(s.Resources()) == 0 {
		return ErrEmptyRegistry
	}

	g := router.Group(s.prefix, s.sessions.Middleware())
	g.GET("/login", s.handleLoginPage)
	g.POST("/login", s.throttleLogin, s.handleLoginSubmit)
	g.GET("/logout", s.handleLogout)

	p := g.Group("", s.RequireAdmin())
	p.GET("/", s.handleDashboard)
	p.GET("/:resource/", s.handleList)
	p.GET("/:resource/create", s.handleCreatePage)
	p.POST("/:resource/create", s.handleCreateSubmit)
	p.GET("/:resource/:id", s.handleDetail)
	p.GET("/:resource/:id/edit", s.handleEditPage)
	p.POST("/:resource/:id/edit", s.handleEditSubmit)
	p.GET("/:resource/:id/delete", s.handleDeletePage)
	p.POST("/:resource/:id/delete", s.handleDeleteSubmit)
	return nil
}

type navItem struct {
	Name        string
	DisplayName string
	URL         string
}

// render writes view with the shared layout context. Rendering pops the
// pending flash message.
func (s *Site) render(c *gin.Context, status int, view string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["title"] = s.title
	data["prefix"] = s.prefix
	if _, ok := data["active_nav"]; !ok {
		data["active_nav"] = ""
	}
	if _, ok := data["page_title"]; !ok {
		data["page_title"] = ""
	}

	resources := s.Resources()
	nav := make([]navItem, 0, len(resources))
	for _, r := range resources {
		nav = append(nav, navItem{Name: r.Name(), DisplayName: r.DisplayName(), URL: s.listURL(r)})
	}
	data["nav"] = nav

	if p, ok := PrincipalFromContext(c); ok {
		data["principal"] = p
	}
	if sess := session.FromContext(c); sess != nil {
		data["flash"] = PopFlash(sess)
		token, err := IssueCSRFToken(c.Request.Context(), sess)
		if err != nil {
			s.fail(c, err, "issue csrf token")
			return
		}
		data["csrf_token"] = token
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, view, data); err != nil {
		s.fail(c, err, "render admin view")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Site) fail(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	s.logger.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.String(http.StatusInternalServerError, "Internal Server Error")
}

func (s *Site) redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
	c.Abort()
}

func (s *Site) notify(c *gin.Context, ev Event) {
	if ev.Principal == nil {
		ev.Principal, _ = PrincipalFromContext(c)
	}
	ev.ClientIP = c.ClientIP()
	for _, o := range s.observers {
		o.ObserveAdmin(c.Request.Context(), ev)
	}
}
