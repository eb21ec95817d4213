package session

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const contextKey = "session"

// ErrMissingHashKey is returned when the cookie signing key is empty.
var ErrMissingHashKey = errors.New("session: cookie hash key required")

// Observer receives the outcome of every store operation.
type Observer func(op string, duration time.Duration, err error)

// Options configures the session cookie.
type Options struct {
	CookieName string
	Path       string
	TTL        time.Duration
	Secure     bool
	Observer   Observer
}

// Manager binds a Store to requests through a signed cookie.
type Manager struct {
	store  Store
	codec  *securecookie.SecureCookie
	opts   Options
	logger *zap.Logger
}

// NewManager constructs a session manager. The cookie carries only the
// session id, authenticated with hashKey and bounded by opts.TTL.
func NewManager(store Store, hashKey []byte, opts Options, logger *zap.Logger) (*Manager, error) {
	if len(hashKey) == 0 {
		return nil, ErrMissingHashKey
	}
	if opts.CookieName == "" {
		opts.CookieName = "admin_session"
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(int(opts.TTL.Seconds()))
	return &Manager{store: store, codec: codec, opts: opts, logger: logger}, nil
}

// Middleware loads the session before the handler runs. Pending changes are
// persisted right before the response headers are committed, so a client
// that sees the response also sees its session writes. Changes made after
// that point are persisted once the handler returns.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := m.resolve(c)
		if err != nil {
			_ = c.Error(err)
			m.logger.Error("session load failed", zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if sess.IsNew() {
			m.writeCookie(c, sess.ID)
		}
		c.Set(contextKey, sess)

		original := c.Writer
		c.Writer = &savingWriter{ResponseWriter: original, save: func() { m.save(c) }}
		c.Next()
		c.Writer = original

		m.save(c)
	}
}

func (m *Manager) save(c *gin.Context) {
	current := FromContext(c)
	if current == nil {
		return
	}
	start := time.Now()
	err := Save(c.Request.Context(), m.store, current)
	m.observe("save", start, err)
	if err != nil {
		_ = c.Error(err)
		m.logger.Error("session save failed", zap.String("session_id", current.ID), zap.Error(err))
	}
}

// savingWriter persists the session the first time the response is
// committed to the client.
type savingWriter struct {
	gin.ResponseWriter
	save func()
	once sync.Once
}

func (w *savingWriter) commit() {
	w.once.Do(w.save)
}

func (w *savingWriter) WriteHeaderNow() {
	w.commit()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *savingWriter) Write(data []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(data)
}

func (w *savingWriter) WriteString(s string) (int, error) {
	w.commit()
	return w.ResponseWriter.WriteString(s)
}

func (w *savingWriter) Flush() {
	w.commit()
	w.ResponseWriter.Flush()
}

// Renew moves the current session's data to a fresh id and discards the old
// one. Call it when the privilege level changes, e.g. on login.
func (m *Manager) Renew(c *gin.Context) (*Session, error) {
	old := FromContext(c)
	fresh := m.fresh()
	if old != nil {
		old.mu.Lock()
		for k, v := range old.values {
			fresh.values[k] = v
		}
		old.mu.Unlock()

		start := time.Now()
		err := m.store.Delete(c.Request.Context(), old.ID)
		m.observe("delete", start, err)
		if err != nil {
			return nil, err
		}
	}
	fresh.cleared = true
	m.writeCookie(c, fresh.ID)
	c.Set(contextKey, fresh)
	return fresh, nil
}

// FromContext returns the request's session, or nil outside the middleware.
func FromContext(c *gin.Context) *Session {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*Session)
	return sess
}

func (m *Manager) resolve(c *gin.Context) (*Session, error) {
	raw, err := c.Cookie(m.opts.CookieName)
	if err != nil || raw == "" {
		return m.fresh(), nil
	}
	var id string
	if err := m.codec.Decode(m.opts.CookieName, raw, &id); err != nil || id == "" {
		m.logger.Debug("session cookie rejected", zap.Error(err))
		return m.fresh(), nil
	}

	start := time.Now()
	sess, err := m.store.Load(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		m.observe("load", start, nil)
		return m.fresh(), nil
	}
	m.observe("load", start, err)
	if err != nil {
		return nil, err
	}
	return sess.bind(m.store), nil
}

func (m *Manager) fresh() *Session {
	return New(uuid.NewString()).bind(m.store)
}

func (m *Manager) writeCookie(c *gin.Context, id string) {
	value, err := m.codec.Encode(m.opts.CookieName, id)
	if err != nil {
		m.logger.Error("session cookie encoding failed", zap.Error(err))
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.opts.CookieName, value, int(m.opts.TTL.Seconds()), m.opts.Path, "", m.opts.Secure, true)
}

func (m *Manager) observe(op string, start time.Time, err error) {
	if m.opts.Observer != nil {
		m.opts.Observer(op, time.Since(start), err)
	}
}
