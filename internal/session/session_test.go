package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAppliesChanges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	sess := New("abc")
	sess.Set("user", "1")
	sess.Set("flash", "hi")
	require.NoError(t, Save(ctx, store, sess))

	loaded, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	v, ok := loaded.Get("user")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	msg, ok := loaded.Pop("flash")
	assert.True(t, ok)
	assert.Equal(t, "hi", msg)
	require.NoError(t, Save(ctx, store, loaded))

	reloaded, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	_, ok = reloaded.Get("flash")
	assert.False(t, ok)
}

func TestSetIfAbsentFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.Apply(ctx, "s1", Changes{Set: map[string]string{"seed": "x"}}))

	first, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	second, err := store.Load(ctx, "s1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i, sess := range []*Session{first, second} {
		wg.Add(1)
		go func(i int, sess *Session) {
			defer wg.Done()
			v, err := sess.SetIfAbsent(ctx, "csrf", []string{"token-a", "token-b"}[i])
			assert.NoError(t, err)
			results[i] = v
		}(i, sess)
	}
	wg.Wait()

	assert.Equal(t, results[0], results[1])
	require.NoError(t, Save(ctx, store, first))
	require.NoError(t, Save(ctx, store, second))

	final, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	v, _ := final.Get("csrf")
	assert.Equal(t, results[0], v)

	again, err := second.SetIfAbsent(ctx, "csrf", "token-c")
	require.NoError(t, err)
	assert.Equal(t, results[0], again)
}

func TestSetIfAbsentCreatesMissingSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	v, err := store.SetIfAbsent(ctx, "new", "csrf", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", v)

	v, err = store.SetIfAbsent(ctx, "new", "csrf", "t2")
	require.NoError(t, err)
	assert.Equal(t, "t1", v)
	assert.Equal(t, 1, store.Len())
}

func TestSetIfAbsentAfterClearIgnoresStaleValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.Apply(ctx, "s1", Changes{Set: map[string]string{"csrf": "stale", "user": "1"}}))
	sess, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	sess.Clear()

	v, err := sess.SetIfAbsent(ctx, "csrf", "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", v)
	require.NoError(t, Save(ctx, store, sess))

	final, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	got, _ := final.Get("csrf")
	assert.Equal(t, "t1", got)
	_, ok := final.Get("user")
	assert.False(t, ok)
}

func TestClearDropsStoredKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.Apply(ctx, "s1", Changes{Set: map[string]string{"a": "1", "b": "2"}}))

	sess, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	sess.Clear()
	sess.Set("c", "3")
	require.NoError(t, Save(ctx, store, sess))

	final, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	_, ok := final.Get("a")
	assert.False(t, ok)
	v, _ := final.Get("c")
	assert.Equal(t, "3", v)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Apply(ctx, "old", Changes{Set: map[string]string{"k": "v"}}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, store.Apply(ctx, "fresh", Changes{Set: map[string]string{"k": "v"}}))

	removed, err := store.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	_, err = store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSkipsUnchangedSession(t *testing.T) {
	store := NewMemoryStore(0)
	require.NoError(t, Save(context.Background(), store, New("empty")))
	assert.Equal(t, 0, store.Len())
}

var testHashKey = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()
	mgr, err := NewManager(store, testHashKey, Options{CookieName: "sid", TTL: time.Hour}, nil)
	require.NoError(t, err)
	return mgr
}

func TestNewManagerRequiresHashKey(t *testing.T) {
	_, err := NewManager(NewMemoryStore(0), nil, Options{}, nil)
	assert.ErrorIs(t, err, ErrMissingHashKey)
}

func TestMiddlewarePersistsAcrossRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore(time.Hour)
	mgr := newTestManager(t, store)

	r := gin.New()
	r.Use(mgr.Middleware())
	r.GET("/set", func(c *gin.Context) {
		FromContext(c).Set("name", "alice")
		c.Status(http.StatusNoContent)
	})
	r.GET("/get", func(c *gin.Context) {
		v, _ := FromContext(c).Get("name")
		c.String(http.StatusOK, v)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "alice", rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestMiddlewareIgnoresTamperedCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore(time.Hour)
	require.NoError(t, store.Apply(context.Background(), "victim", Changes{Set: map[string]string{"name": "bob"}}))
	mgr := newTestManager(t, store)

	r := gin.New()
	r.Use(mgr.Middleware())
	r.GET("/get", func(c *gin.Context) {
		v, _ := FromContext(c).Get("name")
		c.String(http.StatusOK, v)
	})

	forged, err := securecookie.New([]byte("some-other-key"), nil).Encode("sid", "victim")
	require.NoError(t, err)

	for _, value := range []string{"victim", forged} {
		req := httptest.NewRequest(http.MethodGet, "/get", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: value})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Empty(t, rec.Body.String())
		require.Len(t, rec.Result().Cookies(), 1)
	}
}

func TestMiddlewareRejectsExpiredCookie(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cookie to expire")
	}
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore(0)
	mgr, err := NewManager(store, testHashKey, Options{CookieName: "sid", TTL: time.Second}, nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(mgr.Middleware())
	r.GET("/set", func(c *gin.Context) {
		FromContext(c).Set("name", "alice")
		c.Status(http.StatusNoContent)
	})
	r.GET("/get", func(c *gin.Context) {
		v, _ := FromContext(c).Get("name")
		c.String(http.StatusOK, v)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookie := rec.Result().Cookies()[0]

	time.Sleep(2100 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Empty(t, rec.Body.String())
	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, cookie.Value, rec.Result().Cookies()[0].Value)
}

func TestMiddlewareSavesBeforeResponseIsWritten(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore(time.Hour)
	mgr := newTestManager(t, store)

	var persisted string
	r := gin.New()
	r.Use(mgr.Middleware())
	r.GET("/stream", func(c *gin.Context) {
		sess := FromContext(c)
		sess.Set("step", "1")
		c.String(http.StatusOK, "partial")
		c.Writer.Flush()

		loaded, err := store.Load(c.Request.Context(), sess.ID)
		require.NoError(t, err)
		persisted, _ = loaded.Get("step")

		sess.Set("step", "2")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))

	assert.Equal(t, "1", persisted)
	assert.Equal(t, 1, store.Len())
	for _, id := range storedIDs(store) {
		final, err := store.Load(context.Background(), id)
		require.NoError(t, err)
		v, _ := final.Get("step")
		assert.Equal(t, "2", v)
	}
}

func storedIDs(m *MemoryStore) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	return ids
}

func TestRenewMovesDataToNewID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore(time.Hour)
	mgr := newTestManager(t, store)

	var oldID, newID string
	r := gin.New()
	r.Use(mgr.Middleware())
	r.GET("/seed", func(c *gin.Context) {
		FromContext(c).Set("csrf", "t")
		c.Status(http.StatusNoContent)
	})
	r.GET("/renew", func(c *gin.Context) {
		oldID = FromContext(c).ID
		sess, err := mgr.Renew(c)
		require.NoError(t, err)
		sess.Set("user", "1")
		newID = sess.ID
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/seed", nil))
	req := httptest.NewRequest(http.MethodGet, "/renew", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.NotEqual(t, oldID, newID)
	_, err := store.Load(context.Background(), oldID)
	assert.ErrorIs(t, err, ErrNotFound)

	renewed, err := store.Load(context.Background(), newID)
	require.NoError(t, err)
	v, _ := renewed.Get("csrf")
	assert.Equal(t, "t", v)
	v, _ = renewed.Get("user")
	assert.Equal(t, "1", v)
}
