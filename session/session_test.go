package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luch-agregator/logger"
	"luch-agregator/selection"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewManager(rdb, time.Hour, true, logger.Nop()), mr
}

func TestManager_CreateGetDestroy(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	s, err := m.Create(ctx, 7, true)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.True(t, got.IsStaff)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(s.ID)))

	require.NoError(t, m.SelectionStore(s.ID).Save(ctx, selection.Raw{"3": selection.Structured(1, nil)}))
	require.NoError(t, m.Destroy(ctx, s.ID))
	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, mr.Exists(selectionKey(s.ID)))
}

func TestManager_Expiry(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	s, err := m.Create(ctx, 1, false)
	require.NoError(t, err)

	mr.FastForward(30 * time.Minute)
	_, err = m.Get(ctx, s.ID)
	require.NoError(t, err, "access slides the expiry")

	mr.FastForward(59 * time.Minute)
	_, err = m.Get(ctx, s.ID)
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_UnknownAndCorruptSessions(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	_, err := m.Get(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, mr.Set(sessionKey("bad"), "{not json"))
	_, err = m.Get(ctx, "bad")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, mr.Exists(sessionKey("bad")))
}

func TestManager_Cookies(t *testing.T) {
	m, _ := newTestManager(t)
	s, err := m.Create(context.Background(), 1, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.SetCookie(rec, s)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, s.ID, c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.AddCookie(c)
	got, err := m.FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = m.FromRequest(httptest.NewRequest(http.MethodGet, "/catalog", nil))
	assert.ErrorIs(t, err, ErrSessionNotFound)

	rec = httptest.NewRecorder()
	m.ClearCookie(rec)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestManager_Flashes(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.AddFlash(ctx, "s1", LevelInfo, "first"))
	require.NoError(t, m.AddFlash(ctx, "s1", LevelError, "second"))

	flashes, err := m.DrainFlashes(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []Flash{{LevelInfo, "first"}, {LevelError, "second"}}, flashes)

	flashes, err = m.DrainFlashes(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, flashes)
}

func TestSelectionStore_RoundTrip(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()
	store := m.SelectionStore("s1")

	raw, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, raw)

	price := "12.50"
	require.NoError(t, store.Save(ctx, selection.Raw{"3": selection.Structured(2, &price)}))
	stored, err := mr.Get(selectionKey("s1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"3":{"quantity":2,"price":"12.50"}}`, stored)

	raw, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, raw["3"].Quantity)
	require.NotNil(t, raw["3"].Price)
	assert.Equal(t, "12.50", *raw["3"].Price)
}

func TestSelectionStore_CorruptBlob(t *testing.T) {
	m, mr := newTestManager(t)
	require.NoError(t, mr.Set(selectionKey("s1"), `"just a string"`))

	_, err := m.SelectionStore("s1").Load(context.Background())
	assert.ErrorIs(t, err, selection.ErrCorruptSelection)
}
