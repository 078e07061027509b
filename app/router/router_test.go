package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luch-agregator/app/controller"
	"luch-agregator/config"
	"luch-agregator/logger"
	"luch-agregator/models"
	"luch-agregator/repository"
	"luch-agregator/selection"
	"luch-agregator/service"
	"luch-agregator/session"
)

type fakeCatalogRepo struct {
	models map[int64]*models.ProductModel
}

func (c *fakeCatalogRepo) GetModel(ctx context.Context, id int64) (*models.ProductModel, error) {
	m, ok := c.models[id]
	if !ok {
		return nil, fmt.Errorf("model %d: %w", id, selection.ErrModelNotFound)
	}
	return m, nil
}

func (c *fakeCatalogRepo) GetModels(ctx context.Context, ids []int64) (map[int64]*models.ProductModel, error) {
	out := map[int64]*models.ProductModel{}
	for _, id := range ids {
		if m, ok := c.models[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (c *fakeCatalogRepo) ListModelsOrdered(ctx context.Context) ([]models.CatalogRow, error) {
	rows := []models.CatalogRow{}
	for _, id := range []int64{3, 5} {
		rows = append(rows, models.CatalogRow{Model: *c.models[id]})
	}
	return rows, nil
}

type fakeDocuments struct {
	rows []models.DocumentLog
}

func (d *fakeDocuments) Allocate(ctx context.Context, userID *int64, docType models.DocumentType) (*models.DocumentLog, error) {
	row := models.DocumentLog{
		ID:             int64(len(d.rows) + 1),
		UserID:         userID,
		CreatedAt:      time.Now(),
		DocumentNumber: int64(len(d.rows) + 1),
		DocumentType:   docType,
	}
	d.rows = append(d.rows, row)
	return &row, nil
}

func (d *fakeDocuments) AttachFile(ctx context.Context, id int64, fileRef string) error { return nil }

func (d *fakeDocuments) List(ctx context.Context) ([]models.DocumentLog, error) {
	out := []models.DocumentLog{}
	for i := len(d.rows) - 1; i >= 0; i-- {
		out = append(out, d.rows[i])
	}
	return out, nil
}

type fakePDF struct{}

func (fakePDF) Render(ctx context.Context, offer *service.Offer) ([]byte, error) {
	return []byte("%PDF-1.4"), nil
}

type fakeDOCX struct{}

func (fakeDOCX) HasVariant(variant string) bool {
	return variant == "main" || variant == "umed" || variant == "pos78"
}

func (fakeDOCX) Render(ctx context.Context, offer *service.Offer, variant string) ([]byte, error) {
	return []byte("PK"), nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func (u *fakeUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if user, ok := u.users[username]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (u *fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return nil, repository.ErrUserNotFound
}

func (u *fakeUsers) Create(ctx context.Context, user *models.User) error {
	user.ID = int64(len(u.users) + 1)
	u.users[user.Username] = user
	return nil
}

type testEnv struct {
	server *httptest.Server
	docs   *fakeDocuments
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Nop()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sessions := session.NewManager(rdb, time.Hour, false, log)

	catalogRepo := &fakeCatalogRepo{models: map[int64]*models.ProductModel{
		3: {ID: 3, Name: "A", Price: decimal.RequireFromString("10.00"), ProductID: 30, ProductName: "Лампа", CategoryID: 1, CategoryName: "Светильники"},
		5: {ID: 5, Name: "B", Price: decimal.RequireFromString("20.00"), ProductID: 30, ProductName: "Лампа", CategoryID: 1, CategoryName: "Светильники"},
	}}
	docs := &fakeDocuments{}
	users := &fakeUsers{users: map[string]*models.User{}}

	auth := service.NewAuthService(users, log)
	_, err := auth.CreateUser(context.Background(), "manager", "secret", false)
	require.NoError(t, err)
	_, err = auth.CreateUser(context.Background(), "boss", "secret", true)
	require.NoError(t, err)

	catalog := service.NewCatalogService(catalogRepo, log)
	selections := service.NewSelectionService(catalog, log)
	offers := service.NewOfferService(selections, docs, fakePDF{}, fakeDOCX{}, nil, config.OfferTexts{}, time.UTC, log)

	handler := New(&Controllers{
		Auth:        controller.NewAuthController(auth, sessions, log),
		Catalog:     controller.NewCatalogController(catalog, selections, sessions, log),
		Offer:       controller.NewOfferController(offers, sessions, log),
		DocumentLog: controller.NewDocumentLogController(docs, log),
	}, sessions, log)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, docs: docs}
}

// client returns an HTTP client with a cookie jar that does not follow redirects
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) login(t *testing.T, username string) *http.Client {
	t.Helper()
	c := e.client(t)
	resp, err := c.PostForm(e.server.URL+"/login", url.Values{"username": {username}, "password": {"secret"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return c
}

func (e *testEnv) update(t *testing.T, c *http.Client, form url.Values) (*http.Response, selection.Snapshot) {
	t.Helper()
	resp, err := c.PostForm(e.server.URL+"/catalog/selection/update", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap selection.Snapshot
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	}
	return resp, snap
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	resp, err := c.Get(env.server.URL + "/catalog")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = c.Post(env.server.URL+"/login", "application/json", strings.NewReader(`{"username":"manager","password":"nope"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = c.Post(env.server.URL+"/login", "application/json", strings.NewReader(`{"username":"manager","password":"secret"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = c.Get(env.server.URL + "/catalog")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body controller.CatalogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Categories, 1)
	assert.Len(t, body.Categories[0].Products[0].Models, 2)
	assert.Empty(t, body.Selection.Items)

	resp, err = c.Post(env.server.URL+"/logout", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	resp, err = c.Get(env.server.URL + "/catalog")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateSelection(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t, "manager")

	resp, snap := env.update(t, c, url.Values{"action": {"add"}, "model_id": {"3"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "10", snap.Total.String())

	resp, snap = env.update(t, c, url.Values{"action": {"set"}, "model_id": {"3"}, "quantity": {"4"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, snap.Items[0].Quantity)

	resp, snap = env.update(t, c, url.Values{"action": {"apply_prices"}, "price_3": {"12,5"}, "price_5": {"99"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "50", snap.Total.String())

	resp, _ = env.update(t, c, url.Values{"action": {"set"}, "model_id": {"3"}, "quantity": {"-1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.update(t, c, url.Values{"action": {"set"}, "model_id": {"3"}, "quantity": {"many"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.update(t, c, url.Values{"action": {"explode"}, "model_id": {"3"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.update(t, c, url.Values{"action": {"add"}, "model_id": {"99"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	jsonResp, err := c.Post(env.server.URL+"/catalog/selection/update", "application/json",
		strings.NewReader(`{"action":"remove","model_id":3}`))
	require.NoError(t, err)
	defer jsonResp.Body.Close()
	require.Equal(t, http.StatusOK, jsonResp.StatusCode)
	require.NoError(t, json.NewDecoder(jsonResp.Body).Decode(&snap))
	assert.Equal(t, 3, snap.Items[0].Quantity)
}

func TestGenerateOffers(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t, "manager")
	env.update(t, c, url.Values{"action": {"add"}, "model_id": {"5"}})

	tests := []struct {
		path     string
		filename string
		mime     string
	}{
		{"/catalog/selection/generate-pdf", "commercial_offer_1.pdf", service.MimePDF},
		{"/catalog/selection/generate-docx", "commercial_offer_main_2.docx", service.MimeDOCX},
		{"/catalog/selection/generate-umed-docx", "commercial_offer_umed_3.docx", service.MimeDOCX},
		{"/catalog/selection/generate-pos78-docx", "commercial_offer_pos78_4.docx", service.MimeDOCX},
		{"/catalog/selection/generate-docx/umed", "commercial_offer_umed_5.docx", service.MimeDOCX},
	}
	for _, tt := range tests {
		resp, err := c.Get(env.server.URL + tt.path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, tt.path)
		assert.Equal(t, tt.mime, resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), tt.filename)
	}

	resp, err := c.Get(env.server.URL + "/catalog/selection/generate-docx/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Len(t, env.docs.rows, 5)
}

func TestGenerateEmptySelectionRedirects(t *testing.T) {
	env := newTestEnv(t)
	c := env.login(t, "manager")

	resp, err := c.Post(env.server.URL+"/catalog/selection/generate-pdf", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/catalog", resp.Header.Get("Location"))
	assert.Empty(t, env.docs.rows)

	resp, err = c.Get(env.server.URL + "/catalog")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body controller.CatalogResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Flashes, 1)
	assert.Equal(t, session.LevelInfo, body.Flashes[0].Level)
}

func TestDocumentLogRequiresStaff(t *testing.T) {
	env := newTestEnv(t)

	manager := env.login(t, "manager")
	resp, err := manager.Get(env.server.URL + "/document-log")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	env.update(t, manager, url.Values{"action": {"add"}, "model_id": {"3"}})
	resp, err = manager.Get(env.server.URL + "/catalog/selection/generate-pdf")
	require.NoError(t, err)
	resp.Body.Close()

	boss := env.login(t, "boss")
	resp, err = boss.Get(env.server.URL + "/document-log")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body models.DocumentLogListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Logs, 1)
	assert.Equal(t, int64(1), body.Logs[0].DocumentNumber)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/ping")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `offers_http_requests_total{method="GET",path="/ping",status="200"}`)
}
