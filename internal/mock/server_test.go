package mock

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.MockConfig {
	cfg := config.Default().Mock
	cfg.OrderInterval = 0
	cfg.LoginRate = 0
	cfg.Seed = 42
	return cfg
}

func newTestServer(t *testing.T, cfg config.MockConfig) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(cfg, discardLogger())
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

type rawClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newRawClient(t *testing.T, ts *httptest.Server) *rawClient {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &rawClient{t: t, base: ts.URL + APIPrefix, http: &http.Client{Jar: jar}}
}

func (c *rawClient) do(method, path, body string) (int, map[string]any) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, strings.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (c *rawClient) login() {
	c.t.Helper()
	status, _ := c.do(http.MethodPost, client.PathLogin, `{"email":"admin@gkstore.test","password":"admin123"}`)
	require.Equal(c.t, http.StatusOK, status)
}

func TestLoginSetsCookies(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	resp, err := http.Post(ts.URL+APIPrefix+client.PathLogin, "application/json",
		strings.NewReader(`{"email":"ADMIN@gkstore.test","password":"admin123"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, AccessCookie)
	require.Contains(t, cookies, RefreshCookie)
	assert.Equal(t, "/", cookies[AccessCookie].Path)
	assert.Equal(t, APIPrefix+client.PathRefresh, cookies[RefreshCookie].Path)
	assert.True(t, cookies[AccessCookie].HttpOnly)
	assert.True(t, cookies[RefreshCookie].HttpOnly)
}

func TestLoginByUsername(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	c := newRawClient(t, ts)
	status, body := c.do(http.MethodPost, client.PathLogin, `{"username":"admin","password":"admin123"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Login successful", body["message"])
}

func TestLoginFailures(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	c := newRawClient(t, ts)

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"wrong password", `{"email":"admin@gkstore.test","password":"nope"}`, http.StatusUnauthorized, "Invalid email or password"},
		{"unknown user", `{"email":"who@gkstore.test","password":"admin123"}`, http.StatusUnauthorized, "Invalid email or password"},
		{"missing password", `{"email":"admin@gkstore.test"}`, http.StatusBadRequest, "Email and password are required"},
		{"bad json", `{`, http.StatusBadRequest, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := c.do(http.MethodPost, client.PathLogin, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, body["message"])
		})
	}
}

func TestLoginRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRate = 0.001
	cfg.LoginBurst = 2
	_, ts := newTestServer(t, cfg)
	c := newRawClient(t, ts)

	bad := `{"email":"admin@gkstore.test","password":"nope"}`
	for i := 0; i < 2; i++ {
		status, _ := c.do(http.MethodPost, client.PathLogin, bad)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, _ := c.do(http.MethodPost, client.PathLogin, bad)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestMeRequiresValidAccessToken(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	c := newRawClient(t, ts)

	status, _ := c.do(http.MethodGet, client.PathMe, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	c.login()
	status, body := c.do(http.MethodGet, client.PathMe, "")
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, "admin@gkstore.test", user["email"])
	assert.Equal(t, "admin", user["role"])

	// An expired access token is rejected.
	stale := staleAccess(t, s)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+APIPrefix+client.PathMe, nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: stale})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshRenewsAccess(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	c := newRawClient(t, ts)
	c.login()

	// Drop the access cookie, keeping only the refresh cookie.
	u, _ := url.Parse(ts.URL + "/")
	c.http.Jar.SetCookies(u, []*http.Cookie{{Name: AccessCookie, Value: "", Path: "/", MaxAge: -1}})
	status, _ := c.do(http.MethodGet, client.PathMe, "")
	require.Equal(t, http.StatusUnauthorized, status)

	status, body := c.do(http.MethodPost, client.PathRefresh, `{}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Token refreshed", body["message"])

	status, _ = c.do(http.MethodGet, client.PathMe, "")
	assert.Equal(t, http.StatusOK, status)

	// An access token is not accepted as a refresh token.
	admin, _ := s.store.Authenticate("admin", "admin123")
	access, err := s.tokens.Issue(admin, AccessToken)
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+APIPrefix+client.PathRefresh, nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: access})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutClearsCookies(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	c := newRawClient(t, ts)
	c.login()

	status, _ := c.do(http.MethodPost, client.PathLogout, `{}`)
	require.Equal(t, http.StatusOK, status)

	status, _ = c.do(http.MethodGet, client.PathMe, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = c.do(http.MethodPost, client.PathRefresh, `{}`)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	_, err := s.store.AddUser("Staff", "staff@gkstore.test", "staff", "user", "staff123")
	require.NoError(t, err)

	anon := newRawClient(t, ts)
	status, _ := anon.do(http.MethodGet, client.PathTodayOrders, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	staff := newRawClient(t, ts)
	status, _ = staff.do(http.MethodPost, client.PathLogin, `{"email":"staff@gkstore.test","password":"staff123"}`)
	require.Equal(t, http.StatusOK, status)
	status, body := staff.do(http.MethodGet, client.PathTodayOrders, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Admin access required", body["message"])
}

// staleAccess signs an admin access token that expired long ago.
func staleAccess(t *testing.T, s *Server) string {
	t.Helper()
	admin, err := s.store.Authenticate("admin", "admin123")
	require.NoError(t, err)
	past := *s.tokens
	past.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := past.Issue(admin, AccessToken)
	require.NoError(t, err)
	return tok
}

func newAPI(t *testing.T, ts *httptest.Server) *client.API {
	t.Helper()
	h := client.NewHTTPClient(ts.URL+APIPrefix, client.NewJar(), 5*time.Second, discardLogger())
	return client.NewAPI(h)
}

func TestCatalogThroughClient(t *testing.T) {
	_, ts := newTestServer(t, testConfig())
	api := newAPI(t, ts)
	ctx := context.Background()
	require.NoError(t, api.Login(ctx, client.Credentials{Identifier: "admin@gkstore.test", Secret: "admin123"}))

	page, err := api.ListProducts(ctx, client.ListParams{Page: 1, Limit: 3, SortField: "price", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, page.Products, 3)
	assert.Equal(t, "Butter Chicken", page.Products[0].Name)
	assert.Equal(t, 8, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	search, err := api.ListProducts(ctx, client.ListParams{Search: "lassi"})
	require.NoError(t, err)
	require.Len(t, search.Products, 1)
	lassi := search.Products[0]
	assert.Len(t, lassi.Variants, 2)

	got, err := api.GetProduct(ctx, lassi.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lassi", got.Name)

	require.NoError(t, api.DeleteProduct(ctx, lassi.ID))
	_, err = api.GetProduct(ctx, lassi.ID)
	assert.Equal(t, http.StatusNotFound, client.StatusCode(err))
	assert.Equal(t, http.StatusNotFound, client.StatusCode(api.DeleteProduct(ctx, lassi.ID)))

	cats, err := api.ListCategories(ctx, client.ListParams{})
	require.NoError(t, err)
	require.Len(t, cats.Categories, 4)
	assert.Equal(t, "Starters", cats.Categories[0].Name)

	main, err := api.MainCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, main, 3)

	cat, err := api.GetCategory(ctx, cats.Categories[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Starters", cat.Name)
	require.NoError(t, api.DeleteCategory(ctx, cat.ID))
	_, err = api.GetCategory(ctx, cat.ID)
	assert.Equal(t, http.StatusNotFound, client.StatusCode(err))
}

func TestTodayOrdersThroughClient(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	api := newAPI(t, ts)
	ctx := context.Background()
	require.NoError(t, api.Login(ctx, client.Credentials{Identifier: "admin", Secret: "admin123"}))

	orders, err := api.TodayOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	s.store.AddOrder(client.Order{ID: "yesterday", PlacedAt: time.Now().Add(-48 * time.Hour)})
	first := s.generator.PlaceOrder()
	second := s.generator.PlaceOrder()

	orders, err = api.TodayOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
	assert.NotEmpty(t, orders[0].Items)
	assert.Greater(t, orders[0].TotalAmount, 0.0)
}

func TestExpiredAccessRenewsThroughClient(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	jar := client.NewJar()
	h := client.NewHTTPClient(ts.URL+APIPrefix, jar, 5*time.Second, discardLogger())
	api := client.NewAPI(h)
	ctx := context.Background()
	require.NoError(t, api.Login(ctx, client.Credentials{Identifier: "admin", Secret: "admin123"}))

	stale := staleAccess(t, s)
	u, _ := url.Parse(ts.URL + "/")
	jar.SetCookies(u, []*http.Cookie{{Name: AccessCookie, Value: stale, Path: "/"}})

	_, err := api.TodayOrders(ctx)
	require.NoError(t, err)
}
