package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authServer is a minimal backend: data endpoints need the accessToken
// cookie, the refresh endpoint mints it when allowed.
type authServer struct {
	refreshes     atomic.Int32
	dataCalls     atomic.Int32
	refreshStatus int
	alwaysDeny    bool
}

func (s *authServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		s.refreshes.Add(1)
		if s.refreshStatus != 0 && s.refreshStatus != http.StatusOK {
			w.WriteHeader(s.refreshStatus)
			json.NewEncoder(w).Encode(map[string]string{"message": "Refresh token expired"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "fresh", Path: "/"})
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})
	mux.HandleFunc("/v1/api/orders/reports/today", func(w http.ResponseWriter, r *http.Request) {
		s.dataCalls.Add(1)
		c, err := r.Cookie("accessToken")
		if s.alwaysDeny || err != nil || c.Value != "fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"orders": []map[string]any{{"_id": "o1", "totalAmount": 42}},
		})
	})
	mux.HandleFunc("/v1/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/v1/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
	})
	mux.HandleFunc("/v1/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/v1/api/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return mux
}

func newTestClient(t *testing.T, h http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/v1/api", NewJar(), time.Second, discardLogger())
}

func TestSendRenewsAndReissuesOnce(t *testing.T) {
	s := &authServer{}
	c := newTestClient(t, s.handler())

	orders, err := NewAPI(c).TodayOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, int32(1), s.refreshes.Load())
	assert.Equal(t, int32(2), s.dataCalls.Load())
}

func TestSendSecond401DoesNotRenewAgain(t *testing.T) {
	s := &authServer{alwaysDeny: true}
	c := newTestClient(t, s.handler())

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: PathTodayOrders})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), s.refreshes.Load())
	assert.Equal(t, int32(2), s.dataCalls.Load())
}

func TestSendIdentityCheckNeverRenews(t *testing.T) {
	s := &authServer{}
	c := newTestClient(t, s.handler())

	_, err := NewAPI(c).Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, errors.Is(err, ErrSessionExpired))
	assert.Equal(t, int32(0), s.refreshes.Load())
}

func TestSendLoginAttemptNeverRenews(t *testing.T) {
	s := &authServer{}
	c := newTestClient(t, s.handler())
	var expired atomic.Int32
	c.OnSessionExpired(func(error) { expired.Add(1) })

	err := NewAPI(c).Login(context.Background(), Credentials{Identifier: "admin@gk.store", Secret: "nope"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Equal(t, int32(0), s.refreshes.Load())
	assert.Equal(t, int32(0), expired.Load())
}

func TestSendLogoutNeverRenews(t *testing.T) {
	s := &authServer{refreshStatus: http.StatusUnauthorized}
	c := newTestClient(t, s.handler())
	var expired atomic.Int32
	c.OnSessionExpired(func(error) { expired.Add(1) })

	err := NewAPI(c).Logout(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, errors.Is(err, ErrSessionExpired))
	assert.Equal(t, int32(0), s.refreshes.Load())
	assert.Equal(t, int32(0), expired.Load())
}

func TestSendServerErrorPassesThrough(t *testing.T) {
	s := &authServer{}
	c := newTestClient(t, s.handler())

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/boom"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(0), s.refreshes.Load())
	assert.Equal(t, http.StatusInternalServerError, StatusCode(resp.Err()))
}

func TestSendRenewalFailureExpiresSession(t *testing.T) {
	s := &authServer{refreshStatus: http.StatusUnauthorized}
	c := newTestClient(t, s.handler())

	var hookErr error
	var calls int
	c.OnSessionExpired(func(err error) {
		calls++
		hookErr = err
	})

	_, err := NewAPI(c).TodayOrders(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, hookErr, ErrSessionExpired)
	assert.Equal(t, int32(1), s.dataCalls.Load())
}

func TestSendConcurrentUnauthorizedShareRenewal(t *testing.T) {
	var (
		refreshes atomic.Int32
		denied    atomic.Int32
		gate      = make(chan struct{})
		gateOnce  sync.Once
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		<-gate
		time.Sleep(100 * time.Millisecond)
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "fresh", Path: "/"})
	})
	mux.HandleFunc("/v1/api/data", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("accessToken"); err == nil && c.Value == "fresh" {
			w.Write([]byte(`{"ok":true}`))
			return
		}
		if denied.Add(1) == 2 {
			gateOnce.Do(func() { close(gate) })
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	c := newTestClient(t, mux)

	var wg sync.WaitGroup
	statuses := make([]int, 2)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/data"})
			if assert.NoError(t, err) {
				statuses[i] = resp.StatusCode
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, statuses)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestSendSetsHeaders(t *testing.T) {
	type captured struct {
		header http.Header
		body   map[string]string
	}
	seen := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		seen <- captured{header: r.Header.Clone(), body: body}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", nil, 0, discardLogger())
	assert.Equal(t, srv.URL, c.BaseURL())

	_, err := c.Send(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/anything",
		Body:   map[string]string{"k": "v"},
	})
	require.NoError(t, err)
	got := <-seen
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.Equal(t, "application/json", got.header.Get("Accept"))
	assert.NotEmpty(t, got.header.Get("X-Request-ID"))
	assert.Equal(t, "v", got.body["k"])
}

func TestResponseDecodeEmpty(t *testing.T) {
	r := &Response{Method: http.MethodGet, Path: "/x", StatusCode: http.StatusOK}
	var out map[string]any
	assert.Error(t, r.Decode(&out))
	assert.NoError(t, r.Err())
}
