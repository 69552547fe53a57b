package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAuth struct {
	user      *client.User
	meErr     error
	loginErr  error
	logoutErr error
	meCalls   int
	logouts   int
}

func (f *fakeAuth) Me(context.Context) (*client.User, error) {
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.user, nil
}

func (f *fakeAuth) Login(context.Context, client.Credentials) error { return f.loginErr }

func (f *fakeAuth) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

var admin = &client.User{ID: "u1", Name: "Asha", Email: "asha@gk.store", Role: "admin"}

func TestStartAuthenticated(t *testing.T) {
	store := NewMemoryStorage()
	p := NewProvider(&fakeAuth{user: admin}, store, discardLogger())

	s := p.Start(context.Background())
	assert.Equal(t, StateAuthenticated, s.State)
	assert.True(t, s.Authenticated())
	assert.False(t, s.Loading)
	assert.Equal(t, "Asha", p.CachedUser().Name)
}

func TestStartNetworkErrorIsAnonymous(t *testing.T) {
	p := NewProvider(&fakeAuth{meErr: errors.New("dial tcp: connection refused")}, nil, discardLogger())

	s := p.Start(context.Background())
	assert.Equal(t, StateAnonymous, s.State)
	assert.Nil(t, s.User)
	assert.False(t, s.SignIn)
}

func TestLoginRefetchesIdentity(t *testing.T) {
	auth := &fakeAuth{user: admin}
	p := NewProvider(auth, nil, discardLogger())

	res := p.Login(context.Background(), client.Credentials{Identifier: "asha@gk.store", Secret: "pw"})
	assert.True(t, res.Success)
	assert.Equal(t, 1, auth.meCalls)
	assert.Equal(t, StateAuthenticated, p.Current().State)
}

func TestLoginFailureIsAValue(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &client.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid credentials"}, "Invalid credentials"},
		{"no message", &client.APIError{StatusCode: http.StatusBadGateway}, DefaultLoginFailure},
		{"transport", errors.New("timeout"), DefaultLoginFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(&fakeAuth{meErr: errors.New("no session"), loginErr: tt.err}, nil, discardLogger())
			p.Start(context.Background())

			res := p.Login(context.Background(), client.Credentials{Identifier: "x", Secret: "y"})
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Message)

			s := p.Current()
			assert.Equal(t, StateAnonymous, s.State)
			assert.False(t, s.SignIn)
		})
	}
}

func TestLogoutIsUnconditional(t *testing.T) {
	store := NewMemoryStorage()
	auth := &fakeAuth{user: admin, logoutErr: context.DeadlineExceeded}
	p := NewProvider(auth, store, discardLogger())
	p.Start(context.Background())
	p.SaveLastPath("/admin/categories")

	cleared := 0
	p.OnClear(func() { cleared++ })

	p.Logout(context.Background())

	s := p.Current()
	assert.Equal(t, StateAnonymous, s.State)
	assert.Nil(t, s.User)
	assert.True(t, s.SignIn)
	assert.Equal(t, 1, auth.logouts)
	assert.Equal(t, 1, cleared)
	assert.Empty(t, p.LastPath())
	assert.Nil(t, p.CachedUser())
}

func TestExpireClearsAndRequestsSignIn(t *testing.T) {
	store := NewMemoryStorage()
	p := NewProvider(&fakeAuth{user: admin}, store, discardLogger())
	p.Start(context.Background())
	p.SaveLastPath("/admin/dashboard")

	p.Expire(client.ErrSessionExpired)

	s := p.Current()
	assert.Equal(t, StateAnonymous, s.State)
	assert.True(t, s.SignIn)
	assert.Equal(t, "session expired", s.Reason)
	st, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Stored{}, st)
}

func TestSubscribeLatestWins(t *testing.T) {
	p := NewProvider(&fakeAuth{user: admin}, nil, discardLogger())
	ch, cancel := p.Subscribe()

	first := <-ch
	assert.Equal(t, StateUnknown, first.State)

	p.Start(context.Background())
	p.Logout(context.Background())

	latest := <-ch
	assert.Equal(t, StateAnonymous, latest.State)
	assert.True(t, latest.SignIn)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}

// The boot check against a backend whose cookie has expired must end
// Anonymous without touching the renewal endpoint or asking to navigate.
func TestBootWithExpiredCookie(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Token expired"}`))
	})
	mux.HandleFunc("/v1/api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	httpClient := client.NewHTTPClient(srv.URL+"/v1/api", client.NewJar(), time.Second, discardLogger())
	p := NewProvider(client.NewAPI(httpClient), nil, discardLogger())
	httpClient.OnSessionExpired(p.Expire)

	s := p.Start(context.Background())
	assert.Equal(t, StateAnonymous, s.State)
	assert.False(t, s.SignIn)
	assert.Equal(t, int32(0), refreshes.Load())
}

// A data request that hits an expired access token renews and succeeds
// without the session noticing.
func TestDataRequestRenewsTransparently(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"_id":"u1","name":"Asha","role":"admin"}}`))
	})
	mux.HandleFunc("/v1/api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "renewed", Path: "/"})
	})
	mux.HandleFunc("/v1/api/orders/reports/today", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("accessToken"); err != nil || c.Value != "renewed" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"orders":[{"_id":"o1"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	httpClient := client.NewHTTPClient(srv.URL+"/v1/api", client.NewJar(), time.Second, discardLogger())
	api := client.NewAPI(httpClient)
	p := NewProvider(api, nil, discardLogger())
	httpClient.OnSessionExpired(p.Expire)
	p.Start(context.Background())

	orders, err := api.TodayOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)

	s := p.Current()
	assert.Equal(t, StateAuthenticated, s.State)
	assert.False(t, s.SignIn)
}
