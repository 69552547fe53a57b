package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// API wraps the GK Store REST endpoints on top of an HTTPClient.
type API struct {
	http *HTTPClient
}

// NewAPI creates an API bound to the given client.
func NewAPI(h *HTTPClient) *API {
	return &API{http: h}
}

// HTTP returns the underlying client.
func (a *API) HTTP() *HTTPClient { return a.http }

// Me fetches GET /auth/me.
func (a *API) Me(ctx context.Context) (*User, error) {
	resp, err := a.send(ctx, Request{Method: http.MethodGet, Path: PathMe})
	if err != nil {
		return nil, err
	}
	return decodeUser(resp)
}

// Login sends POST /auth/login. The server answers with session cookies.
func (a *API) Login(ctx context.Context, creds Credentials) error {
	_, err := a.send(ctx, Request{
		Method:       http.MethodPost,
		Path:         PathLogin,
		Body:         creds.loginBody(),
		LoginAttempt: true,
	})
	return err
}

// Logout sends POST /auth/logout.
func (a *API) Logout(ctx context.Context) error {
	_, err := a.send(ctx, Request{Method: http.MethodPost, Path: PathLogout, Body: struct{}{}})
	return err
}

// TodayOrders fetches GET /orders/reports/today.
func (a *API) TodayOrders(ctx context.Context) ([]Order, error) {
	resp, err := a.send(ctx, Request{Method: http.MethodGet, Path: PathTodayOrders})
	if err != nil {
		return nil, err
	}
	var out struct {
		Orders []Order `json:"orders"`
	}
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if out.Orders == nil {
		out.Orders = []Order{}
	}
	return out.Orders, nil
}

// send performs req and converts non-2xx responses into *APIError.
func (a *API) send(ctx context.Context, req Request) (*Response, error) {
	resp, err := a.http.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// decodeUser accepts the identity bare or wrapped under "user" or "data".
func decodeUser(resp *Response) (*User, error) {
	var env struct {
		User *User `json:"user"`
		Data *User `json:"data"`
	}
	if err := resp.Decode(&env); err != nil {
		return nil, err
	}
	switch {
	case env.User != nil:
		return env.User, nil
	case env.Data != nil:
		return env.Data, nil
	}

	var u User
	if err := json.Unmarshal(resp.Body, &u); err != nil {
		return nil, fmt.Errorf("%s %s: decode user: %w", resp.Method, resp.Path, err)
	}
	if u.ID == "" && u.Email == "" {
		return nil, fmt.Errorf("%s %s: response carries no user", resp.Method, resp.Path)
	}
	return &u, nil
}
