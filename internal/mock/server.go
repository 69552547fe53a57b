package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/config"
)

// Cookie names and the API mount point.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
	APIPrefix     = "/v1/api"
	SocketPath    = "/socket.io/"
)

const roleAdmin = "admin"

// Server is the mock backend.
type Server struct {
	store     *Store
	tokens    *Tokens
	hub       *Hub
	generator *Generator
	limiter   *rate.Limiter
	logger    *slog.Logger
	router    chi.Router
}

// New creates a seeded server with one admin account from cfg.
func New(cfg config.MockConfig, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tokens, err := NewTokens(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("mock: %w", err)
	}

	store := NewStore()
	store.Seed()
	if _, err := store.AddUser("GK Admin", cfg.AdminEmail, "admin", roleAdmin, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("mock: creating admin: %w", err)
	}

	limit := rate.Inf
	if cfg.LoginRate > 0 {
		limit = rate.Limit(cfg.LoginRate)
	}
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 1
	}

	s := &Server{
		store:   store,
		tokens:  tokens,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With("component", "mock"),
	}
	s.hub = NewHub(s.authorizeSocket, logger)
	s.generator = NewGenerator(store, s.hub, cfg.OrderInterval, cfg.Seed, logger)
	s.router = s.routes()
	return s, nil
}

func (s *Server) Store() *Store         { return s.store }
func (s *Server) Hub() *Hub             { return s.hub }
func (s *Server) Tokens() *Tokens       { return s.tokens }
func (s *Server) Generator() *Generator { return s.generator }
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the order generator until ctx is done.
func (s *Server) Start(ctx context.Context) {
	s.generator.Start(ctx)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Handle(SocketPath, s.hub)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Post(client.PathLogin, s.handleLogin)
		r.Get(client.PathMe, s.handleMe)
		r.Post(client.PathRefresh, s.handleRefresh)
		r.Post(client.PathLogout, s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get(client.PathTodayOrders, s.handleTodayOrders)
			r.Post("/orders/mock", s.handlePlaceOrder)

			r.Get("/products/getAdminProduct", s.handleListProducts)
			r.Get("/products/getProduct/{id}", s.handleGetProduct)
			r.Delete("/products/deleteProduct/{id}", s.handleDeleteProduct)

			r.Get("/category/getAllCategories", s.handleListCategories)
			r.Get("/category/getCategory/{id}", s.handleGetCategory)
			r.Get("/category/getMainCategories", s.handleMainCategories)
			r.Delete("/category/deleteCategory/{id}", s.handleDeleteCategory)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// --- Session ---

func (s *Server) refreshPath() string { return APIPrefix + client.PathRefresh }

func (s *Server) setSession(w http.ResponseWriter, u *User) error {
	access, err := s.tokens.Issue(u, AccessToken)
	if err != nil {
		return err
	}
	refresh, err := s.tokens.Issue(u, RefreshToken)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookie,
		Value:    access,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL(AccessToken) / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    refresh,
		Path:     s.refreshPath(),
		MaxAge:   int(s.tokens.TTL(RefreshToken) / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) clearSession(w http.ResponseWriter) {
	for _, c := range []struct{ name, path string }{
		{AccessCookie, "/"},
		{RefreshCookie, s.refreshPath()},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// userFromCookie verifies the token in the named cookie and loads its user.
func (s *Server) userFromCookie(r *http.Request, name string, kind TokenKind) (*User, *Claims, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return nil, nil, err
	}
	claims, err := s.tokens.Verify(c.Value, kind)
	if err != nil {
		return nil, nil, err
	}
	u, ok := s.store.User(claims.UserID)
	if !ok {
		return nil, nil, errors.New("unknown user")
	}
	return u, claims, nil
}

func (s *Server) authorizeSocket(r *http.Request) (*Claims, error) {
	u, claims, err := s.userFromCookie(r, AccessCookie, AccessToken)
	if err != nil {
		return nil, err
	}
	if u.Role != roleAdmin {
		return nil, errors.New("admin access required")
	}
	return claims, nil
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _, err := s.userFromCookie(r, AccessCookie, AccessToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if u.Role != roleAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	}

	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	identifier := body.Email
	if identifier == "" {
		identifier = body.Username
	}
	if strings.TrimSpace(identifier) == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := s.store.Authenticate(identifier, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err := s.setSession(w, u); err != nil {
		s.logger.Error("issuing tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not create session")
		return
	}
	s.logger.Info("login", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "user": u.Public()})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _, err := s.userFromCookie(r, AccessCookie, AccessToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u.Public()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	u, _, err := s.userFromCookie(r, RefreshCookie, RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if err := s.setSession(w, u); err != nil {
		s.logger.Error("issuing tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not refresh session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.clearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// --- Orders ---

func (s *Server) handleTodayOrders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"orders": s.store.TodayOrders()})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]any{"order": s.generator.PlaceOrder()})
}

// --- Catalog ---

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, page := s.store.Products(ParseListQuery(r.URL.Query()))
	writeJSON(w, http.StatusOK, client.ProductPage{Products: products, Pagination: page})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Product(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProduct(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, page := s.store.Categories(ParseListQuery(r.URL.Query()))
	writeJSON(w, http.StatusOK, client.CategoryPage{Categories: cats, Pagination: page})
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Category(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": c})
}

func (s *Server) handleMainCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.store.MainCategories()})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Category deleted successfully"})
}

// ListenAndServe serves h on addr until ctx is done.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		logger.Info("mock backend listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
