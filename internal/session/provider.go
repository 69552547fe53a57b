// Package session owns the console's authentication state. A single Provider
// is the only writer; views read snapshots through Current or Subscribe.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
)

// DefaultLoginFailure is reported when the server gives no message.
const DefaultLoginFailure = "Login failed"

const logoutTimeout = 5 * time.Second

// Snapshot reasons.
const (
	ReasonNotSignedIn   = "not signed in"
	ReasonIdentityCheck = "identity check failed"
	ReasonLoggedOut     = "logged out"
	ReasonExpired       = "session expired"
)

// State is the authentication state.
type State int

const (
	StateUnknown State = iota
	StateChecking
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "invalid"
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	State   State
	User    *client.User
	Loading bool

	// SignIn asks the UI to navigate to the sign-in screen. It is set by
	// Logout and Expire, never by a failed boot check or a failed login.
	SignIn bool
	Reason string
}

// Authenticated reports whether a user is signed in.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.User != nil
}

// Authenticator is the subset of the API the provider calls.
type Authenticator interface {
	Me(ctx context.Context) (*client.User, error)
	Login(ctx context.Context, creds client.Credentials) error
	Logout(ctx context.Context) error
}

// Result is the outcome of Login. Failures are values, not errors.
type Result struct {
	Success bool
	Message string
}

// Provider holds the session and is its only writer.
type Provider struct {
	auth    Authenticator
	storage Storage
	logger  *slog.Logger

	mu      sync.Mutex
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int
	onClear []func()
}

// NewProvider creates a provider in StateUnknown.
func NewProvider(auth Authenticator, storage Storage, logger *slog.Logger) *Provider {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		auth:    auth,
		storage: storage,
		logger:  logger.With("component", "session"),
		subs:    make(map[int]chan Snapshot),
	}
}

// OnClear registers fn to run whenever local session state is wiped, e.g. to
// drop in-memory cookies.
func (p *Provider) OnClear(fn func()) {
	p.mu.Lock()
	p.onClear = append(p.onClear, fn)
	p.mu.Unlock()
}

// Current returns the latest snapshot.
func (p *Provider) Current() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Subscribe returns a channel that always holds the most recent snapshot,
// starting with the current one. Intermediate snapshots may be skipped. The
// returned func unsubscribes and closes the channel.
func (p *Provider) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	ch <- p.snap
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			close(ch)
			p.mu.Unlock()
		})
	}
}

// publish replaces the snapshot and fans it out, latest wins.
func (p *Provider) publish(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = s
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Start runs the boot identity check. Any failure, including a network
// error, leaves the session Anonymous without asking for navigation.
func (p *Provider) Start(ctx context.Context) Snapshot {
	p.publish(Snapshot{State: StateChecking, Loading: true})

	user, err := p.auth.Me(ctx)
	if err != nil {
		p.logger.Info("no active session", "error", err)
		p.forgetUser()
		s := Snapshot{State: StateAnonymous, Reason: ReasonNotSignedIn}
		p.publish(s)
		return s
	}

	p.remember(user)
	p.logger.Info("session restored", "user", user.DisplayName(), "role", user.Role)
	s := Snapshot{State: StateAuthenticated, User: user}
	p.publish(s)
	return s
}

// Login submits credentials and, on success, re-fetches the identity rather
// than trusting the login response.
func (p *Provider) Login(ctx context.Context, creds client.Credentials) Result {
	if err := p.auth.Login(ctx, creds); err != nil {
		p.logger.Info("login rejected", "error", err)
		return Result{Message: failureMessage(err)}
	}

	user, err := p.auth.Me(ctx)
	if err != nil {
		p.logger.Warn("identity check after login failed", "error", err)
		p.publish(Snapshot{State: StateAnonymous, Reason: ReasonIdentityCheck})
		return Result{Message: failureMessage(err)}
	}

	p.remember(user)
	p.logger.Info("logged in", "user", user.DisplayName(), "role", user.Role)
	p.publish(Snapshot{State: StateAuthenticated, User: user})
	return Result{Success: true}
}

// Logout calls the logout endpoint best-effort, then always clears local
// state and asks for sign-in navigation.
func (p *Provider) Logout(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, logoutTimeout)
	defer cancel()
	if err := p.auth.Logout(ctx); err != nil {
		p.logger.Warn("logout call failed, clearing local session anyway", "error", err)
	}
	p.clear()
	p.publish(Snapshot{State: StateAnonymous, SignIn: true, Reason: ReasonLoggedOut})
}

// Expire handles an unrecoverable renewal failure reported by the HTTP
// client: identity and client-side storage are cleared and the UI is asked
// to navigate to sign-in.
func (p *Provider) Expire(err error) {
	p.logger.Warn("session expired", "error", err)
	p.clear()
	p.publish(Snapshot{State: StateAnonymous, SignIn: true, Reason: ReasonExpired})
}

// SaveLastPath records the last valid navigation path.
func (p *Provider) SaveLastPath(path string) {
	if err := p.storage.Update(func(st *Stored) { st.LastPath = path }); err != nil {
		p.logger.Warn("saving last path", "error", err)
	}
}

// LastPath returns the stored navigation path, if any.
func (p *Provider) LastPath() string {
	st, err := p.storage.Load()
	if err != nil {
		return ""
	}
	return st.LastPath
}

// CachedUser returns the identity cached by the last successful check.
func (p *Provider) CachedUser() *client.User {
	st, err := p.storage.Load()
	if err != nil {
		return nil
	}
	return st.User
}

func (p *Provider) remember(u *client.User) {
	cp := *u
	if err := p.storage.Update(func(st *Stored) { st.User = &cp }); err != nil {
		p.logger.Warn("caching identity", "error", err)
	}
}

func (p *Provider) forgetUser() {
	if err := p.storage.Update(func(st *Stored) { st.User = nil }); err != nil {
		p.logger.Warn("clearing cached identity", "error", err)
	}
}

func (p *Provider) clear() {
	if err := p.storage.Clear(); err != nil {
		p.logger.Warn("clearing client storage", "error", err)
	}
	p.mu.Lock()
	hooks := append([]func(){}, p.onClear...)
	p.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func failureMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return DefaultLoginFailure
}
