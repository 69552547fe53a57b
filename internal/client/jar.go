package client

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"
)

// StoredCookie is a cookie as persisted between runs, together with the URL
// it was set for.
type StoredCookie struct {
	URL      string    `yaml:"url"`
	Name     string    `yaml:"name"`
	Value    string    `yaml:"value"`
	Path     string    `yaml:"path,omitempty"`
	Expires  time.Time `yaml:"expires,omitempty"`
	Secure   bool      `yaml:"secure,omitempty"`
	HttpOnly bool      `yaml:"http_only,omitempty"`
}

// Jar is an http.CookieJar that remembers every cookie the backend sets so
// the session survives a restart. It is shared by REST and realtime calls.
type Jar struct {
	mu       sync.Mutex
	inner    *cookiejar.Jar
	stored   map[string]StoredCookie // by name + path
	onChange func([]StoredCookie)
}

// NewJar creates an empty jar.
func NewJar() *Jar {
	inner, _ := cookiejar.New(nil)
	return &Jar{inner: inner, stored: make(map[string]StoredCookie)}
}

// OnChange registers fn to receive the full cookie set after every change.
func (j *Jar) OnChange(fn func([]StoredCookie)) {
	j.mu.Lock()
	j.onChange = fn
	j.mu.Unlock()
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	j.inner.SetCookies(u, cookies)
	now := time.Now()
	for _, c := range cookies {
		key := c.Name + "|" + c.Path
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) || c.Value == "" {
			delete(j.stored, key)
			continue
		}
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		j.stored[key] = StoredCookie{
			URL:      u.Scheme + "://" + u.Host,
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
	}
	snapshot, fn := j.snapshotLocked(), j.onChange
	j.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// Load seeds the jar with persisted cookies, skipping expired ones. It does
// not fire the change hook.
func (j *Jar) Load(cookies []StoredCookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	for _, sc := range cookies {
		if !sc.Expires.IsZero() && sc.Expires.Before(now) {
			continue
		}
		u, err := url.Parse(sc.URL)
		if err != nil {
			continue
		}
		j.inner.SetCookies(u, []*http.Cookie{{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.Path,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
		}})
		j.stored[sc.Name+"|"+sc.Path] = sc
	}
}

// Clear drops every cookie and notifies the change hook.
func (j *Jar) Clear() {
	j.mu.Lock()
	j.inner, _ = cookiejar.New(nil)
	j.stored = make(map[string]StoredCookie)
	fn := j.onChange
	j.mu.Unlock()

	if fn != nil {
		fn(nil)
	}
}

// Stored returns the cookies that would be persisted.
func (j *Jar) Stored() []StoredCookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshotLocked()
}

func (j *Jar) snapshotLocked() []StoredCookie {
	out := make([]StoredCookie, 0, len(j.stored))
	for _, c := range j.stored {
		out = append(out, c)
	}
	return out
}
