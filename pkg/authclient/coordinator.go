package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	accessCookie  = "access"
	refreshCookie = "refresh"

	defaultValidateCooldown = 2 * time.Second
	defaultLogoutTimeout    = 5 * time.Second
	defaultRequestTimeout   = 15 * time.Second

	renewKey    = "refresh"
	validateKey = "validate"
)

type Config struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string
	// HTTPClient is copied; a cookie jar is attached when it has none.
	HTTPClient *http.Client
	// ValidateCooldown is the minimum gap between proactive validations.
	ValidateCooldown time.Duration
	// LogoutTimeout bounds the server-side revoke call.
	LogoutTimeout time.Duration
	// Cache persists the principal summary across restarts. Optional.
	Cache  CacheStore
	Logger logrus.FieldLogger
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	baseURL       *url.URL
	client        *http.Client
	cooldown      time.Duration
	logoutTimeout time.Duration
	cache         CacheStore
	log           logrus.FieldLogger
	now           func() time.Time

	state       AuthSessionState
	renewals    singleflight.Group
	validations singleflight.Group

	listenersMu  sync.Mutex
	listeners    map[uint64]Listener
	nextListener uint64
}

func NewCoordinator(cfg Config) (*Coordinator, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	client := &http.Client{Timeout: defaultRequestTimeout}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		client = &copied
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		client.Jar = jar
	}

	log := cfg.Logger
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}

	c := &Coordinator{
		baseURL:       base,
		client:        client,
		cooldown:      cfg.ValidateCooldown,
		logoutTimeout: cfg.LogoutTimeout,
		cache:         cfg.Cache,
		log:           log.WithField("component", "authclient"),
		now:           time.Now,
		listeners:     make(map[uint64]Listener),
	}
	if c.cooldown <= 0 {
		c.cooldown = defaultValidateCooldown
	}
	if c.logoutTimeout <= 0 {
		c.logoutTimeout = defaultLogoutTimeout
	}

	if c.cache != nil {
		snapshot, err := c.cache.Load()
		if err != nil {
			c.log.WithError(err).Warn("ignoring unreadable session cache")
		} else if snapshot != nil {
			c.state.principal = copyPrincipal(snapshot.Principal)
			c.state.lastValidated = snapshot.LastValidated
		}
	}

	return c, nil
}

// Principal returns the cached principal without touching the network.
func (c *Coordinator) Principal() *Principal {
	p, _ := c.state.snapshot()
	return p
}

// LastValidated is when the server last confirmed the cached principal.
func (c *Coordinator) LastValidated() time.Time {
	_, at := c.state.snapshot()
	return at
}

func (c *Coordinator) Phase() Phase {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.phase
}

// Subscribe registers l for every change to the cached principal. The
// returned func removes it.
func (c *Coordinator) Subscribe(l Listener) func() {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = l
	c.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			delete(c.listeners, id)
			c.listenersMu.Unlock()
		})
	}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Login starts a session. identifier is a username or an email address.
func (c *Coordinator) Login(ctx context.Context, identifier, password string) (*Principal, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	return c.startSession(ctx, "/auth/login", body)
}

func (c *Coordinator) Register(ctx context.Context, in RegisterInput) (*Principal, error) {
	return c.startSession(ctx, "/auth/register", in)
}

func (c *Coordinator) startSession(ctx context.Context, path string, body interface{}) (*Principal, error) {
	env, err := c.send(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	p, err := env.principal()
	if err != nil {
		return nil, err
	}
	c.setPrincipal(p, true)
	return copyPrincipal(p), nil
}

// Logout asks the server to revoke the session, then clears local state no
// matter how that call went.
func (c *Coordinator) Logout(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, c.logoutTimeout)
	defer cancel()

	if _, err := c.send(callCtx, http.MethodPost, "/auth/logout", nil); err != nil {
		c.log.WithError(err).Warn("server logout failed, clearing local session anyway")
	}

	c.state.mu.Lock()
	c.state.lastCheck = time.Time{}
	c.state.mu.Unlock()
	c.clear("logout")
}

// ValidateSession confirms the session with the server. Calls closer together
// than the cooldown get the cached principal instead.
func (c *Coordinator) ValidateSession(ctx context.Context) (*Principal, error) {
	c.state.mu.Lock()
	now := c.now()
	if !c.state.lastCheck.IsZero() && now.Sub(c.state.lastCheck) < c.cooldown {
		p := copyPrincipal(c.state.principal)
		c.state.mu.Unlock()
		if p == nil {
			return nil, ErrNotAuthenticated
		}
		return p, nil
	}
	c.state.lastCheck = now
	c.state.mu.Unlock()

	// Shared by every waiter, so one caller giving up must not cancel it.
	shared := context.WithoutCancel(ctx)
	ch := c.validations.DoChan(validateKey, func() (interface{}, error) {
		return c.validate(shared)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyPrincipal(res.Val.(*Principal)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) validate(ctx context.Context) (*Principal, error) {
	gen := c.state.currentGeneration()
	env, err := c.send(ctx, http.MethodGet, "/auth/validate", nil)
	if err != nil && c.recoverable(err) {
		if rerr := c.renew(ctx, gen); rerr != nil {
			return nil, rerr
		}
		env, err = c.send(ctx, http.MethodGet, "/auth/validate", nil)
	}
	if err != nil {
		c.clearOnAuthFailure(err)
		return nil, err
	}

	p, err := env.principal()
	if err != nil {
		return nil, err
	}
	c.setPrincipal(p, false)
	return p, nil
}

// EnsureFreshAccess renews the access token unless a renewal already
// completed since the caller last looked.
func (c *Coordinator) EnsureFreshAccess(ctx context.Context) error {
	return c.renew(ctx, c.state.currentGeneration())
}

// Do performs a protected call. path may carry a query string. in is sent as
// JSON when non-nil; the envelope's data (or user) is decoded into out when
// out is non-nil. A call that fails on an expired token is retried once after
// a renewal.
func (c *Coordinator) Do(ctx context.Context, method, path string, in, out interface{}) error {
	gen := c.state.currentGeneration()
	env, err := c.send(ctx, method, path, in)
	if err != nil && c.recoverable(err) {
		if rerr := c.renew(ctx, gen); rerr != nil {
			return rerr
		}
		env, err = c.send(ctx, method, path, in)
	}
	if err != nil {
		c.clearOnAuthFailure(err)
		return err
	}
	return env.decode(out)
}

// renew runs at most one refresh call at a time. Callers whose failure
// happened under an older generation return immediately: the credentials they
// need are already in the jar.
func (c *Coordinator) renew(ctx context.Context, observed uint64) error {
	c.state.mu.Lock()
	gen, phase := c.state.generation, c.state.phase
	c.state.mu.Unlock()
	if gen != observed {
		return nil
	}
	if phase == PhaseCleared {
		return ErrSessionCleared
	}

	ch := c.renewals.DoChan(renewKey, func() (interface{}, error) {
		c.state.mu.Lock()
		if c.state.generation != observed {
			c.state.mu.Unlock()
			return nil, nil
		}
		if c.state.phase == PhaseCleared {
			c.state.mu.Unlock()
			return nil, ErrSessionCleared
		}
		c.state.phase = PhaseRenewing
		c.state.mu.Unlock()

		// Shared by every waiter, so one caller giving up must not cancel it.
		env, err := c.send(context.WithoutCancel(ctx), http.MethodPost, "/auth/refresh", nil)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.IsAuthFailure() {
				c.log.WithField("code", apiErr.Code).Info("session renewal rejected")
				c.clear("renewal rejected")
				return nil, ErrSessionCleared
			}
			c.setPhase(PhaseIdle)
			return nil, fmt.Errorf("renew session: %w", err)
		}

		p, err := env.principal()
		if err != nil {
			c.setPhase(PhaseIdle)
			return nil, err
		}
		c.setPrincipal(p, true)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recoverable reports whether a renewal could fix err. The jar drops the
// access cookie once its Max-Age passes, so a missing access token with a
// refresh cookie still present counts as expired.
func (c *Coordinator) recoverable(err error) bool {
	switch CodeOf(err) {
	case CodeTokenExpired:
		return true
	case CodeTokenMissing:
		return c.hasCookie(refreshCookie)
	}
	return false
}

func (c *Coordinator) clearOnAuthFailure(err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsAuthFailure() {
		c.clear(apiErr.Code)
	}
}

func (c *Coordinator) setPhase(p Phase) {
	c.state.mu.Lock()
	c.state.phase = p
	c.state.mu.Unlock()
}

// setPrincipal caches p. rotated marks new credentials in the jar.
func (c *Coordinator) setPrincipal(p *Principal, rotated bool) {
	now := c.now()
	c.state.mu.Lock()
	c.state.principal = copyPrincipal(p)
	c.state.lastValidated = now
	c.state.phase = PhaseIdle
	if rotated {
		c.state.generation++
	}
	c.state.mu.Unlock()

	if c.cache != nil {
		if err := c.cache.Save(Snapshot{Principal: copyPrincipal(p), LastValidated: now}); err != nil {
			c.log.WithError(err).Warn("failed to persist session cache")
		}
	}
	c.notify(Event{Kind: EventSet, Principal: copyPrincipal(p)})
}

// clear drops the cached principal and the jar credentials together, so a
// cleared session cannot keep authenticating calls.
func (c *Coordinator) clear(reason string) {
	c.expireCookies()

	c.state.mu.Lock()
	already := c.state.phase == PhaseCleared && c.state.principal == nil
	c.state.principal = nil
	c.state.lastValidated = time.Time{}
	c.state.phase = PhaseCleared
	c.state.mu.Unlock()

	if c.cache != nil {
		if err := c.cache.Clear(); err != nil {
			c.log.WithError(err).Warn("failed to clear session cache")
		}
	}
	if already {
		return
	}
	c.log.WithField("reason", reason).Info("session cleared")
	c.notify(Event{Kind: EventCleared})
}

// notify runs listeners synchronously, outside every lock. A panicking
// listener is logged and skipped.
func (c *Coordinator) notify(ev Event) {
	c.listenersMu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenersMu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.WithField("panic", r).Error("session listener panicked")
				}
			}()
			l(ev)
		}()
	}
}

func (c *Coordinator) hasCookie(name string) bool {
	for _, ck := range c.client.Jar.Cookies(c.baseURL) {
		if ck.Name == name && ck.Value != "" {
			return true
		}
	}
	return false
}

func (c *Coordinator) expireCookies() {
	expired := make([]*http.Cookie, 0, 2)
	for _, name := range []string{accessCookie, refreshCookie} {
		expired = append(expired, &http.Cookie{Name: name, Path: "/", MaxAge: -1})
	}
	c.client.Jar.SetCookies(c.baseURL, expired)
}

func (c *Coordinator) endpoint(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// envelope mirrors the server's response body.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	User    json.RawMessage `json:"user"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) principal() (*Principal, error) {
	if len(e.User) == 0 || string(e.User) == "null" {
		return nil, fmt.Errorf("response carried no user")
	}
	var p Principal
	if err := json.Unmarshal(e.User, &p); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &p, nil
}

func (e *envelope) decode(out interface{}) error {
	if out == nil {
		return nil
	}
	raw := e.Data
	if len(raw) == 0 || string(raw) == "null" {
		raw = e.User
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Coordinator) send(ctx context.Context, method, path string, in interface{}) (*envelope, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
		if decodeErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return &env, nil
}
