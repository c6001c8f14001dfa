package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer speaks the storefront envelope. Access tokens are versioned so
// the test controls when the current one stops working.
type fakeServer struct {
	t *testing.T

	mu            sync.Mutex
	accessVersion int
	expired       bool
	refreshStatus int
	refreshCode   string
	role          string

	refreshCalls  atomic.Int32
	validateCalls atomic.Int32
	logoutCalls   atomic.Int32
	refreshDelay  time.Duration
	validateDelay time.Duration
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	f := &fakeServer{t: t, role: "customer"}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", f.login)
	mux.HandleFunc("/auth/refresh", f.refresh)
	mux.HandleFunc("/auth/validate", f.protected(func(w http.ResponseWriter, r *http.Request) {
		f.validateCalls.Add(1)
		if f.validateDelay > 0 {
			time.Sleep(f.validateDelay)
		}
		f.writeUser(w, http.StatusOK)
	}))
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls.Add(1)
		http.SetCookie(w, &http.Cookie{Name: accessCookie, Path: "/", MaxAge: -1})
		http.SetCookie(w, &http.Cookie{Name: refreshCookie, Path: "/", MaxAge: -1})
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Logged out"})
	})
	mux.HandleFunc("/api/orders", f.protected(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "success",
			"data":    map[string]interface{}{"count": 3},
		})
	}))
	mux.HandleFunc("/api/admin", f.protected(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusForbidden, "RoleForbidden")
	}))
	mux.HandleFunc("/api/profile", f.protected(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "InvalidCredentials")
	}))
	mux.HandleFunc("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "TokenMalformed")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func writeEnvelope(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeEnvelope(w, status, map[string]interface{}{"success": false, "message": code, "code": code})
}

func (f *fakeServer) writeUser(w http.ResponseWriter, status int) {
	f.mu.Lock()
	role := f.role
	f.mu.Unlock()
	writeEnvelope(w, status, map[string]interface{}{
		"success": true,
		"message": "ok",
		"user":    map[string]string{"id": "p-alice", "username": "alice", "email": "alice@example.com", "role": role},
	})
}

func (f *fakeServer) issue(w http.ResponseWriter) {
	f.mu.Lock()
	f.accessVersion++
	f.expired = false
	version := f.accessVersion
	f.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: accessCookie, Value: accessValue(version), Path: "/", MaxAge: 900})
	http.SetCookie(w, &http.Cookie{Name: refreshCookie, Value: "refresh-token", Path: "/", MaxAge: 3600})
}

func accessValue(version int) string {
	return fmt.Sprintf("access-%d", version)
}

func (f *fakeServer) expireAccess() {
	f.mu.Lock()
	f.expired = true
	f.mu.Unlock()
}

func (f *fakeServer) failRefresh(status int, code string) {
	f.mu.Lock()
	f.refreshStatus = status
	f.refreshCode = code
	f.mu.Unlock()
}

func (f *fakeServer) login(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	if body["password"] != "correct-secret" {
		writeError(w, http.StatusUnauthorized, "InvalidCredentials")
		return
	}
	f.issue(w)
	f.writeUser(w, http.StatusOK)
}

func (f *fakeServer) refresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}

	f.mu.Lock()
	status, code := f.refreshStatus, f.refreshCode
	f.mu.Unlock()
	if status != 0 {
		http.SetCookie(w, &http.Cookie{Name: refreshCookie, Path: "/", MaxAge: -1})
		writeError(w, status, code)
		return
	}
	if _, err := r.Cookie(refreshCookie); err != nil {
		writeError(w, http.StatusUnauthorized, "TokenMissing")
		return
	}
	f.issue(w)
	f.writeUser(w, http.StatusOK)
}

func (f *fakeServer) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accessCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "TokenMissing")
			return
		}
		f.mu.Lock()
		current := accessValue(f.accessVersion)
		expired := f.expired
		f.mu.Unlock()
		if cookie.Value != current || expired {
			writeError(w, http.StatusUnauthorized, "TokenExpired")
			return
		}
		next(w, r)
	}
}

func newTestCoordinator(t *testing.T, baseURL string, cache CacheStore) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Config{BaseURL: baseURL, Cache: cache})
	require.NoError(t, err)
	return c
}

func TestCoordinator_Login(t *testing.T) {
	_, srv := newFakeServer(t)
	cache := NewMemoryStore()
	c := newTestCoordinator(t, srv.URL, cache)

	var events []Event
	c.Subscribe(func(ev Event) { events = append(events, ev) })

	p, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)
	assert.Equal(t, "customer", p.Role)
	assert.Equal(t, "p-alice", c.Principal().ID)
	assert.False(t, c.LastValidated().IsZero())

	require.Len(t, events, 1)
	assert.Equal(t, EventSet, events[0].Kind)

	snapshot, err := cache.Load()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "alice", snapshot.Principal.Username)
}

func TestCoordinator_LoginRejected(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "wrong-secret")
	require.Error(t, err)
	assert.Equal(t, "InvalidCredentials", CodeOf(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Nil(t, c.Principal())
}

func TestCoordinator_ConcurrentExpiredCallsRefreshOnce(t *testing.T) {
	f, srv := newFakeServer(t)
	f.refreshDelay = 50 * time.Millisecond
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)
	f.expireAccess()

	const callers = 8
	var (
		start sync.WaitGroup
		done  sync.WaitGroup
		errs  = make([]error, callers)
		outs  = make([]map[string]int, callers)
	)
	start.Add(1)
	for i := 0; i < callers; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			start.Wait()
			errs[i] = c.Do(context.Background(), http.MethodGet, "/api/orders", nil, &outs[i])
		}(i)
	}
	start.Done()
	done.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 3, outs[i]["count"])
	}
	assert.Equal(t, int32(1), f.refreshCalls.Load())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestCoordinator_FailedRenewalClearsOnce(t *testing.T) {
	f, srv := newFakeServer(t)
	f.refreshDelay = 20 * time.Millisecond
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)

	var cleared atomic.Int32
	c.Subscribe(func(ev Event) {
		if ev.Kind == EventCleared {
			cleared.Add(1)
		}
	})

	f.expireAccess()
	f.failRefresh(http.StatusForbidden, "RefreshMismatch")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Do(context.Background(), http.MethodGet, "/api/orders", nil, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSessionCleared)
	}
	assert.Equal(t, int32(1), f.refreshCalls.Load())
	assert.Equal(t, int32(1), cleared.Load())
	assert.Equal(t, PhaseCleared, c.Phase())
	assert.Nil(t, c.Principal())
	assert.False(t, c.hasCookie(accessCookie))
	assert.False(t, c.hasCookie(refreshCookie))
}

func TestCoordinator_AuthFailureDropsCredentials(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)
	require.True(t, c.hasCookie(accessCookie))

	err = c.Do(context.Background(), http.MethodGet, "/api/broken", nil, nil)
	assert.Equal(t, "TokenMalformed", CodeOf(err))
	assert.Equal(t, PhaseCleared, c.Phase())
	assert.Nil(t, c.Principal())
	assert.False(t, c.hasCookie(accessCookie))
	assert.False(t, c.hasCookie(refreshCookie))

	// Nothing left in the jar authenticates the next call.
	err = c.Do(context.Background(), http.MethodGet, "/api/orders", nil, nil)
	assert.Equal(t, CodeTokenMissing, CodeOf(err))
	assert.Equal(t, int32(0), f.refreshCalls.Load())
}

func TestCoordinator_WrongCurrentPasswordKeepsSession(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)

	var cleared bool
	c.Subscribe(func(ev Event) { cleared = cleared || ev.Kind == EventCleared })

	err = c.Do(context.Background(), http.MethodPut, "/api/profile", map[string]string{"current_password": "nope"}, nil)
	assert.Equal(t, "InvalidCredentials", CodeOf(err))
	assert.False(t, cleared)
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, "alice", c.Principal().Username)
	assert.True(t, c.hasCookie(accessCookie))

	var out map[string]int
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/api/orders", nil, &out))
	assert.Equal(t, 3, out["count"])
}

func TestCoordinator_DoRetriesAtMostOnce(t *testing.T) {
	// Every access token is reported expired, even fresh ones.
	var calls, refreshes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshes.Add(1)
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"user":    map[string]string{"id": "p-alice", "username": "alice", "role": "customer"},
			})
			return
		}
		calls.Add(1)
		writeError(w, http.StatusUnauthorized, "TokenExpired")
	}))
	t.Cleanup(srv.Close)
	c := newTestCoordinator(t, srv.URL, nil)

	err := c.Do(context.Background(), http.MethodGet, "/api/orders", nil, nil)
	assert.Equal(t, CodeTokenExpired, CodeOf(err))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Nil(t, c.Principal())
	assert.Equal(t, PhaseCleared, c.Phase())
}

func TestCoordinator_RoleForbiddenKeepsSession(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)

	err = c.Do(context.Background(), http.MethodGet, "/api/admin", nil, nil)
	assert.Equal(t, CodeRoleForbidden, CodeOf(err))
	assert.NotNil(t, c.Principal())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestCoordinator_ValidateSessionCooldown(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)

	p, err := c.ValidateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, int32(1), f.validateCalls.Load())

	now = now.Add(time.Second)
	_, err = c.ValidateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.validateCalls.Load(), "inside the cooldown")

	now = now.Add(2 * time.Second)
	_, err = c.ValidateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.validateCalls.Load())
}

func TestCoordinator_ValidateSessionSurvivesCancelledCaller(t *testing.T) {
	f, srv := newFakeServer(t)
	f.validateDelay = 200 * time.Millisecond
	c := newTestCoordinator(t, srv.URL, nil)

	var clock atomic.Int64
	clock.Store(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	c.now = func() time.Time { return time.Unix(0, clock.Load()) }

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.ValidateSession(first)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.validateCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	// Past the cooldown, so this caller joins the validation still in flight.
	clock.Add(int64(3 * time.Second))
	p, err := c.ValidateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, int32(1), f.validateCalls.Load())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestCoordinator_ValidateSessionRenewsExpiredAccess(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)

	f.expireAccess()
	f.mu.Lock()
	f.role = "moderator"
	f.mu.Unlock()

	p, err := c.ValidateSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "moderator", p.Role)
	assert.Equal(t, int32(1), f.refreshCalls.Load())
	assert.Equal(t, "moderator", c.Principal().Role)
}

func TestCoordinator_ValidateSessionWithoutCookies(t *testing.T) {
	f, srv := newFakeServer(t)
	cache := NewMemoryStore()
	require.NoError(t, cache.Save(Snapshot{
		Principal:     &Principal{ID: "p-alice", Username: "alice", Role: "customer"},
		LastValidated: time.Now().Add(-time.Hour),
	}))

	c := newTestCoordinator(t, srv.URL, cache)
	require.NotNil(t, c.Principal(), "restored from the cache")

	_, err := c.ValidateSession(context.Background())
	assert.Equal(t, CodeTokenMissing, CodeOf(err))
	assert.Nil(t, c.Principal())
	assert.Equal(t, int32(0), f.refreshCalls.Load())

	snapshot, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestCoordinator_Logout(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)

	var kinds []EventKind
	c.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	c.Logout(context.Background())
	assert.Equal(t, int32(1), f.logoutCalls.Load())
	assert.Equal(t, []EventKind{EventCleared}, kinds)
	assert.Nil(t, c.Principal())
	assert.False(t, c.hasCookie(accessCookie))
	assert.False(t, c.hasCookie(refreshCookie))

	_, err = c.ValidateSession(context.Background())
	assert.Equal(t, CodeTokenMissing, CodeOf(err))
}

func TestCoordinator_LogoutWhenServerIsDown(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)
	srv.Close()

	cleared := false
	c.Subscribe(func(ev Event) { cleared = ev.Kind == EventCleared })

	c.Logout(context.Background())
	assert.True(t, cleared)
	assert.Nil(t, c.Principal())
	assert.False(t, c.hasCookie(refreshCookie))
	assert.Equal(t, PhaseCleared, c.Phase())
}

func TestCoordinator_ListenerPanicIsContained(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	c.Subscribe(func(Event) { panic("boom") })
	reached := false
	c.Subscribe(func(Event) { reached = true })

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)
	assert.True(t, reached)
}

func TestCoordinator_Unsubscribe(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	count := 0
	unsubscribe := c.Subscribe(func(Event) { count++ })
	unsubscribe()
	unsubscribe()

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCoordinator_EnsureFreshAccess(t *testing.T) {
	f, srv := newFakeServer(t)
	c := newTestCoordinator(t, srv.URL, nil)

	_, err := c.Login(context.Background(), "alice", "correct-secret")
	require.NoError(t, err)

	require.NoError(t, c.EnsureFreshAccess(context.Background()))
	assert.Equal(t, int32(1), f.refreshCalls.Load())

	c.Logout(context.Background())
	assert.ErrorIs(t, c.EnsureFreshAccess(context.Background()), ErrSessionCleared)
	assert.Equal(t, int32(1), f.refreshCalls.Load())
}

func TestNewCoordinator_RejectsRelativeURL(t *testing.T) {
	_, err := NewCoordinator(Config{BaseURL: "/api"})
	assert.Error(t, err)
}
