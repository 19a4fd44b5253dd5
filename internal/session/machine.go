package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/newsdesk/internal/apperror"
	"github.com/sakif/newsdesk/internal/model"
)

// Authenticator is the part of the auth service the machine drives.
type Authenticator interface {
	Login(ctx context.Context, creds model.LoginCredentials) (*model.AuthResponse, error)
	Signup(ctx context.Context, data model.SignupData) (*model.AuthResponse, error)
	LoadSession(ctx context.Context, token string) *model.AuthSession
	Logout(ctx context.Context, token string) error
	CleanupExpiredSessions(ctx context.Context) int
}

type Config struct {
	// MonitorInterval is how often an authenticated session is checked.
	MonitorInterval time.Duration
	// ExpiryHorizon ends the session this long before it actually lapses.
	ExpiryHorizon time.Duration
	// CleanupInterval is how often expired sessions are swept from storage.
	CleanupInterval time.Duration
}

var DefaultConfig = Config{
	MonitorInterval: time.Minute,
	ExpiryHorizon:   5 * time.Minute,
	CleanupInterval: 30 * time.Minute,
}

// Machine owns the State of the local app session. It is safe for
// concurrent use. Requests are not deduplicated: two logins in flight both
// run, and the later one to finish wins.
type Machine struct {
	auth   Authenticator
	tokens TokenStore
	logger *slog.Logger
	cfg    Config
	now    func() time.Time

	ctx    context.Context // cancelled by Stop
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	mu            sync.Mutex
	state         State
	subs          map[int]chan State
	nextSub       int
	monitorCancel context.CancelFunc
	monitorGen    uint64
}

func New(auth Authenticator, tokens TokenStore, logger *slog.Logger, cfg Config) *Machine {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = DefaultConfig.MonitorInterval
	}
	if cfg.ExpiryHorizon < 0 {
		cfg.ExpiryHorizon = 0
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultConfig.CleanupInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		auth:   auth,
		tokens: tokens,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		state:  InitialState(),
		subs:   make(map[int]chan State),
	}
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns the signed-in user, or nil.
func (m *Machine) CurrentUser() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Status != StatusAuthenticated || m.state.CurrentUser == nil {
		return nil
	}
	u := *m.state.CurrentUser
	return &u
}

// Subscribe delivers every new state. A slow reader only sees the latest
// one. Call the returned func to unsubscribe.
func (m *Machine) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan State, 1)
	id := m.nextSub
	m.nextSub++
	if m.subs == nil {
		close(ch)
		return ch, func() {}
	}
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

// =========================================================================
// OPERATIONS
// =========================================================================

// InitializeSession restores the remembered session, if any. It always
// leaves the machine initialized.
func (m *Machine) InitializeSession(ctx context.Context) State {
	m.dispatch(InitializeRequest{})

	tok, err := m.tokens.Load()
	if err != nil {
		m.logger.Warn("discarding unreadable session token", slog.String("error", err.Error()))
		m.clearToken()
		tok = nil
	}
	if tok == nil {
		return m.dispatch(InitializeSuccess{})
	}

	sess := m.auth.LoadSession(ctx, tok.Token)
	if sess == nil {
		if err := ctx.Err(); err != nil {
			return m.dispatch(InitializeFailure{Err: apperror.Network(err).Payload()})
		}
		m.clearToken()
		return m.dispatch(InitializeSuccess{})
	}
	return m.dispatch(InitializeSuccess{User: &sess.User, ExpiresAt: sess.ExpiresAt})
}

func (m *Machine) Login(ctx context.Context, creds model.LoginCredentials) (State, error) {
	m.dispatch(LoginRequest{})

	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		return m.dispatch(LoginFailure{Err: apperror.PayloadOf(err)}), err
	}
	return m.signIn(*resp, LoginSuccess{Response: *resp}), nil
}

func (m *Machine) Signup(ctx context.Context, data model.SignupData) (State, error) {
	m.dispatch(SignupRequest{})

	resp, err := m.auth.Signup(ctx, data)
	if err != nil {
		return m.dispatch(SignupFailure{Err: apperror.PayloadOf(err)}), err
	}
	return m.signIn(*resp, SignupSuccess{Response: *resp}), nil
}

// Logout ends the session. The local token is cleared and the machine ends
// unauthenticated even if the server-side delete fails.
func (m *Machine) Logout(ctx context.Context) State {
	m.dispatch(LogoutRequest{})

	var err error
	tok, loadErr := m.tokens.Load()
	if loadErr != nil {
		m.logger.Warn("reading session token for logout", slog.String("error", loadErr.Error()))
	}
	if tok != nil {
		err = m.auth.Logout(ctx, tok.Token)
	}
	m.clearToken()

	if err != nil {
		return m.dispatch(LogoutFailure{Err: apperror.PayloadOf(err)})
	}
	return m.dispatch(LogoutSuccess{})
}

// ClearError drops the error shown to the user.
func (m *Machine) ClearError() State {
	return m.dispatch(ClearError{})
}

// =========================================================================
// BACKGROUND TASKS
// =========================================================================

// Start launches the expired-session cleanup. It runs until Stop or until
// ctx is done. Calling Start again does nothing.
func (m *Machine) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.ctx.Err() != nil {
			return
		}
		m.logger.Info("starting session cleanup", slog.Duration("interval", m.cfg.CleanupInterval))
		m.wg.Add(1)
		go m.cleanup(ctx)
	})
}

// Stop cancels every background task, waits for them, and closes all
// subscriptions.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() {
		m.logger.Info("stopping session machine")
		// Under mu so that no monitor is added once Wait has begun.
		m.mu.Lock()
		m.cancel()
		m.mu.Unlock()
		m.wg.Wait()

		m.mu.Lock()
		defer m.mu.Unlock()
		for id, ch := range m.subs {
			close(ch)
			delete(m.subs, id)
		}
		m.subs = nil
	})
}

func (m *Machine) cleanup(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.auth.CleanupExpiredSessions(m.ctx); n > 0 {
				m.logger.Info("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}

// monitor watches one authenticated session and ends it when the expiry
// comes within the horizon. It fires at most once.
func (m *Machine) monitor(ctx context.Context, gen uint64) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.checkExpiry(gen) {
				return
			}
		}
	}
}

// checkExpiry reports whether the monitor for gen is done.
func (m *Machine) checkExpiry(gen uint64) bool {
	m.mu.Lock()
	if gen != m.monitorGen || m.state.Status != StatusAuthenticated {
		m.mu.Unlock()
		return true
	}
	exp := m.state.SessionExpiresAt
	if exp == nil || exp.Add(-m.cfg.ExpiryHorizon).After(m.now()) {
		m.mu.Unlock()
		return false
	}
	m.apply(SessionExpired{Err: apperror.SessionExpired().Payload()})
	// Cleared under mu so a sign-in that lands next cannot lose its token.
	m.clearToken()
	m.mu.Unlock()

	m.logger.Info("session expired", slog.Time("expiresAt", *exp))
	return true
}

// =========================================================================
// INTERNALS
// =========================================================================

func (m *Machine) dispatch(a Action) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(a)
}

// signIn stores the new token and applies the success action in one
// critical section, ordered against expiry handling.
func (m *Machine) signIn(resp model.AuthResponse, a Action) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveToken(resp)
	return m.apply(a)
}

// apply reduces a into the state, restarts the monitor on entering
// authenticated and notifies subscribers. m.mu must be held.
func (m *Machine) apply(a Action) State {
	prev := m.state.Status
	m.state = Reduce(m.state, a)

	if m.state.Status == StatusAuthenticated && prev != StatusAuthenticated {
		m.restartMonitor()
	} else if m.state.Status != StatusAuthenticated && m.monitorCancel != nil {
		m.monitorCancel()
		m.monitorCancel = nil
	}

	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- m.state
	}
	return m.state
}

func (m *Machine) restartMonitor() {
	if m.monitorCancel != nil {
		m.monitorCancel()
	}
	if m.ctx.Err() != nil {
		m.monitorCancel = nil
		return
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.monitorCancel = cancel
	m.monitorGen++
	m.wg.Add(1)
	go m.monitor(ctx, m.monitorGen)
}

func (m *Machine) saveToken(resp model.AuthResponse) {
	err := m.tokens.Save(StoredToken{
		Token:     resp.SessionToken,
		UserID:    resp.User.ID,
		Email:     resp.User.Email,
		Role:      resp.User.Role,
		CreatedAt: m.now(),
		ExpiresAt: resp.ExpiresAt,
	})
	if err != nil {
		m.logger.Warn("saving session token failed", slog.String("error", err.Error()))
	}
}

func (m *Machine) clearToken() {
	if err := m.tokens.Clear(); err != nil {
		m.logger.Warn("clearing session token failed", slog.String("error", err.Error()))
	}
}
