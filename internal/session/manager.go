package session

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/estate-link/estate_link/internal/apiclient"
	"github.com/estate-link/estate_link/internal/store"
)

// API is the subset of the brokerage REST API the session needs.
// *apiclient.Client implements it.
type API interface {
	SendOTP(ctx context.Context, email string) (apiclient.Ack, error)
	VerifyOTP(ctx context.Context, email, otp string) (apiclient.AuthResponse, error)
	Register(ctx context.Context, req apiclient.RegisterRequest) (apiclient.Ack, error)
	RegisterStep1(ctx context.Context, req apiclient.RegisterRequest) (apiclient.Ack, error)
	VerifyRegistrationOTP(ctx context.Context, email, otp string) (apiclient.RegistrationVerification, error)
	CompleteRegistration(ctx context.Context, email, password string) (apiclient.AuthResponse, error)
	LoginPassword(ctx context.Context, email, password string) (apiclient.AuthResponse, error)
	Profile(ctx context.Context, token string) (apiclient.User, error)
	UpdateProfile(ctx context.Context, token string, patch apiclient.ProfilePatch) (apiclient.User, error)
	Logout(ctx context.Context, token string) error
	ResendOTP(ctx context.Context, email string, purpose apiclient.Purpose) (apiclient.Ack, error)
	ForgotPassword(ctx context.Context, email string) (apiclient.Ack, error)
	ResetPassword(ctx context.Context, token, newPassword string) (apiclient.Ack, error)
}

// Options wires a Manager.
type Options struct {
	API     API
	Tokens  store.TokenStore
	Pending store.PendingStore
	Logger  *slog.Logger
	Now     func() time.Time
}

// Manager owns the authenticated session: the bearer token, the cached
// profile and the registration draft. It is safe for concurrent use.
type Manager struct {
	api     API
	tokens  store.TokenStore
	pending store.PendingStore
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     state
	inFlight  map[Op]bool
	loading   int
	fetchSeq  uint64
	listeners map[int]func(Snapshot)
	nextID    int
}

// New builds a Manager in StatusInitializing. Call Restore once at startup.
func New(opts Options) *Manager {
	tokens := opts.Tokens
	if tokens == nil {
		tokens = store.NewMemoryTokenStore()
	}
	pending := opts.Pending
	if pending == nil {
		pending = store.NewMemoryPendingStore(store.DefaultPendingTTL)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		api:       opts.API,
		tokens:    tokens,
		pending:   pending,
		logger:    logger,
		now:       now,
		state:     state{restoring: true},
		inFlight:  make(map[Op]bool),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
// Listeners run outside the manager lock. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:       m.state.status(m.inFlight),
		Token:        m.state.token,
		IsLoading:    m.loading > 0 || m.state.restoring,
		PendingEmail: m.state.pendingEmail,
	}
	if m.state.user != nil {
		u := m.state.user.Clone()
		snap.User = &u
	}
	if m.state.registration != nil {
		r := *m.state.registration
		snap.Registration = &r
	}
	return snap
}

// update runs fn under the lock and publishes a snapshot if fn reports a change.
func (m *Manager) update(fn func(s *state) bool) bool {
	m.mu.Lock()
	changed := fn(&m.state)
	var snap Snapshot
	if changed {
		snap = m.snapshotLocked()
	}
	m.mu.Unlock()

	if changed {
		m.publish(snap)
	}
	return changed
}

func (m *Manager) publish(snap Snapshot) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(Snapshot), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// begin marks op as in flight. It reports false if op is already running.
func (m *Manager) begin(op Op) bool {
	m.mu.Lock()
	if m.inFlight[op] {
		m.mu.Unlock()
		return false
	}
	m.inFlight[op] = true
	m.loading++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
	return true
}

func (m *Manager) end(op Op) {
	m.mu.Lock()
	delete(m.inFlight, op)
	m.loading--
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
}

// run guards a network-bound operation with its in-flight flag.
func (m *Manager) run(op Op, fn func() Result) Result {
	if !m.begin(op) {
		return m.finish(fail(op, ErrBusy))
	}
	defer m.end(op)
	return m.finish(fn())
}

func (m *Manager) finish(res Result) Result {
	if res.Success {
		m.logger.Info("session operation succeeded", slog.String("op", string(res.Op)))
		return res
	}
	m.logger.Warn("session operation failed",
		slog.String("op", string(res.Op)),
		slog.String("message", res.Message),
		slog.Any("error", res.Err))
	return res
}

// nextFetch starts a profile fetch. Only the latest fetch may install its result.
func (m *Manager) nextFetch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchSeq++
	return m.fetchSeq
}

// installUser replaces the cached profile if token is still the session
// token and no newer fetch or sign-in happened since seq was issued.
func (m *Manager) installUser(token string, seq uint64, user apiclient.User) bool {
	return m.update(func(s *state) bool {
		if s.token != token || m.fetchSeq != seq {
			return false
		}
		u := user.Clone()
		s.user = &u
		return true
	})
}

// installWrite replaces the cached profile with the answer to a write if
// token is still the session token. Fetches started earlier lose.
func (m *Manager) installWrite(token string, user apiclient.User) bool {
	return m.update(func(s *state) bool {
		if s.token != token {
			return false
		}
		m.fetchSeq++
		u := user.Clone()
		s.user = &u
		return true
	})
}

// signIn commits a fresh token and profile, then persists the token.
func (m *Manager) signIn(ctx context.Context, resp apiclient.AuthResponse, clear func(s *state)) {
	m.update(func(s *state) bool {
		m.fetchSeq++
		u := resp.User.Clone()
		s.token = resp.Token
		s.user = &u
		s.pendingEmail = ""
		if clear != nil {
			clear(s)
		}
		return true
	})
	if err := m.tokens.Save(context.WithoutCancel(ctx), resp.Token); err != nil {
		m.logger.Warn("persist token failed", slog.Any("error", err))
	}
}

// Restore reads the persisted token and validates it against the API.
// A token the API does not accept is discarded silently.
func (m *Manager) Restore(ctx context.Context) Result {
	return m.run(OpRestore, func() Result {
		storeCtx := context.WithoutCancel(ctx)

		token, err := m.tokens.Load(ctx)
		if err != nil {
			m.logger.Warn("stored token unreadable, discarding", slog.Any("error", err))
			if err := m.tokens.Delete(storeCtx); err != nil {
				m.logger.Warn("remove token failed", slog.Any("error", err))
			}
			token = ""
		}

		if token == "" {
			draft := m.loadDraft(ctx)
			m.update(func(s *state) bool {
				s.restoring = false
				if s.registration == nil {
					s.registration = draft
				}
				return true
			})
			return fail(OpRestore, ErrUnauthenticated)
		}

		seq := m.nextFetch()
		m.update(func(s *state) bool {
			if s.token != "" {
				return false
			}
			s.token = token
			return true
		})

		user, err := m.api.Profile(ctx, token)
		if err != nil {
			discarded := false
			m.update(func(s *state) bool {
				s.restoring = false
				if s.token == token {
					s.clearAuth()
					discarded = true
				}
				return true
			})
			if discarded {
				if err := m.tokens.Delete(storeCtx); err != nil {
					m.logger.Warn("remove token failed", slog.Any("error", err))
				}
				m.logger.Info("discarded stored token", slog.Any("reason", err))
			}
			return fail(OpRestore, classify(OpRestore, err))
		}

		installed := m.installUser(token, seq, user)
		m.update(func(s *state) bool {
			s.restoring = false
			return true
		})
		if !installed {
			return fail(OpRestore, ErrSuperseded)
		}
		return succeed(OpRestore, "Welcome back")
	})
}

func (m *Manager) loadDraft(ctx context.Context) *store.PendingRegistration {
	draft, err := m.pending.Load(ctx)
	if err != nil {
		m.logger.Warn("load registration draft failed", slog.Any("error", err))
		return nil
	}
	return draft
}

// Logout clears the session locally, then tells the API on a best-effort
// basis. The local clear always happens and the result is always a success.
// Concurrent calls each clear; whichever takes the token revokes it remotely.
func (m *Manager) Logout(ctx context.Context) Result {
	if m.begin(OpLogout) {
		defer m.end(OpLogout)
	}

	var token string
	m.update(func(s *state) bool {
		m.fetchSeq++
		token = s.token
		s.clearAuth()
		s.pendingEmail = ""
		return true
	})
	if err := m.tokens.Delete(context.WithoutCancel(ctx)); err != nil {
		m.logger.Warn("remove token failed", slog.Any("error", err))
	}

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			m.logger.Info("remote logout failed", slog.Any("error", err))
		}
	}
	return m.finish(succeed(OpLogout, "Logged out successfully"))
}
