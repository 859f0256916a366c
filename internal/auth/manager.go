// Package auth owns the signed-in user of the device and gates the local API on it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"studyzone/internal/hasher"
	"studyzone/internal/metrics"
	"studyzone/internal/models"
	"studyzone/internal/qerrors"
	"studyzone/internal/repository"
	"studyzone/internal/session"
)

// State is the phase of the session lifecycle.
type State string

const (
	// StateRestoring is the initial state, held until the persisted session has been checked.
	StateRestoring       State = "restoring"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Route is the navigation branch the presentation layer should mount.
type Route string

const (
	RouteLoading Route = "loading"
	RouteAuth    Route = "auth"
	RouteApp     Route = "app"
	RouteAdmin   Route = "admin"
)

// Snapshot is the state pushed to subscribers on every transition.
type Snapshot struct {
	State State               `json:"state"`
	Route Route               `json:"route"`
	User  *models.CurrentUser `json:"user"`
}

// Options are the collaborators of a Manager.
type Options struct {
	Users    repository.UserDirectory
	Sessions session.Store
	Hasher   hasher.Hasher
	// AllowedEmailDomains restricts registration. Empty allows every domain.
	AllowedEmailDomains []string
	Logger              *zap.Logger
	Metrics             *metrics.Metrics
	// Now is used for record timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Manager is the single owner of the current user. The current user is non-nil exactly when the state is
// StateAuthenticated.
type Manager struct {
	users          repository.UserDirectory
	sessions       session.Store
	hasher         hasher.Hasher
	allowedDomains []string
	validate       *validator.Validate
	logger         *zap.Logger
	metrics        *metrics.Metrics
	now            func() time.Time

	mu    sync.RWMutex
	state State
	user  *models.CurrentUser

	// publishMu is held from a state change until its snapshot is delivered, so subscribers see
	// transitions in the order they happened.
	publishMu sync.Mutex

	restoreOnce sync.Once
	restored    chan struct{}

	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewManager returns a Manager in StateRestoring. Call Restore (or Start) to leave it.
func NewManager(opts Options) *Manager {
	h := opts.Hasher
	if h == nil {
		h = hasher.LegacySHA256{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		users:          opts.Users,
		sessions:       opts.Sessions,
		hasher:         h,
		allowedDomains: opts.AllowedEmailDomains,
		validate:       validator.New(),
		logger:         logger,
		metrics:        opts.Metrics,
		now:            now,
		state:          StateRestoring,
		restored:       make(chan struct{}),
		subs:           make(map[int]func(Snapshot)),
	}
}

// Start runs Restore in the background.
func (m *Manager) Start(ctx context.Context) {
	go m.Restore(ctx)
}

// Restore checks the persisted session and leaves StateRestoring. Only the first call does any work; later
// calls wait for it. A failure while restoring is logged and ends in StateUnauthenticated.
func (m *Manager) Restore(ctx context.Context) {
	m.restoreOnce.Do(func() {
		defer close(m.restored)

		user, err := m.restoreUser(ctx)
		outcome := metrics.OutcomeOK
		switch {
		case err != nil:
			outcome = metrics.OutcomeFailed
			m.logger.Warn("session restore failed", zap.Error(err))
		case user == nil:
			outcome = metrics.OutcomeSkipped
		}
		m.metrics.AuthEvent("restore", outcome)

		m.publishMu.Lock()
		defer m.publishMu.Unlock()

		m.mu.Lock()
		if m.state != StateRestoring {
			// A login finished first; it wins.
			m.mu.Unlock()
			return
		}
		if user != nil {
			m.state, m.user = StateAuthenticated, user
		} else {
			m.state = StateUnauthenticated
		}
		snap := m.snapshotLocked()
		m.mu.Unlock()

		m.logger.Info("session restored", zap.String("state", string(snap.State)))
		m.publish(snap)
	})
	<-m.restored
}

func (m *Manager) restoreUser(ctx context.Context) (*models.CurrentUser, error) {
	token, ok, err := m.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || token == "" {
		return nil, nil
	}

	record, err := m.users.GetUserByEmail(ctx, token)
	if errors.Is(err, qerrors.UserNotFoundError) {
		m.logger.Info("persisted session refers to an unknown user")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record.Profile(), nil
}

// WaitRestored blocks until the restore has finished or ctx ends.
func (m *Manager) WaitRestored(ctx context.Context) error {
	select {
	case <-m.restored:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login checks the credentials against the user directory. Wrong credentials, including an unknown email,
// yield (false, nil); an error means the directory or the session store could not be reached.
func (m *Manager) Login(ctx context.Context, email, password string) (bool, error) {
	record, err := m.users.GetUserByEmail(ctx, email)
	if errors.Is(err, qerrors.UserNotFoundError) {
		m.metrics.AuthEvent("login", metrics.OutcomeDenied)
		return false, nil
	}
	if err != nil {
		m.metrics.AuthEvent("login", metrics.OutcomeFailed)
		return false, fmt.Errorf("error looking up user: %w", err)
	}

	if !m.hasher.Verify(password, record.Password) {
		m.metrics.AuthEvent("login", metrics.OutcomeDenied)
		return false, nil
	}

	if err := m.sessions.Save(ctx, record.Email); err != nil {
		m.metrics.AuthEvent("login", metrics.OutcomeFailed)
		return false, fmt.Errorf("error saving session: %w", err)
	}

	m.setUser(record.Profile())
	m.metrics.AuthEvent("login", metrics.OutcomeOK)
	m.logger.Info("user signed in", zap.String("email", record.Email))
	return true, nil
}

// Logout forgets the current user. The user is cleared even when the session store fails; the store's
// error is still returned so the caller can retry.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.sessions.Clear(ctx)
	m.setUser(nil)

	if err != nil {
		m.metrics.AuthEvent("logout", metrics.OutcomeFailed)
		return fmt.Errorf("error clearing session: %w", err)
	}
	m.metrics.AuthEvent("logout", metrics.OutcomeOK)
	return nil
}

// Register creates a regular user and signs them in.
func (m *Manager) Register(ctx context.Context, req *models.RegisterRequest) (*models.CurrentUser, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := m.validate.Struct(req); err != nil {
		m.metrics.AuthEvent("register", metrics.OutcomeDenied)
		return nil, qerrors.Validation(err)
	}
	if !m.emailDomainAllowed(req.Email) {
		m.metrics.AuthEvent("register", metrics.OutcomeDenied)
		return nil, qerrors.InvalidEmailError
	}

	user, err := m.register(ctx, req)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, qerrors.EmailExistsError) {
			outcome = metrics.OutcomeDenied
		}
		m.metrics.AuthEvent("register", outcome)
		return nil, err
	}

	m.setUser(user)
	m.metrics.AuthEvent("register", metrics.OutcomeOK)
	m.logger.Info("user registered", zap.String("email", user.Email))
	return user, nil
}

func (m *Manager) register(ctx context.Context, req *models.RegisterRequest) (*models.CurrentUser, error) {
	_, err := m.users.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return nil, qerrors.EmailExistsError
	}
	if !errors.Is(err, qerrors.UserNotFoundError) {
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	digest, err := m.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	record := &models.UserRecord{
		Email:     req.Email,
		Name:      req.Name,
		Password:  digest,
		IsAdmin:   false,
		CreatedAt: m.now(),
	}
	if err := m.users.CreateUser(ctx, record); err != nil {
		if errors.Is(err, qerrors.EmailExistsError) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	if err := m.sessions.Save(ctx, record.Email); err != nil {
		return nil, fmt.Errorf("error saving session: %w", err)
	}
	return record.Profile(), nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (m *Manager) CurrentUser() *models.CurrentUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyUser(m.user)
}

// Snapshot returns state, route and user read together.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Route decides which navigation branch to mount.
func (m *Manager) Route() Route {
	return m.Snapshot().Route
}

// Subscribe registers fn to be called with every state transition, in order, from the goroutine that caused
// it. fn must not sign in or out itself. The returned function unregisters fn.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs, id)
		m.subsMu.Unlock()
	}
}

// Helpers

func (m *Manager) setUser(user *models.CurrentUser) {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()

	m.mu.Lock()
	if user != nil {
		m.state, m.user = StateAuthenticated, user
	} else {
		m.state, m.user = StateUnauthenticated, nil
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(snap)
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{State: m.state, Route: routeFor(m.state, m.user), User: copyUser(m.user)}
}

func (m *Manager) publish(snap Snapshot) {
	m.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (m *Manager) emailDomainAllowed(email string) bool {
	if len(m.allowedDomains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range m.allowedDomains {
		if strings.ToLower(allowed) == domain {
			return true
		}
	}
	return false
}

func routeFor(state State, user *models.CurrentUser) Route {
	switch {
	case state == StateRestoring:
		return RouteLoading
	case state != StateAuthenticated:
		return RouteAuth
	case user.IsAdmin():
		return RouteAdmin
	default:
		return RouteApp
	}
}

func copyUser(u *models.CurrentUser) *models.CurrentUser {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
