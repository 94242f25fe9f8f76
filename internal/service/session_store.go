package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/medistore/medistore/internal/adapter/outbound/httpapi"
	"github.com/medistore/medistore/internal/domain/auth"
	"github.com/medistore/medistore/internal/domain/notify"
	"github.com/medistore/medistore/internal/domain/session"
	"github.com/medistore/medistore/internal/domain/storage"
)

// User-facing session messages.
const (
	MsgLoginFailed      = "Login failed"
	MsgRegisterFailed   = "Registration failed"
	MsgUnexpected       = "An unexpected error occurred"
	MsgNoConnection     = "Unable to reach the server. Please check your internet connection"
	MsgSignInInProgress = "A sign-in is already in progress"
	MsgSessionExpired   = "Your session has expired. Please sign in again"
)

const (
	projectionVersion     = 0
	meterName             = "github.com/medistore/medistore/internal/service"
	transitionsMetricName = "medistore.session.transitions"
)

// SessionStore owns the authentication state. Every read and write of the
// session goes through it; the persisted projection under
// storage.KeyAuthSession is kept in step with each mutation.
//
// The store never holds its lock across a network call. Subscribers are
// called outside the lock with a snapshot.
type SessionStore struct {
	api      *AuthAPI
	store    storage.Store
	notifier notify.Notifier
	logger   *slog.Logger

	transitions metric.Int64Counter

	mu        sync.Mutex
	state     session.Session
	signingIn bool
	subs      map[int]func(session.Session)
	endHooks  map[int]func(context.Context)
	nextSub   int
}

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithNotifier sets where transient notifications go. Defaults to
// notify.Discard.
func WithNotifier(n notify.Notifier) SessionOption {
	return func(s *SessionStore) {
		s.notifier = n
	}
}

// WithMeterProvider sets the provider of the transition counter. Defaults to
// the global provider.
func WithMeterProvider(mp metric.MeterProvider) SessionOption {
	return func(s *SessionStore) {
		s.transitions = newTransitionCounter(mp)
	}
}

// NewSessionStore creates a store in the Unknown state. Call Initialize
// before branching on authentication.
func NewSessionStore(api *AuthAPI, store storage.Store, logger *slog.Logger, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		api:      api,
		store:    store,
		notifier: notify.Discard{},
		logger:   logger,
		subs:     make(map[int]func(session.Session)),
		endHooks: make(map[int]func(context.Context)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transitions == nil {
		s.transitions = newTransitionCounter(otel.GetMeterProvider())
	}
	return s
}

func newTransitionCounter(mp metric.MeterProvider) metric.Int64Counter {
	c, err := mp.Meter(meterName).Int64Counter(transitionsMetricName,
		metric.WithDescription("Session status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		otel.Handle(err)
	}
	return c
}

// Initialize restores the session from storage without a network call. The
// session is authenticated only if both a token and a user are stored.
// IsInitialized becomes true whether or not anything was found. Calling it
// again re-reads storage and yields the same state.
func (s *SessionStore) Initialize() {
	token := s.api.StoredToken()
	user := s.api.StoredUser()
	if user == nil {
		if proj, ok := storage.GetObject[session.Projection](s.store, storage.KeyAuthSession); ok && proj.State.User != nil {
			user = proj.State.User
		}
	}
	authenticated := token != "" && user != nil

	s.update(func(st *session.Session) {
		st.IsInitialized = true
		st.IsAuthenticated = authenticated
		if authenticated {
			st.User = user
			st.Token = token
			st.TokenExpiresAt, _ = session.TokenExpiry(token)
		} else {
			st.User = nil
			st.Token = ""
			st.TokenExpiresAt = time.Time{}
		}
	})
	s.logger.Debug("session initialized", "authenticated", authenticated)
}

// Login signs in and reports whether it succeeded. Failures never escape as
// errors: the message is stored in LastError. A second Login while one is
// pending fails at once with MsgSignInInProgress.
func (s *SessionStore) Login(ctx context.Context, creds auth.Credentials) bool {
	return s.authenticate(ctx, MsgLoginFailed, func(ctx context.Context) (*httpapi.Envelope[auth.Payload], error) {
		return s.api.Login(ctx, creds)
	})
}

// Register creates an account and signs in with it, like Login.
func (s *SessionStore) Register(ctx context.Context, req auth.RegisterRequest) bool {
	return s.authenticate(ctx, MsgRegisterFailed, func(ctx context.Context) (*httpapi.Envelope[auth.Payload], error) {
		return s.api.Register(ctx, req)
	})
}

func (s *SessionStore) authenticate(
	ctx context.Context,
	fallback string,
	call func(context.Context) (*httpapi.Envelope[auth.Payload], error),
) bool {
	s.mu.Lock()
	if s.signingIn {
		s.state.LastError = MsgSignInInProgress
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(snap)
		return false
	}
	s.signingIn = true
	s.mu.Unlock()

	s.update(func(st *session.Session) {
		st.IsLoading = true
		st.LastError = ""
	})

	env, err := call(ctx)

	var ok bool
	s.update(func(st *session.Session) {
		s.signingIn = false
		st.IsLoading = false
		switch {
		case err != nil:
			st.LastError = errorMessage(err, fallback)
		case env.Success && env.Data != nil && env.Data.Token != "":
			user := env.Data.User
			st.User = &user
			st.Token = env.Data.Token
			st.TokenExpiresAt, _ = session.TokenExpiry(env.Data.Token)
			st.IsAuthenticated = true
			st.LastError = ""
			ok = true
		default:
			st.LastError = env.Message
			if st.LastError == "" {
				st.LastError = fallback
			}
		}
	})
	if err != nil {
		s.loggerFor(ctx).Info("sign-in failed", "kind", httpapi.KindOf(err).String(), "error", err)
		switch httpapi.KindOf(err) {
		case httpapi.KindNetwork:
			s.notifier.Notify(ctx, notify.NetworkError())
		case httpapi.KindServer:
			s.notifier.Notify(ctx, notify.APIError(httpapi.MessageOf(err, "")))
		}
	}
	if ok {
		s.sessionEnded(ctx)
	}
	return ok
}

// Logout ends the session. The in-memory session is cleared first, then the
// server is told and the stored credentials are erased, whatever the
// server's answer. A failed remote call produces an informational
// notification and is otherwise ignored.
func (s *SessionStore) Logout(ctx context.Context) {
	s.update(func(st *session.Session) {
		clearSession(st)
		st.IsLoading = true
	})

	if err := s.api.Logout(ctx); err != nil {
		s.loggerFor(ctx).Warn("logout error", "error", err)
		s.notifier.Notify(ctx, notify.New(notify.LevelInfo, "Signed out",
			"Could not reach the server. You have been signed out on this device."))
	}
	s.update(func(st *session.Session) {
		clearSession(st)
		st.IsLoading = false
	})
	s.sessionEnded(ctx)
}

// Invalidate ends the session after the API client could not recover from a
// 401. It is a no-op when the session is already signed out, so one episode
// produces one transition. It has the httpapi.InvalidationHook signature.
func (s *SessionStore) Invalidate(ctx context.Context, reason error) {
	changed := s.apply(func(st *session.Session) bool {
		if !st.IsAuthenticated && st.User == nil {
			return false
		}
		clearSession(st)
		st.LastError = MsgSessionExpired
		return true
	})
	if changed {
		if err := storage.RemoveAll(s.store, storage.CredentialKeys...); err != nil {
			s.logger.Error("failed to clear stored credentials", "error", err)
		}
		s.loggerFor(ctx).Info("session invalidated", "reason", reason)
		s.notifier.Notify(ctx, notify.New(notify.LevelWarning, "Session expired", MsgSessionExpired))
	}
	s.sessionEnded(ctx)
}

// Refresh exchanges the stored refresh token for a new access token and
// adopts it. It implements httpapi.Refresher, so the API client's 401
// recovery keeps the in-memory session in step with storage.
func (s *SessionStore) Refresh(ctx context.Context) (string, error) {
	token, err := s.api.RefreshSession(ctx)
	if err != nil {
		return "", err
	}
	user := s.api.StoredUser()
	s.update(func(st *session.Session) {
		if !st.IsAuthenticated {
			return
		}
		st.Token = token
		st.TokenExpiresAt, _ = session.TokenExpiry(token)
		if user != nil {
			st.User = user
		}
	})
	return token, nil
}

// SetError replaces LastError; nil clears it.
func (s *SessionStore) SetError(msg *string) {
	s.update(func(st *session.Session) {
		if msg == nil {
			st.LastError = ""
			return
		}
		st.LastError = *msg
	})
}

// ClearError clears LastError.
func (s *SessionStore) ClearError() {
	s.SetError(nil)
}

// UpdateUser merges the set fields of patch into the current user and
// persists it. Without a user it does nothing.
func (s *SessionStore) UpdateUser(patch session.UserPatch) {
	s.mu.Lock()
	if s.state.User == nil {
		s.mu.Unlock()
		return
	}
	merged := s.state.User.Merge(patch)
	s.state.User = &merged
	if err := storage.SetObject(s.store, storage.KeyUserData, merged); err != nil {
		s.logger.Error("failed to persist user", "error", err)
	}
	s.persistLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// Snapshot returns a copy of the current session.
func (s *SessionStore) Snapshot() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status returns the coarse session state.
func (s *SessionStore) Status() session.Status {
	return s.Snapshot().Status()
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function unsubscribes.
func (s *SessionStore) Subscribe(fn func(session.Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// OnSessionEnd registers fn to run whenever the account's session ends or is
// replaced: after Logout, after Invalidate, and after a sign-in is adopted.
// Stored credentials are already cleared or rotated when fn runs. Use it to
// drop data cached for the previous account. The returned function removes
// fn.
func (s *SessionStore) OnSessionEnd(fn func(context.Context)) (remove func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.endHooks[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.endHooks, id)
			s.mu.Unlock()
		})
	}
}

func (s *SessionStore) sessionEnded(ctx context.Context) {
	s.mu.Lock()
	hooks := make([]func(context.Context), 0, len(s.endHooks))
	for _, fn := range s.endHooks {
		hooks = append(hooks, fn)
	}
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}

// update applies mutate under the lock, persists the projection, records a
// status transition and notifies subscribers.
func (s *SessionStore) update(mutate func(*session.Session)) {
	s.apply(func(st *session.Session) bool {
		mutate(st)
		return true
	})
}

// apply is update for mutations that may decline by returning false, in
// which case nothing is persisted or published.
func (s *SessionStore) apply(mutate func(*session.Session) bool) bool {
	s.mu.Lock()
	before := s.state.Status()
	if !mutate(&s.state) {
		s.mu.Unlock()
		return false
	}
	after := s.state.Status()
	s.persistLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if before != after {
		s.transitions.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("to", after.String())))
		s.logger.Debug("session transition", "from", before.String(), "to", after.String())
	}
	s.publish(snap)
	return true
}

// persistLocked writes the {user, token, isAuthenticated} projection, or
// removes it when signed out. Nothing is written before initialization so
// that an unread projection is never overwritten.
func (s *SessionStore) persistLocked() {
	if !s.state.IsInitialized {
		return
	}
	if !s.state.IsAuthenticated && s.state.User == nil {
		if _, err := s.store.Remove(storage.KeyAuthSession); err != nil {
			s.logger.Error("failed to remove session projection", "error", err)
		}
		return
	}
	proj := session.Projection{
		Version: projectionVersion,
		State: session.ProjectedState{
			User:            s.state.User,
			IsAuthenticated: s.state.IsAuthenticated,
		},
	}
	if s.state.Token != "" {
		tok := s.state.Token
		proj.State.Token = &tok
	}
	if err := storage.SetObject(s.store, storage.KeyAuthSession, proj); err != nil {
		s.logger.Error("failed to persist session", "error", err)
	}
}

func (s *SessionStore) snapshotLocked() session.Session {
	snap := s.state
	snap.User = s.state.User.Clone()
	return snap
}

func (s *SessionStore) publish(snap session.Session) {
	s.mu.Lock()
	subs := make([]func(session.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *SessionStore) loggerFor(ctx context.Context) *slog.Logger {
	if l := loggerFromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

func clearSession(st *session.Session) {
	st.User = nil
	st.Token = ""
	st.TokenExpiresAt = time.Time{}
	st.IsAuthenticated = false
	st.LastError = ""
}

// errorMessage turns a sign-in failure into the text shown under the form.
// fallback replaces a bare 401 on the sign-in request itself.
func errorMessage(err error, fallback string) string {
	var verr *auth.ValidationError
	var ce *httpapi.ClassifiedError
	switch {
	case errors.As(err, &verr):
		return verr.First()
	case errors.As(err, &ce) && ce.Kind == httpapi.KindNetwork:
		return MsgNoConnection
	case errors.As(err, &ce):
		return httpapi.MessageOf(ce, fallback)
	default:
		return MsgUnexpected
	}
}
