package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/observability/metrics"
	"github.com/nicetouch/dashboard/internal/observability/statsd"
	"github.com/nicetouch/dashboard/internal/ports"
)

// IdentitySource is the read side of the session manager consumed by dependent services.
type IdentitySource interface {
	OnIdentityChange(fn func(domainauth.SessionState)) (unsubscribe func())
	Current() domainauth.SessionState
	WaitResolved(ctx context.Context) (domainauth.SessionState, error)
}

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Provider ports.IdentityProvider
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// SessionManager owns the lifecycle of the current identity. It holds exactly one
// subscription to the identity provider and fans notifications out to its listeners
// in provider order on a single dispatcher goroutine.
type SessionManager struct {
	provider ports.IdentityProvider
	logger   *slog.Logger
	metrics  statsd.Sink

	mu        sync.Mutex
	state     domainauth.SessionState
	listeners map[uint64]*sessionListener
	nextID    uint64
	queue     []sessionEvent
	seq       uint64
	started   bool

	wake     chan struct{}
	resolved chan struct{}
	stop     chan struct{}
	done     chan struct{}

	unsubscribe func()
	stopOnce    sync.Once
	unsubOnce   sync.Once
}

type sessionListener struct {
	fn func(domainauth.SessionState)
	// from is the first event sequence number this listener may observe.
	from uint64
}

type sessionEvent struct {
	seq    uint64
	state  domainauth.SessionState
	target uint64 // listener id for a catch-up event, 0 for broadcast
}

var (
	errSessionAlreadyStarted = errors.New("session manager already started")
	errSessionNotStarted     = errors.New("session manager not started")

	// ErrNoIdentity is returned by operations that require a signed-in user when none is present.
	ErrNoIdentity = apperrors.New(apperrors.ErrCodeReauthRequired, "No user is signed in")
)

// NewSessionManager constructs a new SessionManager. Call Start to subscribe to the provider.
func NewSessionManager(opts SessionManagerOptions) *SessionManager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		provider:  opts.Provider,
		logger:    logger.With("component", "session_manager"),
		metrics:   opts.Metrics,
		listeners: make(map[uint64]*sessionListener),
		wake:      make(chan struct{}, 1),
		resolved:  make(chan struct{}),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start subscribes to the identity provider and starts the dispatcher.
// The dispatcher stops when ctx is done or Close is called.
func (s *SessionManager) Start(ctx context.Context) error {
	if s.provider == nil {
		return errors.New("identity provider is required")
	}

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errSessionAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	go s.dispatch(ctx)

	// The provider may notify synchronously from within Subscribe; handleNotification
	// takes the lock itself.
	unsub := s.provider.Subscribe(s.handleNotification)

	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "subscribed to identity provider")
	return nil
}

// Close unsubscribes from the provider and stops the dispatcher. Pending events are dropped.
func (s *SessionManager) Close() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stop) })
	s.releaseSubscription()
	if started {
		<-s.done
	}
}

func (s *SessionManager) releaseSubscription() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.mu.Unlock()
	if unsub == nil {
		return
	}
	s.unsubOnce.Do(unsub)
}

// handleNotification records a provider notification and queues it for delivery.
func (s *SessionManager) handleNotification(id *domainauth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := !s.state.Resolved()
	next := domainauth.SessionState{
		Status:     domainauth.StatusAbsent,
		Generation: s.state.Generation + 1,
	}
	if id != nil {
		snapshot := *id
		snapshot.Providers = slices.Clone(id.Providers)
		next.Status = domainauth.StatusPresent
		next.Identity = &snapshot
	}
	s.state = next

	s.seq++
	s.queue = append(s.queue, sessionEvent{seq: s.seq, state: next})

	if first {
		close(s.resolved)
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *SessionManager) dispatch(ctx context.Context) {
	defer close(s.done)
	defer s.releaseSubscription()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.wake:
		}

		for {
			ev, targets, ok := s.next()
			if !ok {
				break
			}
			for _, fn := range targets {
				s.deliver(ctx, fn, ev.state)
			}
		}
	}
}

// next pops the oldest queued event and resolves the listeners it must reach.
func (s *SessionManager) next() (sessionEvent, []func(domainauth.SessionState), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return sessionEvent{}, nil, false
	}
	ev := s.queue[0]
	s.queue[0] = sessionEvent{}
	s.queue = s.queue[1:]

	if ev.target != 0 {
		l, ok := s.listeners[ev.target]
		if !ok {
			return ev, nil, true
		}
		return ev, []func(domainauth.SessionState){l.fn}, true
	}

	ids := make([]uint64, 0, len(s.listeners))
	for id, l := range s.listeners {
		if l.from <= ev.seq {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fns := make([]func(domainauth.SessionState), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id].fn)
	}
	return ev, fns, true
}

func (s *SessionManager) deliver(ctx context.Context, fn func(domainauth.SessionState), state domainauth.SessionState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "identity listener panicked",
				"generation", state.Generation,
				"panic", r)
		}
	}()
	fn(state)
}

// OnIdentityChange registers a listener for session state changes. A listener registered
// after the first notification receives the current state first, then every later change.
func (s *SessionManager) OnIdentityChange(fn func(domainauth.SessionState)) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	l := &sessionListener{fn: fn, from: s.seq + 1}
	s.listeners[id] = l

	if s.state.Resolved() {
		s.seq++
		l.from = s.seq
		s.queue = append(s.queue, sessionEvent{seq: s.seq, state: s.state, target: id})
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Current returns the latest session state.
func (s *SessionManager) Current() domainauth.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WaitResolved blocks until the first provider notification has been processed.
func (s *SessionManager) WaitResolved(ctx context.Context) (domainauth.SessionState, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return domainauth.SessionState{}, errSessionNotStarted
	}

	select {
	case <-s.resolved:
		return s.Current(), nil
	case <-ctx.Done():
		return domainauth.SessionState{}, ctx.Err()
	}
}

// LoginWithCredentials signs in with email and password. The session state changes
// only when the provider notifies; callers must not apply state themselves.
func (s *SessionManager) LoginWithCredentials(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if password == "" {
		return apperrors.ValidationField("password", "password is required")
	}
	return s.call(ctx, "login", func(ctx context.Context) error {
		return s.provider.SignInWithCredentials(ctx, email, password)
	})
}

// LoginWithFederatedProvider runs the federated sign-in flow.
func (s *SessionManager) LoginWithFederatedProvider(ctx context.Context) error {
	return s.call(ctx, "login_federated", s.provider.SignInWithFederated)
}

// Signup creates an email/password account; the provider signs the new user in.
func (s *SessionManager) Signup(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if password == "" {
		return apperrors.ValidationField("password", "password is required")
	}
	return s.call(ctx, "signup", func(ctx context.Context) error {
		return s.provider.SignUp(ctx, email, password)
	})
}

// Logout requests provider sign-out.
func (s *SessionManager) Logout(ctx context.Context) error {
	return s.call(ctx, "logout", s.provider.SignOut)
}

func (s *SessionManager) call(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := apperrors.NormalizeProvider(fn(ctx))

	metrics.EmitOperation(s.metrics, metrics.OperationMetric{
		Component: "session",
		Operation: op,
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "identity operation failed",
			"operation", op,
			"code", apperrors.GetCode(err),
			"error", err)
		return err
	}
	s.logger.InfoContext(ctx, "identity operation succeeded", "operation", op)
	return nil
}

// currentIdentity waits for resolution and returns the signed-in identity.
func currentIdentity(ctx context.Context, src IdentitySource) (domainauth.Identity, domainauth.SessionState, error) {
	state, err := src.WaitResolved(ctx)
	if err != nil {
		return domainauth.Identity{}, state, err
	}
	id, ok := state.Present()
	if !ok {
		return domainauth.Identity{}, state, ErrNoIdentity
	}
	return id, state, nil
}
