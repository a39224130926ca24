package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/profile"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/observability/metrics"
	"github.com/nicetouch/dashboard/internal/observability/statsd"
	"github.com/nicetouch/dashboard/internal/ports"
)

// sourceUpdate labels a cached record produced by UpdateProfile.
const sourceUpdate = "update"

// ErrIdentityChanged is returned when the signed-in identity changed while an operation was in flight.
// The operation's result was discarded.
var ErrIdentityChanged = apperrors.New(apperrors.ErrCodeUnknown, "Signed-in user changed during the operation")

// ProfileSynchronizerOptions groups dependencies for ProfileSynchronizer.
type ProfileSynchronizerOptions struct {
	Sessions IdentitySource
	Backend  ports.ProfileBackend
	// Chain overrides the default sync, fetch, local-fallback chain.
	Chain   *ReconcileChain
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// ProfileSynchronizer keeps a cached profile record consistent with the current identity.
type ProfileSynchronizer struct {
	sessions IdentitySource
	backend  ports.ProfileBackend
	chain    *ReconcileChain
	logger   *slog.Logger
	metrics  statsd.Sink

	// notifyMu serializes cache writes with listener delivery so listeners observe writes in order.
	notifyMu sync.Mutex

	mu        sync.Mutex
	record    profile.Record
	hasRecord bool
	status    profile.SyncStatus
	listeners map[uint64]func(profile.Record, bool)
	nextID    uint64

	baseCtx     context.Context
	unsubscribe func()
	passes      sync.WaitGroup
}

// NewProfileSynchronizer constructs a ProfileSynchronizer.
func NewProfileSynchronizer(opts ProfileSynchronizerOptions) (*ProfileSynchronizer, error) {
	if opts.Sessions == nil {
		return nil, errors.New("Sessions is required")
	}
	if opts.Backend == nil && opts.Chain == nil {
		return nil, errors.New("Backend is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	chain := opts.Chain
	if chain == nil {
		var err error
		chain, err = NewReconcileChain(ReconcileChainOptions{
			Strategies: DefaultStrategies(opts.Backend),
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
	}

	return &ProfileSynchronizer{
		sessions:  opts.Sessions,
		backend:   opts.Backend,
		chain:     chain,
		logger:    logger.With("component", "profile_synchronizer"),
		metrics:   opts.Metrics,
		listeners: make(map[uint64]func(profile.Record, bool)),
		baseCtx:   context.Background(),
	}, nil
}

// Start registers with the session manager. Reconciliation passes run with ctx.
func (p *ProfileSynchronizer) Start(ctx context.Context) {
	p.mu.Lock()
	if p.unsubscribe != nil {
		p.mu.Unlock()
		return
	}
	p.baseCtx = ctx
	p.mu.Unlock()

	unsub := p.sessions.OnIdentityChange(p.handleSession)

	p.mu.Lock()
	p.unsubscribe = unsub
	p.mu.Unlock()
}

// Stop unregisters from the session manager and waits for in-flight passes.
func (p *ProfileSynchronizer) Stop() {
	p.mu.Lock()
	unsub := p.unsubscribe
	p.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	p.passes.Wait()
}

func (p *ProfileSynchronizer) handleSession(state domainauth.SessionState) {
	id, ok := state.Present()
	if !ok {
		p.clear("")
		return
	}

	// A record belonging to a previous identity must not outlive it.
	p.clear(id.ID)

	p.mu.Lock()
	ctx := p.baseCtx
	p.status.Loading = true
	p.mu.Unlock()

	p.passes.Add(1)
	go func() {
		defer p.passes.Done()
		if _, err := p.reconcile(ctx, id, state.Generation); err != nil && !errors.Is(err, ErrIdentityChanged) {
			p.logger.ErrorContext(ctx, "reconciliation pass failed",
				"user_id", id.ID,
				"generation", state.Generation,
				"error", err)
		}
	}()
}

// reconcile runs the chain for id and applies the result if generation is still current.
func (p *ProfileSynchronizer) reconcile(ctx context.Context, id domainauth.Identity, generation uint64) (profile.Record, error) {
	start := time.Now()
	res, err := p.chain.Run(ctx, id)
	if err != nil {
		metrics.EmitReconcile(p.metrics, metrics.ReconcileMetric{
			Result:   metrics.ResultError,
			Attempts: len(res.Attempts),
			Duration: time.Since(start),
			Err:      err,
		})
		p.setError(generation, err)
		return profile.Record{}, err
	}

	applied := p.apply(generation, res.Record, res.Strategy, res.Failures())
	result := metrics.ResultSuccess
	if !applied {
		result = metrics.ResultStale
	}
	metrics.EmitReconcile(p.metrics, metrics.ReconcileMetric{
		Strategy: res.Strategy,
		Result:   result,
		Attempts: len(res.Attempts),
		Duration: time.Since(start),
		Err:      res.Failures(),
	})

	if !applied {
		p.logger.DebugContext(ctx, "discarded stale reconciliation result",
			"user_id", id.ID,
			"generation", generation,
			"strategy", res.Strategy)
		return profile.Record{}, ErrIdentityChanged
	}

	p.logger.InfoContext(ctx, "profile reconciled",
		"user_id", id.ID,
		"generation", generation,
		"strategy", res.Strategy,
		"attempts", len(res.Attempts))
	return res.Record.Clone(), nil
}

// apply replaces the cached record when generation is still the current session generation.
func (p *ProfileSynchronizer) apply(generation uint64, rec profile.Record, strategy string, lastErr error) bool {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.sessions.Current().Generation != generation {
		p.mu.Unlock()
		return false
	}
	p.record = rec.Clone()
	p.hasRecord = true
	p.status = profile.SyncStatus{LastStrategy: strategy, LastError: lastErr}
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(rec.Clone(), true)
	}
	return true
}

// clear drops the cached record unless it belongs to keepUserID.
func (p *ProfileSynchronizer) clear(keepUserID string) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if keepUserID != "" && (!p.hasRecord || p.record.UserID == keepUserID) {
		p.mu.Unlock()
		return
	}
	hadRecord := p.hasRecord
	p.record = profile.Record{}
	p.hasRecord = false
	p.status = profile.SyncStatus{}
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	if !hadRecord {
		return
	}
	for _, fn := range listeners {
		fn(profile.Record{}, false)
	}
}

func (p *ProfileSynchronizer) setError(generation uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions.Current().Generation != generation {
		return
	}
	p.status.Loading = false
	p.status.LastError = err
}

// snapshotListeners must be called with p.mu held.
func (p *ProfileSynchronizer) snapshotListeners() []func(profile.Record, bool) {
	ids := make([]uint64, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(profile.Record, bool), 0, len(ids))
	for _, id := range ids {
		out = append(out, p.listeners[id])
	}
	return out
}

// Profile returns the cached record and whether one is present.
func (p *ProfileSynchronizer) Profile() (profile.Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasRecord {
		return profile.Record{}, false
	}
	return p.record.Clone(), true
}

// Status returns the loading/error state of the cache.
func (p *ProfileSynchronizer) Status() profile.SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// OnProfileChange registers a listener for cache changes. Listeners run synchronously
// after each write and must not call UpdateProfile or Refresh from the callback.
func (p *ProfileSynchronizer) OnProfileChange(fn func(rec profile.Record, present bool)) func() {
	if fn == nil {
		return func() {}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// UpdateProfile sends a partial update and adopts the server representation on success.
// Failures leave the cache unchanged and are never retried.
func (p *ProfileSynchronizer) UpdateProfile(ctx context.Context, upd profile.Update) (profile.Record, error) {
	if upd.IsEmpty() {
		return profile.Record{}, apperrors.Validation("profile update has no fields")
	}
	if p.backend == nil {
		return profile.Record{}, apperrors.Internal("profile backend is not configured")
	}

	id, state, err := currentIdentity(ctx, p.sessions)
	if err != nil {
		return profile.Record{}, err
	}

	start := time.Now()
	rec, err := p.backend.Update(ctx, id, upd)
	if err != nil {
		err = backendError(err)
		metrics.EmitOperation(p.metrics, metrics.OperationMetric{
			Component: "profile",
			Operation: "update",
			Duration:  time.Since(start),
			Err:       err,
		})
		p.logger.WarnContext(ctx, "profile update failed",
			"user_id", id.ID,
			"code", apperrors.GetCode(err),
			"error", err)
		return profile.Record{}, err
	}

	rec = adoptSynced(rec, id)
	if !p.apply(state.Generation, rec, sourceUpdate, nil) {
		return profile.Record{}, ErrIdentityChanged
	}

	metrics.EmitOperation(p.metrics, metrics.OperationMetric{
		Component: "profile",
		Operation: "update",
		Duration:  time.Since(start),
	})
	p.logger.InfoContext(ctx, "profile updated", "user_id", id.ID)
	return rec.Clone(), nil
}

// Refresh re-runs the reconciliation chain for the current identity and waits for it.
func (p *ProfileSynchronizer) Refresh(ctx context.Context) (profile.Record, error) {
	id, state, err := currentIdentity(ctx, p.sessions)
	if err != nil {
		return profile.Record{}, err
	}

	p.mu.Lock()
	if p.sessions.Current().Generation == state.Generation {
		p.status.Loading = true
	}
	p.mu.Unlock()

	return p.reconcile(ctx, id, state.Generation)
}

// backendError normalizes a profile/billing backend failure.
func backendError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.BackendUnavailable(err, "Backend request failed")
}
