package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/profile"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
	"github.com/nicetouch/dashboard/internal/ports"
)

// Strategy names, in default evaluation order.
const (
	StrategySync          = "sync"
	StrategyFetch         = "fetch"
	StrategyLocalFallback = "local-fallback"
)

// ErrEmptySyncPayload is reported when the backend acknowledges a sync without returning a record.
// The chain treats it as a failed step and moves on to fetch.
var ErrEmptySyncPayload = errors.New("profile sync returned no user payload")

// ReconcileStrategy is one step of the reconciliation chain.
type ReconcileStrategy interface {
	Name() string
	Resolve(ctx context.Context, id domainauth.Identity) (profile.Record, error)
}

// SyncStrategy upserts the profile from identity claims and adopts the result as synced.
type SyncStrategy struct {
	Backend ports.ProfileBackend
}

func (SyncStrategy) Name() string { return StrategySync }

func (s SyncStrategy) Resolve(ctx context.Context, id domainauth.Identity) (profile.Record, error) {
	rec, err := s.Backend.Sync(ctx, id)
	if err != nil {
		return profile.Record{}, err
	}
	if rec.IsZero() {
		return profile.Record{}, ErrEmptySyncPayload
	}
	return adoptSynced(rec, id), nil
}

// FetchStrategy reads the existing profile and adopts it as synced.
type FetchStrategy struct {
	Backend ports.ProfileBackend
}

func (FetchStrategy) Name() string { return StrategyFetch }

func (s FetchStrategy) Resolve(ctx context.Context, id domainauth.Identity) (profile.Record, error) {
	rec, err := s.Backend.Get(ctx, id)
	if err != nil {
		return profile.Record{}, err
	}
	return adoptSynced(rec, id), nil
}

// LocalFallbackStrategy synthesizes a non-authoritative record from the identity alone.
type LocalFallbackStrategy struct{}

func (LocalFallbackStrategy) Name() string { return StrategyLocalFallback }

func (LocalFallbackStrategy) Resolve(_ context.Context, id domainauth.Identity) (profile.Record, error) {
	return profile.FromIdentity(id), nil
}

func adoptSynced(rec profile.Record, id domainauth.Identity) profile.Record {
	if rec.UserID == "" {
		rec.UserID = id.ID
	}
	if rec.Email == "" {
		rec.Email = id.Email
	}
	rec.Provenance = profile.ProvenanceSynced
	return rec
}

// DefaultStrategies returns sync, fetch and local-fallback in that order.
func DefaultStrategies(backend ports.ProfileBackend) []ReconcileStrategy {
	return []ReconcileStrategy{
		SyncStrategy{Backend: backend},
		FetchStrategy{Backend: backend},
		LocalFallbackStrategy{},
	}
}

// StrategyAttempt records one evaluated strategy.
type StrategyAttempt struct {
	Strategy string
	Duration time.Duration
	Err      error
}

// ReconcileResult is the outcome of one reconciliation pass.
type ReconcileResult struct {
	Record   profile.Record
	Strategy string
	Attempts []StrategyAttempt
}

// Failures joins the errors of every failed attempt, or returns nil.
func (r ReconcileResult) Failures() error {
	var errs []error
	for _, a := range r.Attempts {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Strategy, a.Err))
		}
	}
	return errors.Join(errs...)
}

// ReconcileChainOptions groups dependencies for ReconcileChain.
type ReconcileChainOptions struct {
	Strategies []ReconcileStrategy
	Logger     *slog.Logger
}

// ReconcileChain evaluates its strategies strictly in order and stops at the first success.
type ReconcileChain struct {
	strategies []ReconcileStrategy
	logger     *slog.Logger
}

// NewReconcileChain constructs a ReconcileChain.
func NewReconcileChain(opts ReconcileChainOptions) (*ReconcileChain, error) {
	if len(opts.Strategies) == 0 {
		return nil, errors.New("at least one reconcile strategy is required")
	}
	for i, st := range opts.Strategies {
		if st == nil {
			return nil, fmt.Errorf("reconcile strategy %d is nil", i)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileChain{
		strategies: append([]ReconcileStrategy(nil), opts.Strategies...),
		logger:     logger.With("component", "reconcile_chain"),
	}, nil
}

// Names returns the strategy names in evaluation order.
func (c *ReconcileChain) Names() []string {
	names := make([]string, 0, len(c.strategies))
	for _, st := range c.strategies {
		names = append(names, st.Name())
	}
	return names
}

// Run performs one reconciliation pass for the identity.
// An error means no strategy produced a record, which indicates a misconfigured chain.
func (c *ReconcileChain) Run(ctx context.Context, id domainauth.Identity) (ReconcileResult, error) {
	var res ReconcileResult

	for _, st := range c.strategies {
		start := time.Now()
		rec, err := st.Resolve(ctx, id)
		res.Attempts = append(res.Attempts, StrategyAttempt{
			Strategy: st.Name(),
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			c.logger.DebugContext(ctx, "reconcile strategy failed",
				"strategy", st.Name(),
				"user_id", id.ID,
				"error", err)
			continue
		}

		res.Record = rec
		res.Strategy = st.Name()
		return res, nil
	}

	return res, apperrors.Wrap(res.Failures(), apperrors.ErrCodeInternal, "every reconcile strategy failed")
}
