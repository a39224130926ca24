package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nicetouch/dashboard/internal/data/pgxutil"
	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/billing"
	"github.com/nicetouch/dashboard/internal/domain/profile"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
)

const profileColumns = `user_id, email, display_name, email_verified, subscription_tier, preferences, updated_at`

// ProfileRepo stores profile records in Postgres. It implements ports.ProfileBackend for
// deployments that share the application database instead of calling the HTTP API.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewProfileRepo creates a ProfileRepo using the system clock.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a ProfileRepo with a custom clock (useful for tests).
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

// authorize mints a token to prove the identity's session is still live before touching rows.
func authorize(ctx context.Context, id domainauth.Identity) error {
	if id.ID == "" {
		return apperrors.ValidationField("id", "Identity has no user id")
	}
	if _, err := id.Token(ctx); err != nil {
		return apperrors.NormalizeProvider(err)
	}
	return nil
}

// Get returns the stored profile of id.
func (r *ProfileRepo) Get(ctx context.Context, id domainauth.Identity) (profile.Record, error) {
	if err := authorize(ctx, id); err != nil {
		return profile.Record{}, err
	}

	var rec profile.Record
	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, id.ID)
		var scanErr error
		rec, scanErr = scanProfile(row)
		return scanErr
	})
	if err != nil {
		return profile.Record{}, apperrors.MapDBError(err)
	}
	return rec, nil
}

// Sync upserts the identity's claims. A non-empty provider display name replaces the stored
// one; an empty one keeps what the user set.
func (r *ProfileRepo) Sync(ctx context.Context, id domainauth.Identity) (profile.Record, error) {
	if err := authorize(ctx, id); err != nil {
		return profile.Record{}, err
	}
	claims := profile.ClaimsFromIdentity(id)
	now := r.timeProvider.Now().UTC()

	var rec profile.Record
	err := pgxutil.WithConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			INSERT INTO profiles (user_id, email, display_name, email_verified, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				email = EXCLUDED.email,
				display_name = CASE
					WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name
					ELSE profiles.display_name
				END,
				email_verified = EXCLUDED.email_verified,
				updated_at = EXCLUDED.updated_at
			RETURNING `+profileColumns,
			claims.UserID, claims.Email, claims.DisplayName, claims.EmailVerified, now,
		)
		var scanErr error
		rec, scanErr = scanProfile(row)
		return scanErr
	})
	if err != nil {
		return profile.Record{}, apperrors.MapDBError(err)
	}
	return rec, nil
}

// Update applies a partial update. Preferences are merged key by key; a nil value removes the key.
func (r *ProfileRepo) Update(ctx context.Context, id domainauth.Identity, upd profile.Update) (profile.Record, error) {
	if err := authorize(ctx, id); err != nil {
		return profile.Record{}, err
	}
	now := r.timeProvider.Now().UTC()

	var rec profile.Record
	err := pgxutil.WithTx(ctx, r.DB, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		current, err := scanProfile(tx.QueryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 FOR UPDATE`, id.ID))
		if err != nil {
			return err
		}

		displayName := current.DisplayName
		if upd.DisplayName != nil {
			displayName = *upd.DisplayName
		}
		prefs := mergePreferences(preferencesOf(current), upd.Preferences)

		rec, err = scanProfile(tx.QueryRow(ctx, `
			UPDATE profiles SET display_name = $2, preferences = $3, updated_at = $4
			WHERE user_id = $1
			RETURNING `+profileColumns,
			id.ID, displayName, prefs, now,
		))
		return err
	})
	if err != nil {
		return profile.Record{}, apperrors.MapDBError(err)
	}
	return rec, nil
}

// SubscriptionTier returns the stored tier of id.
func (r *ProfileRepo) SubscriptionTier(ctx context.Context, id domainauth.Identity) (billing.Tier, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return "", err
	}
	tier, _ := rec.Extra[profile.ExtraSubscriptionTier].(string)
	if tier == "" {
		return billing.TierFree, nil
	}
	return billing.Tier(tier), nil
}

func scanProfile(row pgx.Row) (profile.Record, error) {
	var (
		rec   profile.Record
		tier  string
		prefs map[string]any
		upd   time.Time
	)
	if err := row.Scan(&rec.UserID, &rec.Email, &rec.DisplayName, &rec.EmailVerified, &tier, &prefs, &upd); err != nil {
		return profile.Record{}, err
	}
	rec.UpdatedAt = upd.UTC()
	rec.Extra = map[string]any{profile.ExtraSubscriptionTier: tier}
	if len(prefs) > 0 {
		rec.Extra[profile.ExtraPreferences] = prefs
	}
	return rec, nil
}

func preferencesOf(rec profile.Record) map[string]any {
	prefs, _ := rec.Extra[profile.ExtraPreferences].(map[string]any)
	return prefs
}

func mergePreferences(current, patch map[string]any) map[string]any {
	out := make(map[string]any, len(current)+len(patch))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// IsProfileNotFound reports whether err means the profile row does not exist.
func IsProfileNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || apperrors.IsNotFound(err)
}
