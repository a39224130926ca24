package ports

import (
	"context"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/profile"
)

// ProfileBackend is the application-owned store of profile records keyed by identity.
// Implementations must mint a fresh bearer token from the identity on every call.
type ProfileBackend interface {
	// Get returns the existing record for the identity or a not-found error.
	Get(ctx context.Context, id domainauth.Identity) (profile.Record, error)
	// Sync creates or updates the record from the identity's claims. It is idempotent.
	// A zero record with a nil error means the backend acknowledged without a payload.
	Sync(ctx context.Context, id domainauth.Identity) (profile.Record, error)
	// Update applies a partial update and returns the full server representation.
	Update(ctx context.Context, id domainauth.Identity, upd profile.Update) (profile.Record, error)
}
