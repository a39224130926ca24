// Package profile defines the backend-owned user profile record and its provenance.
package profile

import (
	"maps"
	"time"

	"github.com/nicetouch/dashboard/internal/domain/auth"
)

// Provenance records where a cached profile record came from.
type Provenance string

const (
	// ProvenanceSynced marks a record confirmed present in the profile backend.
	ProvenanceSynced Provenance = "synced"
	// ProvenanceLocalFallback marks a record synthesized from the identity alone.
	// It is not persisted and must not be treated as confirming backend state.
	ProvenanceLocalFallback Provenance = "local-fallback"
)

// Well-known extension fields returned by the backend.
const (
	ExtraSubscriptionTier = "subscriptionTier"
	ExtraPreferences      = "preferences"
)

// Record is the profile of a single identity.
type Record struct {
	UserID        string         `json:"id"`
	Email         string         `json:"email"`
	DisplayName   string         `json:"displayName"`
	EmailVerified bool           `json:"emailVerified"`
	Extra         map[string]any `json:"extra,omitempty"`
	Provenance    Provenance     `json:"provenance"`
	UpdatedAt     time.Time      `json:"updatedAt,omitzero"`
}

// IsAuthoritative reports whether the record reflects confirmed backend state.
func (r Record) IsAuthoritative() bool { return r.Provenance == ProvenanceSynced }

// IsZero reports whether the record carries no profile data at all. Provenance is ignored.
func (r Record) IsZero() bool {
	return r.UserID == "" && r.Email == "" && r.DisplayName == "" &&
		!r.EmailVerified && len(r.Extra) == 0 && r.UpdatedAt.IsZero()
}

// Clone returns a copy whose Extra map is not shared with the receiver.
func (r Record) Clone() Record {
	r.Extra = maps.Clone(r.Extra)
	return r
}

// FromIdentity synthesizes the local-fallback record from identity fields only.
func FromIdentity(id auth.Identity) Record {
	return Record{
		UserID:        id.ID,
		Email:         id.Email,
		DisplayName:   id.DisplayName,
		EmailVerified: id.EmailVerified,
		Provenance:    ProvenanceLocalFallback,
	}
}

// Claims is the payload sent to the backend's sync endpoint.
type Claims struct {
	UserID        string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

// ClaimsFromIdentity builds sync claims for an identity.
func ClaimsFromIdentity(id auth.Identity) Claims {
	return Claims{
		UserID:        id.ID,
		Email:         id.Email,
		DisplayName:   id.DisplayName,
		EmailVerified: id.EmailVerified,
	}
}

// Update is a partial profile update. Nil fields are left untouched by the backend.
type Update struct {
	DisplayName *string        `json:"displayName,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// IsEmpty reports whether the update carries no fields.
func (u Update) IsEmpty() bool {
	return u.DisplayName == nil && len(u.Preferences) == 0
}

// SyncStatus is the loading/error state of the profile cache.
type SyncStatus struct {
	Loading bool
	// LastStrategy is the name of the strategy that produced the cached record.
	LastStrategy string
	LastError    error
}
