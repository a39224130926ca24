package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/nicetouch/dashboard/internal/domain/auth"
	"github.com/nicetouch/dashboard/internal/domain/profile"
	apperrors "github.com/nicetouch/dashboard/internal/errors"
)

// Field names the API uses for the well-known profile attributes; everything else lands in Extra.
var (
	idKeys          = []string{"id", "uid", "userId", "_id"}
	displayNameKeys = []string{"displayName", "name"}
	knownKeys       = map[string]bool{
		"email": true, "emailVerified": true, "updatedAt": true,
		"id": true, "uid": true, "userId": true, "_id": true,
		"displayName": true, "name": true,
	}
)

// Get fetches the profile of id. A body without a profile object is a not-found error.
func (c *Client) Get(ctx context.Context, id domainauth.Identity) (profile.Record, error) {
	doc, err := c.do(ctx, id, http.MethodGet, c.userPath, nil)
	if err != nil {
		return profile.Record{}, err
	}
	rec, found, err := c.record(doc, id)
	if err != nil {
		return profile.Record{}, err
	}
	if !found {
		return profile.Record{}, apperrors.NotFound("Profile not found")
	}
	return rec, nil
}

// Sync upserts the profile from the identity's claims. An acknowledged sync without a
// profile object in the body returns the zero record.
func (c *Client) Sync(ctx context.Context, id domainauth.Identity) (profile.Record, error) {
	doc, err := c.do(ctx, id, http.MethodPost, "/users/sync", profile.ClaimsFromIdentity(id))
	if err != nil {
		return profile.Record{}, err
	}
	rec, _, err := c.record(doc, id)
	return rec, err
}

type updateBody struct {
	DisplayName *string        `json:"displayName,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// Update applies a partial profile update and returns the server's representation.
func (c *Client) Update(ctx context.Context, id domainauth.Identity, upd profile.Update) (profile.Record, error) {
	doc, err := c.do(ctx, id, http.MethodPut, c.userPath+"/profile", updateBody{
		DisplayName: upd.DisplayName,
		Preferences: upd.Preferences,
	})
	if err != nil {
		return profile.Record{}, err
	}
	rec, found, err := c.record(doc, id)
	if err != nil {
		return profile.Record{}, err
	}
	if !found {
		return profile.Record{}, apperrors.BackendUnavailable(nil, "Backend returned no profile")
	}
	return rec, nil
}

// record locates and decodes the profile object in doc. found is true whenever the
// record expression resolves to an object, however sparse; id and email missing from
// the object are taken from the requesting identity.
func (c *Client) record(doc any, id domainauth.Identity) (rec profile.Record, found bool, err error) {
	v, err := search(c.recordExpr, doc)
	if err != nil {
		return profile.Record{}, false, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return profile.Record{}, false, nil
	}
	rec = recordFromMap(m)
	if rec.UserID == "" {
		rec.UserID = id.ID
	}
	if rec.Email == "" {
		rec.Email = id.Email
	}
	return rec, true, nil
}

func recordFromMap(m map[string]any) profile.Record {
	rec := profile.Record{
		UserID:      firstString(m, idKeys...),
		Email:       firstString(m, "email"),
		DisplayName: firstString(m, displayNameKeys...),
	}
	if verified, ok := m["emailVerified"].(bool); ok {
		rec.EmailVerified = verified
	}
	if ts, ok := m["updatedAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.UpdatedAt = t
		}
	}
	for k, v := range m {
		if knownKeys[k] {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[k] = v
	}
	return rec
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
