package launches

import (
	"context"
	"time"
)

// Launch is a validated launch persisted to the cache, keyed by an opaque
// id. Claims are stored as raw JSON and are read-only after creation.
type Launch struct {
	ID         string
	Issuer     string
	ClientID   string
	ClaimsJSON string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Repository covers the tool's short-lived launch state: OIDC login
// state/nonce rows (single use) and the launch cache.
type Repository interface {
	// Health is a simple check to verify the repository works.
	Health() error
	// Disconnect gracefully closes resources. Safe to call on shutdown.
	Disconnect()

	// CreateLoginState stores a state with its nonce and login metadata.
	CreateLoginState(ctx context.Context, state, nonce, issuer, clientID, targetLinkURI string, exp time.Time) error
	// ConsumeLoginState atomically loads and invalidates a state.
	// ok=false when not found, already used, or expired.
	ConsumeLoginState(ctx context.Context, state string) (nonce, issuer, clientID, targetLinkURI string, ok bool, err error)

	// PutLaunch stores a validated launch until its expiry.
	PutLaunch(ctx context.Context, l *Launch) error
	// GetLaunch returns a cached launch by id. ok=false when the id is
	// unknown or the entry has expired.
	GetLaunch(ctx context.Context, id string) (l *Launch, ok bool, err error)
}
