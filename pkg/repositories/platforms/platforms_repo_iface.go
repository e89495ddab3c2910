package platforms

import (
	"context"
	"time"
)

// Platform represents a registered LMS platform this tool can accept
// launches from. Created by dynamic registration or via the admin API.
type Platform struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Issuer       string    `json:"issuer"`
	ClientID     string    `json:"client_id"`
	AuthLoginURL string    `json:"auth_login_url"`
	AuthTokenURL string    `json:"auth_token_url"`
	KeySetURL    string    `json:"key_set_url"`
	DeploymentID string    `json:"deployment_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository defines storage operations for platform registrations.
type Repository interface {
	// Health is a simple check to verify the repository works.
	Health() error
	// Disconnect gracefully closes resources. Safe to call on shutdown.
	Disconnect()
	// RegisterPlatform inserts a new registration and returns its ID.
	// Re-registration of the same issuer+client_id replaces the record.
	RegisterPlatform(ctx context.Context, p *Platform) (int64, error)
	// ListPlatforms returns all registered platforms.
	ListPlatforms(ctx context.Context) ([]*Platform, error)
	// GetPlatform returns a registration by issuer and client_id.
	// An empty clientID matches the first registration for the issuer.
	GetPlatform(ctx context.Context, issuer, clientID string) (*Platform, error)
	// GetPlatformByID returns a registration by its numeric ID.
	GetPlatformByID(ctx context.Context, id int64) (*Platform, error)
	// DeletePlatformByID deletes a registration by its numeric ID.
	DeletePlatformByID(ctx context.Context, id int64) error
}
