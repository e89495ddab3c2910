package lti

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/quipper/poc/lti/tool/pkg/common/logger"
	launchesRepo "github.com/quipper/poc/lti/tool/pkg/repositories/launches"
)

// LaunchFromRequest validates an incoming launch POST (state + id_token)
// and mints a LaunchState, persisting it to the cache under a fresh id.
//
// Validation order: state cookie correlation, single-use state consumption,
// id_token signature against the platform JWKS, issuer/audience/expiry,
// then the nonce comparison.
func (t *Tool) LaunchFromRequest(r *http.Request) (*LaunchState, error) {
	ctx := r.Context()
	_ = r.ParseForm()
	state := r.PostFormValue("state")
	idToken := r.PostFormValue("id_token")
	if state == "" || idToken == "" {
		return nil, errors.New("lti: launch request missing state or id_token")
	}
	if c, _ := r.Cookie(stateCookieName); c == nil || c.Value != state {
		return nil, errors.New("lti: state cookie missing or mismatched")
	}

	nonce, issuer, clientID, _, ok, err := t.launches.ConsumeLoginState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("consume login state: %w", err)
	}
	if !ok {
		return nil, errors.New("lti: invalid or expired state")
	}

	platform, err := t.platforms.GetPlatform(ctx, issuer, clientID)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, fmt.Errorf("%w: iss=%s", ErrUnknownPlatform, issuer)
	}

	set, err := t.jwks.Get(ctx, platform.KeySetURL)
	if err != nil {
		return nil, fmt.Errorf("fetch platform JWKS: %w", err)
	}
	tok, err := jwt.ParseString(idToken,
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(platform.Issuer),
		jwt.WithAudience(platform.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("id_token validation: %w", err)
	}
	claims, err := tok.AsMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("id_token claims: %w", err)
	}

	launch := &LaunchState{
		ID:       uuid.NewString(),
		Issuer:   platform.Issuer,
		ClientID: platform.ClientID,
		Claims:   claims,
	}

	if t.skipNonceCheck(launch) {
		logger.Warn("LaunchFromRequest: skipping nonce check for exempt issuer %s (deep link)", launch.Issuer)
	} else {
		got, _ := claims["nonce"].(string)
		if got == "" || got != nonce {
			return nil, errors.New("lti: nonce mismatch")
		}
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("marshal claims: %w", err)
	}
	if err := t.launches.PutLaunch(ctx, &launchesRepo.Launch{
		ID:         launch.ID,
		Issuer:     launch.Issuer,
		ClientID:   launch.ClientID,
		ClaimsJSON: string(claimsJSON),
		ExpiresAt:  time.Now().Add(t.cfg.LaunchTTL),
	}); err != nil {
		return nil, fmt.Errorf("cache launch: %w", err)
	}
	logger.Info("LaunchFromRequest: validated launch id=%s iss=%s type=%s", launch.ID, launch.Issuer, launch.MessageType())
	return launch, nil
}

// skipNonceCheck implements the documented deviation for the IMS reference
// platform, which passes an invalid nonce on deep-link launches. The
// exemption applies only to that issuer and only for deep links.
func (t *Tool) skipNonceCheck(l *LaunchState) bool {
	return t.cfg.NonceExemptIssuer != "" &&
		l.Issuer == t.cfg.NonceExemptIssuer &&
		l.IsDeepLinkLaunch()
}

// LaunchFromCache loads a previously validated launch by id. Returns
// ErrLaunchNotFound when the id is empty, unknown or expired; callers must
// surface that as an authorization failure, not a silent no-op.
func (t *Tool) LaunchFromCache(ctx context.Context, id string) (*LaunchState, error) {
	if id == "" {
		return nil, ErrLaunchNotFound
	}
	row, ok, err := t.launches.GetLaunch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read launch cache: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: id=%s", ErrLaunchNotFound, id)
	}
	var claims map[string]any
	if err := json.Unmarshal([]byte(row.ClaimsJSON), &claims); err != nil {
		return nil, fmt.Errorf("decode cached claims: %w", err)
	}
	return &LaunchState{ID: row.ID, Issuer: row.Issuer, ClientID: row.ClientID, Claims: claims}, nil
}

// LaunchIDFromRequest reads the launch id from the POST form, falling back
// to the URL path parameter. POST takes precedence.
func LaunchIDFromRequest(r *http.Request) string {
	_ = r.ParseForm()
	if v := r.PostFormValue("launch_id"); v != "" {
		return v
	}
	return chi.URLParam(r, "launch_id")
}
