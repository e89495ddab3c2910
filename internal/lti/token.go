package lti

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/quipper/poc/lti/tool/pkg/common/logger"
	platformsRepo "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

// tokenCache keeps platform access tokens per (issuer, client_id, scopes)
// until shortly before they expire, so service calls within a request burst
// reuse one token instead of hitting the token endpoint each time.
type tokenCache struct {
	mu      sync.Mutex
	entries map[string]cachedToken
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

func newTokenCache() *tokenCache {
	return &tokenCache{entries: make(map[string]cachedToken)}
}

func (c *tokenCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (c *tokenCache) put(key, value string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedToken{value: value, expiresAt: expiresAt}
}

// accessToken obtains an OAuth2 access token from the platform using
// client_credentials with a private_key_jwt client assertion.
func (t *Tool) accessToken(ctx context.Context, platform *platformsRepo.Platform, scopes []string) (string, error) {
	scope := strings.Join(scopes, " ")
	cacheKey := platform.Issuer + "|" + platform.ClientID + "|" + scope
	if tok, ok := t.tokens.get(cacheKey); ok {
		return tok, nil
	}

	now := time.Now()
	assertion, err := jwt.NewBuilder().
		Issuer(platform.ClientID).
		Subject(platform.ClientID).
		Audience([]string{platform.AuthTokenURL}).
		IssuedAt(now).
		Expiration(now.Add(5 * time.Minute)).
		JwtID(uuid.NewString()).
		Build()
	if err != nil {
		return "", fmt.Errorf("build client assertion: %w", err)
	}
	hdrs := jws.NewHeaders()
	_ = hdrs.Set(jwk.KeyIDKey, t.keys.Kid())
	signed, err := jwt.Sign(assertion, jwt.WithKey(jwa.RS256, t.keys.PrivateKey(), jws.WithProtectedHeaders(hdrs)))
	if err != nil {
		return "", fmt.Errorf("sign client assertion: %w", err)
	}

	resp, err := t.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":            "client_credentials",
			"client_assertion_type": "urn:ietf:params:oauth:client-assertion-type:jwt-bearer",
			"client_assertion":      string(signed),
			"scope":                 scope,
		}).
		Post(platform.AuthTokenURL)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if !resp.IsSuccess() {
		return "", &ServiceError{URL: platform.AuthTokenURL, Status: resp.StatusCode(), Body: resp.String()}
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access_token")
	}

	// Refresh one minute early to avoid racing the expiry.
	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl > time.Minute {
		t.tokens.put(cacheKey, body.AccessToken, now.Add(ttl-time.Minute))
	}
	logger.Debug("accessToken: obtained token iss=%s scope=%q expires_in=%d", platform.Issuer, scope, body.ExpiresIn)
	return body.AccessToken, nil
}
