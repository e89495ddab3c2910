package lti

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/quipper/poc/lti/tool/pkg/common/config"
	"github.com/quipper/poc/lti/tool/pkg/common/keys"
	launchesRepo "github.com/quipper/poc/lti/tool/pkg/repositories/launches"
	platformsRepo "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

// In-memory fakes for the repositories, shared across the package tests.

type fakePlatforms struct {
	mu    sync.Mutex
	items []*platformsRepo.Platform
	next  int64
}

func (f *fakePlatforms) Health() error { return nil }
func (f *fakePlatforms) Disconnect()   {}

func (f *fakePlatforms) RegisterPlatform(_ context.Context, p *platformsRepo.Platform) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.items {
		if existing.Issuer == p.Issuer && existing.ClientID == p.ClientID {
			p.ID = existing.ID
			f.items[i] = p
			return p.ID, nil
		}
	}
	f.next++
	p.ID = f.next
	f.items = append(f.items, p)
	return p.ID, nil
}

func (f *fakePlatforms) ListPlatforms(context.Context) ([]*platformsRepo.Platform, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*platformsRepo.Platform(nil), f.items...), nil
}

func (f *fakePlatforms) GetPlatform(_ context.Context, issuer, clientID string) (*platformsRepo.Platform, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.Issuer == issuer && (clientID == "" || p.ClientID == clientID) {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePlatforms) GetPlatformByID(_ context.Context, id int64) (*platformsRepo.Platform, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePlatforms) DeletePlatformByID(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.items {
		if p.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

type loginState struct {
	nonce, issuer, clientID, targetLinkURI string
	exp                                    time.Time
	used                                   bool
}

type fakeLaunches struct {
	mu       sync.Mutex
	states   map[string]*loginState
	launches map[string]*launchesRepo.Launch
}

func newFakeLaunches() *fakeLaunches {
	return &fakeLaunches{
		states:   make(map[string]*loginState),
		launches: make(map[string]*launchesRepo.Launch),
	}
}

func (f *fakeLaunches) Health() error { return nil }
func (f *fakeLaunches) Disconnect()   {}

func (f *fakeLaunches) CreateLoginState(_ context.Context, state, nonce, issuer, clientID, targetLinkURI string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state] = &loginState{nonce: nonce, issuer: issuer, clientID: clientID, targetLinkURI: targetLinkURI, exp: exp}
	return nil
}

func (f *fakeLaunches) ConsumeLoginState(_ context.Context, state string) (string, string, string, string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[state]
	if !ok || s.used || time.Now().After(s.exp) {
		return "", "", "", "", false, nil
	}
	s.used = true
	return s.nonce, s.issuer, s.clientID, s.targetLinkURI, true, nil
}

func (f *fakeLaunches) PutLaunch(_ context.Context, l *launchesRepo.Launch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches[l.ID] = l
	return nil
}

func (f *fakeLaunches) GetLaunch(_ context.Context, id string) (*launchesRepo.Launch, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.launches[id]
	if !ok || time.Now().After(l.ExpiresAt) {
		return nil, false, nil
	}
	return l, true, nil
}

// staticJWKS serves a fixed key set, standing in for the platform JWKS
// fetch in tests that don't exercise the HTTP cache.
type staticJWKS struct {
	set jwk.Set
}

func (s *staticJWKS) Get(context.Context, string) (jwk.Set, error) { return s.set, nil }
func (s *staticJWKS) Invalidate(string)                            {}

const (
	testIssuer   = "https://platform.example.edu"
	testClientID = "client-123"
	testKid      = "platform-key-1"
)

func testConfig() *config.Config {
	return &config.Config{
		PublicBaseURL:     "https://tool.example.com",
		ToolName:          "LTI 1.3 example",
		ToolDescription:   "test tool",
		StateTTL:          15 * time.Minute,
		LaunchTTL:         2 * time.Hour,
		NonceExemptIssuer: "http://imsglobal.org",
		HTTPClientTimeout: 5 * time.Second,
	}
}

// newPlatformKey generates the fake platform's signing key and the public
// JWKS the tool will validate against.
func newPlatformKey(t *testing.T) (*rsa.PrivateKey, jwk.Set) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pub, err := jwk.FromRaw(&priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, testKid))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, jwa.RS256))
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	return priv, set
}

func newTestTool(t *testing.T, cfg *config.Config, platforms *fakePlatforms, launches *fakeLaunches, platformJWKS jwk.Set) *Tool {
	t.Helper()
	keySet, err := keys.Load("tool-key-1", "", "")
	require.NoError(t, err)
	return NewTool(cfg, platforms, launches, keySet, &staticJWKS{set: platformJWKS})
}

func testPlatform(authLoginURL, authTokenURL string) *platformsRepo.Platform {
	return &platformsRepo.Platform{
		ID:           1,
		Name:         "platform.example.edu",
		Issuer:       testIssuer,
		ClientID:     testClientID,
		AuthLoginURL: authLoginURL,
		AuthTokenURL: authTokenURL,
		KeySetURL:    testIssuer + "/jwks",
		DeploymentID: "deployment-1",
	}
}

// signIDToken signs a launch id_token with the fake platform key. Extra
// claims are merged over the defaults.
func signIDToken(t *testing.T, priv *rsa.PrivateKey, iss string, extra map[string]any) string {
	t.Helper()
	now := time.Now()
	builder := jwt.NewBuilder().
		Issuer(iss).
		Audience([]string{testClientID}).
		Subject("user-1").
		IssuedAt(now).
		Expiration(now.Add(time.Hour))
	for k, v := range extra {
		builder = builder.Claim(k, v)
	}
	tok, err := builder.Build()
	require.NoError(t, err)
	hdrs := jws.NewHeaders()
	require.NoError(t, hdrs.Set(jwk.KeyIDKey, testKid))
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, priv, jws.WithProtectedHeaders(hdrs)))
	require.NoError(t, err)
	return string(signed)
}
