package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quipper/poc/lti/tool/internal/lti"
	"github.com/quipper/poc/lti/tool/pkg/common/config"
	"github.com/quipper/poc/lti/tool/pkg/common/keys"
	launchesRepo "github.com/quipper/poc/lti/tool/pkg/repositories/launches"
	platformsRepo "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

const (
	testIssuer   = "https://platform.example.edu"
	testClientID = "client-123"
)

// In-memory repositories for the handler tests.

type memPlatforms struct {
	mu    sync.Mutex
	items []*platformsRepo.Platform
	next  int64
}

func (m *memPlatforms) Health() error { return nil }
func (m *memPlatforms) Disconnect()   {}

func (m *memPlatforms) RegisterPlatform(_ context.Context, p *platformsRepo.Platform) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.Issuer == p.Issuer && existing.ClientID == p.ClientID {
			p.ID = existing.ID
			m.items[i] = p
			return p.ID, nil
		}
	}
	m.next++
	p.ID = m.next
	m.items = append(m.items, p)
	return p.ID, nil
}

func (m *memPlatforms) ListPlatforms(context.Context) ([]*platformsRepo.Platform, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*platformsRepo.Platform(nil), m.items...), nil
}

func (m *memPlatforms) GetPlatform(_ context.Context, issuer, clientID string) (*platformsRepo.Platform, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.Issuer == issuer && (clientID == "" || p.ClientID == clientID) {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memPlatforms) GetPlatformByID(_ context.Context, id int64) (*platformsRepo.Platform, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memPlatforms) DeletePlatformByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.items {
		if p.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return nil
}

type memLaunches struct {
	mu       sync.Mutex
	launches map[string]*launchesRepo.Launch
}

func newMemLaunches() *memLaunches {
	return &memLaunches{launches: make(map[string]*launchesRepo.Launch)}
}

func (m *memLaunches) Health() error { return nil }
func (m *memLaunches) Disconnect()   {}

func (m *memLaunches) CreateLoginState(context.Context, string, string, string, string, string, time.Time) error {
	return nil
}

func (m *memLaunches) ConsumeLoginState(context.Context, string) (string, string, string, string, bool, error) {
	return "", "", "", "", false, nil
}

func (m *memLaunches) PutLaunch(_ context.Context, l *launchesRepo.Launch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launches[l.ID] = l
	return nil
}

func (m *memLaunches) GetLaunch(_ context.Context, id string) (*launchesRepo.Launch, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.launches[id]
	if !ok || time.Now().After(l.ExpiresAt) {
		return nil, false, nil
	}
	return l, true, nil
}

type testEnv struct {
	h         *Handler
	handler   http.Handler
	platforms *memPlatforms
	launches  *memLaunches
	cfg       *config.Config
}

func newTestEnv(t *testing.T, authTokenURL string) *testEnv {
	t.Helper()
	cfg := &config.Config{
		PublicBaseURL:     "https://tool.example.com",
		ToolName:          "LTI 1.3 example",
		StateTTL:          15 * time.Minute,
		LaunchTTL:         2 * time.Hour,
		HTTPClientTimeout: 5 * time.Second,
	}
	platforms := &memPlatforms{}
	_, err := platforms.RegisterPlatform(context.Background(), &platformsRepo.Platform{
		Name: "test", Issuer: testIssuer, ClientID: testClientID,
		AuthTokenURL: authTokenURL, KeySetURL: testIssuer + "/jwks", DeploymentID: "dep-1",
	})
	require.NoError(t, err)
	launches := newMemLaunches()

	keySet, err := keys.Load("test-kid", "", "")
	require.NoError(t, err)
	tool := lti.NewTool(cfg, platforms, launches, keySet, nil)
	h := NewHandler(cfg, tool, platforms)
	return &testEnv{h: h, handler: h.Router(), platforms: platforms, launches: launches, cfg: cfg}
}

// cacheLaunch stores claims under a launch id, as a validated launch would.
func (e *testEnv) cacheLaunch(t *testing.T, id string, claims map[string]any) {
	t.Helper()
	raw, err := json.Marshal(claims)
	require.NoError(t, err)
	require.NoError(t, e.launches.PutLaunch(context.Background(), &launchesRepo.Launch{
		ID: id, Issuer: testIssuer, ClientID: testClientID,
		ClaimsJSON: string(raw), ExpiresAt: time.Now().Add(time.Hour),
	}))
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (e *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func teacherClaims() map[string]any {
	return map[string]any{
		"sub":                "teacher-1",
		"name":               "Pat Teacher",
		lti.ClaimMessageType: lti.MessageTypeResourceLink,
		lti.ClaimRoles:       []any{"http://purl.imsglobal.org/vocab/lis/v2/membership#Instructor"},
	}
}

func studentClaims() map[string]any {
	return map[string]any{
		"sub":                "student-1",
		"name":               "Sam Student",
		lti.ClaimMessageType: lti.MessageTypeResourceLink,
		lti.ClaimRoles:       []any{"http://purl.imsglobal.org/vocab/lis/v2/membership#Learner"},
	}
}
