package lti

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/quipper/poc/lti/tool/pkg/common/logger"
)

// stateCookieName is the first-party cookie correlating the login
// initiation with the launch POST that follows it.
const stateCookieName = "lti_state"

// LoginParams are the parameters a platform sends to the login initiation
// endpoint (third-party initiated login).
type LoginParams struct {
	Issuer         string
	ClientID       string
	LoginHint      string
	LTIMessageHint string
	TargetLinkURI  string
}

// LoginRedirect is the outcome of BeginLogin: the platform authorization
// URL to send the browser to, plus the state cookie to set first.
type LoginRedirect struct {
	AuthURL     string
	StateCookie *http.Cookie
}

// BeginLogin resolves the platform registration, mints and persists a
// state/nonce pair, and builds the OIDC authentication request redirect.
func (t *Tool) BeginLogin(ctx context.Context, p LoginParams) (*LoginRedirect, error) {
	platform, err := t.platforms.GetPlatform(ctx, p.Issuer, p.ClientID)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, fmt.Errorf("%w: iss=%s client_id=%s", ErrUnknownPlatform, p.Issuer, p.ClientID)
	}

	state := uuid.NewString()
	nonce := uuid.NewString()
	exp := time.Now().Add(t.cfg.StateTTL)
	if err := t.launches.CreateLoginState(ctx, state, nonce, platform.Issuer, platform.ClientID, p.TargetLinkURI, exp); err != nil {
		return nil, fmt.Errorf("create login state: %w", err)
	}

	u, err := url.Parse(platform.AuthLoginURL)
	if err != nil {
		return nil, fmt.Errorf("platform auth_login_url invalid: %w", err)
	}
	q := u.Query()
	q.Set("scope", "openid")
	q.Set("response_type", "id_token")
	q.Set("response_mode", "form_post")
	q.Set("prompt", "none")
	q.Set("client_id", platform.ClientID)
	q.Set("redirect_uri", p.TargetLinkURI)
	q.Set("state", state)
	q.Set("nonce", nonce)
	if p.LoginHint != "" {
		q.Set("login_hint", p.LoginHint)
	}
	if p.LTIMessageHint != "" {
		q.Set("lti_message_hint", p.LTIMessageHint)
	}
	u.RawQuery = q.Encode()

	logger.Debug("BeginLogin: iss=%s client_id=%s state=%s", platform.Issuer, platform.ClientID, state)
	return &LoginRedirect{
		AuthURL: u.String(),
		StateCookie: &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/",
			MaxAge:   int(t.cfg.StateTTL.Seconds()),
			Secure:   true,
			HttpOnly: false, // the cookie check below reads it from JS
			SameSite: http.SameSiteNoneMode,
		},
	}, nil
}

// CheckCookiesPage returns an HTML page that verifies the state cookie is
// readable before following the authorization redirect. Browsers that block
// third-party cookies would otherwise fail later, at launch validation,
// with a much less helpful error.
func CheckCookiesPage(authURL string) string {
	esc := template.HTMLEscapeString(authURL)
	jsURL := template.JSEscapeString(authURL)
	return `<!DOCTYPE html>
<html><head><meta charset="utf-8"/><title>Signing in…</title></head>
<body>
<p id="msg">Checking your browser…</p>
<script>
if (document.cookie.indexOf("` + stateCookieName + `=") !== -1) {
  window.location.replace("` + jsURL + `");
} else {
  document.getElementById("msg").textContent =
    "Your browser is blocking cookies for this site. Enable cookies and retry the activity.";
}
</script>
<noscript><a href="` + esc + `">Continue</a></noscript>
</body></html>`
}
