package lti

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/quipper/poc/lti/tool/pkg/common/logger"
	platformsRepo "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

// openidConfiguration is the subset of the platform's discovery document
// the registration handshake needs.
type openidConfiguration struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
	RegistrationEndpoint  string `json:"registration_endpoint"`
}

// RegisterPlatform runs the LTI dynamic registration handshake: fetch the
// platform's openid configuration, post this tool's client registration,
// and persist the resulting platform record. Re-running it replaces a
// previous registration for the same issuer+client_id.
func (t *Tool) RegisterPlatform(ctx context.Context, openidConfigURL, registrationToken string) (*platformsRepo.Platform, error) {
	if openidConfigURL == "" {
		return nil, fmt.Errorf("missing openid_configuration URL")
	}

	resp, err := t.http.R().SetContext(ctx).Get(openidConfigURL)
	if err != nil {
		return nil, fmt.Errorf("fetch openid configuration: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &ServiceError{URL: openidConfigURL, Status: resp.StatusCode(), Body: resp.String()}
	}
	var oc openidConfiguration
	if err := json.Unmarshal(resp.Body(), &oc); err != nil {
		return nil, fmt.Errorf("decode openid configuration: %w", err)
	}
	if oc.Issuer == "" || oc.RegistrationEndpoint == "" {
		return nil, fmt.Errorf("openid configuration missing issuer or registration_endpoint")
	}

	req := t.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(t.clientRegistration())
	if registrationToken != "" {
		req.SetAuthToken(registrationToken)
	}
	resp, err = req.Post(oc.RegistrationEndpoint)
	if err != nil {
		return nil, fmt.Errorf("post client registration: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &ServiceError{URL: oc.RegistrationEndpoint, Status: resp.StatusCode(), Body: resp.String()}
	}
	var reg struct {
		ClientID         string `json:"client_id"`
		LTIConfiguration struct {
			DeploymentID string `json:"deployment_id"`
		} `json:"https://purl.imsglobal.org/spec/lti-tool-configuration"`
	}
	if err := json.Unmarshal(resp.Body(), &reg); err != nil {
		return nil, fmt.Errorf("decode registration response: %w", err)
	}
	if reg.ClientID == "" {
		return nil, fmt.Errorf("registration response has no client_id")
	}

	name := oc.Issuer
	if u, err := url.Parse(oc.Issuer); err == nil && u.Host != "" {
		name = u.Host
	}
	platform := &platformsRepo.Platform{
		Name:         name,
		Issuer:       oc.Issuer,
		ClientID:     reg.ClientID,
		AuthLoginURL: oc.AuthorizationEndpoint,
		AuthTokenURL: oc.TokenEndpoint,
		KeySetURL:    oc.JWKSURI,
		DeploymentID: reg.LTIConfiguration.DeploymentID,
	}
	if _, err := t.platforms.RegisterPlatform(ctx, platform); err != nil {
		return nil, fmt.Errorf("persist platform registration: %w", err)
	}
	logger.Info("RegisterPlatform: registered iss=%s client_id=%s", platform.Issuer, platform.ClientID)
	return platform, nil
}

// clientRegistration is the tool metadata sent during dynamic registration.
func (t *Tool) clientRegistration() map[string]any {
	scopes := []string{
		ScopeNRPSMembership,
		ScopeAGSLineItem,
		ScopeAGSResultRead,
		ScopeAGSScore,
	}
	return map[string]any{
		"application_type":           "web",
		"response_types":             []string{"id_token"},
		"grant_types":                []string{"implicit", "client_credentials"},
		"initiate_login_uri":         t.cfg.LoginURL(),
		"redirect_uris":              []string{t.cfg.LaunchURL()},
		"client_name":                t.cfg.ToolName,
		"jwks_uri":                   t.cfg.JWKSURL(),
		"logo_uri":                   "",
		"token_endpoint_auth_method": "private_key_jwt",
		"scope":                      strings.Join(scopes, " "),
		"https://purl.imsglobal.org/spec/lti-tool-configuration": map[string]any{
			"domain":          hostOf(t.cfg.PublicBaseURL),
			"description":     t.cfg.ToolDescription,
			"target_link_uri": t.cfg.LaunchURL(),
			"claims":          []string{"iss", "sub", "name"},
			"messages": []map[string]any{
				{
					"type":            MessageTypeDeepLink,
					"target_link_uri": t.cfg.LaunchURL(),
					"label":           "New tool link",
				},
			},
		},
	}
}

func hostOf(base string) string {
	if u, err := url.Parse(base); err == nil {
		return u.Host
	}
	return base
}

// RegistrationCompleteHTML signals the opening window that registration
// finished, per the IMS dynamic registration UX flow.
func RegistrationCompleteHTML() string {
	return `<!DOCTYPE html>
<html><head><meta charset="utf-8"/><title>Registration complete</title></head>
<body>
<p>Registration complete. You can close this window.</p>
<script>
(window.opener || window.parent).postMessage({subject: "org.imsglobal.lti.close"}, "*");
</script>
</body></html>`
}
