package lti

import (
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DeepLinkResource describes one content item the teacher chose to embed.
// Transient; built per request and sent back to the platform.
type DeepLinkResource struct {
	URL          string
	Title        string
	CustomParams map[string]string
}

// DeepLink builds the signed LtiDeepLinkingResponse for a deep-link launch.
type DeepLink struct {
	tool   *Tool
	launch *LaunchState
}

// DeepLink returns a response builder for the launch, or ErrNotDeepLink
// when the launch is not a deep linking request.
func (t *Tool) DeepLink(launch *LaunchState) (*DeepLink, error) {
	if !launch.IsDeepLinkLaunch() {
		return nil, ErrNotDeepLink
	}
	if launch.deepLinkSettings() == nil {
		return nil, fmt.Errorf("%w: missing deep_linking_settings claim", ErrNotDeepLink)
	}
	return &DeepLink{tool: t, launch: launch}, nil
}

// ReturnURL is where the platform expects the deep linking response.
func (d *DeepLink) ReturnURL() string {
	u, _ := d.launch.deepLinkSettings()["deep_link_return_url"].(string)
	return u
}

// ResponseJWT signs an LtiDeepLinkingResponse carrying the resources as
// ltiResourceLink content items, echoing the settings' opaque data value.
func (d *DeepLink) ResponseJWT(resources []DeepLinkResource) (string, error) {
	items := make([]map[string]any, 0, len(resources))
	for _, r := range resources {
		item := map[string]any{
			"type":  "ltiResourceLink",
			"url":   r.URL,
			"title": r.Title,
		}
		if len(r.CustomParams) > 0 {
			item["custom"] = r.CustomParams
		}
		items = append(items, item)
	}

	now := time.Now()
	builder := jwt.NewBuilder().
		Issuer(d.launch.ClientID).
		Audience([]string{d.launch.Issuer}).
		IssuedAt(now).
		Expiration(now.Add(5 * time.Minute)).
		Claim("nonce", uuid.NewString()).
		Claim(ClaimMessageType, MessageTypeDeepLinkResponse).
		Claim(ClaimVersion, "1.3.0").
		Claim(ClaimDeploymentID, d.launch.DeploymentID()).
		Claim(ClaimDeepLinkItems, items)
	if data, ok := d.launch.deepLinkSettings()["data"].(string); ok && data != "" {
		builder = builder.Claim(ClaimDeepLinkData, data)
	}
	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build deep link response: %w", err)
	}

	hdrs := jws.NewHeaders()
	_ = hdrs.Set(jwk.KeyIDKey, d.tool.keys.Kid())
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, d.tool.keys.PrivateKey(), jws.WithProtectedHeaders(hdrs)))
	if err != nil {
		return "", fmt.Errorf("sign deep link response: %w", err)
	}
	return string(signed), nil
}

// ResponseForm wraps the signed response in an auto-submitting HTML form
// posting back to the platform's return URL; platforms read the signed
// response from the "JWT" form field.
func (d *DeepLink) ResponseForm(resources []DeepLinkResource) (string, error) {
	signed, err := d.ResponseJWT(resources)
	if err != nil {
		return "", err
	}
	returnURL := d.ReturnURL()
	if returnURL == "" {
		return "", fmt.Errorf("deep_linking_settings has no deep_link_return_url")
	}
	page := `<!DOCTYPE html>
<html><body onload="document.forms[0].submit()">
<form method="post" action="` + template.HTMLEscapeString(returnURL) + `">
<input type="hidden" name="JWT" value="` + template.HTMLEscapeString(signed) + `"/>
<noscript><button type="submit">Continue</button></noscript>
</form></body></html>`
	return page, nil
}
