package lti

// IMS claim and vocabulary URIs used across the launch flow.
const (
	ClaimMessageType      = "https://purl.imsglobal.org/spec/lti/claim/message_type"
	ClaimVersion          = "https://purl.imsglobal.org/spec/lti/claim/version"
	ClaimDeploymentID     = "https://purl.imsglobal.org/spec/lti/claim/deployment_id"
	ClaimTargetLinkURI    = "https://purl.imsglobal.org/spec/lti/claim/target_link_uri"
	ClaimRoles            = "https://purl.imsglobal.org/spec/lti/claim/roles"
	ClaimCustom           = "https://purl.imsglobal.org/spec/lti/claim/custom"
	ClaimResourceLink     = "https://purl.imsglobal.org/spec/lti/claim/resource_link"
	ClaimAGSEndpoint      = "https://purl.imsglobal.org/spec/lti-ags/claim/endpoint"
	ClaimNRPS             = "https://purl.imsglobal.org/spec/lti-nrps/claim/namesroleservice"
	ClaimDeepLinkSettings = "https://purl.imsglobal.org/spec/lti-dl/claim/deep_linking_settings"
	ClaimDeepLinkItems    = "https://purl.imsglobal.org/spec/lti-dl/claim/content_items"
	ClaimDeepLinkData     = "https://purl.imsglobal.org/spec/lti-dl/claim/data"

	MessageTypeResourceLink     = "LtiResourceLinkRequest"
	MessageTypeDeepLink         = "LtiDeepLinkingRequest"
	MessageTypeDeepLinkResponse = "LtiDeepLinkingResponse"

	ScopeNRPSMembership  = "https://purl.imsglobal.org/spec/lti-nrps/scope/contextmembership.readonly"
	ScopeAGSLineItem     = "https://purl.imsglobal.org/spec/lti-ags/scope/lineitem"
	ScopeAGSLineItemRead = "https://purl.imsglobal.org/spec/lti-ags/scope/lineitem.readonly"
	ScopeAGSResultRead   = "https://purl.imsglobal.org/spec/lti-ags/scope/result.readonly"
	ScopeAGSScore        = "https://purl.imsglobal.org/spec/lti-ags/scope/score"
)

// LaunchState holds the validated claims of one launch, keyed by an opaque
// id. It is minted only by LaunchFromRequest and read-only afterwards.
type LaunchState struct {
	ID       string
	Issuer   string
	ClientID string
	Claims   map[string]any
}

// MessageType returns the LTI message type claim.
func (l *LaunchState) MessageType() string {
	s, _ := l.Claims[ClaimMessageType].(string)
	return s
}

// IsDeepLinkLaunch reports whether this launch is a deep linking request.
func (l *LaunchState) IsDeepLinkLaunch() bool {
	return l.MessageType() == MessageTypeDeepLink
}

// Sub returns the subject (platform user id) of the launch.
func (l *LaunchState) Sub() string {
	s, _ := l.Claims["sub"].(string)
	return s
}

// Name returns the user's display name, when the platform shared it.
func (l *LaunchState) Name() string {
	s, _ := l.Claims["name"].(string)
	return s
}

// DeploymentID returns the deployment id claim.
func (l *LaunchState) DeploymentID() string {
	s, _ := l.Claims[ClaimDeploymentID].(string)
	return s
}

// Roles returns the role URIs of the launching user.
func (l *LaunchState) Roles() []string {
	raw, _ := l.Claims[ClaimRoles].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ResourceLinkID returns the id of the resource link claim, or "".
func (l *LaunchState) ResourceLinkID() string {
	rl, _ := l.Claims[ClaimResourceLink].(map[string]any)
	s, _ := rl["id"].(string)
	return s
}

// CustomClaim returns one entry of the custom-parameters claim, or "".
func (l *LaunchState) CustomClaim(name string) string {
	custom, _ := l.Claims[ClaimCustom].(map[string]any)
	s, _ := custom[name].(string)
	return s
}

// HasAGS reports whether the platform advertised a grade service.
func (l *LaunchState) HasAGS() bool {
	_, ok := l.Claims[ClaimAGSEndpoint].(map[string]any)
	return ok
}

// HasNRPS reports whether the platform advertised a roster service.
func (l *LaunchState) HasNRPS() bool {
	m, ok := l.Claims[ClaimNRPS].(map[string]any)
	if !ok {
		return false
	}
	u, _ := m["context_memberships_url"].(string)
	return u != ""
}

func (l *LaunchState) agsEndpoint() (lineItem, lineItems string, scopes []string, ok bool) {
	m, ok := l.Claims[ClaimAGSEndpoint].(map[string]any)
	if !ok {
		return "", "", nil, false
	}
	lineItem, _ = m["lineitem"].(string)
	lineItems, _ = m["lineitems"].(string)
	if raw, ok2 := m["scope"].([]any); ok2 {
		for _, v := range raw {
			if s, ok3 := v.(string); ok3 {
				scopes = append(scopes, s)
			}
		}
	}
	return lineItem, lineItems, scopes, true
}

func (l *LaunchState) nrpsMembershipsURL() string {
	m, _ := l.Claims[ClaimNRPS].(map[string]any)
	u, _ := m["context_memberships_url"].(string)
	return u
}

func (l *LaunchState) deepLinkSettings() map[string]any {
	m, _ := l.Claims[ClaimDeepLinkSettings].(map[string]any)
	return m
}
