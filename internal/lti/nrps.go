package lti

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quipper/poc/lti/tool/pkg/common/logger"
	platformsRepo "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

const contentTypeMembershipContainer = "application/vnd.ims.lti-nrps.v2.membershipcontainer+json"

// Member is one context membership returned by the roster service.
type Member struct {
	UserID     string   `json:"user_id"`
	Name       string   `json:"name,omitempty"`
	GivenName  string   `json:"given_name,omitempty"`
	FamilyName string   `json:"family_name,omitempty"`
	Email      string   `json:"email,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	Status     string   `json:"status,omitempty"`
}

// NRPS is a client for the platform's Names and Role Provisioning Service,
// scoped to one launch's context memberships URL.
type NRPS struct {
	tool           *Tool
	platform       *platformsRepo.Platform
	membershipsURL string
}

// NRPS returns a roster client for the launch, or ErrNoNRPS when the
// platform did not advertise one.
func (t *Tool) NRPS(ctx context.Context, launch *LaunchState) (*NRPS, error) {
	u := launch.nrpsMembershipsURL()
	if u == "" {
		return nil, ErrNoNRPS
	}
	platform, err := t.platforms.GetPlatform(ctx, launch.Issuer, launch.ClientID)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, fmt.Errorf("%w: iss=%s", ErrUnknownPlatform, launch.Issuer)
	}
	return &NRPS{tool: t, platform: platform, membershipsURL: u}, nil
}

// GetMembers fetches the full context roster, following Link rel="next"
// pagination.
func (n *NRPS) GetMembers(ctx context.Context) ([]Member, error) {
	token, err := n.tool.accessToken(ctx, n.platform, []string{ScopeNRPSMembership})
	if err != nil {
		return nil, err
	}

	var members []Member
	next := n.membershipsURL
	for next != "" {
		resp, err := n.tool.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("Accept", contentTypeMembershipContainer).
			Get(next)
		if err != nil {
			return nil, fmt.Errorf("get members: %w", err)
		}
		if !resp.IsSuccess() {
			return nil, &ServiceError{URL: next, Status: resp.StatusCode(), Body: resp.String()}
		}
		var container struct {
			Members []Member `json:"members"`
		}
		if err := json.Unmarshal(resp.Body(), &container); err != nil {
			return nil, fmt.Errorf("decode membership container: %w", err)
		}
		members = append(members, container.Members...)
		next = nextLink(resp.Header().Values("Link"))
	}
	logger.Debug("GetMembers: fetched %d members from %s", len(members), n.membershipsURL)
	return members, nil
}

// nextLink extracts the rel="next" target from Link headers.
func nextLink(headers []string) string {
	for _, h := range headers {
		for _, part := range strings.Split(h, ",") {
			seg := strings.Split(part, ";")
			if len(seg) < 2 {
				continue
			}
			target := strings.Trim(strings.TrimSpace(seg[0]), "<>")
			for _, attr := range seg[1:] {
				attr = strings.TrimSpace(attr)
				if attr == `rel="next"` || attr == "rel=next" {
					return target
				}
			}
		}
	}
	return ""
}
