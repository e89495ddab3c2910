package lti

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/quipper/poc/lti/tool/pkg/common/logger"
	platformsRepo "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

const (
	contentTypeScore             = "application/vnd.ims.lis.v1.score+json"
	contentTypeLineItem          = "application/vnd.ims.lis.v1.lineitem+json"
	contentTypeLineItemContainer = "application/vnd.ims.lis.v1.lineitemcontainer+json"
	contentTypeResultContainer   = "application/vnd.ims.lis.v2.resultcontainer+json"
)

// Grade is one score submission, sent to the platform and then discarded.
type Grade struct {
	ScoreGiven       float64 `json:"scoreGiven"`
	ScoreMaximum     float64 `json:"scoreMaximum"`
	ActivityProgress string  `json:"activityProgress,omitempty"`
	GradingProgress  string  `json:"gradingProgress,omitempty"`
	Timestamp        string  `json:"timestamp,omitempty"`
	UserID           string  `json:"userId"`
	Comment          string  `json:"comment,omitempty"`
}

// LineItem describes a gradebook column on the platform.
type LineItem struct {
	ID             string  `json:"id,omitempty"`
	Label          string  `json:"label,omitempty"`
	ScoreMaximum   float64 `json:"scoreMaximum"`
	ResourceID     string  `json:"resourceId,omitempty"`
	ResourceLinkID string  `json:"resourceLinkId,omitempty"`
	Tag            string  `json:"tag,omitempty"`
}

// Result is one user's recorded result for a line item.
type Result struct {
	ID            string   `json:"id,omitempty"`
	UserID        string   `json:"userId"`
	ResultScore   *float64 `json:"resultScore,omitempty"`
	ResultMaximum *float64 `json:"resultMaximum,omitempty"`
	Comment       string   `json:"comment,omitempty"`
}

// AGS is a client for the platform's Assignment and Grade Services,
// scoped to one launch's advertised endpoints.
type AGS struct {
	tool      *Tool
	platform  *platformsRepo.Platform
	lineItem  string
	lineItems string
	scopes    []string
}

// AGS returns a grade-service client for the launch, or ErrNoAGS when the
// platform did not advertise one.
func (t *Tool) AGS(ctx context.Context, launch *LaunchState) (*AGS, error) {
	lineItem, lineItems, scopes, ok := launch.agsEndpoint()
	if !ok {
		return nil, ErrNoAGS
	}
	platform, err := t.platforms.GetPlatform(ctx, launch.Issuer, launch.ClientID)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, fmt.Errorf("%w: iss=%s", ErrUnknownPlatform, launch.Issuer)
	}
	return &AGS{tool: t, platform: platform, lineItem: lineItem, lineItems: lineItems, scopes: scopes}, nil
}

// CanCreateLineItem reports whether the launch granted the lineitem
// (write) scope and a container endpoint to create into.
func (a *AGS) CanCreateLineItem() bool {
	if a.lineItems == "" {
		return false
	}
	for _, s := range a.scopes {
		if s == ScopeAGSLineItem {
			return true
		}
	}
	return false
}

// FindOrCreateLineItem looks the line item up by tag in the container and
// creates it when absent. Requires the lineitem scope.
func (a *AGS) FindOrCreateLineItem(ctx context.Context, li LineItem) (*LineItem, error) {
	token, err := a.tool.accessToken(ctx, a.platform, []string{ScopeAGSLineItem})
	if err != nil {
		return nil, err
	}

	listURL := a.lineItems
	if li.Tag != "" {
		if u, perr := url.Parse(a.lineItems); perr == nil {
			q := u.Query()
			q.Set("tag", li.Tag)
			u.RawQuery = q.Encode()
			listURL = u.String()
		}
	}
	resp, err := a.tool.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Accept", contentTypeLineItemContainer).
		Get(listURL)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &ServiceError{URL: listURL, Status: resp.StatusCode(), Body: resp.String()}
	}
	var existing []LineItem
	if err := json.Unmarshal(resp.Body(), &existing); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	for i := range existing {
		if existing[i].Tag == li.Tag {
			logger.Debug("FindOrCreateLineItem: found tag=%q id=%s", li.Tag, existing[i].ID)
			return &existing[i], nil
		}
	}

	resp, err = a.tool.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", contentTypeLineItem).
		SetBody(li).
		Post(a.lineItems)
	if err != nil {
		return nil, fmt.Errorf("create line item: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &ServiceError{URL: a.lineItems, Status: resp.StatusCode(), Body: resp.String()}
	}
	var created LineItem
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, fmt.Errorf("decode created line item: %w", err)
	}
	logger.Debug("FindOrCreateLineItem: created tag=%q id=%s", li.Tag, created.ID)
	return &created, nil
}

// PutGrade posts a score to the launch's default line item.
func (a *AGS) PutGrade(ctx context.Context, g Grade) (string, error) {
	if a.lineItem == "" {
		return "", fmt.Errorf("%w: no default line item in launch", ErrNoAGS)
	}
	return a.postScore(ctx, a.lineItem, g)
}

// PutGradeToLineItem finds or creates the given line item, then posts the
// score to it.
func (a *AGS) PutGradeToLineItem(ctx context.Context, g Grade, li LineItem) (string, error) {
	target, err := a.FindOrCreateLineItem(ctx, li)
	if err != nil {
		return "", err
	}
	return a.postScore(ctx, target.ID, g)
}

func (a *AGS) postScore(ctx context.Context, lineItemURL string, g Grade) (string, error) {
	token, err := a.tool.accessToken(ctx, a.platform, []string{ScopeAGSScore})
	if err != nil {
		return "", err
	}
	scoresURL := serviceURL(lineItemURL, "/scores")
	resp, err := a.tool.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", contentTypeScore).
		SetBody(g).
		Post(scoresURL)
	if err != nil {
		return "", fmt.Errorf("post score: %w", err)
	}
	if !resp.IsSuccess() {
		return "", &ServiceError{URL: scoresURL, Status: resp.StatusCode(), Body: resp.String()}
	}
	logger.Debug("postScore: user=%s score=%v url=%s", g.UserID, g.ScoreGiven, scoresURL)
	return resp.String(), nil
}

// GetGrades reads results from the launch's default line item.
func (a *AGS) GetGrades(ctx context.Context) ([]Result, error) {
	if a.lineItem == "" {
		return nil, fmt.Errorf("%w: no default line item in launch", ErrNoAGS)
	}
	return a.getResults(ctx, a.lineItem)
}

// GetGradesForLineItem reads results scoped to the given line item.
func (a *AGS) GetGradesForLineItem(ctx context.Context, li *LineItem) ([]Result, error) {
	if li == nil || li.ID == "" {
		return nil, fmt.Errorf("line item has no id")
	}
	return a.getResults(ctx, li.ID)
}

func (a *AGS) getResults(ctx context.Context, lineItemURL string) ([]Result, error) {
	token, err := a.tool.accessToken(ctx, a.platform, []string{ScopeAGSResultRead})
	if err != nil {
		return nil, err
	}
	resultsURL := serviceURL(lineItemURL, "/results")
	resp, err := a.tool.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Accept", contentTypeResultContainer).
		Get(resultsURL)
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &ServiceError{URL: resultsURL, Status: resp.StatusCode(), Body: resp.String()}
	}
	var out []Result
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return out, nil
}
