package lti

import (
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/quipper/poc/lti/tool/pkg/common/config"
	"github.com/quipper/poc/lti/tool/pkg/common/jwkscache"
	"github.com/quipper/poc/lti/tool/pkg/common/keys"
	launchesRepo "github.com/quipper/poc/lti/tool/pkg/repositories/launches"
	platformsRepo "github.com/quipper/poc/lti/tool/pkg/repositories/platforms"
)

// Tool bundles everything the LTI 1.3 protocol steps need: the platform
// registration store, the launch cache, the tool's signing keys, the
// platform JWKS cache and an outbound HTTP client. Handlers hold one Tool
// and call into it; nothing here is a process-wide singleton.
type Tool struct {
	cfg       *config.Config
	platforms platformsRepo.Repository
	launches  launchesRepo.Repository
	keys      *keys.Set
	jwks      jwkscache.Cache
	http      *resty.Client

	tokens *tokenCache
}

func NewTool(cfg *config.Config, platforms platformsRepo.Repository, launches launchesRepo.Repository, keySet *keys.Set, jwks jwkscache.Cache) *Tool {
	client := resty.New().SetTimeout(cfg.HTTPClientTimeout)
	return &Tool{
		cfg:       cfg,
		platforms: platforms,
		launches:  launches,
		keys:      keySet,
		jwks:      jwks,
		http:      client,
		tokens:    newTokenCache(),
	}
}

// Keys exposes the tool key set (the JWKS handler publishes it).
func (t *Tool) Keys() *keys.Set { return t.keys }

// Config exposes the tool configuration.
func (t *Tool) Config() *config.Config { return t.cfg }

// serviceURL appends a path suffix to a service URL, preserving any query
// string ("…/lineitems?type=x" + "/scores" -> "…/lineitems/scores?type=x").
func serviceURL(base, suffix string) string {
	if i := strings.Index(base, "?"); i >= 0 {
		return base[:i] + suffix + base[i:]
	}
	return base + suffix
}
