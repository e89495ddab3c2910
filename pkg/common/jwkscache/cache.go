package jwkscache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Cache retrieves platform key sets with HTTP caching semantics. Launch
// validation hits this on every launch, so honoring Cache-Control/ETag
// keeps us from hammering platform JWKS endpoints.
type Cache interface {
	Get(ctx context.Context, url string) (jwk.Set, error)
	Invalidate(url string)
}

type entry struct {
	set             jwk.Set
	expiry          time.Time
	allowStaleUntil time.Time
	etag            string
}

type memoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	client     *http.Client
	defaultTTL time.Duration
	staleGrace time.Duration
}

// New creates an in-memory JWKS cache. defaultTTL applies when the response
// carries no caching directives; staleGrace allows serving a stale set when
// a refresh fails transiently.
func New(defaultTTL, staleGrace time.Duration) Cache {
	return NewWithClient(defaultTTL, staleGrace, &http.Client{Timeout: 5 * time.Second})
}

// NewWithClient is New with an explicit HTTP client (used by tests).
func NewWithClient(defaultTTL, staleGrace time.Duration, client *http.Client) Cache {
	return &memoryCache{
		entries:    make(map[string]*entry),
		client:     client,
		defaultTTL: defaultTTL,
		staleGrace: staleGrace,
	}
}

func (c *memoryCache) Invalidate(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}

func (c *memoryCache) Get(ctx context.Context, url string) (jwk.Set, error) {
	c.mu.RLock()
	e := c.entries[url]
	fresh := e != nil && e.set != nil && time.Now().Before(e.expiry)
	c.mu.RUnlock()
	if fresh {
		return e.set, nil
	}
	return c.refresh(ctx, url, e)
}

func (c *memoryCache) refresh(ctx context.Context, url string, prev *entry) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.etag != "" {
		req.Header.Set("If-None-Match", prev.etag)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if set := staleSet(prev); set != nil {
			return set, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if prev == nil || prev.set == nil {
			return nil, errors.New("jwkscache: 304 without cached entry")
		}
		exp, stale := c.computeExpiry(resp.Header)
		c.mu.Lock()
		prev.expiry = exp
		prev.allowStaleUntil = stale
		c.mu.Unlock()
		return prev.set, nil
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		set, err := jwk.Parse(body)
		if err != nil {
			return nil, err
		}
		e := &entry{set: set, etag: resp.Header.Get("ETag")}
		e.expiry, e.allowStaleUntil = c.computeExpiry(resp.Header)
		c.mu.Lock()
		c.entries[url] = e
		c.mu.Unlock()
		return set, nil
	default:
		if set := staleSet(prev); set != nil {
			return set, nil
		}
		return nil, fmt.Errorf("jwkscache: unexpected status %d from %s", resp.StatusCode, url)
	}
}

func staleSet(e *entry) jwk.Set {
	if e != nil && e.set != nil && time.Now().Before(e.allowStaleUntil) {
		return e.set
	}
	return nil
}

func (c *memoryCache) computeExpiry(h http.Header) (expiry, allowStaleUntil time.Time) {
	now := time.Now()
	for _, part := range strings.Split(h.Get("Cache-Control"), ",") {
		p := strings.TrimSpace(strings.ToLower(part))
		if p == "no-store" {
			return now, now
		}
		if v, ok := strings.CutPrefix(p, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil {
				exp := now.Add(time.Duration(secs) * time.Second)
				return exp, exp.Add(c.staleGrace)
			}
		}
	}
	if expStr := h.Get("Expires"); expStr != "" {
		if t, err := time.Parse(http.TimeFormat, expStr); err == nil {
			return t, t.Add(c.staleGrace)
		}
	}
	exp := now.Add(c.defaultTTL)
	return exp, exp.Add(c.staleGrace)
}
