// Package credential manages the two-tier GitHub App credential flow:
// a short-lived process credential (the App JWT) is exchanged for an
// hour-long installation credential, which is cached until shortly
// before it expires and refreshed with refresh calls coalesced across
// concurrent callers.
package credential

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second

	// refreshMargin is subtracted from GitHub's reported expiry so a
	// cached credential is never handed out close enough to its
	// deadline that it could expire mid-request.
	refreshMargin = 2 * time.Minute

	cacheKeyPrefix = "prreview:installation-credential:"
)

// Credential is an installation access token and the time it expires.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c Credential) usableUntil() time.Time {
	return c.ExpiresAt.Add(-refreshMargin)
}

// Cache exchanges process credentials for installation credentials and
// caches them in Redis, keyed by installation ID. Concurrent requests
// for the same installation while no valid credential is cached are
// coalesced into a single exchange call via singleflight.
type Cache struct {
	appID      int64
	privateKey *rsa.PrivateKey
	baseURL    string
	httpClient *http.Client
	redis      *redis.Client
	group      singleflight.Group
}

// New builds a Cache for the given GitHub App ID and private key,
// backed by rdb for cross-process sharing.
func New(appID int64, privateKey *rsa.PrivateKey, rdb *redis.Client) *Cache {
	return &Cache{
		appID:      appID,
		privateKey: privateKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		redis:      rdb,
	}
}

// SetBaseURL overrides the GitHub API base URL, used in tests against
// a local server.
func (c *Cache) SetBaseURL(baseURL string) { c.baseURL = strings.TrimRight(baseURL, "/") }

// SetHTTPClient overrides the HTTP client used for token exchange.
func (c *Cache) SetHTTPClient(client *http.Client) { c.httpClient = client }

// Get returns a usable installation credential for installationID,
// serving from cache when the cached credential has more than
// refreshMargin left on its lifetime and otherwise exchanging for a
// fresh one.
func (c *Cache) Get(ctx context.Context, installationID int64) (Credential, error) {
	if cred, ok := c.lookup(ctx, installationID); ok {
		return cred, nil
	}

	key := fmt.Sprintf("%d", installationID)
	result, err, _ := c.group.Do(key, func() (any, error) {
		if cred, ok := c.lookup(ctx, installationID); ok {
			return cred, nil
		}
		return c.exchange(ctx, installationID)
	})
	if err != nil {
		return Credential{}, err
	}
	return result.(Credential), nil
}

func (c *Cache) lookup(ctx context.Context, installationID int64) (Credential, bool) {
	raw, err := c.redis.Get(ctx, cacheKey(installationID)).Bytes()
	if err != nil {
		return Credential{}, false
	}

	var cred Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return Credential{}, false
	}
	if time.Now().After(cred.usableUntil()) {
		return Credential{}, false
	}
	return cred, true
}

func (c *Cache) exchange(ctx context.Context, installationID int64) (Credential, error) {
	processCredential, err := SignProcessCredential(c.appID, c.privateKey)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: sign process credential: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", c.baseURL, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: build exchange request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+processCredential)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: exchange request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return Credential{}, fmt.Errorf("credential: exchange returned %d", resp.StatusCode)
	}

	var body struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Credential{}, fmt.Errorf("credential: decode exchange response: %w", err)
	}

	cred := Credential{Token: body.Token, ExpiresAt: body.ExpiresAt}
	c.store(ctx, installationID, cred)
	return cred, nil
}

func (c *Cache) store(ctx context.Context, installationID int64, cred Credential) {
	raw, err := json.Marshal(cred)
	if err != nil {
		return
	}
	ttl := time.Until(cred.ExpiresAt)
	if ttl <= 0 {
		return
	}
	c.redis.Set(ctx, cacheKey(installationID), raw, ttl)
}

func cacheKey(installationID int64) string {
	return fmt.Sprintf("%s%d", cacheKeyPrefix, installationID)
}
