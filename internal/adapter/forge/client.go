// Package forge is the GitHub REST API adapter: it turns domain-level
// review outcomes into forge API calls, with per-installation circuit
// breaking and retry/backoff shared across every request method.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bkyoung/prreview/internal/adapter/credential"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
)

// TokenSource resolves the installation credential to authenticate
// requests with. credential.Cache satisfies this.
type TokenSource interface {
	Get(ctx context.Context, installationID int64) (credential.Credential, error)
}

// Client is a GitHub REST client scoped to one installation at a time;
// callers pass the installation ID per call so a single Client can
// serve every tenant sharing a process.
type Client struct {
	tokens     TokenSource
	baseURL    string
	httpClient *http.Client
	retryConf  RetryConfig
	breakers   *BreakerManager
}

// NewClient builds a Client backed by tokens for credential resolution
// and breakers for per-installation circuit breaking.
func NewClient(tokens TokenSource, breakers *BreakerManager) *Client {
	return &Client{
		tokens:     tokens,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf:  DefaultRetryConfig(),
		breakers:   breakers,
	}
}

func (c *Client) SetBaseURL(baseURL string)         { c.baseURL = strings.TrimRight(baseURL, "/") }
func (c *Client) SetTimeout(timeout time.Duration)  { c.httpClient.Timeout = timeout }
func (c *Client) SetMaxRetries(maxRetries int)      { c.retryConf.MaxRetries = maxRetries }
func (c *Client) SetInitialBackoff(d time.Duration) { c.retryConf.InitialBackoff = d }

// do executes req with retry/backoff and per-installation circuit
// breaking, returning the raw response on success. The caller owns
// closing resp.Body.
func (c *Client) do(ctx context.Context, installationID int64, method, reqURL string, body []byte) (*http.Response, error) {
	cred, err := c.tokens.Get(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("forge: resolve credential: %w", err)
	}

	var resp *http.Response
	runRequest := func() error {
		result, breakerErr := c.breakers.Execute(installationID, func() (any, error) {
			var reader io.Reader
			if body != nil {
				reader = bytes.NewReader(body)
			}
			req, reqErr := http.NewRequestWithContext(ctx, method, reqURL, reader)
			if reqErr != nil {
				return nil, &Error{Type: ErrTypeUnknown, Message: reqErr.Error(), Retryable: false}
			}
			req.Header.Set("Authorization", "Bearer "+cred.Token)
			req.Header.Set("Accept", "application/vnd.github+json")
			req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			httpResp, callErr := c.httpClient.Do(req)
			if callErr != nil {
				return nil, &Error{Type: ErrTypeTimeout, Message: callErr.Error(), Retryable: true}
			}

			if httpResp.StatusCode >= 400 {
				bodyBytes, readErr := io.ReadAll(httpResp.Body)
				httpResp.Body.Close()
				if readErr != nil {
					return nil, &Error{
						Type:       ErrTypeUnknown,
						Message:    fmt.Sprintf("HTTP %d (failed to read response: %v)", httpResp.StatusCode, readErr),
						StatusCode: httpResp.StatusCode,
						Retryable:  httpResp.StatusCode >= 500,
					}
				}
				return nil, MapHTTPError(httpResp.StatusCode, bodyBytes)
			}
			return httpResp, nil
		})
		if breakerErr != nil {
			return breakerErr
		}
		resp = result.(*http.Response)
		return nil
	}

	if err := RetryWithBackoff(ctx, func(ctx context.Context) error { return runRequest() }, c.retryConf); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateReview posts a pull request review. Only findings with
// InDiff() true are posted as inline comments; the rest are expected
// to already be folded into input.Summary by the caller.
func (c *Client) CreateReview(ctx context.Context, installationID int64, input CreateReviewInput) (*CreateReviewResponse, error) {
	reqBody := CreateReviewRequest{
		CommitID: input.CommitSHA,
		Event:    input.Event,
		Body:     input.Summary,
		Comments: BuildReviewComments(input.Findings),
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("forge: marshal review: %w", err)
	}

	apiURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews",
		c.baseURL, url.PathEscape(input.Owner), url.PathEscape(input.Repo), input.PullNumber)

	resp, err := c.do(ctx, installationID, http.MethodPost, apiURL, jsonData)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out CreateReviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("forge: decode review response: %w", err)
	}
	return &out, nil
}

// PostIssueComment replies in a review thread (when inReplyTo is set)
// or posts a top-level conversation comment.
func (c *Client) PostIssueComment(ctx context.Context, installationID int64, owner, repo string, pullNumber int, body string, inReplyTo int64) (*IssueComment, error) {
	var apiURL string
	payload := map[string]any{"body": body}
	if inReplyTo != 0 {
		apiURL = fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments/%d/replies",
			c.baseURL, url.PathEscape(owner), url.PathEscape(repo), pullNumber, inReplyTo)
	} else {
		apiURL = fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments",
			c.baseURL, url.PathEscape(owner), url.PathEscape(repo), pullNumber)
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("forge: marshal comment: %w", err)
	}

	resp, err := c.do(ctx, installationID, http.MethodPost, apiURL, jsonData)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out IssueComment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("forge: decode comment response: %w", err)
	}
	return &out, nil
}

// GetPullRequestDiff fetches the unified diff for a pull request.
func (c *Client) GetPullRequestDiff(ctx context.Context, installationID int64, owner, repo string, pullNumber int) (string, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, url.PathEscape(owner), url.PathEscape(repo), pullNumber)

	cred, err := c.tokens.Get(ctx, installationID)
	if err != nil {
		return "", fmt.Errorf("forge: resolve credential: %w", err)
	}

	var diff string
	op := func(ctx context.Context) error {
		result, breakerErr := c.breakers.Execute(installationID, func() (any, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
			if reqErr != nil {
				return nil, &Error{Type: ErrTypeUnknown, Message: reqErr.Error(), Retryable: false}
			}
			req.Header.Set("Authorization", "Bearer "+cred.Token)
			req.Header.Set("Accept", "application/vnd.github.v3.diff")

			httpResp, callErr := c.httpClient.Do(req)
			if callErr != nil {
				return nil, &Error{Type: ErrTypeTimeout, Message: callErr.Error(), Retryable: true}
			}
			defer httpResp.Body.Close()

			bodyBytes, readErr := io.ReadAll(httpResp.Body)
			if readErr != nil {
				return nil, &Error{Type: ErrTypeUnknown, Message: readErr.Error(), Retryable: true}
			}
			if httpResp.StatusCode >= 400 {
				return nil, MapHTTPError(httpResp.StatusCode, bodyBytes)
			}
			return string(bodyBytes), nil
		})
		if breakerErr != nil {
			return breakerErr
		}
		diff = result.(string)
		return nil
	}

	if err := RetryWithBackoff(ctx, op, c.retryConf); err != nil {
		return "", err
	}
	return diff, nil
}

// GetFileContent fetches a file's raw bytes at a given ref via the
// contents API. Used by S0 to stage files for the external static
// analyzer and by the conversation tracker to re-fetch current content
// before a handler regenerates a suggestion.
func (c *Client) GetFileContent(ctx context.Context, installationID int64, owner, repo, path, ref string) ([]byte, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), path, url.QueryEscape(ref))

	cred, err := c.tokens.Get(ctx, installationID)
	if err != nil {
		return nil, fmt.Errorf("forge: resolve credential: %w", err)
	}

	var content []byte
	op := func(ctx context.Context) error {
		result, breakerErr := c.breakers.Execute(installationID, func() (any, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
			if reqErr != nil {
				return nil, &Error{Type: ErrTypeUnknown, Message: reqErr.Error(), Retryable: false}
			}
			req.Header.Set("Authorization", "Bearer "+cred.Token)
			req.Header.Set("Accept", "application/vnd.github.v3.raw")

			httpResp, callErr := c.httpClient.Do(req)
			if callErr != nil {
				return nil, &Error{Type: ErrTypeTimeout, Message: callErr.Error(), Retryable: true}
			}
			defer httpResp.Body.Close()

			bodyBytes, readErr := io.ReadAll(httpResp.Body)
			if readErr != nil {
				return nil, &Error{Type: ErrTypeUnknown, Message: readErr.Error(), Retryable: true}
			}
			if httpResp.StatusCode >= 400 {
				return nil, MapHTTPError(httpResp.StatusCode, bodyBytes)
			}
			return bodyBytes, nil
		})
		if breakerErr != nil {
			return breakerErr
		}
		content = result.([]byte)
		return nil
	}

	if err := RetryWithBackoff(ctx, op, c.retryConf); err != nil {
		return nil, err
	}
	return content, nil
}

// ReviewSummary is one historical review on a pull request, used by
// the conversation tracker to find the review a reply belongs to.
type ReviewSummary struct {
	ID          int64  `json:"id"`
	User        User   `json:"user"`
	State       string `json:"state"`
	SubmittedAt string `json:"submitted_at"`
}

// ListReviews returns every review on a pull request, oldest first.
func (c *Client) ListReviews(ctx context.Context, installationID int64, owner, repo string, pullNumber int) ([]ReviewSummary, error) {
	var all []ReviewSummary
	nextURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews?per_page=100",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), pullNumber)

	for nextURL != "" {
		resp, err := c.do(ctx, installationID, http.MethodGet, nextURL, nil)
		if err != nil {
			return nil, err
		}

		var page []ReviewSummary
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		next := nextPageURL(resp.Header.Get("Link"))
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("forge: decode reviews page: %w", decodeErr)
		}

		all = append(all, page...)
		nextURL = next
	}

	sort.Slice(all, func(i, j int) bool {
		ti, errI := time.Parse(time.RFC3339, all[i].SubmittedAt)
		tj, errJ := time.Parse(time.RFC3339, all[j].SubmittedAt)
		if errI == nil && errJ == nil {
			return ti.Before(tj)
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

// nextPageURL extracts the rel="next" URL from a GitHub Link header.
func nextPageURL(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	for _, part := range strings.Split(linkHeader, ",") {
		segments := strings.Split(strings.TrimSpace(part), ";")
		if len(segments) < 2 {
			continue
		}
		if strings.TrimSpace(segments[1]) != `rel="next"` {
			continue
		}
		raw := strings.TrimSpace(segments[0])
		return strings.Trim(strings.Trim(raw, "<"), ">")
	}
	return ""
}
