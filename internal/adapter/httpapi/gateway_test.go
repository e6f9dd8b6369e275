package httpapi_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/prreview/internal/adapter/httpapi"
	"github.com/bkyoung/prreview/internal/config"
	"github.com/bkyoung/prreview/internal/domain"
	"github.com/bkyoung/prreview/internal/ingest"
	"github.com/bkyoung/prreview/internal/scheduler"
	"github.com/bkyoung/prreview/internal/store"
)

type fakeStore struct {
	installations map[int64]domain.Installation
}

func newFakeStore() *fakeStore {
	return &fakeStore{installations: map[int64]domain.Installation{}}
}

func (s *fakeStore) UpsertInstallation(ctx context.Context, i domain.Installation) error {
	s.installations[i.ID] = i
	return nil
}
func (s *fakeStore) GetInstallation(ctx context.Context, id int64) (domain.Installation, error) {
	i, ok := s.installations[id]
	if !ok {
		return domain.Installation{}, store.ErrNotFound
	}
	return i, nil
}
func (s *fakeStore) DeactivateInstallation(ctx context.Context, id int64) error {
	i := s.installations[id]
	i.Active = false
	s.installations[id] = i
	return nil
}
func (s *fakeStore) ListActiveInstallations(ctx context.Context) ([]domain.Installation, error) {
	return nil, nil
}
func (s *fakeStore) UpsertRepository(ctx context.Context, repo domain.Repository) error { return nil }
func (s *fakeStore) GetRepository(ctx context.Context, id int64) (domain.Repository, error) {
	return domain.Repository{}, store.ErrNotFound
}
func (s *fakeStore) ListRepositoriesByInstallation(ctx context.Context, installationID int64) ([]domain.Repository, error) {
	return nil, nil
}
func (s *fakeStore) UpdateIndexStatus(ctx context.Context, repositoryID int64, status, indexedSHA string, indexedAt time.Time) error {
	return nil
}
func (s *fakeStore) CreateReview(ctx context.Context, review domain.Review) error { return nil }
func (s *fakeStore) UpdateReviewStatus(ctx context.Context, reviewID, status, stage, terminalError string) error {
	return nil
}
func (s *fakeStore) IncrementReviewCost(ctx context.Context, reviewID string, deltaMicros int64) error {
	return nil
}
func (s *fakeStore) GetReview(ctx context.Context, reviewID string) (domain.Review, error) {
	return domain.Review{}, store.ErrNotFound
}
func (s *fakeStore) GetReviewByHead(ctx context.Context, repositoryID int64, prNumber int, headSHA string) (domain.Review, error) {
	return domain.Review{}, store.ErrNotFound
}
func (s *fakeStore) CompleteReview(ctx context.Context, reviewID, status, terminalError string, findings []domain.Finding) error {
	return nil
}
func (s *fakeStore) SaveFindings(ctx context.Context, findings []domain.Finding) error { return nil }
func (s *fakeStore) UpdateFindingCommentID(ctx context.Context, findingID string, commentID int64) error {
	return nil
}
func (s *fakeStore) SetFindingApplied(ctx context.Context, findingID string, applied bool) error {
	return nil
}
func (s *fakeStore) SetFindingDismissed(ctx context.Context, findingID string, dismissed bool) error {
	return nil
}
func (s *fakeStore) GetFinding(ctx context.Context, findingID string) (domain.Finding, error) {
	return domain.Finding{}, store.ErrNotFound
}
func (s *fakeStore) GetFindingsByReview(ctx context.Context, reviewID string) ([]domain.Finding, error) {
	return nil, nil
}
func (s *fakeStore) CreateConversationThread(ctx context.Context, thread domain.ConversationThread) error {
	return nil
}
func (s *fakeStore) GetConversationThread(ctx context.Context, commentID int64) (domain.ConversationThread, error) {
	return domain.ConversationThread{}, store.ErrNotFound
}
func (s *fakeStore) AppendConversationTurn(ctx context.Context, commentID int64, turn domain.ConversationTurn, maxTurns int) error {
	return nil
}
func (s *fakeStore) Close() error { return nil }

func newTestGateway(t *testing.T, secret []byte) (*httpapi.Gateway, *fakeStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	fs := newFakeStore()

	gw, err := httpapi.NewGateway(httpapi.Deps{
		Config:        config.GatewayConfig{ResponseDeadline: "100ms", MaxBodyBytes: 1 << 20},
		WebhookSecret: secret,
		Gatekeeper: config.GatekeeperConfig{
			BotLoginSuffixes: []string{"[bot]"},
			SkipDraftPRs:     true,
			LargePRFileLimit: 200,
		},
		Queue:       scheduler.NewQueue(rdb),
		Idempotency: scheduler.NewIdempotencyKeeper(rdb),
		Store:       fs,
	})
	require.NoError(t, err)
	return gw, fs
}

func sign(secret []byte, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func pullRequestBody(t *testing.T, action string, draft bool) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"action": action,
		"pull_request": map[string]any{
			"number": 7,
			"title":  "add widget",
			"draft":  draft,
			"user":   map[string]any{"login": "octocat"},
			"head":   map[string]any{"sha": "headsha"},
			"base":   map[string]any{"sha": "basesha"},
		},
		"repository": map[string]any{
			"id":   int64(55),
			"name": "widgets",
			"owner": map[string]any{
				"login": "acme",
			},
		},
		"installation": map[string]any{"id": int64(1)},
	})
	require.NoError(t, err)
	return raw
}

func TestGateway_RejectsBadSignature(t *testing.T) {
	gw, _ := newTestGateway(t, []byte("secret"))
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	body := pullRequestBody(t, "opened", false)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook", bytes.NewReader(body))
	req.Header.Set(ingest.HeaderEvent, ingest.EventPullRequest)
	req.Header.Set(ingest.HeaderSignature, "sha256=deadbeef")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGateway_AdmitsReviewablePullRequest(t *testing.T) {
	secret := []byte("secret")
	gw, _ := newTestGateway(t, secret)
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	body := pullRequestBody(t, "opened", false)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook", bytes.NewReader(body))
	req.Header.Set(ingest.HeaderEvent, ingest.EventPullRequest)
	req.Header.Set(ingest.HeaderSignature, sign(secret, body))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateway_SkipsDraftPullRequest(t *testing.T) {
	secret := []byte("secret")
	gw, _ := newTestGateway(t, secret)
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	body := pullRequestBody(t, "opened", true)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook", bytes.NewReader(body))
	req.Header.Set(ingest.HeaderEvent, ingest.EventPullRequest)
	req.Header.Set(ingest.HeaderSignature, sign(secret, body))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	// Still acked: a skipped admission is not a delivery failure.
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateway_InstallationEventPersists(t *testing.T) {
	secret := []byte("secret")
	gw, fs := newTestGateway(t, secret)
	srv := httptest.NewServer(gw.Router())
	defer srv.Close()

	body, err := json.Marshal(map[string]any{
		"action":       "created",
		"installation": map[string]any{"id": int64(42)},
		"sender":       map[string]any{"login": "acme-admin"},
	})
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook", bytes.NewReader(body))
	req.Header.Set(ingest.HeaderEvent, ingest.EventInstallation)
	req.Header.Set(ingest.HeaderSignature, sign(secret, body))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, ok := fs.installations[42]
		return ok
	}, time.Second, 10*time.Millisecond)
}
