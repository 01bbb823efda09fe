package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nospoilers/core/internal/audit"
	"github.com/nospoilers/core/internal/authsvc"
	"github.com/nospoilers/core/internal/clock"
	"github.com/nospoilers/core/internal/contentsvc"
	"github.com/nospoilers/core/internal/cryptostore"
	"github.com/nospoilers/core/internal/idgen"
	"github.com/nospoilers/core/internal/ratelimit"
	"github.com/nospoilers/core/internal/securestore"
	"github.com/nospoilers/core/internal/telemetry"
)

func newTestServer(t *testing.T) (*Server, *clock.Fixed) {
	t.Helper()
	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	kv, err := cryptostore.New(cryptostore.NewMemoryBackend(), "test-secret-server")
	if err != nil {
		t.Fatalf("cryptostore.New: %v", err)
	}

	auditLog := audit.New(slog.New(slog.NewTextHandler(io.Discard, nil)), c, &idgen.Sequential{Prefix: "audit"})
	auditLog.Start()
	t.Cleanup(auditLog.Close)

	policy := authsvc.TransportPolicy{
		APIBaseURL:           "https://api.nospoilers.test",
		CookieName:           "ns_refresh",
		Platform:             "web",
		EnforceSecureStorage: true,
	}
	authSvc, err := authsvc.New(
		kv,
		securestore.NewMemoryStore(true),
		c,
		&idgen.Sequential{Prefix: "u"},
		ratelimit.NewMemoryLimiter(c),
		ratelimit.NewMemorySuspicionTracker(c),
		auditLog,
		policy,
		[]byte("01234567890123456789012345678901"),
	)
	if err != nil {
		t.Fatalf("authsvc.New: %v", err)
	}

	contentSvc := contentsvc.New(kv, c, &idgen.Sequential{Prefix: "c"})

	srv := NewServer(Config{
		AllowedOrigins: []string{"*"},
		CookieName:     "ns_refresh",
		DevMode:        true,
		WebPlatform:    true,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), telemetry.NewRegistry(), authSvc, contentSvc)

	return srv, c
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, path, reader)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, r)
	return w
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/healthz", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
}

func TestPhoneLoginEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	startResp := doJSON(t, srv, http.MethodPost, "/api/v1/auth/phone/start", phoneStartRequest{Phone: "+15551234567"}, "")
	if startResp.Code != http.StatusAccepted {
		t.Fatalf("start: got status %d, body %s", startResp.Code, startResp.Body.String())
	}
	var startResult authsvc.PhoneStartResult
	if err := json.Unmarshal(startResp.Body.Bytes(), &startResult); err != nil {
		t.Fatalf("unmarshal start response: %v", err)
	}
	if startResult.DevCode == "" {
		t.Fatalf("expected devCode to be present in dev mode")
	}

	verifyResp := doJSON(t, srv, http.MethodPost, "/api/v1/auth/phone/verify", phoneVerifyRequest{
		ChallengeID: startResult.ChallengeID,
		Code:        startResult.DevCode,
	}, "")
	if verifyResp.Code != http.StatusOK {
		t.Fatalf("verify: got status %d, body %s", verifyResp.Code, verifyResp.Body.String())
	}
	if cookies := verifyResp.Result().Cookies(); len(cookies) == 0 {
		t.Fatalf("expected a refresh token cookie to be set")
	}

	var loginResult authsvc.ProviderLoginResult
	if err := json.Unmarshal(verifyResp.Body.Bytes(), &loginResult); err != nil {
		t.Fatalf("unmarshal verify response: %v", err)
	}
	if loginResult.Session.AccessToken == "" {
		t.Fatalf("expected an access token")
	}

	// The newly issued access token authenticates a protected request.
	profileResp := doJSON(t, srv, http.MethodPatch, "/api/v1/auth/profile", updateProfileRequest{
		DisplayName: strPtr("Paul Atreides"),
	}, loginResult.Session.AccessToken)
	if profileResp.Code != http.StatusOK {
		t.Fatalf("update profile: got status %d, body %s", profileResp.Code, profileResp.Body.String())
	}
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, srv, http.MethodPatch, "/api/v1/auth/profile", updateProfileRequest{}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", resp.Code)
	}
}

func TestContentFlow_MarkAsReadAndFeed(t *testing.T) {
	srv, _ := newTestServer(t)

	startResp := doJSON(t, srv, http.MethodPost, "/api/v1/auth/phone/start", phoneStartRequest{Phone: "+15557654321"}, "")
	var startResult authsvc.PhoneStartResult
	_ = json.Unmarshal(startResp.Body.Bytes(), &startResult)
	verifyResp := doJSON(t, srv, http.MethodPost, "/api/v1/auth/phone/verify", phoneVerifyRequest{
		ChallengeID: startResult.ChallengeID,
		Code:        startResult.DevCode,
	}, "")
	var loginResult authsvc.ProviderLoginResult
	_ = json.Unmarshal(verifyResp.Body.Bytes(), &loginResult)
	token := loginResult.Session.AccessToken

	itemResp := doJSON(t, srv, http.MethodPost, "/api/v1/content/media", createMediaItemRequest{
		Kind: contentsvc.MediaBook, Title: "Dune",
	}, token)
	if itemResp.Code != http.StatusCreated {
		t.Fatalf("create media item: got status %d, body %s", itemResp.Code, itemResp.Body.String())
	}
	var item contentsvc.MediaItem
	_ = json.Unmarshal(itemResp.Body.Bytes(), &item)

	selResp := doJSON(t, srv, http.MethodPost, "/api/v1/content/groups/group-1/selection", selectGroupMediaRequest{
		MediaItemID: item.ID, IsActive: true,
	}, token)
	if selResp.Code != http.StatusOK {
		t.Fatalf("select group media: got status %d, body %s", selResp.Code, selResp.Body.String())
	}

	unitResp := doJSON(t, srv, http.MethodPost, "/api/v1/content/media/"+item.ID+"/units", createMediaUnitRequest{
		ReleaseOrder: 1,
	}, token)
	if unitResp.Code != http.StatusCreated {
		t.Fatalf("create unit: got status %d, body %s", unitResp.Code, unitResp.Body.String())
	}
	var unit contentsvc.MediaUnit
	_ = json.Unmarshal(unitResp.Body.Bytes(), &unit)

	postResp := doJSON(t, srv, http.MethodPost, "/api/v1/content/groups/group-1/posts", createPostRequest{
		MediaItemID: item.ID, PreviewText: "spoiler-free preview", Body: "the full spoiler", RequiredUnitID: unit.ID,
	}, token)
	if postResp.Code != http.StatusCreated {
		t.Fatalf("create post: got status %d, body %s", postResp.Code, postResp.Body.String())
	}

	markResp := doJSON(t, srv, http.MethodPost, "/api/v1/content/groups/group-1/progress/mark-read", markAsReadRequest{
		MediaItemID: item.ID, UnitID: unit.ID,
	}, token)
	if markResp.Code != http.StatusOK {
		t.Fatalf("mark as read: got status %d, body %s", markResp.Code, markResp.Body.String())
	}

	feedResp := doJSON(t, srv, http.MethodGet, "/api/v1/content/groups/group-1/media/"+item.ID+"/feed", nil, token)
	if feedResp.Code != http.StatusOK {
		t.Fatalf("feed: got status %d, body %s", feedResp.Code, feedResp.Body.String())
	}
	var feed contentsvc.FeedResponse
	if err := json.Unmarshal(feedResp.Body.Bytes(), &feed); err != nil {
		t.Fatalf("unmarshal feed: %v", err)
	}
	if len(feed.Posts) != 1 || !feed.Posts[0].Unlocked {
		t.Fatalf("expected 1 unlocked post, got %+v", feed.Posts)
	}
}

func strPtr(s string) *string { return &s }
