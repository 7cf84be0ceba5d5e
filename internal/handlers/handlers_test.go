package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friendgraph/backend/internal/accounts"
	"github.com/friendgraph/backend/internal/auth"
	"github.com/friendgraph/backend/internal/friends"
	"github.com/friendgraph/backend/internal/models"
	"github.com/friendgraph/backend/internal/repositories"
)

type testServer struct {
	mux   *http.ServeMux
	store *repositories.InMemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repositories.NewInMemoryStore()
	sessions := auth.NewManager(time.Minute, time.Hour, auth.NewTokenSigner("test-secret"), auth.NewInMemorySessionStore())
	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Accounts: accounts.NewAccounts(store),
		Sessions: sessions,
		Friends:  friends.NewService(store, nil),
	})
	return &testServer{mux: mux, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

// signUp registers username and returns an access token for it.
func (s *testServer) signUp(t *testing.T, username string) string {
	t.Helper()

	creds := credentialsRequest{Username: username, Password: "supersafe"}
	if rec := s.do(t, http.MethodPost, "/api/v1/users", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body)
	}

	rec := s.do(t, http.MethodPost, "/api/v1/token", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("token %s: status %d body %s", username, rec.Code, rec.Body)
	}
	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	return resp.Tokens.AccessToken
}

type envelopeBody struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Outcome string          `json:"outcome"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Code != rec.Code {
		t.Fatalf("envelope code %d does not match status %d", body.Code, rec.Code)
	}
	return body
}

func expectOutcome(t *testing.T, rec *httptest.ResponseRecorder, status int, outcome string) envelopeBody {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d got %d: %s", status, rec.Code, rec.Body)
	}
	body := decodeEnvelope(t, rec)
	if body.Outcome != outcome {
		t.Fatalf("expected outcome %q got %q", outcome, body.Outcome)
	}
	return body
}

func TestFriendshipLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")

	rec := srv.do(t, http.MethodPost, "/api/v1/applications/send", alice, sendRequest{Applicant: "bob"})
	expectOutcome(t, rec, http.StatusCreated, "request_created")

	rec = srv.do(t, http.MethodGet, "/api/v1/applications/incoming", bob, nil)
	body := expectOutcome(t, rec, http.StatusOK, "")
	var incoming []applicationView
	if err := json.Unmarshal(body.Data, &incoming); err != nil {
		t.Fatalf("decode incoming: %v", err)
	}
	if len(incoming) != 1 || incoming[0].User != "alice" || incoming[0].Applicant != "bob" {
		t.Fatalf("unexpected incoming %+v", incoming)
	}

	rec = srv.do(t, http.MethodGet, "/api/v1/status/alice", bob, nil)
	expectOutcome(t, rec, http.StatusOK, "incoming_request")
	rec = srv.do(t, http.MethodGet, "/api/v1/status/bob", alice, nil)
	expectOutcome(t, rec, http.StatusOK, "outgoing_request")

	rec = srv.do(t, http.MethodPut, "/api/v1/applications/alice", bob, map[string]bool{"accept": true})
	expectOutcome(t, rec, http.StatusCreated, "became_friends")

	rec = srv.do(t, http.MethodGet, "/api/v1/friends", alice, nil)
	body = expectOutcome(t, rec, http.StatusOK, "")
	var names []string
	if err := json.Unmarshal(body.Data, &names); err != nil {
		t.Fatalf("decode friends: %v", err)
	}
	if len(names) != 1 || names[0] != "bob" {
		t.Fatalf("expected [bob] got %v", names)
	}

	rec = srv.do(t, http.MethodPut, "/api/v1/friends/bob", alice, nil)
	expectOutcome(t, rec, http.StatusOK, "unfriended")

	rec = srv.do(t, http.MethodPut, "/api/v1/friends/bob", alice, nil)
	expectOutcome(t, rec, http.StatusBadRequest, "not_friends")

	rec = srv.do(t, http.MethodGet, "/api/v1/status/bob", alice, nil)
	expectOutcome(t, rec, http.StatusOK, "none")
}

func TestDomainErrorsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUp(t, "alice")
	srv.signUp(t, "bob")

	cases := []struct {
		name    string
		method  string
		path    string
		body    any
		status  int
		outcome string
	}{
		{"sendToSelf", http.MethodPost, "/api/v1/applications/send", sendRequest{Applicant: "alice"}, http.StatusBadRequest, "self_friend"},
		{"sendToUnknown", http.MethodPost, "/api/v1/applications/send", sendRequest{Applicant: "nobody"}, http.StatusNotFound, "user_not_found"},
		{"sendMissingApplicant", http.MethodPost, "/api/v1/applications/send", sendRequest{}, http.StatusBadRequest, "invalid_request"},
		{"respondWithoutRequest", http.MethodPut, "/api/v1/applications/bob", map[string]bool{"accept": false}, http.StatusBadRequest, "no_pending_request"},
		{"respondMissingAccept", http.MethodPut, "/api/v1/applications/bob", map[string]string{}, http.StatusBadRequest, "invalid_request"},
		{"statusUnknown", http.MethodGet, "/api/v1/status/nobody", nil, http.StatusNotFound, "user_not_found"},
		{"statusSelf", http.MethodGet, "/api/v1/status/alice", nil, http.StatusOK, "self"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(t, tc.method, tc.path, alice, tc.body)
			expectOutcome(t, rec, tc.status, tc.outcome)
		})
	}

	rec := srv.do(t, http.MethodPost, "/api/v1/applications/send", alice, sendRequest{Applicant: "bob"})
	expectOutcome(t, rec, http.StatusCreated, "request_created")
	rec = srv.do(t, http.MethodPost, "/api/v1/applications/send", alice, sendRequest{Applicant: "bob"})
	expectOutcome(t, rec, http.StatusBadRequest, "duplicate_request")
}

func TestRejectOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")

	expectOutcome(t, srv.do(t, http.MethodPost, "/api/v1/applications/send", alice, sendRequest{Applicant: "bob"}), http.StatusCreated, "request_created")
	expectOutcome(t, srv.do(t, http.MethodPut, "/api/v1/applications/alice", bob, map[string]bool{"accept": false}), http.StatusOK, "request_rejected")

	body := expectOutcome(t, srv.do(t, http.MethodGet, "/api/v1/applications/outgoing", alice, nil), http.StatusOK, "")
	if string(body.Data) != "[]" {
		t.Fatalf("expected empty outgoing list got %s", body.Data)
	}
	if requests, friendships := srv.store.Counts(); requests != 0 || friendships != 0 {
		t.Fatalf("expected empty graph got %d requests %d friendships", requests, friendships)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/friends", "", nil)
	expectOutcome(t, rec, http.StatusUnauthorized, "unauthenticated")
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate challenge")
	}

	rec = srv.do(t, http.MethodGet, "/api/v1/friends", "garbage", nil)
	expectOutcome(t, rec, http.StatusUnauthorized, "invalid_token")
}

func TestRegistrationAndTokenErrors(t *testing.T) {
	srv := newTestServer(t)
	srv.signUp(t, "alice")

	rec := srv.do(t, http.MethodPost, "/api/v1/users", "", credentialsRequest{Username: "alice", Password: "supersafe"})
	expectOutcome(t, rec, http.StatusConflict, "username_taken")

	rec = srv.do(t, http.MethodPost, "/api/v1/users", "", credentialsRequest{Username: "carol", Password: "short"})
	expectOutcome(t, rec, http.StatusBadRequest, "invalid_request")

	rec = srv.do(t, http.MethodPost, "/api/v1/token", "", credentialsRequest{Username: "alice", Password: "wrongpass"})
	expectOutcome(t, rec, http.StatusUnauthorized, "invalid_credentials")

	rec = srv.do(t, http.MethodPost, "/api/v1/token/refresh", "", refreshRequest{RefreshToken: "unknown"})
	expectOutcome(t, rec, http.StatusUnauthorized, "invalid_token")
}

func TestTokenRefreshRotates(t *testing.T) {
	srv := newTestServer(t)
	srv.signUp(t, "alice")

	rec := srv.do(t, http.MethodPost, "/api/v1/token", "", credentialsRequest{Username: "alice", Password: "supersafe"})
	var issued authResponse
	if err := json.NewDecoder(rec.Body).Decode(&issued); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = srv.do(t, http.MethodPost, "/api/v1/token/refresh", "", refreshRequest{RefreshToken: issued.Tokens.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected refresh to succeed got %d: %s", rec.Code, rec.Body)
	}

	rec = srv.do(t, http.MethodPost, "/api/v1/token/refresh", "", refreshRequest{RefreshToken: issued.Tokens.RefreshToken})
	expectOutcome(t, rec, http.StatusUnauthorized, "invalid_token")
}

type denyLimiter struct{ keys []string }

func (l *denyLimiter) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return false
}

func TestSendRateLimited(t *testing.T) {
	limiter := &denyLimiter{}
	handler := ApplicationHandler{Friends: &failingFriends{}, Limiter: limiter}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/applications/send", bytes.NewBufferString(`{"applicant":"bob"}`))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1", Username: "alice"}))
	rec := httptest.NewRecorder()
	handler.Send(rec, req)

	expectOutcome(t, rec, http.StatusTooManyRequests, "rate_limited")
	if len(limiter.keys) != 1 || limiter.keys[0] != "send:u1:192.0.2.1" {
		t.Fatalf("unexpected limiter keys %v", limiter.keys)
	}
}

type failingFriends struct {
	FriendService
	respondedTo string
}

func (f *failingFriends) RespondToRequest(_ context.Context, _, requesterUsername string, _ bool) (friends.Outcome, error) {
	f.respondedTo = requesterUsername
	return "", errors.New("connection reset by peer")
}

func (f *failingFriends) ListIncoming(context.Context, string) ([]models.FriendRequest, error) {
	return nil, errors.New("connection reset by peer")
}

func TestInfrastructureFailuresAreInternal(t *testing.T) {
	service := &failingFriends{}
	handler := ApplicationHandler{Friends: service}
	ctx := auth.WithIdentity(context.Background(), auth.Identity{UserID: "u1", Username: "alice"})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/applications/bob", bytes.NewBufferString(`{"accept":true}`)).WithContext(ctx)
	req.SetPathValue("username", "bob")
	rec := httptest.NewRecorder()
	handler.Respond(rec, req)

	body := expectOutcome(t, rec, http.StatusInternalServerError, "internal")
	if body.Status != "error" {
		t.Fatalf("expected error status got %q", body.Status)
	}
	if service.respondedTo != "bob" {
		t.Fatalf("expected path username to reach the service got %q", service.respondedTo)
	}

	rec = httptest.NewRecorder()
	handler.Incoming(rec, httptest.NewRequest(http.MethodGet, "/api/v1/applications/incoming", nil).WithContext(ctx))
	expectOutcome(t, rec, http.StatusInternalServerError, "internal")
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"remoteAddr", nil, "192.0.2.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"realIP", map[string]string{"X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}
