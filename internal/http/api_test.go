package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"support-copilot/internal/auth"
	"support-copilot/internal/callout"
	"support-copilot/internal/domain"
	"support-copilot/internal/llm"
	"support-copilot/internal/repository/sqlite"
	"support-copilot/internal/service"
)

type stubGateway struct{}

func (stubGateway) Complete(_ context.Context, messages []domain.Message) (string, error) {
	return "re:" + messages[len(messages)-1].Content, nil
}

type failingGateway struct{}

func (failingGateway) Complete(context.Context, []domain.Message) (string, error) {
	return "", fmt.Errorf("%w: provider down", llm.ErrGateway)
}

func newTestRouter(t *testing.T, gateway llm.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	convRepo := sqlite.NewConversationRepository(db)
	if err := userRepo.Init(context.Background()); err != nil {
		t.Fatalf("init users: %v", err)
	}
	if err := convRepo.Init(context.Background()); err != nil {
		t.Fatalf("init conversations: %v", err)
	}

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}

	handler := NewHandler(
		service.NewUserService(userRepo),
		service.NewChatService(convRepo, gateway),
		tokens,
		callout.NewMeetingLinker(""),
		nil,
		nil,
	)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode response %s: %v", data, err)
	}
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status %d, want %d; body: %s", w.Code, want, w.Body.String())
	}
}

func registerAndLogin(t *testing.T, router *gin.Engine, username, password string) (int64, map[string]string) {
	t.Helper()
	regResp := doJSONRequest(t, router, http.MethodPost, "/api/auth/register",
		map[string]string{"username": username, "password": password}, nil)
	assertStatus(t, regResp, http.StatusCreated)

	loginResp := doJSONRequest(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, nil)
	assertStatus(t, loginResp, http.StatusOK)

	var loginBody struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
	}
	decodeJSON(t, loginResp.Body.Bytes(), &loginBody)
	if loginBody.AccessToken == "" {
		t.Fatalf("expected access token from login")
	}
	return loginBody.UserID, map[string]string{"Authorization": "Bearer " + loginBody.AccessToken}
}

func TestEndToEndChatFlow(t *testing.T) {
	router := newTestRouter(t, stubGateway{})

	userID, authHeader := registerAndLogin(t, router, "alice", "pw1")
	if userID == 0 {
		t.Fatalf("expected user id in login response")
	}

	// identity endpoint
	meResp := doJSONRequest(t, router, http.MethodGet, "/api/auth/me", nil, authHeader)
	assertStatus(t, meResp, http.StatusOK)
	var meBody struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	decodeJSON(t, meResp.Body.Bytes(), &meBody)
	if meBody.ID != userID || meBody.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", meBody)
	}

	// chat turn
	chatResp := doJSONRequest(t, router, http.MethodPost, "/api/llm",
		map[string]string{"message": "ping"}, authHeader)
	assertStatus(t, chatResp, http.StatusOK)
	var chatBody struct {
		Reply string `json:"reply"`
	}
	decodeJSON(t, chatResp.Body.Bytes(), &chatBody)
	if chatBody.Reply != "re:ping" {
		t.Fatalf("unexpected reply: %q", chatBody.Reply)
	}

	// history reflects the stored turn
	histResp := doJSONRequest(t, router, http.MethodGet, "/api/llm/history", nil, authHeader)
	assertStatus(t, histResp, http.StatusOK)
	var histBody struct {
		History []domain.Message `json:"history"`
	}
	decodeJSON(t, histResp.Body.Bytes(), &histBody)
	if len(histBody.History) != 2 ||
		histBody.History[0] != (domain.Message{Role: domain.RoleUser, Content: "ping"}) ||
		histBody.History[1] != (domain.Message{Role: domain.RoleAssistant, Content: "re:ping"}) {
		t.Fatalf("unexpected history: %+v", histBody.History)
	}

	// technician meeting link
	callResp := doJSONRequest(t, router, http.MethodGet, "/api/call/call-technician", nil, authHeader)
	assertStatus(t, callResp, http.StatusOK)
	var callBody struct {
		JitsiURL string `json:"jitsi_url"`
	}
	decodeJSON(t, callResp.Body.Bytes(), &callBody)
	if !strings.HasPrefix(callBody.JitsiURL, "https://meet.jit.si/technician-call-") {
		t.Fatalf("unexpected jitsi url: %s", callBody.JitsiURL)
	}
}

func TestRegisterDuplicateReturnsBadRequest(t *testing.T) {
	router := newTestRouter(t, stubGateway{})

	first := doJSONRequest(t, router, http.MethodPost, "/api/auth/register",
		map[string]string{"username": "alice", "password": "pw1"}, nil)
	assertStatus(t, first, http.StatusCreated)

	second := doJSONRequest(t, router, http.MethodPost, "/api/auth/register",
		map[string]string{"username": "alice", "password": "pw2"}, nil)
	assertStatus(t, second, http.StatusBadRequest)
}

func TestLoginBadCredentials(t *testing.T) {
	router := newTestRouter(t, stubGateway{})

	reg := doJSONRequest(t, router, http.MethodPost, "/api/auth/register",
		map[string]string{"username": "alice", "password": "pw1"}, nil)
	assertStatus(t, reg, http.StatusCreated)

	login := doJSONRequest(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "alice", "password": "wrongpw"}, nil)
	assertStatus(t, login, http.StatusUnauthorized)
}

func TestRegisterAcceptsEmailIDField(t *testing.T) {
	router := newTestRouter(t, stubGateway{})

	reg := doJSONRequest(t, router, http.MethodPost, "/api/auth/register",
		map[string]string{"emailId": "alice@example.com", "password": "pw1"}, nil)
	assertStatus(t, reg, http.StatusCreated)

	login := doJSONRequest(t, router, http.MethodPost, "/api/auth/login",
		map[string]string{"emailId": "alice@example.com", "password": "pw1"}, nil)
	assertStatus(t, login, http.StatusOK)
}

func TestChatRequiresToken(t *testing.T) {
	router := newTestRouter(t, stubGateway{})

	resp := doJSONRequest(t, router, http.MethodPost, "/api/llm",
		map[string]string{"message": "ping"}, nil)
	assertStatus(t, resp, http.StatusUnauthorized)

	resp = doJSONRequest(t, router, http.MethodPost, "/api/llm",
		map[string]string{"message": "ping"},
		map[string]string{"Authorization": "Bearer garbage"})
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestChatEmptyMessage(t *testing.T) {
	router := newTestRouter(t, stubGateway{})
	_, authHeader := registerAndLogin(t, router, "alice", "pw1")

	resp := doJSONRequest(t, router, http.MethodPost, "/api/llm",
		map[string]string{"message": "  "}, authHeader)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestChatGatewayFailure(t *testing.T) {
	router := newTestRouter(t, failingGateway{})
	_, authHeader := registerAndLogin(t, router, "alice", "pw1")

	resp := doJSONRequest(t, router, http.MethodPost, "/api/llm",
		map[string]string{"message": "ping"}, authHeader)
	assertStatus(t, resp, http.StatusBadGateway)
}

func TestCallTechnicianUnconfigured(t *testing.T) {
	router := newTestRouter(t, stubGateway{})
	_, authHeader := registerAndLogin(t, router, "alice", "pw1")

	resp := doJSONRequest(t, router, http.MethodPost, "/api/call/call-technician",
		map[string]string{"phone": "+15550001111"}, authHeader)
	assertStatus(t, resp, http.StatusServiceUnavailable)
}

func TestArchiveUnconfigured(t *testing.T) {
	router := newTestRouter(t, stubGateway{})
	_, authHeader := registerAndLogin(t, router, "alice", "pw1")

	resp := doJSONRequest(t, router, http.MethodPost, "/api/llm/archive", nil, authHeader)
	assertStatus(t, resp, http.StatusServiceUnavailable)
}
