package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/repository"
	"github.com/Abilka94/WoW-Reg-Legion-Bot/internal/usecases"
)

type fakeBroadcaster struct {
	lastText string
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, text string) (int, int, error) {
	f.lastText = text
	return 2, 3, nil
}

func newTestServer(t *testing.T) (*gin.Engine, *repository.MemoryRepository, *fakeBroadcaster) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepository(func() int { return 3 })
	stats := usecases.NewStatsService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))

	hashed, err := bcrypt.GenerateFromPassword([]byte("op-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := usecases.NewOpsAuth("operator", string(hashed), "signing-secret")

	bc := &fakeBroadcaster{}
	r := gin.New()
	SetupRoutes(r, NewHandler(auth, stats, bc), NewMiddleware(auth))
	return r, repo, bc
}

func login(t *testing.T, r *gin.Engine) string {
	t.Helper()
	body := bytes.NewBufferString(`{"username":"operator","password":"op-secret"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthz(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	r, _, _ := newTestServer(t)

	body := bytes.NewBufferString(`{"username":"operator","password":"wrong"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/login", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatsRequiresAuth(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatsWithToken(t *testing.T) {
	r, repo, _ := newTestServer(t)
	_, err := repo.CreateRegistrationBundle(context.Background(), "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)

	token := login(t, r)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Credentials  int `json:"credentials"`
		GameAccounts int `json:"game_accounts"`
		Links        int `json:"links"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Credentials)
	assert.Equal(t, 1, resp.GameAccounts)
	assert.Equal(t, 1, resp.Links)
}

func TestAccountLookup(t *testing.T) {
	r, repo, _ := newTestServer(t)
	_, err := repo.CreateRegistrationBundle(context.Background(), "Hero", "Secret1!", "hero@gmail.com", 100)
	require.NoError(t, err)

	token := login(t, r)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/accounts/hero@gmail.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Username   string `json:"username"`
		TelegramID int64  `json:"telegram_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1#1", resp.Username)
	assert.EqualValues(t, 100, resp.TelegramID)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/accounts/missing@gmail.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBroadcast(t *testing.T) {
	r, _, bc := newTestServer(t)
	token := login(t, r)

	body := bytes.NewBufferString(`{"text":"maintenance tonight"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/broadcast", body)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "maintenance tonight", bc.lastText)

	var resp struct {
		Sent  int `json:"sent"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Sent)
	assert.Equal(t, 3, resp.Total)
}
