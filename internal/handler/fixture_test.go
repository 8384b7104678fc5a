package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"creator_chat/internal/config"
	"creator_chat/internal/domain"
	"creator_chat/internal/middleware"
	"creator_chat/internal/presence"
	"creator_chat/internal/realtime"
	"creator_chat/internal/repository/memory"
	"creator_chat/internal/service"
	"creator_chat/pkg/jwt"
	"creator_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	customerID int64 = 1
	creatorID  int64 = 2
	strangerID int64 = 3
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	store    *memory.Store
	router   *gin.Engine
	tokens   *jwt.Manager
	hub      *realtime.Hub
	presence presence.Tracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	now := time.Now().UTC()
	store.PutUser(&domain.User{ID: customerID, DisplayName: "Customer", Role: domain.UserRoleCustomer, IsActive: true, CreatedAt: now})
	store.PutUser(&domain.User{ID: creatorID, DisplayName: "Creator", Role: domain.UserRoleCreator, IsActive: true, CreatedAt: now})
	store.PutUser(&domain.User{ID: strangerID, DisplayName: "Stranger", Role: domain.UserRoleCustomer, IsActive: true, CreatedAt: now})

	log := logger.Nop()
	repos := store.Repositories()
	hub := realtime.NewHub(log)
	dispatcher := realtime.NewDispatcher(hub, log)
	tracker := presence.NewMemoryTracker()

	cfg := &config.Config{Environment: "test"}
	cfg.Realtime.OperationTimeout = 5 * time.Second

	services := service.NewServices(repos, cfg, nil, dispatcher, log)
	rt := Realtime{
		Hub:        hub,
		Membership: realtime.NewMembership(hub, repos.Conversation, log),
		Dispatcher: dispatcher,
		Presence:   tracker,
	}

	tokens := jwt.NewManager("test-secret", "", time.Hour)
	router := gin.New()
	router.Use(middleware.ErrorHandler(log))
	RegisterRoutes(router,
		NewHandlers(services, rt, cfg, log),
		middleware.NewAuthMiddleware(tokens, log),
		middleware.NewRateLimitMiddleware(services.RateLimit, 0, log),
	)

	return &testServer{
		store:    store,
		router:   router,
		tokens:   tokens,
		hub:      hub,
		presence: tracker,
	}
}

func (s *testServer) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := s.tokens.Issue(userID, "")
	require.NoError(t, err)
	return token
}

// do sends an authenticated JSON request. userID 0 sends no token.
func (s *testServer) do(t *testing.T, method, path string, userID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+s.token(t, userID))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// openConversation runs the request/accept handshake over HTTP.
func (s *testServer) openConversation(t *testing.T) *domain.Conversation {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/message-requests", customerID, gin.H{"creator_id": creatorID, "text": "Hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pending := decode[domain.PendingRequest](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/conversations/"+pending.Conversation.ID.String()+"/respond", creatorID, gin.H{"accept": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return pending.Conversation
}
