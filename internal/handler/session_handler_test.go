package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/engine"
	"github.com/stemsi/exstem-selftest/internal/middleware"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/response"
	"github.com/stemsi/exstem-selftest/internal/service"
	"github.com/stemsi/exstem-selftest/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLoader map[uuid.UUID][]model.Question

func (s stubLoader) Questions(_ context.Context, bankID uuid.UUID) ([]model.Question, error) {
	qs, ok := s[bankID]
	if !ok {
		return nil, service.ErrBankNotFound
	}
	return qs, nil
}

type discardSink struct{}

func (discardSink) PushAttempt(context.Context, model.AttemptEvent) error  { return nil }
func (discardSink) PushReviews(context.Context, []model.ReviewTask) error { return nil }

func handlerQuestions() []model.Question {
	zero := 0
	return []model.Question{
		{ID: "q1", Type: model.QuestionTypeSingleChoice, Prompt: "pick a", Options: []string{"a", "b"}, Correct: model.CorrectAnswer{Index: &zero}, MaxScore: 10},
		{ID: "q2", Type: model.QuestionTypeEssay, Prompt: "explain", Correct: model.CorrectAnswer{Reference: "ref"}, MaxScore: 20},
	}
}

type sessionEnvelope struct {
	Data struct {
		SessionID string      `json:"session_id"`
		Screen    view.Screen `json:"screen"`
	} `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

type testServer struct {
	router  *gin.Engine
	auth    *service.AuthService
	bankID  uuid.UUID
	clock   *engine.ManualClock
	service *service.SessionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	bankID := uuid.New()
	clock := engine.NewManualClock(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	sessions := service.NewSessionService(stubLoader{bankID: handlerQuestions()}, discardSink{}, service.SessionConfig{
		FallbackSeconds: 600,
		Clock:           clock,
	}, zerolog.Nop())
	t.Cleanup(sessions.Shutdown)

	auth := service.NewAuthService(&config.Config{JWTSecret: "handler-secret", JWTExpiry: time.Hour})
	h := NewSessionHandler(sessions, nil)
	owner := middleware.RequireSessionOwner(sessions)

	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	learner := r.Group("/api/v1/learner", middleware.RequireLearnerJWT(auth))
	learner.POST("/sessions", h.CreateSession)
	learner.GET("/sessions/:session_id", owner, h.GetSession)
	learner.POST("/sessions/:session_id/intents", owner, h.DispatchIntent)
	learner.DELETE("/sessions/:session_id", owner, h.EndSession)

	return &testServer{router: r, auth: auth, bankID: bankID, clock: clock, service: sessions}
}

func (s *testServer) do(t *testing.T, learnerID int, method, path string, body interface{}) (*httptest.ResponseRecorder, sessionEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	tok, err := s.auth.GenerateLearnerToken(learnerID, "")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env sessionEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) create(t *testing.T, learnerID int) string {
	t.Helper()
	w, env := s.do(t, learnerID, http.MethodPost, "/api/v1/learner/sessions", gin.H{"bank_id": s.bankID.String()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return env.Data.SessionID
}

func TestSessionHandler_CreateSession(t *testing.T) {
	srv := newTestServer(t)

	w, env := srv.do(t, 1, http.MethodPost, "/api/v1/learner/sessions", gin.H{"bank_id": srv.bankID.String()})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, env.Data.SessionID)
	assert.Equal(t, engine.PhaseInstructions, env.Data.Screen.Phase)
	require.NotNil(t, env.Data.Screen.Instructions)
	assert.Equal(t, 2, env.Data.Screen.Instructions.QuestionCount)
	assert.Equal(t, 30.0, env.Data.Screen.Instructions.TotalPoints)
	assert.Equal(t, 600, env.Data.Screen.Instructions.TotalSeconds)

	w, env = srv.do(t, 1, http.MethodPost, "/api/v1/learner/sessions", gin.H{"bank_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrBankNotFound, env.Error.Code)

	w, env = srv.do(t, 1, http.MethodPost, "/api/v1/learner/sessions", gin.H{"bank_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
}

func TestSessionHandler_IntentFlow(t *testing.T) {
	srv := newTestServer(t)
	id := srv.create(t, 1)
	path := "/api/v1/learner/sessions/" + id + "/intents"

	w, env := srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "start"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, env.Data.Screen.Exam)
	assert.Equal(t, 600, env.Data.Screen.Exam.TopBar.TimeRemaining)
	assert.Equal(t, "q1", env.Data.Screen.Exam.Card.QuestionID)

	srv.clock.Tick()

	_, env = srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "answer", "question_id": "q1", "value": 0})
	assert.Equal(t, 599, env.Data.Screen.Exam.TopBar.TimeRemaining)
	assert.Equal(t, 1, env.Data.Screen.Exam.TopBar.Progress.Answered)

	_, env = srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "key", "key": "ArrowRight", "input_focused": true})
	assert.Equal(t, "q1", env.Data.Screen.Exam.Card.QuestionID)

	_, env = srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "key", "key": "ArrowRight"})
	assert.Equal(t, "q2", env.Data.Screen.Exam.Card.QuestionID)

	_, env = srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "answer", "question_id": "q2", "value": "because it is"})
	assert.Equal(t, 3, env.Data.Screen.Exam.Card.WordCount)

	w, env = srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "submit"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Data.Screen.Results)
	assert.Equal(t, 33, env.Data.Screen.Results.Record.Percentage)
	assert.Equal(t, 1, env.Data.Screen.Results.PendingReview)

	_, env = srv.do(t, 1, http.MethodGet, "/api/v1/learner/sessions/"+id, nil)
	assert.Equal(t, engine.PhaseCompleted, env.Data.Screen.Phase)
}

func TestSessionHandler_BadIntents(t *testing.T) {
	srv := newTestServer(t)
	id := srv.create(t, 1)
	path := "/api/v1/learner/sessions/" + id + "/intents"

	w, env := srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "tick"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, env.Error.Code)

	w, env = srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "goto"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, env.Error.Code)

	w, env = srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "answer", "question_id": "q1", "value": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidIntent, env.Error.Code)

	// Intents that do not apply to the phase are accepted and change nothing.
	w, env = srv.do(t, 1, http.MethodPost, path, gin.H{"intent": "submit"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, engine.PhaseInstructions, env.Data.Screen.Phase)
}

func TestSessionHandler_Ownership(t *testing.T) {
	srv := newTestServer(t)
	id := srv.create(t, 1)

	w, env := srv.do(t, 2, http.MethodGet, "/api/v1/learner/sessions/"+id, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrNotSessionOwner, env.Error.Code)

	w, env = srv.do(t, 1, http.MethodGet, "/api/v1/learner/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrSessionNotFound, env.Error.Code)

	w, env = srv.do(t, 1, http.MethodGet, "/api/v1/learner/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, env.Error.Code)
}

func TestSessionHandler_EndSession(t *testing.T) {
	srv := newTestServer(t)
	id := srv.create(t, 1)

	w, _ := srv.do(t, 1, http.MethodDelete, "/api/v1/learner/sessions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, srv.service.Count())

	w, env := srv.do(t, 1, http.MethodGet, "/api/v1/learner/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrSessionNotFound, env.Error.Code)
}

func TestPublicHandler_SampleBank(t *testing.T) {
	r := gin.New()
	r.GET("/sample", NewPublicHandler(view.Renderer{}, zerolog.Nop()).SampleBank)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sample", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Data struct {
			Name   string      `json:"name"`
			Screen view.Screen `json:"screen"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Data.Name)
	require.NotNil(t, env.Data.Screen.Instructions)
	assert.Equal(t, 5, env.Data.Screen.Instructions.QuestionCount)
}
