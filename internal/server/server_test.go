package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailbot/internal/conversation"
	"retailbot/internal/retrieval"
	"retailbot/internal/userstore"
)

// echoChat greets on the empty message and echoes anything else.
type echoChat struct{}

func (echoChat) HandleMessage(_ context.Context, msg string, s *conversation.Session) (string, *conversation.Session) {
	if msg == "" {
		s.State = conversation.StateIdentifyUserType
		return conversation.WelcomeMessage, s
	}
	s.State = conversation.StateChatActive
	return "eco: " + msg, s
}

type fakeIndex struct {
	resetErr error
	resets   int
}

func (f *fakeIndex) Ready() bool { return true }

func (f *fakeIndex) ProcessDocuments(_ context.Context, force bool) (*retrieval.Report, error) {
	return &retrieval.Report{Chunks: 7, LoadedFromCache: !force}, nil
}

func (f *fakeIndex) Reset(context.Context) error {
	f.resets++
	return f.resetErr
}

type fakeAnalytics struct{ days int }

func (f *fakeAnalytics) GeneralStats(context.Context) (*userstore.Stats, error) {
	return &userstore.Stats{ActiveUsers: 3, TotalInteractions: 42}, nil
}

func (f *fakeAnalytics) PeriodMetrics(_ context.Context, days int) ([]userstore.DailyMetrics, error) {
	f.days = days
	return []userstore.DailyMetrics{{Day: "2026-10-19", TotalMessages: 5}}, nil
}

const testAdminToken = "s3cret-admin"

func newTestServer(idx *fakeIndex, an *fakeAnalytics) *Server {
	gin.SetMode(gin.TestMode)
	return New(Config{SessionTTL: time.Minute, BotName: "Asistente", AdminToken: testAdminToken}, echoChat{}, idx, an, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doAuth(t, h, method, path, body, "")
}

func doAdmin(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doAuth(t, h, method, path, body, "Bearer "+testAdminToken)
}

func doAuth(t *testing.T, h http.Handler, method, path, body, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionLifecycle(t *testing.T) {
	h := newTestServer(&fakeIndex{}, &fakeAnalytics{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created turnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, conversation.WelcomeMessage, created.Reply)
	assert.Equal(t, conversation.StateIdentifyUserType, created.Status.State)
	require.NotEmpty(t, created.SessionID)

	rec = do(t, h, http.MethodPost, "/api/v1/sessions/"+created.SessionID+"/messages", `{"message":"hola"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var turn turnResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	assert.Equal(t, "eco: hola", turn.Reply)
	assert.Equal(t, conversation.StateChatActive, turn.Status.State)

	rec = do(t, h, http.MethodGet, "/api/v1/sessions/"+created.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st conversation.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, conversation.StateChatActive, st.State)
	assert.Equal(t, "💬 Chat activo", st.StateName)

	rec = do(t, h, http.MethodDelete, "/api/v1/sessions/"+created.SessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	assert.Equal(t, created.SessionID, turn.SessionID)
	assert.Equal(t, conversation.StateIdentifyUserType, turn.Status.State)
}

func TestMessageErrors(t *testing.T) {
	h := newTestServer(&fakeIndex{}, &fakeAnalytics{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/missing/messages", `{"message":"hola"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/sessions/missing/messages", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndStats(t *testing.T) {
	an := &fakeAnalytics{}
	h := newTestServer(&fakeIndex{}, an).Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","bot":"Asistente","index_ready":true}`, rec.Body.String())

	rec = doAdmin(t, h, http.MethodGet, "/api/v1/stats?days=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, an.days)
	var body struct {
		General userstore.Stats          `json:"general"`
		Daily   []userstore.DailyMetrics `json:"daily"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 42, body.General.TotalInteractions)
	require.Len(t, body.Daily, 1)

	rec = doAdmin(t, h, http.MethodGet, "/api/v1/stats?days=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminEndpoints(t *testing.T) {
	idx := &fakeIndex{}
	h := newTestServer(idx, &fakeAnalytics{}).Handler()

	rec := doAdmin(t, h, http.MethodPost, "/api/v1/admin/reindex", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report retrieval.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 7, report.Chunks)
	assert.False(t, report.LoadedFromCache)

	rec = doAdmin(t, h, http.MethodDelete, "/api/v1/admin/cache", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, idx.resets)

	idx.resetErr = errors.New("permission denied")
	rec = doAdmin(t, h, http.MethodDelete, "/api/v1/admin/cache", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	idx := &fakeIndex{}
	h := newTestServer(idx, &fakeAnalytics{}).Handler()

	for _, tc := range []struct {
		name, method, path, auth string
	}{
		{"stats without token", http.MethodGet, "/api/v1/stats", ""},
		{"reindex without token", http.MethodPost, "/api/v1/admin/reindex", ""},
		{"cache reset without token", http.MethodDelete, "/api/v1/admin/cache", ""},
		{"wrong token", http.MethodDelete, "/api/v1/admin/cache", "Bearer nope"},
		{"not a bearer token", http.MethodGet, "/api/v1/stats", testAdminToken},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := doAuth(t, h, tc.method, tc.path, "", tc.auth)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.Zero(t, idx.resets)
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	idx := &fakeIndex{}
	h := New(Config{SessionTTL: time.Minute}, echoChat{}, idx, &fakeAnalytics{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doAuth(t, h, http.MethodDelete, "/api/v1/admin/cache", "", "Bearer ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, idx.resets)

	rec = do(t, h, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
