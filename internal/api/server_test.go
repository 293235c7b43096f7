package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/cogniz/internal/composer"
	"github.com/abhisek/cogniz/internal/engine"
	"github.com/abhisek/cogniz/internal/logger"
	"github.com/abhisek/cogniz/internal/metrics"
	"github.com/abhisek/cogniz/internal/rating"
	"github.com/abhisek/cogniz/internal/session"
	"github.com/abhisek/cogniz/internal/skillgraph"
	"github.com/abhisek/cogniz/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	reg := prometheus.NewRegistry()
	eng := engine.New(context.Background(),
		skillgraph.Default(skillgraph.WithLogger(logger.Discard())),
		store.NewMemoryKV(),
		engine.WithLogger(logger.Discard()),
		engine.WithMetrics(metrics.New(reg)),
		engine.WithSnapshotDelay(time.Hour))
	t.Cleanup(eng.Close)

	srv := httptest.NewServer(NewServer(eng, reg, logger.Discard()).Routes())
	t.Cleanup(srv.Close)
	return srv, eng
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]string
	status := doJSON(t, http.MethodGet, srv.URL+"/health", "", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestSessionFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/v1"

	var started SessionResponse
	status := doJSON(t, http.MethodPost, base+"/sessions", `{"gameId":"symbol-recall","clientKey":"tablet"}`, &started)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "symbol-recall", started.GameID)
	assert.Equal(t, "tablet", started.ClientKey)
	require.NotEmpty(t, started.SessionID)

	sessionURL := base + "/sessions/" + started.SessionID

	var trial session.Trial
	status = doJSON(t, http.MethodPost, sessionURL+"/trials",
		`{"correct":true,"reactionTimeMs":420,"difficulty":{"items":5},"score":10}`, &trial)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 1, trial.TrialNumber)
	assert.Equal(t, 1600.0, trial.DifficultyRating)
	assert.Equal(t, 0.0, trial.FatigueIndex)

	var errBody map[string]string
	status = doJSON(t, http.MethodPost, sessionURL+"/trials", `{"correct":true,"reactionTimeMs":-1}`, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, errBody["error"], "reactionTimeMs")

	var current SessionResponse
	status = doJSON(t, http.MethodGet, sessionURL, "", &current)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, current.TrialCount)

	var res session.Result
	status = doJSON(t, http.MethodPost, sessionURL+"/end", "", &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, res.Summary.TrialCount)
	assert.Equal(t, 1.0, res.Summary.Accuracy)

	status = doJSON(t, http.MethodPost, sessionURL+"/end", "", &errBody)
	assert.Equal(t, http.StatusNotFound, status)

	var history []session.HistoryEntry
	status = doJSON(t, http.MethodGet, base+"/history", "", &history)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, history, 1)
	assert.Equal(t, started.SessionID, history[0].SessionID)

	var stats session.ModuleStats
	status = doJSON(t, http.MethodGet, base+"/modules/symbol-recall/stats", "", &stats)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, stats.TotalSessions)
}

func TestStartSession_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/v1"

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, base+"/sessions", `{"gameId":"chess"}`, &errBody))
	assert.Contains(t, errBody["error"], "unknown game")

	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, base+"/sessions", `{}`, &errBody))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, base+"/sessions", `not json`, &errBody))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodPost, base+"/sessions", `{"gameId":"quick-tap","extra":1}`, &errBody))
}

func TestRecordTrial_UnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	var errBody map[string]string
	status := doJSON(t, http.MethodPost, srv.URL+"/api/v1/sessions/nope/trials", `{"correct":true}`, &errBody)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestErrorMapping(t *testing.T) {
	s := NewServer(nil, nil, logger.Discard())
	tests := []struct {
		err  error
		want int
	}{
		{&session.ValidationError{Field: "score", Reason: "bad"}, http.StatusBadRequest},
		{composer.ErrInvalidMinutes, http.StatusBadRequest},
		{rating.ErrUnknownSkill, http.StatusBadRequest},
		{session.ErrUnknownGame, http.StatusNotFound},
		{session.ErrNoSnapshot, http.StatusNotFound},
		{session.ErrNoActiveSession, http.StatusConflict},
		{session.ErrSessionActive, http.StatusConflict},
		{engine.ErrInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		s.respondEngineError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	}
}

func TestProfileAndSkills(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/v1"

	var profile rating.Profile
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/profile", "", &profile))
	assert.Len(t, profile.Domains, 5)
	assert.Equal(t, 1500.0, profile.OverallAverage)
	assert.Len(t, profile.Top, 3)

	var skills []rating.SkillView
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/skills", "", &skills))
	assert.Len(t, skills, 12)
	assert.Equal(t, "visual-working-memory", skills[0].ID)

	var games []skillgraph.Game
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/games", "", &games))
	assert.Len(t, games, 10)
}

func TestPlan(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/v1"

	var plan composer.Plan
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/plan?minutes=20", "", &plan))
	assert.Equal(t, 20, plan.RequestedMinutes)
	assert.Equal(t, 20, plan.TotalMinutes())
	assert.NotEmpty(t, plan.Items)

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, base+"/plan", "", &errBody))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, base+"/plan?minutes=abc", "", &errBody))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, http.MethodGet, base+"/plan?minutes=0", "", &errBody))
}

func TestModuleStats_UnknownGame(t *testing.T) {
	srv, _ := newTestServer(t)
	var errBody map[string]string
	status := doJSON(t, http.MethodGet, srv.URL+"/api/v1/modules/chess/stats", "", &errBody)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRecoveries(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/v1"

	var snaps []session.Snapshot
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, base+"/recoveries", "", &snaps))
	assert.Empty(t, snaps)

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodPost, base+"/recoveries/missing", "", &errBody))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/sessions", `{"gameId":"quick-tap"}`, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "cogniz_sessions_started_total")
}
