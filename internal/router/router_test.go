package router_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"intentio/backend/internal/clock"
	"intentio/backend/internal/config"
	"intentio/backend/internal/db"
	"intentio/backend/internal/events"
	"intentio/backend/internal/handler"
	"intentio/backend/internal/model"
	"intentio/backend/internal/repository"
	"intentio/backend/internal/router"
	"intentio/backend/internal/service"
	"intentio/backend/internal/timer"
)

const testPassphrase = "correct horse"

type testEnv struct {
	server http.Handler
	clock  *clock.Manual
	token  string
}

type sessionEnvelope struct {
	Session struct {
		Kind      string `json:"kind"`
		Duration  int    `json:"duration"`
		Elapsed   int    `json:"elapsed"`
		IsPlaying bool   `json:"isPlaying"`
		Intent    struct {
			ID    int64  `json:"id"`
			Label string `json:"label"`
		} `json:"intent"`
	} `json:"session"`
}

type queueEnvelope struct {
	Queue []struct {
		Intent struct {
			ID int64 `json:"id"`
		} `json:"intent"`
		Duration   int `json:"duration"`
		Iterations int `json:"iterations"`
	} `json:"queue"`
}

type historyEnvelope struct {
	Sessions []struct {
		ID       int64   `json:"id"`
		Duration int     `json:"duration"`
		Summary  *string `json:"summary"`
		IntentID int64   `json:"intentId"`
	} `json:"sessions"`
}

type settingsEnvelope struct {
	Timer struct {
		FocusDuration int  `json:"focusDuration"`
		BreakDuration int  `json:"breakDuration"`
		AutoStart     bool `json:"autoStartBreaks"`
	} `json:"timer"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestTimerFlowPersistsSession(t *testing.T) {
	env := setupTestEnv(t)

	status, raw := requestJSON(t, env.server, http.MethodGet, "/api/timer/session", env.token, nil)
	if status != http.StatusConflict || errorCode(t, raw) != "undefined_session" {
		t.Fatalf("expected undefined_session conflict, got %d: %s", status, raw)
	}

	status, raw = requestJSON(t, env.server, http.MethodPut, "/api/timer/session/intent", env.token, map[string]interface{}{
		"id":    5,
		"label": "thesis",
	})
	if status != http.StatusOK {
		t.Fatalf("set intent failed with %d: %s", status, raw)
	}
	session := decodeSession(t, raw)
	if session.Session.Kind != "focus" || session.Session.Duration != 1 || session.Session.Intent.ID != 5 {
		t.Fatalf("unexpected session %+v", session.Session)
	}

	status, raw = requestJSON(t, env.server, http.MethodPost, "/api/timer/play", env.token, nil)
	if status != http.StatusOK || !decodeSession(t, raw).Session.IsPlaying {
		t.Fatalf("play failed with %d: %s", status, raw)
	}

	for i := 0; i < 60; i++ {
		env.clock.Advance(time.Second)
	}

	history := waitForHistory(t, env, 1)
	if history.Sessions[0].Duration != 60 || history.Sessions[0].IntentID != 5 {
		t.Fatalf("unexpected persisted session %+v", history.Sessions[0])
	}

	status, raw = requestJSON(t, env.server, http.MethodGet, "/api/timer/session", env.token, nil)
	if status != http.StatusOK {
		t.Fatalf("get session failed with %d: %s", status, raw)
	}
	if got := decodeSession(t, raw).Session; got.Kind != "short_break" || got.IsPlaying {
		t.Fatalf("expected idle short break, got %+v", got)
	}

	id := history.Sessions[0].ID
	path := fmt.Sprintf("/api/sessions/%d/summary", id)
	status, raw = requestJSON(t, env.server, http.MethodPut, path, env.token, map[string]string{"summary": "outlined chapter two"})
	if status != http.StatusOK {
		t.Fatalf("update summary failed with %d: %s", status, raw)
	}

	status, raw = requestJSON(t, env.server, http.MethodGet, fmt.Sprintf("/api/sessions/%d", id), env.token, nil)
	if status != http.StatusOK || !strings.Contains(string(raw), "outlined chapter two") {
		t.Fatalf("expected summary in session, got %d: %s", status, raw)
	}

	status, _ = requestJSON(t, env.server, http.MethodGet, "/api/sessions/999", env.token, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing session, got %d", status)
	}
}

func TestQueueEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	for _, id := range []int64{1, 2} {
		status, raw := requestJSON(t, env.server, http.MethodPost, "/api/timer/queue", env.token, map[string]interface{}{
			"intent":     map[string]interface{}{"id": id, "label": "task"},
			"duration":   10 * int(id),
			"iterations": 1,
		})
		if status != http.StatusCreated {
			t.Fatalf("add to queue failed with %d: %s", status, raw)
		}
	}

	status, raw := requestJSON(t, env.server, http.MethodPost, "/api/timer/queue/0/reorder", env.token, map[string]int{"target": 1})
	if status != http.StatusOK {
		t.Fatalf("reorder failed with %d: %s", status, raw)
	}
	queue := decodeQueue(t, raw)
	if queue.Queue[0].Intent.ID != 2 || queue.Queue[1].Intent.ID != 1 {
		t.Fatalf("unexpected order after reorder %+v", queue.Queue)
	}

	status, raw = requestJSON(t, env.server, http.MethodPost, "/api/timer/queue/1/increment", env.token, nil)
	if status != http.StatusOK || decodeQueue(t, raw).Queue[1].Iterations != 2 {
		t.Fatalf("increment failed with %d: %s", status, raw)
	}

	status, raw = requestJSON(t, env.server, http.MethodPut, "/api/timer/queue/0/duration", env.token, map[string]int{"minutes": 45})
	if status != http.StatusOK || decodeQueue(t, raw).Queue[0].Duration != 45 {
		t.Fatalf("update duration failed with %d: %s", status, raw)
	}

	status, raw = requestJSON(t, env.server, http.MethodPut, "/api/timer/queue/0/duration", env.token, map[string]int{"minutes": 0})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero duration, got %d: %s", status, raw)
	}

	status, raw = requestJSON(t, env.server, http.MethodDelete, "/api/timer/queue/7", env.token, nil)
	if status != http.StatusNotFound || errorCode(t, raw) != "queue_index_out_of_range" {
		t.Fatalf("expected out of range, got %d: %s", status, raw)
	}

	status, raw = requestJSON(t, env.server, http.MethodDelete, "/api/timer/queue/abc", env.token, nil)
	if status != http.StatusBadRequest || errorCode(t, raw) != "invalid_index" {
		t.Fatalf("expected invalid_index, got %d: %s", status, raw)
	}

	status, raw = requestJSON(t, env.server, http.MethodDelete, "/api/timer/queue/0", env.token, nil)
	if status != http.StatusOK || len(decodeQueue(t, raw).Queue) != 1 {
		t.Fatalf("remove failed with %d: %s", status, raw)
	}

	status, raw = requestJSON(t, env.server, http.MethodDelete, "/api/timer/queue", env.token, nil)
	if status != http.StatusOK || len(decodeQueue(t, raw).Queue) != 0 {
		t.Fatalf("clear failed with %d: %s", status, raw)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	status, raw := requestJSON(t, env.server, http.MethodPatch, "/api/settings/timer", env.token, map[string]interface{}{
		"breakDuration":   3,
		"autoStartBreaks": true,
	})
	if status != http.StatusOK {
		t.Fatalf("patch settings failed with %d: %s", status, raw)
	}
	var settings settingsEnvelope
	if err := json.Unmarshal(raw, &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if settings.Timer.FocusDuration != 1 || settings.Timer.BreakDuration != 3 || !settings.Timer.AutoStart {
		t.Fatalf("unexpected merged settings %+v", settings.Timer)
	}

	status, raw = requestJSON(t, env.server, http.MethodPatch, "/api/settings/timer", env.token, map[string]int{"focusDuration": 0})
	if status != http.StatusBadRequest || errorCode(t, raw) != "invalid_settings" {
		t.Fatalf("expected invalid_settings, got %d: %s", status, raw)
	}

	status, raw = requestJSON(t, env.server, http.MethodPost, "/api/settings/timer/reset", env.token, nil)
	if status != http.StatusOK {
		t.Fatalf("reset failed with %d: %s", status, raw)
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if settings.Timer.FocusDuration != model.DefaultFocusMinutes {
		t.Fatalf("expected default focus after reset, got %d", settings.Timer.FocusDuration)
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	status, raw := requestJSON(t, env.server, http.MethodGet, "/api/timer/queue", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d: %s", status, raw)
	}

	status, _ = requestJSON(t, env.server, http.MethodGet, "/api/timer/queue", "not-a-token", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", status)
	}

	status, _ = requestJSON(t, env.server, http.MethodGet, "/api/timer/queue?token="+env.token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected query token to be accepted, got %d", status)
	}

	status, _ = requestJSON(t, env.server, http.MethodPost, "/api/auth/token", "", map[string]string{"passphrase": "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong passphrase, got %d", status)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/timer/session/intent", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.token)
	recorder := httptest.NewRecorder()
	env.server.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusBadRequest || errorCode(t, recorder.Body.Bytes()) != "invalid_json" {
		t.Fatalf("expected invalid_json, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestEventStream(t *testing.T) {
	env := setupTestEnv(t)
	server := httptest.NewServer(env.server)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events?events=session_updated&token="+env.token, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for stream, got %d", resp.StatusCode)
	}

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	requestJSON(t, env.server, http.MethodPost, "/api/timer/queue", env.token, map[string]interface{}{
		"intent": map[string]interface{}{"id": 9}, "duration": 5,
	})
	requestJSON(t, env.server, http.MethodPut, "/api/timer/session/intent", env.token, map[string]interface{}{"id": 3})

	var sawEvent bool
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before session_updated arrived")
			}
			if strings.HasPrefix(line, "event:") {
				name := strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				if name != "session_updated" {
					t.Fatalf("filtered stream delivered %q", name)
				}
				sawEvent = true
				continue
			}
			if sawEvent && strings.HasPrefix(line, "data:") {
				var envelope struct {
					ID   string          `json:"id"`
					Name string          `json:"name"`
					Data json.RawMessage `json:"data"`
				}
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &envelope); err != nil {
					t.Fatalf("unmarshal event data: %v", err)
				}
				if envelope.ID == "" || envelope.Name != "session_updated" || !bytes.Contains(envelope.Data, []byte(`"focus"`)) {
					t.Fatalf("unexpected envelope %+v", envelope)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for session_updated")
		}
	}
}

func TestEventStreamRejectsUnknownNames(t *testing.T) {
	env := setupTestEnv(t)
	status, raw := requestJSON(t, env.server, http.MethodGet, "/api/events?events=bogus", env.token, nil)
	if status != http.StatusBadRequest || errorCode(t, raw) != "invalid_event" {
		t.Fatalf("expected invalid_event, got %d: %s", status, raw)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/timer/queue/0", nil)
	req.Header.Set("Origin", "http://localhost:1420")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	req.Header.Set("Access-Control-Request-Private-Network", "true")
	recorder := httptest.NewRecorder()

	env.server.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:1420" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
	if !strings.Contains(recorder.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatalf("expected DELETE to be allowed: %s", recorder.Header().Get("Access-Control-Allow-Methods"))
	}
	if recorder.Header().Get("Access-Control-Allow-Private-Network") != "true" {
		t.Fatal("expected private network access to be granted")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/timer/queue/0", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Private-Network", "true")
	recorder = httptest.NewRecorder()
	env.server.ServeHTTP(recorder, req)
	if recorder.Header().Get("Access-Control-Allow-Origin") != "" || recorder.Header().Get("Access-Control-Allow-Private-Network") != "" {
		t.Fatalf("unexpected CORS grant for foreign origin: %v", recorder.Header())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestEnv(t)

	status, _ := requestJSON(t, env.server, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for health, got %d", status)
	}

	status, raw := requestJSON(t, env.server, http.MethodGet, "/metrics", "", nil)
	if status != http.StatusOK || !strings.Contains(string(raw), "intentio_timer_ticks_total") {
		t.Fatalf("expected timer metrics, got %d", status)
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	database, err := db.OpenSQLite(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	migrations, err := db.Migrations("")
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if _, err := db.RunMigrations(context.Background(), database, migrations); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	policyStore := config.NewPolicyStore(filepath.Join(dir, "timer.yaml"))
	focus := 1
	if _, err := policyStore.Update(model.TimerPolicyUpdate{FocusMinutes: &focus}); err != nil {
		t.Fatalf("write timer policy: %v", err)
	}

	logger := zerolog.Nop()
	manual := clock.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	bus := events.NewBus(events.WithClock(manual.Now))
	sessionRepo := repository.NewSessionRepository(database)
	engine := timer.NewEngine(policyStore, sessionRepo, bus, timer.Config{Clock: manual}, logger)
	t.Cleanup(engine.Close)

	hash, err := service.HashPassphrase(testPassphrase)
	if err != nil {
		t.Fatalf("hash passphrase: %v", err)
	}
	authService := service.NewAuthService("test-secret", hash, time.Hour)
	timerService := service.NewTimerService(engine)

	server := router.New(authService, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Timer:    handler.NewTimerHandler(timerService),
		Queue:    handler.NewQueueHandler(timerService),
		Events:   handler.NewEventsHandler(bus, 64, logger),
		Sessions: handler.NewSessionHandler(service.NewSessionService(sessionRepo)),
		Settings: handler.NewSettingsHandler(service.NewSettingsService(policyStore, logger)),
	}, []string{"http://localhost:1420"}, logger)

	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/token", "", map[string]string{"passphrase": testPassphrase})
	if status != http.StatusCreated {
		t.Fatalf("token exchange failed with status %d: %s", status, string(body))
	}
	var tokenResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		t.Fatalf("unmarshal token response: %v", err)
	}
	if tokenResp.Token == "" {
		t.Fatal("empty token")
	}

	return &testEnv{server: server, clock: manual, token: tokenResp.Token}
}

func waitForHistory(t *testing.T, env *testEnv, want int) historyEnvelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		status, raw := requestJSON(t, env.server, http.MethodGet, "/api/sessions?limit=10", env.token, nil)
		if status != http.StatusOK {
			t.Fatalf("list sessions failed with %d: %s", status, raw)
		}
		var history historyEnvelope
		if err := json.Unmarshal(raw, &history); err != nil {
			t.Fatalf("unmarshal history: %v", err)
		}
		if len(history.Sessions) >= want {
			return history
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d sessions, got %d", want, len(history.Sessions))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func decodeSession(t *testing.T, raw []byte) sessionEnvelope {
	t.Helper()
	var session sessionEnvelope
	if err := json.Unmarshal(raw, &session); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	return session
}

func decodeQueue(t *testing.T, raw []byte) queueEnvelope {
	t.Helper()
	var queue queueEnvelope
	if err := json.Unmarshal(raw, &queue); err != nil {
		t.Fatalf("unmarshal queue: %v", err)
	}
	return queue
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return envelope.Error.Code
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
