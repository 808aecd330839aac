package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pplxbridge/internal/browser"
	"pplxbridge/internal/profile"
	"pplxbridge/internal/proxy"
	"pplxbridge/internal/ratelimit"
	"pplxbridge/internal/session"
	"pplxbridge/pkg/models"
)

type fakeAsker struct {
	answer string
	err    error
	got    models.AskRequest
}

func (f *fakeAsker) Ask(ctx context.Context, req models.AskRequest) (string, error) {
	f.got = req
	return f.answer, f.err
}

type idleLauncher struct{}

func (idleLauncher) Mode() string { return "fake" }
func (idleLauncher) Launch(ctx context.Context) (*browser.Instance, error) {
	return &browser.Instance{ConnectURL: "ws://127.0.0.1:9222", CloseFn: func() {}}, nil
}

func newTestRouter(t *testing.T, asker Asker) http.Handler {
	t.Helper()

	profiles, err := profile.NewManager(
		filepath.Join(t.TempDir(), "profile"),
		filepath.Join(t.TempDir(), "snapshots"),
	)
	require.NoError(t, err)

	sessions := session.NewManager(idleLauncher{})
	handler := NewHandler(asker, sessions, profiles)
	return handler.SetupRoutes(proxy.NewServer(sessions), ratelimit.NewLimiter(100, 10), 100)
}

func TestRootLiveness(t *testing.T) {
	router := newTestRouter(t, &fakeAsker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["message"], "running")
}

func TestAskSuccess(t *testing.T) {
	asker := &fakeAsker{answer: "the capital of France is Paris"}
	router := newTestRouter(t, asker)

	payload := `{"prompt": "capital of France?", "use_research_mode": true}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/ask", bytes.NewBufferString(payload)))

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, asker.answer, body.Response)

	assert.Equal(t, "capital of France?", asker.got.Prompt)
	assert.True(t, asker.got.UseResearchMode)
}

func TestAskPipelineErrorReturnsDetail(t *testing.T) {
	router := newTestRouter(t, &fakeAsker{err: errors.New("copy control: element not found")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/ask", bytes.NewBufferString(`{"prompt":"x"}`)))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Detail, "copy control")
}

func TestAskRejectsBadJSON(t *testing.T) {
	router := newTestRouter(t, &fakeAsker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/ask", bytes.NewBufferString(`{not json`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskRejectsEmptyPrompt(t *testing.T) {
	router := newTestRouter(t, &fakeAsker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/ask", bytes.NewBufferString(`{"prompt":"   "}`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "prompt is required", body.Detail)
}

func TestStatusIdleBeforeFirstRequest(t *testing.T) {
	router := newTestRouter(t, &fakeAsker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "idle", body["state"])
}

func TestAskRateLimited(t *testing.T) {
	profiles, err := profile.NewManager(
		filepath.Join(t.TempDir(), "profile"),
		filepath.Join(t.TempDir(), "snapshots"),
	)
	require.NoError(t, err)
	sessions := session.NewManager(idleLauncher{})
	handler := NewHandler(&fakeAsker{answer: "ok"}, sessions, profiles)
	router := handler.SetupRoutes(proxy.NewServer(sessions), ratelimit.NewLimiter(1, 1), 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/ask", bytes.NewBufferString(`{"prompt":"x"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/ask", bytes.NewBufferString(`{"prompt":"x"}`)))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	router := newTestRouter(t, &fakeAsker{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/profile/snapshot", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["archive"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/profile/restore", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
