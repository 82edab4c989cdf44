package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubeforge/gateway/dispatch"
	"github.com/cubeforge/gateway/ports/memory"
	"github.com/cubeforge/gateway/project"
	"github.com/cubeforge/gateway/registry"
	"github.com/cubeforge/gateway/services"
)

type fixedRevSource struct{ editor *memory.Editor }

func (f *fixedRevSource) CurrentRevision(ctx context.Context) (string, error) {
	snap, err := f.editor.Current(ctx)
	if err != nil {
		return "", err
	}
	h, err := project.Hash(snap)
	if err != nil {
		return "", err
	}
	return h, nil
}

func newTestRouter(t *testing.T) (*echo.Echo, *Router) {
	t.Helper()
	ed := memory.New()
	limits := services.DefaultLimits()
	svc := dispatch.Services{
		Project:    services.NewProject(ed, ed, memory.NewFormats()),
		Model:      services.NewModel(ed, ed, limits),
		Texture:    services.NewTexture(ed, ed, limits),
		Animation:  services.NewAnimation(ed, ed, limits),
		Export:     services.NewExport(ed, memory.NewExporter(), memory.NewTmpStore()),
		Render:     services.NewRender(ed, memory.NewRenderer()),
		Validation: services.NewValidation(ed),
	}
	reg := registry.Default()
	revStore := project.NewRevisionStore(64)
	revSource := &fixedRevSource{editor: ed}
	d := dispatch.New(reg, dispatch.BuiltinHandlers(svc), revStore, revSource, ed, nil)

	rt := NewRouter(Config{
		Registry:   reg,
		Dispatcher: d,
		Formats:    memory.NewFormats(),
		Snapshot:   ed,
		Limits:     limits,
	})
	e := echo.New()
	rt.Register(e)
	return e, rt
}

func doJSONRPC(e *echo.Echo, body string, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouterInitializeCreatesSession(t *testing.T) {
	e, _ := newTestRouter(t)
	rec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(sessionHeader))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
}

func TestRouterRejectsUnknownSessionForNonImplicitMethod(t *testing.T) {
	e, _ := newTestRouter(t)
	rec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"shutdown"}`, "bogus-session")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterToolsListImplicitlyCreatesASessionAndReturnsHeader(t *testing.T) {
	e, _ := newTestRouter(t)
	rec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(sessionHeader), "tools/list is implicit-session-eligible (spec §4.9) and must mint a session like initialize does")
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
}

func TestRouterToolsCallImplicitlyCreatesASessionWhenAbsent(t *testing.T) {
	e, _ := newTestRouter(t)
	rec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_project_state","arguments":{}}}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(sessionHeader))
}

func TestRouterPingRespondsWithEmptyResult(t *testing.T) {
	e, _ := newTestRouter(t)
	rec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
}

func TestRouterResourcesListAndReadRoundTrip(t *testing.T) {
	e, _ := newTestRouter(t)

	listRec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, "")
	require.Equal(t, http.StatusOK, listRec.Code)
	var listResp Response
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listResp))
	require.Nil(t, listResp.Error)

	readRec := doJSONRPC(e, `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"state://current"}}`, "")
	require.Equal(t, http.StatusOK, readRec.Code)
	var readResp Response
	require.NoError(t, json.Unmarshal(readRec.Body.Bytes(), &readResp))
	require.Nil(t, readResp.Error)
}

type countingFlusher struct{ calls int }

func (f *countingFlusher) FlushNow(force bool) { f.calls++ }

func TestRouterShutdownIsIdempotentAndFlushesTrace(t *testing.T) {
	_, rt := newTestRouter(t)
	f := &countingFlusher{}
	rt.flush = f
	rt.shutdown()
	rt.shutdown()
	assert.Equal(t, 1, f.calls)
}

func TestRouterToolsCallDispatchesAndReturnsEnvelope(t *testing.T) {
	e, _ := newTestRouter(t)

	initRec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}`, "")
	sessionID := initRec.Header().Get(sessionHeader)
	require.NotEmpty(t, sessionID)

	rec := doJSONRPC(e, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_project_state","arguments":{}}}`, sessionID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
}

func TestRouterUnknownMethodReturnsMethodNotFound(t *testing.T) {
	e, _ := newTestRouter(t)
	initRec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, "")
	sessionID := initRec.Header().Get(sessionHeader)

	rec := doJSONRPC(e, `{"jsonrpc":"2.0","id":2,"method":"bogus/method"}`, sessionID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrMethodNotFound, resp.Error.Code)
}

func TestRouterDeleteEndsSession(t *testing.T) {
	e, rt := newTestRouter(t)
	initRec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, "")
	sessionID := initRec.Header().Get(sessionHeader)

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	req.Header.Set(sessionHeader, sessionID)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Nil(t, rt.sessions.Get(sessionID))
}

type recordingStateSink struct {
	mu       sync.Mutex
	sessions []string
}

func (s *recordingStateSink) Persist(ctx context.Context, sessionID string, snap *project.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, sessionID)
}

func (s *recordingStateSink) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sessions...)
}

func TestRouterSchedulesPersistAfterSuccessfulToolCall(t *testing.T) {
	ed := memory.New()
	limits := services.DefaultLimits()
	svc := dispatch.Services{
		Project:    services.NewProject(ed, ed, memory.NewFormats()),
		Model:      services.NewModel(ed, ed, limits),
		Texture:    services.NewTexture(ed, ed, limits),
		Animation:  services.NewAnimation(ed, ed, limits),
		Export:     services.NewExport(ed, memory.NewExporter(), memory.NewTmpStore()),
		Render:     services.NewRender(ed, memory.NewRenderer()),
		Validation: services.NewValidation(ed),
	}
	reg := registry.Default()
	revStore := project.NewRevisionStore(64)
	revSource := &fixedRevSource{editor: ed}
	d := dispatch.New(reg, dispatch.BuiltinHandlers(svc), revStore, revSource, ed, nil)
	sink := &recordingStateSink{}

	rt := NewRouter(Config{
		Registry:   reg,
		Dispatcher: d,
		Formats:    memory.NewFormats(),
		Snapshot:   ed,
		Persist:    sink,
		Limits:     limits,
	})
	e := echo.New()
	rt.Register(e)

	initRec := doJSONRPC(e, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, "")
	sessionID := initRec.Header().Get(sessionHeader)
	require.NotEmpty(t, sessionID)

	rec := doJSONRPC(e, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_project_state","arguments":{}}}`, sessionID)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return len(sink.calls()) == 1
	}, time.Second, 5*time.Millisecond, "schedulePersist runs the sink off the request goroutine")
	assert.Equal(t, []string{sessionID}, sink.calls())
}
