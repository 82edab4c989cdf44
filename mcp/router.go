package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/cubeforge/gateway/dispatch"
	gwotel "github.com/cubeforge/gateway/otel"
	"github.com/cubeforge/gateway/ports"
	"github.com/cubeforge/gateway/registry"
	"github.com/cubeforge/gateway/services"
)

const sessionHeader = "Mcp-Session-Id"

// TraceFlusher is the narrow slice of trace.FlushScheduler the router needs
// to satisfy the `shutdown` RPC (spec §5: "flushes the trace log").
type TraceFlusher interface {
	FlushNow(force bool)
}

// Router wires the JSON-RPC surface onto an Echo instance (spec §6):
// POST /mcp for requests/notifications, GET /mcp for the SSE stream, and
// DELETE /mcp to end a session.
type Router struct {
	registry      *registry.Registry
	dispatcher    *dispatch.Dispatcher
	sessions      *SessionStore
	formats       ports.Formats
	snapshot      ports.Snapshot
	persist       StateSink
	limits        services.Limits
	pluginVersion string
	flush         TraceFlusher
	log           *logrus.Entry

	sseMu        sync.Mutex
	sseDone      []chan struct{}
	shutdownOnce sync.Once
}

// Config bundles everything Router needs from the rest of the wiring.
type Config struct {
	Registry      *registry.Registry
	Dispatcher    *dispatch.Dispatcher
	Sessions      *SessionStore
	Formats       ports.Formats
	Snapshot      ports.Snapshot
	Persist       StateSink
	Limits        services.Limits
	PluginVersion string
	Flush         TraceFlusher
	Log           *logrus.Entry
}

func NewRouter(cfg Config) *Router {
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessionStore(0)
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Router{
		registry:      cfg.Registry,
		dispatcher:    cfg.Dispatcher,
		sessions:      cfg.Sessions,
		formats:       cfg.Formats,
		snapshot:      cfg.Snapshot,
		persist:       cfg.Persist,
		limits:        cfg.Limits,
		pluginVersion: cfg.PluginVersion,
		flush:         cfg.Flush,
		log:           cfg.Log,
	}
}

// Register mounts the /mcp routes on e.
func (rt *Router) Register(e *echo.Echo) {
	e.POST("/mcp", rt.handlePost)
	e.GET("/mcp", rt.handleSSE)
	e.DELETE("/mcp", rt.handleDelete)
}

func (rt *Router) handlePost(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewError(nil, ErrParseError, "invalid JSON-RPC request", nil))
	}

	sessionID := c.Request().Header.Get(sessionHeader)
	var sess *Session
	if sessionID != "" {
		sess = rt.sessions.Get(sessionID)
	}
	if sess == nil {
		if !IsImplicitSessionMethod(req.Method) {
			return c.JSON(http.StatusNotFound, NewError(req.ID, ErrInvalidRequest, "unknown or expired session", nil))
		}
		// Session establishment is implicit for tools/*, resources/*, and
		// ping (spec §4.9); `initialize` negotiates its own protocol
		// version below, so it creates the session itself.
		if req.Method != "initialize" {
			sess = rt.sessions.Create(SupportedProtocolVersions[0])
			c.Response().Header().Set(sessionHeader, sess.ID)
		}
	}

	ctx := c.Request().Context()

	switch req.Method {
	case "initialize":
		var params InitializeParams
		_ = json.Unmarshal(req.Params, &params)
		negotiated := NegotiateProtocolVersion(params.ProtocolVersion)
		if sess == nil {
			sess = rt.sessions.Create(negotiated)
		}
		c.Response().Header().Set(sessionHeader, sess.ID)
		return c.JSON(http.StatusOK, NewResult(req.ID, rt.buildInitializeResult(ctx, negotiated)))

	case "tools/list":
		return c.JSON(http.StatusOK, NewResult(req.ID, rt.buildToolsList()))

	case "tools/call":
		var params ToolsCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return c.JSON(http.StatusOK, NewError(req.ID, ErrInvalidParams, "invalid tools/call params", nil))
		}
		if sess != nil {
			gwotel.AddSessionToBaggage(c, sess.ID)
		}
		gwotel.AddToolCallToBaggage(c, params.Name)
		resp := rt.dispatcher.Handle(ctx, params.Name, params.Arguments)
		if resp.Ok && rt.persist != nil && rt.snapshot != nil && sess != nil {
			rt.schedulePersist(sess.ID)
		}
		return c.JSON(http.StatusOK, NewResult(req.ID, resp))

	case "resources/list":
		return c.JSON(http.StatusOK, NewResult(req.ID, rt.buildResourcesList(ctx)))

	case "resources/templates/list":
		return c.JSON(http.StatusOK, NewResult(req.ID, map[string]interface{}{"resourceTemplates": []interface{}{}}))

	case "resources/read":
		var params ResourcesReadParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return c.JSON(http.StatusOK, NewError(req.ID, ErrInvalidParams, "invalid resources/read params", nil))
		}
		result, err := rt.readResource(ctx, params.URI)
		if err != nil {
			return c.JSON(http.StatusOK, NewError(req.ID, ErrInvalidParams, err.Error(), nil))
		}
		return c.JSON(http.StatusOK, NewResult(req.ID, result))

	case "ping":
		return c.JSON(http.StatusOK, NewResult(req.ID, map[string]interface{}{}))

	case "shutdown":
		rt.shutdown()
		return c.JSON(http.StatusOK, NewResult(req.ID, map[string]interface{}{}))

	default:
		if req.IsNotification() {
			return c.NoContent(http.StatusAccepted)
		}
		return c.JSON(http.StatusOK, NewError(req.ID, ErrMethodNotFound, "method not found: "+req.Method, nil))
	}
}

// shutdown implements spec §5's `shutdown` RPC: it flushes the pending
// trace log and closes every open SSE connection. Safe to call more than
// once; only the first call does anything.
func (rt *Router) shutdown() {
	rt.shutdownOnce.Do(func() {
		if rt.flush != nil {
			rt.flush.FlushNow(true)
		}
		rt.sseMu.Lock()
		for _, done := range rt.sseDone {
			close(done)
		}
		rt.sseDone = nil
		rt.sseMu.Unlock()
	})
}

// resourceURICurrentState is the one resource this gateway exposes: the
// live project snapshot, readable at any time without a tool call.
const resourceURICurrentState = "state://current"

func (rt *Router) buildResourcesList(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"resources": []ResourceSummary{
			{URI: resourceURICurrentState, Name: "current-project-state", MimeType: "application/json"},
		},
	}
}

func (rt *Router) readResource(ctx context.Context, uri string) (map[string]interface{}, error) {
	if uri != resourceURICurrentState {
		return nil, &unknownResourceError{URI: uri}
	}
	if rt.snapshot == nil {
		return nil, &unknownResourceError{URI: uri}
	}
	snap, err := rt.snapshot.Current(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"contents": []map[string]interface{}{
			{"uri": uri, "mimeType": "application/json", "text": string(data)},
		},
	}, nil
}

type unknownResourceError struct{ URI string }

func (e *unknownResourceError) Error() string { return "unknown resource: " + e.URI }

// schedulePersist hands the post-mutation snapshot to the configured
// StateSink off the request goroutine so a slow persistence backend never
// adds latency to the tool-call response.
func (rt *Router) schedulePersist(sessionID string) {
	go func() {
		ctx := context.Background()
		snap, err := rt.snapshot.Current(ctx)
		if err != nil {
			rt.log.WithError(err).Warn("persist hook: read current snapshot")
			return
		}
		rt.persist.Persist(ctx, sessionID, snap)
	}()
}

func (rt *Router) handleSSE(c echo.Context) error {
	if accept := c.Request().Header.Get(echo.HeaderAccept); !strings.Contains(accept, "text/event-stream") {
		return echo.NewHTTPError(http.StatusNotAcceptable, "Accept header must include text/event-stream")
	}
	sessionID := c.Request().Header.Get(sessionHeader)
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing "+sessionHeader+" header")
	}
	sess := rt.sessions.Get(sessionID)
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown or expired session")
	}
	if !rt.sessions.TryAcquireSSE(sessionID) {
		return c.JSON(http.StatusTooManyRequests, NewError(nil, ErrInvalidRequest, "MCP_TOO_MANY_SSE", nil))
	}
	defer rt.sessions.ReleaseSSE(sessionID)

	done := make(chan struct{})
	rt.sseMu.Lock()
	rt.sseDone = append(rt.sseDone, done)
	rt.sseMu.Unlock()
	defer rt.untrackSSE(done)

	return ServeSSE(c, done)
}

// untrackSSE removes done from the shutdown broadcast list once its stream
// has ended on its own (client disconnect), so shutdown doesn't try to
// close an already-finished channel.
func (rt *Router) untrackSSE(done chan struct{}) {
	rt.sseMu.Lock()
	defer rt.sseMu.Unlock()
	for i, d := range rt.sseDone {
		if d == done {
			rt.sseDone = append(rt.sseDone[:i], rt.sseDone[i+1:]...)
			return
		}
	}
}

func (rt *Router) handleDelete(c echo.Context) error {
	sessionID := c.Request().Header.Get(sessionHeader)
	if sessionID != "" {
		rt.sessions.Delete(sessionID)
	}
	return c.NoContent(http.StatusNoContent)
}

func (rt *Router) buildInitializeResult(ctx context.Context, protocolVersion string) InitializeResult {
	var formatSummaries []FormatSummary
	if rt.formats != nil {
		descs, err := rt.formats.List(ctx)
		if err == nil {
			for _, d := range descs {
				formatSummaries = append(formatSummaries, FormatSummary{ID: d.ID, Name: d.Name, TextureResolution: d.TextureResolution})
			}
		}
	}
	return InitializeResult{
		ProtocolVersion:   protocolVersion,
		PluginVersion:     rt.pluginVersion,
		ToolSchemaVersion: CurrentToolSchemaVersion,
		ToolRegistry:      ToolRegistrySummary{Hash: rt.registry.Hash(), Count: rt.registry.Count()},
		Authoring:         "blockbench",
		Formats:           formatSummaries,
		Limits: LimitsSummary{
			MaxCubes:            rt.limits.MaxCubes,
			MaxTextureSize:      rt.limits.MaxTextureSize,
			MaxAnimationSeconds: rt.limits.MaxAnimationSeconds,
		},
		Guidance: "Prefer high-level tools (ensure_project, add_cube, assign_texture) before low-level face edits.",
	}
}

type toolSummary struct {
	Name        string      `json:"name"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	InputSchema interface{} `json:"inputSchema"`
}

func (rt *Router) buildToolsList() map[string]interface{} {
	defs := rt.registry.List()
	tools := make([]toolSummary, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, toolSummary{Name: d.Name, Title: d.Title, Description: d.Description, InputSchema: d.InputSchema})
	}
	return map[string]interface{}{"tools": tools}
}
