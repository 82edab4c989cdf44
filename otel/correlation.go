// correlation.go carries MCP session/tool identifiers across an OTel span
// via baggage, so a downstream collector can group spans by session
// without the gateway needing its own correlation-id header.
package otel

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
)

// GetTraceID extracts the OpenTelemetry trace ID from the current context
func GetTraceID(c echo.Context) string {
	span := trace.SpanFromContext(c.Request().Context())
	if !span.IsRecording() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// GetSpanID extracts the OpenTelemetry span ID from the current context
func GetSpanID(c echo.Context) string {
	span := trace.SpanFromContext(c.Request().Context())
	if !span.IsRecording() {
		return ""
	}
	return span.SpanContext().SpanID().String()
}

// AddSessionToBaggage records the MCP session id on the request's OTel
// baggage so every span emitted while handling this request can be
// grouped by session without a separate header lookup.
func AddSessionToBaggage(c echo.Context, sessionID string) {
	ctx := c.Request().Context()
	bag := baggage.FromContext(ctx)

	member, _ := baggage.NewMember("mcp_session_id", sessionID)
	bag, _ = bag.SetMember(member)

	newCtx := baggage.ContextWithBaggage(ctx, bag)
	c.SetRequest(c.Request().WithContext(newCtx))
}

// AddToolCallToBaggage records the dispatched tool name on baggage.
func AddToolCallToBaggage(c echo.Context, toolName string) {
	ctx := c.Request().Context()
	bag := baggage.FromContext(ctx)

	member, _ := baggage.NewMember("mcp_tool", toolName)
	bag, _ = bag.SetMember(member)

	newCtx := baggage.ContextWithBaggage(ctx, bag)
	c.SetRequest(c.Request().WithContext(newCtx))
}

// SessionFromBaggage retrieves the MCP session id set by
// AddSessionToBaggage, for handlers downstream of the one that set it.
func SessionFromBaggage(c echo.Context) string {
	bag := baggage.FromContext(c.Request().Context())
	return bag.Member("mcp_session_id").Value()
}
