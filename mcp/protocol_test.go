package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegotiateProtocolVersionSupportedRequest(t *testing.T) {
	assert.Equal(t, "2024-11-05", NegotiateProtocolVersion("2024-11-05"))
}

func TestNegotiateProtocolVersionUnsupportedFallsBackToNewest(t *testing.T) {
	assert.Equal(t, SupportedProtocolVersions[0], NegotiateProtocolVersion("1999-01-01"))
}

func TestRequestIsNotification(t *testing.T) {
	withID := Request{ID: []byte(`1`)}
	assert.False(t, withID.IsNotification())

	without := Request{}
	assert.True(t, without.IsNotification())
}

func TestCurrentToolSchemaVersionIsADateString(t *testing.T) {
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, CurrentToolSchemaVersion)
}

func TestNewErrorDefaultsReasonlessButCarriesCode(t *testing.T) {
	resp := NewError([]byte(`1`), ErrMethodNotFound, "no such method", nil)
	require := assert.New(t)
	require.Nil(resp.Result)
	require.Equal(ErrMethodNotFound, resp.Error.Code)
	require.Equal("no such method", resp.Error.Message)
}
