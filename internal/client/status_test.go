package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/voicerelay/internal/utils"
)

func TestStatusPresentation(t *testing.T) {
	cases := []struct {
		status Status
		text   string
		color  string
	}{
		{StatusConnecting, "Connecting...", "#f39c12"},
		{StatusConnected, "Connected & Listening", "#27ae60"},
		{StatusConnectionError, "Connection Error", "#e74c3c"},
		{StatusRecognitionError, "Recognition Error", "#e74c3c"},
		{StatusUnsupported, "Speech recognition not supported", "#e74c3c"},
		{StatusDisconnected, "Disconnected", "#95a5a6"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.text, tc.status.Text())
		assert.Equal(t, tc.color, tc.status.Color(), tc.text)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeNative, "Native": ModeNative, "relay": ModeRelay, "off": ModeNone} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("browser")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.Equal(t, "relay", ModeRelay.String())
	assert.Equal(t, "capturing", StateCapturing.String())
}

func TestTranscript(t *testing.T) {
	var tr Transcript
	tr.Append("hello ")
	tr.Append("world ")
	assert.Equal(t, "hello world ", tr.String())
	assert.Equal(t, "ld ", tr.Tail(3))
	assert.Equal(t, "hello world ", tr.Tail(100))
	assert.Empty(t, tr.Tail(0))

	tr.Set(UnavailableMessage)
	assert.Equal(t, UnavailableMessage, tr.String())
}
