package lark

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReceiveIDType(t *testing.T) {
	assert.Equal(t, "email", receiveIDType("director@example.com"))
	assert.Equal(t, "open_id", receiveIDType("ou_7d8a6e6df7621556ce0d21922b676706"))
	assert.Equal(t, "user_id", receiveIDType("4d7a3c6g"))
}

func TestTextContentEscapes(t *testing.T) {
	content, err := textContent(`Ticket "t-1" approved`, "line one\nline two")
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(content), &decoded))
	assert.Equal(t, "Ticket \"t-1\" approved\n\nline one\nline two", decoded["text"])

	content, err = textContent("", "body only")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"body only"}`, content)
}

func TestSendMessageRequiresRecipient(t *testing.T) {
	m := NewMessenger(nil, zap.NewNop())
	assert.Error(t, m.SendMessage(context.Background(), "", "subject", "body"))
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{AppID: "cli_x"}.Enabled())
	assert.True(t, Config{AppID: "cli_x", AppSecret: "secret"}.Enabled())
}
