package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KhanMaytok/pixl-interview/internal/domain"
)

func TestInbound_PlainSendDefaultsToChat(t *testing.T) {
	req := require.New(t)

	var in Inbound
	req.NoError(json.Unmarshal([]byte(`{"message":"hi","receiver":2}`), &in))
	req.NoError(in.Validate())
	req.Equal(KindChat, in.Kind())
}

func TestInbound_EditRequiresMessageID(t *testing.T) {
	var in Inbound
	require.NoError(t, json.Unmarshal([]byte(`{"type":"edit","message":"fix","receiver":2}`), &in))
	assert.Error(t, in.Validate())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"edit","messageId":9,"message":"fix","receiver":2}`), &in))
	assert.NoError(t, in.Validate())
}

// Edits name only the message; the recipient of the live update is derived
// server-side from the chat, so no receiver field is required.
func TestInbound_EditNeedsNoReceiver(t *testing.T) {
	var in Inbound
	require.NoError(t, json.Unmarshal([]byte(`{"type":"edit","messageId":9,"message":"fix"}`), &in))
	assert.NoError(t, in.Validate())
}

func TestInbound_RejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"unknown type", `{"type":"broadcast","message":"hi","receiver":2}`},
		{"missing receiver", `{"message":"hi"}`},
		{"missing message", `{"receiver":2}`},
		{"negative receiver", `{"message":"hi","receiver":-1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var in Inbound
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &in))
			assert.Error(t, in.Validate())
		})
	}
}

func TestChatPayload_CarriesEverythingForRendering(t *testing.T) {
	req := require.New(t)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &domain.Message{ID: 11, ChatID: 3, SenderID: 1, Content: "hello", CreatedAt: created}

	out := ChatPayload(m)
	req.Equal(KindChat, out.Type)
	req.Equal(int64(1), out.Sender)
	req.Equal(int64(11), out.MessageID)
	req.Equal("hello", out.Message)
	req.Equal(created.UnixMilli(), out.Timestamp)

	b, err := json.Marshal(out)
	req.NoError(err)
	req.JSONEq(`{"type":"chat","sender":1,"messageId":11,"message":"hello","timestamp":1740830400000}`, string(b))
}

func TestSystemNotice_OmitsSender(t *testing.T) {
	req := require.New(t)

	b, err := json.Marshal(SystemNotice("Connected to chat"))
	req.NoError(err)

	var decoded map[string]any
	req.NoError(json.Unmarshal(b, &decoded))
	req.Equal("system", decoded["type"])
	req.NotContains(decoded, "sender")
	req.NotContains(decoded, "messageId")
}

func TestEditPayload_UsesEditTimestamp(t *testing.T) {
	req := require.New(t)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	editedAt := created.Add(time.Hour)
	m := &domain.Message{ID: 11, SenderID: 1, Content: "fixed", CreatedAt: created, Edited: true, EditedAt: &editedAt}

	out := EditPayload(m)
	req.Equal(KindEdit, out.Type)
	req.Equal(editedAt.UnixMilli(), out.Timestamp)
}
