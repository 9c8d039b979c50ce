package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KhanMaytok/pixl-interview/internal/config"
	"github.com/KhanMaytok/pixl-interview/internal/domain"
	"github.com/KhanMaytok/pixl-interview/internal/hub"
)

type recordingSink struct {
	got []Outbound
}

func (r *recordingSink) Send(v any) bool {
	out, ok := v.(Outbound)
	if !ok {
		return false
	}
	r.got = append(r.got, out)
	return true
}

func newRelayServer(instanceID string) (*Server, *hub.Hub) {
	h := hub.NewHub()
	srv := NewServer(h, nil, nil, nil, config.WS{}, instanceID, zap.NewNop().Sugar())
	return srv, h
}

func testPayload() Outbound {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return ChatPayload(&domain.Message{ID: 11, ChatID: 3, SenderID: 1, Content: "hello", CreatedAt: created})
}

// The relay topic is shared, so the origin instance consumes its own
// publishes. A receiver connected to the origin must still see the payload
// exactly once: the echoed envelope is dropped, not re-published.
func TestRelayEchoIsNotDeliveredTwice(t *testing.T) {
	req := require.New(t)
	srv, h := newRelayServer("instance-a")

	bob := &recordingSink{}
	h.Subscribe(2, bob)

	out := testPayload()
	srv.Broadcast(2, out)

	b, err := json.Marshal(relayEnvelope{Origin: "instance-a", Receiver: 2, Payload: out})
	req.NoError(err)
	srv.HandleEventMessage("2", b)

	req.Len(bob.got, 1)
	req.Equal(out, bob.got[0])
}

func TestHandleEventMessage_DeliversForeignEnvelopes(t *testing.T) {
	req := require.New(t)
	srv, h := newRelayServer("instance-a")

	bob := &recordingSink{}
	h.Subscribe(2, bob)

	out := testPayload()
	b, err := json.Marshal(relayEnvelope{Origin: "instance-b", Receiver: 2, Payload: out})
	req.NoError(err)
	srv.HandleEventMessage("2", b)

	req.Len(bob.got, 1)
	req.Equal(out, bob.got[0])
}

func TestHandleEventMessage_IgnoresGarbage(t *testing.T) {
	srv, h := newRelayServer("instance-a")

	bob := &recordingSink{}
	h.Subscribe(2, bob)

	srv.HandleEventMessage("not-a-user-id", []byte(`{}`))
	srv.HandleEventMessage("2", []byte(`{broken`))

	require.Empty(t, bob.got)
}
