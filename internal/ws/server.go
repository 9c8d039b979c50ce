package ws

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KhanMaytok/pixl-interview/internal/config"
	"github.com/KhanMaytok/pixl-interview/internal/hub"
	"github.com/KhanMaytok/pixl-interview/internal/kafka"
	"github.com/KhanMaytok/pixl-interview/internal/metrics"
	"github.com/KhanMaytok/pixl-interview/internal/presence"
	"github.com/KhanMaytok/pixl-interview/internal/service"
)

// Server runs one chat session per websocket connection: subscribe on open,
// persist-then-deliver on every inbound event, unsubscribe on close.
type Server struct {
	hub        *hub.Hub
	svc        *service.MessageService
	producer   *kafka.Producer
	pres       *presence.Store
	cfg        config.WS
	instanceID string
	log        *zap.SugaredLogger
}

func NewServer(h *hub.Hub, svc *service.MessageService, producer *kafka.Producer, pres *presence.Store, cfg config.WS, instanceID string, log *zap.SugaredLogger) *Server {
	return &Server{hub: h, svc: svc, producer: producer, pres: pres, cfg: cfg, instanceID: instanceID, log: log}
}

// relayEnvelope wraps a payload crossing the shared relay topic. Every
// instance consumes the topic under its own group, so the publisher sees its
// own writes echoed back; Origin is what lets it skip them.
type relayEnvelope struct {
	Origin   string   `json:"origin"`
	Receiver int64    `json:"receiver"`
	Payload  Outbound `json:"payload"`
}

// HandleWS is the websocket.Handler used with websocket.New(). The owning
// identity comes from the JWT middleware Locals carried through the
// upgrade, never from a client-supplied field.
func (s *Server) HandleWS(wsConn *websocket.Conn) {
	userID, ok := wsConn.Locals("user_id").(int64)
	if !ok || userID <= 0 {
		_ = wsConn.Close()
		return
	}

	client := newClient(wsConn, userID, uuid.NewString(), s.cfg.SendBuffer, s.cfg.RatePerSec)

	s.hub.Subscribe(userID, client)
	metrics.Connections.Inc()
	if err := s.pres.AddConnection(context.Background(), userID, client.socketID, s.cfg.PresenceTTL()); err != nil {
		s.log.Warnw("presence add", "user", userID, "err", err)
	}

	client.Send(SystemNotice("Connected to chat"))
	go client.writePump()

	s.readLoop(client)

	// Closed: deregister this channel only. No disconnect notice is
	// published; a user topic is not bound to a single peer, so peers watch
	// presence instead.
	s.hub.Unsubscribe(userID, client)
	client.close()
	metrics.Connections.Dec()
	if err := s.pres.RemoveConnection(context.Background(), userID, client.socketID); err != nil {
		s.log.Warnw("presence remove", "user", userID, "err", err)
	}
}

func (s *Server) readLoop(c *Client) {
	c.ws.SetReadLimit(int64(s.cfg.MaxMessageBytes))

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		if !c.limiter.Allow() {
			c.Send(SystemNotice("Rate limit exceeded"))
			continue
		}

		s.pres.Refresh(context.Background(), c.userID, s.cfg.PresenceTTL())

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.Send(SystemNotice("Invalid payload"))
			continue
		}
		if err := in.Validate(); err != nil {
			c.Send(SystemNotice("Invalid payload"))
			continue
		}

		switch in.Kind() {
		case KindChat:
			s.handleChat(c, in)
		case KindEdit:
			s.handleEdit(c, in)
		}
	}
}

// handleChat persists first, then delivers to the receiver's topic only.
// The sender's own channels get nothing on success; only a failure talks
// back.
func (s *Server) handleChat(c *Client, in Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := s.svc.CreateMessage(ctx, c.userID, in.Receiver, in.Message)
	if err != nil {
		s.log.Errorw("save message", "sender", c.userID, "err", err)
		c.Send(SystemNotice("Error saving message"))
		return
	}
	metrics.MessagesSent.Inc()

	s.Broadcast(in.Receiver, ChatPayload(m))
}

func (s *Server) handleEdit(c *Client, in Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := s.svc.EditMessage(ctx, in.MessageID, c.userID, in.Message)
	if err != nil {
		c.Send(SystemNotice("Unable to edit message"))
		return
	}

	// The live update goes to the chat's other participant, derived from the
	// edited message itself; the client does not get to pick the target.
	peer, err := s.svc.ChatPeer(ctx, m.ChatID, c.userID)
	if err != nil {
		s.log.Warnw("resolve edit peer", "chat", m.ChatID, "err", err)
		return
	}
	s.Broadcast(peer, EditPayload(m))
}

// Broadcast delivers to the receiver's local channels and relays through
// the cross-instance pipe so connections held by another process still see
// the payload. Also used by the REST handlers after a persisted write.
func (s *Server) Broadcast(receiverID int64, out Outbound) {
	if n := s.hub.Publish(receiverID, out); n > 0 {
		metrics.MessagesDelivered.Add(float64(n))
	}
	if s.producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	env := relayEnvelope{Origin: s.instanceID, Receiver: receiverID, Payload: out}
	if err := s.producer.Publish(ctx, receiverID, env); err != nil {
		s.log.Warnw("relay publish", "receiver", receiverID, "err", err)
	}
}

// HandleEventMessage feeds a relayed payload into the local hub. Envelopes
// this instance published itself are dropped: their local delivery already
// happened in Broadcast, and re-publishing would double-deliver to any
// receiver connected here.
func (s *Server) HandleEventMessage(key string, value []byte) {
	receiverID, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		s.log.Warnw("relay key", "key", key, "err", err)
		return
	}
	var env relayEnvelope
	if err := json.Unmarshal(value, &env); err != nil {
		s.log.Warnw("relay payload", "err", err)
		return
	}
	if env.Origin == s.instanceID {
		return
	}
	if n := s.hub.Publish(receiverID, env.Payload); n > 0 {
		metrics.MessagesDelivered.Add(float64(n))
	}
}
