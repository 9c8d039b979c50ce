package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/KhanMaytok/pixl-interview/internal/domain"
)

// Publisher emits domain events for downstream consumers (notification
// pipelines, analytics). Delivery is fire-and-forget: a dead broker must
// never stall message persistence, so every publish goes through a circuit
// breaker and failures are only logged.
type Publisher struct {
	nc  *nats.Conn
	cb  *gobreaker.CircuitBreaker
	log *zap.SugaredLogger
}

func NewPublisher(natsURL string, log *zap.SugaredLogger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "nats-events",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})
	return &Publisher{nc: nc, cb: cb, log: log}, nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

func (p *Publisher) MessageCreated(m *domain.Message) {
	p.publish("message.created", m)
}

func (p *Publisher) MessageEdited(m *domain.Message) {
	p.publish("message.edited", m)
}

func (p *Publisher) ChatTrashed(chatID, userID int64) {
	p.publish("chat.trashed", struct {
		ChatID int64 `json:"chat_id"`
		UserID int64 `json:"user_id"`
	}{ChatID: chatID, UserID: userID})
}

func (p *Publisher) publish(subject string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		p.log.Errorw("marshal event", "subject", subject, "err", err)
		return
	}
	_, err = p.cb.Execute(func() (any, error) {
		return nil, p.nc.Publish(subject, b)
	})
	if err != nil {
		p.log.Warnw("publish event", "subject", subject, "err", err)
	}
}
