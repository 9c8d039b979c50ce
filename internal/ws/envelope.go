package ws

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/KhanMaytok/pixl-interview/internal/domain"
)

const (
	KindSystem = "system"
	KindChat   = "chat"
	KindEdit   = "edit"
)

var validate = validator.New()

// Inbound is the client wire format. A missing type means a plain chat
// send, which requires a receiver; "edit" instead requires the target
// message id, and the update's recipient is derived server-side from the
// edited message's chat. Anything else is rejected before dispatch.
type Inbound struct {
	Type      string `json:"type" validate:"omitempty,oneof=chat edit"`
	MessageID int64  `json:"messageId" validate:"required_if=Type edit,omitempty,gt=0"`
	Message   string `json:"message" validate:"required,max=4096"`
	Receiver  int64  `json:"receiver" validate:"omitempty,gt=0"`
}

// Kind normalizes the untyped legacy send to a chat event.
func (in Inbound) Kind() string {
	if in.Type == "" {
		return KindChat
	}
	return in.Type
}

func (in Inbound) Validate() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if in.Kind() == KindChat && in.Receiver == 0 {
		return errors.New("receiver required")
	}
	return nil
}

// Outbound is the server wire format. Timestamp is unix milliseconds so the
// recipient can render without another round trip.
type Outbound struct {
	Type      string `json:"type"`
	Sender    int64  `json:"sender,omitempty"`
	MessageID int64  `json:"messageId,omitempty"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func SystemNotice(text string) Outbound {
	return Outbound{
		Type:      KindSystem,
		Message:   text,
		Timestamp: time.Now().UnixMilli(),
	}
}

func ChatPayload(m *domain.Message) Outbound {
	return Outbound{
		Type:      KindChat,
		Sender:    m.SenderID,
		MessageID: m.ID,
		Message:   m.Content,
		Timestamp: m.CreatedAt.UnixMilli(),
	}
}

func EditPayload(m *domain.Message) Outbound {
	ts := m.CreatedAt
	if m.EditedAt != nil {
		ts = *m.EditedAt
	}
	return Outbound{
		Type:      KindEdit,
		Sender:    m.SenderID,
		MessageID: m.ID,
		Message:   m.Content,
		Timestamp: ts.UnixMilli(),
	}
}
