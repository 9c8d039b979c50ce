package domain

import "time"

// Chat is the durable conversation between exactly two users. Exactly one
// document exists per unordered pair, enforced by a unique index on
// (low_id, high_id). Chats are created lazily on first message and never
// deleted; per-user hiding goes through trash entries instead.
type Chat struct {
	ID        int64     `bson:"_id" json:"id"`
	LowID     int64     `bson:"low_id" json:"lowId"`
	HighID    int64     `bson:"high_id" json:"highId"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Peer returns the other participant, or false when userID is not part of
// this chat.
func (c Chat) Peer(userID int64) (int64, bool) {
	switch userID {
	case c.LowID:
		return c.HighID, true
	case c.HighID:
		return c.LowID, true
	default:
		return 0, false
	}
}

// Message belongs to exactly one chat. Content, Edited and EditedAt may be
// mutated later, but only by the original sender. DeletedFor hides the
// message from that one user's view without touching the other side.
type Message struct {
	ID         int64      `bson:"_id" json:"id"`
	ChatID     int64      `bson:"chat_id" json:"chatId"`
	SenderID   int64      `bson:"sender_id" json:"sentBy"`
	Content    string     `bson:"content" json:"content"`
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	Edited     bool       `bson:"edited" json:"edited"`
	EditedAt   *time.Time `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
	DeletedFor *int64     `bson:"deleted_for,omitempty" json:"deletedFor,omitempty"`
}

// VisibleTo reports whether the message is part of userID's view.
func (m Message) VisibleTo(userID int64) bool {
	return m.DeletedFor == nil || *m.DeletedFor != userID
}

// TrashEntry records "hide all prior history in this chat for this user".
// Entries are append-only; only the most recent one per (chat, user) is
// semantically active, older ones stay inert.
type TrashEntry struct {
	ChatID    int64     `bson:"chat_id" json:"chatId"`
	UserID    int64     `bson:"user_id" json:"userId"`
	DeletedAt time.Time `bson:"deleted_at" json:"deletedAt"`
}
