package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps connection metadata and presence status in Redis so other
// instances can see who is reachable.
// Keys used:
// - <prefix>:conn:<userID>     set of connection meta JSON
// - <prefix>:presence:<userID> json {status,last_seen}
type Store struct {
	client *redis.Client
	prefix string
}

// offlineTTL bounds how long the last-seen record of a departed user stays
// readable; without it offline keys would accumulate forever.
const offlineTTL = 24 * time.Hour

type ConnMeta struct {
	SocketID    string `json:"socket_id"`
	ConnectedAt int64  `json:"connected_at"`
}

type Status struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func NewStore(r *redis.Client, prefix string) *Store {
	return &Store{client: r, prefix: prefix}
}

func (s *Store) connKey(userID int64) string {
	return fmt.Sprintf("%s:conn:%d", s.prefix, userID)
}

func (s *Store) presenceKey(userID int64) string {
	return fmt.Sprintf("%s:presence:%d", s.prefix, userID)
}

// AddConnection registers a connection and marks the user online. Both keys
// expire after ttl unless refreshed.
func (s *Store) AddConnection(ctx context.Context, userID int64, socketID string, ttl time.Duration) error {
	meta, _ := json.Marshal(ConnMeta{SocketID: socketID, ConnectedAt: time.Now().Unix()})
	if err := s.client.SAdd(ctx, s.connKey(userID), meta).Err(); err != nil {
		return err
	}
	_ = s.client.Expire(ctx, s.connKey(userID), ttl).Err()
	return s.setStatus(ctx, userID, "online", ttl)
}

// Refresh extends the TTL of both keys; called from the read pump while the
// connection stays active.
func (s *Store) Refresh(ctx context.Context, userID int64, ttl time.Duration) {
	_ = s.client.Expire(ctx, s.connKey(userID), ttl).Err()
	_ = s.client.Expire(ctx, s.presenceKey(userID), ttl).Err()
}

// RemoveConnection drops the matching set member; when it was the user's
// last connection the presence flips to offline.
func (s *Store) RemoveConnection(ctx context.Context, userID int64, socketID string) error {
	key := s.connKey(userID)
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		var cm ConnMeta
		_ = json.Unmarshal([]byte(m), &cm)
		if cm.SocketID == socketID {
			_ = s.client.SRem(ctx, key, m).Err()
		}
	}
	cnt, _ := s.client.SCard(ctx, key).Result()
	if cnt == 0 {
		return s.setStatus(ctx, userID, "offline", offlineTTL)
	}
	return nil
}

func (s *Store) setStatus(ctx context.Context, userID int64, status string, ttl time.Duration) error {
	b, _ := json.Marshal(Status{Status: status, LastSeen: time.Now().Unix()})
	return s.client.Set(ctx, s.presenceKey(userID), b, ttl).Err()
}

// GetPresence returns the stored presence, defaulting to offline when the
// key is gone (expired or never set).
func (s *Store) GetPresence(ctx context.Context, userID int64) (Status, error) {
	b, err := s.client.Get(ctx, s.presenceKey(userID)).Bytes()
	if err == redis.Nil {
		return Status{Status: "offline"}, nil
	}
	if err != nil {
		return Status{}, err
	}
	var out Status
	_ = json.Unmarshal(b, &out)
	return out, nil
}
