package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, "ws"), m
}

func TestPresenceLifecycle(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	st, err := s.GetPresence(ctx, 7)
	req.NoError(err)
	req.Equal("offline", st.Status)

	req.NoError(s.AddConnection(ctx, 7, "sock-1", time.Minute))
	st, err = s.GetPresence(ctx, 7)
	req.NoError(err)
	req.Equal("online", st.Status)

	req.NoError(s.RemoveConnection(ctx, 7, "sock-1"))
	st, err = s.GetPresence(ctx, 7)
	req.NoError(err)
	req.Equal("offline", st.Status)
}

func TestSecondConnectionKeepsUserOnline(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	req.NoError(s.AddConnection(ctx, 7, "sock-1", time.Minute))
	req.NoError(s.AddConnection(ctx, 7, "sock-2", time.Minute))
	req.NoError(s.RemoveConnection(ctx, 7, "sock-1"))

	st, err := s.GetPresence(ctx, 7)
	req.NoError(err)
	req.Equal("online", st.Status)
}

// The offline record must carry a TTL: without one every user who ever
// connected would leave a presence key behind forever.
func TestOfflineStatusExpires(t *testing.T) {
	req := require.New(t)
	s, m := newTestStore(t)
	ctx := context.Background()

	req.NoError(s.AddConnection(ctx, 7, "sock-1", time.Minute))
	req.NoError(s.RemoveConnection(ctx, 7, "sock-1"))

	req.Greater(m.TTL(s.presenceKey(7)), time.Duration(0))

	m.FastForward(offlineTTL + time.Second)
	req.False(m.Exists(s.presenceKey(7)))

	st, err := s.GetPresence(ctx, 7)
	req.NoError(err)
	req.Equal("offline", st.Status)
}
