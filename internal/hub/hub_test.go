package hub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	received []any
}

func (s *recordingSink) Send(v any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, v)
	return true
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func TestHub_PublishReachesOnlyTheTargetUser(t *testing.T) {
	req := require.New(t)
	h := NewHub()

	alice := &recordingSink{}
	bob := &recordingSink{}
	h.Subscribe(1, alice)
	h.Subscribe(2, bob)

	n := h.Publish(2, "hello")

	req.Equal(1, n)
	req.Equal(1, bob.count())
	req.Zero(alice.count())
}

func TestHub_MultipleChannelsPerUser(t *testing.T) {
	req := require.New(t)
	h := NewHub()

	phone := &recordingSink{}
	laptop := &recordingSink{}
	h.Subscribe(7, phone)
	h.Subscribe(7, laptop)

	n := h.Publish(7, "ping")

	req.Equal(2, n)
	req.Equal(1, phone.count())
	req.Equal(1, laptop.count())
}

func TestHub_PublishToEmptyTopicIsNoop(t *testing.T) {
	req := require.New(t)
	h := NewHub()

	req.Zero(h.Publish(99, "nobody home"))
	req.False(h.Online(99))
}

func TestHub_UnsubscribeRemovesOnlyThatChannel(t *testing.T) {
	req := require.New(t)
	h := NewHub()

	phone := &recordingSink{}
	laptop := &recordingSink{}
	h.Subscribe(7, phone)
	h.Subscribe(7, laptop)

	h.Unsubscribe(7, phone)

	req.True(h.Online(7))
	req.Equal(1, h.Publish(7, "still here"))
	req.Zero(phone.count())
	req.Equal(1, laptop.count())

	h.Unsubscribe(7, laptop)
	req.False(h.Online(7))
	req.Zero(h.Publish(7, "gone"))
}

func TestHub_UserChurnDoesNotAffectOthers(t *testing.T) {
	req := require.New(t)
	h := NewHub()

	alice := &recordingSink{}
	h.Subscribe(1, alice)

	bob := &recordingSink{}
	h.Subscribe(2, bob)
	h.Unsubscribe(2, bob)

	req.True(h.Online(1))
	req.Equal(1, h.Publish(1, "unaffected"))
}

func TestHub_ConcurrentAccess(t *testing.T) {
	req := require.New(t)
	h := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		userID := int64(i % 5)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := &recordingSink{}
			h.Subscribe(userID, s)
			h.Publish(userID, "x")
			h.Unsubscribe(userID, s)
		}()
	}
	wg.Wait()

	for uid := int64(0); uid < 5; uid++ {
		req.False(h.Online(uid))
	}
}
