package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KhanMaytok/pixl-interview/internal/apperr"
)

func TestResolvePair_Symmetric(t *testing.T) {
	req := require.New(t)

	pairs := [][2]int64{{1, 2}, {2, 1}, {42, 7}, {7, 42}, {1, 1000000}}
	for _, p := range pairs {
		ab, err := ResolvePair(p[0], p[1])
		req.NoError(err)
		ba, err := ResolvePair(p[1], p[0])
		req.NoError(err)

		req.Equal(ab, ba)
		req.Less(ab.Low, ab.High)
	}
}

func TestResolvePair_SelfChatRejected(t *testing.T) {
	req := require.New(t)

	_, err := ResolvePair(5, 5)
	req.Error(err)
	req.ErrorIs(err, apperr.ErrValidation)
}

func TestChat_Peer(t *testing.T) {
	req := require.New(t)

	c := Chat{ID: 1, LowID: 3, HighID: 9}

	peer, ok := c.Peer(3)
	req.True(ok)
	req.Equal(int64(9), peer)

	peer, ok = c.Peer(9)
	req.True(ok)
	req.Equal(int64(3), peer)

	_, ok = c.Peer(4)
	req.False(ok)
}

func TestMessage_VisibleTo(t *testing.T) {
	req := require.New(t)

	m := Message{SenderID: 1, Content: "hello"}
	req.True(m.VisibleTo(1))
	req.True(m.VisibleTo(2))

	hidden := int64(2)
	m.DeletedFor = &hidden
	req.True(m.VisibleTo(1))
	req.False(m.VisibleTo(2))
}
