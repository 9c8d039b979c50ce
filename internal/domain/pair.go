package domain

import (
	"fmt"

	"github.com/KhanMaytok/pixl-interview/internal/apperr"
)

// Pair is the canonical identity of a two-party chat: the participant ids
// ordered so Low < High. Both the write and the read path resolve through
// it, so first contact from either direction lands on the same chat.
type Pair struct {
	Low  int64
	High int64
}

// ResolvePair canonicalizes an unordered pair of user ids. A chat with
// oneself is invalid.
func ResolvePair(a, b int64) (Pair, error) {
	if a == b {
		return Pair{}, fmt.Errorf("%w: cannot open a chat with yourself", apperr.ErrValidation)
	}
	if a < b {
		return Pair{Low: a, High: b}, nil
	}
	return Pair{Low: b, High: a}, nil
}
