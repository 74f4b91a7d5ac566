// Package session implements the recording-session core: the Token/Session
// data model and the Controller state machine that governs which operator
// actions are legal at each point in a multi-token recording pass.
//
// A Session is created once from a manifest, mutated only through Controller
// commands, and terminated by a successful submission. The presentation
// layer drives the Controller and renders read-only [Snapshot] values; it
// never touches Token or Session state directly.
package session

import (
	"fmt"
	"time"
)

// Identity carries the opaque pass-through identifiers attached to the
// submission payload.
type Identity struct {
	UserID       string
	ManagerID    string
	CollectionID string
}

// Session holds the ordered token sequence, the cursor, and the session
// metadata for one recording pass. The token sequence is fixed at creation:
// tokens are never inserted or removed, only their state changes.
type Session struct {
	identity  Identity
	tokens    []*Token
	cursor    int
	startedAt time.Time
}

// New creates a Session over the given tokens with the cursor at the first
// token and no recording state anywhere. Token IDs must be non-empty and
// unique; the token list must not be empty.
func New(identity Identity, seeds []TokenSeed, startedAt time.Time) (*Session, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("session: token list must not be empty")
	}

	seen := make(map[string]struct{}, len(seeds))
	tokens := make([]*Token, len(seeds))
	for i, seed := range seeds {
		if seed.ID == "" {
			return nil, fmt.Errorf("session: token at index %d has an empty id", i)
		}
		if _, dup := seen[seed.ID]; dup {
			return nil, fmt.Errorf("session: duplicate token id %q", seed.ID)
		}
		seen[seed.ID] = struct{}{}
		tokens[i] = &Token{
			id:        seed.ID,
			text:      seed.Text,
			reference: seed.Reference,
		}
	}

	return &Session{
		identity:  identity,
		tokens:    tokens,
		startedAt: startedAt,
	}, nil
}

// current returns the token under the cursor.
func (s *Session) current() *Token {
	return s.tokens[s.cursor]
}

// submittable reports whether at least one token has been processed, i.e.
// carries a recording or a skip mark. A session with zero processed tokens
// cannot submit.
func (s *Session) submittable() bool {
	for _, t := range s.tokens {
		if t.recording != nil || t.skipped {
			return true
		}
	}
	return false
}
