package history

import "sync"

// message roles in conversation order
const (
	RoleUser    = "user"
	RoleAI      = "ai"
	RoleError   = "error"
	RoleLoading = "loading"
	RoleSystem  = "system"
)

// represents a single entry in the conversation log
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is the append-only-with-filtering ordered log of messages and the
// single source of truth for every connected surface.
//
// Invariant: the log never contains two consecutive loading entries, and a
// loading entry is always removed before a terminal (ai/error) entry is
// appended for the same turn.
type Store struct {
	mu       sync.RWMutex
	messages []Message
}

func NewStore() *Store {
	return &Store{
		messages: make([]Message, 0, 64),
	}
}

// appends a message to the log. Appending a loading entry while another is
// live replaces it rather than stacking a second placeholder.
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Role == RoleLoading {
		s.messages = removeRole(s.messages, RoleLoading)
	}

	s.messages = append(s.messages, msg)
}

// removes every message matching the predicate, preserving order
func (s *Store) RemoveWhere(pred func(Message) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[:0]

	for _, msg := range s.messages {
		if !pred(msg) {
			kept = append(kept, msg)
		}
	}

	s.messages = kept
}

// removes all live loading placeholders
func (s *Store) ClearLoading() {
	s.RemoveWhere(func(m Message) bool {
		return m.Role == RoleLoading
	})
}

// returns a copy of the current log
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)

	return out
}

// returns prior user/ai turns for provider calls (loading, error, and
// system entries never reach a provider)
func (s *Store) ConversationTurns() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := make([]Message, 0, len(s.messages))

	for _, msg := range s.messages {
		if msg.Role == RoleUser || msg.Role == RoleAI {
			turns = append(turns, msg)
		}
	}

	return turns
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages)
}

func removeRole(messages []Message, role string) []Message {
	kept := messages[:0]

	for _, msg := range messages {
		if msg.Role != role {
			kept = append(kept, msg)
		}
	}

	return kept
}
