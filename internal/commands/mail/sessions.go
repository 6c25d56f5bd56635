package mail

import "sync"

// ComposeState carries a node's in-progress send/reply fields across
// messages. Abandoned flows simply leave stale state in memory until
// restart; node counts are small enough that this is acceptable.
type ComposeState struct {
	To           string
	Subject      string
	Body         string
	MsgContent   bool
	ReplyTo      string
	ReplySubject string
}

// SessionStore provides per-node conversational state for the session
// controller. The default is an in-memory map; the controller depends
// only on this interface.
type SessionStore interface {
	// Compose returns the node's compose state, creating it if absent.
	// The dispatcher is non-reentrant, so the returned value may be
	// mutated directly.
	Compose(node string) *ComposeState
	ResetCompose(node string)
	// Mailbox returns an admin-selected mailbox override, or "".
	Mailbox(node string) string
	SelectMailbox(node, mailbox string)
}

// MemorySessions is the process-lifetime SessionStore.
type MemorySessions struct {
	mu      sync.RWMutex
	compose map[string]*ComposeState
	profile map[string]string
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{
		compose: make(map[string]*ComposeState),
		profile: make(map[string]string),
	}
}

func (s *MemorySessions) Compose(node string) *ComposeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.compose[node]
	if !ok {
		cs = &ComposeState{}
		s.compose[node] = cs
	}
	return cs
}

func (s *MemorySessions) ResetCompose(node string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.compose, node)
}

func (s *MemorySessions) Mailbox(node string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile[node]
}

func (s *MemorySessions) SelectMailbox(node, mailbox string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mailbox == "" {
		delete(s.profile, node)
		return
	}
	s.profile[node] = mailbox
}
