package door

import "sync"

// Sessions tracks which command, if any, owns a node's conversation.
// While a session is active every message from that node is routed to
// the owning command without requiring the command word again.
type Sessions struct {
	mu     sync.RWMutex
	active map[string]string
}

func NewSessions() *Sessions {
	return &Sessions{active: make(map[string]string)}
}

// Begin routes future messages from node to the named command.
func (s *Sessions) Begin(node, command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[node] = command
}

// End releases the node back to normal command dispatch.
func (s *Sessions) End(node string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, node)
}

// Active returns the command owning the node's session, or "".
func (s *Sessions) Active(node string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[node]
}
