package mail

import "sync"

// CommandStack tracks each node's navigation depth through the mail
// subcommand tree. One message can push several levels at once ("mail
// admin alias add !1a2b3c4d") or one level per message interactively.
type CommandStack struct {
	mu    sync.RWMutex
	stack map[string][]string
}

func NewCommandStack() *CommandStack {
	return &CommandStack{stack: make(map[string][]string)}
}

func (s *CommandStack) Push(node, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack[node] = append(s.stack[node], value)
}

// Pop removes and returns the top entry, or "" when the stack is empty.
func (s *CommandStack) Pop(node string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.stack[node]
	if len(entries) == 0 {
		return ""
	}
	top := entries[len(entries)-1]
	s.stack[node] = entries[:len(entries)-1]
	return top
}

// Get returns the entry at the given zero-based depth, or "".
func (s *CommandStack) Get(node string, level int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.stack[node]
	if level < 0 || level >= len(entries) {
		return ""
	}
	return entries[level]
}

// All returns a copy of the node's full stack.
func (s *CommandStack) All(node string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.stack[node]
	out := make([]string, len(entries))
	copy(out, entries)
	return out
}

func (s *CommandStack) Depth(node string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stack[node])
}

// Clear resets the node's stack to the mail root.
func (s *CommandStack) Clear(node string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack[node] = []string{CmdMail}
}

// Reset forgets the node's navigation state entirely.
func (s *CommandStack) Reset(node string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stack, node)
}

// Load pushes the input's current token onto the stack when it matches
// one of the valid next-level command names; otherwise it is a no-op.
func (s *CommandStack) Load(node string, in *Input, valid ...string) {
	current := in.Peek()
	for _, v := range valid {
		if current == v {
			s.Push(node, in.Pop())
			return
		}
	}
}
