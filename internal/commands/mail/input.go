package mail

import "strings"

// Input tokenizes one inbound message. Tokens are split on whitespace
// and lower-cased on access; free text (subjects, bodies) is recovered
// by re-joining the remaining tokens in original case.
type Input struct {
	raw  string
	args []string
}

func NewInput(msg string) *Input {
	return &Input{raw: msg, args: strings.Fields(msg)}
}

func (in *Input) Raw() string {
	return in.raw
}

// List returns the remaining tokens, lower-cased.
func (in *Input) List() []string {
	list := make([]string, len(in.args))
	for i, a := range in.args {
		list[i] = strings.ToLower(a)
	}
	return list
}

// Peek returns the first remaining token lower-cased, or "".
func (in *Input) Peek() string {
	if len(in.args) == 0 {
		return ""
	}
	return strings.ToLower(in.args[0])
}

// Pop removes and returns the first token lower-cased, or "" when the
// input is exhausted.
func (in *Input) Pop() string {
	if len(in.args) == 0 {
		return ""
	}
	first := strings.ToLower(in.args[0])
	in.args = in.args[1:]
	return first
}

// Rest joins the remaining tokens in original case. Significant
// whitespace is not preserved; callers treat the result as free text.
func (in *Input) Rest() string {
	return strings.Join(in.args, " ")
}

// Take removes and returns all remaining tokens in original case.
func (in *Input) Take() []string {
	tokens := in.args
	in.args = nil
	return tokens
}

func (in *Input) Len() int {
	return len(in.args)
}
