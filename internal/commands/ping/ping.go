package ping

// Ping answers 'ping' with 'pong'. Useful for checking that messages
// are making it through the mesh at all.
type Ping struct{}

func New() *Ping {
	return &Ping{}
}

func (p *Ping) Name() string {
	return "ping"
}

func (p *Ping) Description() string {
	return "Check that the bot is reachable"
}

func (p *Ping) Help() string {
	return "Send 'ping' and the bot replies 'pong'."
}

func (p *Ping) Invoke(msg, node string) (string, error) {
	return "pong", nil
}
