package door

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"meshdoor/internal/mesh"
)

// Manager owns the command registry and dispatches inbound messages to
// command handlers. Messages are processed one at a time, so commands
// never see interleaved calls for the same node.
type Manager struct {
	iface    mesh.Interface
	sessions *Sessions
	commands []Command
}

func NewManager(iface mesh.Interface) *Manager {
	m := &Manager{
		iface:    iface,
		sessions: NewSessions(),
	}
	log.Printf("DoorManager is connected to %s", iface.Self().ID)
	return m
}

// Sessions exposes the persistent session table for commands.
func (m *Manager) Sessions() *Sessions {
	return m.sessions
}

// AddCommand registers a command. Duplicate names are rejected; a Load
// failure excludes the command but is not fatal to the bot.
func (m *Manager) AddCommand(cmd Command) error {
	if cmd.Name() == "" {
		return fmt.Errorf("command has no name")
	}
	for _, c := range m.commands {
		if c.Name() == cmd.Name() {
			return fmt.Errorf("command %q already loaded", cmd.Name())
		}
	}

	if loader, ok := cmd.(Loader); ok {
		log.Printf("Loading '%s' command..", cmd.Name())
		if err := loader.Load(Env{Interface: m.iface, Sessions: m.sessions}); err != nil {
			log.Printf("Command %s could not load: %v", cmd.Name(), err)
			return nil
		}
	}

	m.commands = append(m.commands, cmd)
	return nil
}

func (m *Manager) AddCommands(cmds ...Command) error {
	for _, cmd := range cmds {
		if err := m.AddCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// handler finds the command whose name prefixes the message.
func (m *Manager) handler(message string) Command {
	for _, cmd := range m.commands {
		name := cmd.Name()
		if len(message) >= len(name) && message[:len(name)] == name {
			return cmd
		}
	}
	return nil
}

func (m *Manager) byName(name string) Command {
	for _, cmd := range m.commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

// OnText handles one inbound message: active sessions first, then
// 'help <command>', then prefix dispatch, then the bot greeting.
func (m *Manager) OnText(text, node string) {
	log.Printf("RX %s (%3d): %s", node, len(text), text)

	if name := m.sessions.Active(node); name != "" {
		if cmd := m.byName(name); cmd != nil {
			if response := m.invoke(cmd, text, node); response != "" {
				m.SendDM(response, node)
			}
			return
		}
		m.sessions.End(node)
	}

	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "help ") {
		if cmd := m.handler(strings.TrimSpace(lower[5:])); cmd != nil {
			m.SendDM(m.helpCommand(cmd), node)
			return
		}
	}

	var response string
	if cmd := m.handler(lower); cmd != nil {
		response = m.invoke(cmd, text, node)
	} else {
		response = m.helpMessage()
	}
	if response != "" {
		m.SendDM(response, node)
	}
}

func (m *Manager) invoke(cmd Command, text, node string) string {
	response, err := cmd.Invoke(text, node)
	if err != nil {
		log.Printf("Command '%s' failed for %s: %v", cmd.Name(), node, err)
		return fmt.Sprintf("Command to '%s' failed.", cmd.Name())
	}
	return response
}

// SendDM delivers one reply payload to a node.
func (m *Manager) SendDM(message, node string) {
	log.Printf("TX %s (%3d): %s", node, len(message), message)
	if err := m.iface.SendText(message, node); err != nil {
		log.Printf("Failed to send to %s: %v", node, err)
	}
}

func (m *Manager) helpMessage() string {
	names := make([]string, 0, len(m.commands))
	for _, cmd := range m.commands {
		names = append(names, cmd.Name())
	}
	return fmt.Sprintf("Hi, I am a bot.\n\nTry one of these commands: %s or 'help <command>'.",
		strings.Join(names, ", "))
}

func (m *Manager) helpCommand(cmd Command) string {
	description := cmd.Description()
	help := cmd.Help()
	switch {
	case description != "" && help != "":
		return description + "\n\n" + help
	case description != "":
		return description
	case help != "":
		return help
	default:
		return "No help for this command"
	}
}

// Run consumes the transport's event stream until the context is
// cancelled, ticking Periodic commands on the given interval.
func (m *Manager) Run(ctx context.Context, messages <-chan mesh.Message, periodicEvery time.Duration) error {
	ticker := time.NewTicker(periodicEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return ctx.Err()
		case msg := <-messages:
			m.OnText(msg.Text, msg.From)
		case <-ticker.C:
			for _, cmd := range m.commands {
				if p, ok := cmd.(PeriodicRunner); ok {
					p.Periodic()
				}
			}
		}
	}
}

func (m *Manager) shutdown() {
	log.Printf("Shutting down %d commands..", len(m.commands))
	for _, cmd := range m.commands {
		if s, ok := cmd.(Shutdowner); ok {
			s.Shutdown()
		}
	}
}
