package door

import "meshdoor/internal/mesh"

// Command is one pluggable message handler. Incoming messages whose
// first word matches Name() are passed to Invoke.
type Command interface {
	// Name is the word that triggers this command.
	Name() string
	// Description is shown in the bot's command list.
	Description() string
	// Help is shown for 'help <command>'.
	Help() string
	// Invoke handles one message from a node and returns the reply text.
	// An error is reported to the user generically.
	Invoke(msg, node string) (string, error)
}

// Env is handed to commands that implement Loader so they can reach the
// transport and the persistent session table.
type Env struct {
	Interface mesh.Interface
	Sessions  *Sessions
}

// Loader is implemented by commands that need resources at startup. A
// load failure excludes the command from the active set.
type Loader interface {
	Load(env Env) error
}

// PeriodicRunner is implemented by commands that want the periodic tick.
type PeriodicRunner interface {
	Periodic()
}

// Shutdowner is implemented by commands that hold resources.
type Shutdowner interface {
	Shutdown()
}
