package fortune

import (
	"fmt"
	"os/exec"
	"strings"

	"meshdoor/internal/door"
)

// Fortune shells out to the system fortune program for a short quip.
// Load fails when the binary is missing, which excludes the command.
type Fortune struct {
	path string
}

func New() *Fortune {
	return &Fortune{}
}

func (f *Fortune) Name() string {
	return "fortune"
}

func (f *Fortune) Description() string {
	return "Receive a short fortune"
}

func (f *Fortune) Help() string {
	return "Send 'fortune' for a short random quote."
}

func (f *Fortune) Load(env door.Env) error {
	path, err := exec.LookPath("fortune")
	if err != nil {
		return fmt.Errorf("failed to find fortune binary: %v", err)
	}
	f.path = path
	return nil
}

func (f *Fortune) Invoke(msg, node string) (string, error) {
	// -s keeps the output short enough for a single radio packet.
	out, err := exec.Command(f.path, "-a", "-s").Output()
	if err != nil {
		return "", fmt.Errorf("failed to run fortune: %v", err)
	}
	return strings.TrimSpace(string(out)), nil
}
