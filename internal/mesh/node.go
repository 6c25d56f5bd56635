package mesh

import (
	"fmt"
	"regexp"
	"time"
)

// NodeInfo describes a mesh participant as last seen by the transport.
type NodeInfo struct {
	ID        string
	LongName  string
	ShortName string
	LastHeard time.Time
}

// Message is one inbound direct text message from the transport.
type Message struct {
	From string
	Text string
}

// Interface is the capability the bot consumes from the radio link:
// send text to a node and inspect the node roster. The real radio
// transport is an external collaborator; Bridge provides a development
// implementation.
type Interface interface {
	SendText(text, node string) error
	Nodes() map[string]NodeInfo
	Self() NodeInfo
}

var nodeIDPattern = regexp.MustCompile(`^![0-9A-Fa-f]{8}$`)

// IsNodeID reports whether value looks like a mesh node id (!XXXXXXXX).
func IsNodeID(value string) bool {
	return nodeIDPattern.MatchString(value)
}

// LongName returns the long name for a node id, falling back to a
// generated name when the roster has no entry.
func LongName(nodes map[string]NodeInfo, nodeID string) string {
	if n, ok := nodes[nodeID]; ok && n.LongName != "" {
		return n.LongName
	}
	return fmt.Sprintf("Meshtastic_%s", tail(nodeID, 4))
}

// ShortName returns the short name for a node id, falling back to the
// last four characters of the id.
func ShortName(nodes map[string]NodeInfo, nodeID string) string {
	if n, ok := nodes[nodeID]; ok && n.ShortName != "" {
		return n.ShortName
	}
	return tail(nodeID, 4)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
