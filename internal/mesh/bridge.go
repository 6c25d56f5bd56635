package mesh

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// Bridge is a development transport that speaks a newline-delimited text
// protocol over TCP: each inbound line is "<nodeID> <text>". It tracks a
// roster with last-heard timestamps and routes replies back over the
// connection the node last used.
type Bridge struct {
	addr string
	self NodeInfo

	mu    sync.RWMutex
	nodes map[string]NodeInfo
	conns map[string]net.Conn

	messages chan Message
}

func NewBridge(addr string, self NodeInfo) *Bridge {
	return &Bridge{
		addr:     addr,
		self:     self,
		nodes:    make(map[string]NodeInfo),
		conns:    make(map[string]net.Conn),
		messages: make(chan Message, 16),
	}
}

// Messages is the inbound event stream consumed by the dispatcher.
func (b *Bridge) Messages() <-chan Message {
	return b.messages
}

func (b *Bridge) Self() NodeInfo {
	return b.self
}

// Nodes returns a copy of the roster.
func (b *Bridge) Nodes() map[string]NodeInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	nodes := make(map[string]NodeInfo, len(b.nodes))
	for id, n := range b.nodes {
		nodes[id] = n
	}
	return nodes
}

// SendText delivers one reply payload to a node. Payloads are capped by
// the pager upstream; the bridge sends them as-is.
func (b *Bridge) SendText(text, node string) error {
	b.mu.RLock()
	conn := b.conns[node]
	b.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("no connection for node %s", node)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", text); err != nil {
		return fmt.Errorf("failed to send to %s: %v", node, err)
	}
	return nil
}

// Listen accepts connections until the context is cancelled.
func (b *Bridge) Listen(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %v", b.addr, err)
	}
	log.Printf("Bridge listening on %s", b.addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Accept error: %v", err)
			continue
		}
		go b.handleConn(conn)
	}
}

func (b *Bridge) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		from, text, ok := strings.Cut(line, " ")
		if !ok || !IsNodeID(from) {
			fmt.Fprintf(conn, "expected: <!nodeID> <text>\n")
			continue
		}
		b.heard(from, conn)
		b.messages <- Message{From: from, Text: text}
	}
}

// heard updates the roster entry and reply route for a node.
func (b *Bridge) heard(nodeID string, conn net.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.nodes[nodeID]
	n.ID = nodeID
	n.LastHeard = time.Now()
	b.nodes[nodeID] = n
	b.conns[nodeID] = conn
}
