// Package mail implements the interactive mail subsystem: a per-node
// command-stack-driven state machine that lets users read, send and
// manage mail through discrete size-capped text messages.
package mail

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"meshdoor/internal/conf"
	"meshdoor/internal/door"
	"meshdoor/internal/mesh"
)

// notifyWindow bounds how recently a node must have been heard for the
// periodic sweep to announce waiting mail.
const notifyWindow = 300 * time.Second

// Mail is the mail command: session controller over the command stack,
// help catalog, pager and mailbox store.
type Mail struct {
	cfg    *conf.Config
	iface  mesh.Interface
	doorSS *door.Sessions

	store  *Store
	help   *HelpCatalog
	stack  *CommandStack
	output *DisplayManager
	fmt    *NodeDisplayFormat
	sess   SessionStore
	admins map[string]bool
}

func New(cfg *conf.Config) *Mail {
	help := NewHelpCatalog()
	admins := make(map[string]bool)
	for _, a := range cfg.Admins {
		admins[a] = true
	}
	return &Mail{
		cfg:    cfg,
		help:   help,
		stack:  NewCommandStack(),
		output: NewDisplayManager(help),
		fmt:    NewNodeDisplayFormat(),
		sess:   NewMemorySessions(),
		admins: admins,
	}
}

func (m *Mail) Name() string        { return "mail" }
func (m *Mail) Description() string { return "Exchange mail messages with other nodes" }
func (m *Mail) Help() string        { return "'mail <read | delete | reply | send | admin>'" }

// Load opens the mailbox database. Failure excludes the command from
// the active set.
func (m *Mail) Load(env door.Env) error {
	m.iface = env.Interface
	m.doorSS = env.Sessions

	if err := os.MkdirAll(m.cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %v", err)
	}
	store, err := OpenStore(filepath.Join(m.cfg.DataDir, "mail.db"))
	if err != nil {
		return fmt.Errorf("failed to open mailbox store: %v", err)
	}
	m.store = store
	return nil
}

func (m *Mail) Shutdown() {
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			log.Printf("Error closing mailbox store: %v", err)
		}
	}
}

// resolveMailboxOwner maps the requesting node to the primary id of
// the mailbox it is authorized to operate on. Every mail operation
// goes through this resolver.
func (m *Mail) resolveMailboxOwner(node string) string {
	if selected := m.sess.Mailbox(node); selected != "" {
		return selected
	}
	primary, err := m.store.GetPrimaryAlias(node)
	if err != nil {
		log.Printf("Failed to resolve mailbox for %s: %v", node, err)
		return node
	}
	if primary != "" {
		return primary
	}
	return node
}

func (m *Mail) isAdmin(node string) bool {
	return m.admins[node]
}

// Invoke interprets one incoming message against the node's command
// stack, pager state and mailbox contents.
func (m *Mail) Invoke(msg, node string) (string, error) {
	mailbox := m.resolveMailboxOwner(node)
	in := NewInput(msg)
	trimmed := strings.ToLower(strings.TrimSpace(msg))

	cs := m.sess.Compose(node)
	if cs.MsgContent && trimmed == "exit" {
		// Abort composition but stay in the mail session
		m.sess.ResetCompose(node)
		m.stack.Clear(node)
		return m.output.DisplayPages(node, in, "Mail: send aborted\n"+m.rootStatus(mailbox), ""), nil
	}
	if trimmed == "exit" {
		m.doorSS.End(node)
		m.sess.ResetCompose(node)
		m.stack.Reset(node)
		m.output.Clear(node)
		return "Exit mail, goodbye", nil
	}
	m.doorSS.Begin(node, m.Name())

	// Multi-page output controls are intercepted before dispatch
	if m.output.Active(node) {
		switch trimmed {
		case "c":
			// Clear search for display choices
			in.Pop()
		case "q":
			m.output.Clear(node)
			in.Pop()
			return m.output.DisplayPages(node, in, m.help.Get(m.stack.All(node), in.List()), ""), nil
		case "n", "p", CmdHelp:
			return m.output.DisplayPages(node, in, "", ""), nil
		case "-", "+", "i", "l", "s":
			m.fmt.Set(node, trimmed)
			in.Pop()
		}
	}

	// Commands and parameters can be stacked in one message or
	// entered interactively one message at a time
	if in.Peek() == CmdMail {
		in.Pop()
	}
	if m.stack.Get(node, 0) == "" {
		m.stack.Push(node, CmdMail)
	}
	if m.stack.Get(node, 1) == "" {
		m.stack.Load(node, in, CmdAdmin, CmdRead, CmdReply, CmdSend, CmdDelete)
	}
	if (trimmed == "back" || trimmed == "up" || trimmed == "quit") && m.stack.Depth(node) > 1 {
		m.stack.Pop(node)
		in.Pop()
	}

	var response string
	switch m.stack.Get(node, 1) {
	case CmdAdmin:
		response = m.admin(node, mailbox, in)
	case CmdRead, CmdDelete:
		response = m.readDelete(node, mailbox, in)
	case CmdSend, CmdReply:
		response = m.sendReply(node, mailbox, in)
	default:
		response = m.rootStatus(mailbox)
	}
	if response == "" {
		response = m.help.Get(m.stack.All(node), in.List())
	}
	return m.output.DisplayPages(node, in, response, ""), nil
}

// rootStatus is the top-level reply: unread count plus root help.
func (m *Mail) rootStatus(mailbox string) string {
	count := 0
	if messages, err := m.store.GetMail(mailbox); err == nil {
		count = len(messages)
	} else {
		log.Printf("Failed to count mail for %s: %v", mailbox, err)
	}
	return fmt.Sprintf("You have %d messages\n", count) +
		m.help.Get([]string{CmdMail}, nil)
}

// readDelete serves the read and delete subcommands: mailbox listing,
// selection by index, and 'all' for delete.
func (m *Mail) readDelete(node, mailbox string, in *Input) string {
	sub := m.stack.Get(node, 1)
	sel := in.Peek()

	messages, err := m.store.GetMail(mailbox)
	if err != nil {
		log.Printf("Failed to list mail for %s: %v", mailbox, err)
		return "Mail operation failed"
	}
	if len(messages) == 0 {
		m.stack.Clear(node)
		return "You have no mail messages waiting"
	}

	switch {
	case isDigits(sel):
		index, _ := strconv.Atoi(sel)
		index--
		if index < 0 || index >= len(messages) {
			return "Invalid choice"
		}
		in.Pop()
		if sub == CmdRead {
			return m.readMessage(node, mailbox, messages[index])
		}
		return m.deleteMessage(node, mailbox, index, messages[index])

	case sel == "all" && sub == CmdDelete:
		cs := m.sess.Compose(node)
		cs.ReplyTo = ""
		cs.ReplySubject = ""
		count := 0
		for _, message := range messages {
			if err := m.store.DeleteMail(message.UniqueID, mailbox); err != nil {
				log.Printf("Failed to delete mail %s for %s: %v", message.UniqueID, mailbox, err)
				return fmt.Sprintf("Mail operation failed after deleting %d messages", count)
			}
			count++
		}
		return fmt.Sprintf("Deleted %d messages", count)

	default:
		var b strings.Builder
		for i, message := range messages {
			fmt.Fprintf(&b, "%d) %s %s %s\n", i+1, message.SenderShortName, message.Subject, shortDate(message.Date))
		}
		prompt := "# to select"
		if sub == CmdDelete {
			prompt = "# or 'all' to select"
		}
		m.output.Set(node, "", prompt, topicPager)
		return b.String()
	}
}

// readMessage renders one mail item and clears its notification flag.
// The header shrinks, then disappears, when header plus body would
// exceed the payload budget.
func (m *Mail) readMessage(node, mailbox string, summary MailSummary) string {
	if err := m.store.ClearNotify(mailbox, summary.ID); err != nil {
		log.Printf("Failed to clear notify for %s: %v", mailbox, err)
	}

	content, err := m.store.GetMailContent(summary.ID, mailbox)
	if err != nil {
		log.Printf("Failed to read mail %d for %s: %v", summary.ID, mailbox, err)
		return "Mail operation failed"
	}
	if content == nil {
		return "Message not found"
	}

	cs := m.sess.Compose(node)
	cs.ReplyTo = content.SenderShortName
	cs.ReplySubject = content.Subject

	header := fmt.Sprintf("From: %s\nSubject: %s\nDate: %s\n\n",
		content.SenderShortName, content.Subject, shortDate(content.Date))
	if len(header)+len(content.Content) > PayloadLimit {
		header = fmt.Sprintf("From: %s\n", content.SenderShortName)
	}
	if len(header)+len(content.Content) > PayloadLimit {
		header = ""
	}
	return header + content.Content
}

func (m *Mail) deleteMessage(node, mailbox string, index int, summary MailSummary) string {
	if err := m.store.DeleteMail(summary.UniqueID, mailbox); err != nil {
		log.Printf("Failed to delete mail %s for %s: %v", summary.UniqueID, mailbox, err)
		return "Mail operation failed"
	}
	cs := m.sess.Compose(node)
	cs.ReplyTo = ""
	cs.ReplySubject = ""
	return fmt.Sprintf("Deleted message #%d\nFrom: %s\nSubject: %s\nDate: %s",
		index+1, summary.SenderShortName, summary.Subject, summary.Date)
}

// sendReply walks the three compose stages: recipient, subject, body.
// Stages already resolved in the same message are skipped.
func (m *Mail) sendReply(node, mailbox string, in *Input) string {
	cs := m.sess.Compose(node)
	sub := m.stack.Get(node, 1)
	nodes := m.iface.Nodes()

	if cs.To == "" {
		response, resolved := m.chooseRecipient(node, cs, sub, in)
		if !resolved {
			return response
		}
	}

	if cs.Subject == "" {
		switch {
		case sub == CmdReply && cs.ReplySubject != "":
			prefix := ""
			if !strings.HasPrefix(strings.ToLower(cs.ReplySubject), "re: ") {
				prefix = "re: "
			}
			cs.Subject = prefix + cs.ReplySubject
		case in.Len() > 0:
			cs.Subject, cs.Body = splitSubjectBody(in.Take())
		}
		if cs.Subject == "" {
			cs.MsgContent = true
			return fmt.Sprintf("Mail to: %s\n%s (%s)\nEnter subject:",
				cs.To, mesh.LongName(nodes, cs.To), mesh.ShortName(nodes, cs.To))
		}
	}

	if cs.Body == "" {
		if in.Len() > 0 {
			cs.Body = strings.Join(in.Take(), " ")
		} else {
			cs.MsgContent = true
			return fmt.Sprintf("Mail to: %s\n%s (%s)\nSubject: %s\nEnter message text:",
				cs.To, mesh.LongName(nodes, cs.To), mesh.ShortName(nodes, cs.To), cs.Subject)
		}
	}

	return m.deliver(node, cs)
}

// chooseRecipient resolves the compose target from a roster index, a
// literal node id, a short name, or the original sender of the message
// being replied to. When unresolved it pages the roster.
func (m *Mail) chooseRecipient(node string, cs *ComposeState, sub string, in *Input) (string, bool) {
	nodes := m.iface.Nodes()
	roster := mesh.MakeNodeList(nodes, m.fmt.Get(node))
	sel := in.Peek()

	for i, choice := range roster {
		shortName := mesh.ShortName(nodes, choice.Value)
		matched := false
		switch {
		case sel != "" && isDigits(sel):
			index, _ := strconv.Atoi(sel)
			matched = index == i+1
		case sel != "":
			matched = sel == strings.ToLower(choice.Value) || sel == strings.ToLower(shortName)
		}
		if matched {
			cs.To = choice.Value
			in.Pop()
			return "", true
		}
		if sub == CmdReply && cs.ReplyTo != "" && cs.ReplyTo == shortName {
			cs.To = choice.Value
			return "", true
		}
	}

	m.output.Set(node, "", "# to select", topicNodeList)
	return "To:\n" + mesh.ListChoices(roster, ""), false
}

// deliver persists the composed mail and renders a confirmation capped
// to the payload budget; the header is always shown in full.
func (m *Mail) deliver(node string, cs *ComposeState) string {
	body := cs.Body
	if len(body) > PayloadLimit {
		body = body[:PayloadLimit]
	}
	nodes := m.iface.Nodes()
	if _, err := m.store.AddMail(node, mesh.ShortName(nodes, node), cs.To, cs.Subject, body); err != nil {
		log.Printf("Failed to send mail from %s to %s: %v", node, cs.To, err)
		return "Mail operation failed"
	}

	header := fmt.Sprintf("Sent message\nFrom: %s\nTo: %s\nSubject: %s\n\n", node, cs.To, cs.Subject)
	m.sess.ResetCompose(node)
	m.stack.Clear(node)

	if len(header)+len(body) > PayloadLimit {
		cut := PayloadLimit - len(header) - 3
		if cut < 0 {
			cut = 0
		}
		return header + body[:cut] + "..."
	}
	return header + body
}

// Periodic announces waiting mail to recipients the transport has
// heard recently, at most once per sweep per node.
func (m *Mail) Periodic() {
	if m.store == nil {
		return
	}
	pending, err := m.store.PendingNotifications()
	if err != nil {
		log.Printf("Failed to query pending notifications: %v", err)
		return
	}
	nodes := m.iface.Nodes()
	for _, n := range pending {
		info, ok := nodes[n.Recipient]
		if !ok || info.LastHeard.IsZero() {
			continue
		}
		if time.Since(info.LastHeard) >= notifyWindow {
			continue
		}
		if err := m.iface.SendText("You have new mail messages. Reply with 'mail' to see them.", n.Recipient); err != nil {
			log.Printf("Failed to notify %s: %v", n.Recipient, err)
			continue
		}
		if err := m.store.ClearNotify(n.Recipient, n.MailID); err != nil {
			log.Printf("Failed to clear notify for %s: %v", n.Recipient, err)
		}
	}
}

// splitSubjectBody divides free text around a "--" token: tokens before
// it form the subject, tokens after it the body.
func splitSubjectBody(tokens []string) (string, string) {
	for i, t := range tokens {
		if t == "--" {
			return strings.Join(tokens[:i], " "), strings.Join(tokens[i+1:], " ")
		}
	}
	return strings.Join(tokens, " "), ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// shortDate drops the year from a stored "2006-01-02 15:04" date.
func shortDate(date string) string {
	if len(date) > 5 {
		return date[5:]
	}
	return date
}
