package mail

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"meshdoor/internal/mesh"
)

// admin serves the admin branch: alias management for everyone, peer
// and mailbox administration for configured admins only.
func (m *Mail) admin(node, mailbox string, in *Input) string {
	m.stack.Load(node, in, CmdAlias, CmdPeer, CmdMailbox)

	switch m.stack.Get(node, 2) {
	case CmdAlias:
		return m.adminAlias(node, mailbox, in)

	case CmdPeer:
		if !m.isAdmin(node) {
			return "You do not have permission to administer peers!"
		}
		m.stack.Load(node, in, CmdAdd, CmdDelete)
		switch m.stack.Get(node, 3) {
		case CmdAdd, CmdDelete:
			m.stack.Pop(node)
			return "Peer synchronization is not yet supported"
		default:
			return m.help.Get(m.stack.All(node), in.List())
		}

	case CmdMailbox:
		if !m.isAdmin(node) {
			return "You do not have permission to administer mailboxes!"
		}
		m.stack.Load(node, in, CmdSelect, CmdDelete)
		switch m.stack.Get(node, 3) {
		case CmdSelect, CmdDelete:
			m.stack.Pop(node)
			return "Mailbox administration is not yet supported"
		default:
			return m.help.Get(m.stack.All(node), in.List())
		}

	default:
		return m.help.Get(m.stack.All(node), in.List())
	}
}

// adminAlias manages the nodes authorized to share a mailbox. Add and
// delete both stage the chosen node on the command stack and require an
// "a" confirmation before mutating.
func (m *Mail) adminAlias(node, mailbox string, in *Input) string {
	m.stack.Load(node, in, CmdAdd, CmdDelete)

	switch m.stack.Get(node, 3) {
	case CmdAdd:
		return m.aliasMutate(node, mailbox, in, true)
	case CmdDelete:
		return m.aliasMutate(node, mailbox, in, false)
	default:
		m.output.Set(node, "", "'add', 'delete'", topicPager)
		return m.aliasListing(mailbox)
	}
}

func (m *Mail) aliasMutate(node, mailbox string, in *Input, add bool) string {
	sel := in.Peek()
	nodes := m.iface.Nodes()
	aliases, err := m.store.GetAliases(mailbox)
	if err != nil {
		log.Printf("Failed to load aliases for %s: %v", mailbox, err)
		return "Mail operation failed"
	}

	// A node staged on the stack means we already asked for
	// confirmation; this message is the answer.
	if target := m.stack.Get(node, 4); target != "" {
		return m.aliasConfirm(node, mailbox, sel, target, add)
	}

	roster := mesh.MakeNodeList(nodes, m.fmt.Get(node))
	choices := roster
	if !add {
		choices = m.aliasChoices(aliases)
	}

	index := -1
	if isDigits(sel) {
		index, _ = strconv.Atoi(sel)
		index--
	}
	if (index >= 0 && index < len(choices)) || mesh.IsNodeID(sel) {
		var choice, choiceDisplay string
		if index >= 0 && index < len(choices) {
			choice = choices[index].Value
			choiceDisplay = choices[index].Display
		} else {
			choice = sel
			choiceDisplay = fmt.Sprintf("%s %s (%s)", sel, mesh.LongName(nodes, sel), mesh.ShortName(nodes, sel))
		}

		if reason := m.aliasReject(mailbox, choice, aliases, add); reason != "" {
			// Back up to the aliases menu
			m.stack.Pop(node)
			m.output.Set(node, "", "'add', 'delete'", topicPager)
			return reason + "\n\n" + m.aliasListing(mailbox)
		}

		m.stack.Push(node, choice)
		m.output.Set(node, "", "A) Approve\nD) Deny", topicPager)
		if add {
			return fmt.Sprintf("Grant node %s access to your mailbox?\n\n", choiceDisplay)
		}
		return fmt.Sprintf("Delete node %s from access to your mailbox?\n\n", choiceDisplay)
	}

	// No node chosen yet
	if sel == "q" {
		m.stack.Pop(node)
		m.output.Clear(node)
		return m.help.Get(m.stack.All(node), in.List())
	}
	search := sel
	if search == "c" {
		search = ""
	}
	prompt := ""
	if search != "" {
		prompt = "(c)lear search, "
	}
	if add {
		m.output.Set(node, "", prompt+"# or !nodeID to add alias", topicNodeList)
		return "Nodes:\n" + mesh.ListChoices(choices, search)
	}
	m.output.Set(node, "", prompt+"# or !nodeID to delete alias", topicPager)
	return "Aliases:\n" + mesh.ListChoices(choices, search)
}

// aliasConfirm applies or discards a staged alias mutation. Only "a"
// approves; anything else declines. Either way the staged node and the
// add/delete level are popped and the alias list is re-rendered.
func (m *Mail) aliasConfirm(node, mailbox, answer, target string, add bool) string {
	primary, err := m.store.GetPrimaryAlias(mailbox)
	if err != nil {
		log.Printf("Failed to resolve primary for %s: %v", mailbox, err)
		return "Mail operation failed"
	}
	if primary == "" {
		primary = mailbox
	}

	var response string
	if answer == "a" {
		if add {
			err = m.store.AddAlias(primary, target)
		} else {
			err = m.store.DeleteAlias(primary, target)
		}
		switch {
		case err != nil && add:
			log.Printf("Failed to add alias %s for %s: %v", target, primary, err)
			response = fmt.Sprintf("%s NOT added: %v\n\n", target, err)
		case err != nil:
			log.Printf("Failed to delete alias %s for %s: %v", target, primary, err)
			response = "Mail operation failed\n\n"
		case add:
			response = fmt.Sprintf("Added alias %s to authorized nodes for this mailbox.\n\n", target)
		default:
			response = fmt.Sprintf("Deleted %s from authorized nodes for this mailbox.\n\n", target)
		}
	} else {
		if add {
			response = fmt.Sprintf("%s NOT added to authorized nodes for this mailbox.\n\n", target)
		} else {
			response = fmt.Sprintf("%s NOT deleted.\n\n", target)
		}
	}

	m.stack.Pop(node) // the staged nodeID
	m.stack.Pop(node) // the add/delete command
	m.output.Set(node, "", "'add', 'delete'", topicPager)
	return response + m.aliasListing(mailbox)
}

// aliasReject explains why a chosen node cannot be added or deleted,
// or returns "" when the choice is valid.
func (m *Mail) aliasReject(mailbox, choice string, aliases []string, add bool) string {
	isAlias := false
	for _, a := range aliases[1:] {
		if a == choice {
			isAlias = true
			break
		}
	}
	if add {
		if choice == mailbox {
			return "You can't add yourself as an alias"
		}
		if isAlias {
			return fmt.Sprintf("%s is already an alias", choice)
		}
		return ""
	}
	if choice == mailbox {
		return "You can't delete the mailbox nodeID"
	}
	if !isAlias {
		return fmt.Sprintf("%s is not an alias", choice)
	}
	return ""
}

// aliasChoices renders mailbox members as selectable choices.
func (m *Mail) aliasChoices(aliases []string) []mesh.Choice {
	nodes := m.iface.Nodes()
	choices := make([]mesh.Choice, 0, len(aliases))
	for _, a := range aliases {
		choices = append(choices, mesh.Choice{
			Value:   a,
			Display: fmt.Sprintf("%s %s (%s)", a, mesh.LongName(nodes, a), mesh.ShortName(nodes, a)),
		})
	}
	return choices
}

func (m *Mail) aliasListing(mailbox string) string {
	aliases, err := m.store.GetAliases(mailbox)
	if err != nil {
		log.Printf("Failed to load aliases for %s: %v", mailbox, err)
		return "Mail operation failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Aliases for mailbox %s:\n", mailbox)
	b.WriteString(mesh.ListChoices(m.aliasChoices(aliases), ""))
	return b.String()
}
