package mail

import "strings"

// Subcommand names as they appear on the command stack and in help
// catalog paths.
const (
	CmdMail    = "mail"
	CmdRead    = "read"
	CmdReply   = "reply"
	CmdSend    = "send"
	CmdDelete  = "delete"
	CmdAdmin   = "admin"
	CmdAlias   = "alias"
	CmdPeer    = "peer"
	CmdMailbox = "mailbox"
	CmdAdd     = "add"
	CmdSelect  = "select"
	CmdHelp    = "help"
)

// Pager help topics (not subcommands).
const (
	topicPager    = "pager"
	topicNodeList = "nodelist"
)

func helpKey(tokens ...string) string {
	return strings.Join(tokens, ":")
}

// HelpCatalog is a static hierarchical lookup of help text keyed by the
// colon-joined command path.
type HelpCatalog struct {
	topics map[string]string
}

func NewHelpCatalog() *HelpCatalog {
	return &HelpCatalog{topics: map[string]string{
		helpKey(CmdMail): `
read <#>
delete <# | all>
reply <#> <msg>
send <node_id> <subj> -- <msg>
admin <alias | peer | mailbox>
`,
		helpKey(CmdMail, CmdRead): `
read = Read mail messages
read # = Read message number #
`,
		helpKey(CmdMail, CmdReply): `
reply = Reply to message (interactive)
reply # = Reply to message number #
reply # <message> = Quick reply
`,
		helpKey(CmdMail, CmdDelete): `
delete = Delete mail messages
delete # = Delete message number #
delete all = Delete all messages
`,
		helpKey(CmdMail, CmdSend): `
send = Send mail (interactive)
send !1234 Hi There -- message text = Quick send
`,
		helpKey(CmdMail, CmdAdmin): `
alias <add | delete> <node_id>
peer <add | delete> <node_id>
mailbox <select | delete>
`,
		helpKey(CmdMail, CmdAdmin, CmdAlias): `
add <node_id> = Add node to access mailbox
delete <node_id> = Remove node from mailbox
`,
		helpKey(CmdMail, CmdAdmin, CmdPeer): `
add <node_id> = Sync mail with another node
delete <node_id> = Remove sync peer
`,
		helpKey(CmdMail, CmdAdmin, CmdMailbox): `
list
select <node_id>
delete <node_id>
`,
		helpKey(CmdMail, CmdAdmin, CmdMailbox, CmdSelect): `
select = Admin access to mailbox (interactive)
select <node_id> = Admin access to mailbox
`,
		helpKey(CmdMail, CmdAdmin, CmdMailbox, CmdDelete): `
delete = Delete mailbox (interactive)
delete <node_id> = Delete mailbox
`,
		topicPager: `
p = Previous page
n = Next page
q = Quit viewing pages
or send text to search/filter output
`,
		topicNodeList: `
p = Previous page
n = Next page
- = Short format
+ = Long format
i = Toggle nodeID
l = Toggle longName
s = Toggle shortName
q = Quit viewing pages
or send text to search/filter output
`,
	}}
}

// Topic returns the raw text for a pager help topic, without the
// command-path header and footer.
func (h *HelpCatalog) Topic(name string) string {
	return strings.TrimSpace(h.topics[name])
}

// Get resolves help text for the current command stack plus any extra
// argument tokens. The candidate path is shortened one token at a time
// on lookup misses, so "help alias add" inside mail:admin resolves to
// the mail:admin:alias:add text rather than generic root help.
func (h *HelpCatalog) Get(commands, args []string) string {
	stack := stripHelp(commands)
	n := len(stack)
	header := "Command: " + strings.Join(stack, ":") + "\n"

	for _, a := range args {
		stack = append(stack, strings.ToLower(a))
	}
	stack = stripHelp(stack)

	var response string
	for len(stack) > 0 {
		if text, ok := h.topics[helpKey(stack...)]; ok {
			response = strings.TrimSpace(text)
			if len(stack) > n {
				header += "Help: " + strings.Join(stack[n:], ":") + "\n"
			}
			break
		}
		stack = stack[:len(stack)-1]
	}
	if response == "" {
		response = strings.TrimSpace(h.topics[helpKey(CmdMail)])
	}

	var footer string
	if up := stripHelp(commands); len(up) > 1 {
		footer += "\n'back' to return to " + strings.Join(up[:len(up)-1], ":")
	}
	footer += "\n'exit' to quit mail"
	footer += "\nor send command"
	return header + response + footer
}

func stripHelp(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == CmdHelp {
			continue
		}
		out = append(out, t)
	}
	return out
}
