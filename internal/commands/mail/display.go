package mail

import (
	"strings"
	"sync"
)

// PayloadLimit is the hard cap on a single transmitted payload. Every
// page the pager emits, footer included, fits within it.
const PayloadLimit = 200

// halfFullDivisor sets the refinement threshold: when a chunk overflows
// a page that is less than budget/halfFullDivisor full, the chunk is
// re-split with a finer delimiter instead of closing the page early.
// Mesh packets are precious, so dense pages beat clean chunk boundaries.
const halfFullDivisor = 2

// splitText picks the coarsest delimiter present in the text: newline,
// then space, then individual characters for un-splittable content.
func splitText(text string) (string, []string) {
	switch {
	case strings.Contains(text, "\n"):
		return "\n", strings.Split(text, "\n")
	case strings.Contains(text, " "):
		return " ", strings.Split(text, " ")
	default:
		return "", strings.Split(text, "")
	}
}

// finerSplit re-splits an oversized chunk one delimiter level down:
// spaces if it has any, otherwise individual characters.
func finerSplit(chunk string) (string, []string, bool) {
	if strings.Contains(chunk, " ") {
		return " ", strings.Split(chunk, " "), true
	}
	if len(chunk) > 1 {
		return "", strings.Split(chunk, ""), true
	}
	return "", nil, false
}

// segment is one pending chunk together with the delimiter that joins
// it to the previous chunk on the same page.
type segment struct {
	sep  string
	text string
}

func pageFooter(pageIndex int, hasNext bool, prompt string) string {
	var b strings.Builder
	b.WriteString("\n")
	if pageIndex > 0 {
		b.WriteString("(p)rev, ")
	}
	if hasNext {
		b.WriteString("(n)ext, ")
	}
	b.WriteString("(q)uit, ")
	b.WriteString(prompt)
	return b.String()
}

// paginate splits text into payload-sized pages. Text that fits in a
// single payload gets the bare prompt; anything longer is packed
// against the with-next footer, since any page built here may turn out
// not to be the last, and the final page's shorter footer always fits.
func paginate(text, prompt string) []string {
	if len(text)+len(prompt) <= PayloadLimit {
		return []string{text + prompt}
	}

	delim, parts := splitText(text)
	segs := make([]segment, 0, len(parts))
	for i, p := range parts {
		sep := ""
		if i > 0 {
			sep = delim
		}
		segs = append(segs, segment{sep: sep, text: p})
	}

	var pages []string
	page := ""
	for len(segs) > 0 {
		seg := segs[0]
		if page == "" {
			seg.sep = ""
		}
		need := len(seg.sep) + len(seg.text)

		footer := pageFooter(len(pages), true, prompt)
		budget := PayloadLimit - len(footer)
		if budget < 1 {
			budget = 1
		}

		if len(page)+need <= budget {
			page += seg.sep + seg.text
			segs = segs[1:]
			continue
		}

		if len(page) < budget/halfFullDivisor {
			// Closing now would leave the page less than half full;
			// break the chunk up and pack as much as possible first.
			if fd, fparts, ok := finerSplit(seg.text); ok {
				refined := make([]segment, 0, len(fparts)+len(segs)-1)
				for i, p := range fparts {
					sep := fd
					if i == 0 {
						sep = seg.sep
					}
					refined = append(refined, segment{sep: sep, text: p})
				}
				segs = append(refined, segs[1:]...)
				continue
			}
		}

		// The page is already mostly full. Close it and put this
		// chunk on the next page.
		pages = append(pages, page+footer)
		page = ""
		segs[0].sep = ""
	}

	return append(pages, page+pageFooter(len(pages), false, prompt))
}

type displayState struct {
	pages   []string
	current int
	prompt  string
	raw     string
	help    string
}

// DisplayManager holds per-node paging state and serves navigation
// requests against it.
type DisplayManager struct {
	mu      sync.RWMutex
	states  map[string]*displayState
	catalog *HelpCatalog
}

func NewDisplayManager(catalog *HelpCatalog) *DisplayManager {
	return &DisplayManager{
		states:  make(map[string]*displayState),
		catalog: catalog,
	}
}

func (d *DisplayManager) state(node string) *displayState {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[node]
	if !ok {
		st = &displayState{help: topicPager}
		d.states[node] = st
	}
	return st
}

// Set rebuilds pages when text is given, stores a new prompt (re-paging
// the retained raw text when only the prompt changes), and records the
// pager's contextual help topic.
func (d *DisplayManager) Set(node, text, prompt, helpTopic string) {
	st := d.state(node)
	if prompt != "" {
		st.prompt = prompt
		if text == "" && st.raw != "" {
			text = st.raw
		}
	}
	if text != "" {
		st.pages = paginate(text, st.prompt)
		st.current = 0
		st.raw = text
	}
	if helpTopic != "" {
		st.help = helpTopic
	}
}

// Clear resets a node's paging state.
func (d *DisplayManager) Clear(node string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, node)
}

// Active reports whether the node has a multi-page reply in progress,
// in which case single-letter navigation input is intercepted before
// normal command dispatch.
func (d *DisplayManager) Active(node string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	st, ok := d.states[node]
	return ok && len(st.pages) > 1
}

// DisplayPages handles page navigation and returns the current page.
// "p"/"n" move between pages and are no-ops at the ends; "help" swaps
// the buffer for the pager's contextual help. New text or prompt
// rebuilds the pages.
func (d *DisplayManager) DisplayPages(node string, in *Input, text, prompt string) string {
	st := d.state(node)
	switch strings.ToLower(strings.TrimSpace(in.Raw())) {
	case "p":
		if st.current > 0 {
			st.current--
		}
	case "n":
		if st.current+1 < len(st.pages) {
			st.current++
		}
	case CmdHelp:
		d.Set(node, d.catalog.Get([]string{st.help}, nil), "", "")
	}

	if text != "" || prompt != "" {
		d.Set(node, text, prompt, "")
	}

	if len(st.pages) == 0 {
		return ""
	}
	if st.current >= len(st.pages) {
		st.current = len(st.pages) - 1
	}
	return st.pages[st.current]
}

// NodeDisplayFormat tracks each node's roster rendering preference as a
// subset of "ils" (id, long name, short name).
type NodeDisplayFormat struct {
	mu      sync.RWMutex
	formats map[string]string
}

func NewNodeDisplayFormat() *NodeDisplayFormat {
	return &NodeDisplayFormat{formats: make(map[string]string)}
}

func (f *NodeDisplayFormat) Get(node string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if format, ok := f.formats[node]; ok {
		return format
	}
	return "ils"
}

// Set applies one format toggle: "-" short-name only, "+" everything,
// "i"/"l"/"s" toggle the corresponding field.
func (f *NodeDisplayFormat) Set(node, key string) {
	format := f.Get(node)

	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case key == "-":
		format = "s"
	case key == "+":
		format = "ils"
	case strings.Contains("ils", key) && key != "":
		if strings.Contains(format, key) {
			format = strings.Replace(format, key, "", 1)
		} else {
			format += key
		}
	}
	f.formats[node] = format
}
