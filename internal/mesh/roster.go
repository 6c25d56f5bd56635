package mesh

import (
	"fmt"
	"sort"
	"strings"
)

// Choice pairs a selectable value with its rendered display line.
type Choice struct {
	Value   string
	Display string
}

// MakeNodeList renders the roster as numbered choices. The format string
// is a subset of "ils" selecting which of id, long name and short name
// appear in each display line.
func MakeNodeList(nodes map[string]NodeInfo, format string) []Choice {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	list := make([]Choice, 0, len(ids))
	for _, id := range ids {
		var b strings.Builder
		if strings.Contains(format, "i") {
			b.WriteString(id)
			if strings.Contains(format, "l") || strings.Contains(format, "s") {
				b.WriteString(" ")
			}
		}
		if strings.Contains(format, "l") {
			b.WriteString(LongName(nodes, id))
			if strings.Contains(format, "s") {
				b.WriteString(" ")
			}
		}
		if strings.Contains(format, "s") {
			if strings.Contains(format, "l") {
				fmt.Fprintf(&b, "(%s)", ShortName(nodes, id))
			} else {
				b.WriteString(ShortName(nodes, id))
			}
		}
		list = append(list, Choice{Value: id, Display: b.String()})
	}
	return list
}

// ListChoices renders choices as "1) display" lines. A non-empty search
// filters by case-insensitive substring match while keeping the original
// choice numbering so a filtered index still selects the right item.
func ListChoices(list []Choice, search string) string {
	var b strings.Builder
	if len(list) == 0 {
		b.WriteString("None\n")
		return b.String()
	}
	for i, c := range list {
		if search != "" && !strings.Contains(strings.ToLower(c.Display), strings.ToLower(search)) {
			continue
		}
		fmt.Fprintf(&b, "%d) %s\n", i+1, c.Display)
	}
	if b.Len() == 0 {
		fmt.Fprintf(&b, "No matches for %s\n\n", search)
	}
	return b.String()
}
