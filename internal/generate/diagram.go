package generate

import (
	"fmt"
	"regexp"
	"strings"

	t "constellation/internal/types"
)

const (
	fenceOpen  = "```mermaid"
	fenceClose = "```"
)

var reNodeIDUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// FallbackSummary is written when the summary could not be generated.
func FallbackSummary(identity string) string {
	return fmt.Sprintf("# Summary for %s\n\nError: Failed to generate summary from LLM after multiple retries.\n", identity)
}

// FallbackDiagram is written when the diagram could not be generated. It holds
// exactly one node.
func FallbackDiagram(identity string) string {
	return fmt.Sprintf("%s\n---\ntitle: Error Generating Diagram for %s\n---\nflowchart TD\n    A[Error: failed to generate Mermaid diagram from LLM after multiple retries]\n%s\n", fenceOpen, identity, fenceClose)
}

// EnsureMermaidFence makes doc a single fenced mermaid block: it keeps only
// the first mermaid block when the reply wraps one in prose, adds the opening
// marker (or relabels a bare "```" opener) and closes an unclosed block.
func EnsureMermaidFence(doc string) string {
	body := firstMermaidBlock(strings.TrimSpace(doc))
	switch {
	case strings.HasPrefix(body, fenceOpen):
	case strings.HasPrefix(body, fenceClose):
		firstLine, rest, _ := strings.Cut(body, "\n")
		if strings.TrimSpace(firstLine) == fenceClose {
			body = fenceOpen + "\n" + rest
		} else {
			body = fenceOpen + "\n" + body
		}
	default:
		body = fenceOpen + "\n" + body
	}
	if body == fenceOpen || !strings.HasSuffix(body, fenceClose) {
		body += "\n" + fenceClose
	}
	return body + "\n"
}

// firstMermaidBlock cuts body down to its first "```mermaid" block, up to and
// including the closing fence line. Without an opener body is returned as is.
func firstMermaidBlock(body string) string {
	i := strings.Index(body, fenceOpen)
	if i < 0 {
		return body
	}
	lines := strings.Split(body[i:], "\n")
	for j := 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j]) == fenceClose {
			return strings.Join(lines[:j+1], "\n")
		}
	}
	return body[i:]
}

// NodeID derives a mermaid-safe node id for the i-th child.
func NodeID(i int, childPath string) string {
	return fmt.Sprintf("Child%d_%s", i, reNodeIDUnsafe.ReplaceAllString(childPath, "_"))
}

// ChildLink is the link from a parent's diagram to a direct child's diagram.
func ChildLink(childPath, diagramFile string) string {
	return "./" + t.LastSegment(childPath) + "/" + diagramFile
}

// DirNodeID is the node id used for the directory itself when child nodes
// have to be attached to the diagram.
func DirNodeID(identity string) string {
	return "Dir_" + reNodeIDUnsafe.ReplaceAllString(identity, "_")
}

// EnsureChildLinks appends a clickable node for every child whose link is not
// already present in the fenced diagram doc. Appended nodes hang off a node for
// the directory itself.
func EnsureChildLinks(doc, identity string, children []t.ChildBrief, diagramFile string) string {
	var missing strings.Builder
	dir := DirNodeID(identity)
	for i, c := range children {
		link := ChildLink(c.Path, diagramFile)
		if strings.Contains(doc, `"`+link+`"`) {
			continue
		}
		if missing.Len() == 0 {
			fmt.Fprintf(&missing, "    %s[\"%s\"]\n", dir, identity)
		}
		id := NodeID(i, c.Path)
		fmt.Fprintf(&missing, "    %s --> %s[\"%s\"]\n", dir, id, c.Path)
		fmt.Fprintf(&missing, "    click %s \"%s\" \"Go to %s diagram\" _self\n", id, link, c.Path)
	}
	if missing.Len() == 0 {
		return doc
	}
	body := strings.TrimRight(doc, "\n")
	body = strings.TrimSuffix(body, fenceClose)
	body = strings.TrimRight(body, "\n")
	return body + "\n" + missing.String() + fenceClose + "\n"
}
