package generate

import (
	"fmt"
	"strings"

	t "constellation/internal/types"
)

// SummaryPrompt asks for a markdown summary of one directory.
func SummaryPrompt(identity, content string, children []t.ChildBrief) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are a senior software engineer documenting a codebase one directory at a time.

Directory: '%s'

Files located directly in '%s':
---
%s
---

Sub-directories of '%s' that were already documented:
`, identity, identity, content, identity)

	if len(children) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, c := range children {
		excerpt := c.SummaryExcerpt
		if excerpt == "" {
			excerpt = "Not available"
		}
		fmt.Fprintf(&sb, "\n- Sub-directory: '%s'\n  - Files aggregated: %d\n  - Summary: %s\n", c.Path, c.FilesAggregatedCount, excerpt)
	}

	fmt.Fprintf(&sb, `
Write a markdown document that:
1. Gives a short overview of the purpose and responsibility of '%s'.
2. Lists the key files or components in '%s' with one line on the role of each.
3. Notes interactions or dependencies visible in the file contents.
4. Ends with how '%s' fits into the larger project, taking its sub-directories into account.

Reply with the markdown only, no preamble. Start with the heading: # Summary for %s
`, identity, identity, identity, identity)
	return sb.String()
}

// DiagramPrompt asks for a mermaid "flowchart TD" of one directory with one
// clickable node per direct child.
func DiagramPrompt(identity, content string, children []t.ChildBrief, diagramFile string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are a senior software engineer drawing Mermaid.js diagrams of a codebase one directory at a time.

Directory: '%s'

Files located directly in '%s':
---
%s
---

Sub-directories of '%s':
`, identity, identity, content, identity)

	if len(children) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, c := range children {
		fmt.Fprintf(&sb, "\n- Sub-directory %d:\n  - Path: '%s'\n  - Node id: '%s'\n  - Diagram link: '%s'\n",
			i+1, c.Path, NodeID(i, c.Path), ChildLink(c.Path, diagramFile))
	}

	fmt.Fprintf(&sb, `
Rules for the diagram:
1. It must be a 'flowchart TD'.
2. Give it the front-matter title: Flowchart for %s
3. Show the main files, components or logical blocks of '%s' as nodes and the main data flow or calls between them.
4. Draw every sub-directory listed above as its own node labelled with its path, using the suggested node id.
5. Make each sub-directory node clickable with its diagram link, for example:
       click NODE_ID "./child/%s" "Go to child diagram" _self
6. Connect sub-directory nodes to the parts of '%s' that use them, or to a node for '%s' itself when unclear.
7. Stay high level.
8. Reply with a single fenced code block that starts with `+"```mermaid"+` and ends with `+"```"+`, nothing else.
`, identity, identity, diagramFile, identity, identity)
	return sb.String()
}
