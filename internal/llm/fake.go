package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	llmclient "constellation/internal/llm/client"
)

func init() {
	llmclient.RegisterProvider("fake", func(context.Context, llmclient.Options) (llmclient.LLMClient, error) {
		return NewFakeClient(), nil
	})
}

// FakeClient returns deterministic placeholder documents per phase for
// offline runs and tests. It reads the directory, its files and its children
// back out of the prompt.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

var (
	fakeDirRe          = regexp.MustCompile(`(?m)^Directory: '(.*)'$`)
	fakeSummaryChildRe = regexp.MustCompile(`(?m)^- Sub-directory: '(.*)'\n  - Files aggregated: (\d+)$`)
	fakeDiagramChildRe = regexp.MustCompile(`(?m)^- Sub-directory \d+:\n  - Path: '(.*)'\n  - Node id: '(.*)'\n  - Diagram link: '(.*)'$`)
)

func (f *FakeClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	identity := ""
	if m := fakeDirRe.FindStringSubmatch(prompt); m != nil {
		identity = m[1]
	}
	content, tail := splitFakePrompt(prompt, identity)
	size := utf8.RuneCountInString(content)

	var sb strings.Builder
	switch PhaseFrom(ctx) {
	case "summary":
		fmt.Fprintf(&sb, "# Summary for %s\n\n", identity)
		sb.WriteString("This is a mock summary.\n")
		fmt.Fprintf(&sb, "It processes content of length: %d characters.\n", size)
		children := fakeSummaryChildRe.FindAllStringSubmatch(tail, -1)
		if len(children) == 0 {
			sb.WriteString("No child directories were processed.\n")
			break
		}
		sb.WriteString("\nIt has the following child directories processed:\n")
		for _, c := range children {
			fmt.Fprintf(&sb, "- %s (Files: %s)\n", c[1], c[2])
		}
	case "diagram":
		fmt.Fprintf(&sb, "```mermaid\n---\ntitle: Mock Flowchart for %s\n---\nflowchart TD\n", identity)
		fmt.Fprintf(&sb, "    A[\"Start %s\"] --> B{\"Contains %d chars of content\"}\n", identity, size)
		children := fakeDiagramChildRe.FindAllStringSubmatch(tail, -1)
		if len(children) == 0 {
			sb.WriteString("    B --> C[No sub-directories]\n")
		}
		for _, c := range children {
			fmt.Fprintf(&sb, "    B --> %s[\"%s\"]\n", c[2], c[1])
			fmt.Fprintf(&sb, "    click %s \"%s\" \"Go to %s diagram\" _self\n", c[2], c[3], c[1])
		}
		sb.WriteString("```\n")
	default:
		fmt.Fprintf(&sb, "fake reply for %s\n", identity)
	}
	return sb.String(), nil
}

// splitFakePrompt returns the file content block of a directory prompt and
// the text after it, where the children are listed.
func splitFakePrompt(prompt, identity string) (content, tail string) {
	open := fmt.Sprintf("Files located directly in '%s':\n---\n", identity)
	i := strings.Index(prompt, open)
	if i < 0 {
		return "", prompt
	}
	rest := prompt[i+len(open):]
	j := strings.Index(rest, fmt.Sprintf("\n---\n\nSub-directories of '%s'", identity))
	if j < 0 {
		return rest, ""
	}
	return rest[:j], rest[j:]
}
