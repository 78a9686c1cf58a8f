// Package generate turns a directory's aggregated content and its children's
// briefs into a summary document and a mermaid diagram document.
package generate

import (
	"context"
	"log"
	"strings"

	"constellation/internal/llm"
	llmclient "constellation/internal/llm/client"
	t "constellation/internal/types"
)

const (
	DefaultMaxContentChars = 50000
	DefaultDiagramFileName = "mermaid.md"

	PhaseSummary = "summary"
	PhaseDiagram = "diagram"
)

// Generator produces the two documents for one directory. It never fails:
// errors degrade to fallback documents.
type Generator interface {
	Generate(ctx context.Context, identity, content string, children []t.ChildBrief) t.GeneratedOutput
}

// LLMGenerator asks an LLM client for each document with its own prompt.
// Retries belong to the client's middleware chain.
type LLMGenerator struct {
	Client          llmclient.LLMClient
	MaxContentChars int
	DiagramFileName string
	Logger          *log.Logger
}

func (g *LLMGenerator) Generate(ctx context.Context, identity, content string, children []t.ChildBrief) t.GeneratedOutput {
	var out t.GeneratedOutput

	g.logger().Printf("generate: summary for %q using %s", identity, g.Client.Name())
	summaryContent := g.truncate(identity, content, PhaseSummary)
	summary, err := g.Client.GenerateText(llm.WithPhase(ctx, PhaseSummary), SummaryPrompt(identity, summaryContent, children))
	if err != nil || strings.TrimSpace(summary) == "" {
		g.logger().Printf("generate: summary for %q failed: %v", identity, err)
		out.Summary = FallbackSummary(identity)
		out.SummaryFallback = true
	} else {
		out.Summary = summary
	}

	g.logger().Printf("generate: diagram for %q using %s", identity, g.Client.Name())
	diagramContent := g.truncate(identity, content, PhaseDiagram)
	diagram, err := g.Client.GenerateText(llm.WithPhase(ctx, PhaseDiagram), DiagramPrompt(identity, diagramContent, children, g.diagramFileName()))
	if err != nil || strings.TrimSpace(diagram) == "" {
		g.logger().Printf("generate: diagram for %q failed: %v", identity, err)
		out.Diagram = FallbackDiagram(identity)
		out.DiagramFallback = true
	} else {
		out.Diagram = diagram
	}
	return out
}

func (g *LLMGenerator) truncate(identity, content, phase string) string {
	limit := g.MaxContentChars
	if limit <= 0 {
		limit = DefaultMaxContentChars
	}
	cut, truncated := Truncate(content, limit)
	if truncated {
		g.logger().Printf("generate: content for %q is %d chars, truncated to %d for %s prompt", identity, len([]rune(content)), limit, phase)
	}
	return cut
}

func (g *LLMGenerator) diagramFileName() string {
	if g.DiagramFileName != "" {
		return g.DiagramFileName
	}
	return DefaultDiagramFileName
}

func (g *LLMGenerator) logger() *log.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return log.Default()
}
