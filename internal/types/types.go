package types

import (
	"path"
	"path/filepath"
	"strings"
)

// Directory identity ------------------------------------------------------------

// Identity returns the DirectoryIdentity of dir inside the tree rooted at root:
// the root's base name followed by the slash-separated path of dir relative to
// root (e.g. "proj", "proj/internal/scan").
func Identity(root, dir string) string {
	root = filepath.Clean(root)
	name := filepath.Base(root)
	rel, err := filepath.Rel(root, filepath.Clean(dir))
	if err != nil || rel == "." || rel == "" {
		return name
	}
	return path.Join(name, filepath.ToSlash(rel))
}

// LastSegment returns the final path segment of an identity.
func LastSegment(identity string) string {
	identity = strings.TrimRight(identity, "/")
	if i := strings.LastIndex(identity, "/"); i >= 0 {
		return identity[i+1:]
	}
	return identity
}

// Aggregation -------------------------------------------------------------------

type FileRecord struct {
	Name          string `json:"file_name"`
	Path          string `json:"path"`
	ContentLength int    `json:"content_length"`
}

type AggregationResult struct {
	Files               []FileRecord `json:"individual_files"`
	ConcatenatedContent string       `json:"concatenated_content"`
}

// Traversal results -------------------------------------------------------------

// ChildSummary is what a directory hands to its parent once it is done.
type ChildSummary struct {
	Path                   string `json:"path"`
	FilesAggregatedCount   int    `json:"files_aggregated_count"`
	ChildrenProcessedCount int    `json:"children_processed_count"`
	SummaryFilePath        string `json:"summary_file,omitempty"`
	DiagramFilePath        string `json:"mermaid_file,omitempty"`
	// SummaryExcerpt is the head of the generated summary document.
	SummaryExcerpt string `json:"-"`
}

// ChildBrief is the per-child view passed to generation.
type ChildBrief struct {
	Path                 string `json:"path"`
	FilesAggregatedCount int    `json:"files_aggregated_count"`
	SummaryExcerpt       string `json:"summary_content,omitempty"`
}

// Brief projects a ChildSummary onto the fields generation consumes.
func (c ChildSummary) Brief() ChildBrief {
	return ChildBrief{
		Path:                 c.Path,
		FilesAggregatedCount: c.FilesAggregatedCount,
		SummaryExcerpt:       c.SummaryExcerpt,
	}
}

// Generation --------------------------------------------------------------------

type GeneratedOutput struct {
	Summary string `json:"summary_md"`
	Diagram string `json:"mermaid_md"`
	// SummaryFallback / DiagramFallback mark documents replaced by error artifacts.
	SummaryFallback bool `json:"summary_fallback,omitempty"`
	DiagramFallback bool `json:"diagram_fallback,omitempty"`
}

// Degraded reports whether either document is a fallback artifact.
func (g GeneratedOutput) Degraded() bool { return g.SummaryFallback || g.DiagramFallback }
